package templatecmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scaffold/pkg/template"
)

const hashLongDesc string = `Print the content hash of a template without storing it.

Examples:
  scaffold template hash ./go-service
  scaffold template hash ./base.yaml --short`

const hashShortDesc string = "Print a template's content hash"

func newHashCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "hash <file|dir>",
		Short: hashShortDesc,
		Long:  hashLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := template.Load(args[0])
			if err != nil {
				return err
			}

			hash, err := template.Hash(t)
			if err != nil {
				return err
			}
			if short {
				hash = template.ShortHash(hash)
			}

			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print the 8-character short hash")

	return cmd
}
