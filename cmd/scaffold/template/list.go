package templatecmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scaffold/cmd/scaffold/session"
	"github.com/papercomputeco/scaffold/pkg/cliui"
	"github.com/papercomputeco/scaffold/pkg/fsprovider"
)

const listLongDesc string = `List stored templates.

Shows the short hash, name, version and aliases of every stored template,
sorted by name and version.

Examples:
  scaffold template list
  scaffold template list --json`

const listShortDesc string = "List stored templates"

func newListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   listShortDesc,
		Long:    listLongDesc,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print summaries as JSON")

	return cmd
}

func runList(cmd *cobra.Command, asJSON bool) error {
	s, err := session.Open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	summaries, err := s.Catalog.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing templates: %w", err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		data, err := fsprovider.MarshalJSON(summaries)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	if len(summaries) == 0 {
		fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render("No templates stored. Use \"scaffold template add <path>\"."))
		return nil
	}

	cliui.TemplatesTable(out, summaries)
	return nil
}
