package templatecmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scaffold/cmd/scaffold/session"
	"github.com/papercomputeco/scaffold/pkg/cliui"
	"github.com/papercomputeco/scaffold/pkg/template"
)

const deleteLongDesc string = `Delete a stored template.

Projects that already applied the template keep their files, but can no
longer be checked against it. A template still named by aliases is only
deleted with --force, which removes the aliases too.

Examples:
  scaffold template delete 3f2a9c1d
  scaffold template delete go-service --force`

const deleteShortDesc string = "Delete a stored template"

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <ref>",
		Aliases: []string{"rm"},
		Short:   deleteShortDesc,
		Long:    deleteLongDesc,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, args[0])
		},
	}

	return cmd
}

func runDelete(cmd *cobra.Command, ref string) error {
	s, err := session.Open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	if s.DryRun {
		hash, err := s.Catalog.Resolver().Resolve(cmd.Context(), ref)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s Would delete %s\n", cliui.DimStyle.Render("●"), cliui.HashStyle.Render(hash))
		return nil
	}

	hash, err := s.Catalog.Delete(cmd.Context(), ref, s.Force)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "  %s Deleted %s\n", cliui.SuccessMark, cliui.HashStyle.Render(template.ShortHash(hash)))
	return nil
}
