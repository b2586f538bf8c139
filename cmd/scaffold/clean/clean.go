// Package cleancmder provides the clean command for removing an applied
// template from a project.
package cleancmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scaffold/cmd/scaffold/session"
	"github.com/papercomputeco/scaffold/pkg/cliui"
	"github.com/papercomputeco/scaffold/pkg/scaffold"
	"github.com/papercomputeco/scaffold/pkg/template"
)

const cleanLongDesc string = `Remove an applied template from the nearest scaffold project.

The template is marked removed in the manifest, so its rules are no longer
checked. Files it generated are deleted when they are unchanged since
scaffold wrote them; edited files are kept and listed. Directories left
empty are removed.

The template may be referenced by alias, hash, hash prefix or by the name
recorded in the manifest.

Examples:
  scaffold clean github-actions
  scaffold clean grpc-api --root services/api
  scaffold clean 3f2a9c1d --dry-run`

const cleanShortDesc string = "Remove an applied template"

type cleanCommander struct {
	rootFolder string
}

func NewCleanCmd() *cobra.Command {
	cmder := &cleanCommander{}

	cmd := &cobra.Command{
		Use:   "clean <template>",
		Short: cleanShortDesc,
		Long:  cleanLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&cmder.rootFolder, "root", "", "Root folder of the application to remove")

	return cmd
}

func (c *cleanCommander) run(cmd *cobra.Command, ref string) error {
	s, err := session.Open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.Service.Clean(cmd.Context(), ".", scaffold.CleanOptions{
		Ref:        ref,
		RootFolder: c.rootFolder,
	})
	if err != nil {
		return fmt.Errorf("cleaning project: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n  %s Removed %s\n", cliui.SuccessMark, cliui.HashStyle.Render(template.ShortHash(res.Hash)))
	if len(res.Changes) > 0 {
		fmt.Fprintln(out)
		cliui.RenderChanges(out, res.Changes)
	}
	if len(res.Kept) > 0 {
		fmt.Fprintf(out, "\n%s\n", cliui.HeaderStyle.Render("Kept (edited locally)"))
		for _, p := range res.Kept {
			fmt.Fprintf(out, "  %s %s\n", cliui.WarnMark, p)
		}
	}
	if s.DryRun {
		fmt.Fprintln(out)
		cliui.RenderOperations(out, s.Operations())
	}
	fmt.Fprintln(out)
	return nil
}
