// Package extendcmder provides the extend command for applying a template to
// an existing project.
package extendcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scaffold/cmd/scaffold/session"
	"github.com/papercomputeco/scaffold/pkg/cliui"
	"github.com/papercomputeco/scaffold/pkg/config"
	"github.com/papercomputeco/scaffold/pkg/scaffold"
	"github.com/papercomputeco/scaffold/pkg/vars"
)

const extendLongDesc string = `Apply a template to the nearest scaffold project.

The project is found by searching upward from the current directory for
.scaffold/manifest.json. Project variables are merged with the ones given
with --var, which take precedence.

Files that were edited locally since scaffold last wrote them are resolved
with the conflict policy: --conflict, then the template's own policy, then
validation.conflict_resolution from config. --force is --conflict replace.

Examples:
  scaffold extend github-actions
  scaffold extend grpc-api --root services/api --var name=api
  scaffold extend docs --conflict prompt`

const extendShortDesc string = "Apply a template to the current project"

type extendCommander struct {
	rootFolder string
	conflict   string
	vars       []string
}

func NewExtendCmd() *cobra.Command {
	cmder := &extendCommander{}

	cmd := &cobra.Command{
		Use:   "extend <template>",
		Short: extendShortDesc,
		Long:  extendLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&cmder.rootFolder, "root", "", "Override the template root folder")
	cmd.Flags().StringArrayVar(&cmder.vars, "var", nil, "Template variable as key=value (repeatable)")
	config.AddStringFlag(cmd, config.Flags, config.FlagConflict, &cmder.conflict)

	return cmd
}

func (c *extendCommander) run(cmd *cobra.Command, ref string) error {
	variables, err := vars.ParseAssignments(c.vars)
	if err != nil {
		return err
	}

	s, err := session.Open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	policy, err := s.Policy(cmd)
	if err != nil {
		return err
	}

	res, err := s.Service.Extend(cmd.Context(), ".", scaffold.ApplyOptions{
		Ref:        ref,
		Variables:  variables,
		RootFolder: c.rootFolder,
		Policy:     policy,
	})
	if err != nil {
		return fmt.Errorf("extending project: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	cliui.RenderResult(out, res)
	if s.DryRun {
		fmt.Fprintln(out)
		cliui.RenderOperations(out, s.Operations())
	}
	fmt.Fprintln(out)
	return nil
}
