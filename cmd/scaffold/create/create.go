// Package createcmder provides the create command for generating a new
// project from a stored template.
package createcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scaffold/cmd/scaffold/session"
	"github.com/papercomputeco/scaffold/pkg/cliui"
	"github.com/papercomputeco/scaffold/pkg/config"
	"github.com/papercomputeco/scaffold/pkg/scaffold"
	"github.com/papercomputeco/scaffold/pkg/vars"
)

const createLongDesc string = `Create a new project from a template.

The template is referenced by alias, full hash or a unique short hash. Its
dependencies are applied first. The project directory defaults to the
current directory and is created if missing; it must not already hold a
scaffold project.

Variables are given with --var and may use dotted paths for nested values.
Required variables without a default must be provided.

Examples:
  scaffold create go-service ./payments --var name=payments
  scaffold create 3f2a9c1d --var name=api --var owner.team=platform
  scaffold create go-service --dry-run --var name=demo`

const createShortDesc string = "Create a new project from a template"

type createCommander struct {
	name       string
	rootFolder string
	conflict   string
	vars       []string
}

func NewCreateCmd() *cobra.Command {
	cmder := &createCommander{}

	cmd := &cobra.Command{
		Use:   "create <template> [dir]",
		Short: createShortDesc,
		Long:  createLongDesc,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 2 {
				dir = args[1]
			}
			return cmder.run(cmd, args[0], dir)
		},
	}

	cmd.Flags().StringVar(&cmder.name, "name", "", "Project name (default: directory name)")
	cmd.Flags().StringVar(&cmder.rootFolder, "root", "", "Override the template root folder")
	cmd.Flags().StringArrayVar(&cmder.vars, "var", nil, "Template variable as key=value (repeatable)")
	config.AddStringFlag(cmd, config.Flags, config.FlagConflict, &cmder.conflict)

	return cmd
}

func (c *createCommander) run(cmd *cobra.Command, ref, dir string) error {
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

	res, err := s.Service.Create(cmd.Context(), scaffold.CreateOptions{
		ApplyOptions: scaffold.ApplyOptions{
			Ref:        ref,
			Variables:  variables,
			RootFolder: c.rootFolder,
			Policy:     policy,
		},
		Dir:         dir,
		ProjectName: c.name,
	})
	if err != nil {
		return fmt.Errorf("creating project: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n  %s %s\n\n", cliui.KeyStyle.Render("Project:"), cliui.ValueStyle.Render(res.Root))
	cliui.RenderResult(out, res)
	if s.DryRun {
		fmt.Fprintln(out)
		cliui.RenderOperations(out, s.Operations())
	}
	fmt.Fprintln(out)
	return nil
}
