// Package initcmder provides the init command for creating an empty project
// manifest in .scaffold/.
package initcmder

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scaffold/cmd/scaffold/session"
	"github.com/papercomputeco/scaffold/pkg/cliui"
	"github.com/papercomputeco/scaffold/pkg/manifest"
	"github.com/papercomputeco/scaffold/pkg/vars"
)

const initLongDesc string = `Initialize a scaffold project in a directory.

Creates .scaffold/manifest.json with no applied templates. Templates can then
be applied with "scaffold extend". Variables given with --var become project
variables available to every template applied later.

Examples:
  scaffold init
  scaffold init ./payments --name payments
  scaffold init --var owner=platform-team`

const initShortDesc string = "Initialize an empty scaffold project"

type initCommander struct {
	name string
	vars []string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return cmder.run(cmd, dir)
		},
	}

	cmd.Flags().StringVar(&cmder.name, "name", "", "Project name (default: directory name)")
	cmd.Flags().StringArrayVar(&cmder.vars, "var", nil, "Project variable as key=value (repeatable)")

	return cmd
}

func (c *initCommander) run(cmd *cobra.Command, dir string) error {
	variables, err := vars.ParseAssignments(c.vars)
	if err != nil {
		return err
	}

	s, err := session.Open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}

	name := c.name
	if name == "" {
		name = filepath.Base(abs)
	}

	if _, err := s.Service.Init(abs, name, variables); err != nil {
		return fmt.Errorf("initializing project: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "  %s Initialized %s %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(name),
		cliui.DimStyle.Render(manifest.Path(abs)),
	)
	return nil
}
