// Package checkcmder provides the check command for validating a project
// against the templates applied to it.
package checkcmder

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scaffold/cmd/scaffold/session"
	"github.com/papercomputeco/scaffold/pkg/cliui"
	"github.com/papercomputeco/scaffold/pkg/scaffold"
	"github.com/papercomputeco/scaffold/pkg/validate"
)

const checkLongDesc string = `Validate the nearest scaffold project.

Evaluates the rules of every active template (or only those given with
--template) against the project and reports errors, warnings and
suggested fixes. Nothing is repaired; run "scaffold sync" for that.

Exits non-zero when any error-severity issue is found. Warnings alone do
not fail the check.

With --watch the check re-runs whenever files in the project change, until
interrupted.

Examples:
  scaffold check
  scaffold check --diff
  scaffold check --template go-service --verbose
  scaffold check --watch`

const checkShortDesc string = "Validate the current project"

const watchDebounce = 300 * time.Millisecond

// ErrCheckFailed is returned when the report holds errors.
var ErrCheckFailed = errors.New("validation failed")

type checkCommander struct {
	diff      bool
	watch     bool
	templates []string
}

func NewCheckCmd() *cobra.Command {
	cmder := &checkCommander{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: checkShortDesc,
		Long:  checkLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.diff, "diff", false, "Show content diffs for divergent files")
	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Re-run when project files change")
	cmd.Flags().StringArrayVarP(&cmder.templates, "template", "t", nil, "Only check this applied template (repeatable)")

	return cmd
}

func (c *checkCommander) run(cmd *cobra.Command) error {
	s, err := session.Open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if !c.watch {
		return c.checkOnce(cmd, s)
	}

	_, loc, err := s.Service.Status(".")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := c.checkOnce(cmd, s); err != nil && !errors.Is(err, ErrCheckFailed) {
		return err
	}
	fmt.Fprintf(out, "\n  %s\n", cliui.DimStyle.Render("Watching "+loc.ProjectPath+" for changes (ctrl-c to stop)"))

	err = watch(cmd.Context(), loc.ProjectPath, watchDebounce, s.Logger, func() error {
		fmt.Fprintln(out)
		if err := c.checkOnce(cmd, s); err != nil && !errors.Is(err, ErrCheckFailed) {
			return err
		}
		return nil
	})
	if err != nil && cmd.Context().Err() != nil {
		return nil
	}
	return err
}

func (c *checkCommander) checkOnce(cmd *cobra.Command, s *session.Session) error {
	report, err := s.Service.Check(cmd.Context(), ".", scaffold.CheckOptions{Templates: c.templates})
	if err != nil {
		return fmt.Errorf("checking project: %w", err)
	}

	render(cmd, s, report, c.diff)
	if report.HasErrors() {
		return fmt.Errorf("%w: %d errors", ErrCheckFailed, report.Stats.ErrorCount)
	}
	return nil
}

func render(cmd *cobra.Command, s *session.Session, report *validate.Report, diffs bool) {
	cliui.RenderReport(cmd.OutOrStdout(), report, cliui.ReportOptions{
		Diffs:   diffs,
		Verbose: s.Verbose,
	})
}
