// Package synccmder provides the sync command for repairing a project from
// the templates applied to it.
package synccmder

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scaffold/cmd/scaffold/session"
	"github.com/papercomputeco/scaffold/pkg/cliui"
	"github.com/papercomputeco/scaffold/pkg/config"
	"github.com/papercomputeco/scaffold/pkg/manifest"
	"github.com/papercomputeco/scaffold/pkg/scaffold"
)

const syncLongDesc string = `Repair the nearest scaffold project.

Validates the project like "scaffold check" and applies every automatic
fix: missing files and folders are created, divergent content is rewritten,
forbidden files are removed. Fixes run in dependency order.

Overwriting a file edited since scaffold last wrote it is a conflict,
resolved with --conflict (skip, replace, prompt or merge), the template's
own policy, or validation.conflict_resolution from config. --force is
--conflict replace.

Examples:
  scaffold sync
  scaffold sync --conflict prompt
  scaffold sync --dry-run`

const syncShortDesc string = "Repair the current project"

// ErrSyncIncomplete is returned when errors remain after repair.
var ErrSyncIncomplete = errors.New("errors remain after repair")

type syncCommander struct {
	diff      bool
	conflict  string
	templates []string
}

func NewSyncCmd() *cobra.Command {
	cmder := &syncCommander{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: syncShortDesc,
		Long:  syncLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.diff, "diff", false, "Show content diffs for divergent files")
	cmd.Flags().StringArrayVarP(&cmder.templates, "template", "t", nil, "Only repair this applied template (repeatable)")
	config.AddStringFlag(cmd, config.Flags, config.FlagConflict, &cmder.conflict)

	return cmd
}

func (c *syncCommander) run(cmd *cobra.Command) error {
	s, err := session.Open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	policy, err := s.Policy(cmd)
	if err != nil {
		return err
	}

	outcome, err := s.Service.Sync(cmd.Context(), ".", scaffold.CheckOptions{
		Templates: c.templates,
		Policy:    policy,
	})
	if err != nil {
		return fmt.Errorf("syncing project: %w", err)
	}

	out := cmd.OutOrStdout()
	cliui.RenderReport(out, outcome.Report, cliui.ReportOptions{
		Diffs:   c.diff,
		Verbose: s.Verbose,
	})

	if len(outcome.Changes) > 0 {
		fmt.Fprintf(out, "\n%s\n", cliui.HeaderStyle.Render("Changes"))
		cliui.RenderChanges(out, outcome.Changes)
	}
	if len(outcome.Conflicts) > 0 {
		records := make([]manifest.ConflictRecord, 0, len(outcome.Conflicts))
		for _, c := range outcome.Conflicts {
			records = append(records, c.Record)
		}
		fmt.Fprintf(out, "\n%s\n", cliui.HeaderStyle.Render("Conflicts"))
		cliui.RenderConflicts(out, records)
	}
	if s.DryRun {
		fmt.Fprintln(out)
		cliui.RenderOperations(out, s.Operations())
	}

	if outcome.Report.HasErrors() {
		return fmt.Errorf("%w: %d errors", ErrSyncIncomplete, outcome.Report.Stats.ErrorCount)
	}
	return nil
}
