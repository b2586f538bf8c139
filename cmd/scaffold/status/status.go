// Package statuscmder provides the status command for summarising the
// nearest project manifest.
package statuscmder

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scaffold/cmd/scaffold/session"
	"github.com/papercomputeco/scaffold/pkg/cliui"
)

const statusLongDesc string = `Show the nearest scaffold project.

Finds .scaffold/manifest.json at or above the current directory and lists
the project variables, the templates applied to it and the most recent
history entries.

Examples:
  scaffold status
  scaffold status --history 20`

const statusShortDesc string = "Show the current project manifest"

type statusCommander struct {
	history int
}

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().IntVar(&cmder.history, "history", 5, "Number of history entries to show (0 for all)")

	return cmd
}

func (c *statusCommander) run(cmd *cobra.Command) error {
	s, err := session.Open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	m, loc, err := s.Service.Status(".")
	if err != nil {
		return fmt.Errorf("loading project: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n  %s  %s\n", cliui.KeyStyle.Render("Project: "), cliui.NameStyle.Render(m.ProjectName))
	fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render("Root:    "), cliui.ValueStyle.Render(loc.ProjectPath))
	fmt.Fprintf(out, "  %s  %s\n", cliui.KeyStyle.Render("Updated: "), cliui.DimStyle.Render(m.Updated.Local().Format("2006-01-02 15:04:05")))
	fmt.Fprintf(out, "  %s  %s\n\n", cliui.KeyStyle.Render("Active:  "), cliui.ValueStyle.Render(strconv.Itoa(len(m.Active()))))

	if len(m.Variables) > 0 {
		keys := make([]string, 0, len(m.Variables))
		for k := range m.Variables {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintf(out, "%s\n", cliui.HeaderStyle.Render("Variables"))
		for _, k := range keys {
			fmt.Fprintf(out, "  %s = %s\n", cliui.KeyStyle.Render(k), cliui.ValueStyle.Render(fmt.Sprint(m.Variables[k])))
		}
		fmt.Fprintln(out)
	}

	if len(m.Templates) == 0 {
		fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("No templates applied. Use \"scaffold extend <template>\"."))
	} else {
		cliui.AppliedTable(out, m)
		fmt.Fprintln(out)
	}

	if len(m.History) > 0 {
		cliui.HistoryTable(out, m.History, c.history)
		fmt.Fprintln(out)
	}
	return nil
}
