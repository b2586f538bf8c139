package cliui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/scaffold/pkg/template"
	"github.com/papercomputeco/scaffold/pkg/validate"
)

var (
	diffAdd    = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	diffDel    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	diffHunk   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	ruleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	emphasized = lipgloss.NewStyle().Bold(true)
)

// ReportOptions controls RenderReport.
type ReportOptions struct {
	// Diffs includes content diffs under divergent file issues.
	Diffs bool

	// Verbose lists the final state of every rule.
	Verbose bool
}

// RenderReport writes a human readable validation report.
func RenderReport(w io.Writer, r *validate.Report, opts ReportOptions) {
	section := func(title string, mark string, issues []validate.Issue) {
		if len(issues) == 0 {
			return
		}
		fmt.Fprintf(w, "%s\n", HeaderStyle.Render(title))
		for _, issue := range issues {
			fmt.Fprintf(w, "  %s %s %s\n", mark, issue.Message, ruleStyle.Render("["+issue.RuleID+"]"))
			if opts.Diffs && issue.Diff != "" {
				fmt.Fprint(w, indent(ColorDiff(issue.Diff), "    "))
			}
		}
		fmt.Fprintln(w)
	}

	section("Errors", FailMark, r.Errors)
	section("Warnings", WarnMark, r.Warnings)
	section("Fixed", SuccessMark, r.Fixed)

	if len(r.Suggestions) > 0 {
		fmt.Fprintf(w, "%s\n", HeaderStyle.Render("Suggestions"))
		for _, s := range r.Suggestions {
			fmt.Fprintf(w, "  - %s\n", s.Message)
		}
		fmt.Fprintln(w)
	}

	if opts.Verbose && len(r.Results) > 0 {
		fmt.Fprintf(w, "%s\n", HeaderStyle.Render("Rules"))
		for _, res := range r.Results {
			mark := DimStyle.Render("-")
			switch res.State {
			case validate.StatePassed, validate.StateFixApplied:
				mark = SuccessMark
			case validate.StateFailed, validate.StateFixFailed:
				mark = FailMark
			}
			fmt.Fprintf(w, "  %s %s %s %s\n", mark, res.RuleID,
				ruleStyle.Render(template.ShortHash(res.TemplateHash)),
				DimStyle.Render(strings.ToLower(string(res.State))))
		}
		fmt.Fprintln(w)
	}

	st := r.Stats
	summary := fmt.Sprintf("%d rules evaluated, %d skipped, %d files checked, %d errors, %d warnings",
		st.RulesEvaluated, st.RulesSkipped, st.FilesChecked, st.ErrorCount, st.WarningCount)
	if st.FixesApplied > 0 || st.FixesFailed > 0 {
		summary += fmt.Sprintf(", %d fixed, %d fixes failed", st.FixesApplied, st.FixesFailed)
	}

	mark := SuccessMark
	if r.HasErrors() {
		mark = FailMark
	}
	fmt.Fprintf(w, "%s %s %s\n", mark, emphasized.Render(summary), StepStyle.Render("("+FormatDuration(st.Duration)+")"))
}

// ColorDiff colours a unified diff line by line.
func ColorDiff(diff string) string {
	var sb strings.Builder
	for _, line := range strings.SplitAfter(diff, "\n") {
		if line == "" {
			continue
		}
		text := strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(text, "+++"), strings.HasPrefix(text, "---"):
			sb.WriteString(emphasized.Render(text))
		case strings.HasPrefix(text, "@@"):
			sb.WriteString(diffHunk.Render(text))
		case strings.HasPrefix(text, "+"):
			sb.WriteString(diffAdd.Render(text))
		case strings.HasPrefix(text, "-"):
			sb.WriteString(diffDel.Render(text))
		default:
			sb.WriteString(text)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// SeverityLabel renders a severity for tables.
func SeverityLabel(s template.Severity) string {
	if s == template.SeverityWarning {
		return WarnMark + " warning"
	}
	return FailMark + " error"
}

func indent(s, prefix string) string {
	lines := strings.SplitAfter(s, "\n")
	var sb strings.Builder
	for _, l := range lines {
		if l == "" {
			continue
		}
		sb.WriteString(prefix)
		sb.WriteString(l)
	}
	return sb.String()
}
