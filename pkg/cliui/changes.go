package cliui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/scaffold/pkg/fsprovider"
	"github.com/papercomputeco/scaffold/pkg/manifest"
	"github.com/papercomputeco/scaffold/pkg/scaffold"
	"github.com/papercomputeco/scaffold/pkg/template"
)

var changeStyles = map[manifest.ChangeType]lipgloss.Style{
	manifest.ChangeCreate: diffAdd,
	manifest.ChangeDelete: diffDel,
	manifest.ChangeModify: diffHunk,
	manifest.ChangeRename: diffHunk,
}

// RenderChanges writes one line per recorded file-system change.
func RenderChanges(w io.Writer, changes []manifest.ChangeRecord) {
	for _, c := range changes {
		style, ok := changeStyles[c.Type]
		if !ok {
			style = ruleStyle
		}
		line := fmt.Sprintf("  %s %s", style.Render(fmt.Sprintf("%-6s", c.Type)), c.Path)
		if c.To != "" {
			line += " -> " + c.To
		}
		fmt.Fprintln(w, line)
	}
}

// RenderConflicts writes one line per conflict and how it was resolved.
func RenderConflicts(w io.Writer, conflicts []manifest.ConflictRecord) {
	for _, c := range conflicts {
		fmt.Fprintf(w, "  %s %s %s\n", WarnMark, c.Path, DimStyle.Render("("+string(c.Resolution)+")"))
	}
}

// RenderOperations writes the writes a dry run would have performed.
func RenderOperations(w io.Writer, ops []fsprovider.Operation) {
	if len(ops) == 0 {
		fmt.Fprintf(w, "  %s\n", DimStyle.Render("Dry run: nothing would be written."))
		return
	}

	fmt.Fprintf(w, "%s\n", HeaderStyle.Render("Dry run: would perform"))
	for _, op := range ops {
		switch op.Kind {
		case fsprovider.OpRename:
			fmt.Fprintf(w, "  %-6s %s -> %s\n", op.Kind, op.Path, op.To)
		case fsprovider.OpWrite:
			fmt.Fprintf(w, "  %-6s %s %s\n", op.Kind, op.Path, DimStyle.Render(fmt.Sprintf("(%d bytes)", op.Bytes)))
		default:
			fmt.Fprintf(w, "  %-6s %s\n", op.Kind, op.Path)
		}
	}
}

// RenderResult summarises a create or extend.
func RenderResult(w io.Writer, res *scaffold.Result) {
	for _, at := range res.Applied {
		root := at.RootFolder
		if root == "" {
			root = "."
		}
		fmt.Fprintf(w, "  %s Applied %s %s %s\n",
			SuccessMark,
			NameStyle.Render(at.Name),
			HashStyle.Render(template.ShortHash(at.TemplateHash)),
			DimStyle.Render("-> "+root),
		)
	}
	if len(res.Changes) > 0 {
		fmt.Fprintln(w)
		RenderChanges(w, res.Changes)
	}
	if len(res.Conflicts) > 0 {
		fmt.Fprintf(w, "\n%s\n", HeaderStyle.Render("Conflicts"))
		RenderConflicts(w, res.Conflicts)
	}
}
