package validate

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// diffContext is the number of unchanged lines kept around each change.
const diffContext = 3

// UnifiedDiff renders a line-oriented diff from local to expected content.
// It returns "" when the two are equal.
func UnifiedDiff(path, local, expected string) string {
	if local == expected {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(local, expected)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	type line struct {
		op   diffmatchpatch.Operation
		text string
	}

	var all []line
	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		for _, l := range strings.Split(text, "\n") {
			all = append(all, line{op: d.Type, text: l})
		}
	}

	keep := make([]bool, len(all))
	for i, l := range all {
		if l.op == diffmatchpatch.DiffEqual {
			continue
		}
		for j := max(0, i-diffContext); j <= min(len(all)-1, i+diffContext); j++ {
			keep[j] = true
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s (local)\n+++ %s (template)\n", path, path)

	gap := false
	for i, l := range all {
		if !keep[i] {
			gap = true
			continue
		}
		if gap {
			sb.WriteString("@@\n")
			gap = false
		}
		switch l.op {
		case diffmatchpatch.DiffDelete:
			sb.WriteString("-")
		case diffmatchpatch.DiffInsert:
			sb.WriteString("+")
		default:
			sb.WriteString(" ")
		}
		sb.WriteString(l.text)
		sb.WriteString("\n")
	}

	return sb.String()
}
