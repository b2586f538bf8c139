package cliui

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/papercomputeco/scaffold/pkg/manifest"
	"github.com/papercomputeco/scaffold/pkg/template"
	"github.com/papercomputeco/scaffold/pkg/utils"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// TemplatesTable lists stored templates.
func TemplatesTable(w io.Writer, summaries []template.Summary) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Hash", "Name", "Version", "Aliases", "Description"})
	for _, s := range summaries {
		t.AppendRow(table.Row{s.ShortHash, s.Name, s.Version, strings.Join(s.Aliases, ", "), utils.Truncate(s.Description, 48)})
	}
	t.Render()
}

// AppliedTable lists the templates recorded in a project manifest.
func AppliedTable(w io.Writer, m *manifest.Manifest) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Hash", "Name", "Version", "Root", "Status", "Files", "Conflicts", "Applied"})
	for _, at := range m.Templates {
		root := at.RootFolder
		if root == "" {
			root = "."
		}
		t.AppendRow(table.Row{
			template.ShortHash(at.TemplateHash),
			at.Name,
			at.Version,
			root,
			string(at.Status),
			len(at.Files),
			len(at.Conflicts),
			at.AppliedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	t.Render()
}

// HistoryTable lists the most recent history entries, newest last.
func HistoryTable(w io.Writer, history []manifest.HistoryEntry, limit int) {
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"When", "Action", "Templates", "Changes"})
	for _, e := range history {
		hashes := make([]string, 0, len(e.Templates))
		for _, h := range e.Templates {
			hashes = append(hashes, template.ShortHash(h))
		}
		t.AppendRow(table.Row{
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			string(e.Action),
			strings.Join(hashes, ", "),
			len(e.Changes),
		})
	}
	t.Render()
}

// Setting is one row of SettingsTable.
type Setting struct {
	Key     string
	Value   string
	Default bool
}

// SettingsTable lists configuration keys with their effective values and
// whether they come from config.toml or the built-in defaults.
func SettingsTable(w io.Writer, settings []Setting) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Key", "Value", "Source"})
	for _, s := range settings {
		value, source := s.Value, "config.toml"
		if value == "" {
			value = "<not set>"
		}
		if s.Default {
			source = "default"
		}
		t.AppendRow(table.Row{s.Key, value, source})
	}
	t.Render()
}
