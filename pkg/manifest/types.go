// Package manifest persists the per-project record of applied templates,
// their history and their conflicts at <projectRoot>/.scaffold/manifest.json.
package manifest

import (
	"errors"
	"fmt"
	"time"
)

// Version is the manifest format version written by this package.
const Version = "1.0.0"

// Status of an applied template. Status only moves active → removed.
type Status string

const (
	StatusActive  Status = "active"
	StatusRemoved Status = "removed"
)

// Action names a history entry.
type Action string

const (
	ActionCreate Action = "create"
	ActionExtend Action = "extend"
	ActionSync   Action = "sync"
	ActionCheck  Action = "check"
	ActionClean  Action = "clean"
)

// ChangeType is the kind of a recorded file-system change.
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeDelete ChangeType = "delete"
	ChangeModify ChangeType = "modify"
	ChangeRename ChangeType = "rename"
)

// Resolution is how a conflict was settled.
type Resolution string

const (
	ResolutionKeptLocal    Resolution = "kept_local"
	ResolutionUsedTemplate Resolution = "used_template"
	ResolutionMerged       Resolution = "merged"
	ResolutionSkipped      Resolution = "skipped"
)

// Manifest is the persisted project document.
type Manifest struct {
	Version     string            `json:"version"`
	ProjectName string            `json:"projectName"`
	Created     time.Time         `json:"created"`
	Updated     time.Time         `json:"updated"`
	Templates   []AppliedTemplate `json:"templates"`
	Variables   map[string]any    `json:"variables"`
	History     []HistoryEntry    `json:"history"`
}

// AppliedTemplate records one application of a template to the project.
type AppliedTemplate struct {
	TemplateHash string           `json:"templateHash"`
	Name         string           `json:"name"`
	Version      string           `json:"version"`
	RootFolder   string           `json:"rootFolder"`
	AppliedAt    time.Time        `json:"appliedAt"`
	AppliedBy    string           `json:"appliedBy,omitempty"`
	Status       Status           `json:"status"`
	Conflicts    []ConflictRecord `json:"conflicts"`

	// Builtins are the built-in variable values the files were rendered
	// with. Validation renders with the same values.
	Builtins *Builtins `json:"builtins,omitempty"`

	// Files maps each generated file path (relative to the project root) to
	// the SHA-256 of the content written for it.
	Files map[string]string `json:"files,omitempty"`
}

// Builtins pins the uuid and clock of one application.
type Builtins struct {
	UUID string    `json:"uuid"`
	Time time.Time `json:"time"`
}

// HistoryEntry is one append-only record of a command run against the
// project.
type HistoryEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    Action         `json:"action"`
	Templates []string       `json:"templates"`
	Changes   []ChangeRecord `json:"changes"`
}

// ChangeRecord is one file-system change made by a command.
type ChangeRecord struct {
	Type         ChangeType `json:"type"`
	Path         string     `json:"path"`
	To           string     `json:"to,omitempty"`
	RuleID       string     `json:"ruleId,omitempty"`
	TemplateHash string     `json:"templateHash,omitempty"`
}

// ConflictRecord captures a divergence between template and local content.
// Versions are SHA-256 checksums of the respective content.
type ConflictRecord struct {
	Path            string     `json:"path"`
	TemplateVersion string     `json:"templateVersion"`
	LocalVersion    string     `json:"localVersion"`
	Resolution      Resolution `json:"resolution"`
	ResolvedAt      time.Time  `json:"resolvedAt"`
}

// ErrNotFound is returned when no manifest exists where one is required.
var ErrNotFound = errors.New("manifest not found")

// InvalidError reports a structurally invalid manifest.
type InvalidError struct {
	Field  string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid manifest: %s %s", e.Field, e.Reason)
}

// Validate checks the required fields and the single-active-entry invariant.
func (m *Manifest) Validate() error {
	if m.Version == "" {
		return &InvalidError{Field: "version", Reason: "is required"}
	}
	if m.ProjectName == "" {
		return &InvalidError{Field: "projectName", Reason: "is required"}
	}

	active := map[[2]string]struct{}{}
	for _, t := range m.Templates {
		if t.TemplateHash == "" {
			return &InvalidError{Field: "templates", Reason: "entry without templateHash"}
		}
		switch t.Status {
		case StatusActive:
			key := [2]string{t.TemplateHash, t.RootFolder}
			if _, dup := active[key]; dup {
				return &InvalidError{
					Field:  "templates",
					Reason: fmt.Sprintf("more than one active entry for %s at %q", t.TemplateHash, t.RootFolder),
				}
			}
			active[key] = struct{}{}
		case StatusRemoved:
		default:
			return &InvalidError{Field: "templates", Reason: fmt.Sprintf("unknown status %q", t.Status)}
		}
	}
	return nil
}

// Active returns the active applied templates in application order.
func (m *Manifest) Active() []AppliedTemplate {
	var out []AppliedTemplate
	for _, t := range m.Templates {
		if t.Status == StatusActive {
			out = append(out, t)
		}
	}
	return out
}

// FindActive returns the active entry for (hash, rootFolder). The empty
// rootFolder is the project root and only matches entries applied there.
func (m *Manifest) FindActive(hash, rootFolder string) *AppliedTemplate {
	for i := range m.Templates {
		t := &m.Templates[i]
		if t.Status == StatusActive && t.TemplateHash == hash && t.RootFolder == rootFolder {
			return t
		}
	}
	return nil
}

// Apply records an application. An active entry for the same (hash,
// rootFolder) is refreshed in place; otherwise a new entry is appended.
func (m *Manifest) Apply(at AppliedTemplate) {
	at.Status = StatusActive
	if at.Conflicts == nil {
		at.Conflicts = []ConflictRecord{}
	}

	if existing := m.FindActive(at.TemplateHash, at.RootFolder); existing != nil {
		existing.Name = at.Name
		existing.Version = at.Version
		existing.AppliedAt = at.AppliedAt
		if at.AppliedBy != "" {
			existing.AppliedBy = at.AppliedBy
		}
		if at.Builtins != nil {
			existing.Builtins = at.Builtins
		}
		if existing.Files == nil {
			existing.Files = map[string]string{}
		}
		for path, sum := range at.Files {
			existing.Files[path] = sum
		}
		return
	}

	m.Templates = append(m.Templates, at)
}

// Remove marks the active entry for (hash, rootFolder) removed and returns a
// copy of it.
func (m *Manifest) Remove(hash, rootFolder string) (AppliedTemplate, bool) {
	t := m.FindActive(hash, rootFolder)
	if t == nil {
		return AppliedTemplate{}, false
	}
	t.Status = StatusRemoved
	return *t, true
}

// AddConflict appends a conflict to the active entry for (hash,
// rootFolder). It reports false when no such entry exists.
func (m *Manifest) AddConflict(hash, rootFolder string, c ConflictRecord) bool {
	t := m.FindActive(hash, rootFolder)
	if t == nil {
		return false
	}
	t.Conflicts = append(t.Conflicts, c)
	return true
}

// SetFileChecksum updates the recorded checksum of a generated file on the
// active entry for (hash, rootFolder).
func (m *Manifest) SetFileChecksum(hash, rootFolder, path, sum string) {
	t := m.FindActive(hash, rootFolder)
	if t == nil {
		return
	}
	if t.Files == nil {
		t.Files = map[string]string{}
	}
	if sum == "" {
		delete(t.Files, path)
		return
	}
	t.Files[path] = sum
}

// AddHistory appends an entry.
func (m *Manifest) AddHistory(e HistoryEntry) {
	if e.Templates == nil {
		e.Templates = []string{}
	}
	if e.Changes == nil {
		e.Changes = []ChangeRecord{}
	}
	m.History = append(m.History, e)
}
