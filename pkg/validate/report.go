package validate

import (
	"time"

	"github.com/papercomputeco/scaffold/pkg/manifest"
	"github.com/papercomputeco/scaffold/pkg/template"
)

// Untracked-path pseudo rule ids.
const (
	RuleExtraFiles   = "allow_extra_files"
	RuleExtraFolders = "allow_extra_folders"
)

// Issue is one rule violation.
type Issue struct {
	TemplateHash string            `json:"templateHash"`
	RuleID       string            `json:"ruleId"`
	Type         template.RuleType `json:"type,omitempty"`
	Severity     template.Severity `json:"severity"`
	Path         string            `json:"path,omitempty"`
	Message      string            `json:"message"`
	Fix          *template.Fix     `json:"fix,omitempty"`
	Diff         string            `json:"diff,omitempty"`
	State        State             `json:"state"`

	// Err is the fix failure, if a repair was attempted and failed.
	Err error `json:"-"`
}

// Suggestion is a remediation that needs a human: prompt fixes, fixes that
// are not marked autoFix, and fixes skipped because repair was not requested.
type Suggestion struct {
	RuleID  string `json:"ruleId"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// Stats aggregates a run.
type Stats struct {
	FilesChecked   int           `json:"filesChecked"`
	RulesEvaluated int           `json:"rulesEvaluated"`
	RulesSkipped   int           `json:"rulesSkipped"`
	ErrorCount     int           `json:"errorCount"`
	WarningCount   int           `json:"warningCount"`
	FixesApplied   int           `json:"fixesApplied"`
	FixesFailed    int           `json:"fixesFailed"`
	Duration       time.Duration `json:"duration"`
}

// RuleResult is the final state of one rule.
type RuleResult struct {
	TemplateHash string `json:"templateHash"`
	RuleID       string `json:"ruleId"`
	State        State  `json:"state"`
}

// Report is the transient result of a validation run. It is never persisted.
type Report struct {
	Errors      []Issue      `json:"errors"`
	Warnings    []Issue      `json:"warnings"`
	Fixed       []Issue      `json:"fixed,omitempty"`
	Suggestions []Suggestion `json:"suggestions"`
	Results     []RuleResult `json:"results"`
	Stats       Stats        `json:"stats"`
}

// HasErrors reports whether any error-severity issue remains.
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// StateOf returns the final state of a rule, or "" if it was not run.
func (r *Report) StateOf(hash, ruleID string) State {
	for _, res := range r.Results {
		if res.TemplateHash == hash && res.RuleID == ruleID {
			return res.State
		}
	}
	return ""
}

func (r *Report) add(issue Issue) {
	switch {
	case issue.State == StateFixApplied:
		r.Fixed = append(r.Fixed, issue)
	case issue.Severity == template.SeverityWarning:
		r.Warnings = append(r.Warnings, issue)
		r.Stats.WarningCount++
	default:
		r.Errors = append(r.Errors, issue)
		r.Stats.ErrorCount++
	}
}

// AppliedConflict is a conflict decision to attach to an applied template.
type AppliedConflict struct {
	TemplateHash string
	RootFolder   string
	Record       manifest.ConflictRecord
}

// ChecksumUpdate records the new template-written checksum of a file. An
// empty Sum means the file is no longer tracked.
type ChecksumUpdate struct {
	TemplateHash string
	RootFolder   string
	Path         string
	Sum          string
}

// Outcome is everything a run wants persisted. Nothing is written to the
// manifest by the engine; the caller commits an Outcome in one update.
type Outcome struct {
	Report    *Report
	Templates []string
	Changes   []manifest.ChangeRecord
	Conflicts []AppliedConflict
	Checksums []ChecksumUpdate
}

// Commit folds the outcome's conflicts and checksum updates into m.
func (o *Outcome) Commit(m *manifest.Manifest) {
	for _, c := range o.Conflicts {
		m.AddConflict(c.TemplateHash, c.RootFolder, c.Record)
	}
	for _, u := range o.Checksums {
		m.SetFileChecksum(u.TemplateHash, u.RootFolder, u.Path, u.Sum)
	}
}
