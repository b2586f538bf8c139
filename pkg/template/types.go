// Package template defines scaffold's content-addressed template model: the
// folder/file skeleton, its variables, its structural rules and the canonical
// hash that identifies it.
package template

import (
	"encoding/json"
	"fmt"
	"time"
)

// Template is a reusable project skeleton. It is identified by the hash of its
// structural content (see Hash), never by a mutable id.
type Template struct {
	Name         string     `json:"name" yaml:"name"`
	Version      string     `json:"version" yaml:"version"`
	Description  string     `json:"description,omitempty" yaml:"description,omitempty"`
	RootFolder   string     `json:"rootFolder,omitempty" yaml:"rootFolder,omitempty"`
	Folders      []Folder   `json:"folders,omitempty" yaml:"folders,omitempty"`
	Files        []File     `json:"files,omitempty" yaml:"files,omitempty"`
	Variables    []Variable `json:"variables,omitempty" yaml:"variables,omitempty"`
	Rules        RuleSet    `json:"rules" yaml:"rules"`
	Dependencies []string   `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`

	// CreatedAt and UpdatedAt are volatile: they are stored but excluded from
	// the hash.
	CreatedAt *time.Time `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// Folder is a directory the template creates, relative to RootFolder.
type Folder struct {
	Path        string `json:"path" yaml:"path"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Gitkeep     bool   `json:"gitkeep,omitempty" yaml:"gitkeep,omitempty"`
}

// File is a file the template creates, relative to RootFolder. Path and
// Content may both contain placeholders.
type File struct {
	Path        string `json:"path" yaml:"path"`
	Content     string `json:"content,omitempty" yaml:"content,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Executable  bool   `json:"executable,omitempty" yaml:"executable,omitempty"`

	// Source names a file under the template's files/ directory. It is only
	// meaningful while loading an authoring directory; Load inlines the
	// referenced bytes into Content and clears Source.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// Variable types.
const (
	VarString  = "string"
	VarNumber  = "number"
	VarBoolean = "boolean"
)

// Variable declares an input the template expects.
type Variable struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Type        string   `json:"type,omitempty" yaml:"type,omitempty"`
	Required    bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Default     any      `json:"default,omitempty" yaml:"default,omitempty"`
	Pattern     string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Enum        []string `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// RuleSet holds the structural rules of a template and the policy switches
// that apply to its whole tree.
type RuleSet struct {
	StrictMode         bool     `json:"strictMode,omitempty" yaml:"strictMode,omitempty"`
	AllowExtraFiles    bool     `json:"allowExtraFiles" yaml:"allowExtraFiles"`
	AllowExtraFolders  bool     `json:"allowExtraFolders" yaml:"allowExtraFolders"`
	ConflictResolution string   `json:"conflictResolution,omitempty" yaml:"conflictResolution,omitempty"`
	ExcludePatterns    []string `json:"excludePatterns,omitempty" yaml:"excludePatterns,omitempty"`
	Rules              []Rule   `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// RuleType enumerates the rule kinds the validation engine understands.
type RuleType string

const (
	RuleRequiredFile    RuleType = "required_file"
	RuleRequiredFolder  RuleType = "required_folder"
	RuleForbiddenFile   RuleType = "forbidden_file"
	RuleForbiddenFolder RuleType = "forbidden_folder"
	RuleFileContent     RuleType = "file_content"
	RuleFilePattern     RuleType = "file_pattern"
	RuleCustom          RuleType = "custom"
)

// When enumerates rule condition modes.
type When string

const (
	WhenAlways      When = "always"
	WhenIfExists    When = "if_exists"
	WhenIfNotExists When = "if_not_exists"
	WhenIfMatches   When = "if_matches"
)

// FixAction enumerates remediation actions.
type FixAction string

const (
	FixCreate FixAction = "create"
	FixDelete FixAction = "delete"
	FixModify FixAction = "modify"
	FixRename FixAction = "rename"
	FixPrompt FixAction = "prompt"
)

// Severity of a failed rule.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Rule is a declarative constraint checked against a live project tree.
type Rule struct {
	ID          string     `json:"id,omitempty" yaml:"id,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Type        RuleType   `json:"type" yaml:"type"`
	Target      string     `json:"target" yaml:"target"`
	Pattern     string     `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Check       string     `json:"check,omitempty" yaml:"check,omitempty"`
	Message     string     `json:"message,omitempty" yaml:"message,omitempty"`
	Condition   *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
	Fix         *Fix       `json:"fix,omitempty" yaml:"fix,omitempty"`
	Severity    Severity   `json:"severity,omitempty" yaml:"severity,omitempty"`
}

// Condition gates whether a rule is evaluated at all.
type Condition struct {
	When      When     `json:"when,omitempty" yaml:"when,omitempty"`
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	DependsOn []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
}

// Fix is the declared remediation of a rule.
type Fix struct {
	Action  FixAction `json:"action" yaml:"action"`
	AutoFix bool      `json:"autoFix,omitempty" yaml:"autoFix,omitempty"`
	Content string    `json:"content,omitempty" yaml:"content,omitempty"`
	To      string    `json:"to,omitempty" yaml:"to,omitempty"`
	Prompt  string    `json:"prompt,omitempty" yaml:"prompt,omitempty"`
}

// RuleID returns the rule's id, or "<type>:<target>" when none is declared.
func (r Rule) RuleID() string {
	if r.ID != "" {
		return r.ID
	}
	return string(r.Type) + ":" + r.Target
}

// EffectiveSeverity defaults an empty severity to error.
func (r Rule) EffectiveSeverity() Severity {
	if r.Severity == "" {
		return SeverityError
	}
	return r.Severity
}

// EffectiveWhen defaults an absent condition to always.
func (r Rule) EffectiveWhen() When {
	if r.Condition == nil || r.Condition.When == "" {
		return WhenAlways
	}
	return r.Condition.When
}

// DependsOn returns the ids this rule depends on.
func (r Rule) DependsOn() []string {
	if r.Condition == nil {
		return nil
	}
	return r.Condition.DependsOn
}

// FileByPath returns the declared file with the given (unsubstituted) path.
func (t *Template) FileByPath(path string) (File, bool) {
	for _, f := range t.Files {
		if f.Path == path {
			return f, true
		}
	}
	return File{}, false
}

// Summary is the display form of a stored template.
type Summary struct {
	Hash        string   `json:"hash"`
	ShortHash   string   `json:"shortHash"`
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
}

// Clone returns a deep copy of t.
func (t *Template) Clone() (*Template, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("cloning template: %w", err)
	}

	out := &Template{}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("cloning template: %w", err)
	}
	return out, nil
}
