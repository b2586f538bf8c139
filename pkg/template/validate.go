package template

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

var (
	validRuleTypes = map[RuleType]struct{}{
		RuleRequiredFile: {}, RuleRequiredFolder: {}, RuleForbiddenFile: {},
		RuleForbiddenFolder: {}, RuleFileContent: {}, RuleFilePattern: {}, RuleCustom: {},
	}
	validWhen = map[When]struct{}{
		WhenAlways: {}, WhenIfExists: {}, WhenIfNotExists: {}, WhenIfMatches: {},
	}
	validActions = map[FixAction]struct{}{
		FixCreate: {}, FixDelete: {}, FixModify: {}, FixRename: {}, FixPrompt: {},
	}
	validVarTypes = map[string]struct{}{
		"": {}, VarString: {}, VarNumber: {}, VarBoolean: {},
	}
)

// Validate checks a template definition for structural problems. It reports
// every problem found, joined.
func Validate(t *Template) error {
	if t == nil {
		return errors.New("template is nil")
	}

	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(t.Name) == "" {
		add("name is required")
	}
	if strings.TrimSpace(t.Version) == "" {
		add("version is required")
	}
	if t.RootFolder != "" && !relativePath(t.RootFolder) {
		add("rootFolder %q must be a relative path inside the project", t.RootFolder)
	}

	for _, f := range t.Folders {
		if !relativePath(f.Path) {
			add("folder %q must be a relative path", f.Path)
		}
	}

	seenFiles := map[string]struct{}{}
	for _, f := range t.Files {
		if !relativePath(f.Path) {
			add("file %q must be a relative path", f.Path)
		}
		if _, dup := seenFiles[f.Path]; dup {
			add("file %q is declared more than once", f.Path)
		}
		seenFiles[f.Path] = struct{}{}
		if f.Source != "" {
			add("file %q: source %q was not inlined", f.Path, f.Source)
		}
	}

	seenVars := map[string]struct{}{}
	for _, v := range t.Variables {
		if v.Name == "" {
			add("variable name is required")
			continue
		}
		if _, dup := seenVars[v.Name]; dup {
			add("variable %q is declared more than once", v.Name)
		}
		seenVars[v.Name] = struct{}{}
		if _, ok := validVarTypes[v.Type]; !ok {
			add("variable %q: unknown type %q", v.Name, v.Type)
		}
		if v.Pattern != "" {
			if _, err := regexp.Compile(v.Pattern); err != nil {
				add("variable %q: invalid pattern: %v", v.Name, err)
			}
		}
	}

	if t.Rules.ConflictResolution != "" {
		switch t.Rules.ConflictResolution {
		case "skip", "replace", "prompt", "merge":
		default:
			add("rules.conflictResolution: unknown policy %q", t.Rules.ConflictResolution)
		}
	}

	seenRules := map[string]struct{}{}
	for _, r := range t.Rules.Rules {
		id := r.RuleID()
		if _, dup := seenRules[id]; dup {
			add("rule %q is declared more than once", id)
		}
		seenRules[id] = struct{}{}
		errs = append(errs, validateRule(r)...)
	}

	return errors.Join(errs...)
}

func validateRule(r Rule) []error {
	id := r.RuleID()
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("rule %q: "+format, append([]any{id}, args...)...))
	}

	if _, ok := validRuleTypes[r.Type]; !ok {
		add("unknown type %q", r.Type)
	}
	if r.Target == "" {
		add("target is required")
	}
	if r.Type == RuleCustom && r.Check == "" {
		add("custom rules must name a check")
	}
	if r.Type == RuleFilePattern && r.Pattern == "" {
		add("file_pattern rules require a pattern")
	}
	if r.Pattern != "" {
		if _, err := regexp.Compile(r.Pattern); err != nil {
			add("invalid pattern: %v", err)
		}
	}
	switch r.Severity {
	case "", SeverityError, SeverityWarning:
	default:
		add("unknown severity %q", r.Severity)
	}

	if c := r.Condition; c != nil {
		if _, ok := validWhen[c.When]; c.When != "" && !ok {
			add("unknown condition %q", c.When)
		}
		if c.When == WhenIfMatches {
			if c.Pattern == "" {
				add("if_matches requires a condition pattern")
			} else if _, err := regexp.Compile(c.Pattern); err != nil {
				add("invalid condition pattern: %v", err)
			}
		}
	}

	if f := r.Fix; f != nil {
		if _, ok := validActions[f.Action]; !ok {
			add("unknown fix action %q", f.Action)
		}
		if f.Action == FixRename && f.To == "" {
			add("rename fix requires to")
		}
	}

	return errs
}

// relativePath reports whether p is a non-empty slash path that stays inside
// its base once cleaned.
func relativePath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return false
	}
	clean := path.Clean(p)
	return clean != ".." && !strings.HasPrefix(clean, "../")
}
