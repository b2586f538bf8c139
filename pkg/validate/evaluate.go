package validate

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/papercomputeco/scaffold/pkg/dotdir"
	"github.com/papercomputeco/scaffold/pkg/fsprovider"
	"github.com/papercomputeco/scaffold/pkg/template"
)

// runState is shared by every job of one Run.
type runState struct {
	root string
	fs   fsprovider.Provider

	mu   sync.Mutex
	seen map[string]struct{}
}

func (rs *runState) abs(rel string) string {
	if rel == "" {
		return rs.root
	}
	return filepath.Join(rs.root, filepath.FromSlash(rel))
}

func (rs *runState) touch(rel string) {
	rs.mu.Lock()
	rs.seen[rel] = struct{}{}
	rs.mu.Unlock()
}

func (rs *runState) filesChecked() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.seen)
}

// stat reports whether rel exists and whether it is a directory.
func (rs *runState) stat(rel string) (bool, bool, error) {
	rs.touch(rel)
	exists, err := rs.fs.Exists(rs.abs(rel))
	if err != nil || !exists {
		return false, false, err
	}
	isDir, err := rs.fs.IsDir(rs.abs(rel))
	return true, isDir, err
}

func (rs *runState) read(rel string) ([]byte, error) {
	rs.touch(rel)
	return rs.fs.ReadFile(rs.abs(rel))
}

// match lists the project-relative paths under the template root matching
// r's glob. dirs selects directories instead of files. Excluded paths and
// .scaffold/ are never returned.
func (rs *runState) match(t *tplRun, r *ruleRun, dirs bool) ([]string, error) {
	base := rs.abs(t.root)
	exists, err := rs.fs.IsDir(base)
	if err != nil || !exists {
		return nil, err
	}

	var out []string
	err = rs.fs.Walk(base, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(rs.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if p == base {
			return nil
		}
		if path.Base(rel) == dotdir.DirName {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if t.excluded(rel) {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if entry.IsDir() == dirs && r.glob.Match(rel) {
			rs.touch(rel)
			out = append(out, rel)
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

// targets returns the concrete paths a rule addresses: glob matches, or the
// literal target when it exists.
func (rs *runState) targets(t *tplRun, r *ruleRun, dirs bool) ([]string, error) {
	if r.glob != nil {
		return rs.match(t, r, dirs)
	}
	exists, isDir, err := rs.stat(r.target)
	if err != nil || !exists || isDir != dirs {
		return nil, err
	}
	return []string{r.target}, nil
}

// evaluate runs one rule to PASSED, FAILED or SKIPPED. Dependencies live in
// earlier waves, so their states are final and safe to read.
func (e *Engine) evaluate(ctx context.Context, rs *runState, t *tplRun, r *ruleRun, byID map[string]*ruleRun) {
	if r.setupErr != nil {
		r.findings = []finding{{path: r.target, message: r.setupErr.Error()}}
		r.to(StateFailed)
		return
	}

	for _, id := range r.rule.DependsOn() {
		if !byID[id].state.Satisfied() {
			r.to(StateSkipped)
			return
		}
	}

	ok, err := e.conditionHolds(rs, t, r)
	if err != nil {
		r.to(StateEvaluating)
		r.findings = []finding{{path: r.target, message: fmt.Sprintf("evaluating condition: %v", err)}}
		r.to(StateFailed)
		return
	}
	if !ok {
		r.to(StateSkipped)
		return
	}

	r.to(StateEvaluating)
	findings, err := e.body(ctx, rs, t, r)
	if err != nil {
		findings = append(findings, finding{path: r.target, message: err.Error()})
	}
	r.findings = findings

	if len(r.findings) > 0 {
		r.to(StateFailed)
		return
	}
	r.to(StatePassed)
}

func (e *Engine) conditionHolds(rs *runState, t *tplRun, r *ruleRun) (bool, error) {
	switch r.rule.EffectiveWhen() {
	case template.WhenIfExists, template.WhenIfNotExists:
		present, err := rs.present(t, r)
		if err != nil {
			return false, err
		}
		return present == (r.rule.EffectiveWhen() == template.WhenIfExists), nil

	case template.WhenIfMatches:
		var paths []string
		if r.glob != nil {
			var err error
			if paths, err = rs.match(t, r, false); err != nil {
				return false, err
			}
		} else {
			paths = []string{r.target}
		}

		for _, p := range paths {
			exists, isDir, err := rs.stat(p)
			if err != nil {
				return false, err
			}
			if !exists || isDir {
				continue
			}
			data, err := rs.read(p)
			if err != nil {
				return false, err
			}
			if r.condRe.Match(data) {
				return true, nil
			}
		}
		return false, nil

	default:
		return true, nil
	}
}

// present reports whether anything matches the rule target.
func (rs *runState) present(t *tplRun, r *ruleRun) (bool, error) {
	if r.glob == nil {
		exists, _, err := rs.stat(r.target)
		return exists, err
	}
	files, err := rs.match(t, r, false)
	if err != nil || len(files) > 0 {
		return len(files) > 0, err
	}
	dirs, err := rs.match(t, r, true)
	return len(dirs) > 0, err
}

func (e *Engine) body(ctx context.Context, rs *runState, t *tplRun, r *ruleRun) ([]finding, error) {
	switch r.rule.Type {
	case template.RuleRequiredFile, template.RuleRequiredFolder:
		wantDir := r.rule.Type == template.RuleRequiredFolder
		kind := "file"
		if wantDir {
			kind = "folder"
		}

		if r.glob != nil {
			matches, err := rs.match(t, r, wantDir)
			if err != nil || len(matches) > 0 {
				return nil, err
			}
			return []finding{{path: r.target, message: fmt.Sprintf("no %s matches %s", kind, r.target), missing: true}}, nil
		}

		exists, isDir, err := rs.stat(r.target)
		if err != nil {
			return nil, err
		}
		switch {
		case !exists:
			f := finding{path: r.target, message: fmt.Sprintf("required %s %s is missing", kind, r.target), missing: true}
			if d, ok := t.files[r.target]; ok && !wantDir {
				f.expected, f.hasExpected = d.content, true
			}
			return []finding{f}, nil
		case isDir != wantDir:
			return []finding{{path: r.target, message: fmt.Sprintf("%s exists but is not a %s", r.target, kind)}}, nil
		}
		return nil, nil

	case template.RuleForbiddenFile, template.RuleForbiddenFolder:
		wantDir := r.rule.Type == template.RuleForbiddenFolder
		paths, err := rs.targets(t, r, wantDir)
		if err != nil {
			return nil, err
		}

		var out []finding
		for _, p := range paths {
			if t.excluded(p) {
				continue
			}
			out = append(out, finding{path: p, message: fmt.Sprintf("%s is forbidden", p)})
		}
		return out, nil

	case template.RuleFileContent:
		if r.glob != nil {
			return e.contentFindings(rs, t, r, true)
		}
		return e.contentFindings(rs, t, r, false)

	case template.RuleFilePattern:
		return e.contentFindings(rs, t, r, true)

	case template.RuleCustom:
		p, ok := e.predicates[r.rule.Check]
		if !ok {
			return nil, fmt.Errorf("unknown check %q", r.rule.Check)
		}
		violations, err := p.Check(ctx, PredicateInput{
			Root:      rs.root,
			Path:      r.target,
			AbsPath:   rs.abs(r.target),
			Rule:      r.rule,
			Variables: t.vars,
			FS:        rs.fs,
		})
		if err != nil {
			return nil, fmt.Errorf("check %q: %w", r.rule.Check, err)
		}
		rs.touch(r.target)

		out := make([]finding, 0, len(violations))
		for _, v := range violations {
			out = append(out, finding{path: v.Path, message: v.Message})
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown rule type %q", r.rule.Type)
	}
}

// contentFindings checks file content against the rule pattern and the
// declared template source. With each set, every glob match is checked;
// otherwise the literal target must exist.
func (e *Engine) contentFindings(rs *runState, t *tplRun, r *ruleRun, each bool) ([]finding, error) {
	var paths []string
	if each {
		var err error
		if paths, err = rs.match(t, r, false); err != nil {
			return nil, err
		}
	} else {
		exists, isDir, err := rs.stat(r.target)
		if err != nil {
			return nil, err
		}
		if !exists {
			f := finding{path: r.target, message: fmt.Sprintf("%s is missing", r.target), missing: true}
			if d, ok := t.files[r.target]; ok {
				f.expected, f.hasExpected = d.content, true
			}
			return []finding{f}, nil
		}
		if isDir {
			return []finding{{path: r.target, message: fmt.Sprintf("%s is a directory, expected a file", r.target)}}, nil
		}
		paths = []string{r.target}
	}

	var out []finding
	for _, p := range paths {
		data, err := rs.read(p)
		if err != nil {
			return nil, err
		}

		var problems []string
		f := finding{path: p}

		if r.re != nil && !r.re.Match(data) {
			problems = append(problems, fmt.Sprintf("does not match %s", r.re.String()))
		}

		if d, ok := t.files[p]; ok {
			f.expected, f.hasExpected = d.content, true
			if !bytes.Equal(data, d.content) {
				problems = append(problems, "differs from the template")
				f.diff = UnifiedDiff(p, string(data), string(d.content))
			}
		}

		if len(problems) > 0 {
			f.message = p + " " + strings.Join(problems, " and ")
			out = append(out, f)
		}
	}
	return out, nil
}
