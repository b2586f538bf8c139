package validate

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/papercomputeco/scaffold/pkg/conflict"
	"github.com/papercomputeco/scaffold/pkg/manifest"
	"github.com/papercomputeco/scaffold/pkg/template"
	"github.com/papercomputeco/scaffold/pkg/vars"
)

// declaredFile is a file a template generates, with its substituted content.
type declaredFile struct {
	content    []byte
	executable bool
}

// tplRun is one applied template prepared for evaluation.
type tplRun struct {
	at   manifest.AppliedTemplate
	tpl  *template.Template
	hash string

	// root is the template root relative to the project root ("" for the
	// project root itself), slash separated.
	root string

	vars      map[string]any
	subst     *vars.Engine
	files     map[string]declaredFile
	dirs      map[string]bool // declared folders, value is gitkeep
	excludes  []glob.Glob
	rules     []*ruleRun
	policy    conflict.Policy
	resolver  *conflict.Resolver
	aborted   error
}

// ruleRun is one rule's evaluation state.
type ruleRun struct {
	rule   template.Rule
	id     string
	target string // project relative, slash separated
	glob   glob.Glob
	re     *regexp.Regexp
	condRe *regexp.Regexp

	depth    int
	state    State
	setupErr error
	findings []finding
}

// finding is one path that failed a rule.
type finding struct {
	path        string
	message     string
	diff        string
	expected    []byte
	hasExpected bool
	missing     bool
}

func (r *ruleRun) to(s State) {
	next, err := r.state.next(s)
	if err != nil {
		// An impossible transition is a bug; fail the rule rather than
		// report a state it never reached.
		r.state = StateFailed
		r.findings = append(r.findings, finding{path: r.target, message: err.Error()})
		return
	}
	r.state = next
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// join resolves p against the template root, rejecting escapes.
func (t *tplRun) join(p string) (string, error) {
	joined := path.Join(t.root, p)
	if joined == ".." || strings.HasPrefix(joined, "../") || path.IsAbs(joined) {
		return "", fmt.Errorf("path %q escapes the project", p)
	}
	if joined == "." {
		joined = ""
	}
	return joined, nil
}

// relToRoot strips the template root from a project-relative path.
func (t *tplRun) relToRoot(p string) string {
	if t.root == "" {
		return p
	}
	return strings.TrimPrefix(strings.TrimPrefix(p, t.root), "/")
}

func (t *tplRun) excluded(p string) bool {
	rel := t.relToRoot(p)
	base := path.Base(p)
	for _, g := range t.excludes {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}
	return false
}

func (e *Engine) newTplRun(at manifest.AppliedTemplate, tpl *template.Template, variables map[string]any) (*tplRun, error) {
	opts := []vars.Option{vars.WithStrict(e.strictVars)}
	if b := at.Builtins; b != nil {
		opts = append(opts,
			vars.WithClock(func() time.Time { return b.Time }),
			vars.WithUUIDFunc(func() string { return b.UUID }),
		)
	} else if !at.AppliedAt.IsZero() {
		appliedAt := at.AppliedAt
		opts = append(opts, vars.WithClock(func() time.Time { return appliedAt }))
	}
	subst := vars.New(opts...)

	root := path.Clean(strings.TrimPrefix(at.RootFolder, "./"))
	if root == "." {
		root = ""
	}

	t := &tplRun{
		at:        at,
		tpl:       tpl,
		hash:      at.TemplateHash,
		root:      root,
		vars:      variables,
		subst:     subst,
		files:     map[string]declaredFile{},
		dirs:      map[string]bool{},
	}

	for _, f := range tpl.Files {
		rel, err := subst.SubstituteInPath(f.Path, variables)
		if err != nil {
			return nil, fmt.Errorf("file %q: %w", f.Path, err)
		}
		content, err := subst.Substitute(f.Content, variables)
		if err != nil {
			return nil, fmt.Errorf("file %q: %w", f.Path, err)
		}
		p, err := t.join(rel)
		if err != nil {
			return nil, err
		}
		t.files[p] = declaredFile{content: []byte(content), executable: f.Executable}
	}

	for _, d := range tpl.Folders {
		rel, err := subst.SubstituteInPath(d.Path, variables)
		if err != nil {
			return nil, fmt.Errorf("folder %q: %w", d.Path, err)
		}
		p, err := t.join(rel)
		if err != nil {
			return nil, err
		}
		t.dirs[p] = d.Gitkeep
	}

	for _, pattern := range tpl.Rules.ExcludePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		t.excludes = append(t.excludes, g)
	}

	for _, rule := range e.rulesFor(tpl) {
		t.rules = append(t.rules, t.compile(rule))
	}

	return t, nil
}

// rulesFor returns the declared rules plus, in strict mode, an implicit
// required rule for every declared file and folder not already covered.
func (e *Engine) rulesFor(tpl *template.Template) []template.Rule {
	rules := append([]template.Rule(nil), tpl.Rules.Rules...)
	if !tpl.Rules.StrictMode {
		return rules
	}

	ids := map[string]struct{}{}
	for _, r := range rules {
		ids[r.RuleID()] = struct{}{}
	}

	implicit := func(typ template.RuleType, target string) {
		r := template.Rule{
			Type:     typ,
			Target:   target,
			Severity: template.SeverityError,
			Fix:      &template.Fix{Action: template.FixCreate, AutoFix: true},
		}
		if _, ok := ids[r.RuleID()]; ok {
			return
		}
		ids[r.RuleID()] = struct{}{}
		rules = append(rules, r)
	}

	for _, d := range tpl.Folders {
		implicit(template.RuleRequiredFolder, d.Path)
	}
	for _, f := range tpl.Files {
		implicit(template.RuleRequiredFile, f.Path)
	}
	return rules
}

func (t *tplRun) compile(rule template.Rule) *ruleRun {
	r := &ruleRun{rule: rule, id: rule.RuleID(), state: StatePending}

	target, err := t.subst.Substitute(rule.Target, t.vars)
	if err != nil {
		r.setupErr = fmt.Errorf("target: %w", err)
		return r
	}
	if r.target, err = t.join(target); err != nil {
		r.setupErr = err
		return r
	}

	if hasMeta(target) {
		if r.glob, err = glob.Compile(r.target, '/'); err != nil {
			r.setupErr = fmt.Errorf("target glob: %w", err)
			return r
		}
	}

	if rule.Pattern != "" {
		if r.re, err = regexp.Compile(rule.Pattern); err != nil {
			r.setupErr = fmt.Errorf("pattern: %w", err)
			return r
		}
	}

	if c := rule.Condition; c != nil && c.When == template.WhenIfMatches {
		if r.condRe, err = regexp.Compile(c.Pattern); err != nil {
			r.setupErr = fmt.Errorf("condition pattern: %w", err)
		}
	}
	return r
}

// waves groups rules by dependency depth. Unknown dependencies and cycles
// are recorded as setup errors on the offending rules, which then fail.
func (t *tplRun) waves() [][]*ruleRun {
	byID := make(map[string]*ruleRun, len(t.rules))
	for _, r := range t.rules {
		byID[r.id] = r
	}

	const (
		white = iota
		gray
		black
	)
	color := map[*ruleRun]int{}
	var stack []*ruleRun

	var visit func(r *ruleRun) int
	visit = func(r *ruleRun) int {
		if color[r] == black {
			return r.depth
		}
		color[r] = gray
		stack = append(stack, r)

		depth := 0
		for _, id := range r.rule.DependsOn() {
			dep, ok := byID[id]
			if !ok {
				if r.setupErr == nil {
					r.setupErr = fmt.Errorf("depends on unknown rule %q", id)
				}
				continue
			}

			if color[dep] == gray {
				idx := 0
				for i, s := range stack {
					if s == dep {
						idx = i
						break
					}
				}
				names := make([]string, 0, len(stack)-idx+1)
				for _, s := range stack[idx:] {
					names = append(names, s.id)
				}
				names = append(names, dep.id)
				cycle := fmt.Errorf("dependency cycle: %s", strings.Join(names, " -> "))
				for _, s := range stack[idx:] {
					if s.setupErr == nil {
						s.setupErr = cycle
					}
				}
				continue
			}

			if d := visit(dep) + 1; d > depth {
				depth = d
			}
		}

		stack = stack[:len(stack)-1]
		color[r] = black
		if r.setupErr != nil {
			depth = 0
		}
		r.depth = depth
		return depth
	}

	maxDepth := 0
	for _, r := range t.rules {
		if d := visit(r); d > maxDepth {
			maxDepth = d
		}
	}

	out := make([][]*ruleRun, maxDepth+1)
	for _, r := range t.rules {
		out[r.depth] = append(out[r.depth], r)
	}
	return out
}
