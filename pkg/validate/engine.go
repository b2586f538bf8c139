// Package validate checks a live project tree against the rules of its
// applied templates and optionally repairs it.
//
// Each rule moves through PENDING → SKIPPED | EVALUATING → PASSED | FAILED,
// and a failed rule with an auto fix moves on to FIX_APPLIED or FIX_FAILED
// in repair mode. Rules of the same dependency depth are evaluated
// concurrently on a bounded worker pool; fixes for a wave are applied
// serially before the next wave starts.
package validate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/papercomputeco/scaffold/pkg/conflict"
	"github.com/papercomputeco/scaffold/pkg/fsprovider"
	"github.com/papercomputeco/scaffold/pkg/logger"
	"github.com/papercomputeco/scaffold/pkg/manifest"
	"github.com/papercomputeco/scaffold/pkg/template"
)

// TemplateSource loads templates by full hash. storage.Driver satisfies it.
type TemplateSource interface {
	Get(ctx context.Context, hash string) (*template.Template, error)
}

// Engine evaluates and repairs project trees.
type Engine struct {
	templates  TemplateSource
	fs         fsprovider.Provider
	resolver   *conflict.Resolver
	predicates map[string]Predicate
	workers    uint
	strictVars bool
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithProvider sets the file-system provider. A fsprovider.Simulated turns
// repairs into recorded intents.
func WithProvider(p fsprovider.Provider) Option {
	return func(e *Engine) {
		if p != nil {
			e.fs = p
		}
	}
}

// WithResolver sets the conflict resolver. Its policy is the fallback used
// when neither the run nor the template names one.
func WithResolver(r *conflict.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.resolver = r
		}
	}
}

// WithPredicate registers a custom check.
func WithPredicate(name string, p Predicate) Option {
	return func(e *Engine) {
		e.predicates[name] = p
	}
}

// WithWorkers sets the evaluation pool size.
func WithWorkers(n uint) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithStrictVariables controls whether unresolved placeholders in targets and
// template content are errors.
func WithStrictVariables(strict bool) Option {
	return func(e *Engine) {
		e.strictVars = strict
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger.OrNop(l)
	}
}

// New returns an engine reading templates from src.
func New(src TemplateSource, opts ...Option) *Engine {
	e := &Engine{
		templates:  src,
		fs:         fsprovider.NewOS(),
		resolver:   conflict.NewResolver(conflict.PolicySkip),
		predicates: BuiltinPredicates(),
		workers:    defaultNumWorkers,
		strictVars: true,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOptions selects what a run does.
type RunOptions struct {
	// Repair applies auto fixes.
	Repair bool

	// Templates limits the run to these full hashes. Empty means every
	// active template.
	Templates []string

	// Policy overrides every template's conflict policy (the CLI flag).
	Policy conflict.Policy
}

// Run validates (and with Repair, repairs) the project at root described by
// m. It never writes the manifest: the returned Outcome holds what the
// caller should commit. A cancelled ctx returns ctx.Err() and no outcome.
func (e *Engine) Run(ctx context.Context, root string, m *manifest.Manifest, opts RunOptions) (*Outcome, error) {
	if m == nil {
		return nil, manifest.ErrNotFound
	}

	start := time.Now()
	report := &Report{Errors: []Issue{}, Warnings: []Issue{}, Suggestions: []Suggestion{}}
	out := &Outcome{Report: report}

	abs, err := e.fs.ResolvePath(root)
	if err != nil {
		return nil, err
	}
	rs := &runState{root: abs, fs: e.fs, seen: map[string]struct{}{}}

	var runs []*tplRun
	for _, at := range m.Active() {
		tpl, err := e.templates.Get(ctx, at.TemplateHash)
		if err != nil {
			return nil, fmt.Errorf("loading template %s: %w", template.ShortHash(at.TemplateHash), err)
		}

		t, err := e.newTplRun(at, tpl, m.Variables)
		if err != nil {
			report.add(Issue{
				TemplateHash: at.TemplateHash,
				RuleID:       "variables",
				Severity:     template.SeverityError,
				Message:      fmt.Sprintf("template %s: %v", tpl.Name, err),
				State:        StateFailed,
			})
			continue
		}
		runs = append(runs, t)
	}

	pool, err := NewPool(&PoolConfig{NumWorkers: e.workers, Logger: e.logger})
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	declared := newDeclaredSet(runs)
	for _, t := range runs {
		if len(opts.Templates) > 0 && !slices.Contains(opts.Templates, t.hash) {
			continue
		}

		t.policy = conflict.Effective(opts.Policy, conflict.Policy(t.tpl.Rules.ConflictResolution), e.resolver.Policy())
		t.resolver = e.resolver.WithPolicy(t.policy)
		out.Templates = append(out.Templates, t.hash)

		if err := e.runTemplate(ctx, pool, rs, t, declared, opts, out); err != nil {
			return nil, err
		}
	}

	report.Stats.FilesChecked = rs.filesChecked()
	report.Stats.Duration = time.Since(start)

	e.logger.Debug("validation finished",
		"root", abs,
		"errors", report.Stats.ErrorCount,
		"warnings", report.Stats.WarningCount,
		"fixes", report.Stats.FixesApplied,
		"duration", report.Stats.Duration,
	)
	return out, nil
}

func (e *Engine) runTemplate(ctx context.Context, pool *Pool, rs *runState, t *tplRun, declared *declaredSet, opts RunOptions, out *Outcome) error {
	report := out.Report
	fx := &fixer{e: e, rs: rs, t: t, out: out}

	byID := make(map[string]*ruleRun, len(t.rules))
	for _, r := range t.rules {
		byID[r.id] = r
	}

	e.logger.Debug("validating template", "hash", t.hash, "name", t.tpl.Name, "rules", len(t.rules), "policy", t.policy)

	for depth, wave := range t.waves() {
		jobs := make([]Job, 0, len(wave))
		for _, r := range wave {
			jobs = append(jobs, Job{
				Name: r.id,
				Run: func(ctx context.Context) {
					e.evaluate(ctx, rs, t, r, byID)
				},
			})
		}

		if err := pool.RunAll(ctx, jobs); err != nil {
			return err
		}
		e.logger.Debug("wave evaluated", "hash", t.hash, "depth", depth, "rules", len(wave))

		for _, r := range wave {
			if err := e.settle(ctx, fx, r, opts); err != nil {
				return err
			}
			report.Results = append(report.Results, RuleResult{TemplateHash: t.hash, RuleID: r.id, State: r.state})
		}
	}

	issues, err := e.untracked(rs, t, declared)
	if err != nil {
		return fmt.Errorf("scanning untracked paths: %w", err)
	}
	if !(t.tpl.Rules.AllowExtraFiles && t.tpl.Rules.AllowExtraFolders) {
		report.Stats.RulesEvaluated++
	}
	for _, issue := range issues {
		report.add(issue)
		report.Suggestions = append(report.Suggestions, Suggestion{
			RuleID:  issue.RuleID,
			Path:    issue.Path,
			Message: fmt.Sprintf("remove %s, declare it in the template or add it to excludePatterns", issue.Path),
		})
	}

	return ctx.Err()
}

// settle records a rule's outcome and, in repair mode, applies its fix.
func (e *Engine) settle(ctx context.Context, fx *fixer, r *ruleRun, opts RunOptions) error {
	report := fx.out.Report

	switch r.state {
	case StateSkipped:
		report.Stats.RulesSkipped++
		return nil
	case StatePassed:
		report.Stats.RulesEvaluated++
		return nil
	}
	report.Stats.RulesEvaluated++

	fix := r.rule.Fix
	repairable := fix != nil && fix.AutoFix && fix.Action != template.FixPrompt && r.setupErr == nil

	applied, failed := 0, 0
	for _, f := range r.findings {
		issue := Issue{
			TemplateHash: fx.t.hash,
			RuleID:       r.id,
			Type:         r.rule.Type,
			Severity:     r.rule.EffectiveSeverity(),
			Path:         f.path,
			Message:      f.message,
			Fix:          fix,
			Diff:         f.diff,
			State:        StateFailed,
		}
		if r.rule.Message != "" && r.setupErr == nil {
			issue.Message = r.rule.Message
		}
		if r.setupErr != nil {
			issue.Severity = template.SeverityError
		}

		switch {
		case fix == nil || r.setupErr != nil:
		case fix.Action == template.FixPrompt:
			msg := fix.Prompt
			if msg == "" {
				msg = issue.Message
			}
			report.Suggestions = append(report.Suggestions, Suggestion{RuleID: r.id, Path: f.path, Message: msg})
		case !opts.Repair || !repairable:
			report.Suggestions = append(report.Suggestions, Suggestion{
				RuleID:  r.id,
				Path:    f.path,
				Message: suggestFix(fix, f.path, repairable),
			})
		case fx.t.aborted != nil:
			issue.State = StateFixFailed
			issue.Err = &FixError{RuleID: r.id, Path: f.path, Action: fix.Action, Err: fx.t.aborted}
		default:
			err := fx.apply(ctx, r, f)
			switch {
			case err == nil:
				issue.State = StateFixApplied
			case errors.Is(err, errKeptLocal):
				issue.Message += " (local changes kept)"
			case ctx.Err() != nil:
				return ctx.Err()
			default:
				issue.State = StateFixFailed
				issue.Err = &FixError{RuleID: r.id, Path: f.path, Action: fix.Action, Err: err}
				if fsprovider.IsUnwritable(err) {
					fx.t.aborted = fmt.Errorf("repair aborted after unwritable target: %w", err)
					e.logger.Debug("aborting repair", "hash", fx.t.hash, "path", f.path, "error", err)
				}
			}
		}

		switch issue.State {
		case StateFixApplied:
			applied++
			report.Stats.FixesApplied++
		case StateFixFailed:
			failed++
			report.Stats.FixesFailed++
			issue.Message += ": " + issue.Err.Error()
		}
		report.add(issue)
	}

	switch {
	case failed > 0:
		r.to(StateFixFailed)
	case applied > 0 && applied == len(r.findings):
		r.to(StateFixApplied)
	}
	return nil
}

func suggestFix(fix *template.Fix, p string, repairable bool) string {
	action := string(fix.Action)
	if fix.Action == template.FixRename {
		action += " to " + fix.To
	}
	if repairable {
		return fmt.Sprintf("%s %s (run scaffold sync to apply)", action, p)
	}
	return fmt.Sprintf("%s %s manually", action, p)
}
