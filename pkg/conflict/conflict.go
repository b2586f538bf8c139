// Package conflict decides what happens when a write would replace content
// that differs from both the last applied template version and what is on
// disk.
package conflict

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/papercomputeco/scaffold/pkg/logger"
	"github.com/papercomputeco/scaffold/pkg/manifest"
)

// Policy is a conflict-resolution strategy.
type Policy string

const (
	PolicySkip    Policy = "skip"
	PolicyReplace Policy = "replace"
	PolicyPrompt  Policy = "prompt"
	PolicyMerge   Policy = "merge"
)

// Policies lists every valid policy.
var Policies = []Policy{PolicySkip, PolicyReplace, PolicyPrompt, PolicyMerge}

// ParsePolicy parses a policy name. The empty string yields "".
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case "", PolicySkip, PolicyReplace, PolicyPrompt, PolicyMerge:
		return p, nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q (want skip, replace, prompt or merge)", s)
	}
}

// Effective returns the first non-empty policy in precedence order (flag,
// template, config), falling back to skip.
func Effective(candidates ...Policy) Policy {
	for _, p := range candidates {
		if p != "" {
			return p
		}
	}
	return PolicySkip
}

// Checksum is the SHA-256 hex digest of content.
func Checksum(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// Merger combines local and template content. ok reports whether the merge
// succeeded; a false ok or an error falls back to the failure behaviour.
type Merger interface {
	Merge(ctx context.Context, path string, local, incoming []byte) (merged []byte, ok bool, err error)
}

// Prompter asks the user to confirm an action.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// ErrNoPrompter is returned when the prompt policy has nothing to ask.
var ErrNoPrompter = errors.New("conflict requires confirmation but no prompter is available")

// ErrMergeFailed is returned when the merge policy could not merge.
var ErrMergeFailed = errors.New("merge did not succeed")

// Conflict describes one divergent write.
type Conflict struct {
	Path string

	// Local is the content currently on disk.
	Local []byte

	// Incoming is the content the template wants to write.
	Incoming []byte

	// LastApplied is the checksum recorded when the template last wrote Path.
	// Empty when unknown.
	LastApplied string
}

// IsConflict reports whether writing c.Incoming would clobber local edits:
// disk differs from the incoming content and from the last-applied checksum.
func (c Conflict) IsConflict() bool {
	local := Checksum(c.Local)
	if local == Checksum(c.Incoming) {
		return false
	}
	return c.LastApplied == "" || local != c.LastApplied
}

// Decision is the outcome of resolving a conflict.
type Decision struct {
	// Write is true when Content should be written to disk.
	Write bool

	// Content is the bytes to write when Write is set.
	Content []byte

	// Record is the conflict to persist on the applied template.
	Record manifest.ConflictRecord
}

// Resolver applies a policy. Decisions are serialized so prompts never
// interleave.
type Resolver struct {
	mu       *sync.Mutex
	policy   Policy
	merger   Merger
	prompter Prompter
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMerger sets the merge strategy.
func WithMerger(m Merger) Option {
	return func(r *Resolver) { r.merger = m }
}

// WithPrompter sets the confirmation provider.
func WithPrompter(p Prompter) Option {
	return func(r *Resolver) { r.prompter = p }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger.OrNop(l) }
}

// NewResolver returns a resolver for policy (skip when empty).
func NewResolver(policy Policy, opts ...Option) *Resolver {
	r := &Resolver{
		mu:     &sync.Mutex{},
		policy: Effective(policy),
		now:    time.Now,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the resolver's policy.
func (r *Resolver) Policy() Policy {
	return r.policy
}

// WithPolicy returns a resolver sharing r's collaborators and lock but using
// policy p (r's policy when p is empty).
func (r *Resolver) WithPolicy(p Policy) *Resolver {
	if p == "" || p == r.policy {
		return r
	}
	return &Resolver{
		mu:       r.mu,
		policy:   p,
		merger:   r.merger,
		prompter: r.prompter,
		now:      r.now,
		logger:   r.logger,
	}
}

// Resolve decides c. A non-nil error means the write failed under the
// policy: local content is kept and the caller should report a fix failure.
func (r *Resolver) Resolve(ctx context.Context, c Conflict) (Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record := manifest.ConflictRecord{
		Path:            c.Path,
		TemplateVersion: Checksum(c.Incoming),
		LocalVersion:    Checksum(c.Local),
		ResolvedAt:      r.now().UTC(),
	}

	keep := func() (Decision, error) {
		record.Resolution = manifest.ResolutionKeptLocal
		return Decision{Record: record}, nil
	}
	replace := func() (Decision, error) {
		record.Resolution = manifest.ResolutionUsedTemplate
		return Decision{Write: true, Content: c.Incoming, Record: record}, nil
	}

	r.logger.Debug("resolving conflict", "path", c.Path, "policy", r.policy)

	switch r.policy {
	case PolicyReplace:
		return replace()

	case PolicyMerge:
		if r.merger == nil {
			return Decision{}, fmt.Errorf("%s: %w: no merger configured", c.Path, ErrMergeFailed)
		}
		merged, ok, err := r.merger.Merge(ctx, c.Path, c.Local, c.Incoming)
		if err != nil {
			return Decision{}, fmt.Errorf("%s: %w: %w", c.Path, ErrMergeFailed, err)
		}
		if !ok {
			return Decision{}, fmt.Errorf("%s: %w", c.Path, ErrMergeFailed)
		}
		record.Resolution = manifest.ResolutionMerged
		return Decision{Write: true, Content: merged, Record: record}, nil

	case PolicyPrompt:
		if r.prompter == nil {
			return Decision{}, fmt.Errorf("%s: %w", c.Path, ErrNoPrompter)
		}
		yes, err := r.prompter.Confirm(ctx, fmt.Sprintf("%s has local changes. Overwrite with the template version?", c.Path))
		if err != nil {
			return Decision{}, fmt.Errorf("prompting for %s: %w", c.Path, err)
		}
		if yes {
			return replace()
		}
		return keep()

	default:
		return keep()
	}
}
