// Package scaffold orchestrates project operations: creating and extending
// projects from stored templates, cleaning applied templates, and running
// validation or repair against the project manifest.
package scaffold

import (
	"context"
	"log/slog"
	"time"

	"github.com/papercomputeco/scaffold/pkg/conflict"
	"github.com/papercomputeco/scaffold/pkg/fsprovider"
	"github.com/papercomputeco/scaffold/pkg/logger"
	"github.com/papercomputeco/scaffold/pkg/manifest"
	"github.com/papercomputeco/scaffold/pkg/template"
	"github.com/papercomputeco/scaffold/pkg/validate"
)

// Templates resolves template references (alias, full or short hash) to a
// stored template. identity.Catalog satisfies it.
type Templates interface {
	Get(ctx context.Context, ref string) (string, *template.Template, error)
}

// Service runs project operations.
type Service struct {
	templates  Templates
	manifests  *manifest.Service
	engine     *validate.Engine
	fs         fsprovider.Provider
	resolver   *conflict.Resolver
	strictVars bool
	dryRun     bool
	actor      string
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithProvider sets the file-system provider used for generated files. It
// should be the same provider the manifest service and engine use.
func WithProvider(p fsprovider.Provider) Option {
	return func(s *Service) {
		if p != nil {
			s.fs = p
		}
	}
}

// WithResolver sets the conflict resolver used when application would
// overwrite local edits.
func WithResolver(r *conflict.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithStrictVariables controls whether unresolved placeholders are errors.
func WithStrictVariables(strict bool) Option {
	return func(s *Service) {
		s.strictVars = strict
	}
}

// WithDryRun suppresses the history entry a check would record. Writes are
// suppressed by configuring a fsprovider.Simulated.
func WithDryRun(dryRun bool) Option {
	return func(s *Service) {
		s.dryRun = dryRun
	}
}

// WithActor sets the appliedBy recorded for applications.
func WithActor(actor string) Option {
	return func(s *Service) {
		s.actor = actor
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger.OrNop(l)
	}
}

// NewService wires the project operations.
func NewService(templates Templates, manifests *manifest.Service, engine *validate.Engine, opts ...Option) *Service {
	s := &Service{
		templates:  templates,
		manifests:  manifests,
		engine:     engine,
		fs:         fsprovider.NewOS(),
		resolver:   conflict.NewResolver(conflict.PolicySkip),
		strictVars: true,
		now:        time.Now,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init creates an empty project manifest at root.
func (s *Service) Init(root, projectName string, variables map[string]any) (*manifest.Manifest, error) {
	abs, err := s.fs.ResolvePath(root)
	if err != nil {
		return nil, err
	}
	if err := s.fs.EnsureDirectory(abs); err != nil {
		return nil, err
	}
	return s.manifests.Init(abs, projectName, variables)
}

// Status returns the nearest project manifest and where it lives.
func (s *Service) Status(start string) (*manifest.Manifest, *manifest.Location, error) {
	loc, err := s.locate(start)
	if err != nil {
		return nil, nil, err
	}
	m, err := s.manifests.Load(loc.ProjectPath)
	if err != nil {
		return nil, nil, err
	}
	if m == nil {
		return nil, nil, manifest.ErrNotFound
	}
	return m, loc, nil
}

func (s *Service) locate(start string) (*manifest.Location, error) {
	abs, err := s.fs.ResolvePath(start)
	if err != nil {
		return nil, err
	}
	return s.manifests.FindNearest(abs)
}
