package manifest

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/scaffold/pkg/dotdir"
	"github.com/papercomputeco/scaffold/pkg/fsprovider"
	"github.com/papercomputeco/scaffold/pkg/logger"
)

// FileName is the manifest document name inside .scaffold/.
const FileName = "manifest.json"

// Location is where a manifest was found.
type Location struct {
	// ManifestPath is the manifest document path.
	ManifestPath string

	// ProjectPath is the project root: the directory containing .scaffold/.
	ProjectPath string
}

// Service reads and writes manifests through a file-system provider. Every
// mutation is a full read-modify-write guarded by the service mutex.
type Service struct {
	mu          sync.Mutex
	fs          fsprovider.Provider
	searchDepth int
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithProvider sets the file-system provider. Passing a
// fsprovider.Simulated gives dry-run semantics.
func WithProvider(p fsprovider.Provider) Option {
	return func(s *Service) {
		if p != nil {
			s.fs = p
		}
	}
}

// WithSearchDepth bounds the upward search for a manifest.
func WithSearchDepth(depth int) Option {
	return func(s *Service) {
		if depth > 0 {
			s.searchDepth = depth
		}
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

// NewService returns a manifest service backed by the real file system
// unless another provider is configured.
func NewService(opts ...Option) *Service {
	s := &Service{
		fs:          fsprovider.NewOS(),
		searchDepth: dotdir.DefaultSearchDepth,
		now:         time.Now,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the manifest path for a project root.
func Path(root string) string {
	return filepath.Join(root, dotdir.DirName, FileName)
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

// Load returns the manifest at <path>/.scaffold/manifest.json or, failing
// that, the nearest one found searching upward. It returns nil, nil when no
// manifest exists within the search depth.
func (s *Service) Load(path string) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, err := s.findNearest(path)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.read(loc.ManifestPath)
}

// FindNearest searches start and its ancestors for a manifest. It returns
// ErrNotFound when the search depth is exhausted.
func (s *Service) FindNearest(start string) (*Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.findNearest(start)
}

func (s *Service) findNearest(start string) (*Location, error) {
	dir, err := s.fs.ResolvePath(start)
	if err != nil {
		return nil, err
	}

	for range s.searchDepth + 1 {
		candidate := Path(dir)
		exists, err := s.fs.Exists(candidate)
		if err != nil {
			return nil, err
		}
		if exists {
			s.logger.Debug("found manifest", "path", candidate)
			return &Location{ManifestPath: candidate, ProjectPath: dir}, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return nil, fmt.Errorf("%w at or above %s", ErrNotFound, start)
}

func (s *Service) read(path string) (*Manifest, error) {
	m := &Manifest{}
	if err := s.fs.ReadJSON(path, m); err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	if m.Variables == nil {
		m.Variables = map[string]any{}
	}
	return m, nil
}

// Save validates and atomically writes m to the project at root, creating
// .scaffold/ when missing.
func (s *Service) Save(root string, m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(root, m)
}

func (s *Service) write(root string, m *Manifest) error {
	if m == nil {
		return errors.New("cannot save nil manifest")
	}
	if err := m.Validate(); err != nil {
		return err
	}

	if err := s.fs.EnsureDirectory(filepath.Join(root, dotdir.DirName)); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}

	path := Path(root)
	if err := s.fs.WriteJSON(path, m); err != nil {
		return fmt.Errorf("saving manifest: %w", err)
	}

	s.logger.Debug("saved manifest", "path", path, "templates", len(m.Templates), "history", len(m.History))
	return nil
}

// Init creates a fresh manifest at root. It fails if one already exists
// there.
func (s *Service) Init(root, projectName string, variables map[string]any) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.fs.Exists(Path(root))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("manifest already exists at %s", Path(root))
	}

	if variables == nil {
		variables = map[string]any{}
	}

	now := s.timestamp()
	m := &Manifest{
		Version:     Version,
		ProjectName: projectName,
		Created:     now,
		Updated:     now,
		Templates:   []AppliedTemplate{},
		Variables:   variables,
		History:     []HistoryEntry{},
	}

	if err := s.write(root, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Update loads the manifest at root, applies fn and writes the result back
// as one unit. Nothing is written if fn fails. History may only grow.
func (s *Service) Update(root string, fn func(*Manifest) error) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := Path(root)
	exists, err := s.fs.Exists(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w at %s", ErrNotFound, root)
	}

	m, err := s.read(path)
	if err != nil {
		return nil, err
	}

	before := make([]string, len(m.History))
	for i, e := range m.History {
		before[i] = e.ID
	}

	if err := fn(m); err != nil {
		return nil, err
	}

	if len(m.History) < len(before) {
		return nil, &InvalidError{Field: "history", Reason: "entries may not be removed"}
	}
	for i, id := range before {
		if m.History[i].ID != id {
			return nil, &InvalidError{Field: "history", Reason: "entries may not be rewritten"}
		}
	}

	m.Updated = s.timestamp()
	if err := s.write(root, m); err != nil {
		return nil, err
	}
	return m, nil
}

// NewHistoryEntry builds an entry with a fresh id and the service clock.
func (s *Service) NewHistoryEntry(action Action, templates []string, changes []ChangeRecord) HistoryEntry {
	return HistoryEntry{
		ID:        uuid.NewString(),
		Timestamp: s.timestamp(),
		Action:    action,
		Templates: templates,
		Changes:   changes,
	}
}

// RecordApplication adds or refreshes an applied template entry.
func (s *Service) RecordApplication(root string, at AppliedTemplate) error {
	if at.AppliedAt.IsZero() {
		at.AppliedAt = s.timestamp()
	}
	_, err := s.Update(root, func(m *Manifest) error {
		m.Apply(at)
		return nil
	})
	return err
}

// RecordHistory appends a history entry.
func (s *Service) RecordHistory(root string, e HistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.timestamp()
	}
	_, err := s.Update(root, func(m *Manifest) error {
		m.AddHistory(e)
		return nil
	})
	return err
}

// RecordConflict appends a conflict to the active entry for (hash,
// rootFolder).
func (s *Service) RecordConflict(root, hash, rootFolder string, c ConflictRecord) error {
	if c.ResolvedAt.IsZero() {
		c.ResolvedAt = s.timestamp()
	}
	_, err := s.Update(root, func(m *Manifest) error {
		if !m.AddConflict(hash, rootFolder, c) {
			return fmt.Errorf("no active template %s at %q", hash, rootFolder)
		}
		return nil
	})
	return err
}

// RemoveTemplate marks the active entry for (hash, rootFolder) removed.
func (s *Service) RemoveTemplate(root, hash, rootFolder string) error {
	_, err := s.Update(root, func(m *Manifest) error {
		if _, ok := m.Remove(hash, rootFolder); !ok {
			return fmt.Errorf("no active template %s at %q", hash, rootFolder)
		}
		return nil
	})
	return err
}
