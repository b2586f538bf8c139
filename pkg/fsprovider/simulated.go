package fsprovider

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/papercomputeco/scaffold/pkg/logger"
)

// Operation kinds recorded by Simulated.
const (
	OpWrite  = "write"
	OpMkdir  = "mkdir"
	OpRemove = "remove"
	OpRename = "rename"
)

// Operation is a write the Simulated provider would have performed.
type Operation struct {
	Kind  string
	Path  string
	To    string
	Bytes int
}

// Simulated wraps a base Provider for dry runs. Reads fall through to the
// base, writes never reach it: they are logged, recorded as Operations and
// kept in an in-memory overlay so later reads in the same run observe them.
// Walk only reports entries of the base tree.
type Simulated struct {
	base   Provider
	logger *slog.Logger

	mu      sync.Mutex
	ops     []Operation
	files   map[string][]byte
	dirs    map[string]bool
	removed map[string]bool
}

// NewSimulated creates a dry-run provider over base.
func NewSimulated(base Provider, l *slog.Logger) *Simulated {
	return &Simulated{
		base:    base,
		logger:  logger.OrNop(l),
		files:   make(map[string][]byte),
		dirs:    make(map[string]bool),
		removed: make(map[string]bool),
	}
}

// Operations returns the recorded intents in the order they were made.
func (s *Simulated) Operations() []Operation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Operation, len(s.ops))
	copy(out, s.ops)
	return out
}

func (s *Simulated) record(op Operation) {
	s.ops = append(s.ops, op)
	s.logger.Info("dry run: skipped "+op.Kind, "path", op.Path, "to", op.To, "bytes", op.Bytes)
}

func (s *Simulated) Exists(path string) (bool, error) {
	path = filepath.Clean(path)

	s.mu.Lock()
	_, isFile := s.files[path]
	isDir := s.dirs[path]
	gone := s.removed[path]
	s.mu.Unlock()

	if isFile || isDir {
		return true, nil
	}
	if gone {
		return false, nil
	}
	return s.base.Exists(path)
}

func (s *Simulated) IsDir(path string) (bool, error) {
	path = filepath.Clean(path)

	s.mu.Lock()
	_, isFile := s.files[path]
	isDir := s.dirs[path]
	gone := s.removed[path]
	s.mu.Unlock()

	switch {
	case isDir:
		return true, nil
	case isFile, gone:
		return false, nil
	}
	return s.base.IsDir(path)
}

func (s *Simulated) ReadFile(path string) ([]byte, error) {
	path = filepath.Clean(path)

	s.mu.Lock()
	data, ok := s.files[path]
	gone := s.removed[path]
	s.mu.Unlock()

	if ok {
		return append([]byte(nil), data...), nil
	}
	if gone {
		return nil, wrap("read", path, fs.ErrNotExist)
	}
	return s.base.ReadFile(path)
}

func (s *Simulated) WriteFile(path string, data []byte, _ fs.FileMode) error {
	path = filepath.Clean(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[path] = append([]byte(nil), data...)
	delete(s.removed, path)
	s.record(Operation{Kind: OpWrite, Path: path, Bytes: len(data)})
	return nil
}

func (s *Simulated) ReadJSON(path string, v any) error {
	data, err := s.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return wrap("decode", path, err)
	}
	return nil
}

func (s *Simulated) WriteJSON(path string, v any) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return wrap("encode", path, err)
	}
	return s.WriteFile(path, data, FilePerm)
}

func (s *Simulated) EnsureDirectory(path string) error {
	path = filepath.Clean(path)

	exists, err := s.IsDir(path)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.dirs[path] = true
	delete(s.removed, path)
	s.record(Operation{Kind: OpMkdir, Path: path})
	return nil
}

func (s *Simulated) Remove(path string) error {
	path = filepath.Clean(path)

	exists, err := s.Exists(path)
	if err != nil {
		return err
	}
	if !exists {
		return wrap("remove", path, fs.ErrNotExist)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.files, path)
	delete(s.dirs, path)
	s.removed[path] = true
	s.record(Operation{Kind: OpRemove, Path: path})
	return nil
}

func (s *Simulated) Rename(from, to string) error {
	from, to = filepath.Clean(from), filepath.Clean(to)

	data, err := s.ReadFile(from)
	if err != nil {
		return wrap("rename", from, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[to] = data
	delete(s.files, from)
	delete(s.removed, to)
	s.removed[from] = true
	s.record(Operation{Kind: OpRename, Path: from, To: to})
	return nil
}

func (s *Simulated) Walk(root string, fn fs.WalkDirFunc) error {
	return s.base.Walk(root, fn)
}

func (s *Simulated) ResolvePath(path string) (string, error) {
	return s.base.ResolvePath(path)
}

// WrittenPaths returns the sorted set of files the run would have written.
func (s *Simulated) WrittenPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
