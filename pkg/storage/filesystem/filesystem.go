// Package filesystem provides a storage.Driver that keeps one pretty-printed
// JSON document per template at <dir>/<hash>.json.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/scaffold/pkg/fsprovider"
	"github.com/papercomputeco/scaffold/pkg/logger"
	"github.com/papercomputeco/scaffold/pkg/storage"
	"github.com/papercomputeco/scaffold/pkg/template"
)

const ext = ".json"

// Driver implements storage.Driver over a directory.
type Driver struct {
	mu     sync.RWMutex
	dir    string
	fs     fsprovider.Provider
	logger *slog.Logger
}

// NewDriver returns a driver rooted at dir. The directory is created lazily on
// the first Put.
func NewDriver(dir string, provider fsprovider.Provider, l *slog.Logger) *Driver {
	if provider == nil {
		provider = fsprovider.NewOS()
	}
	return &Driver{
		dir:    dir,
		fs:     provider,
		logger: logger.OrNop(l),
	}
}

func (d *Driver) path(hash string) string {
	return filepath.Join(d.dir, hash+ext)
}

// Put writes the template document if its hash is not stored yet.
func (d *Driver) Put(_ context.Context, t *template.Template) (string, bool, error) {
	if t == nil {
		return "", false, errors.New("cannot store nil template")
	}

	stored, err := t.Clone()
	if err != nil {
		return "", false, err
	}

	hash, err := storage.Prepare(stored, time.Now())
	if err != nil {
		return "", false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	exists, err := d.fs.Exists(d.path(hash))
	if err != nil {
		return "", false, err
	}
	if exists {
		return hash, false, nil
	}

	if err := d.fs.EnsureDirectory(d.dir); err != nil {
		return "", false, fmt.Errorf("creating template store: %w", err)
	}
	if err := d.fs.WriteJSON(d.path(hash), stored); err != nil {
		return "", false, fmt.Errorf("writing template %s: %w", hash, err)
	}

	d.logger.Debug("stored template", "hash", hash, "path", d.path(hash))
	return hash, true, nil
}

// Get reads a template document.
func (d *Driver) Get(_ context.Context, hash string) (*template.Template, error) {
	if !template.IsHex(hash) {
		return nil, storage.NotFoundError{Hash: hash}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	t := &template.Template{}
	if err := d.fs.ReadJSON(d.path(hash), t); err != nil {
		if fsprovider.IsNotExist(err) {
			return nil, storage.NotFoundError{Hash: hash}
		}
		return nil, err
	}
	return t, nil
}

// Has checks if a template document exists.
func (d *Driver) Has(_ context.Context, hash string) (bool, error) {
	if !template.IsHex(hash) {
		return false, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.fs.Exists(d.path(hash))
}

// List reads every template document in the store directory.
func (d *Driver) List(ctx context.Context) ([]storage.Entry, error) {
	d.mu.RLock()
	hashes, err := d.hashes()
	d.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	entries := make([]storage.Entry, 0, len(hashes))
	for _, hash := range hashes {
		t, err := d.Get(ctx, hash)
		if err != nil {
			return nil, err
		}
		entries = append(entries, storage.Entry{Hash: hash, Template: t})
	}
	return entries, nil
}

func (d *Driver) hashes() ([]string, error) {
	exists, err := d.fs.Exists(d.dir)
	if err != nil || !exists {
		return nil, err
	}

	var hashes []string
	err = d.fs.Walk(d.dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path == d.dir {
				return nil
			}
			return fs.SkipDir
		}

		name := entry.Name()
		hash := strings.TrimSuffix(name, ext)
		if hash != name && template.IsFullHash(hash) {
			hashes = append(hashes, hash)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing template store: %w", err)
	}

	sort.Strings(hashes)
	return hashes, nil
}

// Delete removes a template document.
func (d *Driver) Delete(_ context.Context, hash string) error {
	if !template.IsHex(hash) {
		return storage.NotFoundError{Hash: hash}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fs.Remove(d.path(hash)); err != nil {
		if fsprovider.IsNotExist(err) {
			return storage.NotFoundError{Hash: hash}
		}
		return err
	}
	return nil
}

// Close is a no-op for the filesystem driver.
func (d *Driver) Close() error {
	return nil
}
