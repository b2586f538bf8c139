// Package inmemory is a map-backed storage.Driver for tests and ephemeral
// runs.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/papercomputeco/scaffold/pkg/storage"
	"github.com/papercomputeco/scaffold/pkg/template"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu guards templates
	mu sync.RWMutex

	// templates maps content hash to template
	templates map[string]*template.Template
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		templates: make(map[string]*template.Template),
	}
}

// Put stores a template. Returns true if it was newly inserted, false if it
// already existed (no-op due to content-addressing).
func (d *Driver) Put(_ context.Context, t *template.Template) (string, bool, error) {
	if t == nil {
		return "", false, errors.New("cannot store nil template")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	stored, err := t.Clone()
	if err != nil {
		return "", false, err
	}

	hash, err := storage.Prepare(stored, time.Now())
	if err != nil {
		return "", false, err
	}

	if _, ok := d.templates[hash]; ok {
		return hash, false, nil
	}

	d.templates[hash] = stored
	return hash, true, nil
}

// Get retrieves a template by its hash.
func (d *Driver) Get(_ context.Context, hash string) (*template.Template, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	t, ok := d.templates[hash]
	if !ok {
		return nil, storage.NotFoundError{Hash: hash}
	}

	return t.Clone()
}

// Has checks if a template exists by its hash.
func (d *Driver) Has(_ context.Context, hash string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.templates[hash]
	return ok, nil
}

// List returns all templates in the store, ordered by hash.
func (d *Driver) List(_ context.Context) ([]storage.Entry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entries := make([]storage.Entry, 0, len(d.templates))
	for hash, t := range d.templates {
		out, err := t.Clone()
		if err != nil {
			return nil, err
		}
		entries = append(entries, storage.Entry{Hash: hash, Template: out})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Hash < entries[j].Hash })
	return entries, nil
}

// Delete removes a template.
func (d *Driver) Delete(_ context.Context, hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.templates[hash]; !ok {
		return storage.NotFoundError{Hash: hash}
	}
	delete(d.templates, hash)
	return nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
