// Package storage defines the content-addressed template store. Drivers live
// in the sub-packages (filesystem, sqlite, inmemory).
package storage

import (
	"context"
	"time"

	"github.com/papercomputeco/scaffold/pkg/template"
)

// Driver persists templates keyed by their content hash.
type Driver interface {
	// Put stores a template under its computed hash. It returns the hash and
	// true if the template was newly inserted. Re-putting identical content is
	// a no-op that returns false.
	Put(ctx context.Context, t *template.Template) (string, bool, error)

	// Get retrieves a template by its full hash. Missing hashes return
	// NotFoundError.
	Get(ctx context.Context, hash string) (*template.Template, error)

	// Has checks if a template exists by its hash.
	Has(ctx context.Context, hash string) (bool, error)

	// List returns every stored template.
	List(ctx context.Context) ([]Entry, error)

	// Delete removes a template. Missing hashes return NotFoundError.
	Delete(ctx context.Context, hash string) error

	// Close releases any resources held by the driver.
	Close() error
}

// Entry is a stored template alongside its hash.
type Entry struct {
	Hash     string
	Template *template.Template
}

// Prepare computes the hash for t and stamps CreatedAt when it has none. It is
// shared by the drivers so every backend hashes identically.
func Prepare(t *template.Template, now time.Time) (string, error) {
	hash, err := template.Hash(t)
	if err != nil {
		return "", err
	}

	if t.CreatedAt == nil {
		ts := now.UTC()
		t.CreatedAt = &ts
	}
	return hash, nil
}
