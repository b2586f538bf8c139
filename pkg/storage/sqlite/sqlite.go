// Package sqlite provides a SQLite-backed storage.Driver. Each template is
// stored as one JSON document per row keyed by its content hash.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/scaffold/pkg/logger"
	"github.com/papercomputeco/scaffold/pkg/storage"
	"github.com/papercomputeco/scaffold/pkg/template"
)

// Driver implements storage.Driver using SQLite.
type Driver struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDriver opens (and migrates) the database at dbPath. The dbPath can be a
// file path or ":memory:" for an in-memory database.
func NewDriver(dbPath string, l *slog.Logger) (*Driver, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases coherent across calls.
	db.SetMaxOpenConns(1)

	d := &Driver{db: db, logger: logger.OrNop(l)}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return d, nil
}

// migrate creates the necessary tables if they don't exist.
func (d *Driver) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS templates (
		hash TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		version TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_templates_name ON templates(name, version);
	`

	_, err := d.db.Exec(schema)
	return err
}

// Put stores a template. If it already exists (by hash), this is a no-op.
func (d *Driver) Put(ctx context.Context, t *template.Template) (string, bool, error) {
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

	content, err := json.Marshal(stored)
	if err != nil {
		return "", false, fmt.Errorf("failed to marshal template: %w", err)
	}

	// INSERT OR IGNORE keeps puts idempotent under content-addressing
	query := `INSERT OR IGNORE INTO templates (hash, name, version, content) VALUES (?, ?, ?, ?)`

	res, err := d.db.ExecContext(ctx, query, hash, stored.Name, stored.Version, string(content))
	if err != nil {
		return "", false, fmt.Errorf("failed to insert template: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("failed to read insert result: %w", err)
	}

	d.logger.Debug("put template", "hash", hash, "new", n > 0)
	return hash, n > 0, nil
}

// Get retrieves a template by its hash.
func (d *Driver) Get(ctx context.Context, hash string) (*template.Template, error) {
	row := d.db.QueryRowContext(ctx, `SELECT content FROM templates WHERE hash = ?`, hash)

	var content string
	if err := row.Scan(&content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.NotFoundError{Hash: hash}
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	t := &template.Template{}
	if err := json.Unmarshal([]byte(content), t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template %s: %w", hash, err)
	}
	return t, nil
}

// Has checks if a template exists by its hash.
func (d *Driver) Has(ctx context.Context, hash string) (bool, error) {
	var exists int
	err := d.db.QueryRowContext(ctx, `SELECT 1 FROM templates WHERE hash = ?`, hash).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check template: %w", err)
	}
	return true, nil
}

// List returns all templates ordered by hash.
func (d *Driver) List(ctx context.Context) ([]storage.Entry, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT hash, content FROM templates ORDER BY hash`)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var entries []storage.Entry
	for rows.Next() {
		var hash, content string
		if err := rows.Scan(&hash, &content); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}

		t := &template.Template{}
		if err := json.Unmarshal([]byte(content), t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal template %s: %w", hash, err)
		}
		entries = append(entries, storage.Entry{Hash: hash, Template: t})
	}

	return entries, rows.Err()
}

// Delete removes a template.
func (d *Driver) Delete(ctx context.Context, hash string) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM templates WHERE hash = ?`, hash)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if n == 0 {
		return storage.NotFoundError{Hash: hash}
	}
	return nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return d.db.Close()
}
