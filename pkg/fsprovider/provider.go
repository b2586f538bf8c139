// Package fsprovider is the storage boundary for scaffold. The manifest,
// template store and repair engine only touch the file system through a
// Provider, so a dry run can swap in Simulated and record intended writes
// instead of performing them.
package fsprovider

import (
	"errors"
	"io/fs"
)

const (
	// FilePerm is the permission used for generated files.
	FilePerm fs.FileMode = 0o644

	// ExecPerm is the permission used for generated executable files.
	ExecPerm fs.FileMode = 0o755

	// DirPerm is the permission used for created directories.
	DirPerm fs.FileMode = 0o755
)

// Provider is the narrow file-system surface scaffold depends on.
type Provider interface {
	// Exists reports whether path exists (file or directory).
	Exists(path string) (bool, error)

	// IsDir reports whether path exists and is a directory.
	IsDir(path string) (bool, error)

	// ReadFile returns the content of the file at path.
	ReadFile(path string) ([]byte, error)

	// WriteFile atomically replaces the file at path, creating parent
	// directories as needed.
	WriteFile(path string, data []byte, perm fs.FileMode) error

	// ReadJSON decodes the JSON document at path into v.
	ReadJSON(path string, v any) error

	// WriteJSON atomically writes v as 2-space indented JSON.
	WriteJSON(path string, v any) error

	// EnsureDirectory creates path and any missing parents.
	EnsureDirectory(path string) error

	// Remove deletes a file or an empty directory.
	Remove(path string) error

	// Rename moves from to to, creating the parent of to if needed.
	Rename(from, to string) error

	// Walk walks the tree rooted at root in lexical order.
	Walk(root string, fn fs.WalkDirFunc) error

	// ResolvePath returns the absolute, cleaned form of path.
	ResolvePath(path string) (string, error)
}

// IOError wraps an underlying storage failure with the operation and path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// IsNotExist reports whether err indicates a missing file, looking through
// IOError wrapping.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// IsUnwritable reports whether err indicates that the target location cannot
// be written at all (permission denied or read-only file system), as opposed
// to a failure specific to one file.
func IsUnwritable(err error) bool {
	return errors.Is(err, fs.ErrPermission) || isReadOnly(err)
}
