package fsprovider

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// OS is the Provider backed by the real file system.
type OS struct{}

// NewOS returns a Provider backed by the real file system.
func NewOS() *OS {
	return &OS{}
}

func (*OS) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, wrap("stat", path, err)
}

func (*OS) IsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return info.IsDir(), nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, wrap("stat", path, err)
}

func (*OS) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrap("read", path, err)
	}
	return data, nil
}

// WriteFile writes to a temp file in the destination directory and renames it
// into place, so a crash never leaves a half written file behind.
func (*OS) WriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return wrap("mkdir", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return wrap("create temp", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return wrap("write", tmpName, err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return wrap("sync", tmpName, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return wrap("close", tmpName, err)
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return wrap("chmod", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return wrap("rename", path, err)
	}

	return nil
}

func (o *OS) ReadJSON(path string, v any) error {
	data, err := o.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return wrap("decode", path, err)
	}
	return nil
}

func (o *OS) WriteJSON(path string, v any) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return wrap("encode", path, err)
	}
	return o.WriteFile(path, data, FilePerm)
}

func (*OS) EnsureDirectory(path string) error {
	return wrap("mkdir", path, os.MkdirAll(path, DirPerm))
}

func (*OS) Remove(path string) error {
	return wrap("remove", path, os.Remove(path))
}

func (*OS) Rename(from, to string) error {
	dir := filepath.Dir(to)
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return wrap("mkdir", dir, err)
	}
	return wrap("rename", from, os.Rename(from, to))
}

func (*OS) Walk(root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn)
}

func (*OS) ResolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", wrap("resolve", path, err)
	}
	return filepath.Clean(abs), nil
}

// MarshalJSON encodes v the way every scaffold document is stored on disk:
// 2-space indentation and a trailing newline.
func MarshalJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling json: %w", err)
	}
	return append(data, '\n'), nil
}

func isReadOnly(err error) bool {
	return errors.Is(err, syscall.EROFS)
}
