// Package dotdir locates scaffold's directories: the per-project .scaffold/
// directory and the user-level config and data directories.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// DirName is the name of the per-project scaffold directory.
	DirName = ".scaffold"

	// appName names the user-level XDG directories.
	appName = "scaffold"

	// DefaultSearchDepth bounds upward searches for a project directory.
	DefaultSearchDepth = 20
)

type Manager struct {
	searchDepth int
}

func NewManager() *Manager {
	return &Manager{searchDepth: DefaultSearchDepth}
}

// WithSearchDepth returns m with the upward search bounded to depth parent
// directories. Non-positive depths keep the default.
func (m *Manager) WithSearchDepth(depth int) *Manager {
	if depth > 0 {
		m.searchDepth = depth
	}
	return m
}

// Target returns the absolute path of the directory holding config.toml.
// Order of precedence is as follows:
//  1. Provided override
//  2. Nearest .scaffold/ dir at or above the working directory
//  3. User config dir ($XDG_CONFIG_HOME/scaffold)
//
// The chosen directory is created if missing.
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	default:
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}

		if project, ok := m.FindProjectDir(cwd); ok {
			dir = filepath.Join(project, DirName)
		} else {
			dir = UserConfigDir()
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating scaffold directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// FindProjectDir walks upward from start looking for a directory containing
// .scaffold/. It returns the project root (the parent of .scaffold/).
func (m *Manager) FindProjectDir(start string) (string, bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}

	for range m.searchDepth + 1 {
		info, err := os.Stat(filepath.Join(dir, DirName))
		if err == nil && info.IsDir() {
			return dir, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}

// UserConfigDir is the user-level config directory.
func UserConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// UserDataDir is the user-level data directory holding the template store
// and alias registry.
func UserDataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// DefaultTemplatesDir is the filesystem store's default directory.
func DefaultTemplatesDir() string {
	return filepath.Join(UserDataDir(), "templates")
}

// DefaultSQLitePath is the sqlite store's default database path.
func DefaultSQLitePath() string {
	return filepath.Join(UserDataDir(), "templates.db")
}

// DefaultAliasesPath is the alias registry's default location.
func DefaultAliasesPath() string {
	return filepath.Join(UserDataDir(), "aliases.json")
}
