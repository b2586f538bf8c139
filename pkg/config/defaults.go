package config

import (
	"github.com/papercomputeco/scaffold/pkg/conflict"
	"github.com/papercomputeco/scaffold/pkg/dotdir"
)

// Template store drivers.
const (
	DriverFilesystem = "filesystem"
	DriverSQLite     = "sqlite"
	DriverMemory     = "memory"
)

const (
	defaultDriver      = DriverFilesystem
	defaultSearchDepth = dotdir.DefaultSearchDepth
	defaultWorkers     = 4
	defaultConflict    = string(conflict.PolicySkip)
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	strict := true
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Driver: defaultDriver,
		},
		Manifest: ManifestConfig{
			SearchDepth: defaultSearchDepth,
		},
		Variables: VariablesConfig{
			Strict: &strict,
		},
		Validation: ValidationConfig{
			Workers:            defaultWorkers,
			ConflictResolution: defaultConflict,
		},
	}
}

// TemplatesDir is the filesystem store directory.
func (c *Config) TemplatesDir() string {
	if c.Storage.TemplatesDir != "" {
		return c.Storage.TemplatesDir
	}
	return dotdir.DefaultTemplatesDir()
}

// SQLitePath is the sqlite store database path.
func (c *Config) SQLitePath() string {
	if c.Storage.SQLitePath != "" {
		return c.Storage.SQLitePath
	}
	return dotdir.DefaultSQLitePath()
}

// AliasesPath is the alias registry document path.
func (c *Config) AliasesPath() string {
	if c.Storage.AliasesPath != "" {
		return c.Storage.AliasesPath
	}
	return dotdir.DefaultAliasesPath()
}
