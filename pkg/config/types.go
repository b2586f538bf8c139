package config

import (
	"fmt"
	"strconv"

	"github.com/papercomputeco/scaffold/pkg/conflict"
)

// Config represents the persistent scaffold configuration stored as
// config.toml in the config directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version    int              `toml:"version"`
	Storage    StorageConfig    `toml:"storage"`
	Manifest   ManifestConfig   `toml:"manifest"`
	Variables  VariablesConfig  `toml:"variables"`
	Validation ValidationConfig `toml:"validation"`
	Log        LogConfig        `toml:"log"`
}

// StorageConfig selects the template store and where it and the alias
// registry live. Empty paths mean the user data directory defaults.
type StorageConfig struct {
	Driver       string `toml:"driver,omitempty"`
	TemplatesDir string `toml:"templates_dir,omitempty"`
	SQLitePath   string `toml:"sqlite_path,omitempty"`
	AliasesPath  string `toml:"aliases_path,omitempty"`
}

// ManifestConfig holds project manifest discovery settings.
type ManifestConfig struct {
	SearchDepth uint `toml:"search_depth,omitempty"`
}

// VariablesConfig holds substitution settings.
type VariablesConfig struct {
	// Strict makes unresolved placeholders an error. Nil means true.
	Strict *bool `toml:"strict,omitempty"`
}

// ValidationConfig holds validation and repair settings.
type ValidationConfig struct {
	Workers            uint   `toml:"workers,omitempty"`
	ConflictResolution string `toml:"conflict_resolution,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// File additionally receives JSON logs when set.
	File string `toml:"file,omitempty"`
}

// StrictVariables reports the effective variables.strict value.
func (c *Config) StrictVariables() bool {
	return c.Variables.Strict == nil || *c.Variables.Strict
}

// configKey binds a dotted key name to its accessors on *Config.
type configKey struct {
	name string
	get  func(c *Config) string
	set  func(c *Config, v string) error
}

func lookupKey(name string) (configKey, bool) {
	for _, k := range configKeys {
		if k.name == name {
			return k, true
		}
	}
	return configKey{}, false
}

func parseUint(key, v string) (uint, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return uint(n), nil
}

func formatUint(n uint) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(n), 10)
}

// configKeys lists every supported key in config.toml section order.
var configKeys = []configKey{
	{
		name: "storage.driver",
		get:  func(c *Config) string { return c.Storage.Driver },
		set: func(c *Config, v string) error {
			switch v {
			case DriverFilesystem, DriverSQLite, DriverMemory:
				c.Storage.Driver = v
				return nil
			default:
				return fmt.Errorf("invalid value for storage.driver: %q (want %s, %s or %s)", v, DriverFilesystem, DriverSQLite, DriverMemory)
			}
		},
	},
	{
		name: "storage.templates_dir",
		get:  func(c *Config) string { return c.Storage.TemplatesDir },
		set:  func(c *Config, v string) error { c.Storage.TemplatesDir = v; return nil },
	},
	{
		name: "storage.sqlite_path",
		get:  func(c *Config) string { return c.Storage.SQLitePath },
		set:  func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	{
		name: "storage.aliases_path",
		get:  func(c *Config) string { return c.Storage.AliasesPath },
		set:  func(c *Config, v string) error { c.Storage.AliasesPath = v; return nil },
	},
	{
		name: "manifest.search_depth",
		get:  func(c *Config) string { return formatUint(c.Manifest.SearchDepth) },
		set: func(c *Config, v string) error {
			n, err := parseUint("manifest.search_depth", v)
			if err != nil {
				return err
			}
			c.Manifest.SearchDepth = n
			return nil
		},
	},
	{
		name: "variables.strict",
		get:  func(c *Config) string { return strconv.FormatBool(c.StrictVariables()) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for variables.strict: %w", err)
			}
			c.Variables.Strict = &b
			return nil
		},
	},
	{
		name: "validation.workers",
		get:  func(c *Config) string { return formatUint(c.Validation.Workers) },
		set: func(c *Config, v string) error {
			n, err := parseUint("validation.workers", v)
			if err != nil {
				return err
			}
			c.Validation.Workers = n
			return nil
		},
	},
	{
		name: "validation.conflict_resolution",
		get:  func(c *Config) string { return c.Validation.ConflictResolution },
		set: func(c *Config, v string) error {
			p, err := conflict.ParsePolicy(v)
			if err != nil {
				return fmt.Errorf("invalid value for validation.conflict_resolution: %w", err)
			}
			c.Validation.ConflictResolution = string(p)
			return nil
		},
	},
	{
		name: "log.file",
		get:  func(c *Config) string { return c.Log.File },
		set:  func(c *Config, v string) error { c.Log.File = v; return nil },
	},
}
