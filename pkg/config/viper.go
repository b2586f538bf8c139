package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/scaffold/pkg/dotdir"
)

// EnvPrefix prefixes environment overrides, e.g. SCAFFOLD_VALIDATION_WORKERS.
const EnvPrefix = "SCAFFOLD"

// InitViper returns a viper instance layered as, from lowest to highest:
// NewDefaultConfig, config.toml in the resolved config directory, and
// SCAFFOLD_* environment variables. Flags are layered on top with
// BindRegisteredFlags. A missing config.toml is not an error.
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v)

	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	v.SetConfigName(strings.TrimSuffix(configFile, ".toml"))
	v.SetConfigType("toml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &viper.ConfigFileNotFoundError{}) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

// FromViper resolves the effective Config from every layer of v.
func FromViper(v *viper.Viper) *Config {
	strict := v.GetBool("variables.strict")

	var cfg Config
	cfg.Version = v.GetInt("version")
	cfg.Storage = StorageConfig{
		Driver:       v.GetString("storage.driver"),
		TemplatesDir: v.GetString("storage.templates_dir"),
		SQLitePath:   v.GetString("storage.sqlite_path"),
		AliasesPath:  v.GetString("storage.aliases_path"),
	}
	cfg.Manifest.SearchDepth = v.GetUint("manifest.search_depth")
	cfg.Variables.Strict = &strict
	cfg.Validation = ValidationConfig{
		Workers:            v.GetUint("validation.workers"),
		ConflictResolution: v.GetString("validation.conflict_resolution"),
	}
	cfg.Log.File = v.GetString("log.file")

	applyDefaults(&cfg)
	return &cfg
}

func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()
	for key, value := range map[string]any{
		"version":                        d.Version,
		"storage.driver":                 d.Storage.Driver,
		"storage.templates_dir":          d.Storage.TemplatesDir,
		"storage.sqlite_path":            d.Storage.SQLitePath,
		"storage.aliases_path":           d.Storage.AliasesPath,
		"manifest.search_depth":          d.Manifest.SearchDepth,
		"variables.strict":               d.StrictVariables(),
		"validation.workers":             d.Validation.Workers,
		"validation.conflict_resolution": d.Validation.ConflictResolution,
		"log.file":                       d.Log.File,
	} {
		v.SetDefault(key, value)
	}
}
