package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/scaffold/pkg/dotdir"
)

const configFile = "config.toml"

// Config file format versions.
const (
	v0 = 0

	// CurrentV is the only version this build reads and writes.
	CurrentV = v0
)

// Configer reads and writes config.toml in the resolved config directory.
type Configer struct {
	targetPath string
}

// NewConfiger resolves the config directory (override, then the user config
// directory) and returns a Configer for its config.toml, whether or not the
// file exists yet.
func NewConfiger(override string) (*Configer, error) {
	dir, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return &Configer{targetPath: path}, nil
}

// GetTarget is the config.toml path.
func (c *Configer) GetTarget() string {
	return c.targetPath
}

// ValidConfigKeys lists the supported keys in config.toml section order.
func ValidConfigKeys() []string {
	keys := make([]string, len(configKeys))
	for i, k := range configKeys {
		keys[i] = k.name
	}
	return keys
}

// IsValidConfigKey reports whether key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := lookupKey(key)
	return ok
}

// LoadConfig reads config.toml. A missing file yields NewDefaultConfig();
// fields absent from the file take their defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	cfg, err := c.loadFile()
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// loadFile decodes config.toml without filling defaults.
func (c *Configer) loadFile() (*Config, error) {
	if c.targetPath == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(c.targetPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return &Config{}, nil
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfigTOML(data)
}

// SaveConfig writes cfg to config.toml, creating the directory when needed.
// The file is replaced atomically.
func (c *Configer) SaveConfig(cfg *Config) error {
	switch {
	case cfg == nil:
		return errors.New("cannot save nil config")
	case c.targetPath == "":
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	dir := filepath.Dir(c.targetPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, configFile+".*")
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.targetPath); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SetConfigValue validates value for key and persists it. Keys the file
// leaves unset stay unset.
func (c *Configer) SetConfigValue(key, value string) error {
	k, ok := lookupKey(key)
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.loadFile()
	if err != nil {
		return err
	}
	if err := k.set(cfg, value); err != nil {
		return err
	}
	return c.SaveConfig(cfg)
}

// GetConfigValue returns the effective value of key as a string.
func (c *Configer) GetConfigValue(key string) (string, error) {
	k, ok := lookupKey(key)
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}
	return k.get(cfg), nil
}

// ParseConfigTOML decodes data and rejects versions other than CurrentV.
// A missing version is accepted.
func ParseConfigTOML(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}
	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}
	return &cfg, nil
}

// applyDefaults fills the zero-valued fields of cfg from NewDefaultConfig.
// Empty storage paths stay empty; the path accessors resolve them.
func applyDefaults(cfg *Config) {
	d := NewDefaultConfig()

	fill(&cfg.Version, d.Version)
	fill(&cfg.Storage.Driver, d.Storage.Driver)
	fill(&cfg.Manifest.SearchDepth, d.Manifest.SearchDepth)
	fill(&cfg.Validation.Workers, d.Validation.Workers)
	fill(&cfg.Validation.ConflictResolution, d.Validation.ConflictResolution)
	if cfg.Variables.Strict == nil {
		cfg.Variables.Strict = d.Variables.Strict
	}
}

func fill[T comparable](dst *T, def T) {
	var zero T
	if *dst == zero {
		*dst = def
	}
}

// SetKeys returns the supported keys config.toml assigns explicitly. A
// missing file sets none.
func (c *Configer) SetKeys() (map[string]bool, error) {
	set := map[string]bool{}
	if c.targetPath == "" {
		return set, nil
	}

	data, err := os.ReadFile(c.targetPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return set, nil
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}
	for _, key := range md.Keys() {
		if name := key.String(); IsValidConfigKey(name) {
			set[name] = true
		}
	}
	return set, nil
}
