package config

import (
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag describes a config-backed CLI flag once so that every command
// registering it (--conflict appears on create, extend and sync) agrees on
// its name, shorthand, default and help text.
type Flag struct {
	Name        string
	Shorthand   string
	ViperKey    string
	Description string
}

// FlagSet maps registry keys to their flag definitions.
type FlagSet map[string]Flag

// Registry keys accepted by the Add*Flag helpers and BindRegisteredFlags.
const (
	FlagStorageDriver = "storage-driver"
	FlagTemplatesDir  = "templates-dir"
	FlagSQLite        = "sqlite"
	FlagAliases       = "aliases"
	FlagSearchDepth   = "search-depth"
	FlagWorkers       = "workers"
	FlagConflict      = "conflict"
	FlagLogFile       = "log-file"
)

// Flags is the registry of every config-backed flag.
var Flags = FlagSet{
	FlagStorageDriver: {
		Name:        "storage-driver",
		ViperKey:    "storage.driver",
		Description: "Template store driver (filesystem, sqlite, memory)",
	},
	FlagTemplatesDir: {
		Name:        "templates-dir",
		ViperKey:    "storage.templates_dir",
		Description: "Directory of the filesystem template store",
	},
	FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "storage.sqlite_path",
		Description: "Path to the SQLite template store",
	},
	FlagAliases: {
		Name:        "aliases",
		ViperKey:    "storage.aliases_path",
		Description: "Path to the alias registry",
	},
	FlagSearchDepth: {
		Name:        "search-depth",
		ViperKey:    "manifest.search_depth",
		Description: "How many parent directories to search for a project manifest",
	},
	FlagWorkers: {
		Name:        "workers",
		ViperKey:    "validation.workers",
		Description: "Number of concurrent rule evaluators",
	},
	FlagConflict: {
		Name:        "conflict",
		Shorthand:   "c",
		ViperKey:    "validation.conflict_resolution",
		Description: "Conflict policy when overwriting local edits (skip, replace, prompt, merge)",
	},
	FlagLogFile: {
		Name:        "log-file",
		ViperKey:    "log.file",
		Description: "Also write JSON logs to this file",
	},
}

// AddStringFlag registers the string flag key from fs on cmd's local flags.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	stringFlag(cmd.Flags(), fs, key, target)
}

// AddPersistentStringFlag registers the string flag key on cmd and its
// subcommands.
func AddPersistentStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	stringFlag(cmd.PersistentFlags(), fs, key, target)
}

// AddUintFlag registers the uint flag key from fs on cmd's local flags.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, key string, target *uint) {
	uintFlag(cmd.Flags(), fs, key, target)
}

// AddPersistentUintFlag registers the uint flag key on cmd and its
// subcommands.
func AddPersistentUintFlag(cmd *cobra.Command, fs FlagSet, key string, target *uint) {
	uintFlag(cmd.PersistentFlags(), fs, key, target)
}

func stringFlag(flags *pflag.FlagSet, fs FlagSet, key string, target *string) {
	if def, ok := fs[key]; ok {
		flags.StringVarP(target, def.Name, def.Shorthand, defaults().GetString(def.ViperKey), def.Description)
	}
}

func uintFlag(flags *pflag.FlagSet, fs FlagSet, key string, target *uint) {
	if def, ok := fs[key]; ok {
		flags.UintVarP(target, def.Name, def.Shorthand, defaults().GetUint(def.ViperKey), def.Description)
	}
}

// BindRegisteredFlags binds the named registry flags found on cmd to their
// viper keys, giving flag > env > config file > default precedence. Keys
// missing from fs or cmd are ignored.
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, keys []string) {
	for _, key := range keys {
		def, ok := fs[key]
		if !ok {
			continue
		}
		if f := cmd.Flags().Lookup(def.Name); f != nil {
			_ = v.BindPFlag(def.ViperKey, f)
		}
	}
}

// defaults is a viper instance holding only NewDefaultConfig values.
var defaults = sync.OnceValue(func() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
})
