// Package session wires the scaffold stack (config, logger, template store,
// alias registry, manifest service, validation engine) for a single command
// invocation from the root command's persistent flags.
package session

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scaffold/cmd/scaffold/prompt"
	"github.com/papercomputeco/scaffold/pkg/config"
	"github.com/papercomputeco/scaffold/pkg/conflict"
	"github.com/papercomputeco/scaffold/pkg/fsprovider"
	"github.com/papercomputeco/scaffold/pkg/git"
	"github.com/papercomputeco/scaffold/pkg/identity"
	"github.com/papercomputeco/scaffold/pkg/logger"
	"github.com/papercomputeco/scaffold/pkg/manifest"
	"github.com/papercomputeco/scaffold/pkg/scaffold"
	"github.com/papercomputeco/scaffold/pkg/storage"
	"github.com/papercomputeco/scaffold/pkg/storage/filesystem"
	"github.com/papercomputeco/scaffold/pkg/storage/inmemory"
	"github.com/papercomputeco/scaffold/pkg/storage/sqlite"
	"github.com/papercomputeco/scaffold/pkg/validate"
)

// Global flag names shared by every subcommand.
const (
	FlagDryRun    = "dry-run"
	FlagForce     = "force"
	FlagVerbose   = "verbose"
	FlagDebug     = "debug"
	FlagConfigDir = "config-dir"
)

// configFlags are the config-backed persistent flags bound into viper.
var configFlags = []string{
	config.FlagStorageDriver,
	config.FlagTemplatesDir,
	config.FlagSQLite,
	config.FlagAliases,
	config.FlagSearchDepth,
	config.FlagWorkers,
	config.FlagConflict,
	config.FlagLogFile,
}

// Session is the wired stack of one command invocation.
type Session struct {
	Config    *config.Config
	Logger    *slog.Logger
	Provider  fsprovider.Provider
	Store     storage.Driver
	Registry  *identity.Registry
	Catalog   *identity.Catalog
	Manifests *manifest.Service
	Resolver  *conflict.Resolver
	Engine    *validate.Engine
	Service   *scaffold.Service

	DryRun  bool
	Force   bool
	Verbose bool

	simulated *fsprovider.Simulated
	closers   []io.Closer
}

// Open builds a Session from cmd's flags and configuration.
func Open(cmd *cobra.Command) (*Session, error) {
	flags := cmd.Flags()
	dryRun, _ := flags.GetBool(FlagDryRun)
	force, _ := flags.GetBool(FlagForce)
	verbose, _ := flags.GetBool(FlagVerbose)
	debug, _ := flags.GetBool(FlagDebug)
	configDir, _ := flags.GetString(FlagConfigDir)

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, configFlags)
	cfg := config.FromViper(v)

	s := &Session{
		Config:  cfg,
		DryRun:  dryRun,
		Force:   force,
		Verbose: verbose,
	}

	if err := s.openLogger(cmd.ErrOrStderr(), debug, verbose); err != nil {
		return nil, err
	}

	var provider fsprovider.Provider = fsprovider.NewOS()
	if dryRun {
		s.simulated = fsprovider.NewSimulated(provider, s.Logger)
		provider = s.simulated
	}
	s.Provider = provider

	store, err := s.openStore()
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Store = store

	s.Registry = identity.NewRegistry(cfg.AliasesPath(), provider, s.Logger)
	s.Catalog = identity.NewCatalog(store, s.Registry, s.Logger)

	s.Manifests = manifest.NewService(
		manifest.WithProvider(provider),
		manifest.WithSearchDepth(int(cfg.Manifest.SearchDepth)),
		manifest.WithLogger(s.Logger),
	)

	policy, err := conflict.ParsePolicy(cfg.Validation.ConflictResolution)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Resolver = conflict.NewResolver(policy,
		conflict.WithPrompter(prompt.New(cmd.InOrStdin(), cmd.ErrOrStderr())),
		conflict.WithMerger(conflict.AdditiveMerger{}),
		conflict.WithLogger(s.Logger),
	)

	s.Engine = validate.New(s.Store,
		validate.WithProvider(provider),
		validate.WithResolver(s.Resolver),
		validate.WithWorkers(cfg.Validation.Workers),
		validate.WithStrictVariables(cfg.StrictVariables()),
		validate.WithLogger(s.Logger),
	)

	s.Service = scaffold.NewService(s.Catalog, s.Manifests, s.Engine,
		scaffold.WithProvider(provider),
		scaffold.WithResolver(s.Resolver),
		scaffold.WithStrictVariables(cfg.StrictVariables()),
		scaffold.WithDryRun(dryRun),
		scaffold.WithActor(actor()),
		scaffold.WithLogger(s.Logger),
	)

	s.Logger.Debug("session opened",
		"driver", cfg.Storage.Driver,
		"dry_run", dryRun,
		"workers", cfg.Validation.Workers,
	)
	return s, nil
}

// Policy is the conflict policy override requested on the command line:
// an explicit --conflict wins, --force means replace, otherwise none.
func (s *Session) Policy(cmd *cobra.Command) (conflict.Policy, error) {
	if f := cmd.Flags().Lookup(config.Flags[config.FlagConflict].Name); f != nil && f.Changed {
		return conflict.ParsePolicy(f.Value.String())
	}
	if s.Force {
		return conflict.PolicyReplace, nil
	}
	return "", nil
}

// Operations returns the writes a dry run would have performed.
func (s *Session) Operations() []fsprovider.Operation {
	if s.simulated == nil {
		return nil
	}
	return s.simulated.Operations()
}

// Close releases the store and log file.
func (s *Session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i].Close()
	}
	s.closers = nil
}

func (s *Session) openLogger(stderr io.Writer, debug, verbose bool) error {
	level := slog.LevelWarn
	switch {
	case debug:
		level = slog.LevelDebug
	case verbose:
		level = slog.LevelInfo
	}

	pretty := logger.New(logger.WithPretty(true), logger.WithLevel(level), logger.WithWriter(stderr))

	if s.Config.Log.File == "" {
		s.Logger = pretty
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.Config.Log.File), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(s.Config.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	s.closers = append(s.closers, f)

	s.Logger = logger.Multi(pretty, logger.New(logger.WithJSON(true), logger.WithDebug(true), logger.WithWriter(f)))
	return nil
}

func (s *Session) openStore() (storage.Driver, error) {
	switch s.Config.Storage.Driver {
	case config.DriverSQLite:
		path := s.Config.SQLitePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite directory: %w", err)
		}
		driver, err := sqlite.NewDriver(path, s.Logger)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		s.closers = append(s.closers, driver)
		s.Logger.Debug("using sqlite store", "path", path)
		return driver, nil

	case config.DriverMemory:
		s.Logger.Debug("using in-memory store")
		return inmemory.NewDriver(), nil

	default:
		dir := s.Config.TemplatesDir()
		s.Logger.Debug("using filesystem store", "dir", dir)
		return filesystem.NewDriver(dir, s.Provider, s.Logger), nil
	}
}

// actor is the git user name, falling back to the OS user.
func actor() string {
	if name := git.UserName("."); name != "" {
		return name
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}
