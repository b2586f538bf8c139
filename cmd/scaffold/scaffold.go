// Package scaffoldcmder
package scaffoldcmder

import (
	"github.com/spf13/cobra"

	checkcmder "github.com/papercomputeco/scaffold/cmd/scaffold/check"
	cleancmder "github.com/papercomputeco/scaffold/cmd/scaffold/clean"
	configcmder "github.com/papercomputeco/scaffold/cmd/scaffold/config"
	createcmder "github.com/papercomputeco/scaffold/cmd/scaffold/create"
	extendcmder "github.com/papercomputeco/scaffold/cmd/scaffold/extend"
	initcmder "github.com/papercomputeco/scaffold/cmd/scaffold/init"
	"github.com/papercomputeco/scaffold/cmd/scaffold/session"
	statuscmder "github.com/papercomputeco/scaffold/cmd/scaffold/status"
	synccmder "github.com/papercomputeco/scaffold/cmd/scaffold/sync"
	templatecmder "github.com/papercomputeco/scaffold/cmd/scaffold/template"
	versioncmder "github.com/papercomputeco/scaffold/cmd/version"
	"github.com/papercomputeco/scaffold/pkg/config"
)

const scaffoldLongDesc string = `Scaffold creates projects from content-addressed templates and keeps
them conformant.

Templates are stored by the hash of their content and can be referenced by
alias, full hash or a unique short hash. Every project records what was
applied to it in .scaffold/manifest.json, which later runs validate and
repair against.

Typical workflow:
  scaffold template add ./go-service --alias go-service
  scaffold create go-service ./payments --var name=payments
  scaffold check
  scaffold sync`

const scaffoldShortDesc string = "Scaffold - project templates that stay in sync"

func NewScaffoldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "scaffold",
		Short:        scaffoldShortDesc,
		Long:         scaffoldLongDesc,
		SilenceUsage: true,
	}

	var (
		driver, templatesDir, sqlitePath, aliases, logFile string
		searchDepth, workers                               uint
	)

	// Global flags
	cmd.PersistentFlags().Bool(session.FlagDryRun, false, "Report intended writes without performing them")
	cmd.PersistentFlags().BoolP(session.FlagForce, "f", false, "Overwrite local edits and remove aliased templates")
	cmd.PersistentFlags().BoolP(session.FlagVerbose, "v", false, "Show passed rules and informational logs")
	cmd.PersistentFlags().BoolP(session.FlagDebug, "d", false, "Enable debug logging")
	cmd.PersistentFlags().String(session.FlagConfigDir, "", "Directory holding config.toml")

	config.AddPersistentStringFlag(cmd, config.Flags, config.FlagStorageDriver, &driver)
	config.AddPersistentStringFlag(cmd, config.Flags, config.FlagTemplatesDir, &templatesDir)
	config.AddPersistentStringFlag(cmd, config.Flags, config.FlagSQLite, &sqlitePath)
	config.AddPersistentStringFlag(cmd, config.Flags, config.FlagAliases, &aliases)
	config.AddPersistentStringFlag(cmd, config.Flags, config.FlagLogFile, &logFile)
	config.AddPersistentUintFlag(cmd, config.Flags, config.FlagSearchDepth, &searchDepth)
	config.AddPersistentUintFlag(cmd, config.Flags, config.FlagWorkers, &workers)

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(createcmder.NewCreateCmd())
	cmd.AddCommand(extendcmder.NewExtendCmd())
	cmd.AddCommand(checkcmder.NewCheckCmd())
	cmd.AddCommand(synccmder.NewSyncCmd())
	cmd.AddCommand(cleancmder.NewCleanCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(templatecmder.NewTemplateCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
