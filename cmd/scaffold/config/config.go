// Package configcmder provides the config command for managing persistent
// scaffold configuration stored in config.toml.
package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scaffold/pkg/cliui"
	"github.com/papercomputeco/scaffold/pkg/config"
)

const configLongDesc string = `Manage persistent scaffold configuration.

Configuration is stored as config.toml in the nearest project's .scaffold/
directory, or in the user config directory outside a project. It provides
default values for command flags. CLI flags and SCAFFOLD_* environment
variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.driver, storage.templates_dir, storage.sqlite_path,
  storage.aliases_path, manifest.search_depth, variables.strict,
  validation.workers, validation.conflict_resolution, log.file

Use subcommands to get, set, or list configuration values:
  scaffold config set <key> <value>    Set a configuration value
  scaffold config get <key>            Get a configuration value
  scaffold config list                 List all configuration values

Examples:
  scaffold config set storage.driver sqlite
  scaffold config set validation.conflict_resolution prompt
  scaffold config get validation.workers
  scaffold config list`

const configShortDesc string = "Manage persistent scaffold configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func printTarget(cmd *cobra.Command, cfger *config.Configer) {
	fmt.Fprintf(cmd.OutOrStdout(), "\n  %s %s\n\n",
		cliui.KeyStyle.Render("Config file:"),
		cliui.DimStyle.Render(cfger.GetTarget()),
	)
}
