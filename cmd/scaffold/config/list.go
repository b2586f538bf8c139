package configcmder

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scaffold/pkg/cliui"
	"github.com/papercomputeco/scaffold/pkg/config"
)

const listLongDesc string = `List every configuration key with its effective value.

Keys missing from config.toml show their built-in default and are marked as
such. Environment variables and flags are not reflected here.

Examples:
  scaffold config list
  scaffold config list --json`

const listShortDesc string = "List all configuration values"

type listCommander struct {
	json bool
}

func newListCmd() *cobra.Command {
	cmder := &listCommander{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   listShortDesc,
		Long:    listLongDesc,
		Args:    cobra.NoArgs,
		RunE:    cmder.run,
	}

	cmd.Flags().BoolVar(&cmder.json, "json", false, "Print key/value pairs as JSON")

	return cmd
}

func (c *listCommander) run(cmd *cobra.Command, _ []string) error {
	configDir, _ := cmd.Flags().GetString("config-dir")
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	set, err := cfger.SetKeys()
	if err != nil {
		return err
	}

	keys := config.ValidConfigKeys()
	settings := make([]cliui.Setting, 0, len(keys))
	for _, key := range keys {
		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}
		settings = append(settings, cliui.Setting{Key: key, Value: value, Default: !set[key]})
	}

	out := cmd.OutOrStdout()
	if c.json {
		values := make(map[string]string, len(settings))
		for _, s := range settings {
			values[s.Key] = s.Value
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(values)
	}

	printTarget(cmd, cfger)
	cliui.SettingsTable(out, settings)
	return nil
}
