// Package templatecmder provides the template command for managing the
// content-addressed template store and its aliases.
package templatecmder

import (
	"github.com/spf13/cobra"
)

const templateLongDesc string = `Manage stored templates.

Templates are stored by the SHA-256 hash of their canonical content, so
storing the same template twice is a no-op. Any command taking a template
reference accepts an alias, a full hash, or a hash prefix of at least 8
characters that matches exactly one stored template.

Templates are authored as JSON, JSONC or YAML documents, or as a directory
holding template.{json,jsonc,yaml} plus a files/ directory whose entries
file definitions can reference with "source".

Use subcommands to manage templates:
  scaffold template add <path> [--alias a]   Store a template
  scaffold template list                     List stored templates
  scaffold template show <ref>               Describe a template
  scaffold template alias <ref> <alias>      Bind an alias
  scaffold template unalias <alias>          Remove an alias
  scaffold template delete <ref>             Delete a template
  scaffold template hash <path>              Print a template's hash`

const templateShortDesc string = "Manage stored templates"

func NewTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"templates", "tpl"},
		Short:   templateShortDesc,
		Long:    templateLongDesc,
	}

	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newAliasCmd())
	cmd.AddCommand(newUnaliasCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newHashCmd())

	return cmd
}
