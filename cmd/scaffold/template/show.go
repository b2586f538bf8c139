package templatecmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scaffold/cmd/scaffold/session"
	"github.com/papercomputeco/scaffold/pkg/cliui"
	"github.com/papercomputeco/scaffold/pkg/fsprovider"
	"github.com/papercomputeco/scaffold/pkg/template"
)

const showLongDesc string = `Describe a stored template.

Renders the template's description, variables, folders, files, rules and
dependencies. With --json the stored document is printed instead.

Examples:
  scaffold template show go-service
  scaffold template show 3f2a9c1d --json`

const showShortDesc string = "Describe a stored template"

func newShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <ref>",
		Short: showShortDesc,
		Long:  showLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0], asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the stored template document")

	return cmd
}

func runShow(cmd *cobra.Command, ref string, asJSON bool) error {
	s, err := session.Open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	hash, t, err := s.Catalog.Get(cmd.Context(), ref)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		data, err := fsprovider.MarshalJSON(t)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	aliases, err := s.Registry.Aliases(hash)
	if err != nil {
		return err
	}

	rendered, err := cliui.RenderMarkdown(describe(hash, aliases, t))
	if err != nil {
		s.Logger.Debug("markdown rendering failed", "error", err)
	}
	fmt.Fprint(out, rendered)
	return nil
}

// describe renders t as markdown.
func describe(hash string, aliases []string, t *template.Template) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s %s\n\n", t.Name, t.Version)
	if t.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", t.Description)
	}
	fmt.Fprintf(&sb, "- **Hash:** `%s`\n", hash)
	if len(aliases) > 0 {
		fmt.Fprintf(&sb, "- **Aliases:** %s\n", strings.Join(aliases, ", "))
	}
	if t.RootFolder != "" {
		fmt.Fprintf(&sb, "- **Root folder:** `%s`\n", t.RootFolder)
	}
	if t.Rules.ConflictResolution != "" {
		fmt.Fprintf(&sb, "- **Conflict resolution:** %s\n", t.Rules.ConflictResolution)
	}
	sb.WriteString("\n")

	if len(t.Variables) > 0 {
		sb.WriteString("## Variables\n\n| Name | Type | Required | Default | Description |\n|---|---|---|---|---|\n")
		for _, v := range t.Variables {
			def := ""
			if v.Default != nil {
				def = fmt.Sprint(v.Default)
			}
			typ := v.Type
			if typ == "" {
				typ = template.VarString
			}
			fmt.Fprintf(&sb, "| %s | %s | %t | %s | %s |\n", v.Name, typ, v.Required, def, v.Description)
		}
		sb.WriteString("\n")
	}

	if len(t.Folders) > 0 {
		sb.WriteString("## Folders\n\n")
		for _, f := range t.Folders {
			fmt.Fprintf(&sb, "- `%s/`%s\n", f.Path, suffix(f.Description))
		}
		sb.WriteString("\n")
	}

	if len(t.Files) > 0 {
		sb.WriteString("## Files\n\n")
		for _, f := range t.Files {
			fmt.Fprintf(&sb, "- `%s`%s\n", f.Path, suffix(f.Description))
		}
		sb.WriteString("\n")
	}

	if len(t.Rules.Rules) > 0 {
		sb.WriteString("## Rules\n\n| Id | Type | Target | Severity |\n|---|---|---|---|\n")
		for _, r := range t.Rules.Rules {
			fmt.Fprintf(&sb, "| %s | %s | `%s` | %s |\n", r.RuleID(), r.Type, r.Target, r.EffectiveSeverity())
		}
		sb.WriteString("\n")
	}

	if len(t.Dependencies) > 0 {
		sb.WriteString("## Dependencies\n\n")
		for _, d := range t.Dependencies {
			fmt.Fprintf(&sb, "- `%s`\n", d)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func suffix(description string) string {
	if description == "" {
		return ""
	}
	return " - " + description
}
