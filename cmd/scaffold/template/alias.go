package templatecmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scaffold/cmd/scaffold/session"
	"github.com/papercomputeco/scaffold/pkg/cliui"
	"github.com/papercomputeco/scaffold/pkg/template"
)

const aliasLongDesc string = `Bind an alias to a stored template.

The reference may be a full hash, a unique hash prefix or another alias.
An alias names exactly one hash: binding it to a different hash fails until
it is removed with "scaffold template unalias". Binding it to the same hash
again is a no-op.

Examples:
  scaffold template alias 3f2a9c1d go-service
  scaffold template alias go-service svc`

const aliasShortDesc string = "Bind an alias to a template"

func newAliasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias <ref> <alias>",
		Short: aliasShortDesc,
		Long:  aliasLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlias(cmd, args[0], args[1])
		},
	}

	return cmd
}

func runAlias(cmd *cobra.Command, ref, alias string) error {
	s, err := session.Open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	hash, err := s.Catalog.Resolver().RegisterAlias(cmd.Context(), ref, alias)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "  %s Alias %s -> %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(alias),
		cliui.HashStyle.Render(template.ShortHash(hash)),
	)
	return nil
}

const unaliasLongDesc string = `Remove an alias.

The template it named stays stored and remains reachable by hash.

Examples:
  scaffold template unalias svc`

const unaliasShortDesc string = "Remove an alias"

func newUnaliasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unalias <alias>",
		Short: unaliasShortDesc,
		Long:  unaliasLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnalias(cmd, args[0])
		},
	}

	return cmd
}

func runUnalias(cmd *cobra.Command, alias string) error {
	s, err := session.Open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	hash, err := s.Catalog.Resolver().UnregisterAlias(alias)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "  %s Removed alias %s %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(alias),
		cliui.DimStyle.Render("(was "+template.ShortHash(hash)+")"),
	)
	return nil
}
