package templatecmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scaffold/cmd/scaffold/session"
	"github.com/papercomputeco/scaffold/pkg/cliui"
	"github.com/papercomputeco/scaffold/pkg/template"
)

const addLongDesc string = `Store a template.

Reads a template authoring file or directory, validates it and stores it
under its content hash. Adding an identical template again reports the
existing hash. With --alias the hash is also bound to one or more aliases.

Examples:
  scaffold template add ./go-service
  scaffold template add ./go-service/template.yaml --alias go-service
  scaffold template add ./base.jsonc --alias base --alias base-v2`

const addShortDesc string = "Store a template"

type addCommander struct {
	aliases []string
}

func newAddCmd() *cobra.Command {
	cmder := &addCommander{}

	cmd := &cobra.Command{
		Use:   "add <file|dir>",
		Short: addShortDesc,
		Long:  addLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().StringArrayVarP(&cmder.aliases, "alias", "a", nil, "Alias to bind to the stored hash (repeatable)")

	return cmd
}

func (c *addCommander) run(cmd *cobra.Command, path string) error {
	t, err := template.Load(path)
	if err != nil {
		return err
	}

	s, err := session.Open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()

	if s.DryRun {
		hash, err := template.Hash(t)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s Would store %s %s\n", cliui.DimStyle.Render("●"), cliui.NameStyle.Render(t.Name), cliui.HashStyle.Render(hash))
		for _, alias := range c.aliases {
			fmt.Fprintf(out, "  %s Would alias %s\n", cliui.DimStyle.Render("●"), cliui.KeyStyle.Render(alias))
		}
		return nil
	}

	var (
		hash  string
		isNew bool
	)
	err = cliui.Step(cmd.ErrOrStderr(), "Storing "+t.Name, func() error {
		var err error
		hash, isNew, err = s.Catalog.Put(cmd.Context(), t)
		return err
	})
	if err != nil {
		return err
	}

	verb := "Stored"
	if !isNew {
		verb = "Already stored"
	}
	fmt.Fprintf(out, "  %s %s %s %s\n", cliui.SuccessMark, verb, cliui.NameStyle.Render(t.Name), cliui.HashStyle.Render(hash))

	for _, alias := range c.aliases {
		if _, err := s.Catalog.Resolver().RegisterAlias(cmd.Context(), hash, alias); err != nil {
			return fmt.Errorf("aliasing %s: %w", alias, err)
		}
		fmt.Fprintf(out, "  %s Alias %s -> %s\n", cliui.SuccessMark, cliui.KeyStyle.Render(alias), cliui.HashStyle.Render(template.ShortHash(hash)))
	}
	return nil
}
