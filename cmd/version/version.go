// Package versioncmder prints the build metadata stamped into the binary.
package versioncmder

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/scaffold/pkg/utils"
)

type versionCommander struct {
	short bool
}

func NewVersionCmd() *cobra.Command {
	cmder := &versionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the scaffold version",
		Long:  "Print the version, commit, build time and Go runtime of the scaffold binary.",
		Args:  cobra.NoArgs,
		RunE:  cmder.run,
	}

	cmd.Flags().BoolVar(&cmder.short, "short", false, "Print only the version")

	return cmd
}

func (c *versionCommander) run(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if c.short {
		fmt.Fprintln(out, utils.Version)
		return nil
	}

	fmt.Fprintf(out, "Version: %s\n", utils.Version)
	fmt.Fprintf(out, "Sha: %s\n", utils.Sha)
	fmt.Fprintf(out, "Built at: %s\n", utils.Buildtime)
	fmt.Fprintf(out, "Go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return nil
}
