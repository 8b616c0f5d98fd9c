// Package cli implements the monitor's command-line interface.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	DryRun  bool
	Verbose bool
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "abcmon",
		Short: "NC ABC inventory monitor",
		Long: `Monitors the NC ABC warehouse inventory feed and alerts clients
by SMS and email when items they track come back in stock.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVar(&opts.DryRun, "dry-run", false, "log outbound alerts instead of sending them")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewClientCommand(opts))
	cmd.AddCommand(NewMirrorCommand(opts))

	return cmd
}
