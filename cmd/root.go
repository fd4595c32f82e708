// Package cmd defines and implements the clubsync CLI commands.
package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clubsync",
		Short: "Crawls the club's channels and stores their content",
		Long: `clubsync walks every readable channel of the club's Discord guild,
including threads discovered along the way, and stores messages, members
and pin reactions into a local database for the site build to consume.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); environment variables use the CLUBSYNC prefix")
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the CLI with the given base context.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}
