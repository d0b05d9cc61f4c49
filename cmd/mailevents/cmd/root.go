package cmd

import "github.com/spf13/cobra"

var (
	cfgFile  string
	logLevel string

	// Version is set by the main package via ldflags.
	Version = "dev"
)

// NewRootCmd creates the root mailevents command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "mailevents",
		Short:        "Ingest email delivery webhook events into the analytics store",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (TOML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	rootCmd.AddCommand(newFileCmd())
	rootCmd.AddCommand(newBucketCmd())
	rootCmd.AddCommand(newFollowCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newReportCmd())

	return rootCmd
}
