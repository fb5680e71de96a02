package commands

import "github.com/spf13/cobra"

// NewRootCmd creates the spreadcard command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "spreadcard",
		Short:         "Spread-scheduled practice cards",
		Long:          "Generates practice content, reviews cards and schedules spread repetitions between reviews",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().String("db", "spreadcard.db", "path to the SQLite collection")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (json, console)")

	rootCmd.AddCommand(NewGenerateCmd())
	rootCmd.AddCommand(NewMobileCmd())
	rootCmd.AddCommand(NewAnswerCmd())
	rootCmd.AddCommand(NewFindCmd())
	rootCmd.AddCommand(NewSourceCmd())
	rootCmd.AddCommand(NewSyncCmd())
	rootCmd.AddCommand(NewServeCmd())
	return rootCmd
}
