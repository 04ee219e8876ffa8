package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spendcube",
	Short: "Spendcube - Procurement spend classification pipeline",
	Long: `Spendcube classifies procurement spend records against a reference
taxonomy. Each batch is routed to the relevant domain skills, classified
record by record, checked for low-confidence judgments, and totalled per
category.

Every stage is checkpointed, so an interrupted run can be resumed, and
progress can be streamed to other processes over Redis.`,
	Version: version,
	// Prevent silent success when unknown flags are passed to the root command
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "spendcube.yml", "Path to spendcube.yml (defaults apply when missing)")
}
