// Hearthctl is a command-line controller for networked fireplaces.
//
// It provides appliance discovery, status queries, and direct control
// commands (power, flame height, fan, thermostat) for fireplaces that
// speak the LAN control protocol on UDP port 3300.
//
// Usage:
//
//	hearthctl [command] [flags]
//
// Running without arguments shows the status of the default appliance.
// See 'hearthctl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hearthlink/hearthlink/internal/logging"
	"github.com/hearthlink/hearthlink/internal/version"
)

func main() {
	defer logging.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hearthctl",
	Short: "Fireplace Network Controller",
	Long: `A command-line controller for networked fireplaces.

Provides appliance discovery, status queries, and direct control of
power, flame height, fan speed, and thermostat target over the local
network.

If no command is specified, the status of the default appliance is shown.`,
	Version: version.Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Silent by default; set HEARTHLINK_LOG_LEVEL=debug for detail.
		if err := logging.InitializeFromEnv(); err != nil {
			// Ignore error, GetLogger will create fallback logger
			_ = err
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: show status when no subcommand provided
		return runStatus(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hearthctl %s (commit: %s)\n", version.Version, version.Commit)
	},
}
