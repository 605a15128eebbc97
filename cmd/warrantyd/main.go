// Command warrantyd serves the warranty claim API and runs its background jobs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
)

func buildVersion() string {
	if commit == "none" {
		return version
	}
	return fmt.Sprintf("%s (%s)", version, commit)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "warrantyd",
		Short:         "Warranty claim service for a digital goods storefront",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.Version = buildVersion()
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file (env WARRANTY_* overrides)")

	rootCmd.AddCommand(
		serveCmd(&configPath),
		syncCatalogCmd(&configPath),
		checkCmd(&configPath),
		tokenCmd(&configPath),
		migrateCmd(&configPath),
		configCmd(),
	)
	return rootCmd
}
