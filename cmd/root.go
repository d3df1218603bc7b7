package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/merchstats/reportgate/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "reportgate",
	Short: "Authenticated reporting gateway for merchandising data",
	Long: `Reportgate fronts the merchandising data service with an authenticated
HTTP API. Administrators request sales reports over JSON; the gateway verifies
the caller, enforces per-user rate limits, and dispatches the report
procedures against the backing store.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	// Global flags documented for discoverability; configuration is read
	// from the environment in config.Load.
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: DATABASE_URL)")
	rootCmd.PersistentFlags().String("server-addr", "", "Server bind address (env: SERVER_ADDR)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: DEBUG)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
