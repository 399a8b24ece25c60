package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"karoo_lodge/internal/adapters/adminapi"
	"karoo_lodge/internal/adapters/observability"
	"karoo_lodge/internal/shared"
)

var (
	// Global flags
	apiURL     string
	verbose    bool
	jsonOutput bool

	cfg shared.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lodgectl",
	Short: "Operator tooling for the lodge content store",
	Long: `lodgectl loads, cleans and arranges the lodge content.

Local commands (seed, dedupe, migrate) talk to the store configured by
STORE_DRIVER with elevated credentials. Remote commands (reorder, section,
dedupe --remote) go through the admin HTTP API.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = shared.Load()
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		log.Logger = observability.NewLogger("dev", level)
		zerolog.DefaultContextLogger = &log.Logger
		if apiURL != "" {
			cfg.AdminAPIURL = apiURL
		}
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Admin API base URL (default $ADMIN_API_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

func apiClient() (*adminapi.Client, error) {
	return adminapi.New(cfg.AdminAPIURL, cfg.AdminToken, cfg.GatewayRPS, adminapi.WithMaintenanceToken(cfg.MaintenanceToken))
}

// report prints v as JSON with --json and as text otherwise.
func report(cmd *cobra.Command, v any, text string) error {
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}
