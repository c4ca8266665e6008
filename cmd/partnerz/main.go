// Command partnerz runs the Partnerz server and its admin/terminal tools.
//
//	partnerz serve                      HTTP server
//	partnerz migrate [--print]          apply (or print) the PostgreSQL schema
//	partnerz route                      sign in from the terminal and show where you land
//	partnerz onboard saas --user ID     run the SaaS onboarding wizard
//	partnerz onboard affiliate --user ID
//
// Configuration comes from the environment; a .env file in the working
// directory is loaded first.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sakif/partnerz/internal/config"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "partnerz",
	Short:         "Affiliate marketplace: session routing and profile bootstrap",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading .env: %w", err)
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		// Logs go to stderr so the terminal commands can print results on stdout.
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.LogLevel,
		}))
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
