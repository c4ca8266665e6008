package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/partnerz/internal/config"
	"github.com/sakif/partnerz/internal/repository/postgres"
	"github.com/sakif/partnerz/internal/server"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Long: "Applies the PostgreSQL schema (tables plus the profiles.metadata upgrade).\n" +
		"SQLite databases migrate themselves on open; for them this only opens the file.\n" +
		"With --print the SQL is written to stdout instead, for pasting into a SQL editor.",
	RunE: func(cmd *cobra.Command, args []string) error {
		printOnly, err := cmd.Flags().GetBool("print")
		if err != nil {
			return err
		}
		if printOnly {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(postgres.Schema(), ";\n\n")+";")
			return nil
		}

		ctx := cmd.Context()
		if cfg.DBDriver != config.DriverPostgres {
			store, err := server.OpenStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "sqlite database %s is up to date\n", cfg.DBPath)
			return nil
		}

		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("postgres schema applied", "statements", len(postgres.Schema()))
		fmt.Fprintln(cmd.OutOrStdout(), "postgres schema is up to date")
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("print", false, "print the PostgreSQL schema instead of applying it")
	rootCmd.AddCommand(migrateCmd)
}
