package main

import (
	"github.com/spf13/cobra"

	"github.com/sakif/partnerz/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := server.OpenStore(ctx, cfg)
		if err != nil {
			return err
		}

		srv, err := server.New(ctx, cfg, store, logger)
		if err != nil {
			store.Close()
			return err
		}

		// Start blocks until SIGINT/SIGTERM and closes the store on the way out.
		return srv.Start()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
