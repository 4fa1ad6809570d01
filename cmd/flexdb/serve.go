package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jacentio/flexdb/internal/cli"
	"github.com/jacentio/flexdb/server"
)

func newServeCommand(stdout, stderr io.Writer) *cobra.Command {
	config := server.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API.",
		Long: `serve opens the configured store and serves the HTTP API until it
receives SIGINT or SIGTERM, then lets in-flight requests finish.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := server.NewLogger(config.Log, stderr)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := server.New(ctx, config, logger)
			if err != nil {
				return fmt.Errorf("start server: %w", err)
			}
			defer func() {
				if err := srv.Close(); err != nil {
					logger.Error("close server", "error", err)
				}
			}()
			return srv.Run(ctx)
		},
	}
	cli.ConfigFlags(cmd.Flags(), &config)
	return cmd
}
