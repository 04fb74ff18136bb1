package main

import (
	"context"
	"errors"

	"github.com/artpar/cassette/bootstrap"
	"github.com/spf13/cobra"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build the modules and serve the admin API",
	Long: `Build the module containers and start the admin HTTP server.

Endpoints:
  GET /healthz                    - Liveness
  GET /version                    - Build version
  GET /metrics                    - Prometheus metrics (metrics.enabled)
  GET /modules                    - Initialized kinds
  GET /modules/{kind}             - Modules of a kind
  GET /modules/{kind}/lookup?path - Module containing a path

Environment variables:
  CASSETTE_SOURCE_DIR      - Source directory (required without a config file)
  CASSETTE_SERVER_PORT     - Server port (default: 8088)
  CASSETTE_LOG_LEVEL       - Log level: debug, info, warn, error

Examples:
  cassette serve
  cassette serve --watch --source ./assets`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "rebuild modules when sources change")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	return withInitializedApp(ctx, func(a *bootstrap.App) error {
		if !serveWatch {
			return a.Serve(ctx)
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		watchErr := make(chan error, 1)
		go func() {
			watchErr <- a.Watch(ctx)
		}()

		err := a.Serve(ctx)
		cancel()
		if werr := <-watchErr; werr != nil && !errors.Is(werr, context.Canceled) {
			a.Logger.Error().Err(werr).Msg("watcher stopped")
		}
		return err
	})
}
