package main

import (
	"context"
	"errors"

	"github.com/artpar/cassette/bootstrap"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Build the modules and rebuild them when sources change",
	Long: `Build the module containers, then watch the source tree and rebuild
after every burst of changes. The cache directory and hidden paths are
ignored. Stop with Ctrl-C.

Examples:
  cassette watch --source ./assets
  CASSETTE_WATCH_DEBOUNCE=1s cassette watch`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	return withInitializedApp(ctx, func(a *bootstrap.App) error {
		err := a.Watch(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}
