package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/artpar/cassette/bootstrap"
	"github.com/artpar/cassette/core/formatter"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Scan the sources and build every module container",
	Long: `Build the module containers of every enabled kind.

Kinds whose cache is fresh are restored from the stored manifest; the rest
are scanned and their manifests written.

Examples:
  cassette build
  cassette build --source ./assets -o json
  CASSETTE_CACHE_DRIVER=none cassette build`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	f, err := output()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	return withInitializedApp(ctx, func(a *bootstrap.App) error {
		list := formatter.List{
			Name:    "containers",
			Columns: []string{"kind", "modules", "assets"},
		}
		for _, kind := range a.Kinds() {
			c, err := a.Application.ModuleContainer(kind)
			if err != nil {
				return err
			}
			assets := 0
			for _, m := range c.Modules() {
				assets += len(m.Assets())
			}
			list.Records = append(list.Records, map[string]any{
				"kind":    string(kind),
				"modules": c.Len(),
				"assets":  assets,
			})
		}
		return f.FormatList(stdout(cmd), list, formatter.FormatOptions{})
	})
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
