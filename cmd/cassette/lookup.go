package main

import (
	"fmt"

	"github.com/artpar/cassette/bootstrap"
	"github.com/artpar/cassette/core/formatter"
	"github.com/artpar/cassette/domain/module"
	"github.com/spf13/cobra"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <kind> <path>",
	Short: "Find the module containing a path",
	Long: `Build the modules of a kind and print the one containing path, with
its assets. Paths are relative to the source directory and matched without
regard to case or separator style.

Examples:
  cassette lookup scripts scripts/app/main.js
  cassette lookup templates 'views\home' -o yaml`,
	Args: cobra.ExactArgs(2),
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	kind := module.ResolveKind(args[0])
	f, err := output()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	return withInitializedApp(ctx, func(a *bootstrap.App) error {
		c, err := a.Application.ModuleContainer(kind)
		if err != nil {
			return err
		}
		m, ok := c.FindModule(args[1])
		if !ok {
			return fmt.Errorf("no %s contains %s", kind, args[1])
		}

		dir := m.Directory()
		if dir == "" {
			dir = "."
		}
		assets := make([]string, 0, len(m.Assets()))
		for _, asset := range m.Assets() {
			assets = append(assets, m.AssetPath(asset.SourceFilename()))
		}

		return f.FormatRecord(stdout(cmd), formatter.Record{
			Name:    string(kind),
			Columns: []string{"kind", "directory", "assets"},
			Values: map[string]any{
				"kind":      string(kind),
				"directory": dir,
				"assets":    assets,
			},
		}, formatter.FormatOptions{})
	})
}
