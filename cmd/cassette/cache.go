package main

import (
	"fmt"

	"github.com/artpar/cassette/domain/module"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage module caches",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [kind...]",
	Short: "Drop stored manifests",
	Long: `Drop the stored manifest of each named kind, or of every enabled kind
when none is named. The next build scans the sources again.

Examples:
  cassette cache clear
  cassette cache clear scripts templates`,
	RunE: runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	kinds := make([]module.Kind, 0, len(args))
	for _, arg := range args {
		kinds = append(kinds, module.ResolveKind(arg))
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	if err := a.ClearCache(ctx, kinds...); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	if len(kinds) == 0 {
		kinds = a.Kinds()
	}
	for _, kind := range kinds {
		fmt.Fprintf(stdout(cmd), "Cleared %s cache\n", kind)
	}
	return nil
}
