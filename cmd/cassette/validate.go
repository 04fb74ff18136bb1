package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the cassette configuration.

Checks:
  - YAML syntax is valid
  - Required fields are present
  - Kinds and cache driver are known
  - Source directory exists

Examples:
  cassette validate
  cassette validate --config /etc/cassette/cassette.yaml`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := stdout(cmd)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config valid\n", checkMark)

	info, err := os.Stat(cfg.SourceDir)
	if err != nil || !info.IsDir() {
		fmt.Fprintf(out, "  %s Source directory: %s\n", crossMark, cfg.SourceDir)
		return fmt.Errorf("source directory not found: %s", cfg.SourceDir)
	}
	fmt.Fprintf(out, "  %s Source directory: %s\n", checkMark, cfg.SourceDir)

	kinds, err := cfg.ModuleKinds()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  %s Cache: %s (%s)\n", checkMark, cfg.CacheDir, cfg.Cache.Driver)
	fmt.Fprintf(out, "  %s Kinds: %v\n", checkMark, kinds)
	fmt.Fprintf(out, "  %s Admin address: %s\n", checkMark, cfg.Addr())

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
