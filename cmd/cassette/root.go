package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/artpar/cassette/bootstrap"
	"github.com/artpar/cassette/config"
	"github.com/artpar/cassette/core/formatter"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile      string
	sourceDir    string
	outputFormat string

	formatters = formatter.Defaults()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cassette",
	Short: "Compose script, stylesheet and template modules from a source tree",
	Long: `Cassette groups the assets of a source tree into modules, one container
per module kind, and keeps a manifest cache so unchanged trees are not
scanned again.

Quick start:
  cassette build --source ./assets   # Scan sources and write caches
  cassette serve                     # Serve the module admin API

Maintenance:
  cassette cache clear               # Drop stored manifests
  cassette validate                  # Validate configuration`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "cassette.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&sourceDir, "source", "s", "", "source directory (overrides the config file)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
}

// loadConfig resolves configuration from --source, the config file or the
// CASSETTE_* environment, in that order.
func loadConfig() (*config.Config, error) {
	if sourceDir != "" {
		return config.ForSource(sourceDir)
	}
	return config.LoadWithFallback(cfgFile)
}

// newApp builds a configured application. Logs go to stderr so command
// output on stdout stays clean.
func newApp() (*bootstrap.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	a, err := bootstrap.NewWithOptions(cfg, bootstrap.Options{
		LogOutput: os.Stderr,
		Version:   version,
	})
	if err != nil {
		return nil, fmt.Errorf("error initializing: %w", err)
	}
	return a, nil
}

// withInitializedApp builds the application, initializes its containers and
// runs fn. Containers are released afterwards.
func withInitializedApp(ctx context.Context, fn func(*bootstrap.App) error) (err error) {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := a.Initialize(ctx); err != nil {
		return err
	}
	return fn(a)
}

// output returns the formatter selected with --output.
func output() (formatter.Formatter, error) {
	return formatters.Get(outputFormat)
}

func stdout(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
