// Package cli provides the command-line interface for fern.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// appKey is used to store the App in the command context.
type appKey struct{}

// noConfigCommands run without loading configuration
var noConfigCommands = map[string]bool{
	"help":       true,
	"completion": true,
	"version":    true,
	"types":      true,
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "fern",
		Short: "fern - vehicle pricing catalog sync",
		Long: `fern mirrors the FIPE vehicle pricing catalog into a relational store.

It walks vehicle types, brands, models and model years, persisting each level
idempotently so runs can be repeated and interrupted safely.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if noConfigCommands[cmd.Name()] {
				return nil
			}

			app, err := NewApp(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, app))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if app := GetApp(cmd.Context()); app != nil {
				app.Close()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")

	rootCmd.AddCommand(NewSyncCommand())
	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewTypesCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// GetApp retrieves the App from the command context.
func GetApp(ctx context.Context) *App {
	if ctx == nil {
		return nil
	}
	if app, ok := ctx.Value(appKey{}).(*App); ok {
		return app
	}
	return nil
}

func requireApp(cmd *cobra.Command) (*App, error) {
	app := GetApp(cmd.Context())
	if app == nil {
		return nil, fmt.Errorf("%s: configuration not loaded", cmd.Name())
	}
	return app, nil
}
