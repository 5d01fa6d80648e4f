// Package cli wires configuration, storage and transports into the
// buckets command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"buckets/internal/config"
	"buckets/internal/log"
)

// NewRootCommand builds the buckets command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "buckets",
		Short:         "Weekly bucket budgeting service",
		Long:          "Allocate weekly income into spending buckets, track transactions against them and export week summaries.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCommand(),
		newWorkerCommand(),
		newMigrateCommand(),
		newAllocateCommand(),
	)
	return root
}

// Execute is the main entry point called from main.go.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig loads and validates configuration and builds the process
// logger from it.
func loadConfig() (*config.Config, *log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err, log.FieldErrorType, log.ErrorTypeConfiguration)
		return nil, nil, err
	}
	return cfg, logger, nil
}
