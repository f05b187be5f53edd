package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"s3preset/internal/app"
	"s3preset/internal/config"
	"s3preset/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "s3preset",
	Short: "Create buckets and objects on an S3 gateway for load tests",
	Long: `Creates a pool of buckets and uploads random payload objects into each of them in parallel,
then writes a JSON manifest listing what was created. In update mode the buckets listed in an
existing manifest are reused and only objects are uploaded.

Exit codes: 0 success, 1 no buckets available, 2 no objects uploaded, 3 any other error.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPreset,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (YAML)")
	config.RegisterFlags(rootCmd.Flags())
}

func runPreset(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	provisioner, err := app.NewFromConfig(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create provisioner: %w", err)
	}
	defer func() {
		if closeErr := provisioner.Close(); closeErr != nil {
			log.Error("Error closing provisioner", zap.Error(closeErr))
		}
	}()

	if cfg.MetricsAddr != "" {
		collector := provisioner.Metrics()
		if err := collector.StartServer(cfg.MetricsAddr); err != nil {
			log.Error("Failed to start metrics server", zap.Error(err))
		} else {
			log.Info("Serving metrics", zap.String("addr", collector.Addr()))
			defer func() {
				if err := collector.Shutdown(); err != nil {
					log.Warn("Metrics server stopped with error", zap.Error(err))
				}
			}()
		}
	}

	// In-flight backend calls are aborted on SIGINT/SIGTERM; the pool still
	// collects an outcome for every task.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, err = provisioner.Run(ctx)
	return err
}

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, app.ErrNoBuckets), errors.Is(err, app.ErrNoObjects):
		fmt.Fprintln(os.Stderr, err)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(app.ExitCode(err))
}
