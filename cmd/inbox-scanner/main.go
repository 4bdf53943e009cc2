package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/inbox-data-requests/internal/config"
	"github.com/mikey/inbox-data-requests/internal/core"
	"github.com/mikey/inbox-data-requests/internal/di"
	"github.com/mikey/inbox-data-requests/internal/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "inbox-scanner",
		Short:         "Find the companies holding your data and send them GDPR requests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("log-level", "", "Logging level: debug, info, warn, error")

	rootCmd.AddCommand(newScanCmd(), newCompaniesCmd(), newRequestCmd())
	return rootCmd
}

// flagBinding maps a command flag onto a configuration key
type flagBinding struct {
	flag string
	key  string
}

// loadConfig reads the configuration file named by --config and lays the
// changed command flags over it.
func loadConfig(cmd *cobra.Command, bindings ...flagBinding) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.NewWithFile(path)
	if err != nil {
		return nil, err
	}

	bindings = append(bindings, flagBinding{flag: "log-level", key: "logging.level"})
	for _, b := range bindings {
		f := cmd.Flags().Lookup(b.flag)
		if f == nil {
			return nil, fmt.Errorf("unknown flag %q", b.flag)
		}
		if !f.Changed {
			continue
		}
		if err := cfg.GetViper().BindPFlag(b.key, f); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// withContainer builds the container for cfg and runs fn through it
func withContainer(cfg *config.Config, fn any) error {
	container, err := di.BuildContainer(cfg)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	return dig.RootCause(container.Invoke(fn))
}

// startMetrics serves /metrics in the background when configured
func startMetrics(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	addr := cfg.GetMetricsAddress()
	if addr == "" {
		return
	}
	go func() {
		if err := metrics.Serve(ctx, addr, logger); err != nil {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
}

func closeClient(llm core.LLMClient, logger *zap.Logger) {
	if closer, ok := llm.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
}
