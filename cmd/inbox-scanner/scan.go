package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/inbox-data-requests/internal/adapters/probe"
	"github.com/mikey/inbox-data-requests/internal/aggregate"
	"github.com/mikey/inbox-data-requests/internal/config"
	"github.com/mikey/inbox-data-requests/internal/core"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan recent mail and classify the companies that sent it",
		RunE:  runScan,
	}

	flags := cmd.Flags()
	flags.Int("days", 7, "Number of days to scan, counting today")
	flags.Int("limit", 10, "Maximum messages per category")
	flags.StringSlice("categories", nil, "Categories to scan (default Promotions, Updates)")
	flags.StringSlice("ignore", nil, "Categories to skip, e.g. Social,Forums")
	flags.Int("concurrency", 1, "Messages classified at once")
	flags.String("output", "", "Write the scan result as JSON to this file")
	flags.Bool("no-cache", false, "Classify every message even when cached")

	return cmd
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd,
		flagBinding{flag: "days", key: "scan.days"},
		flagBinding{flag: "limit", key: "scan.limit_per_category"},
		flagBinding{flag: "categories", key: "scan.categories"},
		flagBinding{flag: "ignore", key: "scan.ignored_categories"},
		flagBinding{flag: "concurrency", key: "scan.concurrency"},
	)
	if err != nil {
		return err
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Set("cache.enabled", false)
	}
	output, _ := cmd.Flags().GetString("output")

	ctx := cmd.Context()

	return withContainer(cfg, func(
		svc *core.ScanService,
		opts core.FetchOptions,
		cache core.ClassificationCache,
		prober *probe.Prober,
		llm core.LLMClient,
		logger *zap.Logger,
	) error {
		defer logger.Sync() //nolint:errcheck
		defer closeClient(llm, logger)
		if s, ok := cache.(interface{ Stop() }); ok {
			defer s.Stop()
		}
		startMetrics(ctx, cfg, logger)

		result, err := svc.Scan(ctx, opts)
		if err != nil {
			return err
		}

		if output != "" {
			if err := saveScan(output, result); err != nil {
				return err
			}
			logger.Info("Scan result written", zap.String("file", output))
		}

		return printScan(cmd, cfg, result, prober, logger)
	})
}

func printScan(cmd *cobra.Command, cfg *config.Config, result *core.ScanResult, prober *probe.Prober, logger *zap.Logger) error {
	logoCfg := cfg.GetLogo()
	records := result.Records()

	logos := aggregate.BuildLogoSet(cmd.Context(), records, aggregate.LogoConfig{
		BaseURL: logoCfg.BaseURL,
		Token:   logoCfg.Token,
	}, prober, logger)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanned %d messages, %d logos found\n", result.Len(), len(logos))
	for _, u := range logos.Shuffled() {
		fmt.Fprintln(out, u)
	}

	table := aggregate.BuildCompanyTable(records)
	if table.Len() == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No companies found")
		return nil
	}
	return renderCompanyTable(out, table)
}
