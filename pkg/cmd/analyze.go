package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yeisme/file2crashes/pkg/configs"
	ctxPkg "github.com/yeisme/file2crashes/pkg/context"
	"github.com/yeisme/file2crashes/pkg/internal/service"
	"github.com/yeisme/file2crashes/pkg/internal/storage"
	"github.com/yeisme/file2crashes/pkg/internal/types"
)

var analyzeFlags struct {
	date      string
	channels  []string
	products  []string
	maxDays   int
	limit     int
	threshold int
	dryRun    bool
	full      bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "run one analysis for a reference date and store the evidence",
	Example: `  file2crashes analyze --date 2024-03-05 --channel nightly --product Firefox
  file2crashes analyze --dry-run --max-days 5 --threshold 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configs.GetConfig()

		q, err := analyzeQuery(cmd.Flags())
		if err != nil {
			return err
		}

		date, ok := service.ParseDate(analyzeFlags.date, time.Now().UTC())
		if !ok {
			return fmt.Errorf("invalid --date %q, want YYYY-MM-DD, today or yesterday", analyzeFlags.date)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		mgr, err := storage.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		defer mgr.Close()

		ctx = ctxPkg.WithStorageManager(ctx, mgr)
		svc := service.NewAnalysisService(ctx, cfg)

		if !analyzeFlags.dryRun {
			if _, err := svc.Crashes().Migrate(ctx); err != nil {
				return err
			}
		}

		p := svc.Params(date, service.TriggerCLI)
		q.Apply(&p)

		report, err := svc.Update(ctx, p)
		if err != nil {
			return err
		}

		if !analyzeFlags.full {
			report.Result = nil
		}

		return printJSON(cmd.OutOrStdout(), report)
	},
}

// analyzeQuery 收集显式给出的参数并按与 POST /analysis/run 相同的规则校验.
func analyzeQuery(flags *pflag.FlagSet) (types.AnalysisRunQuery, error) {
	q := types.AnalysisRunQuery{Date: analyzeFlags.date, DryRun: analyzeFlags.dryRun}

	if flags.Changed("channel") {
		q.Channels = analyzeFlags.channels
	}

	if flags.Changed("product") {
		q.Products = analyzeFlags.products
	}

	if flags.Changed("max-days") {
		q.MaxDays = &analyzeFlags.maxDays
	}

	if flags.Changed("limit") {
		q.Limit = &analyzeFlags.limit
	}

	if flags.Changed("threshold") {
		q.Threshold = &analyzeFlags.threshold
	}

	if err := q.Validate(); err != nil {
		return q, fmt.Errorf("invalid flags: %w", err)
	}

	return q, nil
}

func registerAnalyzeCommands() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeFlags.date, "date", "d", "today", "reference date (YYYY-MM-DD, today, yesterday)")
	f.StringSliceVar(&analyzeFlags.channels, "channel", nil, "release channels, defaults to analysis.channels")
	f.StringSliceVar(&analyzeFlags.products, "product", nil, "products, defaults to analysis.products")
	f.IntVar(&analyzeFlags.maxDays, "max-days", configs.DefaultAnalysisMaxDays, "history days before the last day")
	f.IntVar(&analyzeFlags.limit, "limit", configs.DefaultAnalysisLimit, "max signatures in the histogram query")
	f.IntVar(&analyzeFlags.threshold, "threshold", configs.DefaultAnalysisThreshold, "min crashes on the last day")
	f.BoolVar(&analyzeFlags.dryRun, "dry-run", false, "analyze only, do not store, archive or publish")
	f.BoolVar(&analyzeFlags.full, "full", false, "print the full file -> evidence result")

	rootCmd.AddCommand(analyzeCmd)
}
