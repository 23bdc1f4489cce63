package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/buybox/internal/model"
	"github.com/ppiankov/buybox/internal/observability"
	"github.com/ppiankov/buybox/internal/pipeline"
	"github.com/ppiankov/buybox/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <input.csv>",
	Short: "Look up every ASIN in a CSV file and write a results CSV",
	Long: `Batch processes a CSV with an "asin" (or "ASIN") column:
- Blank values are skipped; duplicates are looked up again
- ASINs are looked up in parallel with a configurable worker count
- A failed ASIN gets a row with its error; the others carry on
- Output rows follow the input order regardless of worker count

Example:
  buybox batch asins.csv
  buybox batch asins.csv --workers 8 --output-csv results.csv
  buybox batch asins.csv --domain amazon.de --metrics-file buybox.prom`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	defaults := model.DefaultConfig()

	// Concurrency flags
	batchCmd.Flags().Int("workers", defaults.Concurrency.Workers, "number of concurrent workers")
	batchCmd.Flags().String("output-csv", defaults.Output.CSVPath, "output CSV path")

	_ = viper.BindPFlag("concurrency.workers", batchCmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("output.csv_path", batchCmd.Flags().Lookup("output-csv"))
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	start := time.Now()

	cfg, err := buildConfig(viper.GetViper())
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger := newLogger(os.Stderr, cfg).With(slog.String("run_id", runID))
	metrics := observability.NewMetrics()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  buybox Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Domain:       %s\n", cfg.API.Domain)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output:       %s\n", cfg.Output.CSVPath)
	fmt.Fprintf(os.Stderr, "\n")

	// Create pipeline
	p, err := pipeline.NewPipeline(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	// Create batch processor
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers)

	logger.Info("batch started", slog.String("input", file), slog.Int("workers", cfg.Concurrency.Workers))
	records, err := processor.ProcessFile(cmd.Context(), file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount := 0
	failureCount := 0
	for _, rec := range records {
		if rec.Failed() {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %s\n", rec.ASIN, rec.Error)
			continue
		}
		successCount++
	}

	if err := p.Renderer().WriteCSV(cfg.Output.CSVPath, records); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if err := metrics.WriteTextfile(cfg.Output.MetricsFile); err != nil {
		logger.Warn("write metrics failed", slog.String("path", cfg.Output.MetricsFile), slog.String("error", err.Error()))
	}

	logger.Info("batch complete",
		slog.Int("rows", len(records)),
		slog.Int("failures", failureCount),
		slog.String("elapsed", elapsed(start)),
	)

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d ASINs\n", len(records))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Elapsed:   %s\n", elapsed(start))
	fmt.Fprintf(os.Stderr, "\n")

	fmt.Printf("Wrote %d row(s) to %s\n", len(records), cfg.Output.CSVPath)

	return nil
}
