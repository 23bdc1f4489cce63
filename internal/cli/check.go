package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ppiankov/buybox/internal/observability"
	"github.com/ppiankov/buybox/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var outJSON string

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <asin>",
	Short: "Look up a single ASIN and print its buy box report",
	Long: `Check fetches the product and offers views of one ASIN and prints:
- Title, price and currency
- Whether a buy box exists and which seller holds it
- Prime eligibility and discount against the RRP

A failed lookup prints an ERROR line instead of the report.

Example:
  buybox check B08N5WRWNW
  buybox check B08N5WRWNW --domain amazon.com
  buybox check B08N5WRWNW --json record.json`,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(1)(cmd, args); err != nil {
			return err
		}
		if strings.TrimSpace(args[0]) == "" {
			return errors.New("ASIN must not be empty")
		}
		return nil
	},
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	// Output flags
	checkCmd.Flags().StringVar(&outJSON, "json", "", "also write the record as JSON to this path")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(viper.GetViper())
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg)
	metrics := observability.NewMetrics()

	p, err := pipeline.NewPipeline(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	logger.Debug("checking ASIN", slog.String("asin", args[0]), slog.String("domain", cfg.API.Domain))

	rec := p.Lookup(cmd.Context(), args[0])
	if err := p.Renderer().RenderTable(os.Stdout, rec); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if outJSON != "" {
		if err := p.Renderer().RenderJSON(rec, outJSON); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		logger.Debug("wrote JSON record", slog.String("path", outJSON))
	}

	if err := metrics.WriteTextfile(cfg.Output.MetricsFile); err != nil {
		logger.Warn("write metrics failed", slog.String("path", cfg.Output.MetricsFile), slog.String("error", err.Error()))
	}

	// A failed lookup is reported in the output, not through the exit code
	return nil
}
