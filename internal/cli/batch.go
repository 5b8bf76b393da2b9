package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/factcheck"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/worker"
)

var (
	batchOutput  string
	batchContext string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Fact-check statements from a file in parallel",
	Long: `Batch fact-checks one statement per line:
- Blank lines and lines starting with # are skipped
- Duplicate lines are checked once
- Statements are checked concurrently, sharing the provider rate limit
- Results are written as a JSON report in input order

Example:
  truthseeker batch statements.txt
  truthseeker batch statements.txt --concurrency 8 --output report.json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("concurrency", 0, "number of concurrent workers (default: concurrency.workers, then CPU count)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "-", "report path (- for stdout)")
	batchCmd.Flags().StringVar(&batchContext, "context", "", "extra context sent with every statement")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")

	_ = viper.BindPFlag("concurrency.workers", batchCmd.Flags().Lookup("concurrency"))
}

// batchWorkers sizes the pool from cfg, falling back to the CPU count
func batchWorkers(cfg *model.Config) int {
	if cfg.Concurrency.Workers > 0 {
		return cfg.Concurrency.Workers
	}
	return runtime.NumCPU()
}

// BatchReport is the JSON document written by the batch command
type BatchReport struct {
	Provider    string                `json:"provider"`
	GeneratedAt time.Time             `json:"generated_at"`
	Total       int                   `json:"total"`
	Failures    int                   `json:"failures"`
	Verdicts    map[model.Verdict]int `json:"verdicts"`
	Results     []*worker.CheckResult `json:"results"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	statements, err := worker.ReadStatementsFromFile(file)
	if err != nil {
		return err
	}

	checker, err := factcheck.New(ctx, cfg, logger.Named("factcheck"))
	if err != nil {
		return err
	}

	workers := batchWorkers(cfg)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Statements:   %d\n", len(statements))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Provider:     %s\n", checker.ProviderName())
	fmt.Fprintf(os.Stderr, "\n")

	processor := worker.NewBatchProcessor(checker, workers)
	results := processor.ProcessStatements(ctx, statements, batchContext)

	report := buildReport(checker.ProviderName(), results)
	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Statement, r.Error)
		} else if verbose {
			fmt.Fprintf(os.Stderr, "✓ %s: %s\n", r.Statement, r.Result.Verdict)
		}
	}

	out := cmd.OutOrStdout()
	if batchOutput != "-" {
		f, err := os.Create(batchOutput)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	if err := writeReport(out, report); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n  Total: %d  Failures: %d\n", report.Total, report.Failures)
	if len(results) < len(statements) {
		return fmt.Errorf("batch interrupted after %d of %d statements: %w", len(results), len(statements), ctx.Err())
	}
	return nil
}

func buildReport(provider string, results []*worker.CheckResult) *BatchReport {
	report := &BatchReport{
		Provider:    provider,
		GeneratedAt: time.Now().UTC(),
		Total:       len(results),
		Verdicts:    make(map[model.Verdict]int),
		Results:     results,
	}
	for _, r := range results {
		if r.Error != nil || r.Result == nil {
			report.Failures++
			continue
		}
		report.Verdicts[r.Result.Verdict]++
	}
	return report
}

func writeReport(w io.Writer, report *BatchReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
