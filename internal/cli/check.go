package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/factcheck"
)

var (
	checkContext string
	checkTimeout time.Duration
	noCache      bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <statement>",
	Short: "Fact-check a single statement",
	Long: `Check sends one statement to the configured fact-check provider and
prints the verdict as JSON. Without an API key the mock verdict table answers.

Example:
  truthseeker check "The Earth orbits the Sun"
  truthseeker check "Water boils at 90 degrees" --context "at sea level"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkContext, "context", "", "extra context sent with the statement")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 2*time.Minute, "overall timeout")
	checkCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the verdict cache")
}

func runCheck(cmd *cobra.Command, args []string) error {
	statement := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	checker, err := factcheck.New(ctx, cfg, logger.Named("factcheck"))
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Checking with %s: %s\n", checker.ProviderName(), statement)
	}

	result, err := checker.Check(ctx, statement, checkContext)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
