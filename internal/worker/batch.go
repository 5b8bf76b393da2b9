package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
)

// Checker fact-checks one statement
type Checker interface {
	Check(ctx context.Context, statement, extraContext string) (*model.FactCheckResult, error)
}

// CheckResult is the outcome of checking one statement of a batch
type CheckResult struct {
	Index     int                    `json:"-"`
	Statement string                 `json:"statement"`
	Result    *model.FactCheckResult `json:"result,omitempty"`
	Error     error                  `json:"-"`
	ErrorText string                 `json:"error,omitempty"`
}

// BatchProcessor fact-checks many statements concurrently
type BatchProcessor struct {
	checker     Checker
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(checker Checker, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		checker:     checker,
		concurrency: concurrency,
	}
}

// ProcessStatements checks every statement and returns results in input
// order. Statements not reached before ctx is cancelled are left out.
func (b *BatchProcessor) ProcessStatements(ctx context.Context, statements []string, extraContext string) []*CheckResult {
	indices := make([]int, len(statements))
	for i := range indices {
		indices[i] = i
	}

	checked, ok := Map(ctx, b.concurrency, indices, func(ctx context.Context, i int) *CheckResult {
		result, err := b.checker.Check(ctx, statements[i], extraContext)
		res := &CheckResult{Index: i, Statement: statements[i], Result: result, Error: err}
		if err != nil {
			res.ErrorText = err.Error()
		}
		return res
	})

	results := make([]*CheckResult, 0, len(checked))
	for i, res := range checked {
		if ok[i] {
			results = append(results, res)
		}
	}
	return results
}

// ProcessFile reads statements from a file and checks them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*CheckResult, error) {
	statements, err := ReadStatementsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read statements: %w", err)
	}

	return b.ProcessStatements(ctx, statements, ""), nil
}

// ReadStatementsFromFile reads one statement per line
func ReadStatementsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadStatements(file)
}

// ReadStatements skips blank and # lines and drops duplicates
func ReadStatements(r io.Reader) ([]string, error) {
	var statements []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			statements = append(statements, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}

	return statements, nil
}
