package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/yaoqinxue-cmd/BriStack/internal/worker"
)

var (
	concurrency  int
	batchJSON    string
	batchTimeout time.Duration
)

// batchResult is the JSON shape of one batch entry
type batchResult struct {
	Path       string `json:"path"`
	Claims     int    `json:"claims"`
	Assessment any    `json:"assessment"`
	Error      string `json:"error,omitempty"`
}

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Score every issue in a directory concurrently",
	Long: `Batch runs the fidelity check on every issue file in a directory:
- Issues are *.html, *.htm, *.md and *.txt files
- Each issue's key claims are read from <name>.claims next to it
- Issues are assessed in parallel with a configurable worker count
- LLM calls share the configured per-provider rate limit

Example:
  bristack batch ./issues
  bristack batch ./issues --concurrency 8 --json fidelity.json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: batch.concurrency)")
	batchCmd.Flags().StringVar(&batchJSON, "json", "", "write all assessments as JSON to this path")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	dir := args[0]

	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}

	workers := concurrency
	if workers <= 0 {
		workers = a.cfg.Batch.Concurrency
	}

	assessor := a.assessor()
	if !assessor.IsEnabled() {
		fmt.Fprintln(os.Stderr, "No LLM provider configured (llm.provider); nothing to score.")
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  BriStack Batch Fidelity\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Directory:  %s\n", dir)
	fmt.Fprintf(os.Stderr, "  Workers:    %d\n", workers)
	fmt.Fprintf(os.Stderr, "  LLM:        %s\n", assessor.ProviderName())
	fmt.Fprintf(os.Stderr, "\n")

	results, err := worker.NewBatchAssessor(assessor, workers).AssessDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("assess directory: %w", err)
	}

	scored, unscored, failed := 0, 0, 0
	out := make([]batchResult, 0, len(results))

	for _, r := range results {
		entry := batchResult{Path: r.Path, Claims: r.Claims}
		switch {
		case r.Error != nil:
			failed++
			entry.Error = r.Error.Error()
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Path, r.Error)
		case r.Assessment == nil:
			unscored++
			fmt.Fprintf(os.Stderr, "- %s: no score\n", r.Path)
		default:
			scored++
			entry.Assessment = r.Assessment
			fmt.Fprintf(os.Stderr, "✓ %s (penetration: %d/100, lost: %d)\n", r.Path, r.Assessment.Score, len(r.Assessment.LostClaims))
		}
		out = append(out, entry)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d issues\n", len(results))
	fmt.Fprintf(os.Stderr, "  Scored:    %d\n", scored)
	fmt.Fprintf(os.Stderr, "  No score:  %d\n", unscored)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failed)
	fmt.Fprintf(os.Stderr, "\n")

	if batchJSON != "" {
		return writeJSON(out, batchJSON)
	}
	return nil
}
