package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/yaoqinxue-cmd/BriStack/internal/content"
	"github.com/yaoqinxue-cmd/BriStack/internal/fidelity"
	"github.com/yaoqinxue-cmd/BriStack/internal/model"
	"github.com/yaoqinxue-cmd/BriStack/internal/worker"
)

var (
	claims         []string
	claimsFile     string
	outJSON        string
	publishTimeout time.Duration
)

// publishCmd represents the publish command
var publishCmd = &cobra.Command{
	Use:   "publish <file|url>",
	Short: "Score an issue's AI fidelity before publishing",
	Long: `Publish runs the content fidelity check on an issue:
- Read the issue from a file (HTML, Markdown or text) or fetch it by URL
- Convert it to plain text
- Ask the configured LLM to compress it as a reader's assistant would
- Ask the LLM which of the author's key claims survived
- Report the penetration score, lost claims and suggestions

The score is advisory: publish never fails because of it. Without an LLM
provider configured no score is produced.

Example:
  bristack publish issue-42.html --claim "Async beats meetings" --claim "Write decisions down"
  bristack publish issue-42.md --claims-file issue-42.claims --json fidelity.json
  bristack publish https://letters.example.com/p/issue-42 --claims-file issue-42.claims`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringArrayVar(&claims, "claim", nil, "key claim (repeatable)")
	publishCmd.Flags().StringVar(&claimsFile, "claims-file", "", "file with one key claim per line (default: <file>.claims if present)")
	publishCmd.Flags().StringVar(&outJSON, "json", "", "write the assessment JSON to this path (default: stdout)")
	publishCmd.Flags().DurationVar(&publishTimeout, "timeout", 2*time.Minute, "overall timeout for fetching and the two LLM calls")
}

func runPublish(cmd *cobra.Command, args []string) error {
	path := args[0]

	keyClaims, err := collectClaims(path)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), publishTimeout)
	defer cancel()

	text, err := readIssue(ctx, a, path)
	if err != nil {
		return err
	}

	assessor := a.assessor()
	if !assessor.IsEnabled() {
		fmt.Fprintln(os.Stderr, "No LLM provider configured (llm.provider); publishing without a fidelity score.")
		return nil
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Assessing %s against %d key claims with %s...\n", path, len(keyClaims), assessor.ProviderName())
	}

	assessment := assessor.Assess(ctx, text, keyClaims)
	if assessment == nil {
		fmt.Fprintln(os.Stderr, "Fidelity score unavailable (no key claims, or the LLM call failed); publishing without it.")
		return nil
	}

	printAssessment(os.Stderr, path, text, assessment)
	return writeJSON(assessment, outJSON)
}

// readIssue loads an issue from disk or, for URLs, over HTTP
func readIssue(ctx context.Context, a *app, path string) (string, error) {
	if !content.IsURL(path) {
		return worker.ReadIssueText(path)
	}

	html, err := a.fetcher().Fetch(ctx, path)
	if err != nil {
		return "", fmt.Errorf("fetch issue: %w", err)
	}
	return content.PlainText(html)
}

// collectClaims merges --claim flags with the claims file
func collectClaims(issuePath string) ([]string, error) {
	all := append([]string{}, claims...)

	file := claimsFile
	if file == "" && !content.IsURL(issuePath) {
		candidate := worker.ClaimsPathFor(issuePath)
		if _, err := os.Stat(candidate); err == nil {
			file = candidate
		}
	}
	if file != "" {
		fromFile, err := worker.ReadClaimsFile(file)
		if err != nil {
			return nil, fmt.Errorf("read claims: %w", err)
		}
		all = append(all, fromFile...)
	}

	return fidelity.NormalizeClaims(all), nil
}

func printAssessment(w io.Writer, path, text string, a *model.FidelityAssessment) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  AI Penetration: %d/100  (%s)\n", a.Score, path)
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Claims preserved: %d/%d   Reading time: ~%d min\n\n", len(a.PreservedClaims), a.Total(), content.ReadingTime(text))
	fmt.Fprintf(w, "  AI summary (%s/%s):\n    %s\n\n", a.Provider, a.Model, a.AISummary)

	for _, c := range a.PreservedClaims {
		fmt.Fprintf(w, "  ✓ %s\n", c)
	}
	for _, c := range a.LostClaims {
		fmt.Fprintf(w, "  ✗ %s\n", c)
	}
	if len(a.Suggestions) > 0 {
		fmt.Fprintf(w, "\n  Suggestions:\n")
		for _, s := range a.Suggestions {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	fmt.Fprintf(w, "\n")
}

func writeJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", path)
	return nil
}
