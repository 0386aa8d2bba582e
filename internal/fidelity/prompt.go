package fidelity

import (
	"fmt"
	"strings"
)

// BuildSummaryPrompt asks the oracle to compress content the way a reader's
// AI assistant would
func BuildSummaryPrompt(content string, words int) string {
	return fmt.Sprintf(`Compress the following article into a summary of at most %d words. Keep only the most important information.

%s`, words, content)
}

// BuildVerifyPrompt asks the oracle which key claims survive in summary
func BuildVerifyPrompt(summary string, claims []string) string {
	var list strings.Builder
	for i, c := range claims {
		fmt.Fprintf(&list, "%d. %s\n", i+1, c)
	}

	return fmt.Sprintf(`Below is an AI-generated summary of an article, followed by the key claims its author considers essential.
For each claim, decide whether the summary conveys it, directly or indirectly.

AI summary:
%s

Key claims:
%s
Reply with JSON only, in this format:
{
  "results": [{"index": 1, "point": "claim text", "preserved": true}],
  "suggestions": ["how the article could make lost claims harder to drop"]
}`, summary, list.String())
}
