package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var (
	statsIssue string
	statsJSON  bool
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show human reach figures from the event log",
	Long: `Stats aggregates the interaction log into human reach figures:
human vs bot events, human opens and scrolls, agent and MCP queries, and a
breakdown of bot traffic by type.

Example:
  bristack stats
  bristack stats --issue issue-42 --json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsIssue, "issue", "", "restrict to one issue")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.store.ReachStats(cmd.Context(), statsIssue)
	if err != nil {
		return fmt.Errorf("reach stats: %w", err)
	}

	if statsJSON {
		return writeJSON(stats, "")
	}

	scope := "all issues"
	if statsIssue != "" {
		scope = statsIssue
	}

	fmt.Printf("Human reach (%s)\n\n", scope)
	fmt.Printf("  Total events:   %d\n", stats.TotalEvents)
	fmt.Printf("  Human events:   %d (%d%%)\n", stats.HumanEvents, stats.HumanRate())
	fmt.Printf("  Bot events:     %d\n", stats.BotEvents)
	fmt.Printf("  Human opens:    %d\n", stats.HumanOpens)
	fmt.Printf("  Human scrolls:  %d\n", stats.HumanScrolls)
	fmt.Printf("  Agent queries:  %d\n", stats.AgentQueries)
	fmt.Printf("  MCP queries:    %d\n", stats.MCPQueries)

	if len(stats.BotBreakdown) > 0 {
		types := make([]string, 0, len(stats.BotBreakdown))
		for t := range stats.BotBreakdown {
			types = append(types, t)
		}
		sort.Strings(types)

		fmt.Printf("\n  Bot traffic:\n")
		for _, t := range types {
			fmt.Printf("    %-15s %d\n", t, stats.BotBreakdown[t])
		}
	}

	if stats.TotalEvents == 0 {
		fmt.Fprintln(os.Stderr, "\nNo events recorded yet.")
	}
	return nil
}
