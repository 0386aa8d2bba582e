package model

// ReachStats aggregates the event log into human-reach figures.
// Agent and MCP queries are deliberate accesses and count as human events.
type ReachStats struct {
	IssueID      string         `json:"issueId,omitempty" yaml:"issue_id,omitempty"`
	TotalEvents  int            `json:"totalEvents" yaml:"total_events"`
	HumanEvents  int            `json:"humanEvents" yaml:"human_events"`
	BotEvents    int            `json:"botEvents" yaml:"bot_events"`
	HumanOpens   int            `json:"humanOpens" yaml:"human_opens"`
	HumanScrolls int            `json:"humanScrolls" yaml:"human_scrolls"`
	AgentQueries int            `json:"agentQueries" yaml:"agent_queries"`
	MCPQueries   int            `json:"mcpQueries" yaml:"mcp_queries"`
	BotBreakdown map[string]int `json:"botBreakdown" yaml:"bot_breakdown"` // bot_type -> count
}

// HumanRate returns human events as a rounded percentage of all events
func (s ReachStats) HumanRate() int {
	if s.TotalEvents == 0 {
		return 0
	}
	return (s.HumanEvents*100 + s.TotalEvents/2) / s.TotalEvents
}
