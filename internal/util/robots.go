package util

import (
	"fmt"
	"sort"
	"strings"

	"github.com/temoto/robotstxt"
	"github.com/yaoqinxue-cmd/BriStack/internal/model"
)

// RobotsPolicy is the robots.txt served on the public site. It renders the
// file from configuration and answers whether a crawler was permitted to
// fetch a path, so events from crawlers that ignore it can be flagged.
type RobotsPolicy struct {
	body   string
	data   *robotstxt.RobotsData
	agents []string // lower-cased agent tokens with their own group
}

// NewRobotsPolicy renders and parses the policy described by cfg
func NewRobotsPolicy(cfg model.RobotsConfig) (*RobotsPolicy, error) {
	var b strings.Builder
	var agents []string

	if cfg.DisallowAI && len(cfg.AIAgents) > 0 {
		for _, agent := range cfg.AIAgents {
			fmt.Fprintf(&b, "User-agent: %s\n", agent)
			agents = append(agents, strings.ToLower(agent))
		}
		b.WriteString("Disallow: /\n\n")
	}

	b.WriteString("User-agent: *\n")
	if len(cfg.Disallow) == 0 {
		b.WriteString("Disallow:\n")
	}
	for _, path := range cfg.Disallow {
		fmt.Fprintf(&b, "Disallow: %s\n", path)
	}

	body := b.String()
	data, err := robotstxt.FromString(body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	// Longest token first so "ClaudeBot-User" wins over "ClaudeBot"
	sort.Slice(agents, func(i, j int) bool { return len(agents[i]) > len(agents[j]) })

	return &RobotsPolicy{body: body, data: data, agents: agents}, nil
}

// Body returns the robots.txt content
func (p *RobotsPolicy) Body() string {
	return p.body
}

// Allows reports whether the policy permits userAgent to fetch path
func (p *RobotsPolicy) Allows(userAgent, path string) bool {
	if path == "" {
		path = "/"
	}
	return p.data.TestAgent(path, p.agentToken(userAgent))
}

// agentToken maps a full user-agent header to the robots.txt token it
// answers to. Full headers rarely start with the crawler's name, so tokens
// with their own group are searched for anywhere in the header first.
func (p *RobotsPolicy) agentToken(userAgent string) string {
	lower := strings.ToLower(userAgent)
	for _, agent := range p.agents {
		if strings.Contains(lower, agent) {
			return agent
		}
	}
	return NormalizeUserAgent(userAgent)
}

// NormalizeUserAgent normalizes the user agent string for robots.txt matching
func NormalizeUserAgent(ua string) string {
	// Extract the product name (first token)
	parts := strings.Fields(ua)
	if len(parts) > 0 {
		// Remove version if present
		product := strings.Split(parts[0], "/")[0]
		return product
	}
	return ua
}
