package model

import "time"

// EventType enumerates the interactions recorded in the event log
type EventType string

const (
	EventOpen        EventType = "open"
	EventScroll      EventType = "scroll"
	EventClick       EventType = "click"
	EventReply       EventType = "reply"
	EventAgentQuery  EventType = "agent_query"
	EventMCPQuery    EventType = "mcp_query"
	EventSubscribe   EventType = "subscribe"
	EventUnsubscribe EventType = "unsubscribe"
)

// EventTypes lists every valid event type
var EventTypes = []EventType{
	EventOpen, EventScroll, EventClick, EventReply,
	EventAgentQuery, EventMCPQuery, EventSubscribe, EventUnsubscribe,
}

// Valid reports whether t is a known event type
func (t EventType) Valid() bool {
	for _, v := range EventTypes {
		if t == v {
			return true
		}
	}
	return false
}

// InteractionEvent is an immutable row of the event log.
// The classification fields are copied at write time and never recomputed.
type InteractionEvent struct {
	ID           string         `json:"id"`
	CreatedAt    time.Time      `json:"createdAt"`
	IssueID      string         `json:"issueId,omitempty"`      // Empty when not resolvable
	SubscriberID string         `json:"subscriberId,omitempty"` // Empty for anonymous hits
	EventType    EventType      `json:"eventType"`
	IsBot        bool           `json:"isBot"`
	BotType      BotType        `json:"botType,omitempty"`
	ScrollDepth  *int           `json:"scrollDepth,omitempty"` // 0-100, scroll events only
	SourceHash   string         `json:"sourceHash,omitempty"`  // One-way hash, never the raw address
	UserAgent    string         `json:"userAgent,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}
