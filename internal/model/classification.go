package model

import "strings"

// BotType classifies the actor behind a request
type BotType string

const (
	BotTypeNone      BotType = ""              // Human, or not attributable to automation
	BotTypeKnown     BotType = "known_bot"     // Signature match against a known crawler
	BotTypeSuspected BotType = "suspected_bot" // Behavioral evidence only
)

func (b BotType) String() string {
	if b == BotTypeNone {
		return "none"
	}
	return string(b)
}

// ClassificationResult is the per-request verdict of the actor classifier.
// IsBot is true iff BotType != BotTypeNone.
type ClassificationResult struct {
	IsBot      bool     `json:"isBot"`
	BotType    BotType  `json:"botType,omitempty"`
	Confidence float64  `json:"confidence"`         // 0-1, strength of the evidence behind the verdict
	Reasons    []string `json:"reasons,omitempty"`  // Ordered reason codes (e.g. "instant_response", "cloud_ip")
	Category   string   `json:"category,omitempty"` // Vendor bucket: openai, anthropic, google, other_bot, human, ...
}

// Reason returns the reason codes joined with commas
func (r ClassificationResult) Reason() string {
	return strings.Join(r.Reasons, ",")
}

// HasReason reports whether code is one of the reason codes
func (r ClassificationResult) HasReason(code string) bool {
	for _, c := range r.Reasons {
		if c == code {
			return true
		}
	}
	return false
}
