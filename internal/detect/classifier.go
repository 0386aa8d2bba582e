// Package detect classifies the actor behind a request as human, known bot
// or suspected bot. Classification is a pure function of the request
// signals and the configured signature data: no I/O, no per-IP memory.
package detect

import (
	"math"
	"strings"
	"time"

	"github.com/yaoqinxue-cmd/BriStack/internal/model"
)

// Reason codes
const (
	ReasonNoUserAgent     = "no_user_agent"
	ReasonKnownBot        = "known_bot"
	ReasonKnownAIBot      = "known_ai_bot"
	ReasonAIBotPattern    = "ai_bot_pattern"
	ReasonInstantResponse = "instant_response"
	ReasonNoMouseMovement = "no_mouse_movement"
	ReasonCloudIP         = "cloud_ip"
)

// Vendor categories
const (
	CategoryUnknown  = "unknown"
	CategoryHuman    = "human"
	CategoryOtherBot = "other_bot"
)

const (
	noUserAgentConfidence = 0.7
	knownBotConfidence    = 0.99
	aiPatternConfidence   = 0.95
)

// Hints carries the optional behavioral signals of a request.
// Nil pointers mean "signal not observed", which is never suspicious.
type Hints struct {
	SourceAddress string
	Latency       *time.Duration // Time taken to serve the request
	PointerMoved  *bool          // Explicit pointer-movement signal from the page
}

// Heuristics are the tunable weights of behavioral scoring
type Heuristics struct {
	InstantResponse       time.Duration
	InstantResponseWeight float64
	NoPointerWeight       float64
	CloudIPWeight         float64
	SuspicionThreshold    float64
}

// HeuristicsFromConfig extracts the heuristic weights from cfg
func HeuristicsFromConfig(cfg model.DetectionConfig) Heuristics {
	return Heuristics{
		InstantResponse:       time.Duration(cfg.InstantResponseMs) * time.Millisecond,
		InstantResponseWeight: cfg.InstantResponseWeight,
		NoPointerWeight:       cfg.NoPointerWeight,
		CloudIPWeight:         cfg.CloudIPWeight,
		SuspicionThreshold:    cfg.SuspicionThreshold,
	}
}

// Classifier turns request signals into a ClassificationResult
type Classifier struct {
	signatures *Signatures
	heuristics Heuristics
}

// NewClassifier creates a classifier over the given signature data
func NewClassifier(signatures *Signatures, heuristics Heuristics) *Classifier {
	if signatures == nil {
		signatures = &Signatures{}
	}
	return &Classifier{
		signatures: signatures,
		heuristics: heuristics,
	}
}

// NewClassifierFromConfig builds signatures and heuristics from cfg
func NewClassifierFromConfig(cfg model.DetectionConfig) (*Classifier, error) {
	sigs, err := NewSignatures(cfg)
	if err != nil {
		return nil, err
	}
	return NewClassifier(sigs, HeuristicsFromConfig(cfg)), nil
}

// Classify judges a single request. Checks run in priority order: missing
// user agent, signature library, AI crawler patterns, behavioral scoring.
// The first match decides type and confidence; behavioral evidence is still
// appended to the reasons of a pattern match.
func (c *Classifier) Classify(userAgent string, hints Hints) model.ClassificationResult {
	ua := strings.TrimSpace(userAgent)
	score, evidence := c.score(hints)

	if ua == "" {
		return model.ClassificationResult{
			IsBot:      true,
			BotType:    model.BotTypeSuspected,
			Confidence: noUserAgentConfidence,
			Reasons:    append([]string{ReasonNoUserAgent}, evidence...),
			Category:   CategoryUnknown,
		}
	}

	category := c.signatures.Category(ua)
	isAI := c.signatures.IsAIBot(ua)

	if c.signatures.IsKnownBot(ua) {
		reason := ReasonKnownBot
		if isAI {
			reason = ReasonKnownAIBot
		}
		return model.ClassificationResult{
			IsBot:      true,
			BotType:    model.BotTypeKnown,
			Confidence: knownBotConfidence,
			Reasons:    append([]string{reason}, evidence...),
			Category:   category,
		}
	}

	if isAI {
		return model.ClassificationResult{
			IsBot:      true,
			BotType:    model.BotTypeKnown,
			Confidence: aiPatternConfidence,
			Reasons:    append([]string{ReasonAIBotPattern}, evidence...),
			Category:   category,
		}
	}

	if score >= c.heuristics.SuspicionThreshold {
		return model.ClassificationResult{
			IsBot:      true,
			BotType:    model.BotTypeSuspected,
			Confidence: math.Min(score, 1),
			Reasons:    evidence,
			Category:   category,
		}
	}

	return model.ClassificationResult{
		IsBot:      false,
		BotType:    model.BotTypeNone,
		Confidence: round(math.Max(1-score, 0)),
		Reasons:    evidence,
		Category:   category,
	}
}

// Category buckets a user agent by vendor
func (c *Classifier) Category(userAgent string) string {
	return c.signatures.Category(userAgent)
}

// score accumulates behavioral suspicion
func (c *Classifier) score(hints Hints) (float64, []string) {
	var score float64
	var reasons []string

	if hints.Latency != nil && *hints.Latency < c.heuristics.InstantResponse {
		score += c.heuristics.InstantResponseWeight
		reasons = append(reasons, ReasonInstantResponse)
	}

	if hints.PointerMoved != nil && !*hints.PointerMoved {
		score += c.heuristics.NoPointerWeight
		reasons = append(reasons, ReasonNoMouseMovement)
	}

	if c.signatures.IsCloudAddress(hints.SourceAddress) {
		score += c.heuristics.CloudIPWeight
		reasons = append(reasons, ReasonCloudIP)
	}

	return round(score), reasons
}

// round trims float noise (0.3+0.2+0.2) so thresholds compare exactly
func round(f float64) float64 {
	return math.Round(f*1000) / 1000
}
