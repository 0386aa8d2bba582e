// Package fidelity measures how many of an author's key claims survive
// compression by a summarization model (the penetration score).
//
// The oracle is an external, non-deterministic dependency. Every oracle
// failure is recovered here: Assess returns nil and publishing proceeds
// without a score.
package fidelity

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"

	"github.com/yaoqinxue-cmd/BriStack/internal/content"
	"github.com/yaoqinxue-cmd/BriStack/internal/llm"
	"github.com/yaoqinxue-cmd/BriStack/internal/metrics"
	"github.com/yaoqinxue-cmd/BriStack/internal/model"
	"github.com/yaoqinxue-cmd/BriStack/internal/worker"
)

// UnparsedScore is reported when the verification response holds no JSON
const UnparsedScore = 50

// UnparsedSuggestion explains an UnparsedScore assessment
const UnparsedSuggestion = "The verification response could not be parsed; treat this score as unknown."

var errEmptyResponse = errors.New("oracle returned no response")

// Assessment outcomes, as recorded in metrics
const (
	OutcomeScored   = "scored"
	OutcomeUnparsed = "unparsed"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// Assessor runs the two-stage fidelity protocol against an oracle
type Assessor struct {
	provider llm.Provider
	cfg      model.FidelityConfig
	limiter  *worker.Limiter
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures an Assessor
type Option func(*Assessor)

// WithLimiter rate-limits oracle calls per provider
func WithLimiter(l *worker.Limiter) Option {
	return func(a *Assessor) { a.limiter = l }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assessor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics records assessment outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Assessor) { a.metrics = m }
}

// NewAssessor creates an assessor. A nil provider (no credential
// configured) yields an assessor whose Assess always returns nil.
func NewAssessor(provider llm.Provider, cfg model.FidelityConfig, opts ...Option) *Assessor {
	a := &Assessor{
		provider: provider,
		cfg:      cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IsEnabled returns true if an oracle is configured
func (a *Assessor) IsEnabled() bool {
	return a.provider != nil
}

// ProviderName returns the name of the configured oracle
func (a *Assessor) ProviderName() string {
	if a.provider == nil {
		return ""
	}
	return a.provider.Name()
}

// Assess scores content against the author's key claims. It returns nil when
// no oracle is configured, when no non-empty claims are given, or when an
// oracle call fails. Two calls with identical input may score differently.
func (a *Assessor) Assess(ctx context.Context, text string, keyClaims []string) *model.FidelityAssessment {
	claims := NormalizeClaims(keyClaims)
	if a.provider == nil || len(claims) == 0 {
		a.metrics.Assessed(OutcomeSkipped, -1)
		return nil
	}

	summary, ok := a.complete(ctx, "summary", llm.CompletionRequest{
		Prompt:    BuildSummaryPrompt(content.Truncate(text, a.cfg.MaxContentChars), a.cfg.SummaryWords),
		MaxTokens: a.cfg.SummaryTokens,
	})
	if !ok {
		return nil
	}

	check, ok := a.complete(ctx, "verify", llm.CompletionRequest{
		Prompt:    BuildVerifyPrompt(summary.Text, claims),
		MaxTokens: a.cfg.VerifyTokens,
	})
	if !ok {
		return nil
	}

	assessment := &model.FidelityAssessment{
		AISummary: summary.Text,
		Provider:  a.provider.Name(),
		Model:     summary.Model,
	}

	raw, found := ExtractJSONObject(check.Text)
	if !found {
		a.logger.Warn("fidelity verification returned no JSON", "provider", a.provider.Name())
		assessment.Score = UnparsedScore
		assessment.PreservedClaims = []string{}
		assessment.LostClaims = append([]string{}, claims...)
		assessment.Suggestions = []string{UnparsedSuggestion}
		a.metrics.Assessed(OutcomeUnparsed, -1)
		return assessment
	}

	var v verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		a.logger.Warn("fidelity verification JSON malformed", "provider", a.provider.Name(), "error", err)
		a.metrics.Assessed(OutcomeFailed, -1)
		return nil
	}

	assessment.PreservedClaims, assessment.LostClaims = reconcile(claims, v.Results)
	assessment.Suggestions = cleanSuggestions(v.Suggestions)
	assessment.Score = Score(len(assessment.PreservedClaims), len(claims))

	a.metrics.Assessed(OutcomeScored, assessment.Score)
	a.logger.Debug("fidelity assessed",
		"score", assessment.Score,
		"preserved", len(assessment.PreservedClaims),
		"lost", len(assessment.LostClaims),
	)
	return assessment
}

// Score is round(100 * preserved / total); 0 when total is 0
func Score(preserved, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(preserved) / float64(total)))
}

// complete runs one rate-limited oracle call. Failures are logged and
// reported as !ok.
func (a *Assessor) complete(ctx context.Context, stage string, req llm.CompletionRequest) (*llm.CompletionResponse, bool) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx, a.provider.Name()); err != nil {
			a.logger.Warn("fidelity assessment abandoned", "stage", stage, "error", err)
			a.metrics.Assessed(OutcomeFailed, -1)
			return nil, false
		}
	}

	resp, err := a.provider.Complete(ctx, req)
	if err == nil && resp == nil {
		err = errEmptyResponse
	}
	if err != nil {
		a.logger.Warn("fidelity oracle call failed", "stage", stage, "provider", a.provider.Name(), "error", err)
		a.metrics.OracleFailed(stage)
		a.metrics.Assessed(OutcomeFailed, -1)
		return nil, false
	}
	return resp, true
}
