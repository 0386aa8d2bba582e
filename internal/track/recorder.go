// Package track records classified interactions in the event log and drives
// the downstream subscriber updates.
package track

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/yaoqinxue-cmd/BriStack/internal/detect"
	"github.com/yaoqinxue-cmd/BriStack/internal/engagement"
	"github.com/yaoqinxue-cmd/BriStack/internal/metrics"
	"github.com/yaoqinxue-cmd/BriStack/internal/model"
	"github.com/yaoqinxue-cmd/BriStack/internal/util"
)

// ErrInvalidEvent is returned for events that fail validation. Nothing is
// persisted, but the classification is still returned.
var ErrInvalidEvent = errors.New("invalid event")

// ReasonAttributedAgent marks agent and MCP queries, which are recorded as
// human-attributed without consulting the classifier's verdict
const ReasonAttributedAgent = "attributed_agent"

// Classifier judges the actor behind a request
type Classifier interface {
	Classify(userAgent string, hints detect.Hints) model.ClassificationResult
	Category(userAgent string) string
}

// Store is the subset of storage.Store the recorder writes to
type Store interface {
	AppendEvent(ctx context.Context, event *model.InteractionEvent) error
	TouchActivity(ctx context.Context, subscriberID string, at time.Time) error
}

// EventInput is one observed interaction
type EventInput struct {
	IssueID       string
	SubscriberID  string
	EventType     model.EventType
	UserAgent     string
	SourceAddress string
	Path          string         // Request path, checked against the robots policy
	Latency       *time.Duration // Time taken to serve the request
	PointerMoved  *bool
	ScrollDepth   *int
	Metadata      map[string]any
}

// Recorder classifies and persists interactions
type Recorder struct {
	classifier Classifier
	store      Store
	machine    *engagement.Machine
	hasher     *SourceHasher
	robots     *util.RobotsPolicy
	now        func() time.Time
	newID      func() (uuid.UUID, error)
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Recorder
type Option func(*Recorder)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records classifications and writes
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithRobotsPolicy flags bot events on paths the policy disallows
func WithRobotsPolicy(p *util.RobotsPolicy) Option {
	return func(r *Recorder) { r.robots = p }
}

// NewRecorder creates a recorder. machine may be nil, in which case trust
// levels are never evaluated.
func NewRecorder(classifier Classifier, store Store, machine *engagement.Machine, hasher *SourceHasher, opts ...Option) *Recorder {
	if hasher == nil {
		hasher = NewSourceHasher("")
	}
	r := &Recorder{
		classifier: classifier,
		store:      store,
		machine:    machine,
		hasher:     hasher,
		now:        time.Now,
		newID:      uuid.NewV7,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record classifies and persists one interaction, then applies the
// subscriber updates for human-attributed events: lastActivityAt is touched
// and completed reads are fed to the engagement state machine.
//
// On a storage failure the already computed classification is returned
// together with the error; the subscriber updates are skipped when the
// event itself could not be written.
func (r *Recorder) Record(ctx context.Context, in EventInput) (model.ClassificationResult, error) {
	result := r.classify(in)

	if err := validate(in); err != nil {
		return result, err
	}
	r.observe(in, result)

	now := r.now()
	id, err := r.newID()
	if err != nil {
		return result, fmt.Errorf("generate event id: %w", err)
	}

	event := &model.InteractionEvent{
		ID:           id.String(),
		CreatedAt:    now,
		IssueID:      in.IssueID,
		SubscriberID: in.SubscriberID,
		EventType:    in.EventType,
		IsBot:        result.IsBot,
		BotType:      result.BotType,
		SourceHash:   r.hasher.Hash(in.SourceAddress),
		UserAgent:    in.UserAgent,
		Metadata:     r.metadata(in, result),
	}
	if in.EventType == model.EventScroll {
		event.ScrollDepth = in.ScrollDepth
	}

	if err := r.store.AppendEvent(ctx, event); err != nil {
		r.metrics.RecordFailed()
		r.logger.Warn("event not recorded", "event_type", in.EventType, "error", err)
		return result, fmt.Errorf("record %s event: %w", in.EventType, err)
	}
	r.metrics.Recorded(string(in.EventType), !result.IsBot)

	if result.IsBot || in.SubscriberID == "" {
		return result, nil
	}

	if err := r.store.TouchActivity(ctx, in.SubscriberID, now); err != nil {
		return result, fmt.Errorf("update subscriber activity: %w", err)
	}

	if r.machine != nil && r.machine.QualifiesAsRead(in.EventType, event.ScrollDepth) {
		if _, err := r.machine.Evaluate(ctx, in.SubscriberID); err != nil {
			return result, fmt.Errorf("evaluate trust level: %w", err)
		}
	}

	return result, nil
}

// RecordAgentQuery records a query from an authenticated agent subscriber
func (r *Recorder) RecordAgentQuery(ctx context.Context, in EventInput) (model.ClassificationResult, error) {
	in.EventType = model.EventAgentQuery
	return r.Record(ctx, in)
}

// RecordMCPQuery records a query arriving over the MCP bridge
func (r *Recorder) RecordMCPQuery(ctx context.Context, in EventInput) (model.ClassificationResult, error) {
	in.EventType = model.EventMCPQuery
	return r.Record(ctx, in)
}

func (r *Recorder) classify(in EventInput) model.ClassificationResult {
	var result model.ClassificationResult

	if IsAttributed(in.EventType) {
		// Deliberate, attributable access: never counted as bot traffic
		result = model.ClassificationResult{
			IsBot:      false,
			BotType:    model.BotTypeNone,
			Confidence: 1,
			Reasons:    []string{ReasonAttributedAgent},
			Category:   r.classifier.Category(in.UserAgent),
		}
	} else {
		result = r.classifier.Classify(in.UserAgent, detect.Hints{
			SourceAddress: in.SourceAddress,
			Latency:       in.Latency,
			PointerMoved:  in.PointerMoved,
		})
	}

	return result
}

// observe reports the classification of an event that passed validation
func (r *Recorder) observe(in EventInput, result model.ClassificationResult) {
	r.metrics.Classified(result.BotType.String(), result.Category, result.Reasons)
	r.logger.Debug("classified request",
		"event_type", in.EventType,
		"bot_type", result.BotType.String(),
		"confidence", result.Confidence,
		"reason", result.Reason(),
	)
}

// metadata merges caller metadata with the classification details that are
// not columns of their own
func (r *Recorder) metadata(in EventInput, result model.ClassificationResult) map[string]any {
	md := make(map[string]any, len(in.Metadata)+4)
	for k, v := range in.Metadata {
		md[k] = v
	}

	md["confidence"] = result.Confidence
	if len(result.Reasons) > 0 {
		md["reason"] = result.Reason()
	}
	if result.Category != "" {
		md["category"] = result.Category
	}
	if result.IsBot && r.robots != nil && in.Path != "" && !r.robots.Allows(in.UserAgent, in.Path) {
		md["robotsIgnored"] = true
	}
	return md
}

// IsAttributed reports whether events of type t come from an attributable
// agent or MCP client and bypass bot classification
func IsAttributed(t model.EventType) bool {
	return t == model.EventAgentQuery || t == model.EventMCPQuery
}

func validate(in EventInput) error {
	if !in.EventType.Valid() {
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, in.EventType)
	}
	if in.ScrollDepth != nil && (*in.ScrollDepth < 0 || *in.ScrollDepth > 100) {
		return fmt.Errorf("%w: scroll depth %d outside 0..100", ErrInvalidEvent, *in.ScrollDepth)
	}
	return nil
}
