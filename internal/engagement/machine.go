// Package engagement advances subscriber trust levels from confirmed-human
// reading activity. Levels only move forward.
package engagement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yaoqinxue-cmd/BriStack/internal/metrics"
	"github.com/yaoqinxue-cmd/BriStack/internal/model"
	"github.com/yaoqinxue-cmd/BriStack/internal/storage"
)

// ErrInvalidLevel is returned for levels outside 1..4
var ErrInvalidLevel = errors.New("invalid trust level")

// Store is the subset of storage.Store the machine needs
type Store interface {
	CountEvents(ctx context.Context, q storage.EventQuery) (int, error)
	RaiseLevel(ctx context.Context, subscriberID string, target int, at time.Time) (bool, error)
}

// Machine evaluates trust-level transitions
type Machine struct {
	store             Store
	readDepth         int
	verificationReads int
	now               func() time.Time
	logger            *slog.Logger
	metrics           *metrics.Metrics
}

// Option configures a Machine
type Option func(*Machine)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics records promotions
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Machine) { m.metrics = mt }
}

// NewMachine creates a state machine over store
func NewMachine(store Store, cfg model.EngagementConfig, opts ...Option) *Machine {
	m := &Machine{
		store:             store,
		readDepth:         cfg.ReadDepth,
		verificationReads: cfg.VerificationReads,
		now:               time.Now,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// QualifiesAsRead reports whether a human-attributed event is a completed read
func (m *Machine) QualifiesAsRead(eventType model.EventType, scrollDepth *int) bool {
	return eventType == model.EventScroll && scrollDepth != nil && *scrollDepth >= m.readDepth
}

// Evaluate applies the human-verification transition: once a subscriber has
// enough completed human reads, the level is raised to at least
// LevelVerified. Safe to call concurrently and repeatedly. Reports whether
// this call promoted the subscriber.
func (m *Machine) Evaluate(ctx context.Context, subscriberID string) (bool, error) {
	if subscriberID == "" {
		return false, nil
	}

	human := false
	reads, err := m.store.CountEvents(ctx, storage.EventQuery{
		SubscriberID:   subscriberID,
		EventType:      model.EventScroll,
		IsBot:          &human,
		MinScrollDepth: &m.readDepth,
	})
	if err != nil {
		return false, fmt.Errorf("count completed reads: %w", err)
	}

	if reads < m.verificationReads {
		return false, nil
	}

	promoted, err := m.store.RaiseLevel(ctx, subscriberID, model.LevelVerified, m.now())
	if err != nil {
		return false, err
	}
	if promoted {
		m.logger.Info("subscriber verified as human", "subscriber", subscriberID, "reads", reads)
		m.metrics.Promoted(model.LevelVerified)
	}
	return promoted, nil
}

// Assign raises a subscriber to a creator-chosen level. Assignments below the
// current level are no-ops.
func (m *Machine) Assign(ctx context.Context, subscriberID string, level int) (bool, error) {
	if level < model.LevelSubscribed || level > model.LevelMax {
		return false, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}

	promoted, err := m.store.RaiseLevel(ctx, subscriberID, level, m.now())
	if err != nil {
		return false, err
	}
	if promoted {
		m.logger.Info("subscriber level assigned", "subscriber", subscriberID, "level", level)
		m.metrics.Promoted(level)
	}
	return promoted, nil
}
