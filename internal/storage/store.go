// Package storage persists the interaction event log and the engagement
// fields of subscribers in a relational database (SQLite or PostgreSQL).
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yaoqinxue-cmd/BriStack/internal/model"
)

var (
	// ErrNotFound is returned when a subscriber does not exist
	ErrNotFound = errors.New("not found")

	// ErrDisabled is returned by Open when no storage driver is configured
	ErrDisabled = errors.New("storage disabled")
)

// EventQuery filters the event log. Zero values mean "any".
type EventQuery struct {
	SubscriberID   string
	IssueID        string
	EventType      model.EventType
	IsBot          *bool
	MinScrollDepth *int
}

// Store is the persistence surface used by the event recorder and the
// engagement state machine
type Store interface {
	// AppendEvent writes an immutable interaction event
	AppendEvent(ctx context.Context, event *model.InteractionEvent) error

	// TouchActivity sets a subscriber's lastActivityAt. Unknown subscribers
	// are ignored.
	TouchActivity(ctx context.Context, subscriberID string, at time.Time) error

	// CountEvents counts events matching q
	CountEvents(ctx context.Context, q EventQuery) (int, error)

	// RaiseLevel atomically sets level = max(level, target). When target is
	// at least model.LevelVerified, humanVerifiedAt is set to at unless it
	// is already set. Reports whether the row changed.
	RaiseLevel(ctx context.Context, subscriberID string, target int, at time.Time) (bool, error)

	CreateSubscriber(ctx context.Context, sub *model.Subscriber) error
	GetSubscriber(ctx context.Context, id string) (*model.Subscriber, error)

	// ReachStats aggregates the event log, optionally for a single issue
	ReachStats(ctx context.Context, issueID string) (*model.ReachStats, error)

	Close() error
}

// Open creates a store for the configured driver
func Open(ctx context.Context, cfg model.StorageConfig, opts ...Option) (*SQLStore, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, ErrDisabled
	case "sqlite", "sqlite3":
		return OpenSQLite(ctx, cfg.DSN, opts...)
	case "postgres", "postgresql":
		return OpenPostgres(ctx, cfg.DSN, opts...)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}
