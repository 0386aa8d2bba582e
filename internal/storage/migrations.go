package storage

import (
	"context"
	"fmt"
	"time"
)

// migration represents a single schema migration
type migration struct {
	version int
	name    string
	up      func(ctx context.Context) error
}

// migrate applies every migration newer than the recorded schema version
func (s *SQLStore) migrate(ctx context.Context) error {
	if err := s.exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at `+s.dialect.timestamp+` NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var version int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	migrations := []migration{
		{version: 1, name: "initial_schema", up: s.migration001InitialSchema},
		{version: 2, name: "event_reporting_indexes", up: s.migration002ReportingIndexes},
	}

	for _, m := range migrations {
		if version >= m.version {
			continue
		}
		s.logger.Info("running migration", "version", m.version, "name", m.name, "driver", s.dialect.name)
		if err := m.up(ctx); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
		if err := s.exec(ctx, "INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.version, m.name, time.Now().UTC()); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}

	return nil
}

func (s *SQLStore) migration001InitialSchema(ctx context.Context) error {
	ts := s.dialect.timestamp

	if err := s.exec(ctx, `
		CREATE TABLE IF NOT EXISTS subscribers (
			id TEXT PRIMARY KEY,
			level INTEGER NOT NULL DEFAULT 1,
			last_activity_at `+ts+`,
			human_verified_at `+ts+`,
			created_at `+ts+` NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create subscribers table: %w", err)
	}

	if err := s.exec(ctx, `
		CREATE TABLE IF NOT EXISTS interaction_events (
			id TEXT PRIMARY KEY,
			created_at `+ts+` NOT NULL,
			issue_id TEXT,
			subscriber_id TEXT,
			event_type TEXT NOT NULL,
			is_bot BOOLEAN NOT NULL,
			bot_type TEXT,
			scroll_depth INTEGER,
			source_hash TEXT,
			user_agent TEXT,
			metadata TEXT
		)
	`); err != nil {
		return fmt.Errorf("failed to create interaction_events table: %w", err)
	}

	if err := s.exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_events_subscriber
		ON interaction_events(subscriber_id, event_type, is_bot)
	`); err != nil {
		return fmt.Errorf("failed to create subscriber index: %w", err)
	}

	return nil
}

func (s *SQLStore) migration002ReportingIndexes(ctx context.Context) error {
	if err := s.exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_events_issue
		ON interaction_events(issue_id, event_type)
	`); err != nil {
		return fmt.Errorf("failed to create issue index: %w", err)
	}

	if err := s.exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_events_created
		ON interaction_events(created_at DESC)
	`); err != nil {
		return fmt.Errorf("failed to create created_at index: %w", err)
	}

	return nil
}
