package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/yaoqinxue-cmd/BriStack/internal/model"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLStore implements Store on database/sql
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
}

// Option configures a SQLStore
type Option func(*SQLStore)

// WithLogger sets the logger used for migrations
func WithLogger(logger *slog.Logger) Option {
	return func(s *SQLStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// OpenSQLite opens (creating if needed) a SQLite database and migrates it
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLStore, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection serialises writers and keeps :memory: databases alive
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", p, err)
		}
	}

	return newSQLStore(ctx, db, sqliteDialect, opts)
}

// OpenPostgres connects to PostgreSQL and migrates the schema
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return newSQLStore(ctx, db, postgresDialect, opts)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, opts []Option) (*SQLStore, error) {
	s := &SQLStore{
		db:      db,
		dialect: d,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
	return err
}

// AppendEvent implements Store
func (s *SQLStore) AppendEvent(ctx context.Context, e *model.InteractionEvent) error {
	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate event id: %w", err)
		}
		e.ID = id.String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	var metadata sql.NullString
	if len(e.Metadata) > 0 {
		data, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode event metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	var depth sql.NullInt64
	if e.ScrollDepth != nil {
		depth = sql.NullInt64{Int64: int64(*e.ScrollDepth), Valid: true}
	}

	err := s.exec(ctx, `
		INSERT INTO interaction_events
			(id, created_at, issue_id, subscriber_id, event_type, is_bot, bot_type,
			 scroll_depth, source_hash, user_agent, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CreatedAt.UTC(), nullString(e.IssueID), nullString(e.SubscriberID),
		string(e.EventType), e.IsBot, nullString(string(e.BotType)),
		depth, nullString(e.SourceHash), nullString(e.UserAgent), metadata,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// TouchActivity implements Store
func (s *SQLStore) TouchActivity(ctx context.Context, subscriberID string, at time.Time) error {
	err := s.exec(ctx, "UPDATE subscribers SET last_activity_at = ? WHERE id = ?", at.UTC(), subscriberID)
	if err != nil {
		return fmt.Errorf("touch subscriber %s: %w", subscriberID, err)
	}
	return nil
}

// CountEvents implements Store
func (s *SQLStore) CountEvents(ctx context.Context, q EventQuery) (int, error) {
	where, args := q.clause()
	query := "SELECT COUNT(*) FROM interaction_events" + where

	var n int
	if err := s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func (q EventQuery) clause() (string, []any) {
	var conds []string
	var args []any

	if q.SubscriberID != "" {
		conds = append(conds, "subscriber_id = ?")
		args = append(args, q.SubscriberID)
	}
	if q.IssueID != "" {
		conds = append(conds, "issue_id = ?")
		args = append(args, q.IssueID)
	}
	if q.EventType != "" {
		conds = append(conds, "event_type = ?")
		args = append(args, string(q.EventType))
	}
	if q.IsBot != nil {
		conds = append(conds, "is_bot = ?")
		args = append(args, *q.IsBot)
	}
	if q.MinScrollDepth != nil {
		conds = append(conds, "scroll_depth >= ?")
		args = append(args, *q.MinScrollDepth)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// RaiseLevel implements Store. The update is a single conditional statement,
// so concurrent callers can never lower the level or overwrite an existing
// verification timestamp.
func (s *SQLStore) RaiseLevel(ctx context.Context, subscriberID string, target int, at time.Time) (bool, error) {
	verified := "human_verified_at"
	args := []any{target}
	if target >= model.LevelVerified {
		verified = "COALESCE(human_verified_at, ?)"
		args = append(args, at.UTC())
	}
	args = append(args, subscriberID, target)

	query := fmt.Sprintf(`
		UPDATE subscribers
		SET level = %s(level, ?), human_verified_at = %s
		WHERE id = ? AND level < ?`, s.dialect.greatest, verified)

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return false, fmt.Errorf("raise level of %s: %w", subscriberID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("raise level of %s: %w", subscriberID, err)
	}
	return n > 0, nil
}

// CreateSubscriber implements Store. Missing fields are filled in.
func (s *SQLStore) CreateSubscriber(ctx context.Context, sub *model.Subscriber) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.Level == 0 {
		sub.Level = model.LevelSubscribed
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}

	err := s.exec(ctx, `
		INSERT INTO subscribers (id, level, last_activity_at, human_verified_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		sub.ID, sub.Level, nullTime(sub.LastActivityAt), nullTime(sub.HumanVerifiedAt), sub.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert subscriber: %w", err)
	}
	return nil
}

// GetSubscriber implements Store
func (s *SQLStore) GetSubscriber(ctx context.Context, id string) (*model.Subscriber, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT id, level, last_activity_at, human_verified_at, created_at
		FROM subscribers WHERE id = ?`), id)

	var sub model.Subscriber
	var lastActivity, verified sql.NullTime
	if err := row.Scan(&sub.ID, &sub.Level, &lastActivity, &verified, &sub.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("subscriber %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get subscriber %s: %w", id, err)
	}

	if lastActivity.Valid {
		sub.LastActivityAt = &lastActivity.Time
	}
	if verified.Valid {
		sub.HumanVerifiedAt = &verified.Time
	}
	return &sub, nil
}

// ReachStats implements Store
func (s *SQLStore) ReachStats(ctx context.Context, issueID string) (*model.ReachStats, error) {
	where, args := EventQuery{IssueID: issueID}.clause()

	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN is_bot THEN 0 ELSE 1 END), 0),
			COALESCE(SUM(CASE WHEN NOT is_bot AND event_type = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN NOT is_bot AND event_type = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN event_type = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN event_type = ? THEN 1 ELSE 0 END), 0)
		FROM interaction_events` + where
	args = append([]any{
		string(model.EventOpen), string(model.EventScroll),
		string(model.EventAgentQuery), string(model.EventMCPQuery),
	}, args...)

	stats := &model.ReachStats{
		IssueID:      issueID,
		BotBreakdown: make(map[string]int),
	}
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...).Scan(
		&stats.TotalEvents, &stats.HumanEvents, &stats.HumanOpens,
		&stats.HumanScrolls, &stats.AgentQueries, &stats.MCPQueries,
	)
	if err != nil {
		return nil, fmt.Errorf("reach stats: %w", err)
	}
	stats.BotEvents = stats.TotalEvents - stats.HumanEvents

	isBot := true
	where, args = EventQuery{IssueID: issueID, IsBot: &isBot}.clause()
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		"SELECT COALESCE(bot_type, ''), COUNT(*) FROM interaction_events"+where+" GROUP BY bot_type"), args...)
	if err != nil {
		return nil, fmt.Errorf("bot breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var botType string
		var n int
		if err := rows.Scan(&botType, &n); err != nil {
			return nil, fmt.Errorf("scan bot breakdown: %w", err)
		}
		stats.BotBreakdown[model.BotType(botType).String()] += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bot breakdown: %w", err)
	}

	return stats, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

var _ Store = (*SQLStore)(nil)
