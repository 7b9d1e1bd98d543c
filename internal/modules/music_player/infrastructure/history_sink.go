package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sglre6355/redacbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/redacbot/internal/modules/music_player/domain"
)

// Ensure SQLiteHistorySink implements ports.HistorySink.
var _ ports.HistorySink = (*SQLiteHistorySink)(nil)

// Ensure LogHistorySink implements ports.HistorySink.
var _ ports.HistorySink = (*LogHistorySink)(nil)

const historyInitTimeout = 10 * time.Second

// SQLiteHistorySink stores history records in a SQLite database.
type SQLiteHistorySink struct {
	db *sql.DB
}

// OpenSQLiteHistorySink opens the database at path and creates the schema.
func OpenSQLiteHistorySink(ctx context.Context, path string) (*SQLiteHistorySink, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(5)

	sink := &SQLiteHistorySink{db: db}
	if err := sink.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return sink, nil
}

func (s *SQLiteHistorySink) init(ctx context.Context) error {
	initCtx, cancel := context.WithTimeout(ctx, historyInitTimeout)
	defer cancel()

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(initCtx, p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	tx, err := s.db.BeginTx(initCtx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	schema := []string{
		`CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL,
			session_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			guild_name TEXT NOT NULL,
			query TEXT NOT NULL,
			track_title TEXT NOT NULL,
			track_url TEXT NOT NULL,
			track_duration TEXT NOT NULL,
			track_channel TEXT NOT NULL,
			action TEXT NOT NULL,
			listen_duration_sec INTEGER DEFAULT 0,
			was_queued INTEGER DEFAULT 0,
			queue_position INTEGER DEFAULT 0
		)`,
		"CREATE INDEX IF NOT EXISTS idx_history_timestamp ON history (timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_history_user ON history (user_id)",
		"CREATE INDEX IF NOT EXISTS idx_history_guild ON history (guild_id)",
		"CREATE INDEX IF NOT EXISTS idx_history_action ON history (action)",
	}
	for _, q := range schema {
		if _, err := tx.ExecContext(initCtx, q); err != nil {
			return fmt.Errorf("failed to create history schema: %w", err)
		}
	}

	return tx.Commit()
}

// Record inserts one history row.
func (s *SQLiteHistorySink) Record(ctx context.Context, r domain.HistoryRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (
			timestamp, session_id, user_id, username, guild_id, guild_name,
			query, track_title, track_url, track_duration, track_channel,
			action, listen_duration_sec, was_queued, queue_position
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Timestamp.UTC(),
		r.SessionID,
		r.UserID.String(),
		r.Username,
		r.GuildID.String(),
		r.GuildName,
		r.Query,
		r.TrackTitle,
		r.TrackURL,
		r.TrackDuration,
		r.TrackChannel,
		string(r.Action),
		r.ListenDurationSec,
		r.WasQueued,
		r.QueuePosition,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteHistorySink) Close() error {
	return s.db.Close()
}

// LogHistorySink writes history records to the structured log only.
type LogHistorySink struct{}

// Record logs the record.
func (LogHistorySink) Record(_ context.Context, r domain.HistoryRecord) error {
	slog.Info("history",
		"action", r.Action,
		"user", r.Username,
		"guild", r.GuildName,
		"track", r.TrackTitle,
		"listen_sec", r.ListenDurationSec,
	)
	return nil
}

// Close is a no-op.
func (LogHistorySink) Close() error {
	return nil
}
