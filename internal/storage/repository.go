package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hunterjsb/mtbot/internal/storage/migrations"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Repository persists refresh targets in SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (creating if needed) the database at dbPath and migrates it.
// ":memory:" gives a private in-memory database.
func NewRepository(ctx context.Context, dbPath string) (*Repository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// gooseLogger routes goose output through slog at debug level.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) {
	slog.Debug(fmt.Sprintf(format, v...), "component", "migrations")
}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	slog.Error(fmt.Sprintf(format, v...), "component", "migrations")
	os.Exit(1)
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// ListTargets returns all stored refresh targets ordered by creation time.
func (r *Repository) ListTargets(ctx context.Context) ([]RefreshTarget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT channel_id, guild_id, message_id, registered_by, created_at, last_rendered_at
		FROM refresh_targets
		ORDER BY created_at, channel_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh targets: %w", err)
	}
	defer rows.Close()

	var targets []RefreshTarget
	for rows.Next() {
		var (
			t                 RefreshTarget
			created, rendered int64
		)
		if err := rows.Scan(&t.ChannelID, &t.GuildID, &t.MessageID, &t.RegisteredBy, &created, &rendered); err != nil {
			return nil, fmt.Errorf("failed to scan refresh target: %w", err)
		}
		t.CreatedAt = fromUnix(created)
		t.LastRenderedAt = fromUnix(rendered)
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// GetTarget returns the target for channelID, or sql.ErrNoRows.
func (r *Repository) GetTarget(ctx context.Context, channelID string) (*RefreshTarget, error) {
	var (
		t                 RefreshTarget
		created, rendered int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT channel_id, guild_id, message_id, registered_by, created_at, last_rendered_at
		FROM refresh_targets WHERE channel_id = ?`, channelID,
	).Scan(&t.ChannelID, &t.GuildID, &t.MessageID, &t.RegisteredBy, &created, &rendered)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = fromUnix(created)
	t.LastRenderedAt = fromUnix(rendered)
	return &t, nil
}

// SaveTarget inserts t or updates the stored row for the same channel.
func (r *Repository) SaveTarget(ctx context.Context, t RefreshTarget) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_targets (channel_id, guild_id, message_id, registered_by, created_at, last_rendered_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			guild_id = excluded.guild_id,
			message_id = excluded.message_id,
			last_rendered_at = excluded.last_rendered_at`,
		t.ChannelID, t.GuildID, t.MessageID, t.RegisteredBy, toUnix(t.CreatedAt), toUnix(t.LastRenderedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save refresh target %s: %w", t.ChannelID, err)
	}
	return nil
}

// DeleteTarget removes the target for channelID. Deleting an unknown channel is not an error.
func (r *Repository) DeleteTarget(ctx context.Context, channelID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM refresh_targets WHERE channel_id = ?`, channelID); err != nil {
		return fmt.Errorf("failed to delete refresh target %s: %w", channelID, err)
	}
	return nil
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnix(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
