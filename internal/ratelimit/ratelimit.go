// Package ratelimit provides a SQLite-backed fixed-window rate limiter
// keyed by sender identity. Counters are the only cross-request state in
// the service; everything else lives for a single request.
package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Defaults bound a single sender to a sane message budget.
const (
	DefaultWindow = time.Hour
	DefaultMax    = 30
)

const schema = `
CREATE TABLE IF NOT EXISTS rate_limits (
	identity     TEXT    NOT NULL,
	window_start INTEGER NOT NULL,
	count        INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (identity, window_start)
);
`

// Limiter is a fixed-window limiter. Safe for concurrent use; SQLite
// serializes the counter updates.
type Limiter struct {
	db     *sql.DB
	window time.Duration
	max    int
	now    func() time.Time
}

// Config holds limiter settings.
type Config struct {
	DBPath string        `yaml:"db_path"`
	Window time.Duration `yaml:"window"`
	Max    int           `yaml:"max"`
}

// Open creates (or reuses) the counter database. Pass ":memory:" for tests.
func Open(cfg Config) (*Limiter, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("ratelimit: db path is required")
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Max <= 0 {
		cfg.Max = DefaultMax
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Limiter{
		db:     db,
		window: cfg.Window,
		max:    cfg.Max,
		now:    time.Now,
	}, nil
}

// Allow records one message from identity and reports whether it is within
// the window budget. The counted message stays counted even when denied, so
// a flooding sender cannot reset their own window.
func (l *Limiter) Allow(ctx context.Context, identity string) (bool, error) {
	windowStart := l.now().UTC().Truncate(l.window).Unix()

	var count int
	err := l.db.QueryRowContext(ctx, `
		INSERT INTO rate_limits (identity, window_start, count)
		VALUES (?, ?, 1)
		ON CONFLICT (identity, window_start) DO UPDATE SET count = count + 1
		RETURNING count`,
		identity, windowStart,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("updating rate counter: %w", err)
	}

	// Drop windows old enough to never be read again.
	cutoff := l.now().UTC().Add(-2 * l.window).Unix()
	_, _ = l.db.ExecContext(ctx, "DELETE FROM rate_limits WHERE window_start < ?", cutoff)

	return count <= l.max, nil
}

// Close closes the counter database.
func (l *Limiter) Close() error {
	return l.db.Close()
}
