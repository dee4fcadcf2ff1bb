package credstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	sqlSelectPair = `SELECT key, value FROM credentials WHERE key IN (?, ?)`

	sqlUpsertValue = `INSERT INTO credentials (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
		 value = excluded.value,
		 updated_at = excluded.updated_at`

	sqlDeletePair = `DELETE FROM credentials WHERE key IN (?, ?)`
)

// SQLite stores the pair as two rows of a key/value table. Set and Clear touch
// both rows inside one transaction.
type SQLite struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time
}

// OpenSQLite opens (or creates) the database at path and applies migrations.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)",
		path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("credstore: opening database %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db, logger: logger, nowFunc: time.Now}, nil
}

// runMigrations applies pending schema migrations with the goose Provider API.
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("credstore: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("credstore: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("credstore: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// Get loads both rows.
func (s *SQLite) Get(ctx context.Context) (Pair, error) {
	rows, err := s.db.QueryContext(ctx, sqlSelectPair, KeyAccess, KeyRefresh)
	if err != nil {
		return Pair{}, fmt.Errorf("credstore: querying credentials: %w", err)
	}
	defer rows.Close()

	var access, refresh string

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Pair{}, fmt.Errorf("credstore: scanning credentials: %w", err)
		}

		switch key {
		case KeyAccess:
			access = value
		case KeyRefresh:
			refresh = value
		}
	}

	if err := rows.Err(); err != nil {
		return Pair{}, fmt.Errorf("credstore: iterating credentials: %w", err)
	}

	return pairFromValues(access, refresh)
}

// Set upserts both rows in one transaction.
func (s *SQLite) Set(ctx context.Context, p Pair) error {
	if err := validate(p); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("credstore: beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	now := s.nowFunc().UnixNano()

	if _, err := tx.ExecContext(ctx, sqlUpsertValue, KeyAccess, p.Access, now); err != nil {
		return fmt.Errorf("credstore: writing access token: %w", err)
	}

	if _, err := tx.ExecContext(ctx, sqlUpsertValue, KeyRefresh, p.Refresh, now); err != nil {
		return fmt.Errorf("credstore: writing refresh token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("credstore: committing credentials: %w", err)
	}

	return nil
}

// Clear deletes both rows in one statement.
func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqlDeletePair, KeyAccess, KeyRefresh); err != nil {
		return fmt.Errorf("credstore: clearing credentials: %w", err)
	}

	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
