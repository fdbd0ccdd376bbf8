package quota

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const usageSchema = `
CREATE TABLE IF NOT EXISTS prompt_usage (
	user_id TEXT NOT NULL,
	day TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, day)
)`

// SQLStore keeps usage in a prompt_usage table. It works with the "sqlite3" and
// "postgres" drivers.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewSQLStore opens dsn with driver and creates the table if needed.
func NewSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("unsupported quota driver: %s", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open quota database: %w", err)
	}
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to quota database: %w", err)
	}
	if _, err := db.ExecContext(ctx, usageSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize quota schema: %w", err)
	}
	return &SQLStore{db: db, driver: driver}, nil
}

// Count implements Store.
func (s *SQLStore) Count(ctx context.Context, user, day string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.rebind("SELECT count FROM prompt_usage WHERE user_id = $1 AND day = $2"), user, day).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query usage: %w", err)
	}
	return n, nil
}

// Increment implements Store.
func (s *SQLStore) Increment(ctx context.Context, user, day string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO prompt_usage (user_id, day, count) VALUES ($1, $2, 1)
		ON CONFLICT (user_id, day) DO UPDATE SET count = prompt_usage.count + 1
		RETURNING count`), user, day).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to increment usage: %w", err)
	}
	return n, nil
}

// Decrement implements Store.
func (s *SQLStore) Decrement(ctx context.Context, user, day string) (int, error) {
	_, err := s.db.ExecContext(ctx, s.rebind(
		"UPDATE prompt_usage SET count = count - 1 WHERE user_id = $1 AND day = $2 AND count > 0"), user, day)
	if err != nil {
		return 0, fmt.Errorf("failed to decrement usage: %w", err)
	}
	return s.Count(ctx, user, day)
}

// Close implements Store.
func (s *SQLStore) Close() error { return s.db.Close() }

// rebind converts $N placeholders to ? for sqlite.
func (s *SQLStore) rebind(query string) string {
	if s.driver != "sqlite3" {
		return query
	}
	for i := 9; i >= 1; i-- {
		query = strings.ReplaceAll(query, fmt.Sprintf("$%d", i), "?")
	}
	return query
}
