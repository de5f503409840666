package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/lib/pq"
)

const deleteQuery = `DELETE FROM console_state WHERE key = ANY($1)`

// PostgresStorage keeps state in the console_state table, so consoles
// on several hosts can share one session.
type PostgresStorage struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresStorage creates a PostgresStorage using the given connection.
// The console_state table must exist (see db.InitPostgres).
func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{DB: db}
}

// Get returns the value stored under key.
func (s *PostgresStorage) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.DB.QueryRowContext(ctx,
		`SELECT value FROM console_state WHERE key = $1`,
		key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Set upserts all values inside one transaction.
func (s *PostgresStorage) Set(ctx context.Context, values map[string]string) error {
	return s.Replace(ctx, values, nil)
}

// Replace deletes del and upserts set inside one transaction.
func (s *PostgresStorage) Replace(ctx context.Context, set map[string]string, del []string) error {
	if len(set) == 0 && len(del) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if len(del) > 0 {
		if _, err := tx.ExecContext(ctx, deleteQuery, pq.Array(del)); err != nil {
			return fmt.Errorf("delete: %w", err)
		}
	}

	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO console_state (key, value, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE SET
				value = EXCLUDED.value,
				updated_at = EXCLUDED.updated_at
		`, k, set[k])
		if err != nil {
			return fmt.Errorf("upsert %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Delete removes all keys with a single statement.
func (s *PostgresStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.DB.ExecContext(ctx, deleteQuery, pq.Array(keys))
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *PostgresStorage) Close() error {
	return s.DB.Close()
}
