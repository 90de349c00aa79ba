package routes

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the table in the user_topics table. Table order is
// the insertion position column.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a store on an open pool. The schema must exist
// (see database.EnsureSchema).
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Load reads all rows in insertion order.
func (s *PostgresStore) Load(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT user_id, topic_id
		FROM user_topics
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("query user_topics: %w", err)
	}

	entries, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Entry])
	if err != nil {
		return nil, fmt.Errorf("scan user_topics: %w", err)
	}
	return entries, nil
}

// Save inserts rows not yet stored. Entries are never updated or deleted,
// so existing rows are left as they are.
func (s *PostgresStore) Save(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO user_topics (user_id, topic_id)
			VALUES ($1, $2)
			ON CONFLICT (user_id) DO NOTHING
		`, e.UserID, e.TopicID)
	}

	results := tx.SendBatch(ctx, batch)
	for range entries {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("insert user_topics: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("insert user_topics: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
