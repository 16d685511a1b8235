// Package db persists a durable mirror of shard completions and
// candidate tuples alongside the authoritative flat result log (spec §6).
// Adapted from the donor forensics engine's PostgresStore: same pool
// lifecycle, same schema-file-on-disk bootstrap, same transactional batch
// insert shape.
package db

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rawblock/beal-search/pkg/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx.
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("[DB] connected to PostgreSQL for coordinator audit trail")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes the schema.sql file.
func (s *PostgresStore) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/db/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %v", err)
	}

	_, err = s.pool.Exec(context.Background(), string(schemaBytes))
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("[DB] coordinator schema initialized")
	return nil
}

// RecordShardCompletion mirrors a finish_work call into Postgres: one row
// in shard_completions (idempotent via ON CONFLICT DO NOTHING, since the
// coordinator's in-memory duplicate check is already authoritative — this
// is a durability mirror, not a second source of truth) and one row per
// candidate tuple.
func (s *PostgresStore) RecordShardCompletion(ctx context.Context, runID string, a uint32, candidates []models.Point) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO shard_completions (run_id, a, candidate_count)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id, a) DO NOTHING;
	`, runID, a, len(candidates))
	if err != nil {
		return fmt.Errorf("failed to insert shard_completions: %v", err)
	}

	for _, c := range candidates {
		_, err = tx.Exec(ctx, `
			INSERT INTO candidates (run_id, a, x, b, y)
			VALUES ($1, $2, $3, $4, $5);
		`, runID, c.A, c.X, c.B, c.Y)
		if err != nil {
			return fmt.Errorf("failed to insert candidate: %v", err)
		}
	}

	return tx.Commit(ctx)
}

// LoadCompletedShards warm-loads the set of already-completed a-values for
// runID, so a restarted coordinator does not re-dispense shards it already
// finished in a prior process lifetime.
func (s *PostgresStore) LoadCompletedShards(ctx context.Context, runID string) (map[uint32]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT a FROM shard_completions WHERE run_id = $1`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	completed := make(map[uint32]bool)
	for rows.Next() {
		var a int64
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		completed[uint32(a)] = true
	}
	return completed, rows.Err()
}

// CandidateCount returns the total number of persisted candidates for runID.
func (s *PostgresStore) CandidateCount(ctx context.Context, runID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM candidates WHERE run_id = $1`, runID).Scan(&count)
	return count, err
}

// GetPool exposes the connection pool for callers that need direct access
// (mirrors the donor's GetPool, used by its shadow runner).
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}
