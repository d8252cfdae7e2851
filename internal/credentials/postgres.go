package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the credential in the single-row site_credentials
// table. The id=1 constraint enforces "at most one active credential".
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Save(ctx context.Context, keyHash string, status string) error {
	query := `INSERT INTO site_credentials (id, key_hash, status, updated_at)
	          VALUES (1, $1, $2, now())
	          ON CONFLICT (id) DO UPDATE
	          SET key_hash = EXCLUDED.key_hash, status = EXCLUDED.status, updated_at = now()`

	if _, err := s.pool.Exec(ctx, query, keyHash, status); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context) (string, string, error) {
	var keyHash *string
	var status string

	query := `SELECT key_hash, status FROM site_credentials WHERE id = 1`
	err := s.pool.QueryRow(ctx, query).Scan(&keyHash, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", StatusDisconnected, nil
		}
		return "", "", fmt.Errorf("load credential: %w", err)
	}

	if keyHash == nil {
		return "", status, nil
	}
	return *keyHash, status, nil
}

func (s *PostgresStore) Delete(ctx context.Context) error {
	query := `INSERT INTO site_credentials (id, key_hash, status, updated_at)
	          VALUES (1, NULL, $1, now())
	          ON CONFLICT (id) DO UPDATE
	          SET key_hash = NULL, status = EXCLUDED.status, updated_at = now()`

	if _, err := s.pool.Exec(ctx, query, StatusDisconnected); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
