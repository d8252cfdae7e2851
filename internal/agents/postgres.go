package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Upsert(ctx context.Context, a Agent) error {
	capabilities, err := json.Marshal(a.Capabilities)
	if err != nil {
		return fmt.Errorf("encode capabilities: %w", err)
	}
	if a.Capabilities == nil {
		capabilities = []byte("[]")
	}

	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if a.Metadata == nil {
		metadata = []byte("{}")
	}

	query := `INSERT INTO agent_connections
	            (agent_id, agent_name, agent_type, status, last_seen, capabilities, metadata, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $5)
	          ON CONFLICT (agent_id) DO UPDATE SET
	            agent_name = EXCLUDED.agent_name,
	            agent_type = EXCLUDED.agent_type,
	            status = EXCLUDED.status,
	            last_seen = EXCLUDED.last_seen,
	            capabilities = EXCLUDED.capabilities,
	            metadata = EXCLUDED.metadata`

	if _, err := s.pool.Exec(ctx, query,
		a.AgentID, a.AgentName, a.AgentType, a.Status, a.LastSeen, capabilities, metadata); err != nil {
		return fmt.Errorf("upsert agent: %w", err)
	}
	return nil
}

func (s *PostgresStore) Touch(ctx context.Context, agentID string, seen time.Time, metadata map[string]any) (bool, error) {
	var tag pgconn.CommandTag
	var err error

	if len(metadata) > 0 {
		metadataJSON, merr := json.Marshal(metadata)
		if merr != nil {
			return false, fmt.Errorf("encode metadata: %w", merr)
		}
		query := `UPDATE agent_connections
		          SET last_seen = $2, status = $3, metadata = metadata || $4
		          WHERE agent_id = $1`
		tag, err = s.pool.Exec(ctx, query, agentID, seen, StatusActive, metadataJSON)
	} else {
		query := `UPDATE agent_connections
		          SET last_seen = $2, status = $3
		          WHERE agent_id = $1`
		tag, err = s.pool.Exec(ctx, query, agentID, seen, StatusActive)
	}

	if err != nil {
		return false, fmt.Errorf("touch agent: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, agentID string, status string, seen time.Time) (bool, error) {
	query := `UPDATE agent_connections SET status = $2, last_seen = $3 WHERE agent_id = $1`

	tag, err := s.pool.Exec(ctx, query, agentID, status, seen)
	if err != nil {
		return false, fmt.Errorf("update agent status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) List(ctx context.Context, status string) ([]Agent, error) {
	var rows pgx.Rows
	var err error

	if status != "" {
		query := `SELECT agent_id, agent_name, agent_type, status, last_seen, capabilities, metadata, created_at
		          FROM agent_connections WHERE status = $1 ORDER BY last_seen DESC`
		rows, err = s.pool.Query(ctx, query, status)
	} else {
		query := `SELECT agent_id, agent_name, agent_type, status, last_seen, capabilities, metadata, created_at
		          FROM agent_connections ORDER BY last_seen DESC`
		rows, err = s.pool.Query(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	agents := []Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return agents, nil
}

func (s *PostgresStore) Get(ctx context.Context, agentID string) (*Agent, error) {
	query := `SELECT agent_id, agent_name, agent_type, status, last_seen, capabilities, metadata, created_at
	          FROM agent_connections WHERE agent_id = $1`

	rows, err := s.pool.Query(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get agent: %w", err)
		}
		return nil, ErrAgentNotFound
	}
	return scanAgent(rows)
}

func (s *PostgresStore) MarkInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `UPDATE agent_connections SET status = $1 WHERE status = $2 AND last_seen < $3`

	tag, err := s.pool.Exec(ctx, query, StatusInactive, StatusActive, cutoff)
	if err != nil {
		return 0, fmt.Errorf("mark inactive agents: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanAgent(rows pgx.Rows) (*Agent, error) {
	var a Agent
	var capabilities, metadata []byte

	if err := rows.Scan(&a.AgentID, &a.AgentName, &a.AgentType, &a.Status,
		&a.LastSeen, &capabilities, &metadata, &a.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan agent row: %w", err)
	}

	if len(capabilities) > 0 {
		if err := json.Unmarshal(capabilities, &a.Capabilities); err != nil {
			return nil, fmt.Errorf("decode capabilities for %s: %w", a.AgentID, err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", a.AgentID, err)
		}
	}
	return &a, nil
}
