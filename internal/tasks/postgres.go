package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, t Task) error {
	payload, err := json.Marshal(t.Payload)
	if err != nil {
		return fmt.Errorf("encode task payload: %w", err)
	}
	if t.Payload == nil {
		payload = []byte("{}")
	}

	query := `INSERT INTO tasks (id, task_type, payload, status, created_at)
	          VALUES ($1, $2, $3, $4, $5)`

	if _, err := s.pool.Exec(ctx, query, t.ID, t.TaskType, payload, t.Status, t.CreatedAt); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, taskID string) (*Task, error) {
	var t Task
	var payload []byte

	query := `SELECT id, task_type, payload, status, created_at FROM tasks WHERE id = $1`
	err := s.pool.QueryRow(ctx, query, taskID).Scan(&t.ID, &t.TaskType, &payload, &t.Status, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &t.Payload); err != nil {
			return nil, fmt.Errorf("decode task payload: %w", err)
		}
	}
	return &t, nil
}

func (s *PostgresStore) SaveResult(ctx context.Context, r Result) error {
	resultJSON, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Errorf("encode task result: %w", err)
	}
	if r.Result == nil {
		resultJSON = []byte("{}")
	}

	query := `INSERT INTO task_results (task_id, status, result, error, agent_id, completed_at)
	          VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)
	          ON CONFLICT (task_id) DO UPDATE SET
	            status = EXCLUDED.status,
	            result = EXCLUDED.result,
	            error = EXCLUDED.error,
	            agent_id = EXCLUDED.agent_id,
	            completed_at = EXCLUDED.completed_at`

	if _, err := s.pool.Exec(ctx, query,
		r.TaskID, r.Status, resultJSON, r.Error, r.AgentID, r.CompletedAt); err != nil {
		return fmt.Errorf("save task result: %w", err)
	}

	if _, err := s.pool.Exec(ctx,
		`UPDATE tasks SET status = $2 WHERE id = $1`, r.TaskID, r.Status); err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetResult(ctx context.Context, taskID string) (*Result, error) {
	var r Result
	var resultJSON []byte
	var errText, agentID *string

	query := `SELECT task_id, status, result, error, agent_id, completed_at
	          FROM task_results WHERE task_id = $1`
	err := s.pool.QueryRow(ctx, query, taskID).Scan(
		&r.TaskID, &r.Status, &resultJSON, &errText, &agentID, &r.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task result: %w", err)
	}

	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &r.Result); err != nil {
			return nil, fmt.Errorf("decode task result: %w", err)
		}
	}
	if errText != nil {
		r.Error = *errText
	}
	if agentID != nil {
		r.AgentID = *agentID
	}
	return &r, nil
}
