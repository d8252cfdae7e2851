package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRecorder struct {
	pool *pgxpool.Pool
}

func NewPostgresRecorder(pool *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{pool: pool}
}

func (r *PostgresRecorder) Record(ctx context.Context, e Entry) {
	if e.Level == "" {
		e.Level = LevelInfo
	}
	if e.LoggedAt.IsZero() {
		e.LoggedAt = time.Now().UTC()
	}

	contextJSON := []byte("{}")
	if len(e.Context) > 0 {
		if b, err := json.Marshal(e.Context); err == nil {
			contextJSON = b
		}
	}

	query := `INSERT INTO activity_log (logged_at, level, message, context, ip, agent_id, action_type)
	          VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''))`

	_, err := r.pool.Exec(ctx, query,
		e.LoggedAt, e.Level, e.Message, contextJSON, e.IP, e.AgentID, e.ActionType)
	if err != nil {
		slog.Error("Failed to persist activity log entry",
			"error", err,
			"message", e.Message,
			"level", e.Level)
	}
}

// PurgeOlderThan removes entries past the retention horizon and returns how
// many rows were dropped.
func (r *PostgresRecorder) PurgeOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)

	tag, err := r.pool.Exec(ctx, `DELETE FROM activity_log WHERE logged_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge activity log: %w", err)
	}
	return tag.RowsAffected(), nil
}
