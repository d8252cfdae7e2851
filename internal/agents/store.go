package agents

import (
	"context"
	"time"
)

// Store is the persistence contract for the agent registry. Every mutation
// goes through this interface so no cache or side channel can diverge from
// the backing table.
type Store interface {
	// Upsert inserts the agent or, when agent_id already exists, replaces
	// name/type/status/last_seen/capabilities/metadata. Must be atomic under
	// concurrent first registration of the same agent_id.
	Upsert(ctx context.Context, a Agent) error

	// Touch refreshes last_seen and forces status active, optionally merging
	// metadata. Returns false when no row matched, which is not an error.
	Touch(ctx context.Context, agentID string, seen time.Time, metadata map[string]any) (bool, error)

	// SetStatus updates the agent's status and last_seen. Returns false when
	// no row matched.
	SetStatus(ctx context.Context, agentID string, status string, seen time.Time) (bool, error)

	// List returns agents ordered by last_seen descending, filtered by
	// status when status is non-empty.
	List(ctx context.Context, status string) ([]Agent, error)

	// Get returns the agent or ErrAgentNotFound.
	Get(ctx context.Context, agentID string) (*Agent, error)

	// MarkInactive flips every active agent not seen since cutoff to
	// inactive and returns the number of rows changed.
	MarkInactive(ctx context.Context, cutoff time.Time) (int64, error)
}
