package agents

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultrainstinct-ai/site-connect/internal/auditlog"
	"github.com/ultrainstinct-ai/site-connect/internal/metrics"
	"github.com/ultrainstinct-ai/site-connect/internal/webhook"
)

// memStore is an in-memory Store with the same matched/not-matched
// semantics as the Postgres implementation.
type memStore struct {
	mu     sync.Mutex
	agents map[string]Agent
}

func newMemStore() *memStore {
	return &memStore{agents: make(map[string]Agent)}
}

func (m *memStore) Upsert(_ context.Context, a Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.agents[a.AgentID]; ok {
		a.CreatedAt = existing.CreatedAt
	}
	m.agents[a.AgentID] = a
	return nil
}

func (m *memStore) Touch(_ context.Context, agentID string, seen time.Time, metadata map[string]any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[agentID]
	if !ok {
		return false, nil
	}
	a.LastSeen = seen
	a.Status = StatusActive
	if len(metadata) > 0 {
		if a.Metadata == nil {
			a.Metadata = make(map[string]any)
		}
		for k, v := range metadata {
			a.Metadata[k] = v
		}
	}
	m.agents[agentID] = a
	return true, nil
}

func (m *memStore) SetStatus(_ context.Context, agentID string, status string, seen time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[agentID]
	if !ok {
		return false, nil
	}
	a.Status = status
	a.LastSeen = seen
	m.agents[agentID] = a
	return true, nil
}

func (m *memStore) List(_ context.Context, status string) ([]Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Agent{}
	for _, a := range m.agents {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeen.After(out[j].LastSeen) })
	return out, nil
}

func (m *memStore) Get(_ context.Context, agentID string) (*Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[agentID]
	if !ok {
		return nil, ErrAgentNotFound
	}
	return &a, nil
}

func (m *memStore) MarkInactive(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, a := range m.agents {
		if a.Status == StatusActive && a.LastSeen.Before(cutoff) {
			a.Status = StatusInactive
			m.agents[id] = a
			n++
		}
	}
	return n, nil
}

func (m *memStore) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.agents)
}

// fakeDispatcher records deliveries and returns a canned outcome per URL.
type fakeDispatcher struct {
	mu       sync.Mutex
	sent     []string
	failURLs map[string]error
}

func (f *fakeDispatcher) Send(_ context.Context, url string, _ map[string]any) (*webhook.Delivery, error) {
	f.mu.Lock()
	f.sent = append(f.sent, url)
	f.mu.Unlock()
	if err, ok := f.failURLs[url]; ok {
		return nil, err
	}
	return &webhook.Delivery{Success: true, ResponseCode: 200}, nil
}

func newTestService(store Store, dispatcher Dispatcher) *Service {
	return NewService(store, dispatcher, auditlog.Nop{}, metrics.New(nil), 10*time.Minute)
}

func TestRegisterRequiresFields(t *testing.T) {
	svc := newTestService(newMemStore(), &fakeDispatcher{})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{AgentName: "Bot", AgentType: "writer"})
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "agent_id", missing.Field)

	_, err = svc.Register(ctx, RegisterInput{AgentID: "a1", AgentType: "writer"})
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "agent_name", missing.Field)

	_, err = svc.Register(ctx, RegisterInput{AgentID: "a1", AgentName: "Bot"})
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "agent_type", missing.Field)
}

func TestRegisterTwiceUpdatesInsteadOfDuplicating(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeDispatcher{})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{AgentID: "a1", AgentName: "Bot", AgentType: "writer"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{AgentID: "a1", AgentName: "Bot v2", AgentType: "editor"})
	require.NoError(t, err)

	agents, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, "a1", agents[0].AgentID)
	assert.Equal(t, "Bot v2", agents[0].AgentName)
	assert.Equal(t, "editor", agents[0].AgentType)
	assert.Equal(t, StatusActive, agents[0].Status)
}

func TestRegisterReactivatesDisconnectedAgent(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeDispatcher{})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{AgentID: "a1", AgentName: "Bot", AgentType: "writer"})
	require.NoError(t, err)
	_, err = svc.Disconnect(ctx, "a1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{AgentID: "a1", AgentName: "Bot", AgentType: "writer"})
	require.NoError(t, err)

	agent, err := svc.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, agent.Status)
}

func TestHeartbeatUnknownAgentIsNoOp(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeDispatcher{})
	ctx := context.Background()

	require.NoError(t, svc.Heartbeat(ctx, "ghost", nil))
	assert.Equal(t, 0, store.size())
}

func TestHeartbeatRefreshesAndMergesMetadata(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeDispatcher{})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{
		AgentID:   "a1",
		AgentName: "Bot",
		AgentType: "writer",
		Metadata:  map[string]any{"version": "1.0"},
	})
	require.NoError(t, err)

	before, err := svc.Get(ctx, "a1")
	require.NoError(t, err)

	require.NoError(t, svc.Heartbeat(ctx, "a1", map[string]any{"load": 0.5}))

	after, err := svc.Get(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, after.LastSeen.Before(before.LastSeen))
	assert.Equal(t, StatusActive, after.Status)
	assert.Equal(t, "1.0", after.Metadata["version"])
	assert.Equal(t, 0.5, after.Metadata["load"])
}

func TestSweepInactiveBoundary(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeDispatcher{})
	ctx := context.Background()

	now := time.Now().UTC()
	svc.now = func() time.Time { return now }

	stale := Agent{AgentID: "stale", AgentName: "Old", AgentType: "writer",
		Status: StatusActive, LastSeen: now.Add(-11 * time.Minute)}
	boundary := Agent{AgentID: "boundary", AgentName: "Edge", AgentType: "writer",
		Status: StatusActive, LastSeen: now.Add(-10 * time.Minute)}
	fresh := Agent{AgentID: "fresh", AgentName: "New", AgentType: "writer",
		Status: StatusActive, LastSeen: now.Add(-time.Minute)}
	for _, a := range []Agent{stale, boundary, fresh} {
		require.NoError(t, store.Upsert(ctx, a))
	}

	n, err := svc.SweepInactive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	get := func(id string) string {
		a, err := svc.Get(ctx, id)
		require.NoError(t, err)
		return a.Status
	}
	assert.Equal(t, StatusInactive, get("stale"))
	// last_seen exactly at the threshold is not "older than" the timeout.
	assert.Equal(t, StatusActive, get("boundary"))
	assert.Equal(t, StatusActive, get("fresh"))
}

func TestDisconnectLifecycle(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeDispatcher{})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{AgentID: "a1", AgentName: "Bot", AgentType: "writer"})
	require.NoError(t, err)

	active, err := svc.List(ctx, StatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "a1", active[0].AgentID)

	ok, err := svc.Disconnect(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, ok)

	active, err = svc.List(ctx, StatusActive)
	require.NoError(t, err)
	assert.Empty(t, active)

	disconnected, err := svc.List(ctx, StatusDisconnected)
	require.NoError(t, err)
	require.Len(t, disconnected, 1)
	assert.Equal(t, "a1", disconnected[0].AgentID)
}

func TestDisconnectUnknownAgent(t *testing.T) {
	svc := newTestService(newMemStore(), &fakeDispatcher{})

	ok, err := svc.Disconnect(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSendMessageErrors(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeDispatcher{})
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, "ghost", map[string]any{})
	assert.ErrorIs(t, err, ErrAgentNotFound)

	_, err = svc.Register(ctx, RegisterInput{AgentID: "a1", AgentName: "Bot", AgentType: "writer"})
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, "a1", map[string]any{})
	assert.ErrorIs(t, err, ErrNoWebhookURL)
}

func TestBroadcastPartialDelivery(t *testing.T) {
	store := newMemStore()
	dispatcher := &fakeDispatcher{}
	svc := newTestService(store, dispatcher)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{
		AgentID: "with-hook", AgentName: "A", AgentType: "writer",
		Metadata: map[string]any{MetadataWebhookURL: "https://a.example/hook"},
	})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{
		AgentID: "without-hook", AgentName: "B", AgentType: "writer",
	})
	require.NoError(t, err)

	results, err := svc.Broadcast(ctx, map[string]any{"task_id": "t1"}, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results["with-hook"].Success)
	assert.Equal(t, 200, results["with-hook"].ResponseCode)
	assert.False(t, results["without-hook"].Success)
	assert.Equal(t, "no_webhook", results["without-hook"].Error)
}

func TestBroadcastFiltersByType(t *testing.T) {
	store := newMemStore()
	dispatcher := &fakeDispatcher{}
	svc := newTestService(store, dispatcher)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{
		AgentID: "writer-1", AgentName: "W", AgentType: "writer",
		Metadata: map[string]any{MetadataWebhookURL: "https://w.example/hook"},
	})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{
		AgentID: "seo-1", AgentName: "S", AgentType: "seo",
		Metadata: map[string]any{MetadataWebhookURL: "https://s.example/hook"},
	})
	require.NoError(t, err)

	results, err := svc.Broadcast(ctx, map[string]any{}, []string{"writer"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results, "writer-1")
	assert.Equal(t, []string{"https://w.example/hook"}, dispatcher.sent)
}

func TestBroadcastSkipsInactiveAgents(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeDispatcher{})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{
		AgentID: "gone", AgentName: "G", AgentType: "writer",
		Metadata: map[string]any{MetadataWebhookURL: "https://g.example/hook"},
	})
	require.NoError(t, err)
	_, err = svc.Disconnect(ctx, "gone")
	require.NoError(t, err)

	results, err := svc.Broadcast(ctx, map[string]any{}, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBroadcastIsolatesFailures(t *testing.T) {
	store := newMemStore()
	dispatcher := &fakeDispatcher{failURLs: map[string]error{
		"https://bad.example/hook": errors.New("connection refused"),
	}}
	svc := newTestService(store, dispatcher)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{
		AgentID: "good", AgentName: "G", AgentType: "writer",
		Metadata: map[string]any{MetadataWebhookURL: "https://good.example/hook"},
	})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{
		AgentID: "bad", AgentName: "B", AgentType: "writer",
		Metadata: map[string]any{MetadataWebhookURL: "https://bad.example/hook"},
	})
	require.NoError(t, err)

	results, err := svc.Broadcast(ctx, map[string]any{}, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results["good"].Success)
	assert.False(t, results["bad"].Success)
	assert.Contains(t, results["bad"].Error, "connection refused")
}

func TestUpdateStatusValidation(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeDispatcher{})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{AgentID: "a1", AgentName: "Bot", AgentType: "writer"})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(ctx, "a1", StatusInactive))
	agent, err := svc.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, agent.Status)

	assert.Error(t, svc.UpdateStatus(ctx, "a1", "banned"))
}
