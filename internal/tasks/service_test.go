package tasks

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	tasks   map[string]Task
	results map[string]Result
}

func newMemStore() *memStore {
	return &memStore{tasks: make(map[string]Task), results: make(map[string]Result)}
}

func (m *memStore) Insert(_ context.Context, t Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = t
	return nil
}

func (m *memStore) Get(_ context.Context, taskID string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return &t, nil
}

func (m *memStore) SaveResult(_ context.Context, r Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[r.TaskID] = r
	if t, ok := m.tasks[r.TaskID]; ok {
		t.Status = r.Status
		m.tasks[r.TaskID] = t
	}
	return nil
}

func (m *memStore) GetResult(_ context.Context, taskID string) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return &r, nil
}

func TestCreateAssignsIDAndDefaults(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()

	task, err := svc.Create(ctx, "", map[string]any{"target": "homepage"})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "generic", task.TaskType)
	assert.Equal(t, StatusPending, task.Status)

	got, result, err := svc.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Nil(t, result)
}

func TestGetUnknownTask(t *testing.T) {
	svc := NewService(newMemStore())

	_, _, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestCompleteRecordsResult(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()

	task, err := svc.Create(ctx, "content_refresh", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Complete(ctx, task.ID, "a1", map[string]any{"posts": 3}))

	got, result, err := svc.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, result)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, "a1", result.AgentID)
	assert.False(t, result.CompletedAt.IsZero())
}

func TestFailRecordsError(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()

	task, err := svc.Create(ctx, "content_refresh", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Fail(ctx, task.ID, "a1", ""))

	got, result, err := svc.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	require.NotNil(t, result)
	assert.Equal(t, "Unknown error", result.Error)
}

func TestResultOverwrite(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()

	task, err := svc.Create(ctx, "t", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Fail(ctx, task.ID, "a1", "timeout"))
	require.NoError(t, svc.Complete(ctx, task.ID, "a2", map[string]any{"ok": true}))

	_, result, err := svc.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, "a2", result.AgentID)
	assert.Empty(t, result.Error)
}
