package tasks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

var ErrTaskNotFound = errors.New("task not found")

// Store persists tasks and their results.
type Store interface {
	Insert(ctx context.Context, t Task) error
	Get(ctx context.Context, taskID string) (*Task, error)

	// SaveResult upserts the result row keyed by task_id and flips the task
	// status to match.
	SaveResult(ctx context.Context, r Result) error
	GetResult(ctx context.Context, taskID string) (*Result, error)
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Create records a new pending task and returns it with a generated id.
func (s *Service) Create(ctx context.Context, taskType string, payload map[string]any) (*Task, error) {
	if taskType == "" {
		taskType = "generic"
	}

	task := Task{
		ID:        uuid.NewString(),
		TaskType:  taskType,
		Payload:   payload,
		Status:    StatusPending,
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.Insert(ctx, task); err != nil {
		return nil, err
	}

	slog.Info("Task created", "task_id", task.ID, "task_type", taskType)
	return &task, nil
}

// Get returns the task and its result, if one was reported yet.
func (s *Service) Get(ctx context.Context, taskID string) (*Task, *Result, error) {
	task, err := s.store.Get(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.store.GetResult(ctx, taskID)
	if err != nil && !errors.Is(err, ErrTaskNotFound) {
		return nil, nil, err
	}
	return task, result, nil
}

// Complete records a successful outcome reported by an agent.
func (s *Service) Complete(ctx context.Context, taskID string, agentID string, result map[string]any) error {
	return s.store.SaveResult(ctx, Result{
		TaskID:      taskID,
		Status:      StatusCompleted,
		Result:      result,
		AgentID:     agentID,
		CompletedAt: s.now().UTC(),
	})
}

// Fail records a failed outcome reported by an agent.
func (s *Service) Fail(ctx context.Context, taskID string, agentID string, errorText string) error {
	if errorText == "" {
		errorText = "Unknown error"
	}
	return s.store.SaveResult(ctx, Result{
		TaskID:      taskID,
		Status:      StatusFailed,
		Error:       errorText,
		AgentID:     agentID,
		CompletedAt: s.now().UTC(),
	})
}
