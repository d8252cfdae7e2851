package handler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ultrainstinct-ai/site-connect/internal/agents"
	"github.com/ultrainstinct-ai/site-connect/internal/auditlog"
	"github.com/ultrainstinct-ai/site-connect/internal/metrics"
	"github.com/ultrainstinct-ai/site-connect/internal/site"
	"github.com/ultrainstinct-ai/site-connect/internal/tasks"
	"github.com/ultrainstinct-ai/site-connect/internal/webhook"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type agentStore struct {
	mu     sync.Mutex
	agents map[string]agents.Agent
}

func newAgentStore() *agentStore {
	return &agentStore{agents: make(map[string]agents.Agent)}
}

func (s *agentStore) Upsert(_ context.Context, a agents.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.agents[a.AgentID]; ok {
		a.CreatedAt = existing.CreatedAt
	}
	s.agents[a.AgentID] = a
	return nil
}

func (s *agentStore) Touch(_ context.Context, agentID string, seen time.Time, metadata map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[agentID]
	if !ok {
		return false, nil
	}
	a.LastSeen = seen
	a.Status = agents.StatusActive
	if len(metadata) > 0 {
		if a.Metadata == nil {
			a.Metadata = make(map[string]any)
		}
		for k, v := range metadata {
			a.Metadata[k] = v
		}
	}
	s.agents[agentID] = a
	return true, nil
}

func (s *agentStore) SetStatus(_ context.Context, agentID string, status string, seen time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[agentID]
	if !ok {
		return false, nil
	}
	a.Status = status
	a.LastSeen = seen
	s.agents[agentID] = a
	return true, nil
}

func (s *agentStore) List(_ context.Context, status string) ([]agents.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []agents.Agent
	for _, a := range s.agents {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeen.After(out[j].LastSeen) })
	return out, nil
}

func (s *agentStore) Get(_ context.Context, agentID string) (*agents.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[agentID]
	if !ok {
		return nil, agents.ErrAgentNotFound
	}
	return &a, nil
}

func (s *agentStore) MarkInactive(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.agents {
		if a.Status == agents.StatusActive && a.LastSeen.Before(cutoff) {
			a.Status = agents.StatusInactive
			s.agents[id] = a
			n++
		}
	}
	return n, nil
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []string
}

func (d *fakeDispatcher) Send(_ context.Context, url string, _ map[string]any) (*webhook.Delivery, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, url)
	return &webhook.Delivery{Success: true, ResponseCode: 200}, nil
}

type taskStore struct {
	mu      sync.Mutex
	tasks   map[string]tasks.Task
	results map[string]tasks.Result
}

func newTaskStore() *taskStore {
	return &taskStore{
		tasks:   make(map[string]tasks.Task),
		results: make(map[string]tasks.Result),
	}
}

func (s *taskStore) Insert(_ context.Context, t tasks.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
	return nil
}

func (s *taskStore) Get(_ context.Context, taskID string) (*tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, tasks.ErrTaskNotFound
	}
	return &t, nil
}

func (s *taskStore) SaveResult(_ context.Context, r tasks.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.TaskID] = r
	if t, ok := s.tasks[r.TaskID]; ok {
		t.Status = r.Status
		s.tasks[r.TaskID] = t
	}
	return nil
}

func (s *taskStore) GetResult(_ context.Context, taskID string) (*tasks.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[taskID]
	if !ok {
		return nil, tasks.ErrTaskNotFound
	}
	return &r, nil
}

func newAgentService(store agents.Store, dispatcher agents.Dispatcher) *agents.Service {
	return agents.NewService(store, dispatcher, auditlog.Nop{}, metrics.New(nil), 10*time.Minute)
}

func newSiteService() *site.Service {
	return site.NewService(site.Config{
		URL:             "https://example.test",
		AdminEmail:      "admin@example.test",
		PlatformVersion: "6.4.2",
		Timezone:        "UTC",
		Locale:          "en_US",
	}, "2.0.0")
}
