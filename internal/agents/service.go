package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ultrainstinct-ai/site-connect/internal/auditlog"
	"github.com/ultrainstinct-ai/site-connect/internal/metrics"
	"github.com/ultrainstinct-ai/site-connect/internal/webhook"
)

var (
	ErrAgentNotFound = errors.New("agent not found")
	ErrNoWebhookURL  = errors.New("agent has no webhook URL configured")
)

// MissingFieldError reports a registration payload lacking a required field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// Dispatcher delivers a signed message to an agent callback URL.
type Dispatcher interface {
	Send(ctx context.Context, url string, message map[string]any) (*webhook.Delivery, error)
}

// BroadcastResult is the per-agent outcome of a broadcast. Every targeted
// agent gets an entry whether or not delivery was attempted.
type BroadcastResult struct {
	Success      bool   `json:"success"`
	ResponseCode int    `json:"response_code,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Service is the agent registry: registration, liveness, lifecycle and
// outbound messaging. All registry mutations flow through here and the
// Store, so state has a single source of truth.
type Service struct {
	store         Store
	dispatcher    Dispatcher
	audit         auditlog.Recorder
	metrics       *metrics.Metrics
	inactiveAfter time.Duration
	now           func() time.Time
}

func NewService(store Store, dispatcher Dispatcher, audit auditlog.Recorder, m *metrics.Metrics, inactiveAfter time.Duration) *Service {
	return &Service{
		store:         store,
		dispatcher:    dispatcher,
		audit:         audit,
		metrics:       m,
		inactiveAfter: inactiveAfter,
		now:           time.Now,
	}
}

// Register creates or updates the agent. Re-registration is an upsert: the
// row keyed by agent_id is refreshed, never duplicated, and the agent comes
// back active regardless of its previous status.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Agent, error) {
	for _, f := range []struct{ name, value string }{
		{"agent_id", in.AgentID},
		{"agent_name", in.AgentName},
		{"agent_type", in.AgentType},
	} {
		if f.value == "" {
			return nil, &MissingFieldError{Field: f.name}
		}
	}

	now := s.now().UTC()
	agent := Agent{
		AgentID:      in.AgentID,
		AgentName:    in.AgentName,
		AgentType:    in.AgentType,
		Status:       StatusActive,
		LastSeen:     now,
		Capabilities: in.Capabilities,
		Metadata:     in.Metadata,
		CreatedAt:    now,
	}

	if err := s.store.Upsert(ctx, agent); err != nil {
		return nil, err
	}

	slog.Info("Agent registered", "agent_id", in.AgentID, "agent_type", in.AgentType)
	s.audit.Record(ctx, auditlog.Entry{
		Level:      auditlog.LevelInfo,
		Message:    fmt.Sprintf("Agent registered: %s (%s)", in.AgentName, in.AgentID),
		Context:    map[string]any{"agent_type": in.AgentType},
		AgentID:    in.AgentID,
		ActionType: "agent_register",
	})

	return &agent, nil
}

// Heartbeat refreshes last_seen and forces the agent active. A heartbeat
// for an unknown agent_id is a successful no-op: it never registers
// implicitly, and only a storage failure is an error.
func (s *Service) Heartbeat(ctx context.Context, agentID string, metadata map[string]any) error {
	matched, err := s.store.Touch(ctx, agentID, s.now().UTC(), metadata)
	if err != nil {
		return err
	}
	if !matched {
		slog.Debug("Heartbeat for unknown agent ignored", "agent_id", agentID)
	}
	return nil
}

func (s *Service) List(ctx context.Context, status string) ([]Agent, error) {
	return s.store.List(ctx, status)
}

func (s *Service) Get(ctx context.Context, agentID string) (*Agent, error) {
	return s.store.Get(ctx, agentID)
}

// CountActive returns how many agents are currently active.
func (s *Service) CountActive(ctx context.Context) (int, error) {
	active, err := s.store.List(ctx, StatusActive)
	if err != nil {
		return 0, err
	}
	return len(active), nil
}

// Disconnect marks the agent disconnected. Returns false when the agent
// does not exist.
func (s *Service) Disconnect(ctx context.Context, agentID string) (bool, error) {
	matched, err := s.store.SetStatus(ctx, agentID, StatusDisconnected, s.now().UTC())
	if err != nil {
		return false, err
	}
	if matched {
		slog.Info("Agent disconnected", "agent_id", agentID)
		s.audit.Record(ctx, auditlog.Entry{
			Level:      auditlog.LevelInfo,
			Message:    fmt.Sprintf("Agent disconnected: %s", agentID),
			AgentID:    agentID,
			ActionType: "agent_disconnect",
		})
	}
	return matched, nil
}

// UpdateStatus sets an agent's status on its behalf (inbound status-update
// events). Unknown statuses are rejected before touching storage.
func (s *Service) UpdateStatus(ctx context.Context, agentID string, status string) error {
	switch status {
	case StatusActive, StatusInactive, StatusDisconnected:
	default:
		return fmt.Errorf("invalid agent status: %q", status)
	}

	if _, err := s.store.SetStatus(ctx, agentID, status, s.now().UTC()); err != nil {
		return err
	}
	return nil
}

// SweepInactive marks agents quiet for longer than the configured timeout
// as inactive. Idempotent and safe to run concurrently; the cutoff
// comparison is strict, so an agent seen exactly at the threshold stays
// active.
func (s *Service) SweepInactive(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.inactiveAfter)
	n, err := s.store.MarkInactive(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("Marked agents inactive", "count", n)
	}
	return n, nil
}

// SendMessage signs and delivers message to the agent's webhook URL.
// Delivery is best effort with no retry; the agent's own heartbeat cadence
// is the recovery mechanism.
func (s *Service) SendMessage(ctx context.Context, agentID string, message map[string]any) (*webhook.Delivery, error) {
	agent, err := s.store.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}

	url := agent.WebhookURL()
	if url == "" {
		s.metrics.WebhookDeliveries.WithLabelValues("no_webhook").Inc()
		return nil, ErrNoWebhookURL
	}

	delivery, err := s.dispatcher.Send(ctx, url, message)
	if err != nil {
		s.metrics.WebhookDeliveries.WithLabelValues("failed").Inc()
		slog.Error("Failed to send message to agent",
			"agent_id", agentID,
			"webhook_url", url,
			"error", err)
		s.audit.Record(ctx, auditlog.Entry{
			Level:      auditlog.LevelError,
			Message:    fmt.Sprintf("Failed to send message to agent %s: %v", agentID, err),
			AgentID:    agentID,
			ActionType: "webhook_send",
		})
		return nil, err
	}

	if delivery.Success {
		s.metrics.WebhookDeliveries.WithLabelValues("delivered").Inc()
	} else {
		s.metrics.WebhookDeliveries.WithLabelValues("rejected").Inc()
	}
	slog.Info("Message sent to agent",
		"agent_id", agentID,
		"response_code", delivery.ResponseCode)
	return delivery, nil
}

// Broadcast delivers message to every active agent, optionally filtered by
// agent type. Deliveries run in parallel and are isolated: one unreachable
// agent does not delay or fail the others. The result map has an entry for
// every targeted agent.
func (s *Service) Broadcast(ctx context.Context, message map[string]any, agentTypes []string) (map[string]BroadcastResult, error) {
	active, err := s.store.List(ctx, StatusActive)
	if err != nil {
		return nil, err
	}

	typeAllowed := func(agentType string) bool {
		if len(agentTypes) == 0 {
			return true
		}
		for _, t := range agentTypes {
			if t == agentType {
				return true
			}
		}
		return false
	}

	results := make(map[string]BroadcastResult)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, agent := range active {
		if !typeAllowed(agent.AgentType) {
			continue
		}

		wg.Add(1)
		go func(agentID string) {
			defer wg.Done()

			var result BroadcastResult
			delivery, err := s.SendMessage(ctx, agentID, message)
			switch {
			case errors.Is(err, ErrNoWebhookURL):
				result = BroadcastResult{Error: "no_webhook"}
			case err != nil:
				result = BroadcastResult{Error: err.Error()}
			default:
				result = BroadcastResult{
					Success:      delivery.Success,
					ResponseCode: delivery.ResponseCode,
				}
			}

			mu.Lock()
			results[agentID] = result
			mu.Unlock()
		}(agent.AgentID)
	}

	wg.Wait()
	return results, nil
}
