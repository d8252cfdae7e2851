package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Delivery is the outcome of one outbound webhook POST. Success means the
// agent answered with a 2xx status; transport failures are returned as
// errors instead and never produce a Delivery.
type Delivery struct {
	Success      bool   `json:"success"`
	ResponseCode int    `json:"response_code"`
	ResponseBody string `json:"response_body,omitempty"`
}

// Dispatcher POSTs signed messages to agent callback URLs. Delivery is
// at-most-once: transport failures are logged and surfaced, never retried.
type Dispatcher struct {
	client  *http.Client
	secret  string
	siteURL string
	timeout time.Duration
}

func NewDispatcher(secret string, siteURL string, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		client:  &http.Client{Timeout: timeout},
		secret:  secret,
		siteURL: siteURL,
		timeout: timeout,
	}
}

// Send signs message and POSTs it to url. The configured timeout is applied
// as a hard context deadline so a stalled agent cannot block the caller.
func (d *Dispatcher) Send(ctx context.Context, url string, message map[string]any) (*Delivery, error) {
	messageJSON, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("encode webhook message: %w", err)
	}

	signature := Sign(d.secret, messageJSON)

	payload, err := json.Marshal(map[string]any{
		"message":   message,
		"site_url":  d.siteURL,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"signature": signature,
	})
	if err != nil {
		return nil, fmt.Errorf("encode webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		slog.Warn("Failed to read webhook response body", "url", url, "error", err)
	}

	return &Delivery{
		Success:      resp.StatusCode >= 200 && resp.StatusCode < 300,
		ResponseCode: resp.StatusCode,
		ResponseBody: string(body),
	}, nil
}
