// Package notify implements the sinks that consume dispatched
// notifications: webhook POSTs, sound playback, and history persistence.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"chime/internal/monitor"
)

// Webhook event names on the wire.
const (
	EventMessage = "message"
	EventUrgent  = "urgent"
	EventClear   = "clear"
)

const webhookTimeout = 10 * time.Second

// WebhookSink POSTs a JSON payload to a configured URL for every dispatched
// notification, plus a clear event when the alert is reset. A sink with an
// empty URL is disabled and ignores every call.
type WebhookSink struct {
	url      string
	bearer   string
	payloads map[string]map[string]any
	client   *http.Client
}

// NewWebhook creates a WebhookSink. payloads optionally overrides the JSON
// body per event name; events without an override get the default
// {type, timestamp, source} body.
func NewWebhook(url, bearer string, payloads map[string]map[string]any) *WebhookSink {
	return &WebhookSink{
		url:      url,
		bearer:   bearer,
		payloads: payloads,
		client:   &http.Client{Timeout: webhookTimeout},
	}
}

// Enabled reports whether a webhook URL is configured.
func (w *WebhookSink) Enabled() bool { return w.url != "" }

// Name identifies the sink in dispatcher logs.
func (w *WebhookSink) Name() string { return "webhook" }

// Send implements monitor.Sink. The POST runs on its own goroutine so the
// dispatch loop never waits on the network.
func (w *WebhookSink) Send(_ context.Context, n monitor.Notification) error {
	if !w.Enabled() {
		return nil
	}

	event := EventMessage
	if n.Kind == monitor.KindUrgent {
		event = EventUrgent
	}

	go func() {
		if err := w.post(event); err != nil {
			slog.Warn("webhook delivery failed", "event", event, "error", err)
		}
	}()
	return nil
}

// SendClear posts the clear event synchronously. Called from the reset
// surface, not from the dispatch loop.
func (w *WebhookSink) SendClear() error {
	if !w.Enabled() {
		return nil
	}
	return w.post(EventClear)
}

func (w *WebhookSink) post(event string) error {
	body, err := json.Marshal(w.payload(event))
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+w.bearer)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, snippet)
	}

	slog.Debug("webhook sent", "event", event, "status", resp.StatusCode)
	return nil
}

// payload returns the configured override for event, or the default body.
func (w *WebhookSink) payload(event string) map[string]any {
	if custom, ok := w.payloads[event]; ok && custom != nil {
		return custom
	}
	return map[string]any{
		"type":      event,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"source":    "chime",
	}
}
