package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// webhookQueueSize is the bounded channel capacity for outbound audit events.
const webhookQueueSize = 1024

// webhookEvent is the JSON payload POSTed to the external endpoint.
type webhookEvent struct {
	Event      string            `json:"event"`
	LicenseID  string            `json:"license_id,omitempty"`
	RemoteAddr string            `json:"remote_addr,omitempty"`
	Timestamp  string            `json:"timestamp"`
	Attrs      map[string]string `json:"attrs,omitempty"`
}

func newWebhookEvent(attrs []slog.Attr) webhookEvent {
	var evt webhookEvent
	for _, a := range attrs {
		switch a.Key {
		case "event":
			evt.Event = a.Value.String()
		case "license_id":
			evt.LicenseID = a.Value.String()
		case "remote_addr":
			evt.RemoteAddr = a.Value.String()
		case "timestamp":
			evt.Timestamp = a.Value.String()
		default:
			if evt.Attrs == nil {
				evt.Attrs = make(map[string]string)
			}
			evt.Attrs[a.Key] = a.Value.String()
		}
	}
	return evt
}

// auditWebhook forwards audit events to an external HTTP endpoint from a
// background goroutine. enqueue never blocks; when the queue is full the
// event is dropped.
type auditWebhook struct {
	url        string
	authHeader string // "Header: Value", e.g. "Authorization: Bearer xxx"
	client     *http.Client
	events     chan webhookEvent
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

func newAuditWebhook(url, authHeader string) *auditWebhook {
	w := &auditWebhook{
		url:        url,
		authHeader: authHeader,
		client:     &http.Client{Timeout: 10 * time.Second},
		events:     make(chan webhookEvent, webhookQueueSize),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *auditWebhook) enqueue(evt webhookEvent) {
	select {
	case w.events <- evt:
	default:
		slog.Warn("audit webhook: queue full, dropping event", "event", evt.Event)
	}
}

// close drains queued events and stops the dispatcher.
func (w *auditWebhook) close() {
	w.closeOnce.Do(func() {
		close(w.events)
		w.wg.Wait()
	})
}

func (w *auditWebhook) loop() {
	defer w.wg.Done()
	for evt := range w.events {
		w.send(evt)
	}
}

// send POSTs the event, retrying once on transport errors and 5xx.
func (w *auditWebhook) send(evt webhookEvent) {
	body, err := json.Marshal(evt)
	if err != nil {
		slog.Warn("audit webhook: marshal failed", "error", err)
		return
	}

	for attempt := 1; attempt <= 2; attempt++ {
		if attempt > 1 {
			time.Sleep(time.Second)
		}
		retry := w.post(body, attempt)
		if !retry {
			return
		}
	}
}

func (w *auditWebhook) post(body []byte, attempt int) (retry bool) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		slog.Warn("audit webhook: request creation failed", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Bequest-Audit-Webhook/1.0")
	if name, value, ok := strings.Cut(w.authHeader, ":"); ok {
		req.Header.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		slog.Warn("audit webhook: request failed", "error", err, "attempt", attempt)
		return true
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false
	case resp.StatusCode >= 500:
		slog.Warn("audit webhook: server error", "status", resp.StatusCode, "attempt", attempt)
		return true
	default:
		slog.Warn("audit webhook: client error", "status", resp.StatusCode)
		return false
	}
}
