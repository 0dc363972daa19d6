// Package notify fans domain events out to the configured webhook. Delivery
// is fire-and-forget: publishing never blocks or fails the operation that
// produced the event.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"

	"github.com/bali-malayali/bali-malayali/jobs"
)

// Enqueuer submits dispatch tasks to the queue.
type Enqueuer interface {
	EnqueueNotify(ctx context.Context, payload jobs.NotifyPayload) (*asynq.TaskInfo, error)
}

// Sink implements the EventSink ports of the domain services by enqueueing a
// dispatch task per event.
type Sink struct {
	enq Enqueuer
	log *slog.Logger
	now func() time.Time
}

// NewSink builds the event sink.
func NewSink(enq Enqueuer, log *slog.Logger) *Sink {
	return &Sink{enq: enq, log: log, now: time.Now}
}

// QuoteEvent enqueues one event. Failures are logged and swallowed; the
// producing operation has already committed.
func (s *Sink) QuoteEvent(ctx context.Context, event string, quoteID int64) {
	if s == nil || s.enq == nil {
		return
	}
	_, err := s.enq.EnqueueNotify(ctx, jobs.NotifyPayload{
		Event:      event,
		QuoteID:    quoteID,
		OccurredAt: s.now(),
	})
	if err != nil {
		s.log.WarnContext(ctx, "notify enqueue failed", "event", event, "quote_id", quoteID, "error", err)
	}
}

// Dispatcher posts queued events to the webhook. It runs inside the worker.
type Dispatcher struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

// NewDispatcher builds the dispatcher. An empty url disables delivery; events
// are then logged and dropped.
func NewDispatcher(url string, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

// HandleTask processes one notify:event task.
func (d *Dispatcher) HandleTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.NotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if d.url == "" {
		d.log.InfoContext(ctx, "notification webhook disabled, dropping event",
			"event", payload.Event, "quote_id", payload.QuoteID)
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return asynq.SkipRetry
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned %d", resp.StatusCode)
	}
	return nil
}
