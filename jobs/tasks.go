package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeNotify dispatches a fire-and-forget domain event.
	TaskTypeNotify = "notify:event"
	// TaskTypeQuoteExpiry sweeps quotes past their validity clock.
	TaskTypeQuoteExpiry = "quotes:expire_due"
)

// NotifyPayload is one domain event on its way to the notification webhook.
type NotifyPayload struct {
	Event      string    `json:"event"`
	QuoteID    int64     `json:"quote_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewNotifyTask constructs the dispatch task for one event.
func NewNotifyTask(payload NotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotify, data, asynq.MaxRetry(5)), nil
}

// NewQuoteExpiryTask constructs the periodic expiry sweep task.
func NewQuoteExpiryTask() *asynq.Task {
	return asynq.NewTask(TaskTypeQuoteExpiry, nil)
}
