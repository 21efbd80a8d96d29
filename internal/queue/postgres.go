package queue

import (
	"context"
	"fmt"

	"github.com/moraeszete/webhook-payments-integrations/common/id"
	"github.com/moraeszete/webhook-payments-integrations/internal/model"
	"github.com/moraeszete/webhook-payments-integrations/internal/store"
)

type postgresWriter struct {
	events store.QueuedEventStore
}

// NewPostgresWriter writes queued events as rows of the queued_events table.
func NewPostgresWriter(events store.QueuedEventStore) Writer {
	return &postgresWriter{events: events}
}

func (w *postgresWriter) Write(ctx context.Context, event *model.QueuedEvent) error {
	if len(event.Payload) == 0 {
		return ErrEmptyPayload
	}
	if event.ID == 0 {
		event.ID = id.New()
	}
	if err := w.events.Insert(ctx, event); err != nil {
		return fmt.Errorf("write queued event: %w", err)
	}
	return nil
}

func (w *postgresWriter) Backend() string {
	return "postgres"
}

// Close is a no-op; the pool is owned by core/db.
func (w *postgresWriter) Close() error {
	return nil
}
