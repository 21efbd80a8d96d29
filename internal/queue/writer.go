package queue

import (
	"context"
	"errors"

	"github.com/moraeszete/webhook-payments-integrations/internal/model"
)

// Writer persists a QueuedEvent to the durable queue. Implementations assign
// event.ID when it is zero and set event.ProcessedAt.
type Writer interface {
	Write(ctx context.Context, event *model.QueuedEvent) error
	Backend() string
	Close() error
}

var ErrEmptyPayload = errors.New("queued event payload is empty")
