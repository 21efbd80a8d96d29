package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/moraeszete/webhook-payments-integrations/common/id"
	"github.com/moraeszete/webhook-payments-integrations/internal/model"
)

type redisWriter struct {
	client       redis.UniversalClient
	streamPrefix string
	logger       *slog.Logger
}

// NewRedisWriter appends queued events to one Redis stream per queue,
// named "<prefix>:<queue>".
func NewRedisWriter(client redis.UniversalClient, streamPrefix string, logger *slog.Logger) Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisWriter{
		client:       client,
		streamPrefix: streamPrefix,
		logger:       logger,
	}
}

func (w *redisWriter) Write(ctx context.Context, event *model.QueuedEvent) error {
	if len(event.Payload) == 0 {
		return ErrEmptyPayload
	}
	if event.ID == 0 {
		event.ID = id.New()
	}
	event.ProcessedAt = time.Now().UTC()

	stream := w.streamName(event.Queue)
	fields := map[string]any{
		"id":           strconv.FormatInt(event.ID, 10),
		"provider":     string(event.Provider),
		"claim_key":    event.ClaimKey,
		"payload":      string(event.Payload),
		"processed_at": event.ProcessedAt.Format(time.RFC3339Nano),
	}

	if err := w.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue event: %w", err)
	}

	w.logger.InfoContext(ctx, "enqueued webhook event", "stream", stream, "queued_event_id", event.ID, "provider", event.Provider)
	return nil
}

func (w *redisWriter) streamName(queue string) string {
	if w.streamPrefix == "" {
		return queue
	}
	return w.streamPrefix + ":" + queue
}

func (w *redisWriter) Backend() string {
	return "redis"
}

// Close is a no-op; the client is shared with the claim store and closed by main.
func (w *redisWriter) Close() error {
	return nil
}
