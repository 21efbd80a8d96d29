package store

import (
	"context"
	"fmt"

	"github.com/moraeszete/webhook-payments-integrations/core/db"
	"github.com/moraeszete/webhook-payments-integrations/internal/model"
)

type queuedEventStore struct {
	q db.DBTX
}

func newQueuedEventStore(q db.DBTX) QueuedEventStore {
	return &queuedEventStore{q: q}
}

func (s *queuedEventStore) Insert(ctx context.Context, event *model.QueuedEvent) error {
	err := s.q.QueryRow(ctx, `
		INSERT INTO queued_events (id, queue, provider, claim_key, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING processed_at`,
		event.ID, event.Queue, string(event.Provider), event.ClaimKey, []byte(event.Payload),
	).Scan(&event.ProcessedAt)
	if err != nil {
		return fmt.Errorf("insert queued event: %w", err)
	}
	return nil
}

func (s *queuedEventStore) CountByClaimKey(ctx context.Context, claimKey string) (int64, error) {
	var n int64
	if err := s.q.QueryRow(ctx, `SELECT count(*) FROM queued_events WHERE claim_key = $1`, claimKey).Scan(&n); err != nil {
		return 0, fmt.Errorf("count queued events: %w", err)
	}
	return n, nil
}
