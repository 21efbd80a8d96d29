package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/moraeszete/webhook-payments-integrations/common/logger"
	"github.com/moraeszete/webhook-payments-integrations/internal/claim"
	"github.com/moraeszete/webhook-payments-integrations/internal/metrics"
	"github.com/moraeszete/webhook-payments-integrations/internal/model"
	"github.com/moraeszete/webhook-payments-integrations/internal/queue"
)

// DefaultClaimTTL covers the retry windows of the providers we integrate with.
const DefaultClaimTTL = 24 * time.Hour

type IngestParams struct {
	Provider model.Provider
	Queue    string
	Identity model.EventIdentity
	Payload  json.RawMessage
}

type IngestResult struct {
	QueuedEvent *model.QueuedEvent
	ClaimKey    claim.Key
	Duplicated  bool
}

type EventIngestService interface {
	Ingest(ctx context.Context, params IngestParams) (*IngestResult, error)
}

// ErrQueueWrite means the claim was recorded but the queue write failed. The key
// stays claimed until its TTL elapses, so provider retries inside that window are
// acknowledged as duplicates without a queued event.
var ErrQueueWrite = errors.New("queue write failed after claim")

type IngestConfig struct {
	Namespace string
	TTL       time.Duration
}

type eventIngestService struct {
	claims  claim.Store
	queue   queue.Writer
	metrics *metrics.Metrics
	cfg     IngestConfig
}

func NewEventIngestService(claims claim.Store, writer queue.Writer, cfg IngestConfig, m *metrics.Metrics) EventIngestService {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultClaimTTL
	}
	return &eventIngestService{
		claims:  claims,
		queue:   writer,
		metrics: m,
		cfg:     cfg,
	}
}

func (s *eventIngestService) Ingest(ctx context.Context, params IngestParams) (*IngestResult, error) {
	key, err := claim.Derive(s.cfg.Namespace, params.Identity)
	if err != nil {
		return nil, fmt.Errorf("deriving claim key: %w", err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Provider:  logger.Ptr(string(params.Provider)),
		ClaimKey:  logger.Ptr(key.String()),
		Component: "webhook.ingest",
	})

	sc := logger.StartSpan(ctx, "webhook.ingest")
	defer sc.End()
	ctx = sc.Context()
	sc.SetAttributes("webhook.provider", string(params.Provider), "webhook.claim_key", key.String())

	res, err := s.claims.Claim(ctx, key, params.Payload, s.cfg.TTL)
	if err != nil {
		sc.RecordError(err)
		s.metrics.Claim(string(params.Provider), "error")
		return nil, fmt.Errorf("claiming event: %w", err)
	}
	s.metrics.Claim(string(params.Provider), res.Outcome.String())

	if !res.Created() {
		slog.InfoContext(ctx, "duplicate webhook event acknowledged")
		return &IngestResult{ClaimKey: key, Duplicated: true}, nil
	}

	event := &model.QueuedEvent{
		Provider: params.Provider,
		Queue:    params.Queue,
		ClaimKey: key.String(),
		Payload:  params.Payload,
	}
	err = s.queue.Write(ctx, event)
	s.metrics.QueueWrite(s.queue.Backend(), err)
	if err != nil {
		sc.RecordError(err)
		slog.ErrorContext(ctx, "queue write failed after claim; key stays claimed until ttl expiry",
			"error", err,
			"queue", params.Queue,
			"ttl", s.cfg.TTL,
		)
		return nil, fmt.Errorf("%w: %w", ErrQueueWrite, err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{QueuedEventID: logger.Ptr(event.ID)})
	slog.InfoContext(ctx, "webhook event queued", "queue", params.Queue)

	return &IngestResult{ClaimKey: key, QueuedEvent: event}, nil
}
