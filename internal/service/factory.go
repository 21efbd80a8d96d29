package service

import (
	"github.com/moraeszete/webhook-payments-integrations/internal/claim"
	"github.com/moraeszete/webhook-payments-integrations/internal/metrics"
	"github.com/moraeszete/webhook-payments-integrations/internal/queue"
	"github.com/moraeszete/webhook-payments-integrations/internal/store"
)

type ServicesConfig struct {
	Tokens  store.TokenStore
	Claims  claim.Store
	Queue   queue.Writer
	Metrics *metrics.Metrics
	Ingest  IngestConfig
}

type Services struct {
	cfg ServicesConfig
}

func NewServices(cfg ServicesConfig) *Services {
	return &Services{cfg: cfg}
}

func (s *Services) TokenAuth() TokenAuthenticator {
	return NewTokenAuthenticator(s.cfg.Tokens)
}

func (s *Services) TokenAdmin() TokenAdminService {
	return NewTokenAdminService(s.cfg.Tokens, TokenHashCost)
}

func (s *Services) EventIngest() EventIngestService {
	return NewEventIngestService(s.cfg.Claims, s.cfg.Queue, s.cfg.Ingest, s.cfg.Metrics)
}

func (s *Services) Metrics() *metrics.Metrics {
	return s.cfg.Metrics
}
