package store

import (
	"github.com/moraeszete/webhook-payments-integrations/core/db"
)

type Stores struct {
	queries db.DBTX
}

func NewStores(queries db.DBTX) *Stores {
	return &Stores{queries: queries}
}

func (s *Stores) Tokens() TokenStore {
	return newTokenStore(s.queries)
}

func (s *Stores) QueuedEvents() QueuedEventStore {
	return newQueuedEventStore(s.queries)
}
