package store

import (
	"context"
	"errors"

	"github.com/moraeszete/webhook-payments-integrations/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// TokenStore defines the contract for supplier token data access
type TokenStore interface {
	// GetHash returns only the stored bcrypt hash; validation never needs the rest of the record.
	GetHash(ctx context.Context, id int64) (string, error)
	GetByID(ctx context.Context, id int64) (*model.AuthToken, error)
	Create(ctx context.Context, token *model.AuthToken) error
	UpdateHash(ctx context.Context, id int64, tokenHash string) error
	SetActive(ctx context.Context, id int64, active bool) error
	List(ctx context.Context) ([]model.AuthToken, error)
}

// QueuedEventStore defines the contract for the durable event queue table
type QueuedEventStore interface {
	Insert(ctx context.Context, event *model.QueuedEvent) error
	CountByClaimKey(ctx context.Context, claimKey string) (int64, error)
}
