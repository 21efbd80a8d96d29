package claim

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/moraeszete/webhook-payments-integrations/internal/model"
)

// Outcome is the store-agnostic result of a claim attempt.
type Outcome int

const (
	OutcomeCreated Outcome = iota + 1
	OutcomeAlreadyClaimed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeAlreadyClaimed:
		return "already_claimed"
	default:
		return "unknown"
	}
}

type Result struct {
	Key     Key
	Outcome Outcome
}

func (r Result) Created() bool {
	return r.Outcome == OutcomeCreated
}

// ErrTransient wraps every backend failure that is not a duplicate claim.
// No claim was recorded, so the caller may retry.
var ErrTransient = errors.New("claim store unavailable")

// Store is the atomic claim-or-reject primitive. Claim must rely on the backend's
// native conditional write: for concurrent calls with the same key exactly one
// observes OutcomeCreated until the TTL elapses. Re-claiming an unexpired key
// never extends its TTL or replaces its payload. A ttl <= 0 claims without expiry.
type Store interface {
	Claim(ctx context.Context, key Key, payload json.RawMessage, ttl time.Duration) (Result, error)
	// Get returns the live claim for key; ok is false when it is absent or expired.
	Get(ctx context.Context, key Key) (claim model.Claim, ok bool, err error)
	// Release drops a claim regardless of its TTL. Operator tooling only.
	Release(ctx context.Context, key Key) (bool, error)
	// PurgeRoute drops every claim derived for route (and its sub-routes). Operator tooling only.
	PurgeRoute(ctx context.Context, namespace, route string) (int64, error)
	Ping(ctx context.Context) error
}

func normalizePayload(payload json.RawMessage) json.RawMessage {
	if len(payload) == 0 {
		return json.RawMessage(`{}`)
	}
	return payload
}
