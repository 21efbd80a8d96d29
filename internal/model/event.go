package model

import (
	"encoding/json"
	"time"
)

// EventIdentity is the semantic triple a provider event is deduplicated on.
// Fields are individually optional, but at least one must be non-empty.
type EventIdentity struct {
	Route     string `json:"route,omitempty"`
	EventType string `json:"event_type,omitempty"`
	EventID   string `json:"event_id,omitempty"`
}

func (i EventIdentity) IsEmpty() bool {
	return i.Route == "" && i.EventType == "" && i.EventID == ""
}

// Claim is a time-bounded reservation of a claim key. Claims are never updated in place.
type Claim struct {
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
}

// QueuedEvent is the durable record written once per fresh claim.
type QueuedEvent struct {
	ProcessedAt time.Time       `json:"processed_at"`
	Provider    Provider        `json:"provider"`
	Queue       string          `json:"queue"`
	ClaimKey    string          `json:"claim_key"`
	Payload     json.RawMessage `json:"payload"`
	ID          int64           `json:"id"`
}
