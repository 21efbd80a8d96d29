package model

import "time"

// AuthToken is a provisioned supplier credential. Callers present "secret:id";
// only the bcrypt hash of the secret is persisted.
type AuthToken struct {
	CreatedAt time.Time  `json:"created_at"`
	RotatedAt *time.Time `json:"rotated_at,omitempty"`
	TokenHash string     `json:"-"`
	Label     string     `json:"label"`
	ID        int64      `json:"id"`
	Active    bool       `json:"active"`
}
