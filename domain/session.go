package domain

import "time"

// Session represents an active authenticated session. The signed token is
// handed to the caller and never persisted; lookups go by TokenID (the JWT
// JTI).
type Session struct {
	ID        string    `bson:"_id,omitempty"`
	AccountID string    `bson:"account_id"`
	TokenID   string    `bson:"token_id"`
	Token     string    `bson:"-"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
	IsRevoked bool      `bson:"is_revoked,omitempty"`
}
