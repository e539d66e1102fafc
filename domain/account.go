package domain

import "time"

// AccountStatus defines the possible statuses of an account.
type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "ACTIVE"
	AccountStatusLocked  AccountStatus = "LOCKED"
	AccountStatusPending AccountStatus = "PENDING_ACTIVATION"
)

// Account represents an account in the identity platform. The policy core
// never creates or deletes accounts; it resolves them by id, username or
// email and updates the password hash on recovery confirmation.
type Account struct {
	ID           string        `bson:"_id,omitempty"`
	Username     string        `bson:"username,omitempty"`
	Email        string        `bson:"email"`
	PasswordHash string        `bson:"password_hash"`
	Status       AccountStatus `bson:"status"`
	CreatedAt    time.Time     `bson:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at"`
	LastLoginAt  *time.Time    `bson:"last_login_at,omitempty"`
}
