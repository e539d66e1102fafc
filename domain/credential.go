package domain

import "time"

// RecoveryCredential is the pair of attribute fields backing a password
// recovery token. A nil GeneratedAt means the token never expires; that is
// what distinguishes a forced-change credential from an ordinary,
// time-limited recovery token stored under the same keys.
type RecoveryCredential struct {
	Token       string
	GeneratedAt *time.Time
}

// Expired reports whether the credential is past the given validity window.
// Durable credentials (no GeneratedAt) never expire.
func (c RecoveryCredential) Expired(window time.Duration, now time.Time) bool {
	if c.GeneratedAt == nil {
		return false
	}
	return now.Sub(*c.GeneratedAt) > window
}
