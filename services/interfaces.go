// Package services holds the password-change policy core: the recovery
// credential manager, the login and recovery-confirmation interceptors,
// the attribute change reconciler and the authentication service they
// collaborate with. All collaborators are passed in explicitly; nothing in
// this package reaches into process-global state.
package services

import (
	"context"

	"go.pilab.hu/pwchange/domain"
)

// PasswordHasher abstracts password hashing.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) error
}

// Authenticator completes and terminates authenticated sessions on behalf
// of the policy core.
type Authenticator interface {
	// SignIn authenticates the submitted identifier (email or username,
	// depending on configuration) and password and returns a new session.
	SignIn(ctx context.Context, identifier, password string) (*domain.Session, error)
	// SignOut revokes the session with the given token id. Revoking an
	// already revoked or unknown session is a no-op.
	SignOut(ctx context.Context, tokenID string) error
}
