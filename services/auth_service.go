package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"go.pilab.hu/pwchange/domain"
	"go.pilab.hu/pwchange/internal/audit"
)

// AuthService authenticates accounts against their stored password hash
// and manages the resulting sessions. It is the host authentication
// primitive the policy interceptors drive; it knows nothing about the
// password-change flag.
type AuthService struct {
	accounts         domain.AccountRepository
	sessions         domain.SessionRepository
	tokens           *TokenService
	hasher           PasswordHasher
	usernamesEnabled bool
}

// NewAuthService creates an AuthService. When usernamesEnabled is set,
// SignIn resolves accounts by username instead of email.
func NewAuthService(
	accounts domain.AccountRepository,
	sessions domain.SessionRepository,
	tokens *TokenService,
	hasher PasswordHasher,
	usernamesEnabled bool,
) *AuthService {
	return &AuthService{
		accounts:         accounts,
		sessions:         sessions,
		tokens:           tokens,
		hasher:           hasher,
		usernamesEnabled: usernamesEnabled,
	}
}

// SignIn authenticates the identifier/password pair and establishes a new
// session. All rejection paths collapse to ErrInvalidCredentials except a
// locked account, which callers may want to report differently.
func (s *AuthService) SignIn(ctx context.Context, identifier, password string) (*domain.Session, error) {
	account, err := s.resolve(ctx, identifier)
	if err != nil {
		log.Warn().Str("identifier", identifier).Msg("SignIn: account not found")
		audit.Log("AuthService", "SignIn", identifier, "", "account not found", false, err)
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidCredentials, identifier)
	}

	if account.Status != domain.AccountStatusActive {
		log.Warn().Str("account_id", account.ID).Str("status", string(account.Status)).Msg("SignIn: account not active")
		audit.Log("AuthService", "SignIn", account.ID, account.ID, "account not active", false, domain.ErrAccountLocked)
		return nil, domain.ErrAccountLocked
	}

	if err := s.hasher.Verify(account.PasswordHash, password); err != nil {
		log.Warn().Str("account_id", account.ID).Msg("SignIn: incorrect password")
		audit.Log("AuthService", "SignIn", account.ID, account.ID, "incorrect password", false, err)
		return nil, domain.ErrInvalidCredentials
	}

	session, err := s.tokens.IssueSession(account)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	if err := s.sessions.StoreSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	now := time.Now().UTC()
	account.LastLoginAt = &now
	if err := s.accounts.UpdateAccount(ctx, account); err != nil {
		// Best effort; the session is already valid.
		log.Error().Err(err).Str("account_id", account.ID).Msg("SignIn: failed to record last login time")
	}

	audit.Log("AuthService", "SignIn", account.ID, account.ID, "", true, nil)
	return session, nil
}

// SignOut revokes the session with the given token id. Unknown sessions
// are treated as already signed out.
func (s *AuthService) SignOut(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return nil
	}
	if err := s.sessions.RevokeSession(ctx, tokenID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	audit.Log("AuthService", "SignOut", "", tokenID, "", true, nil)
	return nil
}

func (s *AuthService) resolve(ctx context.Context, identifier string) (*domain.Account, error) {
	if s.usernamesEnabled {
		return s.accounts.GetAccountByUsername(ctx, identifier)
	}
	return s.accounts.GetAccountByEmail(ctx, identifier)
}

var _ Authenticator = (*AuthService)(nil)
