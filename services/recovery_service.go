package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"go.pilab.hu/pwchange/domain"
	"go.pilab.hu/pwchange/flow"
	"go.pilab.hu/pwchange/internal/audit"
)

// Default validity window for ordinary (timestamped) recovery tokens.
const defaultRecoveryTokenWindow = 24 * time.Hour

// RecoveryService implements the password-recovery-confirmation action the
// policy interceptor wraps: it validates the submitted token against the
// stored credential and changes the password. Tokens with a stored
// generated-at timestamp expire after the configured window; tokens with
// no timestamp are the durable forced-change credentials and never expire.
type RecoveryService struct {
	accounts    domain.AccountRepository
	store       domain.AttributeStore
	hasher      PasswordHasher
	tokenWindow time.Duration
}

// NewRecoveryService creates a RecoveryService. A non-positive window
// defaults to 24h.
func NewRecoveryService(
	accounts domain.AccountRepository,
	store domain.AttributeStore,
	hasher PasswordHasher,
	tokenWindow time.Duration,
) *RecoveryService {
	if tokenWindow <= 0 {
		tokenWindow = defaultRecoveryTokenWindow
	}
	return &RecoveryService{accounts: accounts, store: store, hasher: hasher, tokenWindow: tokenWindow}
}

// ConfirmRecovery validates the token for the given email and, if valid,
// replaces the account password. Validation failures re-render the page
// with a generic message; only the password-changed marker counts as
// success for the wrapping interceptor.
func (s *RecoveryService) ConfirmRecovery(ctx context.Context, email, token, newPassword string) (flow.Result, error) {
	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return flow.View("Invalid password recovery link."), nil
		}
		return flow.Result{}, fmt.Errorf("failed to resolve account by email: %w", err)
	}

	credential, err := s.currentCredential(ctx, account.ID)
	if err != nil {
		return flow.Result{}, err
	}
	if credential.Token == "" || credential.Token != token {
		audit.Log("RecoveryService", "ConfirmRecovery", account.ID, account.ID, "token mismatch", false, nil)
		return flow.View("Invalid password recovery link."), nil
	}
	if credential.Expired(s.tokenWindow, time.Now().UTC()) {
		audit.Log("RecoveryService", "ConfirmRecovery", account.ID, account.ID, "token expired", false, nil)
		return flow.View("Your password recovery link has expired."), nil
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return flow.Result{}, fmt.Errorf("failed to hash new password: %w", err)
	}
	account.PasswordHash = hash
	if err := s.accounts.UpdateAccount(ctx, account); err != nil {
		return flow.Result{}, fmt.Errorf("failed to update account password: %w", err)
	}

	log.Info().Str("account_id", account.ID).Msg("Password changed via recovery confirmation")
	audit.Log("RecoveryService", "ConfirmRecovery", account.ID, account.ID, "password changed", true, nil)
	return flow.PasswordChanged(), nil
}

func (s *RecoveryService) currentCredential(ctx context.Context, accountID string) (domain.RecoveryCredential, error) {
	var credential domain.RecoveryCredential

	token, ok, err := s.store.Get(ctx, accountID, domain.AttrKeyRecoveryToken)
	if err != nil {
		return credential, fmt.Errorf("failed to read recovery token: %w", err)
	}
	if ok {
		credential.Token = token
	}

	raw, ok, err := s.store.Get(ctx, accountID, domain.AttrKeyRecoveryTokenDate)
	if err != nil {
		return credential, fmt.Errorf("failed to read recovery token timestamp: %w", err)
	}
	if ok && raw != "" {
		generatedAt, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			// An unreadable timestamp must not turn a time-limited token
			// into a durable one.
			return credential, fmt.Errorf("unparseable recovery token timestamp %q: %w", raw, parseErr)
		}
		credential.GeneratedAt = &generatedAt
	}
	return credential, nil
}
