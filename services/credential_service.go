package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"go.pilab.hu/pwchange/domain"
)

// CredentialService manages the durable recovery credential backing a
// forced password change. It holds no state of its own; the token and its
// generated-at timestamp live in the attribute store, and all mutations
// here are idempotent so redelivered reconciliation events converge.
type CredentialService struct {
	store domain.AttributeStore
}

// NewCredentialService creates a CredentialService over the given store.
func NewCredentialService(store domain.AttributeStore) *CredentialService {
	return &CredentialService{store: store}
}

// Ensure returns the account's recovery token, generating and persisting a
// fresh one only if none exists. The generated-at timestamp is always
// cleared: an absent timestamp is what marks the credential as
// non-expiring, and this manager must never write a real time there.
func (s *CredentialService) Ensure(ctx context.Context, accountID string) (string, error) {
	token, ok, err := s.store.Get(ctx, accountID, domain.AttrKeyRecoveryToken)
	if err != nil {
		return "", fmt.Errorf("failed to read recovery token: %w", err)
	}
	if !ok || token == "" {
		token, err = newRecoveryToken()
		if err != nil {
			return "", err
		}
		if err := s.store.Set(ctx, accountID, domain.AttrKeyRecoveryToken, token); err != nil {
			return "", fmt.Errorf("failed to store recovery token: %w", err)
		}
	}
	if err := s.store.Set(ctx, accountID, domain.AttrKeyRecoveryTokenDate, ""); err != nil {
		return "", fmt.Errorf("failed to clear recovery token timestamp: %w", err)
	}
	return token, nil
}

// Clear removes the account's recovery token and timestamp. Clearing an
// already clear credential is a no-op.
func (s *CredentialService) Clear(ctx context.Context, accountID string) error {
	if err := s.store.Set(ctx, accountID, domain.AttrKeyRecoveryToken, ""); err != nil {
		return fmt.Errorf("failed to clear recovery token: %w", err)
	}
	if err := s.store.Set(ctx, accountID, domain.AttrKeyRecoveryTokenDate, ""); err != nil {
		return fmt.Errorf("failed to clear recovery token timestamp: %w", err)
	}
	return nil
}

// Current returns the account's recovery token, or ok=false when none is
// set.
func (s *CredentialService) Current(ctx context.Context, accountID string) (string, bool, error) {
	token, ok, err := s.store.Get(ctx, accountID, domain.AttrKeyRecoveryToken)
	if err != nil {
		return "", false, fmt.Errorf("failed to read recovery token: %w", err)
	}
	return token, ok && token != "", nil
}

// newRecoveryToken draws 128 bits from crypto/rand and encodes them as
// hex.
func newRecoveryToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate recovery token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
