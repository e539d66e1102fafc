package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"go.pilab.hu/pwchange/attrs"
	"go.pilab.hu/pwchange/domain"
	"go.pilab.hu/pwchange/internal/audit"
)

// Reconciler keeps the recovery credential consistent with the
// RequirePasswordChange flag no matter which path mutated the attribute
// blob: the recovery flow, an administrative edit, or anything else that
// writes through the attribute store.
//
// Every decision re-derives the classification from the latest persisted
// blob, not from the event payload, and every mutation it performs is
// idempotent; duplicate or reordered notifications therefore converge on
// the state implied by the last distinct blob content.
type Reconciler struct {
	accounts    domain.AccountRepository
	store       domain.AttributeStore
	definitions domain.DefinitionRegistry
	credentials *CredentialService
}

// NewReconciler creates a Reconciler.
func NewReconciler(
	accounts domain.AccountRepository,
	store domain.AttributeStore,
	definitions domain.DefinitionRegistry,
	credentials *CredentialService,
) *Reconciler {
	return &Reconciler{
		accounts:    accounts,
		store:       store,
		definitions: definitions,
		credentials: credentials,
	}
}

// HandleEvent processes one attribute change notification. Errors are per
// event; the subscriber logs them and moves on to the next event.
func (r *Reconciler) HandleEvent(ctx context.Context, event domain.AttributeEvent) error {
	// Cheap identity checks before touching storage.
	switch event.Key {
	case domain.AttrKeyCustomAttributes:
		return r.reconcileBlob(ctx, event)
	case domain.AttrKeyRecoveryToken:
		// A token cleared by an external writer is terminal; there is
		// nothing left to cascade. Non-empty token writes are our own
		// doing or the host's ordinary recovery flow.
		return nil
	default:
		return nil
	}
}

func (r *Reconciler) reconcileBlob(ctx context.Context, event domain.AttributeEvent) error {
	if _, err := r.accounts.GetAccountByID(ctx, event.AccountID); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			log.Warn().Str("account_id", event.AccountID).Msg("Reconciler: dropping event for vanished account")
			return nil
		}
		return fmt.Errorf("reconciler: %w", err)
	}

	definition, err := r.definitions.GetDefinitionByName(ctx, domain.RequirePasswordChangeName)
	if err != nil {
		if !errors.Is(err, domain.ErrDefinitionNotFound) {
			return fmt.Errorf("reconciler: %w", err)
		}
		definition = nil
	}

	// Read the blob back from the store rather than trusting the event
	// payload; a stale or duplicate notification must not move state
	// backward.
	blob, ok, err := r.store.Get(ctx, event.AccountID, domain.AttrKeyCustomAttributes)
	if err != nil {
		return fmt.Errorf("reconciler: %w", err)
	}
	if !ok {
		// Blob deleted: treated as an explicit "not required".
		blob = ""
	}

	classification, err := attrs.Classify(blob, definition)
	if err != nil {
		log.Error().Err(err).Str("account_id", event.AccountID).Msg("Reconciler: undecodable attribute blob, leaving credential state untouched")
		return fmt.Errorf("reconciler: %w", err)
	}

	switch classification {
	case attrs.Required:
		if _, err := r.credentials.Ensure(ctx, event.AccountID); err != nil {
			return fmt.Errorf("reconciler: %w", err)
		}
		log.Debug().Str("account_id", event.AccountID).Msg("Reconciler: ensured recovery credential")
		audit.Log("Reconciler", "EnsureCredential", "", event.AccountID, "", true, nil)
	case attrs.NotRequired:
		if err := r.credentials.Clear(ctx, event.AccountID); err != nil {
			return fmt.Errorf("reconciler: %w", err)
		}
		log.Debug().Str("account_id", event.AccountID).Msg("Reconciler: cleared recovery credential")
		audit.Log("Reconciler", "ClearCredential", "", event.AccountID, "", true, nil)
	case attrs.Indeterminate:
		// Do not guess; leave prior credential state as-is.
		log.Warn().Str("account_id", event.AccountID).Msg("Reconciler: indeterminate RequirePasswordChange selection, no action taken")
	}
	return nil
}
