package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"go.pilab.hu/pwchange/attrs"
	"go.pilab.hu/pwchange/domain"
	"go.pilab.hu/pwchange/flow"
	"go.pilab.hu/pwchange/internal/audit"
)

// RecoveryConfirmInterceptor completes the forced-change flow: after a
// successful password change it writes the RequirePasswordChange = "No"
// selection back into the account's attribute blob and signs the caller in
// with the new password, so the user sees an ordinary successful login.
//
// The interceptor deliberately does not clear the recovery credential
// itself: the blob write emits an attribute event and the reconciler clears
// the credential, so the UI-driven and administrative paths converge
// through the same code.
type RecoveryConfirmInterceptor struct {
	accounts         domain.AccountRepository
	store            domain.AttributeStore
	definitions      domain.DefinitionRegistry
	auth             Authenticator
	usernamesEnabled bool
}

// NewRecoveryConfirmInterceptor creates a RecoveryConfirmInterceptor.
func NewRecoveryConfirmInterceptor(
	accounts domain.AccountRepository,
	store domain.AttributeStore,
	definitions domain.DefinitionRegistry,
	auth Authenticator,
	usernamesEnabled bool,
) *RecoveryConfirmInterceptor {
	return &RecoveryConfirmInterceptor{
		accounts:         accounts,
		store:            store,
		definitions:      definitions,
		auth:             auth,
		usernamesEnabled: usernamesEnabled,
	}
}

// Applies hooks the POST recovery-confirmation action.
func (i *RecoveryConfirmInterceptor) Applies(action flow.Action) bool {
	return action.Equal(flow.PasswordRecoveryConfirmAction)
}

// OnExecuted runs only when the action reported the password-changed
// marker. An unresolvable email at this point indicates an inconsistent
// caller and is a fatal error for the request, never silently swallowed.
func (i *RecoveryConfirmInterceptor) OnExecuted(ctx context.Context, req *flow.Request, res flow.Result) (flow.Result, error) {
	if res.Kind != flow.ResultPasswordChanged {
		return res, nil
	}

	email := req.Param(flow.ParamEmail)
	newPassword := req.Param("newPassword")
	returnURL := req.Param(flow.ParamReturnURL)

	account, err := i.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return res, fmt.Errorf("recovery confirm interceptor: no account for email %q: %w", email, domain.ErrAccountNotFound)
		}
		return res, fmt.Errorf("recovery confirm interceptor: %w", err)
	}

	definition, err := i.definitions.GetDefinitionByName(ctx, domain.RequirePasswordChangeName)
	if err != nil {
		if errors.Is(err, domain.ErrDefinitionNotFound) {
			// Feature not provisioned: nothing to clear, nothing to rewrite.
			return res, nil
		}
		return res, fmt.Errorf("recovery confirm interceptor: %w", err)
	}
	valueNo := definition.ValueByName(domain.RequirePasswordChangeNo)
	if valueNo == nil {
		return res, fmt.Errorf("recovery confirm interceptor: definition %q has no %q value", definition.Name, domain.RequirePasswordChangeNo)
	}

	blob, _, err := i.store.Get(ctx, account.ID, domain.AttrKeyCustomAttributes)
	if err != nil {
		return res, fmt.Errorf("recovery confirm interceptor: %w", err)
	}
	updated, err := attrs.EncodeWithSelection(blob, definition, valueNo)
	if err != nil {
		return res, fmt.Errorf("recovery confirm interceptor: %w", err)
	}
	// This write triggers the reconciler through the attribute event bus;
	// the credential is cleared there, not here.
	if err := i.store.Set(ctx, account.ID, domain.AttrKeyCustomAttributes, updated); err != nil {
		return res, fmt.Errorf("recovery confirm interceptor: %w", err)
	}

	identifier := account.Email
	if i.usernamesEnabled {
		identifier = account.Username
	}
	session, err := i.auth.SignIn(ctx, identifier, newPassword)
	if err != nil {
		return res, fmt.Errorf("recovery confirm interceptor: sign-in with new password failed: %w", err)
	}

	log.Info().Str("account_id", account.ID).Msg("Forced password change completed, account signed in")
	audit.Log("RecoveryConfirmInterceptor", "CompleteForcedChange", account.ID, account.ID, "", true, nil)

	return flow.Completed(session, returnURL), nil
}

var _ flow.Interceptor = (*RecoveryConfirmInterceptor)(nil)
