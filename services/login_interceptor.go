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

// LoginInterceptor redirects accounts flagged for a password change into
// the recovery-confirmation flow instead of letting their login complete.
// It only ever inspects successful authentication results; failed logins
// pass through untouched.
type LoginInterceptor struct {
	accounts         domain.AccountRepository
	store            domain.AttributeStore
	definitions      domain.DefinitionRegistry
	credentials      *CredentialService
	auth             Authenticator
	usernamesEnabled bool
}

// NewLoginInterceptor creates a LoginInterceptor.
func NewLoginInterceptor(
	accounts domain.AccountRepository,
	store domain.AttributeStore,
	definitions domain.DefinitionRegistry,
	credentials *CredentialService,
	auth Authenticator,
	usernamesEnabled bool,
) *LoginInterceptor {
	return &LoginInterceptor{
		accounts:         accounts,
		store:            store,
		definitions:      definitions,
		credentials:      credentials,
		auth:             auth,
		usernamesEnabled: usernamesEnabled,
	}
}

// Applies hooks the POST login action.
func (i *LoginInterceptor) Applies(action flow.Action) bool {
	return action.Equal(flow.LoginAction)
}

// OnExecuted checks a freshly authenticated account against its
// RequirePasswordChange selection. Flagged accounts get their durable
// credential ensured, their new session revoked, and the result replaced
// with a redirect into recovery confirmation carrying {token, email,
// returnUrl}. Errors abort the chain so the caller fails closed rather
// than letting a flagged account through.
func (i *LoginInterceptor) OnExecuted(ctx context.Context, req *flow.Request, res flow.Result) (flow.Result, error) {
	if res.Kind != flow.ResultCompleted {
		return res, nil
	}

	identifier := req.Param(flow.ParamEmail)
	if i.usernamesEnabled {
		identifier = req.Param("username")
	}

	account, err := i.resolve(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			// Should not happen right after a successful login; leave the
			// result alone.
			log.Warn().Str("identifier", identifier).Msg("Login interceptor: authenticated account not found")
			return res, nil
		}
		return res, fmt.Errorf("login interceptor: %w", err)
	}

	definition, err := i.definitions.GetDefinitionByName(ctx, domain.RequirePasswordChangeName)
	if err != nil {
		if !errors.Is(err, domain.ErrDefinitionNotFound) {
			return res, fmt.Errorf("login interceptor: %w", err)
		}
		// Feature not provisioned: every account classifies NotRequired.
		definition = nil
	}

	blob, _, err := i.store.Get(ctx, account.ID, domain.AttrKeyCustomAttributes)
	if err != nil {
		return res, fmt.Errorf("login interceptor: %w", err)
	}

	classification, err := attrs.Classify(blob, definition)
	if err != nil {
		// A corrupted blob is surfaced, not treated as "no flag": failing
		// open here would let a flagged account skip the policy.
		return res, fmt.Errorf("login interceptor: %w", err)
	}
	if classification != attrs.Required {
		return res, nil
	}

	token, err := i.credentials.Ensure(ctx, account.ID)
	if err != nil {
		return res, fmt.Errorf("login interceptor: %w", err)
	}

	if res.Session != nil {
		if err := i.auth.SignOut(ctx, res.Session.TokenID); err != nil {
			return res, fmt.Errorf("login interceptor: %w", err)
		}
	}

	log.Info().Str("account_id", account.ID).Msg("Login redirected to password recovery confirmation")
	audit.Log("LoginInterceptor", "ForcePasswordChange", account.ID, account.ID, "login redirected", true, nil)

	return flow.Redirect(flow.RoutePasswordRecoveryConfirm, map[string]string{
		flow.ParamToken:     token,
		flow.ParamEmail:     account.Email,
		flow.ParamReturnURL: req.Param(flow.ParamReturnURL),
	}), nil
}

func (i *LoginInterceptor) resolve(ctx context.Context, identifier string) (*domain.Account, error) {
	if i.usernamesEnabled {
		return i.accounts.GetAccountByUsername(ctx, identifier)
	}
	return i.accounts.GetAccountByEmail(ctx, identifier)
}

var _ flow.Interceptor = (*LoginInterceptor)(nil)
