//nolint:varnamelen
package echo

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"go.pilab.hu/pwchange/domain"
	"go.pilab.hu/pwchange/flow"
	"go.pilab.hu/pwchange/services"
)

// AccountAPI exposes the login and password-recovery-confirmation actions
// over HTTP. Each handler runs its action, then feeds the tentative result
// through the interceptor chain; whatever the chain returns is rendered to
// the caller. A chain error fails the request closed: any session the
// tentative result carried is revoked and the caller sees a generic
// failure.
type AccountAPI struct {
	auth             services.Authenticator
	recovery         *services.RecoveryService
	chain            *flow.Chain
	usernamesEnabled bool
}

// NewAccountAPI initializes the account API.
func NewAccountAPI(
	auth services.Authenticator,
	recovery *services.RecoveryService,
	chain *flow.Chain,
	usernamesEnabled bool,
) *AccountAPI {
	return &AccountAPI{
		auth:             auth,
		recovery:         recovery,
		chain:            chain,
		usernamesEnabled: usernamesEnabled,
	}
}

// RegisterRoutes registers the account routes.
func (a *AccountAPI) RegisterRoutes(e *echo.Echo) {
	e.POST("/account/login", a.LoginHandler)
	e.POST("/account/passwordrecovery/confirm", a.RecoveryConfirmHandler)
}

// LoginHandler handles login requests. It authenticates the submitted
// credentials, runs the interceptor chain over the outcome and renders the
// final result: a session token on success, a 401 on bad credentials, or a
// redirect when an interceptor diverted the login.
func (a *AccountAPI) LoginHandler(c echo.Context) error {
	email := c.FormValue("email")
	username := c.FormValue("username")
	password := c.FormValue("password")
	returnURL := c.FormValue(flow.ParamReturnURL)

	identifier := email
	if a.usernamesEnabled {
		identifier = username
	}

	ctx := c.Request().Context()

	res := flow.Completed(nil, returnURL)
	session, err := a.auth.SignIn(ctx, identifier, password)
	switch {
	case err == nil:
		res = flow.Completed(session, returnURL)
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrAccountNotFound):
		res = flow.View("The credentials provided are incorrect.")
	case errors.Is(err, domain.ErrAccountLocked):
		res = flow.View("This account is not available.")
	default:
		log.Error().Err(err).Msg("Login failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}

	req := &flow.Request{
		Action: flow.LoginAction,
		Params: map[string]string{
			flow.ParamEmail:     email,
			"username":          username,
			flow.ParamReturnURL: returnURL,
		},
	}
	final, err := a.chain.Execute(ctx, req, res)
	if err != nil {
		return a.failClosed(c, res, err)
	}

	return a.render(c, final)
}

// RecoveryConfirmHandler handles recovery-confirmation requests: the token
// and email arrive on the query string (the redirect put them there), the
// new password in the form body. The underlying action validates the token
// and changes the password; the interceptor chain then rewrites the
// password-change flag and signs the caller in.
func (a *AccountAPI) RecoveryConfirmHandler(c echo.Context) error {
	token := paramValue(c, flow.ParamToken)
	email := paramValue(c, flow.ParamEmail)
	returnURL := paramValue(c, flow.ParamReturnURL)
	newPassword := c.FormValue("newPassword")

	if token == "" || email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":             "invalid_request",
			"error_description": "token and email parameters are required",
		})
	}
	if newPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":             "invalid_request",
			"error_description": "newPassword parameter is required",
		})
	}

	ctx := c.Request().Context()

	res, err := a.recovery.ConfirmRecovery(ctx, email, token, newPassword)
	if err != nil {
		log.Error().Err(err).Msg("Recovery confirmation failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}

	req := &flow.Request{
		Action: flow.PasswordRecoveryConfirmAction,
		Params: map[string]string{
			flow.ParamToken:     token,
			flow.ParamEmail:     email,
			flow.ParamReturnURL: returnURL,
			"newPassword":       newPassword,
		},
	}
	final, err := a.chain.Execute(ctx, req, res)
	if err != nil {
		return a.failClosed(c, res, err)
	}

	return a.render(c, final)
}

// render translates a final flow result into an HTTP response.
func (a *AccountAPI) render(c echo.Context, res flow.Result) error {
	switch res.Kind {
	case flow.ResultCompleted:
		body := echo.Map{}
		if res.Session != nil {
			body["token"] = res.Session.Token
			body["expires_at"] = res.Session.ExpiresAt
		}
		if res.ReturnURL != "" {
			body["return_url"] = res.ReturnURL
		}
		return c.JSON(http.StatusOK, body)

	case flow.ResultRedirect:
		return c.Redirect(http.StatusFound, redirectURL(res))

	case flow.ResultPasswordChanged:
		// No interceptor picked the change up (feature unprovisioned);
		// the password is changed but the caller must log in themselves.
		return c.JSON(http.StatusOK, echo.Map{"message": "Your password has been changed."})

	case flow.ResultView:
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": res.Message})

	default:
		log.Error().Str("kind", string(res.Kind)).Msg("Unknown flow result kind")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}
}

// failClosed handles an interceptor chain error: the tentative session, if
// any, is revoked so a flagged account cannot keep it.
func (a *AccountAPI) failClosed(c echo.Context, res flow.Result, chainErr error) error {
	log.Error().Err(chainErr).Msg("Interceptor chain failed, revoking tentative session")
	if res.Session != nil {
		if err := a.auth.SignOut(c.Request().Context(), res.Session.TokenID); err != nil {
			log.Error().Err(err).Str("token_id", res.Session.TokenID).Msg("Failed to revoke tentative session")
		}
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
}

// redirectURL maps a named route and its parameters to a concrete URL.
func redirectURL(res flow.Result) string {
	var path string
	switch res.Route {
	case flow.RoutePasswordRecoveryConfirm:
		path = "/account/passwordrecovery/confirm"
	default:
		path = "/" + strings.ToLower(res.Route)
	}

	values := url.Values{}
	for key, value := range res.Params {
		if value != "" {
			values.Set(key, value)
		}
	}
	if len(values) == 0 {
		return path
	}
	return path + "?" + values.Encode()
}

// paramValue reads a parameter from the query string first, then the form
// body. Redirects carry token and email in the query string; manual
// submissions may post them instead.
func paramValue(c echo.Context, name string) string {
	if value := c.QueryParam(name); value != "" {
		return value
	}
	return c.FormValue(name)
}
