// Package flow models in-flight account actions and the interceptor chain
// that may replace their results. Interceptors are registered at startup
// against (resource, action, method) tuples and run after the wrapped
// action produced its tentative result.
package flow

import (
	"net/http"
	"strings"

	"go.pilab.hu/pwchange/domain"
)

// Action identifies a request handler by resource, action name and HTTP
// method. Matching is case-insensitive.
type Action struct {
	Resource string
	Name     string
	Method   string
}

// Equal reports whether two actions identify the same handler.
func (a Action) Equal(other Action) bool {
	return strings.EqualFold(a.Resource, other.Resource) &&
		strings.EqualFold(a.Name, other.Name) &&
		strings.EqualFold(a.Method, other.Method)
}

// The two hook points the policy core attaches to.
var (
	LoginAction                   = Action{Resource: "account", Name: "login", Method: http.MethodPost}
	PasswordRecoveryConfirmAction = Action{Resource: "account", Name: "passwordrecoveryconfirm", Method: http.MethodPost}
)

// RoutePasswordRecoveryConfirm is the named redirect target for the
// recovery-confirmation entry point.
const RoutePasswordRecoveryConfirm = "PasswordRecoveryConfirm"

// Names of the parameters carried on the recovery-confirmation redirect.
const (
	ParamToken     = "token"
	ParamEmail     = "email"
	ParamReturnURL = "returnUrl"
)

// Request carries the submitted parameters of an in-flight action.
type Request struct {
	Action Action
	Params map[string]string
}

// Param returns the named submitted parameter, or the empty string.
func (r *Request) Param(name string) string {
	return r.Params[name]
}

// ResultKind tags the possible outcomes of an account action.
type ResultKind string

const (
	// ResultView means the action re-rendered its own page: for login and
	// recovery confirmation this is the failure outcome.
	ResultView ResultKind = "VIEW"
	// ResultCompleted means an authenticated session was established.
	ResultCompleted ResultKind = "COMPLETED"
	// ResultPasswordChanged is the recovery-confirmation success marker:
	// the password was changed but no session exists yet.
	ResultPasswordChanged ResultKind = "PASSWORD_CHANGED"
	// ResultRedirect sends the caller to a named route.
	ResultRedirect ResultKind = "REDIRECT"
)

// Result is the tentative or final outcome of an action. Interceptors may
// replace it wholesale before it reaches the caller.
type Result struct {
	Kind      ResultKind
	Session   *domain.Session
	Route     string
	Params    map[string]string
	Message   string
	ReturnURL string
}

// View builds a failure/re-render result with a user-facing message.
func View(message string) Result {
	return Result{Kind: ResultView, Message: message}
}

// Completed builds an authenticated result.
func Completed(session *domain.Session, returnURL string) Result {
	return Result{Kind: ResultCompleted, Session: session, ReturnURL: returnURL}
}

// PasswordChanged builds the recovery-confirmation success marker.
func PasswordChanged() Result {
	return Result{Kind: ResultPasswordChanged}
}

// Redirect builds a redirect to a named route with parameters.
func Redirect(route string, params map[string]string) Result {
	return Result{Kind: ResultRedirect, Route: route, Params: params}
}
