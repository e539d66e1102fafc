package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/pwchange/attrs"
	"go.pilab.hu/pwchange/domain"
	"go.pilab.hu/pwchange/flow"
)

type loginInterceptorFixture struct {
	accounts    *memAccountRepo
	store       *memAttributeStore
	definitions *memDefinitionRegistry
	credentials *CredentialService
	auth        *MockAuthenticator
	interceptor *LoginInterceptor
}

func newLoginInterceptorFixture(accounts ...*domain.Account) *loginInterceptorFixture {
	f := &loginInterceptorFixture{
		accounts:    newMemAccountRepo(accounts...),
		store:       newMemAttributeStore(nil),
		definitions: newMemDefinitionRegistry(requirePasswordChangeDef()),
		auth:        new(MockAuthenticator),
	}
	f.credentials = NewCredentialService(f.store)
	f.interceptor = NewLoginInterceptor(f.accounts, f.store, f.definitions, f.credentials, f.auth, false)
	return f
}

func loginRequest(email, returnURL string) *flow.Request {
	return &flow.Request{
		Action: flow.LoginAction,
		Params: map[string]string{
			flow.ParamEmail:     email,
			flow.ParamReturnURL: returnURL,
		},
	}
}

func flagAccount(t *testing.T, store *memAttributeStore, accountID string) {
	t.Helper()
	def := requirePasswordChangeDef()
	blob, err := attrs.EncodeWithSelection("", def, def.ValueByName(domain.RequirePasswordChangeYes))
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), accountID, domain.AttrKeyCustomAttributes, blob))
}

func TestLoginInterceptorRedirectsFlaggedAccount(t *testing.T) {
	alice := &domain.Account{ID: "acc-alice", Email: "alice@example.com", Status: domain.AccountStatusActive}
	f := newLoginInterceptorFixture(alice)
	flagAccount(t, f.store, alice.ID)

	session := &domain.Session{AccountID: alice.ID, TokenID: "jti-1"}
	f.auth.On("SignOut", mock.Anything, "jti-1").Return(nil).Once()

	res, err := f.interceptor.OnExecuted(context.Background(),
		loginRequest("alice@example.com", "/orders"), flow.Completed(session, "/orders"))
	require.NoError(t, err)

	assert.Equal(t, flow.ResultRedirect, res.Kind)
	assert.Equal(t, flow.RoutePasswordRecoveryConfirm, res.Route)
	assert.NotEmpty(t, res.Params[flow.ParamToken])
	assert.Equal(t, "alice@example.com", res.Params[flow.ParamEmail])
	assert.Equal(t, "/orders", res.Params[flow.ParamReturnURL])
	f.auth.AssertExpectations(t)

	// The redirect token is the persisted durable credential.
	token, ok, err := f.credentials.Current(context.Background(), alice.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, token, res.Params[flow.ParamToken])
}

func TestLoginInterceptorPassesThroughFailedLogin(t *testing.T) {
	f := newLoginInterceptorFixture()

	res, err := f.interceptor.OnExecuted(context.Background(),
		loginRequest("alice@example.com", ""), flow.View("invalid credentials"))
	require.NoError(t, err)
	assert.Equal(t, flow.ResultView, res.Kind)
	f.auth.AssertNotCalled(t, "SignOut", mock.Anything, mock.Anything)
}

func TestLoginInterceptorPassesThroughUnflaggedAccount(t *testing.T) {
	alice := &domain.Account{ID: "acc-alice", Email: "alice@example.com", Status: domain.AccountStatusActive}
	f := newLoginInterceptorFixture(alice)

	session := &domain.Session{AccountID: alice.ID, TokenID: "jti-1"}
	res, err := f.interceptor.OnExecuted(context.Background(),
		loginRequest("alice@example.com", ""), flow.Completed(session, ""))
	require.NoError(t, err)
	assert.Equal(t, flow.ResultCompleted, res.Kind)
	assert.Same(t, session, res.Session)
}

func TestLoginInterceptorPassesThroughWhenDefinitionMissing(t *testing.T) {
	alice := &domain.Account{ID: "acc-alice", Email: "alice@example.com", Status: domain.AccountStatusActive}
	f := newLoginInterceptorFixture(alice)
	flagAccount(t, f.store, alice.ID)
	require.NoError(t, f.definitions.DeleteDefinition(context.Background(), domain.RequirePasswordChangeName))

	res, err := f.interceptor.OnExecuted(context.Background(),
		loginRequest("alice@example.com", ""), flow.Completed(&domain.Session{TokenID: "jti-1"}, ""))
	require.NoError(t, err)
	assert.Equal(t, flow.ResultCompleted, res.Kind)
}

func TestLoginInterceptorPassesThroughUnknownAccount(t *testing.T) {
	f := newLoginInterceptorFixture()

	res, err := f.interceptor.OnExecuted(context.Background(),
		loginRequest("ghost@example.com", ""), flow.Completed(&domain.Session{TokenID: "jti-1"}, ""))
	require.NoError(t, err)
	assert.Equal(t, flow.ResultCompleted, res.Kind)
}

func TestLoginInterceptorSurfacesMalformedBlob(t *testing.T) {
	alice := &domain.Account{ID: "acc-alice", Email: "alice@example.com", Status: domain.AccountStatusActive}
	f := newLoginInterceptorFixture(alice)
	require.NoError(t, f.store.Set(context.Background(), alice.ID, domain.AttrKeyCustomAttributes, "<corrupt>"))

	_, err := f.interceptor.OnExecuted(context.Background(),
		loginRequest("alice@example.com", ""), flow.Completed(&domain.Session{TokenID: "jti-1"}, ""))
	assert.ErrorIs(t, err, domain.ErrMalformedBlob)
}

func TestLoginInterceptorSignOutFailureFailsClosed(t *testing.T) {
	alice := &domain.Account{ID: "acc-alice", Email: "alice@example.com", Status: domain.AccountStatusActive}
	f := newLoginInterceptorFixture(alice)
	flagAccount(t, f.store, alice.ID)

	boom := errors.New("session store down")
	f.auth.On("SignOut", mock.Anything, "jti-1").Return(boom).Once()

	_, err := f.interceptor.OnExecuted(context.Background(),
		loginRequest("alice@example.com", ""), flow.Completed(&domain.Session{TokenID: "jti-1"}, ""))
	assert.ErrorIs(t, err, boom)
}

func TestLoginInterceptorResolvesByUsernameWhenEnabled(t *testing.T) {
	alice := &domain.Account{ID: "acc-alice", Email: "alice@example.com", Username: "alice", Status: domain.AccountStatusActive}
	f := newLoginInterceptorFixture(alice)
	f.interceptor = NewLoginInterceptor(f.accounts, f.store, f.definitions, f.credentials, f.auth, true)
	flagAccount(t, f.store, alice.ID)
	f.auth.On("SignOut", mock.Anything, "jti-1").Return(nil).Once()

	req := &flow.Request{
		Action: flow.LoginAction,
		Params: map[string]string{"username": "alice"},
	}
	res, err := f.interceptor.OnExecuted(context.Background(), req,
		flow.Completed(&domain.Session{TokenID: "jti-1"}, ""))
	require.NoError(t, err)
	assert.Equal(t, flow.ResultRedirect, res.Kind)
	assert.Equal(t, "alice@example.com", res.Params[flow.ParamEmail])
}
