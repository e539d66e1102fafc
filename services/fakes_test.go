package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"go.pilab.hu/pwchange/bus"
	"go.pilab.hu/pwchange/domain"
)

// --- In-memory collaborator fakes ---

type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newMemAccountRepo(accounts ...*domain.Account) *memAccountRepo {
	repo := &memAccountRepo{accounts: make(map[string]*domain.Account)}
	for _, a := range accounts {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		repo.accounts[a.ID] = a
	}
	return repo
}

func (r *memAccountRepo) CreateAccount(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	r.accounts[account.ID] = account
	return nil
}

func (r *memAccountRepo) GetAccountByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (r *memAccountRepo) GetAccountByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == email {
			copied := *a
			return &copied, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *memAccountRepo) GetAccountByUsername(_ context.Context, username string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Username == username {
			copied := *a
			return &copied, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *memAccountRepo) UpdateAccount(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID]; !ok {
		return domain.ErrAccountNotFound
	}
	copied := *account
	r.accounts[account.ID] = &copied
	return nil
}

// memAttributeStore mimics the host store semantics: setting an empty
// value deletes the attribute, and every effective mutation is published.
// Events are published outside the lock because the in-memory bus delivers
// synchronously and handlers read back through the store.
type memAttributeStore struct {
	mu        sync.Mutex
	values    map[string]map[string]string
	publisher bus.Publisher
}

func newMemAttributeStore(publisher bus.Publisher) *memAttributeStore {
	return &memAttributeStore{values: make(map[string]map[string]string), publisher: publisher}
}

func (s *memAttributeStore) Get(_ context.Context, accountID, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[accountID][key]
	return value, ok, nil
}

func (s *memAttributeStore) Set(ctx context.Context, accountID, key, value string) error {
	var event *domain.AttributeEvent

	s.mu.Lock()
	attrs, ok := s.values[accountID]
	if !ok {
		attrs = make(map[string]string)
		s.values[accountID] = attrs
	}
	_, existed := attrs[key]
	switch {
	case value == "" && existed:
		delete(attrs, key)
		event = &domain.AttributeEvent{Kind: domain.AttributeDeleted, AccountID: accountID, Key: key}
	case value == "":
		// Deleting an absent attribute emits nothing.
	case existed:
		attrs[key] = value
		event = &domain.AttributeEvent{Kind: domain.AttributeUpdated, AccountID: accountID, Key: key, Value: value}
	default:
		attrs[key] = value
		event = &domain.AttributeEvent{Kind: domain.AttributeInserted, AccountID: accountID, Key: key, Value: value}
	}
	s.mu.Unlock()

	if event != nil && s.publisher != nil {
		return s.publisher.Publish(ctx, *event)
	}
	return nil
}

type memDefinitionRegistry struct {
	mu   sync.Mutex
	defs map[string]*domain.AttributeDefinition
}

func newMemDefinitionRegistry(defs ...*domain.AttributeDefinition) *memDefinitionRegistry {
	registry := &memDefinitionRegistry{defs: make(map[string]*domain.AttributeDefinition)}
	for _, d := range defs {
		registry.defs[d.Name] = d
	}
	return registry
}

func (r *memDefinitionRegistry) GetDefinitionByName(_ context.Context, name string) (*domain.AttributeDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.defs[name]; ok {
		return d, nil
	}
	return nil, domain.ErrDefinitionNotFound
}

func (r *memDefinitionRegistry) CreateDefinition(_ context.Context, def *domain.AttributeDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	for i := range def.Values {
		if def.Values[i].ID == "" {
			def.Values[i].ID = uuid.NewString()
		}
	}
	r.defs[def.Name] = def
	return nil
}

func (r *memDefinitionRegistry) DeleteDefinition(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[name]; !ok {
		return domain.ErrDefinitionNotFound
	}
	delete(r.defs, name)
	return nil
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*domain.Session)}
}

func (r *memSessionRepo) StoreSession(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	copied := *session
	r.sessions[session.TokenID] = &copied
	return nil
}

func (r *memSessionRepo) GetSessionByTokenID(_ context.Context, tokenID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[tokenID]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (r *memSessionRepo) RevokeSession(_ context.Context, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[tokenID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.IsRevoked = true
	return nil
}

// plainHasher avoids bcrypt cost in tests; "hashing" is reversible on
// purpose so assertions stay readable.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Verify(hashedPassword, password string) error {
	if hashedPassword != "hashed:"+password {
		return domain.ErrInvalidCredentials
	}
	return nil
}

// --- mock.Mock collaborators ---

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) SignIn(ctx context.Context, identifier, password string) (*domain.Session, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockAuthenticator) SignOut(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

// requirePasswordChangeDef builds the provisioned definition used across
// the tests.
func requirePasswordChangeDef() *domain.AttributeDefinition {
	return &domain.AttributeDefinition{
		ID:   "def-rpc",
		Name: domain.RequirePasswordChangeName,
		Values: []domain.AttributeValue{
			{ID: "val-yes", Name: domain.RequirePasswordChangeYes, PreSelected: true},
			{ID: "val-no", Name: domain.RequirePasswordChangeNo},
		},
	}
}
