package domain

import "context"

// AccountRepository resolves and updates accounts. Implementations return
// ErrAccountNotFound when no account matches.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccountByID(ctx context.Context, id string) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*Account, error)
	UpdateAccount(ctx context.Context, account *Account) error
}

// AttributeStore is the generic per-account key/value store. Setting an
// empty value removes the stored attribute. Every successful mutation emits
// an AttributeEvent on the store's change bus; readers must treat values as
// opaque strings.
type AttributeStore interface {
	Get(ctx context.Context, accountID, key string) (value string, ok bool, err error)
	Set(ctx context.Context, accountID, key, value string) error
}

// DefinitionRegistry looks up attribute definitions by name. Lookups return
// ErrDefinitionNotFound when no definition matches. Create and Delete exist
// for the provisioning path only.
type DefinitionRegistry interface {
	GetDefinitionByName(ctx context.Context, name string) (*AttributeDefinition, error)
	CreateDefinition(ctx context.Context, def *AttributeDefinition) error
	DeleteDefinition(ctx context.Context, name string) error
}

// SessionRepository stores and revokes authenticated sessions.
type SessionRepository interface {
	StoreSession(ctx context.Context, session *Session) error
	GetSessionByTokenID(ctx context.Context, tokenID string) (*Session, error)
	RevokeSession(ctx context.Context, tokenID string) error
}
