package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"go.pilab.hu/pwchange/domain"
)

// AccountRepository implements domain.AccountRepository over MongoDB.
type AccountRepository struct {
	accounts *mongo.Collection
}

// NewAccountRepository creates a new AccountRepository and ensures its
// indexes.
func NewAccountRepository(ctx context.Context, db *mongo.Database) (*AccountRepository, error) {
	repo := &AccountRepository{accounts: db.Collection(AccountsCollection)}

	indexModels := []mongo.IndexModel{
		{
			// Case-insensitive unique email.
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetCollation(&options.Collation{Locale: "en", Strength: 2}),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	}
	if _, err := repo.accounts.Indexes().CreateMany(ctx, indexModels); err != nil {
		// Index creation commonly fails when compatible indexes already
		// exist; surfaceable but not fatal for startup.
		log.Warn().Err(err).Msg("Failed to create account indexes (may already exist)")
	}
	return repo, nil
}

// CreateAccount inserts a new account.
func (r *AccountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	if account.ID == "" {
		account.ID = NewObjectID()
	}
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	if account.Status == "" {
		account.Status = domain.AccountStatusActive
	}

	if _, err := r.accounts.InsertOne(ctx, account); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("account with this email or username already exists: %w", err)
		}
		log.Error().Err(err).Str("email", account.Email).Msg("Error creating account")
		return err
	}
	return nil
}

// GetAccountByID retrieves an account by its id.
func (r *AccountRepository) GetAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetAccountByEmail retrieves an account by email.
func (r *AccountRepository) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// GetAccountByUsername retrieves an account by username.
func (r *AccountRepository) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	var account domain.Account
	err := r.accounts.FindOne(ctx, filter).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		log.Error().Err(err).Interface("filter", filter).Msg("Error getting account")
		return nil, err
	}
	return &account, nil
}

// UpdateAccount replaces an existing account document.
func (r *AccountRepository) UpdateAccount(ctx context.Context, account *domain.Account) error {
	if account.ID == "" {
		return errors.New("account ID is required for update")
	}
	account.UpdatedAt = time.Now().UTC()

	result, err := r.accounts.ReplaceOne(ctx, bson.M{"_id": account.ID}, account)
	if err != nil {
		log.Error().Err(err).Str("account_id", account.ID).Msg("Error updating account")
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

var _ domain.AccountRepository = (*AccountRepository)(nil)
