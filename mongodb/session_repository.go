package mongodb

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"go.pilab.hu/pwchange/domain"
)

// SessionRepository implements domain.SessionRepository over MongoDB.
// Expired sessions are reaped by a TTL index on expires_at.
type SessionRepository struct {
	sessions *mongo.Collection
}

// NewSessionRepository creates a new SessionRepository and ensures its
// indexes.
func NewSessionRepository(ctx context.Context, db *mongo.Database) (*SessionRepository, error) {
	repo := &SessionRepository{sessions: db.Collection(SessionsCollection)}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "account_id", Value: 1}},
		},
	}
	if _, err := repo.sessions.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("Failed to create session indexes (may already exist)")
	}
	return repo, nil
}

// StoreSession persists a new session.
func (r *SessionRepository) StoreSession(ctx context.Context, session *domain.Session) error {
	if session.ID == "" {
		session.ID = NewObjectID()
	}
	if _, err := r.sessions.InsertOne(ctx, session); err != nil {
		log.Error().Err(err).Str("account_id", session.AccountID).Msg("Error storing session")
		return err
	}
	return nil
}

// GetSessionByTokenID returns the session with the given token id.
func (r *SessionRepository) GetSessionByTokenID(ctx context.Context, tokenID string) (*domain.Session, error) {
	var session domain.Session
	err := r.sessions.FindOne(ctx, bson.M{"token_id": tokenID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSessionNotFound
		}
		log.Error().Err(err).Str("token_id", tokenID).Msg("Error getting session")
		return nil, err
	}
	return &session, nil
}

// RevokeSession marks the session with the given token id as revoked.
func (r *SessionRepository) RevokeSession(ctx context.Context, tokenID string) error {
	result, err := r.sessions.UpdateOne(ctx,
		bson.M{"token_id": tokenID},
		bson.M{"$set": bson.M{"is_revoked": true}},
	)
	if err != nil {
		log.Error().Err(err).Str("token_id", tokenID).Msg("Error revoking session")
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

var _ domain.SessionRepository = (*SessionRepository)(nil)
