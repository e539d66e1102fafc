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

	"go.pilab.hu/pwchange/bus"
	"go.pilab.hu/pwchange/domain"
)

type attributeDoc struct {
	ID        string    `bson:"_id,omitempty"`
	AccountID string    `bson:"account_id"`
	Key       string    `bson:"key"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// AttributeStore implements domain.AttributeStore over MongoDB. Every
// effective mutation is published as an AttributeEvent so the reconciler
// sees writes from any process. Setting an empty value removes the stored
// attribute, matching the host platform's save-null-deletes semantics.
type AttributeStore struct {
	attributes *mongo.Collection
	publisher  bus.Publisher
}

// NewAttributeStore creates a new AttributeStore publishing change events
// on the given bus.
func NewAttributeStore(ctx context.Context, db *mongo.Database, publisher bus.Publisher) (*AttributeStore, error) {
	store := &AttributeStore{
		attributes: db.Collection(AttributesCollection),
		publisher:  publisher,
	}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}, {Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := store.attributes.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("Failed to create attribute indexes (may already exist)")
	}
	return store, nil
}

// Get returns the stored value for (accountID, key), with ok=false when no
// attribute is stored.
func (s *AttributeStore) Get(ctx context.Context, accountID, key string) (string, bool, error) {
	var doc attributeDoc
	err := s.attributes.FindOne(ctx, bson.M{"account_id": accountID, "key": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		log.Error().Err(err).Str("account_id", accountID).Str("key", key).Msg("Error reading attribute")
		return "", false, err
	}
	return doc.Value, true, nil
}

// Set upserts the attribute, or removes it when value is empty, and
// publishes the resulting change event. A failed publish fails the call:
// callers must not assume the reconciler observed a write that was never
// announced.
func (s *AttributeStore) Set(ctx context.Context, accountID, key, value string) error {
	if value == "" {
		return s.delete(ctx, accountID, key)
	}

	update := bson.M{"$set": bson.M{
		"account_id": accountID,
		"key":        key,
		"value":      value,
		"updated_at": time.Now().UTC(),
	}}
	result, err := s.attributes.UpdateOne(ctx,
		bson.M{"account_id": accountID, "key": key},
		update,
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		log.Error().Err(err).Str("account_id", accountID).Str("key", key).Msg("Error writing attribute")
		return err
	}

	kind := domain.AttributeUpdated
	if result.MatchedCount == 0 {
		kind = domain.AttributeInserted
	}
	return s.publish(ctx, domain.AttributeEvent{Kind: kind, AccountID: accountID, Key: key, Value: value})
}

func (s *AttributeStore) delete(ctx context.Context, accountID, key string) error {
	result, err := s.attributes.DeleteOne(ctx, bson.M{"account_id": accountID, "key": key})
	if err != nil {
		log.Error().Err(err).Str("account_id", accountID).Str("key", key).Msg("Error deleting attribute")
		return err
	}
	if result.DeletedCount == 0 {
		// Deleting an absent attribute emits nothing.
		return nil
	}
	return s.publish(ctx, domain.AttributeEvent{Kind: domain.AttributeDeleted, AccountID: accountID, Key: key})
}

func (s *AttributeStore) publish(ctx context.Context, event domain.AttributeEvent) error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("attribute written but event publish failed: %w", err)
	}
	return nil
}

var _ domain.AttributeStore = (*AttributeStore)(nil)
