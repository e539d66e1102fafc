package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"go.pilab.hu/pwchange/domain"
)

// DefinitionRegistry implements domain.DefinitionRegistry over MongoDB.
type DefinitionRegistry struct {
	definitions *mongo.Collection
}

// NewDefinitionRegistry creates a new DefinitionRegistry and ensures its
// unique name index.
func NewDefinitionRegistry(ctx context.Context, db *mongo.Database) (*DefinitionRegistry, error) {
	registry := &DefinitionRegistry{definitions: db.Collection(DefinitionsCollection)}

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := registry.definitions.Indexes().CreateOne(ctx, indexModel); err != nil {
		log.Warn().Err(err).Msg("Failed to create definition index (may already exist)")
	}
	return registry, nil
}

// GetDefinitionByName returns the definition with the given name.
func (r *DefinitionRegistry) GetDefinitionByName(ctx context.Context, name string) (*domain.AttributeDefinition, error) {
	var def domain.AttributeDefinition
	err := r.definitions.FindOne(ctx, bson.M{"name": name}).Decode(&def)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrDefinitionNotFound
		}
		log.Error().Err(err).Str("name", name).Msg("Error getting attribute definition")
		return nil, err
	}
	return &def, nil
}

// CreateDefinition inserts a new definition, assigning ids to the
// definition and any values that lack one.
func (r *DefinitionRegistry) CreateDefinition(ctx context.Context, def *domain.AttributeDefinition) error {
	if def.ID == "" {
		def.ID = NewObjectID()
	}
	for i := range def.Values {
		if def.Values[i].ID == "" {
			def.Values[i].ID = NewObjectID()
		}
	}

	if _, err := r.definitions.InsertOne(ctx, def); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("attribute definition %q already exists: %w", def.Name, err)
		}
		log.Error().Err(err).Str("name", def.Name).Msg("Error creating attribute definition")
		return err
	}
	return nil
}

// DeleteDefinition removes the definition with the given name. Deleting an
// absent definition is not an error.
func (r *DefinitionRegistry) DeleteDefinition(ctx context.Context, name string) error {
	if _, err := r.definitions.DeleteOne(ctx, bson.M{"name": name}); err != nil {
		log.Error().Err(err).Str("name", name).Msg("Error deleting attribute definition")
		return err
	}
	return nil
}

var _ domain.DefinitionRegistry = (*DefinitionRegistry)(nil)
