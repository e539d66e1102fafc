package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"go.pilab.hu/pwchange/domain"
)

// Provisioner installs and removes the RequirePasswordChange attribute
// definition. Install runs at every startup and is idempotent.
type Provisioner struct {
	definitions domain.DefinitionRegistry
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(definitions domain.DefinitionRegistry) *Provisioner {
	return &Provisioner{definitions: definitions}
}

// Install creates the RequirePasswordChange definition with its two
// permitted values. "Yes" is pre-selected and sorts first so an operator
// engaging the attribute defaults to flagging the account.
func (p *Provisioner) Install(ctx context.Context) error {
	_, err := p.definitions.GetDefinitionByName(ctx, domain.RequirePasswordChangeName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrDefinitionNotFound) {
		return fmt.Errorf("provisioner: %w", err)
	}

	definition := &domain.AttributeDefinition{
		Name: domain.RequirePasswordChangeName,
		Values: []domain.AttributeValue{
			{Name: domain.RequirePasswordChangeYes, DisplayOrder: math.MinInt32, PreSelected: true},
			{Name: domain.RequirePasswordChangeNo, DisplayOrder: math.MaxInt32},
		},
	}
	if err := p.definitions.CreateDefinition(ctx, definition); err != nil {
		return fmt.Errorf("provisioner: %w", err)
	}
	log.Info().Str("definition", definition.Name).Msg("Provisioned RequirePasswordChange attribute definition")
	return nil
}

// Uninstall removes the definition. Removing an absent definition is a
// no-op.
func (p *Provisioner) Uninstall(ctx context.Context) error {
	if err := p.definitions.DeleteDefinition(ctx, domain.RequirePasswordChangeName); err != nil {
		if errors.Is(err, domain.ErrDefinitionNotFound) {
			return nil
		}
		return fmt.Errorf("provisioner: %w", err)
	}
	return nil
}
