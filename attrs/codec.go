// Package attrs decodes and encodes the per-account custom attribute blob
// and classifies its RequirePasswordChange selection. Everything in this
// package is a pure function of its inputs; no I/O happens here.
package attrs

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.pilab.hu/pwchange/domain"
)

// DecodeSelections parses the custom attribute blob into its ordered
// (definition, selected value) pairs. An absent or empty blob decodes to an
// empty selection set; anything else that does not parse is reported as
// domain.ErrMalformedBlob.
func DecodeSelections(blob string) ([]domain.AttributeSelection, error) {
	if strings.TrimSpace(blob) == "" {
		return nil, nil
	}
	var selections []domain.AttributeSelection
	if err := json.Unmarshal([]byte(blob), &selections); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedBlob, err)
	}
	return selections, nil
}

// EncodeWithSelection returns a new blob identical to the input except that
// the selection for def is set to value: replaced if a selection for def is
// already present, appended otherwise. All unrelated selections are
// preserved verbatim, including their order.
func EncodeWithSelection(blob string, def *domain.AttributeDefinition, value *domain.AttributeValue) (string, error) {
	selections, err := DecodeSelections(blob)
	if err != nil {
		return "", err
	}

	selection := domain.AttributeSelection{
		DefinitionID: def.ID,
		ValueID:      value.ID,
		ValueName:    value.Name,
	}

	replaced := false
	for i := range selections {
		if selections[i].DefinitionID == def.ID {
			selections[i] = selection
			replaced = true
		}
	}
	if !replaced {
		selections = append(selections, selection)
	}

	encoded, err := json.Marshal(selections)
	if err != nil {
		return "", fmt.Errorf("encoding attribute blob: %w", err)
	}
	return string(encoded), nil
}
