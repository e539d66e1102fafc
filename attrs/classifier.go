package attrs

import "go.pilab.hu/pwchange/domain"

// Classification is the derived password-change-required state of a blob.
type Classification string

const (
	Required      Classification = "REQUIRED"
	NotRequired   Classification = "NOT_REQUIRED"
	Indeterminate Classification = "INDETERMINATE"
)

// Classify derives the password-change classification from a custom
// attribute blob and the resolved RequirePasswordChange definition.
//
// A nil definition means the feature is not provisioned; every blob then
// classifies as NotRequired. An absent selection is an explicit "no", not
// "unknown". A selection carrying a value name that is neither Yes nor No
// classifies as Indeterminate and must never be acted on destructively.
// A blob that cannot be decoded surfaces domain.ErrMalformedBlob together
// with Indeterminate; callers treat that as a processing failure.
func Classify(blob string, def *domain.AttributeDefinition) (Classification, error) {
	if def == nil {
		return NotRequired, nil
	}

	selections, err := DecodeSelections(blob)
	if err != nil {
		return Indeterminate, err
	}

	for _, sel := range selections {
		if sel.DefinitionID != def.ID {
			continue
		}
		name := sel.ValueName
		if name == "" {
			if v := def.ValueByID(sel.ValueID); v != nil {
				name = v.Name
			}
		}
		switch name {
		case domain.RequirePasswordChangeYes:
			return Required, nil
		case domain.RequirePasswordChangeNo:
			return NotRequired, nil
		default:
			return Indeterminate, nil
		}
	}
	return NotRequired, nil
}
