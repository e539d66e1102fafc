package domain

// Names of the per-account attribute keys in the generic attribute store.
// The key layout is a stable contract with the host platform and must not
// be renamed.
const (
	AttrKeyCustomAttributes  = "CustomCustomerAttributes"
	AttrKeyRecoveryToken     = "PasswordRecoveryToken"
	AttrKeyRecoveryTokenDate = "PasswordRecoveryTokenDateGenerated"
)

// Names of the RequirePasswordChange attribute definition and its two
// permitted values.
const (
	RequirePasswordChangeName = "RequirePasswordChange"
	RequirePasswordChangeYes  = "Yes"
	RequirePasswordChangeNo   = "No"
)

// AttributeValue is one permitted value of a selectable attribute
// definition.
type AttributeValue struct {
	ID           string `bson:"_id,omitempty" json:"id"`
	Name         string `bson:"name" json:"name"`
	DisplayOrder int    `bson:"display_order" json:"display_order"`
	PreSelected  bool   `bson:"pre_selected" json:"pre_selected"`
}

// AttributeDefinition is a named selectable property with an ordered list
// of permitted values. Definitions are provisioned once and are immutable
// from the policy core's perspective.
type AttributeDefinition struct {
	ID     string           `bson:"_id,omitempty" json:"id"`
	Name   string           `bson:"name" json:"name"`
	Values []AttributeValue `bson:"values" json:"values"`
}

// ValueByName returns the permitted value with the given name, or nil.
func (d *AttributeDefinition) ValueByName(name string) *AttributeValue {
	for i := range d.Values {
		if d.Values[i].Name == name {
			return &d.Values[i]
		}
	}
	return nil
}

// ValueByID returns the permitted value with the given id, or nil.
func (d *AttributeDefinition) ValueByID(id string) *AttributeValue {
	for i := range d.Values {
		if d.Values[i].ID == id {
			return &d.Values[i]
		}
	}
	return nil
}

// AttributeSelection is one decoded (definition, selected value) pair from
// an account's custom attribute blob.
type AttributeSelection struct {
	DefinitionID string `json:"definition_id"`
	ValueID      string `json:"value_id"`
	ValueName    string `json:"value_name"`
}
