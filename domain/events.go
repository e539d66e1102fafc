package domain

// AttributeEventKind tags the three mutation kinds the attribute store
// reports.
type AttributeEventKind string

const (
	AttributeInserted AttributeEventKind = "INSERTED"
	AttributeUpdated  AttributeEventKind = "UPDATED"
	AttributeDeleted  AttributeEventKind = "DELETED"
)

// AttributeEvent is a change notification for one per-account attribute.
// Value carries the new value for inserts and updates and is empty for
// deletions.
type AttributeEvent struct {
	Kind      AttributeEventKind `json:"kind"`
	AccountID string             `json:"account_id"`
	Key       string             `json:"key"`
	Value     string             `json:"value,omitempty"`
}

// NewValue normalizes the three event kinds to "new value or absent".
func (e AttributeEvent) NewValue() (string, bool) {
	if e.Kind == AttributeDeleted {
		return "", false
	}
	return e.Value, true
}
