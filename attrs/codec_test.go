package attrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/pwchange/domain"
)

func testDefinition() *domain.AttributeDefinition {
	return &domain.AttributeDefinition{
		ID:   "def-rpc",
		Name: domain.RequirePasswordChangeName,
		Values: []domain.AttributeValue{
			{ID: "val-yes", Name: domain.RequirePasswordChangeYes, PreSelected: true},
			{ID: "val-no", Name: domain.RequirePasswordChangeNo},
		},
	}
}

func TestDecodeSelections_EmptyBlob(t *testing.T) {
	for _, blob := range []string{"", "   ", "\n"} {
		selections, err := DecodeSelections(blob)
		require.NoError(t, err)
		assert.Empty(t, selections)
	}
}

func TestDecodeSelections_Malformed(t *testing.T) {
	_, err := DecodeSelections("<not-json/>")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedBlob)
}

func TestDecodeSelections_Roundtrip(t *testing.T) {
	blob := `[{"definition_id":"def-color","value_id":"val-blue","value_name":"Blue"}]`
	selections, err := DecodeSelections(blob)
	require.NoError(t, err)
	require.Len(t, selections, 1)
	assert.Equal(t, "def-color", selections[0].DefinitionID)
	assert.Equal(t, "Blue", selections[0].ValueName)
}

func TestEncodeWithSelection_AddsWhenAbsent(t *testing.T) {
	def := testDefinition()
	blob, err := EncodeWithSelection("", def, def.ValueByName(domain.RequirePasswordChangeYes))
	require.NoError(t, err)

	selections, err := DecodeSelections(blob)
	require.NoError(t, err)
	require.Len(t, selections, 1)
	assert.Equal(t, def.ID, selections[0].DefinitionID)
	assert.Equal(t, domain.RequirePasswordChangeYes, selections[0].ValueName)
}

func TestEncodeWithSelection_ReplacesExisting(t *testing.T) {
	def := testDefinition()
	blob, err := EncodeWithSelection("", def, def.ValueByName(domain.RequirePasswordChangeYes))
	require.NoError(t, err)

	blob, err = EncodeWithSelection(blob, def, def.ValueByName(domain.RequirePasswordChangeNo))
	require.NoError(t, err)

	selections, err := DecodeSelections(blob)
	require.NoError(t, err)
	require.Len(t, selections, 1)
	assert.Equal(t, domain.RequirePasswordChangeNo, selections[0].ValueName)
}

func TestEncodeWithSelection_PreservesUnrelatedSelections(t *testing.T) {
	unrelated := `[{"definition_id":"def-color","value_id":"val-blue","value_name":"Blue"},` +
		`{"definition_id":"def-size","value_id":"val-l","value_name":"Large"}]`

	def := testDefinition()
	blob, err := EncodeWithSelection(unrelated, def, def.ValueByName(domain.RequirePasswordChangeNo))
	require.NoError(t, err)

	selections, err := DecodeSelections(blob)
	require.NoError(t, err)
	require.Len(t, selections, 3)
	assert.Equal(t, "def-color", selections[0].DefinitionID)
	assert.Equal(t, "def-size", selections[1].DefinitionID)
	assert.Equal(t, def.ID, selections[2].DefinitionID)
}

func TestEncodeWithSelection_MalformedInput(t *testing.T) {
	def := testDefinition()
	_, err := EncodeWithSelection("{{", def, def.ValueByName(domain.RequirePasswordChangeNo))
	assert.ErrorIs(t, err, domain.ErrMalformedBlob)
}
