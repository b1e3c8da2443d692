package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "required": ["score", "label"],
  "properties": {
    "score": {"type": "number"},
    "label": {"type": "string"}
  }
}`

type testPayload struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

func TestSchemaDecodeValidPayload(t *testing.T) {
	schema := MustCompileSchema("test.json", testSchema)

	var payload testPayload
	err := schema.Decode("result: {\"score\": 72.5, \"label\": \"good\"}", &payload)
	require.NoError(t, err)
	require.InDelta(t, 72.5, payload.Score, 0.001)
	require.Equal(t, "good", payload.Label)
}

func TestSchemaDecodeRejectsMissingField(t *testing.T) {
	schema := MustCompileSchema("test.json", testSchema)

	var payload testPayload
	err := schema.Decode(`{"label": "good"}`, &payload)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInferenceMalformed))
}

func TestSchemaDecodeRejectsWrongType(t *testing.T) {
	schema := MustCompileSchema("test.json", testSchema)

	var payload testPayload
	err := schema.Decode(`{"score": "eighty", "label": "good"}`, &payload)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInferenceMalformed))
}

func TestSchemaDecodeRejectsProse(t *testing.T) {
	schema := MustCompileSchema("test.json", testSchema)

	var payload testPayload
	err := schema.Decode("I cannot grade this answer.", &payload)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInferenceMalformed))
}

func TestCompileSchemaRejectsInvalidDocument(t *testing.T) {
	_, err := CompileSchema("broken.json", `{"type": 12}`)
	require.Error(t, err)
}
