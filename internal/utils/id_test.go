package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	require.NoError(t, err)
}

func TestRequestID(t *testing.T) {
	given := "3f2504e0-4f89-41d3-9a0c-0305e82c3301"
	assert.Equal(t, given, RequestID(given))
	assert.Equal(t, given, RequestID("3F2504E0-4F89-41D3-9A0C-0305E82C3301"))

	generated := RequestID("transformer-7")
	assert.NotEqual(t, "transformer-7", generated)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)
}
