package qr

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer_Issue(t *testing.T) {
	id := uuid.New()

	payload, image, err := NewIssuer().Issue(id)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(payload, id.String()+":"))
	assert.Greater(t, len(payload), len(id.String())+1)
	assert.True(t, strings.HasPrefix(image, "data:image/png;base64,"))

	again, _, err := NewIssuer().Issue(id)
	require.NoError(t, err)
	assert.NotEqual(t, payload, again, "токен должен быть случайным")
}
