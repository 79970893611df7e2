package idgen_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-assist/chat-api/internal/utils/idgen"
)

func TestGenerateSecureID(t *testing.T) {
	id, err := idgen.GenerateSecureID("conv", 16)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "conv_"))
	assert.Len(t, id, len("conv_")+16)

	for _, r := range strings.TrimPrefix(id, "conv_") {
		assert.True(t, (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z'), "unexpected character %q", r)
	}
}

func TestGenerateSecureIDUniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id, err := idgen.GenerateSecureID("msg", 16)
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}
