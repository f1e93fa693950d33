package ids

import (
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsMonotonic(t *testing.T) {
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestNewReference(t *testing.T) {
	ref := NewReference()
	require.True(t, strings.HasPrefix(ref, ReferencePrefix))
	_, err := ulid.Parse(strings.TrimPrefix(ref, ReferencePrefix))
	assert.NoError(t, err)
}
