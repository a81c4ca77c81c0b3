package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "ops***", RedactEmail("ops@co.com"))
	assert.Equal(t, "ab***", RedactEmail("ab"))
	assert.Equal(t, "unknown", RedactEmail(""))
}

func TestStringHash(t *testing.T) {
	assert.Equal(t, "0", StringHash(""))
	assert.Equal(t, "61", StringHash("a"))
	assert.Equal(t, "c21", StringHash("ab"))
	// Stable across calls and distinct for distinct inputs.
	assert.Equal(t, StringHash("ops@co.com"), StringHash("ops@co.com"))
	assert.NotEqual(t, StringHash("ops@co.com"), StringHash("intern@co.com"))
}

func TestEmailHasher(t *testing.T) {
	plain := NewEmailHasher("")
	assert.False(t, plain.Keyed())
	assert.Equal(t, StringHash("ops@co.com"), plain.Hash("ops@co.com"))

	keyed := NewEmailHasher("k1")
	assert.True(t, keyed.Keyed())
	h := keyed.Hash("ops@co.com")
	assert.Len(t, h, 16)
	assert.NotEqual(t, h, NewEmailHasher("k2").Hash("ops@co.com"))
	assert.NotContains(t, h, "ops")
}
