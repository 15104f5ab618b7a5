package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey_Deterministic(t *testing.T) {
	a := Key("gpt-4", "system", "user")
	b := Key("gpt-4", "system", "user")
	assert.Equal(t, a, b)
}

func TestKey_DistinguishesFields(t *testing.T) {
	base := Key("gpt-4", "system", "user")
	assert.NotEqual(t, base, Key("gpt-4o", "system", "user"))
	assert.NotEqual(t, base, Key("gpt-4", "systemx", "user"))
	assert.NotEqual(t, base, Key("gpt-4", "system", "userx"))

	// Field boundaries must matter: moving a character across the
	// system/user boundary changes the key.
	assert.NotEqual(t, Key("m", "ab", "c"), Key("m", "a", "bc"))
}
