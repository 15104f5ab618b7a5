package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyPool_RoundRobin(t *testing.T) {
	kp := NewKeyPool([]string{"k1", "k2", "k3"})

	var got []string
	for i := 0; i < 4; i++ {
		key, err := kp.Next()
		require.NoError(t, err)
		got = append(got, key)
	}
	assert.Equal(t, []string{"k1", "k2", "k3", "k1"}, got)
}

func TestKeyPool_SingleKey(t *testing.T) {
	kp := NewKeyPool([]string{"only"})
	for i := 0; i < 3; i++ {
		key, err := kp.Next()
		require.NoError(t, err)
		assert.Equal(t, "only", key)
	}
}

func TestKeyPool_SkipsRateLimitedKey(t *testing.T) {
	kp := NewKeyPool([]string{"k1", "k2"})
	kp.MarkRateLimited("k1", time.Now().Add(time.Minute))

	for i := 0; i < 3; i++ {
		key, err := kp.Next()
		require.NoError(t, err)
		assert.Equal(t, "k2", key)
	}
}

func TestKeyPool_AllKeysExhausted(t *testing.T) {
	kp := NewKeyPool([]string{"k1"})
	kp.MarkRateLimited("k1", time.Now().Add(time.Minute))

	_, err := kp.Next()
	require.Error(t, err)
}

func TestKeyPool_CooldownExpires(t *testing.T) {
	kp := NewKeyPool([]string{"k1"})
	kp.MarkRateLimited("k1", time.Now().Add(5*time.Millisecond))

	time.Sleep(10 * time.Millisecond)
	key, err := kp.Next()
	require.NoError(t, err)
	assert.Equal(t, "k1", key)
}

func TestKeyPool_Empty(t *testing.T) {
	kp := NewKeyPool(nil)
	assert.Equal(t, 0, kp.Size())
	_, err := kp.Next()
	require.Error(t, err)
}
