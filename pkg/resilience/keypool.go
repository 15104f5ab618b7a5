// Package resilience provides retry, circuit-breaking and API key
// rotation for the batch processor's completion calls.
package resilience

import (
	"fmt"
	"sync"
	"time"
)

// KeyPool rotates over one or more API keys round-robin, skipping keys
// that are cooling down after a rate limit. A single-key pool degrades
// to always returning that key.
type KeyPool struct {
	mu      sync.Mutex
	keys    []keyEntry
	current int
}

type keyEntry struct {
	key       string
	coolUntil time.Time // Zero when the key is usable
}

// NewKeyPool creates a key pool from a list of API keys.
func NewKeyPool(keys []string) *KeyPool {
	entries := make([]keyEntry, len(keys))
	for i, k := range keys {
		entries[i] = keyEntry{key: k}
	}
	return &KeyPool{keys: entries}
}

// Next returns the next usable API key in round-robin order. It returns
// an error when no keys are configured or all keys are cooling down.
func (kp *KeyPool) Next() (string, error) {
	kp.mu.Lock()
	defer kp.mu.Unlock()

	n := len(kp.keys)
	if n == 0 {
		return "", fmt.Errorf("keypool: no keys configured")
	}

	now := time.Now()
	for i := 0; i < n; i++ {
		idx := (kp.current + i) % n
		entry := &kp.keys[idx]

		if entry.coolUntil.IsZero() || now.After(entry.coolUntil) {
			entry.coolUntil = time.Time{}
			kp.current = (idx + 1) % n
			return entry.key, nil
		}
	}

	earliest := kp.keys[0].coolUntil
	for _, e := range kp.keys[1:] {
		if e.coolUntil.Before(earliest) {
			earliest = e.coolUntil
		}
	}
	return "", fmt.Errorf("keypool: all keys rate-limited, earliest reset at %s", earliest.Format(time.RFC3339))
}

// MarkRateLimited puts a key on cooldown until the given time.
func (kp *KeyPool) MarkRateLimited(key string, until time.Time) {
	kp.mu.Lock()
	defer kp.mu.Unlock()

	for i := range kp.keys {
		if kp.keys[i].key == key {
			kp.keys[i].coolUntil = until
			return
		}
	}
}

// Size returns the number of keys in the pool.
func (kp *KeyPool) Size() int {
	kp.mu.Lock()
	defer kp.mu.Unlock()
	return len(kp.keys)
}
