package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllow_BurstThenBlocked(t *testing.T) {
	krl := New(1, 3)

	passed := 0
	for range 5 {
		if krl.Allow("user1") {
			passed++
		}
	}

	assert.Equal(t, 3, passed)
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	krl := New(1, 1)

	assert.True(t, krl.Allow("alice"))
	assert.False(t, krl.Allow("alice"))

	// Bob has his own bucket.
	assert.True(t, krl.Allow("bob"))
}

func TestPerMinute(t *testing.T) {
	krl := PerMinute(10, 5)

	passed := 0
	for range 10 {
		if krl.Allow("user1") {
			passed++
		}
	}

	assert.Equal(t, 5, passed)
}
