package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketAllowsBurstThenBlocks(t *testing.T) {
	b := newTokenBucket(3, time.Hour)

	for i := 0; i < 3; i++ {
		assert.True(t, b.allow(), "call %d should be within the burst", i)
	}
	assert.False(t, b.allow(), "burst exhausted, next call must be denied")
}

func TestTokenBucketRefills(t *testing.T) {
	b := newTokenBucket(1, 10*time.Millisecond)

	assert.True(t, b.allow())
	assert.False(t, b.allow())

	time.Sleep(25 * time.Millisecond)
	assert.True(t, b.allow(), "tokens should refill over time")
}

func TestTokenBucketNeverExceedsBurst(t *testing.T) {
	b := newTokenBucket(2, 10*time.Millisecond)

	assert.True(t, b.allow())
	assert.True(t, b.allow())

	// Plenty of time to earn well over two tokens; the cap must hold.
	time.Sleep(60 * time.Millisecond)
	assert.True(t, b.allow())
	assert.True(t, b.allow())
	assert.False(t, b.allow(), "bucket must not bank more than its burst")
}

func TestTokenBucketSanitizesArguments(t *testing.T) {
	b := newTokenBucket(0, 0)
	assert.True(t, b.allow())
}
