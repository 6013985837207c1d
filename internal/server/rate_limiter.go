// Package server throttles inbound payloads per connection with a token
// bucket, so one chatty client cannot flood the relay.
package server

import (
	"sync"
	"time"
)

// tokenBucket admits up to burst payloads at once and earns one token back
// every perToken. Each connection owns its own bucket; the read pump consults
// it before handing a payload to the processor.
type tokenBucket struct {
	mu       sync.Mutex
	tokens   int
	burst    int
	perToken time.Duration
	last     time.Time
}

// newTokenBucket builds a full bucket that refills burst tokens per interval.
// Non-positive arguments fall back to one payload per second.
func newTokenBucket(burst int, interval time.Duration) *tokenBucket {
	if burst <= 0 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	perToken := interval / time.Duration(burst)
	if perToken <= 0 {
		perToken = time.Nanosecond
	}

	return &tokenBucket{
		tokens:   burst,
		burst:    burst,
		perToken: perToken,
		last:     time.Now(),
	}
}

// allow consumes one token if any are available. Tokens earned since the last
// call are credited first; the remainder below a whole token stays banked by
// leaving last mid-interval.
func (b *tokenBucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if earned := int(now.Sub(b.last) / b.perToken); earned > 0 {
		b.tokens += earned
		if b.tokens >= b.burst {
			b.tokens = b.burst
			b.last = now
		} else {
			b.last = b.last.Add(time.Duration(earned) * b.perToken)
		}
	}

	if b.tokens == 0 {
		return false
	}
	b.tokens--
	return true
}
