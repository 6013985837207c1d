// Package server buffers recent chat messages for replay to new joiners.
package server

import "sync"

// History is a capacity-bounded FIFO log of chat messages. Once the capacity
// is exceeded the oldest entries are evicted.
type History struct {
	mu       sync.Mutex
	capacity int
	messages []ChatMessage
}

// NewHistory creates a History holding at most capacity messages. A
// non-positive capacity falls back to the configured default.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = defaultConfig().HistoryCapacity
	}
	return &History{capacity: capacity}
}

// Append adds msg at the tail, evicting from the head if over capacity.
func (h *History) Append(msg ChatMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, msg)
	if over := len(h.messages) - h.capacity; over > 0 {
		copy(h.messages, h.messages[over:])
		h.messages = h.messages[:h.capacity]
	}
}

// Snapshot returns the buffered messages in insertion order. The returned
// slice is a copy taken under the lock, so concurrent appends never tear it.
func (h *History) Snapshot() []ChatMessage {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]ChatMessage, len(h.messages))
	copy(out, h.messages)
	return out
}

// Clear empties the buffer.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}

// Len reports the current number of buffered messages.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}
