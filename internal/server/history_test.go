package server

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryEvictsOldestBeyondCapacity(t *testing.T) {
	h := NewHistory(3)
	for _, text := range []string{"m1", "m2", "m3", "m4"} {
		h.Append(ChatMessage{Username: "alice", Text: text})
	}

	snap := h.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "m2", snap[0].Text)
	assert.Equal(t, "m3", snap[1].Text)
	assert.Equal(t, "m4", snap[2].Text)
}

func TestHistorySnapshotIsACopy(t *testing.T) {
	h := NewHistory(10)
	h.Append(ChatMessage{Text: "original"})

	snap := h.Snapshot()
	snap[0].Text = "mutated"

	assert.Equal(t, "original", h.Snapshot()[0].Text)
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory(10)
	h.Append(ChatMessage{Text: "m1"})
	h.Append(ChatMessage{Text: "m2"})
	require.Equal(t, 2, h.Len())

	h.Clear()
	assert.Zero(t, h.Len())
	assert.Empty(t, h.Snapshot())
}

func TestHistoryDefaultCapacity(t *testing.T) {
	h := NewHistory(0)
	want := defaultConfig().HistoryCapacity
	for i := 0; i < want+25; i++ {
		h.Append(ChatMessage{Text: fmt.Sprintf("m%d", i)})
	}
	assert.Equal(t, want, h.Len())
}

func TestHistoryPreservesInsertionOrder(t *testing.T) {
	h := NewHistory(100)
	for i := 0; i < 50; i++ {
		h.Append(ChatMessage{Text: fmt.Sprintf("m%d", i)})
	}
	snap := h.Snapshot()
	require.Len(t, snap, 50)
	for i, msg := range snap {
		assert.Equal(t, fmt.Sprintf("m%d", i), msg.Text)
	}
}
