package server

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newHubClient inserts a pump-less client directly into the hub, standing in
// for a real WebSocket connection.
func newHubClient(h *Hub, buffer int) *Client {
	c := &Client{
		id:   uuid.New().String(),
		send: make(chan []byte, buffer),
		hub:  h,
		addr: "test",
	}
	h.mutex.Lock()
	h.clients[c] = true
	h.mutex.Unlock()
	return c
}

func receiveOrNil(c *Client) []byte {
	select {
	case payload := <-c.send:
		return payload
	default:
		return nil
	}
}

func TestHubBroadcastReachesEveryClient(t *testing.T) {
	h := NewHub()

	const k = 5
	clients := make([]*Client, k)
	for i := range clients {
		clients[i] = newHubClient(h, 8)
	}

	h.Broadcast([]byte(`{"type":"system","text":"hello"}`))

	for i, c := range clients {
		payload := receiveOrNil(c)
		require.NotNil(t, payload, "client %d received nothing", i)
		assert.JSONEq(t, `{"type":"system","text":"hello"}`, string(payload))
	}
}

func TestHubSendToTargetsOneClient(t *testing.T) {
	h := NewHub()
	target := newHubClient(h, 8)
	bystander := newHubClient(h, 8)

	h.SendTo(target, []byte("private"))

	assert.Equal(t, []byte("private"), receiveOrNil(target))
	assert.Nil(t, receiveOrNil(bystander))
}

func TestHubBroadcastEvictsFullClientOnly(t *testing.T) {
	h := NewHub()
	stuck := newHubClient(h, 0)
	healthy := newHubClient(h, 8)

	h.Broadcast([]byte("one"))

	assert.Equal(t, []byte("one"), receiveOrNil(healthy))
	assert.Equal(t, 1, h.ClientCount(), "stuck client should be evicted")

	// The evicted client's channel is closed and the healthy one still works.
	_, open := <-stuck.send
	assert.False(t, open)

	h.Broadcast([]byte("two"))
	assert.Equal(t, []byte("two"), receiveOrNil(healthy))
}

func TestHubSendToUnknownClientIsNoOp(t *testing.T) {
	h := NewHub()
	stranger := &Client{send: make(chan []byte, 1)}

	h.SendTo(stranger, []byte("lost"))

	assert.Nil(t, receiveOrNil(stranger))
}

func TestRegisterAfterShutdownDoesNotBlock(t *testing.T) {
	h := NewHub()
	go h.Run()
	require.NoError(t, h.Shutdown(time.Second))

	done := make(chan struct{})
	go func() {
		h.Register(&Client{send: make(chan []byte, 1), hub: h, addr: "late"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Register blocked after shutdown")
	}
	assert.Zero(t, h.ClientCount())
}

func TestHubSendToClosedChannelDoesNotPanic(t *testing.T) {
	h := NewHub()
	c := newHubClient(h, 0)

	// First broadcast evicts and closes; a second send must not panic.
	h.Broadcast([]byte("one"))
	assert.NotPanics(t, func() {
		h.SendTo(c, []byte("two"))
		h.Broadcast([]byte("three"))
	})
}
