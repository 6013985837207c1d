package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/usayd/ripple-chat/test/testhelpers"
)

func TestHubShutdownClosesConnectedClients(t *testing.T) {
	ts, hub := testhelpers.NewRelayServer(t, nil, nil)

	conn := testhelpers.Dial(t, ts)
	testhelpers.WaitForEvent(t, conn, "history", eventTimeout)

	err := hub.Shutdown(2 * time.Second)
	assert.NoError(t, err)

	// The server closed the transport; the next read must fail.
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, readErr := conn.ReadMessage()
	assert.Error(t, readErr)
}
