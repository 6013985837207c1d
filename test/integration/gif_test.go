package integration

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usayd/ripple-chat/internal/server"
	"github.com/usayd/ripple-chat/test/testhelpers"
)

func TestGifCommandBroadcastsResult(t *testing.T) {
	gifs := testhelpers.StubGifLookup{URL: "https://media.example/party.gif"}
	ts, _ := testhelpers.NewRelayServer(t, nil, gifs)

	alice := testhelpers.Dial(t, ts)
	bob := testhelpers.Dial(t, ts)
	testhelpers.WaitForEvent(t, bob, "history", eventTimeout)

	testhelpers.Send(t, alice, map[string]string{"type": "register", "username": "alice"})
	testhelpers.WaitForPresence(t, alice, 1, eventTimeout)

	testhelpers.Send(t, alice, map[string]string{"type": "chat", "text": "/gif party"})

	ev := testhelpers.WaitForEvent(t, bob, "chat", eventTimeout)
	var msg server.ChatMessage
	require.NoError(t, json.Unmarshal(ev.Data, &msg))
	assert.True(t, msg.IsGif)
	assert.Equal(t, "https://media.example/party.gif", msg.GifURL)
	assert.Equal(t, "alice", msg.Username)
}

func TestGifCommandNoResultUnicastsSender(t *testing.T) {
	gifs := testhelpers.StubGifLookup{Err: errors.New("upstream down")}
	ts, _ := testhelpers.NewRelayServer(t, nil, gifs)

	alice := testhelpers.Dial(t, ts)
	bob := testhelpers.Dial(t, ts)
	testhelpers.WaitForEvent(t, bob, "history", eventTimeout)

	testhelpers.Send(t, alice, map[string]string{"type": "register", "username": "alice"})
	testhelpers.WaitForPresence(t, alice, 1, eventTimeout)
	testhelpers.WaitForPresence(t, bob, 1, eventTimeout)

	testhelpers.Send(t, alice, map[string]string{"type": "chat", "text": "/gif voidthing"})

	notice := testhelpers.WaitForEvent(t, alice, "system", eventTimeout)
	assert.Contains(t, notice.Text, "No GIF found")

	testhelpers.ExpectNoEvent(t, bob, 300*time.Millisecond)
}
