package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	coordpkg "github.com/duopair/gameroom-backend/internal/coordinator"
	"github.com/duopair/gameroom-backend/internal/repository"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testOrigin  = "http://game.test"
	readTimeout = 3 * time.Second
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	server := New(logger)
	coord := coordpkg.New(logger, repository.NewMemoryRoomRepository(), server, testOrigin)
	server.Bind(coord)

	ts := httptest.NewServer(http.HandlerFunc(server.ServeWS))
	t.Cleanup(ts.Close)

	return ts
}

func dial(t *testing.T, ts *httptest.Server) *gws.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	conn, _, err := gws.DefaultDialer.Dial(url, nil) //nolint: bodyclose // hijacked connection, body is not usable
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

func sendAction(t *testing.T, conn *gws.Conn, action string, payload any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	message, err := json.Marshal(Message{Action: action, Payload: raw})
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(gws.TextMessage, message))
}

func readEvent(t *testing.T, conn *gws.Conn) Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))

	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var message Message
	require.NoError(t, json.Unmarshal(raw, &message))

	return message
}

func TestServer_SessionFlow(t *testing.T) {
	ts := newTestServer(t)

	// Given: the first participant connects with no room preference
	first := dial(t, ts)
	sendAction(t, first, actionCheckURL, CheckURLPayload{Room: ""})

	// Then: it receives a shareable invite link to its own room
	message := readEvent(t, first)
	require.Equal(t, "inviteLink", message.Action)

	var invite coordpkg.InviteLinkPayload
	require.NoError(t, json.Unmarshal(message.Payload, &invite))
	require.True(t, strings.HasPrefix(invite.URL, testOrigin+"/"))

	roomID := strings.TrimPrefix(invite.URL, testOrigin+"/")
	require.NotEmpty(t, roomID)

	// When: the second participant follows the invite
	second := dial(t, ts)
	sendAction(t, second, actionCheckURL, CheckURLPayload{Room: roomID})

	// Then: both participants receive gameStart with the fixed first mover
	for _, conn := range []*gws.Conn{first, second} {
		message = readEvent(t, conn)
		require.Equal(t, "gameStart", message.Action)

		var start coordpkg.GameStartPayload
		require.NoError(t, json.Unmarshal(message.Payload, &start))
		assert.Equal(t, roomID, start.Room)
		assert.Equal(t, "X", start.Turn)
	}

	// When: the first participant relays a turn
	board := json.RawMessage(`["X","","","","","","","",""]`)
	sendAction(t, first, actionSendTurnData, TurnDataPayload{Board: board, NextTurn: "O"})

	// Then: both participants observe the identical turn data
	for _, conn := range []*gws.Conn{first, second} {
		message = readEvent(t, conn)
		require.Equal(t, "getTurnData", message.Action)

		var turn TurnDataPayload
		require.NoError(t, json.Unmarshal(message.Payload, &turn))
		assert.JSONEq(t, string(board), string(turn.Board))
		assert.Equal(t, "O", turn.NextTurn)
	}

	// When: the second participant disconnects
	require.NoError(t, second.Close())

	// Then: the remaining participant is told the opponent left
	message = readEvent(t, first)
	require.Equal(t, "playerLeft", message.Action)

	var left coordpkg.PlayerLeftPayload
	require.NoError(t, json.Unmarshal(message.Payload, &left))
	assert.NotEmpty(t, left.Message)

	// Then: re-checking the same room yields an invite again, not a ready signal
	sendAction(t, first, actionCheckURL, CheckURLPayload{Room: roomID})

	message = readEvent(t, first)
	require.Equal(t, "inviteLink", message.Action)
}

func TestServer_UnknownRoomYieldsInvite(t *testing.T) {
	ts := newTestServer(t)

	// Given: a participant asking for a room nobody opened
	conn := dial(t, ts)
	sendAction(t, conn, actionCheckURL, CheckURLPayload{Room: "no-such-room"})

	// Then: it is offered its own room instead
	message := readEvent(t, conn)
	require.Equal(t, "inviteLink", message.Action)

	var invite coordpkg.InviteLinkPayload
	require.NoError(t, json.Unmarshal(message.Payload, &invite))
	assert.True(t, strings.HasPrefix(invite.URL, testOrigin+"/"))
	assert.NotEqual(t, testOrigin+"/no-such-room", invite.URL)
}

func TestServer_UnknownActionIsIgnored(t *testing.T) {
	ts := newTestServer(t)

	conn := dial(t, ts)

	// When: the client sends an action the server does not know
	sendAction(t, conn, "teleport", struct{}{})

	// Then: the connection survives and keeps working
	sendAction(t, conn, actionCheckURL, CheckURLPayload{Room: ""})

	message := readEvent(t, conn)
	require.Equal(t, "inviteLink", message.Action)
}
