package notify

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-courier/internal/database"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dialHub(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()

	server := httptest.NewServer(hub)
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func TestHubGreetsNewClient(t *testing.T) {
	hub := NewHub(testLogger())

	conn, cleanup := dialHub(t, hub)
	defer cleanup()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "connected", msg.Type)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHubBroadcastsNewCode(t *testing.T) {
	hub := NewHub(testLogger())

	conn, cleanup := dialHub(t, hub)
	defer cleanup()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var greeting Message
	require.NoError(t, conn.ReadJSON(&greeting))

	hub.NotifyNewCode(&database.VerificationCode{
		ID:      7,
		OwnerID: "owner-1",
		Code:    "794945",
		Airline: "LATAM",
	})

	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "new_code", msg.Type)

	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "794945", data["code"])
	assert.Equal(t, "LATAM", data["airline"])
}

func TestHubDropsDisconnectedClient(t *testing.T) {
	hub := NewHub(testLogger())

	conn, cleanup := dialHub(t, hub)
	defer cleanup()
	assert.Equal(t, 1, hub.ClientCount())

	conn.Close()

	// the read loop notices the close shortly after
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, hub.ClientCount())

	// broadcasting to an empty hub is a no-op
	hub.NotifyNewCode(&database.VerificationCode{Code: "483920"})
}

func TestHubClose(t *testing.T) {
	hub := NewHub(testLogger())

	_, cleanup := dialHub(t, hub)
	defer cleanup()

	hub.Close()
	assert.Equal(t, 0, hub.ClientCount())
}
