package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/clearbrook/clinic-ops/pkg/logging"
)

func httpHandler(hub *Hub) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWebSocket)
	return mux
}

func dialHub(t *testing.T, srv *httptest.Server, room string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if room != "" {
		wsURL += "?room=" + room
	}
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForObservers(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectedCount("") != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d observers, have %d", want, hub.ConnectedCount(""))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func receiveEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, websocket.JSON.Receive(conn, &env))
	return env
}

func TestPublishReachesAllObservers(t *testing.T) {
	hub := NewHub(logging.New("error"), nil)
	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()

	a := dialHub(t, srv, "org-1")
	b := dialHub(t, srv, "org-2")
	waitForObservers(t, hub, 2)

	hub.Publish("newMessage", map[string]string{"body": "hello"})

	for _, conn := range []*websocket.Conn{a, b} {
		env := receiveEnvelope(t, conn)
		assert.Equal(t, "newMessage", env.Event)
	}
}

func TestPublishToRoomIsScoped(t *testing.T) {
	hub := NewHub(logging.New("error"), nil)
	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()

	inRoom := dialHub(t, srv, "org-1")
	outOfRoom := dialHub(t, srv, "org-2")
	waitForObservers(t, hub, 2)

	hub.PublishToRoom("org-1", "newMessage", map[string]string{"body": "scoped"})

	env := receiveEnvelope(t, inRoom)
	assert.Equal(t, "newMessage", env.Event)

	require.NoError(t, outOfRoom.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	var stray Envelope
	err := websocket.JSON.Receive(outOfRoom, &stray)
	assert.Error(t, err, "observer outside the room must not receive the event")
}

func TestPublishWithNoObserversIsNoOp(t *testing.T) {
	hub := NewHub(logging.New("error"), nil)
	hub.Publish("newMessage", map[string]string{"body": "nobody home"})
	assert.Equal(t, 0, hub.ConnectedCount(""))
}

func TestPingPong(t *testing.T) {
	hub := NewHub(logging.New("error"), nil)
	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()

	conn := dialHub(t, srv, "")
	waitForObservers(t, hub, 1)

	require.NoError(t, websocket.JSON.Send(conn, map[string]string{"type": "ping"}))
	env := receiveEnvelope(t, conn)
	assert.Equal(t, "pong", env.Event)
}

func TestDisconnectRemovesObserver(t *testing.T) {
	hub := NewHub(logging.New("error"), nil)
	srv := httptest.NewServer(httpHandler(hub))
	defer srv.Close()

	conn := dialHub(t, srv, "org-1")
	waitForObservers(t, hub, 1)
	assert.Equal(t, 1, hub.ConnectedCount("org-1"))

	require.NoError(t, conn.Close())
	waitForObservers(t, hub, 0)
}

func TestEnvelopeWireFormat(t *testing.T) {
	data, err := json.Marshal(Envelope{Event: "newMessage", Data: map[string]string{"k": "v"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"newMessage","data":{"k":"v"}}`, string(data))
}
