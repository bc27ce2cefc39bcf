package ws_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communitychat/internal/ws"
)

// registerClient upgrades one server-side connection and registers it with
// the hub, returning the client end.
func registerClient(t *testing.T, hub *ws.Hub, userID string) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	registered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(userID, conn)
		close(registered)
		// Hold the connection open for the duration of the test.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("connection was never registered")
	}
	return conn
}

func TestBroadcastAllConcurrentWriters(t *testing.T) {
	hub := ws.NewHub(&fakeProfiles{})
	client := registerClient(t, hub, "u1")

	// Several goroutines broadcasting to one connection at once; writes
	// must be serialized or gorilla/websocket panics.
	const writers = 4
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				hub.BroadcastAll(map[string]any{"type": "presence_state", "seq": i})
			}
		}()
	}
	wg.Wait()

	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	for i := 0; i < writers*perWriter; i++ {
		var event map[string]any
		require.NoError(t, client.ReadJSON(&event))
		assert.Equal(t, "presence_state", event["type"])
	}
}

func TestBroadcastToUsersTargetsOnlyListedUsers(t *testing.T) {
	hub := ws.NewHub(&fakeProfiles{})
	alice := registerClient(t, hub, "alice")
	bob := registerClient(t, hub, "bob")

	hub.BroadcastToUsers([]string{"alice"}, map[string]any{"type": "channel_update"})

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event map[string]any
	require.NoError(t, alice.ReadJSON(&event))
	assert.Equal(t, "channel_update", event["type"])

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var stray map[string]any
	assert.Error(t, bob.ReadJSON(&stray))
}

func TestSendAfterUnregisterIsNoop(t *testing.T) {
	hub := ws.NewHub(&fakeProfiles{})
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	var serverConn *websocket.Conn
	ready := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConn = conn
		close(ready)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	<-ready

	hub.Register("u1", serverConn)
	hub.Unregister("u1", serverConn)

	// Unregistered connections are skipped rather than written to
	hub.Send(serverConn, map[string]any{"type": "error"})
	hub.BroadcastAll(map[string]any{"type": "presence_state"})

	require.NoError(t, client.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var event map[string]any
	assert.Error(t, client.ReadJSON(&event))
}
