package chat_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tokencast/services/chat"
)

// dialFeed connects a websocket client through a test server that registers
// the accepted connection with the hub, mirroring the handler wiring. It
// returns the client side and the registered server side.
func dialFeed(t *testing.T, hub *chat.Hub, streamID string) (*websocket.Conn, *websocket.Conn) {
	t.Helper()

	accepted := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		hub.Register(streamID, conn)
		accepted <- conn
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	select {
	case serverConn := <-accepted:
		return client, serverConn
	case <-time.After(2 * time.Second):
		t.Fatalf("server never accepted the connection")
		return nil, nil
	}
}

func TestHubBroadcastReachesStreamSubscribers(t *testing.T) {
	hub := chat.NewHub()

	subscribed, _ := dialFeed(t, hub, "stream-1")
	other, _ := dialFeed(t, hub, "stream-2")

	if got := hub.SubscriberCount("stream-1"); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	hub.Broadcast("stream-1", chat.Event{Type: "clear"})

	subscribed.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event chat.Event
	if err := subscribed.ReadJSON(&event); err != nil {
		t.Fatalf("subscriber read failed: %v", err)
	}
	if event.Type != "clear" {
		t.Fatalf("expected clear event, got %q", event.Type)
	}

	// The other stream's feed stays quiet.
	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if err := other.ReadJSON(&event); err == nil {
		t.Fatalf("expected no event on the other stream's feed, got %+v", event)
	}
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub := chat.NewHub()
	client, serverConn := dialFeed(t, hub, "stream-1")

	hub.Unregister("stream-1", serverConn)
	if got := hub.SubscriberCount("stream-1"); got != 0 {
		t.Fatalf("expected 0 subscribers after unregister, got %d", got)
	}

	hub.Broadcast("stream-1", chat.Event{Type: "message"})

	client.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var event chat.Event
	if err := client.ReadJSON(&event); err == nil {
		t.Fatalf("expected no delivery after unregister, got %+v", event)
	}
}
