package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// scriptedServer upgrades connections and answers pings; text_message
// frames get a text reply, one binary chunk, and a complete frame.
func scriptedServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame map[string]interface{}
			if err := json.Unmarshal(payload, &frame); err != nil {
				continue
			}
			switch frame["type"] {
			case "ping":
				conn.WriteJSON(map[string]string{"type": "pong"})
			case "text_message":
				conn.WriteJSON(map[string]string{"type": "text", "content": "Hello"})
				conn.WriteMessage(websocket.BinaryMessage, []byte{9, 8, 7})
				conn.WriteJSON(map[string]string{"type": "complete"})
			}
		}
	}))
	return server, "ws" + strings.TrimPrefix(server.URL, "http")
}

func fastOptions() Options {
	return Options{
		PingInterval:   50 * time.Millisecond,
		PongTimeout:    time.Second,
		ReconnectDelay: 10 * time.Millisecond,
		MaxReconnects:  2,
	}
}

func waitForState(t *testing.T, s *Session, want ConnectionState) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for state %q, still %q", want, s.State())
}

func TestSessionConnectAndHeartbeat(t *testing.T) {
	server, wsURL := scriptedServer(t)
	defer server.Close()

	session := NewSession(wsURL, fastOptions(), Handlers{}, zaptest.NewLogger(t))
	defer session.Disconnect()

	session.Connect()
	waitForState(t, session, StateConnected)

	// The heartbeat runs a few rounds without killing the connection.
	time.Sleep(250 * time.Millisecond)
	if session.State() != StateConnected {
		t.Errorf("Expected session to stay connected, got %q", session.State())
	}
}

func TestSessionConnectIsNoOpWhileConnected(t *testing.T) {
	server, wsURL := scriptedServer(t)
	defer server.Close()

	session := NewSession(wsURL, fastOptions(), Handlers{}, zaptest.NewLogger(t))
	defer session.Disconnect()

	session.Connect()
	waitForState(t, session, StateConnected)

	session.Connect()
	time.Sleep(50 * time.Millisecond)
	if session.State() != StateConnected {
		t.Errorf("Expected connected after redundant Connect, got %q", session.State())
	}
}

func TestSessionSendBeforeConnect(t *testing.T) {
	session := NewSession("ws://localhost:0", fastOptions(), Handlers{}, zaptest.NewLogger(t))
	if session.Send(map[string]string{"type": "ping"}) {
		t.Error("Expected Send to fail while disconnected")
	}
}

func TestSessionTextBinaryComplete(t *testing.T) {
	server, wsURL := scriptedServer(t)
	defer server.Close()

	var mu sync.Mutex
	var texts []string
	var binaries [][]byte
	complete := make(chan struct{}, 1)

	handlers := Handlers{
		OnText: func(content string) {
			mu.Lock()
			texts = append(texts, content)
			mu.Unlock()
		},
		OnBinary: func(data []byte) {
			mu.Lock()
			binaries = append(binaries, append([]byte(nil), data...))
			mu.Unlock()
		},
		OnComplete: func() {
			complete <- struct{}{}
		},
	}

	session := NewSession(wsURL, fastOptions(), handlers, zaptest.NewLogger(t))
	defer session.Disconnect()

	session.Connect()
	waitForState(t, session, StateConnected)

	if !session.Send(map[string]interface{}{"type": "text_message", "text": "hi", "role": "user"}) {
		t.Fatal("Send failed while connected")
	}

	select {
	case <-complete:
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for complete frame")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(texts) != 1 || texts[0] != "Hello" {
		t.Errorf("Unexpected texts: %v", texts)
	}
	if len(binaries) != 1 || string(binaries[0]) != string([]byte{9, 8, 7}) {
		t.Errorf("Binary frame not forwarded verbatim: %v", binaries)
	}
}

func TestSessionReconnectExhaustsThenManualResume(t *testing.T) {
	var dials int64
	var accept int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&dials, 1)
		if atomic.LoadInt64(&accept) == 0 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	session := NewSession(wsURL, fastOptions(), Handlers{}, zaptest.NewLogger(t))
	defer session.Disconnect()

	session.Connect()
	waitForState(t, session, StateError)

	// Initial attempt plus MaxReconnects retries, then no silent retrying.
	got := atomic.LoadInt64(&dials)
	if got != 3 {
		t.Errorf("Expected 3 dial attempts, got %d", got)
	}
	time.Sleep(100 * time.Millisecond)
	if after := atomic.LoadInt64(&dials); after != got {
		t.Errorf("Session kept retrying after error state: %d dials", after)
	}

	// A manual Connect resumes.
	atomic.StoreInt64(&accept, 1)
	session.Connect()
	waitForState(t, session, StateConnected)
}

func TestSessionUnknownFrameDropped(t *testing.T) {
	received := make(chan string, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteJSON(map[string]string{"type": "mystery"})
		conn.WriteJSON(map[string]string{"type": "text", "content": "still here"})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	handlers := Handlers{
		OnText: func(content string) { received <- content },
	}
	session := NewSession(wsURL, fastOptions(), handlers, zaptest.NewLogger(t))
	defer session.Disconnect()

	session.Connect()

	select {
	case content := <-received:
		if content != "still here" {
			t.Errorf("Unexpected content %q", content)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Session did not survive the unknown frame")
	}
}

func TestSessionDisconnectIdempotent(t *testing.T) {
	server, wsURL := scriptedServer(t)
	defer server.Close()

	session := NewSession(wsURL, fastOptions(), Handlers{}, zaptest.NewLogger(t))
	session.Connect()
	waitForState(t, session, StateConnected)

	session.Disconnect()
	session.Disconnect()

	if session.State() != StateDisconnected {
		t.Errorf("Expected disconnected, got %q", session.State())
	}

	// No reconnect sneaks in after a deliberate disconnect.
	time.Sleep(100 * time.Millisecond)
	if session.State() != StateDisconnected {
		t.Errorf("Session reconnected after Disconnect: %q", session.State())
	}
}

func TestSessionClientIDInURL(t *testing.T) {
	gotPath := make(chan string, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath <- r.URL.Path
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	session := NewSession(wsURL, fastOptions(), Handlers{}, zaptest.NewLogger(t))
	defer session.Disconnect()
	session.Connect()

	select {
	case path := <-gotPath:
		want := "/ws/" + session.ClientID()
		if path != want {
			t.Errorf("Expected path %q, got %q", want, path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Server never saw the dial")
	}
}
