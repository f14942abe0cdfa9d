package driver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// startWSDevice runs a WebSocket endpoint standing in for a
// network-attached device and hands each connection to serve.
func startWSDevice(t *testing.T, serve func(*websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serve(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws://" + strings.TrimPrefix(srv.URL, "http://")
}

func readLineEventually(t *testing.T, port Port) []byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		line, err := port.ReadLine()
		require.NoError(t, err)
		if line != nil {
			return line
		}
	}
	t.Fatal("no line received")
	return nil
}

func TestOpenWSReadLine(t *testing.T) {
	url := startWSDevice(t, func(conn *websocket.Conn) {
		defer conn.Close()
		conn.WriteMessage(websocket.BinaryMessage, []byte("hello\n"))
		time.Sleep(100 * time.Millisecond)
	})

	port, err := Open(url, Config{ReadTimeout: 20 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { port.Close() })

	assert.Equal(t, []byte("hello\n"), readLineEventually(t, port))
}

func TestOpenWSLineAcrossMessages(t *testing.T) {
	// message boundaries are transport chunking, not line boundaries
	url := startWSDevice(t, func(conn *websocket.Conn) {
		defer conn.Close()
		conn.WriteMessage(websocket.BinaryMessage, []byte("hel"))
		conn.WriteMessage(websocket.BinaryMessage, []byte("lo\n"))
		time.Sleep(100 * time.Millisecond)
	})

	port, err := Open(url, Config{ReadTimeout: 20 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { port.Close() })

	assert.Equal(t, []byte("hello\n"), readLineEventually(t, port))
}

func TestOpenWSWrite(t *testing.T) {
	received := make(chan []byte, 1)
	url := startWSDevice(t, func(conn *websocket.Conn) {
		defer conn.Close()
		_, data, err := conn.ReadMessage()
		if err == nil {
			received <- data
		}
	})

	port, err := Open(url, Config{ReadTimeout: 20 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { port.Close() })

	n, err := port.Write([]byte{0xde, 0xad})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	select {
	case got := <-received:
		assert.Equal(t, []byte{0xde, 0xad}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("device never received the write")
	}
}

func TestOpenWSQuietTimeout(t *testing.T) {
	url := startWSDevice(t, func(conn *websocket.Conn) {
		time.Sleep(time.Second)
		conn.Close()
	})

	port, err := Open(url, Config{ReadTimeout: 10 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { port.Close() })

	line, err := port.ReadLine()
	require.NoError(t, err)
	assert.Nil(t, line)
}

func TestOpenWSPeerClose(t *testing.T) {
	url := startWSDevice(t, func(conn *websocket.Conn) {
		conn.Close()
	})

	port, err := Open(url, Config{ReadTimeout: 10 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { port.Close() })

	// once the peer is gone, reads surface the error instead of
	// reporting quiet timeouts forever
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := port.ReadLine(); err != nil {
			return
		}
	}
	t.Fatal("peer close never surfaced as a read error")
}

func TestOpenWSDialFailure(t *testing.T) {
	_, err := Open("ws://127.0.0.1:1/dev", Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to")
}
