package driver

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsDialTimeout = 5 * time.Second

// wsConn adapts a WebSocket endpoint to the timed-read transport
// convention. A background pump drains binary messages into a channel,
// so a quiet timeout never poisons the connection the way a read
// deadline on the websocket itself would.
type wsConn struct {
	conn    *websocket.Conn
	timeout time.Duration

	frames  chan []byte
	dead    chan struct{}
	readErr error
	pending []byte

	closed    chan struct{}
	closeOnce sync.Once
}

func openWS(rawURL string, cfg Config) (io.ReadWriteCloser, error) {
	dialer := websocket.Dialer{HandshakeTimeout: wsDialTimeout}
	conn, _, err := dialer.Dial(rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", rawURL, err)
	}

	w := &wsConn{
		conn:    conn,
		timeout: cfg.ReadTimeout,
		frames:  make(chan []byte, 8),
		dead:    make(chan struct{}),
		closed:  make(chan struct{}),
	}
	go w.readPump()
	return w, nil
}

func (w *wsConn) readPump() {
	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			w.readErr = err
			close(w.dead)
			return
		}
		select {
		case w.frames <- data:
		case <-w.closed:
			return
		}
	}
}

func (w *wsConn) Read(p []byte) (int, error) {
	if len(w.pending) == 0 {
		select {
		case data := <-w.frames:
			w.pending = data
		case <-w.dead:
			// drain frames the pump queued before it died
			select {
			case data := <-w.frames:
				w.pending = data
			default:
				return 0, w.readErr
			}
		case <-time.After(w.timeout):
			return 0, nil
		}
	}
	n := copy(p, w.pending)
	w.pending = w.pending[n:]
	return n, nil
}

func (w *wsConn) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsConn) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closed)
		err = w.conn.Close()
	})
	return err
}
