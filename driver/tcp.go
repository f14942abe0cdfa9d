package driver

import (
	"fmt"
	"io"
	"net"
	"time"
)

const tcpDialTimeout = 5 * time.Second

// tcpConn adapts a TCP connection to the timed-read transport
// convention, for serial-over-TCP devices.
type tcpConn struct {
	conn    net.Conn
	timeout time.Duration
}

func openTCP(address string, cfg Config) (io.ReadWriteCloser, error) {
	conn, err := net.DialTimeout("tcp", address, tcpDialTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	return &tcpConn{conn: conn, timeout: cfg.ReadTimeout}, nil
}

func (t *tcpConn) Read(p []byte) (int, error) {
	t.conn.SetReadDeadline(time.Now().Add(t.timeout))
	n, err := t.conn.Read(p)

	// a deadline expiry is a quiet timeout, not an error
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return n, nil
	}
	return n, err
}

func (t *tcpConn) Write(p []byte) (int, error) {
	return t.conn.Write(p)
}

func (t *tcpConn) Close() error {
	return t.conn.Close()
}
