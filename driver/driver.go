// Package driver opens and abstracts the device end of a session: a
// physical serial port, or a network-attached device reached over
// tcp:// or ws://.
package driver

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Pairman/Commander/logger"
	"go.uber.org/zap"
)

// Port is the open device handle a terminal session drives. The receive
// side calls ReadLine, the send side calls Write; each direction belongs
// to exactly one caller, so the handle itself needs no locking.
type Port interface {
	// Buffered reports bytes already received from the device that
	// ReadLine has not yet returned. Non-blocking.
	Buffered() int
	// ReadLine returns the next complete line including its terminator,
	// waiting at most one read-timeout interval for more data. A line
	// left unterminated once the link goes quiet for a full interval is
	// returned as-is. A quiet interval with nothing buffered returns
	// (nil, nil). Never returns an empty non-nil line.
	ReadLine() ([]byte, error)
	Write(p []byte) (int, error)
	Close() error
}

// Config carries the link parameters for Open. Zero values fall back to
// 9600 baud, 8N1, 100ms read timeout.
type Config struct {
	BaudRate    int
	DataBits    int
	Parity      string // none, odd, even, mark, space
	StopBits    int    // 1 or 2
	ReadTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaudRate <= 0 {
		c.BaudRate = 9600
	}
	if c.DataBits == 0 {
		c.DataBits = 8
	}
	if c.Parity == "" {
		c.Parity = "none"
	}
	if c.StopBits == 0 {
		c.StopBits = 1
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 100 * time.Millisecond
	}
	return c
}

// Open opens a port by name. "tcp://host:port" and "ws://host/path"
// (or wss://) select the network transports; anything else is treated
// as an OS serial device name such as COM3 or /dev/ttyUSB0.
func Open(name string, cfg Config) (Port, error) {
	cfg = cfg.withDefaults()

	var (
		conn io.ReadWriteCloser
		err  error
	)
	switch {
	case strings.HasPrefix(name, "tcp://"):
		conn, err = openTCP(strings.TrimPrefix(name, "tcp://"), cfg)
	case strings.HasPrefix(name, "ws://"), strings.HasPrefix(name, "wss://"):
		conn, err = openWS(name, cfg)
	default:
		conn, err = openSerial(name, cfg)
	}
	if err != nil {
		return nil, err
	}

	logger.L().Info("port opened",
		zap.String("port", name),
		zap.Int("baudrate", cfg.BaudRate),
		zap.Duration("read_timeout", cfg.ReadTimeout))
	return newLinePort(conn), nil
}

const (
	readChunk      = 4096
	flushThreshold = 4096
)

// linePort assembles the timed chunk reads of a transport into lines.
// Every transport underneath follows one convention: Read blocks for at
// most the configured timeout and returns (0, nil) when it expires with
// no data.
type linePort struct {
	conn io.ReadWriteCloser

	mu   sync.Mutex
	buf  []byte
	rbuf []byte

	closeOnce sync.Once
	closeErr  error
}

var _ Port = (*linePort)(nil)

func newLinePort(conn io.ReadWriteCloser) *linePort {
	return &linePort{conn: conn, rbuf: make([]byte, readChunk)}
}

func (p *linePort) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf)
}

func (p *linePort) ReadLine() ([]byte, error) {
	if line := p.takeLine(); line != nil {
		return line, nil
	}

	// at most one timed device read per call, so callers regain control
	// within one timeout interval
	n, err := p.conn.Read(p.rbuf)
	if n > 0 {
		p.mu.Lock()
		p.buf = append(p.buf, p.rbuf[:n]...)
		p.mu.Unlock()
	}
	if err != nil {
		// hand out what already arrived before surfacing the error
		if data := p.takeAll(); data != nil {
			return data, nil
		}
		return nil, err
	}
	if line := p.takeLine(); line != nil {
		return line, nil
	}
	if n == 0 {
		// the link stayed quiet for a full interval: flush a pending
		// partial line, or report the quiet timeout
		return p.takeAll(), nil
	}
	if p.Buffered() >= flushThreshold {
		// terminator-free stream: hand it out in bounded pieces
		return p.takeAll(), nil
	}
	return nil, nil
}

func (p *linePort) Write(b []byte) (int, error) {
	return p.conn.Write(b)
}

func (p *linePort) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.conn.Close()
	})
	return p.closeErr
}

// takeLine pops the first complete line, terminator included, or nil.
func (p *linePort) takeLine() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, c := range p.buf {
		if c == '\n' {
			end := i + 1
			line := p.buf[:end:end]
			p.buf = p.buf[end:]
			return line
		}
	}
	return nil
}

// takeAll pops everything buffered, or nil when empty.
func (p *linePort) takeAll() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.buf) == 0 {
		return nil
	}
	data := p.buf
	p.buf = nil
	return data
}
