package driver

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// MockPort is an in-memory Port for tests: received bytes are scripted
// with Feed, sent bytes are captured for Written. An empty receive
// queue simulates a quiet link by pausing for the idle interval before
// reporting the timeout, so polling loops pace themselves the same way
// they would against a real timed read.
type MockPort struct {
	mu       sync.Mutex
	rx       bytes.Buffer
	tx       bytes.Buffer
	closed   bool
	idle     time.Duration
	readErr  error
	writeErr error
}

var _ Port = (*MockPort)(nil)

func NewMockPort() *MockPort {
	return &MockPort{idle: time.Millisecond}
}

// Feed queues bytes for ReadLine to return.
func (m *MockPort) Feed(p []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rx.Write(p)
}

// FeedString queues a string for ReadLine to return.
func (m *MockPort) FeedString(s string) {
	m.Feed([]byte(s))
}

// FailNextRead makes the next ReadLine call return err once.
func (m *MockPort) FailNextRead(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// FailWrites makes Write fail with err until called with nil.
func (m *MockPort) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Written returns a copy of everything written to the port so far.
func (m *MockPort) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.tx.Bytes()...)
}

// Closed reports whether Close has been called.
func (m *MockPort) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockPort) Buffered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rx.Len()
}

func (m *MockPort) ReadLine() ([]byte, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, io.EOF
	}
	if m.readErr != nil {
		err := m.readErr
		m.readErr = nil
		m.mu.Unlock()
		return nil, err
	}
	if line := m.takeLineLocked(); line != nil {
		m.mu.Unlock()
		return line, nil
	}
	m.mu.Unlock()

	// nothing terminated yet: wait out one idle interval like a timed
	// device read would
	time.Sleep(m.idle)

	m.mu.Lock()
	defer m.mu.Unlock()
	if line := m.takeLineLocked(); line != nil {
		return line, nil
	}
	if m.rx.Len() > 0 {
		// quiet link: flush the partial line
		data := append([]byte(nil), m.rx.Bytes()...)
		m.rx.Reset()
		return data, nil
	}
	return nil, nil
}

func (m *MockPort) takeLineLocked() []byte {
	data := m.rx.Bytes()
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return append([]byte(nil), m.rx.Next(i+1)...)
	}
	return nil
}

func (m *MockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, io.ErrClosedPipe
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	return m.tx.Write(p)
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
