// Package terminal runs the duplex half of the program: a receive loop
// streaming decoded port data to the display and a send loop forwarding
// encoded operator input to the port, both ended by one StopSignal.
package terminal

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Pairman/Commander/codec"
	"github.com/Pairman/Commander/driver"
	"github.com/Pairman/Commander/logger"
	"go.uber.org/zap"
)

// Prompt is the input marker redrawn under incoming data.
const Prompt = ">>> "

// State describes where a session is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Status is a point-in-time snapshot of a session.
type Status struct {
	State   State
	RxBytes int64
	TxBytes int64
}

// Config carries the session parameters. Input and Output default to
// stdin and stdout.
type Config struct {
	Mode        codec.Mode
	ReadTimeout time.Duration
	Input       io.Reader
	Output      io.Writer
	Logger      *zap.Logger
}

// Session owns an open port and drives the two loops over it. The
// receive side of the port belongs to the receive loop and the send
// side to the send loop, so the handle itself needs no locking; only
// display writes are serialized.
type Session struct {
	port driver.Port
	stop *StopSignal
	mode codec.Mode

	timeout time.Duration
	in      io.Reader
	out     io.Writer
	outMu   sync.Mutex
	log     *zap.Logger

	mu      sync.Mutex
	state   State
	rxBytes atomic.Int64
	txBytes atomic.Int64
}

// New builds a session around an open port. The session takes ownership
// of the port: Run closes it exactly once after both loops stop.
func New(port driver.Port, stop *StopSignal, cfg Config) *Session {
	if cfg.Input == nil {
		cfg.Input = os.Stdin
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 100 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.L()
	}
	return &Session{
		port:    port,
		stop:    stop,
		mode:    cfg.Mode,
		timeout: cfg.ReadTimeout,
		in:      cfg.Input,
		out:     cfg.Output,
		log:     cfg.Logger,
	}
}

// Status returns a snapshot of the session state and byte counters.
func (s *Session) Status() Status {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	return Status{
		State:   state,
		RxBytes: s.rxBytes.Load(),
		TxBytes: s.txBytes.Load(),
	}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run starts both loops, waits for both to observe the stop signal, and
// closes the port. It returns the port close error, if any.
func (s *Session) Run() error {
	s.setState(StateRunning)
	s.log.Info("session started",
		zap.Stringer("mode", s.mode),
		zap.Duration("read_timeout", s.timeout))

	lines := s.readInput()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.receiveLoop()
	}()
	go func() {
		defer wg.Done()
		s.sendLoop(lines)
	}()
	wg.Wait()

	s.setState(StateStopped)
	err := s.port.Close()
	s.log.Info("session closed",
		zap.Int64("rx_bytes", s.rxBytes.Load()),
		zap.Int64("tx_bytes", s.txBytes.Load()),
		zap.Error(err))
	return err
}

// receiveLoop polls the port for inbound lines and prints them decoded,
// redrawing the prompt underneath. The timed ReadLine is the loop's
// yield: it returns within one timeout interval, so the stop signal is
// observed promptly and the send loop is never starved. Read errors are
// reported and survived; only the stop signal ends the loop.
func (s *Session) receiveLoop() {
	for !s.stop.Stopped() {
		data, err := s.port.ReadLine()
		if err != nil {
			s.printf("error while receiving: %v\n", err)
			s.log.Debug("port read failed", zap.Error(err))
			// pace the retry so a dead link does not spin the loop
			select {
			case <-s.stop.Done():
				return
			case <-time.After(s.timeout):
			}
			continue
		}
		if len(data) == 0 {
			continue
		}

		s.rxBytes.Add(int64(len(data)))
		display := data
		if s.mode == codec.ModeText {
			// the terminator is presentation in text mode; hex renders it
			display = bytes.TrimRight(data, "\r\n")
		}
		s.printf("\r%s\n%s", codec.Decode(display, s.mode), Prompt)
	}
}

// sendLoop prompts for operator input, encodes it, and writes it to the
// port. The select on the input channel suspends only this loop and is
// interrupted by the stop signal, so shutdown never waits for a final
// line of input.
func (s *Session) sendLoop(lines <-chan string) {
	var pending []byte
	for !s.stop.Stopped() {
		if len(pending) > 0 {
			if n, err := s.port.Write(pending); err != nil {
				s.printf("error while sending: %v\n", err)
				s.log.Debug("port write failed", zap.Error(err))
			} else {
				s.txBytes.Add(int64(n))
			}
			pending = nil
		}

		s.printf(Prompt)
		select {
		case line, ok := <-lines:
			if !ok {
				// stdin closed: normal stream termination
				s.stop.Trigger()
				return
			}
			data, err := codec.Encode(line, s.mode)
			if err != nil {
				var encErr *codec.EncodingError
				if errors.As(err, &encErr) {
					s.printf("invalid hex input: %v\n", err)
					continue
				}
				s.printf("error while sending: %v\n", err)
				continue
			}
			pending = data
		case <-s.stop.Done():
			return
		}
	}
}

// readInput feeds operator lines into a channel and closes it on EOF.
// The goroutine may stay parked in a blocking read until the process
// exits; shutdown does not wait for it.
func (s *Session) readInput() <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-s.stop.Done():
				return
			}
		}
	}()
	return lines
}

// printf serializes display writes so received lines and prompt redraws
// are not torn; ordering between the two loops stays best-effort.
func (s *Session) printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}
