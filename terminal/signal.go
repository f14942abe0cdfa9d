package terminal

import "sync"

// StopSignal is the one coordination primitive between the session's
// loops and the outside world. It transitions unset→set exactly once;
// Trigger is idempotent and safe from any goroutine, including OS
// signal handlers. It never resets.
type StopSignal struct {
	once sync.Once
	done chan struct{}
}

func NewStopSignal() *StopSignal {
	return &StopSignal{done: make(chan struct{})}
}

// Trigger sets the signal. Later calls are no-ops.
func (s *StopSignal) Trigger() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Stopped reports whether the signal is set. Non-blocking.
func (s *StopSignal) Stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the signal is set, for select-based
// waiters.
func (s *StopSignal) Done() <-chan struct{} {
	return s.done
}
