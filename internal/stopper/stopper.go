package stopper

import (
	"sync"
)

func New() *Stopper {
	return &Stopper{
		stopping: make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Stopper tracks in-flight operations so a shutdown can wait for them to
// finish. Unlike a bare WaitGroup it tolerates Add racing Wait, and Add
// stops admitting once Stop has been called.
type Stopper struct {
	mu  sync.Mutex
	cnt int32

	stoppedOnce sync.Once

	stopping chan struct{}
	stopped  chan struct{}
}

// Add registers one in-flight operation. It reports whether the operation
// was admitted: once Stop has been called it returns false and the counter
// is left untouched, so the caller must not call Done for it.
func (s *Stopper) Add() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.stopping:
		return false

	default:
	}

	s.cnt++
	return true
}

// Done marks one admitted operation as finished.
func (s *Stopper) Done() {
	s.mu.Lock()

	if s.cnt <= 0 {
		s.mu.Unlock()

		return
	}

	s.cnt--

	s.mu.Unlock()

	s.checkIfStopped()
}

// Count returns the number of admitted operations not yet done.
func (s *Stopper) Count() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cnt
}

func (s *Stopper) checkIfStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cnt <= 0 {
		select {
		case <-s.stopping:
			s.stoppedOnce.Do(func() { close(s.stopped) })

		default:
		}
	}
}

// Stop rejects further Add calls. The stopped state is reached once every
// admitted operation has called Done. Safe to call more than once.
func (s *Stopper) Stop() {
	s.mu.Lock()

	select {
	case <-s.stopping:
	default:
		close(s.stopping)
	}

	s.mu.Unlock()

	s.checkIfStopped()
}

// Stopping indicates that Stop has been called.
func (s *Stopper) Stopping() bool {
	select {
	case <-s.stopping:
		return true
	default:
		return false
	}
}

// Stopped indicates that Stop has been called and every admitted operation
// has finished.
func (s *Stopper) Stopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

// Wait blocks until the stopped state is reached.
func (s *Stopper) Wait() {
	<-s.stopped
}
