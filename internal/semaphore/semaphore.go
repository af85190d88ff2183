package semaphore

import (
	"container/list"
	"context"
	"errors"
	"sync"
)

// Semaphore is a FIFO counting semaphore over unit permits. It bounds how
// many operations may be in flight at once.
type Semaphore struct {
	mutex    sync.Mutex
	waiters  list.List
	size     int
	acquired int
}

func New(size int) *Semaphore {
	return &Semaphore{
		size: size,
	}
}

// Acquire takes one permit, blocking behind earlier waiters until one is
// available or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	done := ctx.Done()

	// Prioritize context cancellation
	select {
	case <-done:
		return ctx.Err()
	default:
	}

	s.mutex.Lock()

	// Take a permit immediately if nobody is queued ahead of us
	if s.waiters.Len() == 0 && s.acquired < s.size {
		s.acquired++
		s.mutex.Unlock()
		return nil
	}

	// Wait for a permit to be released
	ready := make(chan struct{})
	elem := s.waiters.PushBack(ready)
	s.mutex.Unlock()

	select {
	case <-done:
		select {
		case <-ready:
			// Acquired a permit after we were canceled.
			// Pretend we didn't and put it back.
			s.Release()
		default:
			// We were canceled before acquiring a permit.
			s.mutex.Lock()
			isFront := s.waiters.Front() == elem
			s.waiters.Remove(elem)
			// If we were at the front and permits are left, notify other waiters.
			if isFront && s.acquired < s.size {
				s.notifyWaiters()
			}
			s.mutex.Unlock()
		}
		return ctx.Err()
	case <-ready:
		// Acquired a permit. Check that ctx isn't already done.
		// We check the done channel instead of calling ctx.Err because we
		// already have the channel, and ctx.Err is O(n) with the nesting
		// depth of ctx.
		select {
		case <-done:
			s.Release()
			return ctx.Err()
		default:
		}
		return nil
	}
}

// TryAcquire takes one permit without blocking and reports whether it did.
func (s *Semaphore) TryAcquire() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.waiters.Len() == 0 && s.acquired < s.size {
		s.acquired++
		return true
	}

	return false
}

// Release puts one permit back and hands it to the longest-blocked waiter,
// if any. It panics if called more times than Acquire succeeded.
func (s *Semaphore) Release() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.acquired <= 0 {
		panic(errors.New("semaphore: released more permits than acquired"))
	}

	s.acquired--

	s.notifyWaiters()
}

func (s *Semaphore) notifyWaiters() {
	for s.acquired < s.size {
		next := s.waiters.Front()
		if next == nil {
			break // No more waiters blocked.
		}

		s.acquired++
		s.waiters.Remove(next)
		close(next.Value.(chan struct{}))
	}
}

func (s *Semaphore) Size() int {
	return s.size
}

func (s *Semaphore) Acquired() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.acquired
}

func (s *Semaphore) Available() int {
	return s.Size() - s.Acquired()
}
