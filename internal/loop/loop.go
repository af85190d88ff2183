package loop

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/schak04/eventual/internal/linkedbuffer"
)

// ErrClosed is returned by Enqueue once the loop has been closed.
var ErrClosed = errors.New("loop has been closed")

// Loop runs queued callbacks one at a time on a single background goroutine,
// preserving enqueue order across concurrent producers. It is the single
// logical thread all settlement callbacks are delivered on.
type Loop struct {
	queue     *linkedbuffer.LinkedBuffer[func()]
	wake      chan struct{}
	batchSize int
	closed    atomic.Bool
	closeOnce sync.Once
	waitGroup sync.WaitGroup
}

// New creates a loop that drains queued callbacks in batches of up to
// batchSize and starts its goroutine immediately.
func New(batchSize int) *Loop {
	if batchSize <= 0 {
		panic(errors.New("batch size must be greater than zero"))
	}

	l := &Loop{
		queue:     linkedbuffer.New[func()](batchSize, 10*batchSize),
		wake:      make(chan struct{}, 1),
		batchSize: batchSize,
	}

	l.waitGroup.Add(1)
	go l.run()

	return l
}

// Enqueue schedules fn to run on the loop goroutine, after every callback
// enqueued before it. It never blocks. Once the loop is closed it returns
// ErrClosed and fn is dropped.
func (l *Loop) Enqueue(fn func()) error {
	if l.closed.Load() {
		return ErrClosed
	}

	l.queue.Push(fn)

	// Wake up the loop goroutine if it is idle
	select {
	case l.wake <- struct{}{}:
	default:
	}

	return nil
}

// Len returns the number of callbacks waiting to run.
func (l *Loop) Len() uint64 {
	return l.queue.Len()
}

// Close stops the loop. Callbacks already enqueued still run; subsequent
// Enqueue calls fail with ErrClosed. It can be called more than once.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		select {
		case l.wake <- struct{}{}:
		default:
		}
	})
}

// CloseAndWait closes the loop and blocks until the callbacks already
// enqueued have run.
func (l *Loop) CloseAndWait() {
	l.Close()
	l.waitGroup.Wait()
}

func (l *Loop) run() {
	defer l.waitGroup.Done()

	batch := make([]func(), l.batchSize)

	for {
		<-l.wake

		// Read the flag before draining so callbacks enqueued up to the
		// closing wake-up are still delivered
		stopping := l.closed.Load()

		for {
			n := l.queue.PopBatch(batch)
			if n == 0 {
				break
			}
			for i, fn := range batch[:n] {
				fn()
				batch[i] = nil
			}
		}

		if stopping {
			return
		}
	}
}
