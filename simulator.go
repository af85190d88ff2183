package eventual

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"

	"github.com/schak04/eventual/internal/future"
	"github.com/schak04/eventual/internal/loop"
	"github.com/schak04/eventual/internal/semaphore"
	"github.com/schak04/eventual/internal/stopper"
)

// ErrSimulatorStopped is the cancellation cause of operations that were
// still pending when their simulator was stopped, and the error observed by
// waiters of operations requested after that.
var ErrSimulatorStopped = errors.New("simulator stopped")

// loopBatchSize is the number of queued callbacks the loop drains per pass.
const loopBatchSize = 64

// Simulator produces operations that settle after a delay with either the
// configured success value or the configured failure reason, according to
// the flag passed to Simulate. One simulator drives any number of concurrent
// operations; their settlement callbacks all run, one at a time, on its
// callback loop.
type Simulator[V any] struct {
	ctx           context.Context
	clock         Clock
	delay         time.Duration
	successValue  V
	failureReason error
	logger        *logiface.Logger[logiface.Event]

	loop    *loop.Loop
	tracker *stopper.Stopper
	pending *semaphore.Semaphore

	ids Counter

	mutex      sync.Mutex
	operations map[int64]*Operation[V]

	scheduledCount atomic.Uint64
	succeededCount atomic.Uint64
	failedCount    atomic.Uint64
	canceledCount  atomic.Uint64

	stopOnce sync.Once
}

// NewSimulator creates the stock string simulator: operations settle after
// one second, with "Data loaded!" on success and the reason "Fetch failed."
// on failure, scheduled on the system clock.
func NewSimulator(options ...Option) *Simulator[string] {
	return NewValueSimulator(DefaultSuccessValue, options...)
}

// NewValueSimulator creates a simulator whose operations carry successValue
// on success. The failure reason defaults to ErrFetchFailed and the delay to
// DefaultDelay; options override them.
func NewValueSimulator[V any](successValue V, options ...Option) *Simulator[V] {
	config := defaultConfig()
	for _, option := range options {
		option(&config)
	}

	s := &Simulator[V]{
		ctx:           config.ctx,
		clock:         config.clock,
		delay:         config.delay,
		successValue:  successValue,
		failureReason: config.failureReason,
		logger:        config.logger,
		tracker:       stopper.New(),
		operations:    make(map[int64]*Operation[V]),
	}

	if config.maxPending > 0 {
		s.pending = semaphore.New(config.maxPending)
	}

	s.loop = loop.New(loopBatchSize)

	return s
}

// Simulate schedules one operation with the simulator's configured delay.
// Once the delay elapses the operation settles, successfully if succeeds is
// true and with the failure reason otherwise. The flag is captured here and
// never re-read. Calling Simulate on a stopped simulator returns an
// operation that is already cancelled with ErrSimulatorStopped.
func (s *Simulator[V]) Simulate(succeeds bool) *Operation[V] {
	return s.SimulateAfter(succeeds, s.delay)
}

// SimulateAfter is Simulate with a per-operation delay. It panics with
// ErrNegativeDelay, before scheduling anything, if delay is negative. When
// the simulator was built with WithMaxPending it blocks until a slot is
// free.
func (s *Simulator[V]) SimulateAfter(succeeds bool, delay time.Duration) *Operation[V] {
	if delay < 0 {
		panic(ErrNegativeDelay)
	}

	if s.pending != nil {
		if err := s.pending.Acquire(s.ctx); err != nil {
			return s.rejected(err)
		}
	}

	op, _ := s.schedule(succeeds, delay)
	return op
}

// TrySimulate schedules like Simulate but never blocks: it reports false
// when the simulator is stopped, or when WithMaxPending is set and no slot
// is free.
func (s *Simulator[V]) TrySimulate(succeeds bool) (*Operation[V], bool) {
	if s.tracker.Stopping() {
		return nil, false
	}

	if s.pending != nil && !s.pending.TryAcquire() {
		return nil, false
	}

	op, scheduled := s.schedule(succeeds, s.delay)
	if !scheduled {
		return nil, false
	}
	return op, true
}

// schedule registers and starts one operation. It reports false, returning
// an already-cancelled operation, when the simulator no longer admits work.
// The caller has already acquired a pending slot if the simulator has a
// limit.
func (s *Simulator[V]) schedule(succeeds bool, delay time.Duration) (*Operation[V], bool) {
	if !s.tracker.Add() {
		if s.pending != nil {
			s.pending.Release()
		}
		return s.rejected(ErrSimulatorStopped), false
	}

	id := s.ids.Increment()

	op := &Operation[V]{
		id:     id,
		clock:  s.clock,
		fut:    future.NewValueFuture[V](s.ctx),
		loop:   s.loop,
		finish: s.finalize,
	}

	s.mutex.Lock()
	s.operations[id] = op
	s.mutex.Unlock()

	s.scheduledCount.Add(1)
	s.logger.Debug().
		Int64("op", id).
		Bool("succeeds", succeeds).
		Dur("delay", delay).
		Log("operation scheduled")

	// Watch the parent context so external cancellation still releases the
	// operation's bookkeeping.
	stopWatch := context.AfterFunc(s.ctx, op.onCompleted)

	t := s.clock.ScheduleOnce(delay, func() {
		if succeeds {
			op.settle(s.successValue, nil)
		} else {
			var zero V
			op.settle(zero, s.failureReason)
		}
	})

	op.mutex.Lock()
	if op.fut.Completed() {
		// Completed before the handles could be recorded; release them here
		op.mutex.Unlock()
		t.Cancel()
		stopWatch()
	} else {
		op.timer = t
		op.stopWatch = stopWatch
		op.mutex.Unlock()
	}

	return op, true
}

// rejected builds an operation that was cancelled at birth with the given
// cause. It is what callers get after the simulator stopped.
func (s *Simulator[V]) rejected(cause error) *Operation[V] {
	op := &Operation[V]{
		clock: s.clock,
		fut:   future.NewValueFuture[V](context.Background()),
		loop:  s.loop,
	}
	op.abort(cause)
	return op
}

// finalize runs exactly once per admitted operation, after it completes by
// any means. It settles the simulator-side bookkeeping. The operation leaves
// the registry last, so observers that saw it gone also see its counters.
func (s *Simulator[V]) finalize(op *Operation[V]) {
	_, reason, settled := op.fut.Peek()
	switch {
	case !settled:
		s.canceledCount.Add(1)
		s.logger.Debug().
			Int64("op", op.id).
			Log("operation canceled")
	case reason != nil:
		s.failedCount.Add(1)
		s.logger.Debug().
			Int64("op", op.id).
			Str("outcome", OutcomeFailure.String()).
			Err(reason).
			Log("operation settled")
	default:
		s.succeededCount.Add(1)
		s.logger.Debug().
			Int64("op", op.id).
			Str("outcome", OutcomeSuccess.String()).
			Log("operation settled")
	}

	s.mutex.Lock()
	delete(s.operations, op.id)
	s.mutex.Unlock()

	if s.pending != nil {
		s.pending.Release()
	}

	s.tracker.Done()
}

// Stop rejects new operations, cancels every operation still pending with
// ErrSimulatorStopped and shuts down the callback loop once the callbacks
// already queued have run. It is safe to call more than once and must not be
// called from a settlement callback.
func (s *Simulator[V]) Stop() {
	s.stopOnce.Do(func() {
		s.tracker.Stop()

		s.logger.Debug().
			Int("pending", int(s.tracker.Count())).
			Log("simulator stopping")

		for _, op := range s.snapshot() {
			op.abort(ErrSimulatorStopped)
		}

		s.tracker.Wait()
		s.loop.CloseAndWait()

		s.logger.Debug().Log("simulator stopped")
	})
}

// StopAndWait rejects new operations and blocks until the operations already
// in flight settle or get cancelled on their own, then shuts down the
// callback loop. Under a ManualClock someone must keep advancing the clock
// or the wait never ends.
func (s *Simulator[V]) StopAndWait() {
	s.tracker.Stop()
	s.tracker.Wait()
	s.Stop()
}

func (s *Simulator[V]) snapshot() []*Operation[V] {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ops := make([]*Operation[V], 0, len(s.operations))
	for _, op := range s.operations {
		ops = append(ops, op)
	}
	return ops
}

// Stopped reports whether the simulator no longer admits operations.
func (s *Simulator[V]) Stopped() bool {
	return s.tracker.Stopping()
}

// Context returns the parent context operations are bound to.
func (s *Simulator[V]) Context() context.Context {
	return s.ctx
}

// ScheduledOperations returns the number of operations admitted since the
// simulator was created.
func (s *Simulator[V]) ScheduledOperations() uint64 {
	return s.scheduledCount.Load()
}

// SucceededOperations returns the number of operations that settled with the
// success value.
func (s *Simulator[V]) SucceededOperations() uint64 {
	return s.succeededCount.Load()
}

// FailedOperations returns the number of operations that settled with the
// failure reason.
func (s *Simulator[V]) FailedOperations() uint64 {
	return s.failedCount.Load()
}

// CanceledOperations returns the number of operations cancelled before
// settlement, including those cancelled by Stop.
func (s *Simulator[V]) CanceledOperations() uint64 {
	return s.canceledCount.Load()
}

// PendingOperations returns the number of operations currently awaiting
// settlement.
func (s *Simulator[V]) PendingOperations() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.operations)
}
