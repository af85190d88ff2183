package eventual

import (
	"errors"
	"sync"
	"time"

	"github.com/schak04/eventual/internal/future"
	"github.com/schak04/eventual/internal/loop"
)

var (
	// ErrCanceled is the error observed by waiters of an operation that was
	// cancelled before it settled. It is never produced by a simulated
	// failure: failures carry the simulator's configured reason instead.
	ErrCanceled = errors.New("operation canceled before settlement")

	// ErrWaitTimeout is returned by WaitTimeout when the operation does not
	// settle in time. The operation itself keeps running.
	ErrWaitTimeout = errors.New("timed out waiting for operation to settle")
)

// State is the lifecycle position of an operation. Cancellation is not a
// settlement: a cancelled operation reports StatePending forever, and
// Canceled tells it apart from one still in flight.
type State int

const (
	// StatePending means the operation has not settled.
	StatePending State = iota

	// StateSuccess means the operation settled with its success value.
	StateSuccess

	// StateFailure means the operation settled with its failure reason.
	StateFailure
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// settledCallback is one OnSettled registration. Exactly one of the two
// functions runs, on the owning loop, if the operation settles.
type settledCallback[V any] struct {
	onSuccess func(V)
	onFailure func(error)
}

// Operation is the handle of one simulated deferred outcome. It settles at
// most once, with either the success value or the failure reason fixed when
// it was scheduled, and can be observed any number of times: every
// observation of a settled operation replays the same recorded outcome.
type Operation[V any] struct {
	id    int64
	clock Clock
	fut   *future.ValueFuture[V]
	loop  *loop.Loop

	mutex     sync.Mutex
	timer     Timer
	stopWatch func() bool
	callbacks []settledCallback[V]

	// finish runs exactly once, after the operation completes by any means.
	// The owning simulator uses it for metrics and slot accounting.
	finish       func(*Operation[V])
	completeOnce sync.Once
}

// settle records the outcome if the operation is still pending. Losing the
// race against cancellation or a concurrent settlement leaves no trace.
func (op *Operation[V]) settle(value V, reason error) {
	if op.fut.Resolve(value, reason) {
		op.onCompleted()
	}
}

// abort completes the operation without settling it. It reports whether this
// call performed the cancellation.
func (op *Operation[V]) abort(cause error) bool {
	if op.fut.Abort(cause) {
		op.onCompleted()
		return true
	}
	return false
}

// onCompleted runs the post-completion bookkeeping exactly once, regardless
// of how the operation completed: the timer and the parent context watch are
// released, registered callbacks are handed to the loop (or dropped, if the
// operation never settled) and the finish hook is invoked.
func (op *Operation[V]) onCompleted() {
	op.completeOnce.Do(func() {
		op.mutex.Lock()
		if op.timer != nil {
			op.timer.Cancel()
			op.timer = nil
		}
		if op.stopWatch != nil {
			op.stopWatch()
			op.stopWatch = nil
		}
		callbacks := op.callbacks
		op.callbacks = nil
		op.mutex.Unlock()

		op.dispatch(callbacks...)

		if op.finish != nil {
			op.finish(op)
		}
	})
}

// dispatch hands callbacks to the loop, choosing the branch from the
// recorded outcome. It is a no-op unless the operation settled.
func (op *Operation[V]) dispatch(callbacks ...settledCallback[V]) {
	if len(callbacks) == 0 {
		return
	}

	value, reason, settled := op.fut.Peek()
	if !settled {
		return
	}

	for _, callback := range callbacks {
		callback := callback
		var fn func()
		if reason == nil {
			fn = func() { callback.onSuccess(value) }
		} else {
			fn = func() { callback.onFailure(reason) }
		}
		// Callbacks racing a shutdown of the loop are dropped
		_ = op.loop.Enqueue(fn)
	}
}

// OnSettled registers the split-callback observation of the operation:
// onSuccess receives the success value or onFailure receives the failure
// reason, exactly once, on the simulator's callback loop. Neither runs if
// the operation is cancelled before settling. Registering on an operation
// that already settled replays the recorded outcome. Registration never
// blocks and panics if either callback is nil.
func (op *Operation[V]) OnSettled(onSuccess func(V), onFailure func(error)) {
	if onSuccess == nil {
		panic(errors.New("onSuccess callback cannot be nil"))
	}
	if onFailure == nil {
		panic(errors.New("onFailure callback cannot be nil"))
	}

	callback := settledCallback[V]{
		onSuccess: onSuccess,
		onFailure: onFailure,
	}

	op.mutex.Lock()
	if !op.fut.Completed() {
		op.callbacks = append(op.callbacks, callback)
		op.mutex.Unlock()
		return
	}
	op.mutex.Unlock()

	op.dispatch(callback)
}

// Wait blocks until the operation completes. It returns the success value,
// or a nil-value with the failure reason if the operation failed, or with
// the cancellation cause if it was cancelled. Calling Wait again returns the
// same result.
func (op *Operation[V]) Wait() (V, error) {
	return op.fut.Wait()
}

// WaitTimeout waits like Wait but gives up after timeout, returning
// ErrWaitTimeout. Giving up does not cancel the operation. The timeout runs
// on the operation's own clock, so waits stay deterministic under a
// ManualClock. It panics with ErrNegativeDelay if timeout is negative.
func (op *Operation[V]) WaitTimeout(timeout time.Duration) (V, error) {
	expired := make(chan struct{})
	t := op.clock.ScheduleOnce(timeout, func() { close(expired) })
	defer t.Cancel()

	select {
	case <-op.fut.Done():
		return op.fut.Wait()
	case <-expired:
		// The operation may have completed in the same instant; prefer it
		select {
		case <-op.fut.Done():
			return op.fut.Wait()
		default:
		}
		var zero V
		return zero, ErrWaitTimeout
	}
}

// Done returns a channel that is closed when the operation settles or is
// cancelled.
func (op *Operation[V]) Done() <-chan struct{} {
	return op.fut.Done()
}

// Cancel revokes the operation if it has not settled: its timer is stopped,
// waiters receive ErrCanceled and registered callbacks are discarded. A
// cancelled operation never settles. Cancel reports whether this call
// performed the cancellation; it returns false if the operation already
// settled or was already cancelled.
func (op *Operation[V]) Cancel() bool {
	return op.abort(ErrCanceled)
}

// State reports where the operation is in its lifecycle.
func (op *Operation[V]) State() State {
	if _, reason, settled := op.fut.Peek(); settled {
		if reason != nil {
			return StateFailure
		}
		return StateSuccess
	}
	return StatePending
}

// Canceled reports whether the operation was cancelled before settling.
func (op *Operation[V]) Canceled() bool {
	return op.fut.Completed() && !op.fut.Resolved()
}

// Outcome returns the recorded outcome. The second return is false while the
// operation is pending and stays false forever if it was cancelled.
func (op *Operation[V]) Outcome() (Outcome[V], bool) {
	value, reason, settled := op.fut.Peek()
	if !settled {
		return Outcome[V]{}, false
	}
	if reason != nil {
		return Failure[V](reason), true
	}
	return Success(value), true
}

// ID returns the identifier the simulator assigned to this operation.
// Derived operations and operations rejected by a stopped simulator have
// ID 0.
func (op *Operation[V]) ID() int64 {
	return op.id
}
