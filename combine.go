package eventual

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/schak04/eventual/internal/future"
	"github.com/schak04/eventual/internal/loop"
)

// All returns a derived operation that settles once every input has settled
// successfully, with the values in input order, or fails with the first
// failure reason observed. If any input is cancelled before settling, the
// derived operation is cancelled with the same cause. All with no inputs
// settles immediately with an empty slice. It panics if any input is nil.
func All[V any](ops ...*Operation[V]) *Operation[[]V] {
	checkOperations(ops)

	clock, l := inherited(ops)

	composite := future.NewCompositeFuture[V](context.Background(), len(ops))
	derived := newDerivedOperation(clock, l, composite.ValueFuture)

	for i, op := range ops {
		i, op := i, op
		go func() {
			<-op.Done()

			value, reason, settled := op.fut.Peek()
			switch {
			case !settled:
				_, cause := op.fut.Wait()
				composite.Abort(cause)
			case reason != nil:
				composite.FailIndex(i, reason)
			default:
				composite.ResolveIndex(i, value)
			}
		}()
	}

	return derived
}

// Race returns a derived operation that settles with the first input to
// settle, success or failure. Cancelled inputs never win: they are ignored
// unless every input is cancelled, in which case the derived operation is
// cancelled too. It panics when called with no inputs or a nil input.
func Race[V any](ops ...*Operation[V]) *Operation[V] {
	if len(ops) == 0 {
		panic(errors.New("race requires at least one operation"))
	}
	checkOperations(ops)

	clock, l := inherited(ops)

	fut := future.NewValueFuture[V](context.Background())
	derived := newDerivedOperation(clock, l, fut)

	var unsettled atomic.Int64
	unsettled.Store(int64(len(ops)))

	for _, op := range ops {
		op := op
		go func() {
			<-op.Done()

			value, reason, settled := op.fut.Peek()
			if settled {
				fut.Resolve(value, reason)
				return
			}

			if unsettled.Add(-1) == 0 {
				// Every input was cancelled; the race can never settle
				_, cause := op.fut.Wait()
				fut.Abort(cause)
			}
		}()
	}

	return derived
}

// newDerivedOperation wraps an externally driven future in an operation. A
// watcher goroutine performs the completion bookkeeping, since no timer or
// simulator will.
func newDerivedOperation[V any](clock Clock, l *loop.Loop, fut *future.ValueFuture[V]) *Operation[V] {
	op := &Operation[V]{
		clock: clock,
		fut:   fut,
		loop:  l,
	}

	go func() {
		<-op.Done()
		op.onCompleted()
	}()

	return op
}

func checkOperations[V any](ops []*Operation[V]) {
	for _, op := range ops {
		if op == nil {
			panic(errors.New("operation cannot be nil"))
		}
	}
}

// inherited picks the clock and callback loop derived operations run on:
// those of the first input, falling back to the defaults.
func inherited[V any](ops []*Operation[V]) (Clock, *loop.Loop) {
	for _, op := range ops {
		if op != nil {
			return op.clock, op.loop
		}
	}
	return SystemClock, defaultSimulator.loop
}
