package future

import (
	"context"
	"fmt"
)

// resolution carries the value/error pair a future settled with. It doubles
// as the context cancellation cause, which is how waiters tell settlement
// apart from abortion or external context cancellation.
type resolution[V any] struct {
	value V
	err   error
}

func (r *resolution[V]) Error() string {
	if r.err != nil {
		return r.err.Error()
	}
	return fmt.Sprintf("future resolved with value: %v", r.value)
}

// abortion marks a future that completed without settling. Each Abort call
// allocates its own abortion, so exactly one call observes itself as the
// winner even when several race with the same cause.
type abortion struct {
	cause error
}

func (a *abortion) Error() string {
	return a.cause.Error()
}

func (a *abortion) Unwrap() error {
	return a.cause
}

// ValueFuture completes at most once: either it resolves with a value/error
// pair or it aborts with a cause. The first completion wins and later
// attempts have no effect.
type ValueFuture[V any] struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// NewValueFuture creates a future bound to the given parent context. If the
// parent is canceled before the future completes, the future completes with
// the parent's cancellation cause.
func NewValueFuture[V any](parent context.Context) *ValueFuture[V] {
	ctx, cancel := context.WithCancelCause(parent)

	return &ValueFuture[V]{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Resolve settles the future with the given value/error pair and reports
// whether this call won the completion race.
func (f *ValueFuture[V]) Resolve(value V, err error) bool {
	r := &resolution[V]{
		value: value,
		err:   err,
	}

	f.cancel(r)

	return context.Cause(f.ctx) == r
}

// Abort completes the future without settling it and reports whether this
// call won the completion race. Waiters observe cause as the error.
func (f *ValueFuture[V]) Abort(cause error) bool {
	a := &abortion{cause: cause}

	f.cancel(a)

	return context.Cause(f.ctx) == a
}

// Wait blocks until the future completes. It returns the resolution pair if
// the future settled, or the zero value and the abort (or external
// cancellation) cause otherwise.
func (f *ValueFuture[V]) Wait() (V, error) {
	<-f.ctx.Done()

	switch cause := context.Cause(f.ctx).(type) {
	case *resolution[V]:
		return cause.value, cause.err
	case *abortion:
		var zero V
		return zero, cause.cause
	default:
		var zero V
		return zero, cause
	}
}

// Done returns a channel that is closed when the future completes.
func (f *ValueFuture[V]) Done() <-chan struct{} {
	return f.ctx.Done()
}

// Completed reports whether the future has completed, by any means.
func (f *ValueFuture[V]) Completed() bool {
	select {
	case <-f.ctx.Done():
		return true
	default:
		return false
	}
}

// Resolved reports whether the future completed through Resolve.
func (f *ValueFuture[V]) Resolved() bool {
	if !f.Completed() {
		return false
	}
	_, ok := context.Cause(f.ctx).(*resolution[V])
	return ok
}

// Peek returns the resolution pair without blocking. The third return is
// false while the future is pending or if it completed without settling.
func (f *ValueFuture[V]) Peek() (V, error, bool) {
	if f.Completed() {
		if r, ok := context.Cause(f.ctx).(*resolution[V]); ok {
			return r.value, r.err, true
		}
	}
	var zero V
	return zero, nil, false
}
