package future

import (
	"context"
	"fmt"
	"sync"
)

// CompositeFuture resolves once every one of a fixed number of slots has
// reported a value, assembling the values in slot order, or fails as soon as
// any slot reports an error. A composite with zero slots resolves
// immediately with an empty slice.
type CompositeFuture[V any] struct {
	*ValueFuture[[]V]
	mutex     sync.Mutex
	values    []V
	remaining int
	done      bool
}

func NewCompositeFuture[V any](parent context.Context, count int) *CompositeFuture[V] {
	if count < 0 {
		panic(fmt.Errorf("count must be greater than or equal to 0"))
	}

	f := &CompositeFuture[V]{
		ValueFuture: NewValueFuture[[]V](parent),
		values:      make([]V, count),
		remaining:   count,
	}

	if count == 0 {
		f.done = true
		f.Resolve([]V{}, nil)
	}

	return f
}

// ResolveIndex records the successful value of one slot. Each slot must
// report at most once. The composite resolves when the last slot reports.
func (f *CompositeFuture[V]) ResolveIndex(index int, value V) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.checkIndex(index)

	if f.done {
		return
	}

	f.values[index] = value
	f.remaining--

	if f.remaining == 0 {
		f.done = true
		f.Resolve(f.values, nil)
	}
}

// FailIndex fails the whole composite with the given error. The first
// failure wins; reports arriving after it are ignored.
func (f *CompositeFuture[V]) FailIndex(index int, err error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.checkIndex(index)

	if f.done {
		return
	}

	f.done = true
	f.Resolve(nil, err)
}

func (f *CompositeFuture[V]) checkIndex(index int) {
	if index < 0 {
		panic(fmt.Errorf("index must be greater than or equal to 0"))
	}
	if index >= len(f.values) {
		panic(fmt.Errorf("index must be less than %d", len(f.values)))
	}
}
