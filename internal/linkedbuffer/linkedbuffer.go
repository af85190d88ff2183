package linkedbuffer

import (
	"sync"
	"sync/atomic"
)

// chunk is one fixed-capacity segment of the buffer. Chunks are chained as
// the buffer grows and dropped as soon as they have been fully consumed.
type chunk[T any] struct {
	items []T
	read  int
	next  *chunk[T]
}

// LinkedBuffer is an unbounded FIFO buffer backed by a chain of fixed-size
// chunks. It can be pushed to and popped from concurrently.
type LinkedBuffer[T any] struct {
	mutex sync.Mutex

	// head is the chunk currently being read, tail the one being written
	head *chunk[T]
	tail *chunk[T]

	nextCapacity int
	maxCapacity  int

	pushCount atomic.Uint64
	popCount  atomic.Uint64
}

// New creates a buffer whose chunks start at initialCapacity elements and
// grow up to maxCapacity elements each.
func New[T any](initialCapacity, maxCapacity int) *LinkedBuffer[T] {
	if initialCapacity <= 0 {
		initialCapacity = 1
	}
	if maxCapacity < initialCapacity {
		maxCapacity = initialCapacity
	}

	first := &chunk[T]{items: make([]T, 0, initialCapacity)}

	return &LinkedBuffer[T]{
		head:         first,
		tail:         first,
		nextCapacity: initialCapacity,
		maxCapacity:  maxCapacity,
	}
}

// Push appends a value to the buffer, chaining a new chunk when the current
// one is full. Chunk capacity doubles until it reaches 1024 and grows by 50%
// after that, never exceeding the configured maximum.
func (b *LinkedBuffer[T]) Push(value T) {
	b.mutex.Lock()

	if len(b.tail.items) == cap(b.tail.items) {
		capacity := cap(b.tail.items)
		if capacity < 1024 {
			b.nextCapacity = capacity * 2
		} else {
			b.nextCapacity = capacity + capacity/2
		}
		if b.nextCapacity > b.maxCapacity {
			b.nextCapacity = b.maxCapacity
		}

		next := &chunk[T]{items: make([]T, 0, b.nextCapacity)}
		b.tail.next = next
		b.tail = next
	}

	b.tail.items = append(b.tail.items, value)
	b.mutex.Unlock()

	b.pushCount.Add(1)
}

// PopBatch moves up to len(into) values into the given slice and returns how
// many were moved. It returns 0 when the buffer is empty.
func (b *LinkedBuffer[T]) PopBatch(into []T) int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	var popped int
	for popped < len(into) {
		unread := b.head.items[b.head.read:]
		if len(unread) == 0 {
			if b.head.next == nil {
				break
			}
			// Chunk fully consumed, drop it
			b.head = b.head.next
			continue
		}

		n := copy(into[popped:], unread)
		b.head.read += n
		popped += n
	}

	if popped > 0 {
		b.popCount.Add(uint64(popped))
	}
	return popped
}

// Len returns the number of values pushed but not yet popped.
func (b *LinkedBuffer[T]) Len() uint64 {
	pushed := b.pushCount.Load()
	popped := b.popCount.Load()

	if pushed < popped {
		return 0 // Make sure we don't return a negative value
	}

	return pushed - popped
}

// PushCount returns the number of values pushed since the buffer was created.
func (b *LinkedBuffer[T]) PushCount() uint64 {
	return b.pushCount.Load()
}

// PopCount returns the number of values popped since the buffer was created.
func (b *LinkedBuffer[T]) PopCount() uint64 {
	return b.popCount.Load()
}
