package eventual

import "sync/atomic"

// Counter is a goroutine-safe increment-only counter. The zero value is
// ready to use and starts at zero.
type Counter struct {
	value atomic.Int64
}

// Increment adds one and returns the new value.
func (c *Counter) Increment() int64 {
	return c.value.Add(1)
}

// Value returns the current value without modifying it.
func (c *Counter) Value() int64 {
	return c.value.Load()
}
