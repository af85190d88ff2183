package eventual

import (
	"container/heap"
	"sync"
	"time"
)

// ManualClock is a Clock whose time only moves when Advance is called.
// Scheduled actions fire deterministically inside Advance, in due-time order
// with ties broken by scheduling order, so tests can assert exact settlement
// points instead of sleeping.
type ManualClock struct {
	mutex  sync.Mutex
	now    time.Time
	seq    int64
	timers timerHeap
}

// NewManualClock creates a manual clock positioned at the Unix epoch.
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Unix(0, 0)}
}

func (c *ManualClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.now
}

// ScheduleOnce registers action to fire when the virtual time reaches
// now+delay. Nothing fires outside Advance.
func (c *ManualClock) ScheduleOnce(delay time.Duration, action func()) Timer {
	validateSchedule(delay, action)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	t := &manualTimer{
		clock:  c,
		when:   c.now.Add(delay),
		seq:    c.seq,
		action: action,
	}
	c.seq++

	heap.Push(&c.timers, t)

	return t
}

// Advance moves the virtual time forward by d, firing every pending action
// whose due time falls within the window. Actions run on the calling
// goroutine, and an action that schedules a new timer due within the window
// causes it to fire during the same call. Advance must not be called
// concurrently with itself. It panics with ErrNegativeDelay if d is negative.
func (c *ManualClock) Advance(d time.Duration) {
	if d < 0 {
		panic(ErrNegativeDelay)
	}

	c.mutex.Lock()
	target := c.now.Add(d)

	for {
		next := c.timers.peek()
		if next == nil || next.when.After(target) {
			break
		}

		heap.Pop(&c.timers)
		next.fired = true

		// The action observes its own due time as the current time
		c.now = next.when

		c.mutex.Unlock()
		next.action()
		c.mutex.Lock()
	}

	c.now = target
	c.mutex.Unlock()
}

// PendingTimers returns the number of scheduled actions that have neither
// fired nor been cancelled.
func (c *ManualClock) PendingTimers() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return len(c.timers)
}

type manualTimer struct {
	clock    *ManualClock
	when     time.Time
	seq      int64
	index    int
	action   func()
	fired    bool
	canceled bool
}

func (t *manualTimer) Cancel() bool {
	t.clock.mutex.Lock()
	defer t.clock.mutex.Unlock()

	if t.fired || t.canceled {
		return false
	}

	t.canceled = true
	heap.Remove(&t.clock.timers, t.index)

	return true
}

// timerHeap orders timers by due time, then by scheduling order.
type timerHeap []*manualTimer

func (h timerHeap) Len() int {
	return len(h)
}

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*manualTimer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

func (h timerHeap) peek() *manualTimer {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}
