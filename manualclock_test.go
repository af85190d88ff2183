package eventual

import (
	"testing"
	"time"

	"github.com/schak04/eventual/internal/assert"
)

func TestManualClockStartsAtEpoch(t *testing.T) {
	clock := NewManualClock()

	assert.True(t, clock.Now().Equal(time.Unix(0, 0)))
	assert.Equal(t, 0, clock.PendingTimers())
}

func TestManualClockAdvanceMovesTime(t *testing.T) {
	clock := NewManualClock()
	start := clock.Now()

	clock.Advance(250 * time.Millisecond)

	assert.True(t, clock.Now().Equal(start.Add(250*time.Millisecond)))
}

func TestManualClockFiresDueTimersOnly(t *testing.T) {
	clock := NewManualClock()

	firedA := false
	firedB := false

	clock.ScheduleOnce(100*time.Millisecond, func() { firedA = true })
	clock.ScheduleOnce(200*time.Millisecond, func() { firedB = true })

	assert.Equal(t, 2, clock.PendingTimers())

	clock.Advance(150 * time.Millisecond)

	assert.True(t, firedA)
	assert.Equal(t, false, firedB)
	assert.Equal(t, 1, clock.PendingTimers())

	clock.Advance(50 * time.Millisecond)

	assert.True(t, firedB)
	assert.Equal(t, 0, clock.PendingTimers())
}

func TestManualClockFiresInDueTimeOrder(t *testing.T) {
	clock := NewManualClock()

	order := make([]string, 0, 3)

	clock.ScheduleOnce(300*time.Millisecond, func() { order = append(order, "c") })
	clock.ScheduleOnce(100*time.Millisecond, func() { order = append(order, "a") })
	clock.ScheduleOnce(200*time.Millisecond, func() { order = append(order, "b") })

	clock.Advance(1 * time.Second)

	assert.Equal(t, 3, len(order))
	assert.Equal(t, "a", order[0])
	assert.Equal(t, "b", order[1])
	assert.Equal(t, "c", order[2])
}

func TestManualClockBreaksTiesByScheduleOrder(t *testing.T) {
	clock := NewManualClock()

	order := make([]int, 0, 3)

	for i := 0; i < 3; i++ {
		i := i
		clock.ScheduleOnce(50*time.Millisecond, func() { order = append(order, i) })
	}

	clock.Advance(50 * time.Millisecond)

	assert.Equal(t, 3, len(order))
	for i, value := range order {
		assert.Equal(t, i, value)
	}
}

func TestManualClockActionObservesItsDueTime(t *testing.T) {
	clock := NewManualClock()
	start := clock.Now()

	var observed time.Time
	clock.ScheduleOnce(100*time.Millisecond, func() { observed = clock.Now() })

	clock.Advance(1 * time.Second)

	assert.True(t, observed.Equal(start.Add(100*time.Millisecond)))
	assert.True(t, clock.Now().Equal(start.Add(1*time.Second)))
}

func TestManualClockFiresTimersScheduledDuringAdvance(t *testing.T) {
	clock := NewManualClock()

	chained := false
	clock.ScheduleOnce(100*time.Millisecond, func() {
		clock.ScheduleOnce(50*time.Millisecond, func() { chained = true })
	})

	clock.Advance(200 * time.Millisecond)

	assert.True(t, chained)
	assert.Equal(t, 0, clock.PendingTimers())
}

func TestManualClockTimerScheduledBeyondWindowStaysPending(t *testing.T) {
	clock := NewManualClock()

	chained := false
	clock.ScheduleOnce(100*time.Millisecond, func() {
		clock.ScheduleOnce(500*time.Millisecond, func() { chained = true })
	})

	clock.Advance(200 * time.Millisecond)

	assert.Equal(t, false, chained)
	assert.Equal(t, 1, clock.PendingTimers())
}

func TestManualClockCancel(t *testing.T) {
	clock := NewManualClock()

	timer := clock.ScheduleOnce(100*time.Millisecond, func() {
		t.Error("cancelled action must not run")
	})

	assert.True(t, timer.Cancel())
	assert.Equal(t, 0, clock.PendingTimers())
	assert.Equal(t, false, timer.Cancel())

	clock.Advance(1 * time.Second)
}

func TestManualClockCancelAfterFiring(t *testing.T) {
	clock := NewManualClock()

	timer := clock.ScheduleOnce(100*time.Millisecond, func() {})

	clock.Advance(100 * time.Millisecond)

	assert.Equal(t, false, timer.Cancel())
}

func TestManualClockZeroDelayFiresOnNextAdvance(t *testing.T) {
	clock := NewManualClock()

	fired := false
	clock.ScheduleOnce(0, func() { fired = true })

	clock.Advance(0)

	assert.True(t, fired)
}

func TestManualClockNegativeAdvance(t *testing.T) {
	clock := NewManualClock()

	assert.PanicsWith(t, ErrNegativeDelay, func() {
		clock.Advance(-1 * time.Millisecond)
	})
}

func TestManualClockNegativeDelay(t *testing.T) {
	clock := NewManualClock()

	assert.PanicsWith(t, ErrNegativeDelay, func() {
		clock.ScheduleOnce(-1*time.Nanosecond, func() {})
	})

	assert.Equal(t, 0, clock.PendingTimers())
}
