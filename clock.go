package eventual

import (
	"errors"
	"time"
)

// ErrNegativeDelay is the panic payload of every scheduling call that
// receives a negative delay. Delays must be zero or positive.
var ErrNegativeDelay = errors.New("delay must not be negative")

// Clock abstracts the host environment's delayed-callback facility, so that
// simulations can run on real time or on a virtual timeline.
type Clock interface {
	// Now returns the clock's current time.
	Now() time.Time

	// ScheduleOnce arranges for action to run once, no earlier than delay
	// from now. It panics with ErrNegativeDelay if delay is negative and
	// panics if action is nil.
	ScheduleOnce(delay time.Duration, action func()) Timer
}

// Timer is the cancellation handle returned by ScheduleOnce.
type Timer interface {
	// Cancel stops the pending action. It returns true if it prevented the
	// action from running and false if the action already ran or the timer
	// was cancelled before.
	Cancel() bool
}

// SystemClock schedules on the Go runtime timers. It is the clock used by
// simulators unless WithClock overrides it.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) ScheduleOnce(delay time.Duration, action func()) Timer {
	validateSchedule(delay, action)

	return &systemTimer{timer: time.AfterFunc(delay, action)}
}

type systemTimer struct {
	timer *time.Timer
}

func (t *systemTimer) Cancel() bool {
	return t.timer.Stop()
}

func validateSchedule(delay time.Duration, action func()) {
	if delay < 0 {
		panic(ErrNegativeDelay)
	}
	if action == nil {
		panic(errors.New("action cannot be nil"))
	}
}
