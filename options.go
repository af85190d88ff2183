package eventual

import (
	"context"
	"errors"
	"time"

	"github.com/joeycumines/logiface"
)

// simulatorConfig collects the knobs shared by every simulator, whatever its
// value type.
type simulatorConfig struct {
	ctx           context.Context
	clock         Clock
	delay         time.Duration
	failureReason error
	logger        *logiface.Logger[logiface.Event]
	maxPending    int
}

func defaultConfig() simulatorConfig {
	return simulatorConfig{
		ctx:           context.Background(),
		clock:         SystemClock,
		delay:         DefaultDelay,
		failureReason: ErrFetchFailed,
	}
}

// Option customizes a simulator at construction time.
type Option func(*simulatorConfig)

// WithClock makes the simulator schedule on the given clock instead of the
// system clock. Pass a ManualClock to drive settlements deterministically.
// It panics if clock is nil.
func WithClock(clock Clock) Option {
	if clock == nil {
		panic(errors.New("clock cannot be nil"))
	}
	return func(c *simulatorConfig) {
		c.clock = clock
	}
}

// WithDelay changes the settlement delay Simulate uses. It panics with
// ErrNegativeDelay if delay is negative; a zero delay is valid and settles
// as soon as the clock ticks.
func WithDelay(delay time.Duration) Option {
	if delay < 0 {
		panic(ErrNegativeDelay)
	}
	return func(c *simulatorConfig) {
		c.delay = delay
	}
}

// WithFailureReason overrides the reason failed operations settle with. It
// panics if reason is nil.
func WithFailureReason(reason error) Option {
	if reason == nil {
		panic(errors.New("failure reason cannot be nil"))
	}
	return func(c *simulatorConfig) {
		c.failureReason = reason
	}
}

// WithContext binds every operation to the given parent context: cancelling
// it cancels all operations still pending. It panics if ctx is nil.
func WithContext(ctx context.Context) Option {
	if ctx == nil {
		panic(errors.New("context cannot be nil"))
	}
	return func(c *simulatorConfig) {
		c.ctx = ctx
	}
}

// WithLogger attaches a structured logger to the simulator. The simulator
// logs scheduling, settlement and shutdown events at debug level. A nil
// logger disables logging, which is also the default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return func(c *simulatorConfig) {
		c.logger = logger
	}
}

// WithMaxPending bounds how many operations may be awaiting settlement at
// once. Simulate blocks until a slot frees up, in FIFO order; TrySimulate
// reports false instead of blocking. It panics if limit is not positive.
func WithMaxPending(limit int) Option {
	if limit <= 0 {
		panic(errors.New("max pending must be greater than zero"))
	}
	return func(c *simulatorConfig) {
		c.maxPending = limit
	}
}
