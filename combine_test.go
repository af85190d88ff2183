package eventual

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/schak04/eventual/internal/assert"
)

func TestAllSettlesWithValuesInArgumentOrder(t *testing.T) {
	clock := NewManualClock()
	sa := NewValueSimulator("a", WithClock(clock))
	sb := NewValueSimulator("b", WithClock(clock))
	sc := NewValueSimulator("c", WithClock(clock))
	defer sa.Stop()
	defer sb.Stop()
	defer sc.Stop()

	// Settlement order is reversed on purpose
	first := sa.SimulateAfter(true, 300*time.Millisecond)
	second := sb.SimulateAfter(true, 200*time.Millisecond)
	third := sc.SimulateAfter(true, 100*time.Millisecond)

	combined := All(first, second, third)

	clock.Advance(300 * time.Millisecond)

	values, err := combined.Wait()
	assert.Equal(t, nil, err)
	assert.Equal(t, 3, len(values))

	// Values follow argument order, not settlement order
	assert.Equal(t, "a", values[0])
	assert.Equal(t, "b", values[1])
	assert.Equal(t, "c", values[2])
	assert.Equal(t, StateSuccess, combined.State())
}

func TestAllCollectsEachInputValue(t *testing.T) {
	clock := NewManualClock()
	sText := NewSimulator(WithClock(clock), WithDelay(10*time.Millisecond))
	defer sText.Stop()

	a := sText.Simulate(true)
	b := sText.Simulate(true)

	combined := All(a, b)

	clock.Advance(10 * time.Millisecond)

	values, err := combined.Wait()
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(values))
	assert.Equal(t, "Data loaded!", values[0])
	assert.Equal(t, "Data loaded!", values[1])
}

func TestAllFailsWithFirstFailure(t *testing.T) {
	clock := NewManualClock()
	s := NewSimulator(WithClock(clock))
	defer s.Stop()

	slowSuccess := s.SimulateAfter(true, 100*time.Millisecond)
	fastFailure := s.SimulateAfter(false, 10*time.Millisecond)

	combined := All(slowSuccess, fastFailure)

	clock.Advance(10 * time.Millisecond)

	// The combined operation fails before the slow input settles
	_, err := combined.Wait()
	assert.ErrorIs(t, ErrFetchFailed, err)
	assert.Equal(t, StateFailure, combined.State())
	assert.Equal(t, StatePending, slowSuccess.State())
}

func TestAllWithCancelledInput(t *testing.T) {
	clock := NewManualClock()
	s := NewSimulator(WithClock(clock), WithDelay(100*time.Millisecond))
	defer s.Stop()

	a := s.Simulate(true)
	b := s.Simulate(true)

	combined := All(a, b)

	b.Cancel()

	_, err := combined.Wait()
	assert.ErrorIs(t, ErrCanceled, err)
	assert.True(t, combined.Canceled())
	assert.Equal(t, StatePending, combined.State())
}

func TestAllWithNoInputs(t *testing.T) {
	combined := All[string]()

	values, err := combined.Wait()
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, len(values))
	assert.Equal(t, StateSuccess, combined.State())
}

func TestAllWithNilInput(t *testing.T) {
	clock := NewManualClock()
	s := NewSimulator(WithClock(clock))
	defer s.Stop()

	op := s.Simulate(true)

	assert.PanicsWithError(t, "operation cannot be nil", func() {
		All(op, nil)
	})
}

func TestAllOnSettledRunsOnTheInheritedLoop(t *testing.T) {
	clock := NewManualClock()
	s := NewSimulator(WithClock(clock), WithDelay(10*time.Millisecond))

	combined := All(s.Simulate(true), s.Simulate(true))

	var got atomic.Int32
	combined.OnSettled(
		func(values []string) { got.Store(int32(len(values))) },
		func(err error) { t.Error("failure branch must not run") },
	)

	clock.Advance(10 * time.Millisecond)

	// Wait for the composite to settle before draining the loop
	combined.Wait()
	s.Stop()

	assert.Equal(t, int32(2), got.Load())
}

func TestRaceFirstSettlementWins(t *testing.T) {
	clock := NewManualClock()
	s := NewSimulator(WithClock(clock))
	defer s.Stop()

	slow := s.SimulateAfter(true, 100*time.Millisecond)
	fast := s.SimulateAfter(false, 10*time.Millisecond)

	winner := Race(slow, fast)

	clock.Advance(10 * time.Millisecond)

	// The fast failure wins the race
	_, err := winner.Wait()
	assert.ErrorIs(t, ErrFetchFailed, err)
	assert.Equal(t, StateFailure, winner.State())
}

func TestRaceSuccessWins(t *testing.T) {
	clock := NewManualClock()
	s := NewSimulator(WithClock(clock))
	defer s.Stop()

	fast := s.SimulateAfter(true, 10*time.Millisecond)
	slow := s.SimulateAfter(false, 100*time.Millisecond)

	winner := Race(fast, slow)

	clock.Advance(10 * time.Millisecond)

	value, err := winner.Wait()
	assert.Equal(t, nil, err)
	assert.Equal(t, "Data loaded!", value)
}

func TestRaceIgnoresCancelledInputs(t *testing.T) {
	clock := NewManualClock()
	s := NewSimulator(WithClock(clock))
	defer s.Stop()

	fast := s.SimulateAfter(true, 10*time.Millisecond)
	slow := s.SimulateAfter(true, 100*time.Millisecond)

	winner := Race(fast, slow)

	// The fast input is cancelled; it must not win
	fast.Cancel()

	clock.Advance(100 * time.Millisecond)

	value, err := winner.Wait()
	assert.Equal(t, nil, err)
	assert.Equal(t, "Data loaded!", value)
	assert.Equal(t, false, winner.Canceled())
}

func TestRaceWithAllInputsCancelled(t *testing.T) {
	clock := NewManualClock()
	s := NewSimulator(WithClock(clock))
	defer s.Stop()

	a := s.Simulate(true)
	b := s.Simulate(true)

	winner := Race(a, b)

	a.Cancel()
	b.Cancel()

	_, err := winner.Wait()
	assert.ErrorIs(t, ErrCanceled, err)
	assert.True(t, winner.Canceled())
}

func TestRaceWithNoInputs(t *testing.T) {
	assert.PanicsWithError(t, "race requires at least one operation", func() {
		Race[string]()
	})
}

func TestRaceCancelDoesNotAffectInputs(t *testing.T) {
	clock := NewManualClock()
	s := NewSimulator(WithClock(clock), WithDelay(10*time.Millisecond))
	defer s.Stop()

	a := s.Simulate(true)
	b := s.Simulate(true)

	winner := Race(a, b)

	assert.True(t, winner.Cancel())

	clock.Advance(10 * time.Millisecond)

	assert.Equal(t, StateSuccess, a.State())
	assert.Equal(t, StateSuccess, b.State())
	assert.True(t, winner.Canceled())
}
