package eventual

import "time"

// defaultSimulator backs the package-level convenience functions. It is the
// stock simulator: one second delay, "Data loaded!" on success, the reason
// "Fetch failed." on failure.
var defaultSimulator = NewSimulator()

// Simulate schedules an operation on the stock simulator.
func Simulate(succeeds bool) *Operation[string] {
	return defaultSimulator.Simulate(succeeds)
}

// SimulateAfter schedules an operation on the stock simulator with an
// explicit delay.
func SimulateAfter(succeeds bool, delay time.Duration) *Operation[string] {
	return defaultSimulator.SimulateAfter(succeeds, delay)
}
