package eventual

import (
	"errors"
	"time"
)

const (
	// DefaultSuccessValue is the payload stock simulators settle with on
	// success.
	DefaultSuccessValue = "Data loaded!"

	// DefaultDelay is the settlement delay used when WithDelay is not given.
	DefaultDelay = 1000 * time.Millisecond
)

// ErrFetchFailed is the reason stock simulators settle with on failure.
var ErrFetchFailed = errors.New("Fetch failed.")

// OutcomeKind discriminates the two terminal results an operation can settle
// with.
type OutcomeKind int

const (
	// OutcomeSuccess marks an operation that settled with its success value.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeFailure marks an operation that settled with its failure reason.
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome is the result an operation settled with. Value is meaningful only
// on success and Reason only on failure.
type Outcome[V any] struct {
	Kind   OutcomeKind
	Value  V
	Reason error
}

// Success builds a successful outcome carrying value.
func Success[V any](value V) Outcome[V] {
	return Outcome[V]{Kind: OutcomeSuccess, Value: value}
}

// Failure builds a failed outcome carrying reason.
func Failure[V any](reason error) Outcome[V] {
	return Outcome[V]{Kind: OutcomeFailure, Reason: reason}
}

func (o Outcome[V]) IsSuccess() bool {
	return o.Kind == OutcomeSuccess
}

func (o Outcome[V]) IsFailure() bool {
	return o.Kind == OutcomeFailure
}
