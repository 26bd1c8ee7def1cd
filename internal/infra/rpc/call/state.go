package call

import (
	"time"

	"github.com/vietddude/callcore/internal/infra/rpc/classify"
)

// Status is the lifecycle phase of a manager.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a snapshot of a manager. Result is meaningful only when Status is
// StatusSucceeded; Err is non-nil only when Status is StatusFailed.
type State[R any] struct {
	Status Status
	Result R
	Err    *classify.Error
}

// Loading reports whether an invocation is in flight.
func (s State[R]) Loading() bool {
	return s.Status == StatusLoading
}

// Disposition describes what happened to an invocation's outcome.
type Disposition string

const (
	// Committed outcomes were written to the manager state.
	Committed Disposition = "committed"
	// Superseded outcomes lost to a newer invocation and were dropped.
	Superseded Disposition = "superseded"
	// TornDown outcomes arrived after Close and were dropped.
	TornDown Disposition = "torn_down"
)

// Outcome is the per-invocation record handed to the settled hook.
type Outcome struct {
	InvocationID string
	Name         string
	Attempts     int
	StartedAt    time.Time
	Duration     time.Duration
	// Status is StatusSucceeded or StatusFailed.
	Status      Status
	Disposition Disposition
	Err         *classify.Error
}
