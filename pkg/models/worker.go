package models

import "time"

// WorkerState is the lifecycle state of a worker subprocess.
type WorkerState string

const (
	WorkerStarting     WorkerState = "starting"
	WorkerRunning      WorkerState = "running"
	WorkerFinishedOK   WorkerState = "finished_ok"
	WorkerFinishedErr  WorkerState = "finished_error"
	WorkerRateLimited  WorkerState = "rate_limited"
	WorkerCrashed      WorkerState = "crashed"
	WorkerKilled       WorkerState = "killed"
)

// Valid returns true if the state is a known value.
func (s WorkerState) Valid() bool {
	switch s {
	case WorkerStarting, WorkerRunning, WorkerFinishedOK, WorkerFinishedErr,
		WorkerRateLimited, WorkerCrashed, WorkerKilled:
		return true
	default:
		return false
	}
}

// Terminal reports whether s is a state a worker will not transition out of
// on its own; the orchestrator must release its slot.
func (s WorkerState) Terminal() bool {
	switch s {
	case WorkerFinishedOK, WorkerFinishedErr, WorkerRateLimited, WorkerCrashed, WorkerKilled:
		return true
	default:
		return false
	}
}

// Handle identifies one live or recently-completed worker subprocess.
type Handle struct {
	ID         string      `json:"id"`
	Role       Role        `json:"role"`
	FeatureIDs []int64     `json:"feature_ids"`
	PID        int         `json:"pid,omitempty"`
	State      WorkerState `json:"state"`
	StartedAt  time.Time   `json:"started_at"`
}

// CompletionResult is the payload returned by await_completion in §4.C: the
// worker's final state, its exit code, how long it ran, and its last
// output lines for diagnostics.
type CompletionResult struct {
	Status    WorkerState   `json:"status"`
	ExitCode  int           `json:"exit_code"`
	RanFor    time.Duration `json:"ran_for"`
	LastLines []string      `json:"last_lines"`
}
