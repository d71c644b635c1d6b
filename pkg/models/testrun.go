package models

import "time"

// AgentType distinguishes which role produced a TestRun record.
type AgentType string

const (
	// AgentTypeCoding marks a test run recorded by a coding worker.
	AgentTypeCoding AgentType = "coding"
	// AgentTypeTesting marks a test run recorded by a testing worker.
	AgentTypeTesting AgentType = "testing"
)

// Valid returns true if the agent type is a known value.
func (a AgentType) Valid() bool {
	switch a {
	case AgentTypeCoding, AgentTypeTesting:
		return true
	default:
		return false
	}
}

// TestRun is an append-only audit row recording one worker's verdict on a
// feature. TestRuns are never mutated after insertion; they are only
// cascade-deleted with their parent feature.
type TestRun struct {
	ID        int64     `json:"id"`
	FeatureID int64     `json:"feature_id"`
	Passed    bool      `json:"passed"`
	AgentType AgentType `json:"agent_type"`
	AgentPID  int       `json:"agent_pid,omitempty"`

	// FeatureIDsInBatch records sibling feature IDs when the worker was
	// dispatched against a batch rather than a single feature.
	FeatureIDsInBatch []int64 `json:"feature_ids_in_batch,omitempty"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	ReturnCode  int       `json:"return_code"`
}
