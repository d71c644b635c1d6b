package models

import "time"

// MaxDependencies bounds how many dependency edges a single feature may carry.
const MaxDependencies = 20

// ReviewStatus represents the review state of a feature.
type ReviewStatus string

const (
	// ReviewStatusNone indicates no review has been requested.
	ReviewStatusNone ReviewStatus = "none"
	// ReviewStatusPending indicates the feature is awaiting reviewer action.
	ReviewStatusPending ReviewStatus = "pending_review"
	// ReviewStatusApproved indicates a reviewer approved the feature.
	ReviewStatusApproved ReviewStatus = "approved"
	// ReviewStatusRejected indicates a reviewer rejected the feature.
	ReviewStatusRejected ReviewStatus = "rejected"
)

// Valid returns true if the review status is a known value.
func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewStatusNone, ReviewStatusPending, ReviewStatusApproved, ReviewStatusRejected:
		return true
	default:
		return false
	}
}

// Feature is a unit of backlog work with dependencies, status, and audit trail.
//
// ID is a stable integer identity, monotonic within a project. Priority is
// the tie-break order when scheduling: lower wins, ties broken by ID.
type Feature struct {
	ID          int64  `json:"id"`
	Priority    int64  `json:"priority"`
	Category    string `json:"category"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// Steps is an ordered list of implementation/verification hints.
	Steps []string `json:"steps,omitempty"`

	// Dependencies is the set of feature IDs this feature depends on, stored
	// sorted and deduplicated. Never contains ID itself.
	Dependencies []int64 `json:"dependencies,omitempty"`

	Passes      bool         `json:"passes"`
	InProgress  bool         `json:"in_progress"`
	ReviewStatus ReviewStatus `json:"review_status"`
	ReviewNotes string       `json:"review_notes,omitempty"`

	// External-sync fields: opaque carry-through metadata, untouched by the core.
	PlanningWorkItemID string     `json:"planning_work_item_id,omitempty"`
	SyncedAt           *time.Time `json:"synced_at,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
	LastStatusHash     string     `json:"last_status_hash,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Blocked reports whether f has at least one dependency that has not passed,
// given the full snapshot of features keyed by ID. It does not mutate f or
// the snapshot.
func (f Feature) Blocked(snapshot map[int64]Feature) bool {
	for _, dep := range f.Dependencies {
		d, ok := snapshot[dep]
		if !ok || !d.Passes {
			return true
		}
	}
	return false
}

// Ready reports whether f is pending, unclaimed, and unblocked.
func (f Feature) Ready(snapshot map[int64]Feature) bool {
	return !f.Passes && !f.InProgress && !f.Blocked(snapshot)
}

// Valid reports whether f satisfies the invariants that must hold for any
// feature at rest: passes and in_progress are mutually exclusive, and no
// dependency references the feature itself.
func (f Feature) Valid() bool {
	if f.Passes && f.InProgress {
		return false
	}
	for _, d := range f.Dependencies {
		if d == f.ID {
			return false
		}
	}
	return len(f.Dependencies) <= MaxDependencies
}
