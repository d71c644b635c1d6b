package models

import "time"

// MemoryCategory classifies an AgentMemory row.
type MemoryCategory string

const (
	MemoryCategoryDecision       MemoryCategory = "decision"
	MemoryCategoryPattern        MemoryCategory = "pattern"
	MemoryCategoryLearning       MemoryCategory = "learning"
	MemoryCategoryArchitecture   MemoryCategory = "architecture"
	MemoryCategorySpecConstraint MemoryCategory = "spec_constraint"
)

// Valid returns true if the category is a known value.
func (c MemoryCategory) Valid() bool {
	switch c {
	case MemoryCategoryDecision, MemoryCategoryPattern, MemoryCategoryLearning,
		MemoryCategoryArchitecture, MemoryCategorySpecConstraint:
		return true
	default:
		return false
	}
}

// AgentMemory is an append-only note left by a worker. The pair
// (Category, MemoryKey) identifies a logical slot: storing a new value for
// an occupied slot never overwrites the previous row, it inserts a new row
// and sets the previous row's SupersededBy to the new row's ID.
type AgentMemory struct {
	ID             int64          `json:"id"`
	Category       MemoryCategory `json:"category"`
	MemoryKey      string         `json:"memory_key"`
	Value          string         `json:"value"`
	FeatureID      *int64         `json:"feature_id,omitempty"`
	RelevanceCount int64          `json:"relevance_count"`
	SupersededBy   *int64         `json:"superseded_by,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Current reports whether this row is the live value for its slot.
func (m AgentMemory) Current() bool {
	return m.SupersededBy == nil
}
