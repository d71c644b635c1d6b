package models

// StoreOperation names one feature-store API call a worker is permitted to
// invoke over its narrow, role-scoped IPC channel.
type StoreOperation string

const (
	OpCreateBulk       StoreOperation = "create_bulk"
	OpCreate           StoreOperation = "create"
	OpGetByID          StoreOperation = "get_by_id"
	OpGetSummary       StoreOperation = "get_summary"
	OpClaimAndGet      StoreOperation = "claim_and_get"
	OpMarkInProgress   StoreOperation = "mark_in_progress"
	OpMarkPassing      StoreOperation = "mark_passing"
	OpMarkFailing      StoreOperation = "mark_failing"
	OpMarkForReview    StoreOperation = "mark_for_review"
	OpSkip             StoreOperation = "skip"
	OpClearInProgress  StoreOperation = "clear_in_progress"
	OpAddDependency    StoreOperation = "add_dependency"
	OpSetDependencies  StoreOperation = "set_dependencies"
	OpMemoryStore      StoreOperation = "memory_store"
	OpMemoryRecall     StoreOperation = "memory_recall"
	OpApprove          StoreOperation = "approve"
	OpReject           StoreOperation = "reject"
)

// Role is the tagged variant over which worker subprocesses operate.
// Architect is a variant of Initializer that only writes memories; it
// shares Initializer's tier, but its allowed operations are limited to
// memory store/recall, so it never mutates features directly.
type Role string

const (
	RoleInitializer Role = "initializer"
	RoleCoding      Role = "coding"
	RoleTesting     Role = "testing"
	RoleReviewer    Role = "reviewer"
	RoleArchitect   Role = "architect"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RoleInitializer, RoleCoding, RoleTesting, RoleReviewer, RoleArchitect:
		return true
	default:
		return false
	}
}

// roleSpec is the static per-role table: allowed store operations, the
// worker turn budget, and the model tier the active provider profile
// resolves at launch.
type roleSpec struct {
	allowedOps []StoreOperation
	maxTurns   int
	modelTier  ModelTier
}

var roleTable = map[Role]roleSpec{
	RoleInitializer: {
		allowedOps: []StoreOperation{
			OpCreateBulk, OpCreate, OpAddDependency, OpSetDependencies,
			OpMemoryStore, OpMemoryRecall,
		},
		maxTurns:  300,
		modelTier: ModelTierOpus,
	},
	RoleCoding: {
		allowedOps: []StoreOperation{
			OpGetByID, OpGetSummary, OpClaimAndGet, OpMarkInProgress,
			OpMarkPassing, OpMarkFailing, OpMarkForReview, OpSkip,
			OpClearInProgress, OpMemoryStore, OpMemoryRecall,
		},
		maxTurns:  300,
		modelTier: ModelTierSonnet,
	},
	RoleTesting: {
		allowedOps: []StoreOperation{OpGetByID, OpGetSummary, OpMarkPassing, OpMarkFailing},
		maxTurns:   100,
		modelTier:  ModelTierHaiku,
	},
	RoleReviewer: {
		allowedOps: []StoreOperation{OpGetByID, OpGetSummary, OpApprove, OpReject, OpMemoryRecall},
		maxTurns:   50,
		// Reviewer shares the coding role's tier.
		modelTier: ModelTierSonnet,
	},
	RoleArchitect: {
		allowedOps: []StoreOperation{OpMemoryStore, OpMemoryRecall},
		maxTurns:   300,
		modelTier:  ModelTierOpus,
	},
}

// AllowedOps returns the store operations permitted to r. The returned
// slice is a defensive copy.
func (r Role) AllowedOps() []StoreOperation {
	spec, ok := roleTable[r]
	if !ok {
		return nil
	}
	out := make([]StoreOperation, len(spec.allowedOps))
	copy(out, spec.allowedOps)
	return out
}

// Allows reports whether r may invoke op.
func (r Role) Allows(op StoreOperation) bool {
	for _, allowed := range roleTable[r].allowedOps {
		if allowed == op {
			return true
		}
	}
	return false
}

// MaxTurns returns the worker turn budget for r, or 0 if r is unknown.
func (r Role) MaxTurns() int {
	return roleTable[r].maxTurns
}

// ModelTier returns the model tier r resolves against the active provider
// profile, or "" if r is unknown.
func (r Role) ModelTier() ModelTier {
	return roleTable[r].modelTier
}
