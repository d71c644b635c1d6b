package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/autoforge/engine/internal/graph"
	"github.com/autoforge/engine/internal/xerr"
	"github.com/autoforge/engine/pkg/models"
)

// FeatureInput is one entry of a create_features_bulk request.
// DependsOnIndices references positions within the same batch; only
// backward references (index < self-index) are allowed.
type FeatureInput struct {
	Category          string
	Name              string
	Description       string
	Steps             []string
	DependsOnIndices  []int
}

// BulkResult summarizes a create_features_bulk call.
type BulkResult struct {
	Created          int
	WithDependencies int
}

func encodeStrings(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeStrings(s string) []string {
	var v []string
	if s == "" {
		return nil
	}
	_ = json.Unmarshal([]byte(s), &v)
	return v
}

func encodeInt64s(v []int64) string {
	sorted := append([]int64(nil), v...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	sorted = dedupeInt64(sorted)
	if sorted == nil {
		sorted = []int64{}
	}
	b, _ := json.Marshal(sorted)
	return string(b)
}

func dedupeInt64(sorted []int64) []int64 {
	out := sorted[:0:0]
	var last int64
	first := true
	for _, v := range sorted {
		if first || v != last {
			out = append(out, v)
			last = v
			first = false
		}
	}
	return out
}

func decodeInt64s(s string) []int64 {
	var v []int64
	if s == "" {
		return nil
	}
	_ = json.Unmarshal([]byte(s), &v)
	return v
}

// CreateFeaturesBulk atomically inserts a batch of features. depends_on
// indices are positions within the batch; forward and self references
// are rejected with a Programmer error, and out-of-range indices,
// duplicate dependencies, and entries exceeding models.MaxDependencies
// with a Constraint error. A rejected batch writes nothing.
func (s *Store) CreateFeaturesBulk(ctx context.Context, inputs []FeatureInput) (BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, in := range inputs {
		seen := map[int]bool{}
		for _, idx := range in.DependsOnIndices {
			if idx >= i {
				return BulkResult{}, xerr.New(xerr.Programmer, fmt.Errorf("feature %d: forward dependency reference to %d", i, idx))
			}
			if idx < 0 || idx >= len(inputs) {
				return BulkResult{}, xerr.New(xerr.Constraint, fmt.Errorf("feature %d: dependency index %d out of range", i, idx))
			}
			if seen[idx] {
				return BulkResult{}, xerr.New(xerr.Constraint, fmt.Errorf("feature %d: duplicate dependency index %d", i, idx))
			}
			seen[idx] = true
		}
		if len(seen) > models.MaxDependencies {
			return BulkResult{}, xerr.New(xerr.Constraint, fmt.Errorf("feature %d: exceeds max dependencies", i))
		}
	}

	tx, err := s.beginImmediate(ctx)
	if err != nil {
		return BulkResult{}, xerr.New(xerr.Transient, err)
	}
	defer tx.Rollback()

	var maxPriority int64
	row := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(priority), 0) FROM features")
	if err := row.Scan(&maxPriority); err != nil {
		return BulkResult{}, xerr.New(xerr.Transient, err)
	}

	now := time.Now().UTC()
	ids := make([]int64, len(inputs))
	result := BulkResult{}

	for i, in := range inputs {
		priority := maxPriority + int64(i) + 1
		res, err := tx.ExecContext(ctx, `
			INSERT INTO features (priority, category, name, description, steps, dependencies, passes, in_progress, review_status, updated_at, created_at)
			VALUES (?, ?, ?, ?, ?, '[]', 0, 0, 'none', ?, ?)`,
			priority, in.Category, in.Name, in.Description, encodeStrings(in.Steps), now, now)
		if err != nil {
			return BulkResult{}, xerr.New(xerr.Transient, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return BulkResult{}, xerr.New(xerr.Transient, err)
		}
		ids[i] = id
		result.Created++
	}

	for i, in := range inputs {
		if len(in.DependsOnIndices) == 0 {
			continue
		}
		deps := make([]int64, 0, len(in.DependsOnIndices))
		for _, idx := range in.DependsOnIndices {
			deps = append(deps, ids[idx])
		}
		if _, err := tx.ExecContext(ctx, "UPDATE features SET dependencies = ? WHERE id = ?", encodeInt64s(deps), ids[i]); err != nil {
			return BulkResult{}, xerr.New(xerr.Transient, err)
		}
		result.WithDependencies++
	}

	if err := tx.Commit(); err != nil {
		return BulkResult{}, xerr.New(xerr.Transient, err)
	}
	return result, nil
}

var featureColumns = `id, priority, category, name, description, steps, dependencies, passes, in_progress,
	review_status, review_notes, planning_work_item_id, synced_at, updated_at, last_status_hash, created_at`

func scanFeature(row interface{ Scan(...any) error }) (models.Feature, error) {
	var f models.Feature
	var steps, deps string
	var passes, inProgress int64
	var syncedAt sql.NullTime
	err := row.Scan(&f.ID, &f.Priority, &f.Category, &f.Name, &f.Description, &steps, &deps,
		&passes, &inProgress, &f.ReviewStatus, &f.ReviewNotes, &f.PlanningWorkItemID, &syncedAt,
		&f.UpdatedAt, &f.LastStatusHash, &f.CreatedAt)
	if err != nil {
		return models.Feature{}, err
	}
	f.Steps = decodeStrings(steps)
	f.Dependencies = decodeInt64s(deps)
	f.Passes = intToBool(passes)
	f.InProgress = intToBool(inProgress)
	if syncedAt.Valid {
		t := syncedAt.Time
		f.SyncedAt = &t
	}
	return f, nil
}

// GetByID returns a single feature, or a NotFound error.
func (s *Store) GetByID(ctx context.Context, id int64) (models.Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, "SELECT "+featureColumns+" FROM features WHERE id = ?", id)
	f, err := scanFeature(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Feature{}, xerr.New(xerr.NotFound, fmt.Errorf("feature %d not found", id))
	}
	if err != nil {
		return models.Feature{}, xerr.New(xerr.Transient, err)
	}
	return f, nil
}

// Snapshot returns every feature in the project keyed by ID, the view the
// resolver (internal/graph) operates over for one scheduling tick.
func (s *Store) Snapshot(ctx context.Context) (graph.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, "SELECT "+featureColumns+" FROM features")
	if err != nil {
		return nil, xerr.New(xerr.Transient, err)
	}
	defer rows.Close()

	snap := graph.Snapshot{}
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, xerr.New(xerr.Transient, err)
		}
		snap[f.ID] = f
	}
	return snap, rows.Err()
}

// Counts reads {passing, in_progress, total} with a single light query.
type Counts struct {
	Passing    int
	InProgress int
	Total      int
}

// Counts returns the aggregate feature counts the orchestrator's loop
// checks every tick for completion.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c Counts
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(passes), 0), COALESCE(SUM(in_progress), 0)
		FROM features`)
	var passing, inProgress int64
	if err := row.Scan(&c.Total, &passing, &inProgress); err != nil {
		return Counts{}, xerr.New(xerr.Transient, err)
	}
	c.Passing = int(passing)
	c.InProgress = int(inProgress)
	return c, nil
}

// ClaimAndGet atomically sets in_progress=true iff the feature is
// currently (passes=false, in_progress=false). AlreadyClaimed is true
// when another caller already holds the claim; such callers must treat
// their own earlier claim as still valid.
type ClaimResult struct {
	Feature        models.Feature
	AlreadyClaimed bool
}

func (s *Store) ClaimAndGet(ctx context.Context, id int64) (ClaimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.beginImmediate(ctx)
	if err != nil {
		return ClaimResult{}, xerr.New(xerr.Transient, err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, "SELECT "+featureColumns+" FROM features WHERE id = ?", id)
	f, err := scanFeature(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ClaimResult{}, xerr.New(xerr.NotFound, fmt.Errorf("feature %d not found", id))
	}
	if err != nil {
		return ClaimResult{}, xerr.New(xerr.Transient, err)
	}

	if f.Passes || f.InProgress {
		return ClaimResult{Feature: f, AlreadyClaimed: true}, xerr.New(xerr.Transient, tx.Commit())
	}

	if _, err := tx.ExecContext(ctx, "UPDATE features SET in_progress = 1, updated_at = ? WHERE id = ?", time.Now().UTC(), id); err != nil {
		return ClaimResult{}, xerr.New(xerr.Transient, err)
	}
	if err := tx.Commit(); err != nil {
		return ClaimResult{}, xerr.New(xerr.Transient, err)
	}
	f.InProgress = true
	return ClaimResult{Feature: f, AlreadyClaimed: false}, nil
}

// MarkPassing succeeds only if the feature is not already passing.
func (s *Store) MarkPassing(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.beginImmediate(ctx)
	if err != nil {
		return xerr.New(xerr.Transient, err)
	}
	defer tx.Rollback()

	var passes int64
	row := tx.QueryRowContext(ctx, "SELECT passes FROM features WHERE id = ?", id)
	if err := row.Scan(&passes); errors.Is(err, sql.ErrNoRows) {
		return xerr.New(xerr.NotFound, fmt.Errorf("feature %d not found", id))
	} else if err != nil {
		return xerr.New(xerr.Transient, err)
	}
	if intToBool(passes) {
		return xerr.New(xerr.Constraint, fmt.Errorf("feature %d already passing", id))
	}

	if _, err := tx.ExecContext(ctx, "UPDATE features SET passes = 1, in_progress = 0, updated_at = ? WHERE id = ?", time.Now().UTC(), id); err != nil {
		return xerr.New(xerr.Transient, err)
	}
	return xerr.New(xerr.Transient, tx.Commit())
}

// MarkFailing always clears passes and in_progress; it never errors on
// state (only when the feature does not exist, or on store-level failure).
func (s *Store) MarkFailing(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, "UPDATE features SET passes = 0, in_progress = 0, updated_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return xerr.New(xerr.Transient, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return xerr.New(xerr.Transient, err)
	}
	if n == 0 {
		return xerr.New(xerr.NotFound, fmt.Errorf("feature %d not found", id))
	}
	return nil
}

// ClearInProgress is an idempotent release: it never errors on state.
func (s *Store) ClearInProgress(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, "UPDATE features SET in_progress = 0, updated_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return xerr.New(xerr.Transient, err)
	}
	return nil
}

// Skip moves a feature to the end of the priority queue. Rejected if the
// feature is already passing.
func (s *Store) Skip(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.beginImmediate(ctx)
	if err != nil {
		return xerr.New(xerr.Transient, err)
	}
	defer tx.Rollback()

	var passes int64
	row := tx.QueryRowContext(ctx, "SELECT passes FROM features WHERE id = ?", id)
	if err := row.Scan(&passes); errors.Is(err, sql.ErrNoRows) {
		return xerr.New(xerr.NotFound, fmt.Errorf("feature %d not found", id))
	} else if err != nil {
		return xerr.New(xerr.Transient, err)
	}
	if intToBool(passes) {
		return xerr.New(xerr.Constraint, fmt.Errorf("feature %d already passing, cannot skip", id))
	}

	var maxPriority int64
	row = tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(priority), 0) FROM features")
	if err := row.Scan(&maxPriority); err != nil {
		return xerr.New(xerr.Transient, err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE features SET priority = ?, in_progress = 0, updated_at = ? WHERE id = ?",
		maxPriority+1, time.Now().UTC(), id); err != nil {
		return xerr.New(xerr.Transient, err)
	}
	return xerr.New(xerr.Transient, tx.Commit())
}

// Approve and Reject transition review_status for a feature a reviewer
// worker has examined.
func (s *Store) Approve(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, "UPDATE features SET review_status = ?, review_notes = '', updated_at = ? WHERE id = ?",
		models.ReviewStatusApproved, time.Now().UTC(), id)
	return rowsAffectedErr(res, err, id)
}

func (s *Store) Reject(ctx context.Context, id int64, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, "UPDATE features SET review_status = ?, review_notes = ?, updated_at = ? WHERE id = ?",
		models.ReviewStatusRejected, notes, time.Now().UTC(), id)
	return rowsAffectedErr(res, err, id)
}

// MarkForReview sets review_status to pending_review.
func (s *Store) MarkForReview(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, "UPDATE features SET review_status = ?, updated_at = ? WHERE id = ?",
		models.ReviewStatusPending, time.Now().UTC(), id)
	return rowsAffectedErr(res, err, id)
}

func rowsAffectedErr(res sql.Result, err error, id int64) error {
	if err != nil {
		return xerr.New(xerr.Transient, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return xerr.New(xerr.Transient, err)
	}
	if n == 0 {
		return xerr.New(xerr.NotFound, fmt.Errorf("feature %d not found", id))
	}
	return nil
}

// AddDependency validates existence, self-reference, the dependency-count
// limit, and refuses a cycle (§4.B) before writing the normalized,
// sorted edge set.
func (s *Store) AddDependency(ctx context.Context, featureID, depID int64) error {
	return s.mutateDependencies(ctx, featureID, func(current []int64, snap map[int64]models.Feature) ([]int64, error) {
		if featureID == depID {
			return nil, xerr.New(xerr.Programmer, fmt.Errorf("feature %d cannot depend on itself", featureID))
		}
		if _, ok := snap[depID]; !ok {
			return nil, xerr.New(xerr.NotFound, fmt.Errorf("dependency %d not found", depID))
		}
		for _, d := range current {
			if d == depID {
				return current, nil // already present; idempotent no-op.
			}
		}
		if len(current)+1 > models.MaxDependencies {
			return nil, xerr.New(xerr.Constraint, fmt.Errorf("feature %d would exceed max dependencies", featureID))
		}
		if graph.WouldCycle(snap, featureID, depID) {
			return nil, xerr.New(xerr.Programmer, fmt.Errorf("adding dependency %d->%d would cycle", featureID, depID))
		}
		return append(append([]int64(nil), current...), depID), nil
	})
}

// RemoveDependency removes depID from featureID's dependency set, if
// present. Removing an edge can never introduce a cycle or violate a
// limit, so only existence of featureID is checked.
func (s *Store) RemoveDependency(ctx context.Context, featureID, depID int64) error {
	return s.mutateDependencies(ctx, featureID, func(current []int64, _ map[int64]models.Feature) ([]int64, error) {
		out := make([]int64, 0, len(current))
		for _, d := range current {
			if d != depID {
				out = append(out, d)
			}
		}
		return out, nil
	})
}

// SetDependencies replaces featureID's entire dependency set, subject to
// the same validation as AddDependency applied edge-by-edge.
func (s *Store) SetDependencies(ctx context.Context, featureID int64, depIDs []int64) error {
	return s.mutateDependencies(ctx, featureID, func(_ []int64, snap map[int64]models.Feature) ([]int64, error) {
		seen := map[int64]bool{}
		var out []int64
		for _, depID := range depIDs {
			if depID == featureID {
				return nil, xerr.New(xerr.Programmer, fmt.Errorf("feature %d cannot depend on itself", featureID))
			}
			if _, ok := snap[depID]; !ok {
				return nil, xerr.New(xerr.NotFound, fmt.Errorf("dependency %d not found", depID))
			}
			if seen[depID] {
				continue
			}
			seen[depID] = true
			out = append(out, depID)
		}
		if len(out) > models.MaxDependencies {
			return nil, xerr.New(xerr.Constraint, fmt.Errorf("feature %d would exceed max dependencies", featureID))
		}
		// Validate the whole replacement graph at once: temporarily drop
		// featureID's existing edges from the snapshot before testing
		// each new edge for a cycle.
		trimmed := snap[featureID]
		trimmed.Dependencies = nil
		probe := map[int64]models.Feature{}
		for k, v := range snap {
			probe[k] = v
		}
		probe[featureID] = trimmed
		for _, depID := range out {
			if graph.WouldCycle(probe, featureID, depID) {
				return nil, xerr.New(xerr.Programmer, fmt.Errorf("dependency set for %d would cycle via %d", featureID, depID))
			}
			f := probe[featureID]
			f.Dependencies = append(f.Dependencies, depID)
			probe[featureID] = f
		}
		return out, nil
	})
}

// mutateDependencies runs an immediate transaction, loads the full
// snapshot and the current feature, applies fn to compute the new edge
// set, and writes it back normalized (sorted, deduplicated).
func (s *Store) mutateDependencies(ctx context.Context, featureID int64, fn func(current []int64, snap map[int64]models.Feature) ([]int64, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.beginImmediate(ctx)
	if err != nil {
		return xerr.New(xerr.Transient, err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, "SELECT "+featureColumns+" FROM features")
	if err != nil {
		return xerr.New(xerr.Transient, err)
	}
	snap := map[int64]models.Feature{}
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			rows.Close()
			return xerr.New(xerr.Transient, err)
		}
		snap[f.ID] = f
	}
	rows.Close()

	f, ok := snap[featureID]
	if !ok {
		return xerr.New(xerr.NotFound, fmt.Errorf("feature %d not found", featureID))
	}

	next, err := fn(f.Dependencies, snap)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "UPDATE features SET dependencies = ?, updated_at = ? WHERE id = ?",
		encodeInt64s(next), time.Now().UTC(), featureID); err != nil {
		return xerr.New(xerr.Transient, err)
	}
	return xerr.New(xerr.Transient, tx.Commit())
}
