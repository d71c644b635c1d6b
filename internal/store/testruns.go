package store

import (
	"context"

	"github.com/autoforge/engine/internal/xerr"
	"github.com/autoforge/engine/pkg/models"
)

// AppendTestRun records one append-only audit row for a completed test
// or coding pass. TestRun rows are never updated; they cascade-delete
// with their parent feature (ON DELETE CASCADE, PRAGMA foreign_keys=ON).
func (s *Store) AppendTestRun(ctx context.Context, run models.TestRun) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !run.AgentType.Valid() {
		return 0, xerr.New(xerr.Programmer, errInvalidAgentType(run.AgentType))
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO test_runs (feature_id, passed, agent_type, agent_pid, feature_ids_in_batch, started_at, completed_at, return_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.FeatureID, boolToInt(run.Passed), run.AgentType, run.AgentPID,
		encodeInt64s(run.FeatureIDsInBatch), run.StartedAt, run.CompletedAt, run.ReturnCode)
	if err != nil {
		return 0, xerr.New(xerr.Transient, err)
	}
	return res.LastInsertId()
}

// TestRunsForFeature returns every recorded run for a feature, most
// recent first.
func (s *Store) TestRunsForFeature(ctx context.Context, featureID int64) ([]models.TestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, feature_id, passed, agent_type, agent_pid, feature_ids_in_batch, started_at, completed_at, return_code
		FROM test_runs WHERE feature_id = ? ORDER BY started_at DESC`, featureID)
	if err != nil {
		return nil, xerr.New(xerr.Transient, err)
	}
	defer rows.Close()

	var out []models.TestRun
	for rows.Next() {
		var r models.TestRun
		var passed int64
		var batch string
		if err := rows.Scan(&r.ID, &r.FeatureID, &passed, &r.AgentType, &r.AgentPID, &batch,
			&r.StartedAt, &r.CompletedAt, &r.ReturnCode); err != nil {
			return nil, xerr.New(xerr.Transient, err)
		}
		r.Passed = intToBool(passed)
		r.FeatureIDsInBatch = decodeInt64s(batch)
		out = append(out, r)
	}
	return out, rows.Err()
}

func errInvalidAgentType(t models.AgentType) error {
	return &invalidAgentTypeError{t: t}
}

type invalidAgentTypeError struct{ t models.AgentType }

func (e *invalidAgentTypeError) Error() string {
	return "invalid agent type: " + string(e.t)
}
