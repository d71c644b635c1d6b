package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/autoforge/engine/internal/xerr"
	"github.com/autoforge/engine/pkg/models"
)

// StoreMemory writes a new value into the (category, memory_key) slot. If
// the slot is already occupied by a current (non-superseded) row, that row
// is not overwritten: it is marked superseded by the newly inserted row,
// preserving the full history of a slot rather than clobbering it.
func (s *Store) StoreMemory(ctx context.Context, category models.MemoryCategory, key, value string, featureID *int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !category.Valid() {
		return 0, xerr.New(xerr.Programmer, errInvalidCategory(category))
	}

	tx, err := s.beginImmediate(ctx)
	if err != nil {
		return 0, xerr.New(xerr.Transient, err)
	}
	defer tx.Rollback()

	var previousID int64
	row := tx.QueryRowContext(ctx, `
		SELECT id FROM agent_memory
		WHERE category = ? AND memory_key = ? AND superseded_by IS NULL
		ORDER BY id DESC LIMIT 1`, category, key)
	hasPrevious := true
	if err := row.Scan(&previousID); errors.Is(err, sql.ErrNoRows) {
		hasPrevious = false
	} else if err != nil {
		return 0, xerr.New(xerr.Transient, err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO agent_memory (category, memory_key, value, feature_id, relevance_count, created_at)
		VALUES (?, ?, ?, ?, 0, ?)`,
		category, key, value, nullableInt64(featureID), time.Now().UTC())
	if err != nil {
		return 0, xerr.New(xerr.Transient, err)
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return 0, xerr.New(xerr.Transient, err)
	}

	if hasPrevious {
		if _, err := tx.ExecContext(ctx, "UPDATE agent_memory SET superseded_by = ? WHERE id = ?", newID, previousID); err != nil {
			return 0, xerr.New(xerr.Transient, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, xerr.New(xerr.Transient, err)
	}
	return newID, nil
}

// RecallMemory returns the current (non-superseded) rows across every
// slot, optionally filtered to a category, incrementing each returned
// row's relevance_count.
func (s *Store) RecallMemory(ctx context.Context, category models.MemoryCategory) ([]models.AgentMemory, error) {
	return s.recall(ctx, "WHERE superseded_by IS NULL AND (? = '' OR category = ?)", string(category), string(category))
}

// RecallMemoryForFeature returns the current rows scoped to one feature,
// incrementing relevance_count on each returned row.
func (s *Store) RecallMemoryForFeature(ctx context.Context, featureID int64) ([]models.AgentMemory, error) {
	return s.recall(ctx, "WHERE superseded_by IS NULL AND feature_id = ?", featureID)
}

func (s *Store) recall(ctx context.Context, where string, args ...any) ([]models.AgentMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.beginImmediate(ctx)
	if err != nil {
		return nil, xerr.New(xerr.Transient, err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, category, memory_key, value, feature_id, relevance_count, superseded_by, created_at
		FROM agent_memory `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, xerr.New(xerr.Transient, err)
	}

	var out []models.AgentMemory
	var ids []int64
	for rows.Next() {
		var m models.AgentMemory
		var featureID sql.NullInt64
		var supersededBy sql.NullInt64
		if err := rows.Scan(&m.ID, &m.Category, &m.MemoryKey, &m.Value, &featureID,
			&m.RelevanceCount, &supersededBy, &m.CreatedAt); err != nil {
			rows.Close()
			return nil, xerr.New(xerr.Transient, err)
		}
		if featureID.Valid {
			v := featureID.Int64
			m.FeatureID = &v
		}
		if supersededBy.Valid {
			v := supersededBy.Int64
			m.SupersededBy = &v
		}
		out = append(out, m)
		ids = append(ids, m.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, xerr.New(xerr.Transient, err)
	}

	for i := range ids {
		if _, err := tx.ExecContext(ctx, "UPDATE agent_memory SET relevance_count = relevance_count + 1 WHERE id = ?", ids[i]); err != nil {
			return nil, xerr.New(xerr.Transient, err)
		}
		out[i].RelevanceCount++
	}

	if err := tx.Commit(); err != nil {
		return nil, xerr.New(xerr.Transient, err)
	}
	return out, nil
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func errInvalidCategory(c models.MemoryCategory) error {
	return &invalidCategoryError{c: c}
}

type invalidCategoryError struct{ c models.MemoryCategory }

func (e *invalidCategoryError) Error() string {
	return "invalid memory category: " + string(e.c)
}
