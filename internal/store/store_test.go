package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/autoforge/engine/internal/xerr"
	"github.com/autoforge/engine/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(context.Background(), filepath.Join(dir, "forge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateFeaturesBulkAssignsContiguousPriorityAndResolvesDeps(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	res, err := s.CreateFeaturesBulk(ctx, []FeatureInput{
		{Name: "base", Category: "core"},
		{Name: "depends on base", Category: "core", DependsOnIndices: []int{0}},
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.Created)
	require.Equal(t, 1, res.WithDependencies)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 2)

	var base, dependent models.Feature
	for _, f := range snap {
		if f.Name == "base" {
			base = f
		} else {
			dependent = f
		}
	}
	require.Equal(t, []int64{base.ID}, dependent.Dependencies)
	require.True(t, base.Priority < dependent.Priority)
}

func TestCreateFeaturesBulkRejectsForwardReference(t *testing.T) {
	s := openTestStore(t)
	_, err := s.CreateFeaturesBulk(context.Background(), []FeatureInput{
		{Name: "a", DependsOnIndices: []int{1}},
		{Name: "b"},
	})
	require.Error(t, err)
	require.Equal(t, xerr.Programmer, xerr.Of(err))

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	require.Empty(t, snap, "rejected batch must not write anything")
}

func TestClaimAndGetIsAtomicAndIdempotentlyReported(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.CreateFeaturesBulk(ctx, []FeatureInput{{Name: "solo"}})
	require.NoError(t, err)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	var id int64
	for k := range snap {
		id = k
	}

	first, err := s.ClaimAndGet(ctx, id)
	require.NoError(t, err)
	require.False(t, first.AlreadyClaimed)
	require.True(t, first.Feature.InProgress)

	second, err := s.ClaimAndGet(ctx, id)
	require.NoError(t, err)
	require.True(t, second.AlreadyClaimed)
}

func TestMarkPassingRejectsDoubleCompletion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.CreateFeaturesBulk(ctx, []FeatureInput{{Name: "solo"}})
	require.NoError(t, err)
	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	var id int64
	for k := range snap {
		id = k
	}

	require.NoError(t, s.MarkPassing(ctx, id))
	err = s.MarkPassing(ctx, id)
	require.Error(t, err)
	require.Equal(t, xerr.Constraint, xerr.Of(err))
}

func TestMarkPassingNotFound(t *testing.T) {
	s := openTestStore(t)
	err := s.MarkPassing(context.Background(), 999)
	require.Equal(t, xerr.NotFound, xerr.Of(err))
}

func TestSkipMovesFeatureToEndOfQueue(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.CreateFeaturesBulk(ctx, []FeatureInput{{Name: "a"}, {Name: "b"}})
	require.NoError(t, err)
	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)

	var aID int64
	for _, f := range snap {
		if f.Name == "a" {
			aID = f.ID
		}
	}
	require.NoError(t, s.Skip(ctx, aID))

	snap, err = s.Snapshot(ctx)
	require.NoError(t, err)
	require.True(t, snap[aID].Priority > snap[otherID(snap, aID)].Priority)
}

func otherID(snap map[int64]models.Feature, exclude int64) int64 {
	for id := range snap {
		if id != exclude {
			return id
		}
	}
	return 0
}

func TestAddDependencyRejectsCycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.CreateFeaturesBulk(ctx, []FeatureInput{{Name: "a"}, {Name: "b", DependsOnIndices: []int{0}}})
	require.NoError(t, err)
	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)

	var aID, bID int64
	for _, f := range snap {
		if f.Name == "a" {
			aID = f.ID
		} else {
			bID = f.ID
		}
	}

	err = s.AddDependency(ctx, aID, bID)
	require.Error(t, err)
	require.Equal(t, xerr.Programmer, xerr.Of(err))
}

func TestAddDependencyRejectsSelfReference(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.CreateFeaturesBulk(ctx, []FeatureInput{{Name: "a"}})
	require.NoError(t, err)
	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	var id int64
	for k := range snap {
		id = k
	}
	err = s.AddDependency(ctx, id, id)
	require.Equal(t, xerr.Programmer, xerr.Of(err))
}

func TestStoreMemorySupersedesRatherThanOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	firstID, err := s.StoreMemory(ctx, models.MemoryCategoryDecision, "auth-strategy", "use JWT", nil)
	require.NoError(t, err)

	secondID, err := s.StoreMemory(ctx, models.MemoryCategoryDecision, "auth-strategy", "use sessions", nil)
	require.NoError(t, err)
	require.NotEqual(t, firstID, secondID)

	current, err := s.RecallMemory(ctx, models.MemoryCategoryDecision)
	require.NoError(t, err)
	require.Len(t, current, 1)
	require.Equal(t, "use sessions", current[0].Value)
	require.Equal(t, secondID, current[0].ID)
}

func TestRecallMemoryIncrementsRelevanceCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.StoreMemory(ctx, models.MemoryCategoryPattern, "retry", "backoff on 429", nil)
	require.NoError(t, err)

	first, err := s.RecallMemory(ctx, models.MemoryCategoryPattern)
	require.NoError(t, err)
	require.Equal(t, int64(1), first[0].RelevanceCount)

	second, err := s.RecallMemory(ctx, models.MemoryCategoryPattern)
	require.NoError(t, err)
	require.Equal(t, int64(2), second[0].RelevanceCount)
}

func TestAppendTestRunRecordsAuditRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.CreateFeaturesBulk(ctx, []FeatureInput{{Name: "a"}})
	require.NoError(t, err)
	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	var id int64
	for k := range snap {
		id = k
	}

	now := time.Now().UTC()
	_, err = s.AppendTestRun(ctx, models.TestRun{
		FeatureID:   id,
		Passed:      true,
		AgentType:   models.AgentTypeTesting,
		StartedAt:   now,
		CompletedAt: now.Add(time.Second),
		ReturnCode:  0,
	})
	require.NoError(t, err)

	runs, err := s.TestRunsForFeature(ctx, id)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.True(t, runs[0].Passed)
}
