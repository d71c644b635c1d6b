package graph

import (
	"testing"

	"github.com/autoforge/engine/pkg/models"
	"github.com/stretchr/testify/require"
)

func feature(id int64, passes, inProgress bool, deps ...int64) models.Feature {
	return models.Feature{ID: id, Priority: id, Passes: passes, InProgress: inProgress, Dependencies: deps}
}

func TestReadyIffUnblocked(t *testing.T) {
	snap := Snapshot{
		1: feature(1, false, false),
		2: feature(2, false, false, 1),
	}
	require.Len(t, ReadyFeatures(snap, 0), 1)
	require.Equal(t, int64(1), ReadyFeatures(snap, 0)[0].ID)

	snap[1] = feature(1, true, false)
	ready := ReadyFeatures(snap, 0)
	require.Len(t, ready, 1)
	require.Equal(t, int64(2), ready[0].ID)
}

func TestDependencyUnblockScenario(t *testing.T) {
	// Features A(id=1, no deps), B(id=2, deps=[1]).
	snap := Snapshot{
		1: feature(1, false, false),
		2: feature(2, false, false, 1),
	}
	bset := BlockedFeatures(snap, 0)
	require.Len(t, bset, 1)
	require.Equal(t, int64(2), bset[0].Feature.ID)

	a := snap[1]
	a.Passes = true
	snap[1] = a
	ready := ReadyFeatures(snap, 10)
	require.Len(t, ready, 1)
	require.Equal(t, int64(2), ready[0].ID)
}

func TestWouldCycleRefusesSelfAndReachable(t *testing.T) {
	// 2 depends on 1, 3 depends on 2.
	snap := Snapshot{
		1: feature(1, false, false),
		2: feature(2, false, false, 1),
		3: feature(3, false, false, 2),
	}
	require.True(t, WouldCycle(snap, 1, 1))
	// Adding edge 1 -> 3 (1 depends on 3): 3 already depends (transitively) on 1, so 1 is reachable from 3.
	require.True(t, WouldCycle(snap, 1, 3))
	// Adding 4 -> 1 is fine: 1 depends on nothing, so 4 is not reachable from 1.
	require.False(t, WouldCycle(snap, 4, 1))
}

func TestSchedulingScoreDeterministic(t *testing.T) {
	snap := Snapshot{
		1: feature(1, false, false),
		2: feature(2, false, false, 1),
		3: feature(3, false, false, 1),
	}
	first := ReadyFeatures(snap, 0)
	second := ReadyFeatures(snap, 0)
	require.Equal(t, first, second)
	// Feature 1 unblocks both 2 and 3; it must be the only ready feature
	// right now (2 and 3 are blocked on it) so no tie-break is exercised
	// yet, but the ordering call itself must still be stable.
	require.Len(t, first, 1)
	require.Equal(t, int64(1), first[0].ID)
}

func TestGraphRendersStatusTags(t *testing.T) {
	snap := Snapshot{
		1: feature(1, true, false),
		2: feature(2, false, true, 1),
		3: feature(3, false, false, 2),
	}
	res := Graph(snap)
	require.Len(t, res.Nodes, 3)
	require.Equal(t, NodeDone, res.Nodes[0].Status)
	require.Equal(t, NodeInProgress, res.Nodes[1].Status)
	require.Equal(t, NodeBlocked, res.Nodes[2].Status)
}
