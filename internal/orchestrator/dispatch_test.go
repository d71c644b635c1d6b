package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/autoforge/engine/internal/eventmux"
	"github.com/autoforge/engine/pkg/models"
)

func newTestLoop() *Loop {
	return &Loop{
		concurrency:      4,
		testingRatio:     0.25,
		mux:              eventmux.New(),
		slots:            map[string]*slot{},
		roleDelayedUntil: map[models.Role]time.Time{},
	}
}

func TestHasLiveRoleAndLiveCount(t *testing.T) {
	l := newTestLoop()
	l.slots["a"] = &slot{role: models.RoleCoding, featureID: 1, cancel: func() {}}
	l.slots["b"] = &slot{role: models.RoleCoding, featureID: 2, cancel: func() {}}
	l.slots["c"] = &slot{role: models.RoleTesting, featureID: 3, cancel: func() {}}

	require.True(t, l.hasLiveRole(models.RoleCoding))
	require.False(t, l.hasLiveRole(models.RoleInitializer))
	require.Equal(t, 2, l.liveCount(models.RoleCoding))
	require.Equal(t, 1, l.liveCount(models.RoleTesting))
	require.True(t, l.hasLiveFeature(1))
	require.False(t, l.hasLiveFeature(99))
}

func TestSpawnWorkerRespectsRoleDelay(t *testing.T) {
	l := newTestLoop()
	l.roleDelayedUntil[models.RoleCoding] = time.Now().Add(time.Hour)

	// spawnWorker should return early on the role delay, before it would
	// otherwise attempt to launch a subprocess.
	l.spawnWorker(context.Background(), models.RoleCoding, []int64{1})
	require.Empty(t, l.slots)
}

func TestMaybeSpawnReviewerWithoutModelSpawnsNothing(t *testing.T) {
	l := newTestLoop()
	snap := map[int64]models.Feature{
		5: {ID: 5, ReviewStatus: models.ReviewStatusPending},
		2: {ID: 2, ReviewStatus: models.ReviewStatusPending},
		3: {ID: 3, ReviewStatus: models.ReviewStatusNone},
	}
	// Without a usable profile, spawnWorker fails to resolve a model and
	// logs, leaving no slot: the call must not panic and no reviewer may
	// end up live.
	l.maybeSpawnReviewer(context.Background(), snap)
	require.False(t, l.hasLiveRole(models.RoleReviewer))
}
