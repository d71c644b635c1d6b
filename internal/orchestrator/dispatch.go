package orchestrator

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/autoforge/engine/internal/backoff"
	"github.com/autoforge/engine/internal/graph"
	"github.com/autoforge/engine/internal/store"
	"github.com/autoforge/engine/internal/worker"
	"github.com/autoforge/engine/pkg/models"
)

// tick enforces the initialization precondition, then dispatches ready
// features (and, if under the testing:coding ratio, re-verification
// workers) up to the concurrency cap, counting live slots directly
// rather than via a semaphore (spec.md §4.E point 5).
func (l *Loop) tick(ctx context.Context, counts store.Counts) error {
	available := l.concurrency - len(l.slots)
	if available <= 0 {
		return nil
	}

	if counts.Total == 0 {
		if l.hasLiveRole(models.RoleInitializer) {
			return nil // initializer still running; nothing else may spawn.
		}
		return l.spawnInitializer(ctx)
	}

	snap, err := l.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot for dispatch: %w", err)
	}
	ready := graph.ReadyFeatures(snap, 0)

	testingBudget := int(float64(l.concurrency) * l.testingRatio)
	codingBudget := available

	for _, f := range ready {
		if codingBudget <= 0 {
			break
		}
		claim, err := l.store.ClaimAndGet(ctx, f.ID)
		if err != nil {
			log.Printf("[orchestrator] claim feature #%d: %v", f.ID, err)
			continue
		}
		if claim.AlreadyClaimed {
			continue // another process won the race; not an error (spec.md §4.E ordering & fairness).
		}
		l.spawnWorker(ctx, models.RoleCoding, []int64{f.ID})
		codingBudget--
		available--
	}

	if l.liveCount(models.RoleTesting) < testingBudget && l.concurrency-len(l.slots) > 0 {
		l.maybeSpawnTesting(ctx, snap)
	}

	if l.reviewEnabled && l.concurrency-len(l.slots) > 0 {
		l.maybeSpawnReviewer(ctx, snap)
	}

	return nil
}

// maybeSpawnReviewer dispatches a single reviewer worker against the
// lowest-ID feature awaiting review, if review mode is enabled (spec.md
// §4.E point 4) and none is already under review.
func (l *Loop) maybeSpawnReviewer(ctx context.Context, snap graph.Snapshot) {
	if l.hasLiveRole(models.RoleReviewer) {
		return
	}
	var candidate *models.Feature
	for id, f := range snap {
		if f.ReviewStatus != models.ReviewStatusPending {
			continue
		}
		if candidate == nil || id < candidate.ID {
			fCopy := f
			candidate = &fCopy
		}
	}
	if candidate != nil {
		l.spawnWorker(ctx, models.RoleReviewer, []int64{candidate.ID})
	}
}

func (l *Loop) hasLiveRole(role models.Role) bool {
	for _, sl := range l.slots {
		if sl.role == role {
			return true
		}
	}
	return false
}

func (l *Loop) liveCount(role models.Role) int {
	n := 0
	for _, sl := range l.slots {
		if sl.role == role {
			n++
		}
	}
	return n
}

func (l *Loop) spawnInitializer(ctx context.Context) error {
	modelID, err := l.profile.ModelFor(models.RoleInitializer)
	if err != nil {
		return err
	}
	l.launch(ctx, models.RoleInitializer, nil, modelID)
	return nil
}

func (l *Loop) spawnWorker(ctx context.Context, role models.Role, featureIDs []int64) {
	if until, delayed := l.roleDelayedUntil[role]; delayed && time.Now().Before(until) {
		return
	}
	modelID, err := l.profile.ModelFor(role)
	if err != nil {
		log.Printf("[orchestrator] resolve model for role %s: %v", role, err)
		return
	}
	l.launch(ctx, role, featureIDs, modelID)
}

// maybeSpawnTesting dispatches a single re-verification worker against a
// passing feature, if any is available and under budget. Kept simple and
// deterministic: picks the lowest-ID passing feature not already under a
// live testing worker.
func (l *Loop) maybeSpawnTesting(ctx context.Context, snap graph.Snapshot) {
	var candidate int64
	found := false
	for id, f := range snap {
		if !f.Passes {
			continue
		}
		if l.hasLiveFeature(id) {
			continue
		}
		if !found || id < candidate {
			candidate, found = id, true
		}
	}
	if found {
		l.spawnWorker(ctx, models.RoleTesting, []int64{candidate})
	}
}

func (l *Loop) hasLiveFeature(id int64) bool {
	for _, sl := range l.slots {
		if sl.featureID == id {
			return true
		}
	}
	return false
}

func (l *Loop) launch(ctx context.Context, role models.Role, featureIDs []int64, modelID string) {
	spec := worker.LaunchSpec{
		Entrypoint: l.entrypoint,
		ProjectDir: l.projectDir,
		Role:       role,
		ModelID:    modelID,
		Yolo:       l.yolo,
	}
	if len(featureIDs) == 1 {
		id := featureIDs[0]
		spec.FeatureID = &id
	} else {
		spec.FeatureIDs = featureIDs
	}

	env := worker.BuildEnv(os.Environ(), l.profile)
	proc, err := worker.Launch(spec, env)
	if err != nil {
		log.Printf("[orchestrator] launch %s worker: %v", role, err)
		return
	}

	workerCtx, cancel := context.WithCancel(ctx)
	id := uuid.NewString()
	var featureID int64
	if len(featureIDs) > 0 {
		featureID = featureIDs[0]
	}
	l.slots[id] = &slot{proc: proc, role: role, featureID: featureID, cancel: cancel}

	go func() {
		proc.Stream(workerCtx, func(line string) {
			l.mux.Publish(line)
			if backoff.IsRateLimit(line) {
				proc.MarkRateLimited()
			}
		})
	}()
}

// drainCompletions checks every live slot's healthcheck; terminal slots
// are released and their backoff/store cleanup applied per spec.md §4.E
// point 6.
func (l *Loop) drainCompletions(ctx context.Context) {
	for id, sl := range l.slots {
		state := sl.proc.Healthcheck()
		if !state.Terminal() {
			continue
		}
		l.handleTerminal(ctx, sl, state)
		sl.cancel()
		delete(l.slots, id)
	}
}

func (l *Loop) handleTerminal(ctx context.Context, sl *slot, state models.WorkerState) {
	switch state {
	case models.WorkerFinishedOK:
		l.backoff.ResetOnSuccess(sl.proc.ID)
	case models.WorkerFinishedErr, models.WorkerCrashed:
		if sl.featureID != 0 {
			if err := l.store.ClearInProgress(ctx, sl.featureID); err != nil {
				log.Printf("[orchestrator] clear in_progress for #%d: %v", sl.featureID, err)
			}
		}
		delay := l.backoff.NextErrorDelay(sl.proc.ID)
		l.roleDelayedUntil[sl.role] = time.Now().Add(delay)
	case models.WorkerRateLimited:
		if sl.featureID != 0 {
			if err := l.store.ClearInProgress(ctx, sl.featureID); err != nil {
				log.Printf("[orchestrator] clear in_progress for #%d: %v", sl.featureID, err)
			}
		}
		delay := l.backoff.NextRateLimitDelay(sl.proc.ID, 0)
		l.roleDelayedUntil[sl.role] = time.Now().Add(delay)
	case models.WorkerKilled:
		// Cooperative shutdown already in progress; no backoff needed.
	}
}
