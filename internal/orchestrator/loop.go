// Package orchestrator is the supervisor loop (spec.md §4.E): a
// single-threaded cooperative loop holding the project's agent lock for
// its lifetime, dispatching ready features to role-scoped workers up to
// a concurrency cap, draining completions, and applying backoff.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/autoforge/engine/internal/backoff"
	"github.com/autoforge/engine/internal/eventmux"
	"github.com/autoforge/engine/internal/lock"
	"github.com/autoforge/engine/internal/provider"
	"github.com/autoforge/engine/internal/store"
	"github.com/autoforge/engine/internal/worker"
	"github.com/autoforge/engine/pkg/models"
)

// tickInterval is the inter-tick sleep; interruptible by shutdown.
const tickInterval = 1 * time.Second

// terminationBudget bounds how long Run waits for live workers to exit
// during a cooperative shutdown before the process moves on regardless.
const terminationBudget = 30 * time.Second

// Outcome is the terminal reason Run returned.
type Outcome string

const (
	OutcomeComplete  Outcome = "complete"
	OutcomeShutdown  Outcome = "shutdown"
	OutcomeFatal     Outcome = "fatal"
)

// Loop is the orchestrator's configured state. Construct with New and
// functional options, following the teacher's own options.go pattern.
type Loop struct {
	projectDir    string
	store         *store.Store
	profile       provider.Profile
	entrypoint    string
	concurrency   int
	testingRatio  float64
	reviewEnabled bool
	yolo          bool

	mux     *eventmux.Mux
	backoff *backoff.Policy

	slots        map[string]*slot
	roleDelayedUntil map[models.Role]time.Time
}

// slot is one worker-slot's state machine instance (spec.md §4.E's
// per-slot diagram): idle, or tracking a live Process.
type slot struct {
	proc      *worker.Process
	role      models.Role
	featureID int64
	cancel    context.CancelFunc
}

// Option configures a Loop at construction.
type Option func(*Loop)

// WithConcurrency sets the global concurrency cap C.
func WithConcurrency(c int) Option { return func(l *Loop) { l.concurrency = c } }

// WithTestingRatio sets the testing:coding dispatch ratio R.
func WithTestingRatio(r float64) Option { return func(l *Loop) { l.testingRatio = r } }

// WithReviewEnabled turns on reviewer-worker dispatch.
func WithReviewEnabled(enabled bool) Option { return func(l *Loop) { l.reviewEnabled = enabled } }

// WithYolo requests the no-browser prompt variant for every launched worker.
func WithYolo(yolo bool) Option { return func(l *Loop) { l.yolo = yolo } }

// WithEntrypoint overrides the worker implementation's interpreter/entrypoint.
func WithEntrypoint(entrypoint string) Option { return func(l *Loop) { l.entrypoint = entrypoint } }

// New constructs a Loop over an already-open store and active provider
// profile.
func New(projectDir string, st *store.Store, profile provider.Profile, opts ...Option) *Loop {
	l := &Loop{
		projectDir:   projectDir,
		store:        st,
		profile:      profile,
		entrypoint:   "forge-worker",
		concurrency:  4,
		testingRatio: 0.25,
		mux:          eventmux.New(),
		backoff:      backoff.New(1),
		slots:        map[string]*slot{},
		roleDelayedUntil: map[models.Role]time.Time{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Events returns the event multiplexer every launched worker's output
// feeds, for consumers like internal/tui.
func (l *Loop) Events() *eventmux.Mux { return l.mux }

// Run acquires the project lock and runs the cooperative loop until the
// backlog completes, a fatal initialization error occurs, or ctx (or the
// control-plane stop sentinel) requests shutdown.
func (l *Loop) Run(ctx context.Context) (Outcome, error) {
	lk, err := lock.Acquire(l.projectDir)
	if err != nil {
		return OutcomeFatal, fmt.Errorf("acquire project lock: %w", err)
	}
	defer lk.Release()

	stopCh, stopWatch, err := watchControlStop(l.projectDir)
	if err != nil {
		log.Printf("[orchestrator] control-plane stop watcher unavailable: %v", err)
	}
	if stopWatch != nil {
		defer stopWatch.Close()
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return OutcomeShutdown, nil
		case <-stopCh:
			l.shutdown()
			return OutcomeShutdown, nil
		case <-ticker.C:
		}

		counts, err := l.store.Counts(ctx)
		if err != nil {
			return OutcomeFatal, fmt.Errorf("read backlog counts: %w", err)
		}
		if counts.Total > 0 && counts.Passing == counts.Total {
			l.shutdown()
			return OutcomeComplete, nil
		}

		if err := l.tick(ctx, counts); err != nil {
			return OutcomeFatal, err
		}
		l.drainCompletions(ctx)
	}
}

// shutdown stops spawning, signals every live worker, and waits up to
// terminationBudget for them to exit.
func (l *Loop) shutdown() {
	deadline := time.Now().Add(terminationBudget)
	for id, sl := range l.slots {
		sl.cancel()
		_ = id
	}
	for time.Now().Before(deadline) && len(l.slots) > 0 {
		l.drainCompletions(context.Background())
		if len(l.slots) > 0 {
			time.Sleep(100 * time.Millisecond)
		}
	}
	for _, sl := range l.slots {
		sl.proc.Stop()
	}
}
