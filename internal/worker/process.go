package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/autoforge/engine/pkg/models"
)

// maxLineSize bounds a single scanned output line; workers that emit
// pathologically long lines are truncated rather than allowed to stall
// the reader task (bufio.Scanner's default 64KiB token size is too small
// for some structured-event payloads, so this grows it explicitly).
const maxLineSize = 1 << 20 // 1 MiB

// terminationGrace is how long stop() waits after the graceful signal
// before escalating to a process-group kill.
const terminationGrace = 5 * time.Second

const lastLinesKept = 20

// LineFunc receives one sanitized output line as it is produced. It must
// not block; subscribers that need to do real work should fan out to
// their own queue.
type LineFunc func(line string)

// Process is one launched worker subprocess and its reader task.
type Process struct {
	ID         string
	Role       models.Role
	FeatureIDs []int64
	StartedAt  time.Time

	cmd    *exec.Cmd
	stdout io.ReadCloser

	mu        sync.Mutex
	state     models.WorkerState
	lastLines []string
	sawResult bool

	killOnce sync.Once
	done      chan struct{}
	exitErr   error
}

// Launch starts spec as a subprocess in its own process group (so
// stop() can terminate the entire descendant tree, not just the direct
// child — the session-group approach spec.md §9 prescribes over
// per-PID termination).
func Launch(spec LaunchSpec, env []string) (*Process, error) {
	argv := spec.BuildArgv()
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = spec.ProjectDir
	cmd.Env = env
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	p := &Process{
		ID:         uuid.NewString(),
		Role:       spec.Role,
		StartedAt:  time.Now(),
		cmd:        cmd,
		stdout:     stdout,
		state:      models.WorkerStarting,
		done:       make(chan struct{}),
	}
	if spec.FeatureID != nil {
		p.FeatureIDs = []int64{*spec.FeatureID}
	} else {
		p.FeatureIDs = spec.FeatureIDs
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}
	p.setState(models.WorkerRunning)
	return p, nil
}

// PID returns the worker's process ID, or 0 if not started.
func (p *Process) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *Process) setState(s models.WorkerState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// State returns the current lifecycle state.
func (p *Process) State() models.WorkerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// MarkRateLimited records that a rate-limit signal was observed in the
// worker's output. The process itself has exited by the time the
// orchestrator reacts to this (spec.md §4.D: "the worker process is
// gone; retry is simply not launching a new one until the delay
// elapses"), so this only affects the classification Healthcheck and
// AwaitCompletion report once the process exits.
func (p *Process) MarkRateLimited() {
	p.mu.Lock()
	if p.state == models.WorkerRunning {
		p.state = models.WorkerRateLimited
	}
	p.mu.Unlock()
}

func (p *Process) recordLine(line string) {
	p.mu.Lock()
	p.lastLines = append(p.lastLines, line)
	if len(p.lastLines) > lastLinesKept {
		p.lastLines = p.lastLines[len(p.lastLines)-lastLinesKept:]
	}
	if isResultSentinel(line) {
		p.sawResult = true
	}
	p.mu.Unlock()
}

// Stream runs the reader task: every sanitized line is passed to onLine
// before the worker's completion is awaited. Stream blocks until the
// subprocess exits or ctx is cancelled (in which case stop() escalates
// per the termination budget).
func (p *Process) Stream(ctx context.Context, onLine LineFunc) {
	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	scanner := bufio.NewScanner(p.stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := Redact(scanner.Text())
		p.recordLine(line)
		if onLine != nil {
			onLine(line)
		}
	}

	err := p.cmd.Wait()
	p.mu.Lock()
	p.exitErr = err
	p.mu.Unlock()
	close(p.done)
}

// Healthcheck inspects exit status and reports crashed when the process
// has exited but state was still running with no sentinel result line.
func (p *Process) Healthcheck() models.WorkerState {
	select {
	case <-p.done:
	default:
		// A rate-limit mark is only reported once the process exits.
		if s := p.State(); s != models.WorkerRateLimited {
			return s
		}
		return models.WorkerRunning
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != models.WorkerRunning {
		return p.state
	}
	switch {
	case p.exitErr == nil && p.sawResult:
		p.state = models.WorkerFinishedOK
	case p.exitErr == nil && !p.sawResult:
		// Exited 0 but never emitted a sentinel result: silent exits are
		// never success (spec.md §4.C).
		p.state = models.WorkerCrashed
	default:
		p.state = models.WorkerFinishedErr
	}
	return p.state
}

// AwaitCompletion blocks until the worker exits (or ctx is cancelled,
// which triggers Stop), then returns its completion payload.
func (p *Process) AwaitCompletion(ctx context.Context) models.CompletionResult {
	select {
	case <-p.done:
	case <-ctx.Done():
		p.Stop()
		<-p.done
	}

	state := p.Healthcheck()
	exitCode := 0
	if p.cmd.ProcessState != nil {
		exitCode = p.cmd.ProcessState.ExitCode()
	}

	p.mu.Lock()
	lines := append([]string(nil), p.lastLines...)
	p.mu.Unlock()

	return models.CompletionResult{
		Status:    state,
		ExitCode:  exitCode,
		RanFor:    time.Since(p.StartedAt),
		LastLines: lines,
	}
}

// Stop sends a graceful termination signal to the process group, waits
// up to terminationGrace, then escalates to SIGKILL against the whole
// group. Idempotent: a second call is a no-op.
func (p *Process) Stop() {
	p.killOnce.Do(func() {
		if p.cmd.Process == nil {
			return
		}
		pgid := p.cmd.Process.Pid
		_ = syscall.Kill(-pgid, syscall.SIGTERM)

		timer := time.NewTimer(terminationGrace)
		defer timer.Stop()
		select {
		case <-p.done:
			p.setState(models.WorkerKilled)
			return
		case <-timer.C:
		}
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		p.setState(models.WorkerKilled)
	})
}
