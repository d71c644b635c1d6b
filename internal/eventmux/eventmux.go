// Package eventmux is the event multiplexer (spec.md §4.F): it fans a
// worker's sanitized output lines out to two consumer classes — raw log
// subscribers and structured-event subscribers — classifying each line
// against a closed regex grammar. Unknown lines reach raw-log
// subscribers only.
package eventmux

import (
	"regexp"
	"strconv"
)

// EventKind classifies a parsed structured event.
type EventKind string

const (
	// KindFeatureActivity is a `[Feature #N] …` tagged activity line.
	KindFeatureActivity EventKind = "feature_activity"
	// KindSpawned is a `Started <role> agent for feature #N` line.
	KindSpawned EventKind = "spawned"
	// KindTerminal is a `Feature #N <role> (completed|failed)` line.
	KindTerminal EventKind = "terminal"
	// KindOrchestratorState is one of the orchestrator's own decision logs.
	KindOrchestratorState EventKind = "orchestrator_state"
)

// Event is one structured event parsed from a worker or orchestrator line.
type Event struct {
	Kind      EventKind
	FeatureID int64  // set for KindFeatureActivity, KindSpawned, KindTerminal.
	Role      string // set for KindSpawned, KindTerminal.
	Detail    string // free-text remainder: activity text, or "completed"/"failed".
	Raw       string
}

var (
	featureActivityPattern = regexp.MustCompile(`^\[Feature #(\d+)\]\s*(.*)$`)
	spawnedPattern         = regexp.MustCompile(`^Started (\S+) agent for feature #(\d+)`)
	terminalPattern        = regexp.MustCompile(`^Feature #(\d+) (\S+) (completed|failed)`)
	orchestratorStatePattern = regexp.MustCompile(`^(At max capacity|Spawning loop: .+ ready, .+ slots)`)
)

// Parse classifies one sanitized line against the closed event grammar.
// ok is false when line matches none of the known prefixes — the caller
// should route it to raw-log subscribers only.
func Parse(line string) (Event, bool) {
	if m := terminalPattern.FindStringSubmatch(line); m != nil {
		id, _ := strconv.ParseInt(m[1], 10, 64)
		return Event{Kind: KindTerminal, FeatureID: id, Role: m[2], Detail: m[3], Raw: line}, true
	}
	if m := spawnedPattern.FindStringSubmatch(line); m != nil {
		id, _ := strconv.ParseInt(m[2], 10, 64)
		return Event{Kind: KindSpawned, FeatureID: id, Role: m[1], Raw: line}, true
	}
	if m := featureActivityPattern.FindStringSubmatch(line); m != nil {
		id, _ := strconv.ParseInt(m[1], 10, 64)
		return Event{Kind: KindFeatureActivity, FeatureID: id, Detail: m[2], Raw: line}, true
	}
	if orchestratorStatePattern.MatchString(line) {
		return Event{Kind: KindOrchestratorState, Detail: line, Raw: line}, true
	}
	return Event{}, false
}
