package worker

import "regexp"

// resultSentinelPattern matches the terminal marker line a worker emits
// when it has actually completed its role-scoped action on a feature,
// per the closed event grammar (spec.md §4.F): "Feature #N <role>
// (completed|failed)". A clean exit with no such line is never treated
// as success (spec.md §4.C) — this is what lets Healthcheck distinguish
// a genuine finished_ok from a worker that simply exited early.
var resultSentinelPattern = regexp.MustCompile(`(?i)Feature #\d+ \S+ (completed|failed)`)

func isResultSentinel(line string) bool {
	return resultSentinelPattern.MatchString(line)
}
