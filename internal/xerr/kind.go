// Package xerr is the typed error taxonomy shared by every component
// boundary (store, resolver, worker, orchestrator). It replaces the
// conflated try/except handling of the Python source (spec.md §9) with a
// single Kind attached to every boundary-crossing error, so callers branch
// on Kind instead of inspecting error strings.
package xerr

import "errors"

// Kind classifies an error by how its caller should react, per spec.md §7.
type Kind string

const (
	// Transient errors are retriable: lock timeouts, rate-limit signals,
	// worker crashes during normal operation, subprocess startup races.
	Transient Kind = "transient"
	// Constraint errors are permanent per-feature: contract violations,
	// dependency-count limit, state mismatch (e.g. marking an
	// already-passing feature passing).
	Constraint Kind = "constraint"
	// Fatal errors are permanent per-project: initializer produced no
	// features, store open failed, lock contention with a live
	// competitor. Fatal to the orchestrator.
	Fatal Kind = "fatal"
	// Programmer errors indicate a caller-side contract violation that
	// never affects other in-flight operations: unknown role, forward
	// dependency reference, self-reference, cycle insertion.
	Programmer Kind = "programmer"
	// NotFound indicates the referenced row does not exist. Narrower than
	// Constraint because callers often branch on existence separately.
	NotFound Kind = "not_found"
)

// Error wraps an underlying error with a Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with kind. If err is nil, New returns nil.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Of reports the Kind attached to err, or "" if err carries none.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err was wrapped with the given kind.
func Is(err error, kind Kind) bool {
	return Of(err) == kind
}
