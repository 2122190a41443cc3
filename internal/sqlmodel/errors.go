package sqlmodel

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyInput is the only structurally invalid request surfaced to users.
var ErrEmptyInput = errors.New("empty input")

// AnalysisError reports SQL that could not be analyzed by either the AST
// parser or the regex fallback. It carries the raw text so callers can echo
// what was rejected.
type AnalysisError struct {
	Input  string
	Reason string
	Err    error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analyze %q: %s: %v", truncate(e.Input, 80), e.Reason, e.Err)
	}
	return fmt.Sprintf("analyze %q: %s", truncate(e.Input, 80), e.Reason)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// SearchTimeoutError reports an external search that exceeded its budget.
// Callers degrade to an empty candidate set with this as the reason; it is
// never propagated as fatal.
type SearchTimeoutError struct {
	Pattern string
	Budget  time.Duration
}

func (e *SearchTimeoutError) Error() string {
	return fmt.Sprintf("search for %q exceeded %s budget", e.Pattern, e.Budget)
}

// ResolutionError reports a scope, association, or custom-finder body that
// could not be statically resolved. Callers fall back to name-heuristic
// inference; the condition is never silently dropped.
type ResolutionError struct {
	Model  string
	Name   string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s.%s: %s", e.Model, e.Name, e.Reason)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
