// Package search drives staged text search over a source tree: a Searcher
// abstraction for line-oriented recursive search, a walker-based
// implementation of it, and the progressive engine that stages patterns
// from most to least distinctive.
package search

import (
	"context"

	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// Request describes one search invocation. Include narrows to repo-relative
// directories; Files, when set, restricts to exact files (used by the
// refinement stage). Results are always capped.
type Request struct {
	Pattern    sqlmodel.SearchPattern
	Include    []string
	Files      []string
	Before     int // context lines captured above each hit
	After      int // context lines captured below each hit
	MaxResults int
}

// Hit is one matching line with its bounded context window.
type Hit struct {
	File      string `json:"file"`
	Line      int    `json:"line"` // 1-based
	Text      string `json:"text"`
	StartLine int    `json:"startLine"` // first context line
	EndLine   int    `json:"endLine"`   // last context line
	Context   string `json:"context"`   // window text including the hit line
}

// Searcher is the external text-search capability. The engine depends on
// nothing beyond this contract: a pattern, path scoping, context lines, and
// a result cap, under a caller-supplied deadline.
type Searcher interface {
	Search(ctx context.Context, req Request) ([]Hit, error)
}
