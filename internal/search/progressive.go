package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ppiankov/sqlsleuth/internal/config"
	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// Progressive stages search from the most distinctive pattern downward and
// refines overly broad result sets at file level. It owns no state between
// runs; everything request-scoped arrives as arguments.
type Progressive struct {
	Searcher Searcher
	Tuning   *config.Tuning
	Cfg      config.Search
}

// Result carries the unscored candidate set plus human-readable notes about
// degradations (timeouts, exhausted patterns). Notes are part of the
// evidence a caller reports; they are never silently dropped.
type Result struct {
	Blocks []sqlmodel.CandidateBlock
	Notes  []string
}

// Run executes the staged search. Patterns must be sorted by
// distinctiveness descending (BuildPatterns output order). A search timeout
// degrades to an empty or partial result with a note, never an error.
func (p *Progressive) Run(ctx context.Context, q *sqlmodel.Query, patterns []sqlmodel.SearchPattern, locations []string) Result {
	var required, optional []sqlmodel.SearchPattern
	for _, pat := range patterns {
		if pat.Optional {
			optional = append(optional, pat)
		} else {
			required = append(required, pat)
		}
	}
	if len(required) == 0 {
		return Result{Notes: []string{"no searchable patterns could be derived from the query"}}
	}

	accepted, base, note := p.stage(ctx, required, locations)
	if note != "" {
		return Result{Notes: []string{note}}
	}
	if len(accepted) == 0 {
		return Result{Notes: []string{fmt.Sprintf("no source hits for any of %d patterns", len(required))}}
	}

	matchedByFile := make(map[string][]sqlmodel.SearchPattern)
	for _, h := range accepted {
		if len(matchedByFile[h.File]) == 0 {
			matchedByFile[h.File] = []sqlmodel.SearchPattern{base}
		}
	}

	accepted, notes := p.refine(ctx, accepted, base, required, matchedByFile)

	p.applyOptional(ctx, accepted, optional, matchedByFile)

	return Result{Blocks: p.toBlocks(accepted, matchedByFile), Notes: notes}
}

// stage tries each required pattern in rank order until one returns an
// acceptably small hit set. When every pattern is too broad, the hits of
// the most distinctive broad pattern are kept for refinement.
func (p *Progressive) stage(ctx context.Context, required []sqlmodel.SearchPattern, locations []string) (hits []Hit, used sqlmodel.SearchPattern, note string) {
	var broadHits []Hit
	var broadPattern sqlmodel.SearchPattern

	for _, pat := range required {
		got, err := p.Searcher.Search(ctx, Request{
			Pattern: pat,
			Include: locations,
			Before:  p.Cfg.ContextBefore,
			After:   p.Cfg.ContextAfter,
		})
		if err != nil {
			var te *sqlmodel.SearchTimeoutError
			if errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded) {
				return nil, pat, "search timed out: " + err.Error()
			}
			slog.Warn("search failed", "pattern", pat.Text, "err", err)
			continue
		}
		if len(got) == 0 {
			continue
		}
		if len(got) <= p.Tuning.AcceptThreshold {
			return got, pat, ""
		}
		if broadHits == nil {
			broadHits, broadPattern = got, pat
		}
	}
	return broadHits, broadPattern, ""
}

// refine narrows a hit set by requiring complementary patterns at file
// level; it runs on accepted sets too, so a small candidate set is still
// cross-checked against the other required clauses. A candidate pattern
// whose clause type was already consumed is skipped: patterns of one clause
// type are mutually exclusive alternatives, and requiring two of them to
// co-occur filters valid matches to zero. At most one pattern per remaining
// clause type, at most RefineMax in total, and a pattern matching no
// candidate file narrows nothing (it is skipped rather than wiping the
// result set).
func (p *Progressive) refine(ctx context.Context, hits []Hit, base sqlmodel.SearchPattern, required []sqlmodel.SearchPattern, matchedByFile map[string][]sqlmodel.SearchPattern) ([]Hit, []string) {
	consumed := map[sqlmodel.ClauseType]bool{base.Clause: true}
	var notes []string
	added := 0

	for _, pat := range required {
		if added >= p.Tuning.RefineMax {
			break
		}
		if consumed[pat.Clause] || pat.Text == base.Text {
			continue
		}

		files := uniqueFiles(hits)
		got, err := p.Searcher.Search(ctx, Request{Pattern: pat, Files: files})
		if err != nil {
			var te *sqlmodel.SearchTimeoutError
			if errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded) {
				notes = append(notes, "refinement stopped early: "+err.Error())
				break
			}
			continue
		}
		if len(got) == 0 {
			continue
		}

		keep := make(map[string]bool, len(got))
		for _, h := range got {
			keep[h.File] = true
		}
		var narrowed []Hit
		for _, h := range hits {
			if keep[h.File] {
				narrowed = append(narrowed, h)
			}
		}
		if len(narrowed) == 0 {
			continue
		}
		hits = narrowed
		consumed[pat.Clause] = true
		added++
		for f := range keep {
			matchedByFile[f] = append(matchedByFile[f], pat)
		}
	}

	if len(hits) > p.Tuning.AcceptThreshold {
		notes = append(notes, fmt.Sprintf("result set still broad after refinement (%d hits)", len(hits)))
	}
	return hits, notes
}

// applyOptional records optional-pattern matches for scoring bonuses.
// Optional patterns never exclude a file.
func (p *Progressive) applyOptional(ctx context.Context, hits []Hit, optional []sqlmodel.SearchPattern, matchedByFile map[string][]sqlmodel.SearchPattern) {
	if len(hits) == 0 || len(optional) == 0 {
		return
	}
	files := uniqueFiles(hits)
	for _, pat := range optional {
		got, err := p.Searcher.Search(ctx, Request{Pattern: pat, Files: files})
		if err != nil {
			continue
		}
		for f := range fileSet(got) {
			matchedByFile[f] = append(matchedByFile[f], pat)
		}
	}
}

// toBlocks converts hits into deduplicated candidate blocks with their
// bounded context windows. Duplicate file:line hits merge their patterns.
func (p *Progressive) toBlocks(hits []Hit, matchedByFile map[string][]sqlmodel.SearchPattern) []sqlmodel.CandidateBlock {
	seen := make(map[string]bool)
	var blocks []sqlmodel.CandidateBlock
	for _, h := range hits {
		key := fmt.Sprintf("%s:%d", h.File, h.Line)
		if seen[key] {
			continue
		}
		seen[key] = true
		blocks = append(blocks, sqlmodel.CandidateBlock{
			File:            h.File,
			StartLine:       h.StartLine,
			EndLine:         h.EndLine,
			Text:            h.Context,
			MatchedPatterns: dedupePatterns(matchedByFile[h.File]),
		})
	}
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].File != blocks[j].File {
			return blocks[i].File < blocks[j].File
		}
		return blocks[i].StartLine < blocks[j].StartLine
	})
	return blocks
}

func uniqueFiles(hits []Hit) []string {
	set := fileSet(hits)
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func fileSet(hits []Hit) map[string]bool {
	set := make(map[string]bool, len(hits))
	for _, h := range hits {
		set[h.File] = true
	}
	return set
}

func dedupePatterns(ps []sqlmodel.SearchPattern) []sqlmodel.SearchPattern {
	seen := make(map[string]bool, len(ps))
	var out []sqlmodel.SearchPattern
	for _, p := range ps {
		if seen[p.Text] {
			continue
		}
		seen[p.Text] = true
		out = append(out, p)
	}
	return out
}
