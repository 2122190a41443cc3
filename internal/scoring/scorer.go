package scoring

import (
	"fmt"

	"github.com/ppiankov/sqlsleuth/internal/config"
	"github.com/ppiankov/sqlsleuth/internal/rubymodel"
	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// Scorer matches query conditions against source clauses and produces a
// MatchResult. All weights, caps, and bands come from tuning.
type Scorer struct {
	Tuning   *config.Tuning
	Resolver *rubymodel.Resolver
}

// Score extracts the candidate's clause set and compares it bidirectionally
// with the query: conditions matched, conditions the source is missing, and
// conditions the source adds that the query never asked for. Extra
// conditions always lower confidence; a structurally similar query with an
// added filter is not the same query.
func (s *Scorer) Score(q *sqlmodel.Query, block sqlmodel.CandidateBlock) sqlmodel.MatchResult {
	src := Extract(block, q, s.Resolver)
	matched, missing, extra := compare(q.Conditions, src.Conditions)

	limitOK, offsetOK, incompatible, pagIssues := checkPagination(q.Limit, q.Offset, src.Pagination)

	w := s.Tuning.Weights
	applicable, achieved := 0.0, 0.0

	if len(q.Conditions) > 0 {
		applicable += w.Where
		achieved += w.Where * float64(len(matched)) / float64(len(q.Conditions))
	}
	if q.OrderBy != nil {
		applicable += w.Order
		switch {
		case src.OrderColumn != "":
			achieved += w.Order
		case src.HasOrder:
			achieved += w.Order * 0.5
		}
	}
	if q.Limit != nil {
		applicable += w.Limit
		if limitOK && src.Pagination.HasLimit {
			achieved += w.Limit
		}
	}
	if q.Offset != nil {
		applicable += w.Offset
		if offsetOK && src.Pagination.HasOffset {
			achieved += w.Offset
		}
	}
	if len(block.MatchedPatterns) > 0 {
		applicable += w.Distinctiveness
		achieved += w.Distinctiveness * maxDistinctiveness(block.MatchedPatterns)
	}

	score := 0.0
	if applicable > 0 {
		score = achieved / applicable
	}

	// Extra conditions apply a multiplicative penalty even at a full match.
	if len(extra) > 0 {
		ratio := float64(len(extra)) / float64(len(matched)+len(extra))
		score *= 1 - s.Tuning.ExtraPenalty*ratio
	}

	score = s.applyCaps(q, src, score, missing, incompatible, limitOK, offsetOK)
	score = clamp01(score)

	result := sqlmodel.MatchResult{
		File:       block.File,
		Line:       block.StartLine,
		Snippet:    block.Text,
		Confidence: score,
		Label:      s.label(score),
	}
	s.rationale(&result, q, src, matched, missing, extra, pagIssues, limitOK, offsetOK)
	return result
}

// applyCaps enforces the hard ceilings: a candidate missing query
// conditions, ordering, or with impossible pagination values must never
// read as a near-exact match.
func (s *Scorer) applyCaps(q *sqlmodel.Query, src SourceClauses, score float64, missing []sqlmodel.Condition, incompatible, limitOK, offsetOK bool) float64 {
	caps := s.Tuning.Caps

	missingClauses := len(missing)
	if q.OrderBy != nil && !src.HasOrder {
		missingClauses++
	}
	if q.Limit != nil && !src.Pagination.HasLimit {
		missingClauses++
	}
	if q.Offset != nil && !src.Pagination.HasOffset {
		missingClauses++
	}

	if len(missing) > 0 {
		score = min(score, caps.MissingWhere)
	}
	if q.OrderBy != nil && !src.HasOrder && q.HasPagination() {
		score = min(score, caps.MissingOrder)
	}
	if incompatible || (!limitOK && q.Limit != nil) || (!offsetOK && q.Offset != nil) {
		score = min(score, caps.BadPagination)
	}
	if caps.ManyMissingCount > 0 && missingClauses >= caps.ManyMissingCount {
		score = min(score, caps.ManyMissing)
	}
	return score
}

func (s *Scorer) label(score float64) sqlmodel.Label {
	b := s.Tuning.Bands
	switch {
	case score >= b.High:
		return sqlmodel.LabelHigh
	case score >= b.Medium:
		return sqlmodel.LabelMedium
	case score >= b.Partial:
		return sqlmodel.LabelPartial
	}
	return sqlmodel.LabelLow
}

// rationale fills the mandatory matched/missing/extra descriptions. These
// are the caller-facing evidence; a bare number is never enough to tell a
// partial match from an exact one.
func (s *Scorer) rationale(r *sqlmodel.MatchResult, q *sqlmodel.Query, src SourceClauses, matched, missing, extra []sqlmodel.Condition, pagIssues []string, limitOK, offsetOK bool) {
	for _, c := range matched {
		r.Matched = append(r.Matched, "condition "+c.Describe())
	}
	if q.OrderBy != nil && src.HasOrder {
		if src.OrderColumn != "" {
			r.Matched = append(r.Matched, "order by "+src.OrderColumn)
		} else {
			r.Matched = append(r.Matched, "ordering present (column unverified)")
		}
	}
	if q.Limit != nil && src.Pagination.HasLimit && limitOK {
		r.Matched = append(r.Matched, fmt.Sprintf("limit %d", *q.Limit))
	}
	if q.Offset != nil && src.Pagination.HasOffset && offsetOK {
		r.Matched = append(r.Matched, fmt.Sprintf("offset %d", *q.Offset))
	}

	for _, c := range missing {
		r.Missing = append(r.Missing, "condition "+c.Describe())
	}
	if q.OrderBy != nil && !src.HasOrder {
		r.Missing = append(r.Missing, "order by "+q.OrderBy.Column.Name)
	}
	if q.Limit != nil && !src.Pagination.HasLimit {
		r.Missing = append(r.Missing, fmt.Sprintf("limit %d", *q.Limit))
	}
	if q.Offset != nil && !src.Pagination.HasOffset {
		r.Missing = append(r.Missing, fmt.Sprintf("offset %d", *q.Offset))
	}
	r.Missing = append(r.Missing, pagIssues...)

	for _, c := range extra {
		r.Extra = append(r.Extra, "source adds condition "+c.Describe()+" the query does not have")
	}
	r.Extra = append(r.Extra, src.Notes...)
}

// compare builds the bidirectional sets. Conditions match on normalized
// column name and operator; values are structurally irrelevant here
// (pagination values are checked separately).
func compare(query, source []sqlmodel.Condition) (matched, missing, extra []sqlmodel.Condition) {
	srcKeys := make(map[string]bool, len(source))
	for _, c := range source {
		srcKeys[c.Key()] = true
	}
	qKeys := make(map[string]bool, len(query))
	for _, c := range query {
		qKeys[c.Key()] = true
		if srcKeys[c.Key()] {
			matched = append(matched, c)
		} else {
			missing = append(missing, c)
		}
	}
	for _, c := range source {
		if !qKeys[c.Key()] {
			extra = append(extra, c)
		}
	}
	return matched, missing, extra
}

func maxDistinctiveness(ps []sqlmodel.SearchPattern) float64 {
	best := 0.0
	for _, p := range ps {
		if p.Distinctiveness > best {
			best = p.Distinctiveness
		}
	}
	return best
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
