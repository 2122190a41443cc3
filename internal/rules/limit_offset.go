package rules

import (
	"fmt"

	"github.com/ppiankov/sqlsleuth/internal/config"
	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// LimitOffsetRule covers LIMIT/OFFSET clauses. Pagination shows up most in
// batch-style code: mailers, background jobs, library code, controllers.
type LimitOffsetRule struct{}

func (LimitOffsetRule) Name() string { return "limit_offset" }

func (LimitOffsetRule) Applies(q *sqlmodel.Query) bool {
	return q.HasPagination()
}

func (LimitOffsetRule) SearchLocations(_ *sqlmodel.Query, s *config.Search) []string {
	locs := []string{"app/mailers", "app/jobs", "app/controllers"}
	return append(locs, s.AppDirs...)
}

func (LimitOffsetRule) BuildPatterns(q *sqlmodel.Query, t *config.Tuning) []sqlmodel.SearchPattern {
	d := t.Distinctiveness
	var out []sqlmodel.SearchPattern

	if q.Limit != nil {
		n := *q.Limit
		if n == 1 {
			// ORM single-record accessors all compile to LIMIT 1. The
			// alternatives are merged into one pattern so refinement treats
			// them as a single clause.
			out = append(out, sqlmodel.SearchPattern{
				Text:            `\.(first|last|take|find_by)\b`,
				Regex:           true,
				Distinctiveness: d.GenericLimit,
				Clause:          sqlmodel.ClauseAccessor,
				Description:     "single-record accessor",
			})
		} else {
			out = append(out, sqlmodel.SearchPattern{
				Text:            fmt.Sprintf(".limit(%d)", n),
				Distinctiveness: d.LimitCall,
				Clause:          sqlmodel.ClauseLimit,
				Description:     fmt.Sprintf("limit %d", n),
			})
			if n >= 100 {
				// Unusual page sizes tend to be project-specific literals or
				// named constants that appear almost nowhere else.
				out = append(out, sqlmodel.SearchPattern{
					Text:            fmt.Sprintf(`\b%d\b`, n),
					Regex:           true,
					Distinctiveness: d.ExactLimitValue,
					Clause:          sqlmodel.ClauseLimit,
					Description:     fmt.Sprintf("literal value %d", n),
				})
			}
		}
		out = append(out, sqlmodel.SearchPattern{
			Text:            ".limit(",
			Distinctiveness: d.GenericLimit,
			Clause:          sqlmodel.ClauseLimit,
			Optional:        true,
			Description:     "any limit call",
		})
	}

	if q.Offset != nil {
		out = append(out, sqlmodel.SearchPattern{
			Text:            ".offset(",
			Distinctiveness: d.OffsetCall,
			Clause:          sqlmodel.ClauseOffset,
			Description:     "offset call",
		})
	}
	return out
}
