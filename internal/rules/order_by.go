package rules

import (
	"github.com/ppiankov/sqlsleuth/internal/config"
	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// OrderByRule covers ORDER BY clauses.
type OrderByRule struct{}

func (OrderByRule) Name() string { return "order_by" }

func (OrderByRule) Applies(q *sqlmodel.Query) bool {
	return q.OrderBy != nil
}

func (OrderByRule) SearchLocations(_ *sqlmodel.Query, s *config.Search) []string {
	return s.AppDirs
}

func (OrderByRule) BuildPatterns(q *sqlmodel.Query, t *config.Tuning) []sqlmodel.SearchPattern {
	d := t.Distinctiveness
	col := q.OrderBy.Column.Name
	return []sqlmodel.SearchPattern{
		{
			// Covers order(:id), order(id: :asc), order("id ASC").
			Text:            `\.order\s*\([^)]*\b` + col + `\b`,
			Regex:           true,
			Distinctiveness: d.OrderColumn,
			Clause:          sqlmodel.ClauseOrder,
			Description:     "order by " + col,
		},
		{
			Text:            ".order(",
			Distinctiveness: d.GenericOrder,
			Clause:          sqlmodel.ClauseOrder,
			Optional:        true,
			Description:     "any ordering call",
		},
	}
}
