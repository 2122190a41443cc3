package sqlparse

import (
	"sort"
	"strings"

	"github.com/ppiankov/sqlsleuth/internal/config"
	"github.com/ppiankov/sqlsleuth/internal/rules"
	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// BuildPatterns derives every source-idiom candidate for a query: the
// intent-level idioms owned here plus the per-clause patterns from the rule
// registry, sorted by distinctiveness descending. Patterns sharing a clause
// type are alternatives; the search engine must never require two of them
// to co-occur.
func BuildPatterns(q *sqlmodel.Query, t *config.Tuning) []sqlmodel.SearchPattern {
	out := intentPatterns(q, t)
	for _, r := range rules.ForQuery(q) {
		out = append(out, r.BuildPatterns(q, t)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distinctiveness > out[j].Distinctiveness
	})
	return out
}

// intentPatterns emits the idioms implied by the statement verb itself.
func intentPatterns(q *sqlmodel.Query, t *config.Tuning) []sqlmodel.SearchPattern {
	d := t.Distinctiveness
	switch q.Intent {
	case sqlmodel.IntentExists:
		return []sqlmodel.SearchPattern{{
			Text:            ".exists?",
			Distinctiveness: d.ScopeCall,
			Clause:          sqlmodel.ClauseExistence,
			Description:     "existence probe",
		}}
	case sqlmodel.IntentCount:
		return []sqlmodel.SearchPattern{{
			Text:            ".count",
			Distinctiveness: d.GenericOrder,
			Clause:          sqlmodel.ClauseCount,
			Description:     "count aggregation",
		}}
	case sqlmodel.IntentInsert:
		return creationPatterns(q, d)
	}
	return nil
}

func creationPatterns(q *sqlmodel.Query, d config.Distinctiveness) []sqlmodel.SearchPattern {
	if q.PrimaryModel == "" {
		return nil
	}
	return []sqlmodel.SearchPattern{
		{
			Text:            `\b` + q.PrimaryModel + `\.(create|new)\b`,
			Regex:           true,
			Distinctiveness: d.ScopeDef,
			Clause:          sqlmodel.ClauseCreation,
			Description:     "direct creation of " + q.PrimaryModel,
		},
		{
			Text:            `\.` + strings.ToLower(q.PrimaryTable) + `\.(create|build)\b`,
			Regex:           true,
			Distinctiveness: d.ScopeDef,
			Clause:          sqlmodel.ClauseCreation,
			Description:     "association creation on " + q.PrimaryTable,
		},
	}
}
