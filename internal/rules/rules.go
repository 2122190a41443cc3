// Package rules holds the per-clause-category search rules: where to look
// in a source tree for evidence of a given query clause and what text
// patterns that evidence takes. Rules are stateless; adding a clause
// category means adding a rule, not editing existing ones.
package rules

import (
	"github.com/ppiankov/sqlsleuth/internal/config"
	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// Rule is one clause category's pattern builder and location hint.
type Rule interface {
	Name() string
	// Applies reports whether the query has the clause this rule covers.
	Applies(q *sqlmodel.Query) bool
	// SearchLocations returns repo-relative directories worth searching for
	// this clause. Test, spec, vendor, configuration, and migration
	// directories are excluded globally by the search layer; rules only
	// narrow further.
	SearchLocations(q *sqlmodel.Query, s *config.Search) []string
	// BuildPatterns emits the clause's candidate source idioms.
	BuildPatterns(q *sqlmodel.Query, t *config.Tuning) []sqlmodel.SearchPattern
}

// All returns the full registry in a stable order.
func All() []Rule {
	return []Rule{
		LimitOffsetRule{},
		OrderByRule{},
		ScopeDefinitionRule{},
		AssociationRule{},
	}
}

// ForQuery filters the registry to rules applicable to the query.
func ForQuery(q *sqlmodel.Query) []Rule {
	var out []Rule
	for _, r := range All() {
		if r.Applies(q) {
			out = append(out, r)
		}
	}
	return out
}

// Locations merges the location hints of every applicable rule, deduplicated
// in first-seen order. Empty means "search all configured app directories".
func Locations(q *sqlmodel.Query, s *config.Search) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range ForQuery(q) {
		for _, loc := range r.SearchLocations(q, s) {
			if !seen[loc] {
				seen[loc] = true
				out = append(out, loc)
			}
		}
	}
	return out
}
