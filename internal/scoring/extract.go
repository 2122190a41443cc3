// Package scoring turns a candidate source block into a normalized clause
// set and scores it against the analyzed query, producing a calibrated
// confidence with an explicit rationale.
package scoring

import (
	"regexp"
	"strings"

	"github.com/ppiankov/sqlsleuth/internal/rubymodel"
	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// SourceClauses is everything a candidate snippet asserts about the query
// it would produce.
type SourceClauses struct {
	Conditions  []sqlmodel.Condition
	HasOrder    bool
	OrderColumn string // "" when the ordered column could not be determined
	Pagination  PaginationParams
	Notes       []string
}

var (
	reChainToken = regexp.MustCompile(`\.([a-z_][a-zA-Z0-9_]*[?!]?)`)
	reOrderCall  = regexp.MustCompile(`\.order\s*\(\s*([^)]*?)\s*\)`)
)

// Extract derives the source-side clause set from a candidate block:
// direct where calls, named scopes resolved through the owning model (with
// name-heuristic fallback), custom finders expanded from their bodies, and
// association accesses contributing inferred foreign keys. Pagination and
// ordering are scanned over the whole snippet independently of finder
// expansion, so a chain trailing a custom finder keeps its offset, limit,
// and order clauses.
func Extract(block sqlmodel.CandidateBlock, q *sqlmodel.Query, r *rubymodel.Resolver) SourceClauses {
	snippet := block.Text
	model := q.PrimaryModel
	var sc SourceClauses

	sc.Conditions = append(sc.Conditions, r.SnippetConditions(model, snippet)...)
	sc.Conditions = append(sc.Conditions, chainConditions(snippet, model, r, &sc)...)
	sc.Conditions = append(sc.Conditions, associationConditions(snippet, q, r)...)
	sc.Conditions = dedupe(sc.Conditions)

	if m := reOrderCall.FindStringSubmatch(snippet); m != nil {
		sc.HasOrder = true
		if q.OrderBy != nil && strings.Contains(m[1], q.OrderBy.Column.Name) {
			sc.OrderColumn = q.OrderBy.Column.Name
		}
	}

	sc.Pagination = ExtractPagination(snippet, r.NumericConstants(model))
	return sc
}

// chainConditions resolves every scope-like token in the snippet's method
// chains. Resolution order per token: declared scope body, custom finder
// body, name heuristic. Failures leave a note; the condition a name implies
// is never silently dropped when a heuristic can still supply it.
func chainConditions(snippet, model string, r *rubymodel.Resolver, sc *SourceClauses) []sqlmodel.Condition {
	var out []sqlmodel.Condition
	seen := make(map[string]bool)

	for _, m := range reChainToken.FindAllStringSubmatch(snippet, -1) {
		name := m[1]
		if seen[name] || rubymodel.IsQueryMethod(name) {
			continue
		}
		seen[name] = true

		if conds, err := r.ResolveScope(model, name); err == nil {
			out = append(out, conds...)
			continue
		}
		if r.IsCustomFinder(model, name) {
			if conds, err := r.ExpandFinder(model, name); err == nil {
				out = append(out, conds...)
				continue
			}
		}
		if conds, ok := rubymodel.HeuristicConditions(name); ok {
			out = append(out, conds...)
			sc.Notes = append(sc.Notes, "condition for "+name+" inferred from its name, not its body")
		}
	}
	return out
}

// associationConditions infers foreign-key conditions from association
// chains and finder wrappers: company.members or company.find_all_active
// implies company_id = ?. A polymorphic reference contributes both its
// _type and _id columns under the one association name.
func associationConditions(snippet string, q *sqlmodel.Query, r *rubymodel.Resolver) []sqlmodel.Condition {
	var out []sqlmodel.Condition

	reOwner := regexp.MustCompile(`\b([a-z_][a-z0-9_]*)\.(?:` + regexp.QuoteMeta(q.PrimaryTable) + `\b|find_\w+)`)
	for _, m := range reOwner.FindAllStringSubmatch(snippet, -1) {
		owner := m[1]
		if owner == "self" || rubymodel.IsQueryMethod(owner) {
			continue
		}
		out = append(out, sqlmodel.Condition{
			Column:   sqlmodel.ColumnRef{Name: sqlmodel.AssociationForeignKey(owner)},
			Operator: sqlmodel.OpEq,
		})
	}

	for name := range r.PolymorphicColumns(q.PrimaryModel) {
		if strings.Contains(snippet, name) {
			out = append(out, r.AssociationConditions(q.PrimaryModel, name)...)
		}
	}
	return out
}

func dedupe(conds []sqlmodel.Condition) []sqlmodel.Condition {
	seen := make(map[string]bool, len(conds))
	var out []sqlmodel.Condition
	for _, c := range conds {
		if seen[c.Key()] {
			continue
		}
		seen[c.Key()] = true
		out = append(out, c)
	}
	return out
}
