package rules

import (
	"github.com/ppiankov/sqlsleuth/internal/config"
	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// AssociationRule covers foreign-key conditions that never appear literally
// in source because an association chain or finder wrapper supplies them.
type AssociationRule struct{}

func (AssociationRule) Name() string { return "association" }

func (AssociationRule) Applies(q *sqlmodel.Query) bool {
	for _, c := range q.Conditions {
		if sqlmodel.AssociationNameForColumn(c.Column.Name) != "" {
			return true
		}
	}
	return false
}

func (AssociationRule) SearchLocations(_ *sqlmodel.Query, s *config.Search) []string {
	return s.AppDirs
}

func (AssociationRule) BuildPatterns(q *sqlmodel.Query, t *config.Tuning) []sqlmodel.SearchPattern {
	d := t.Distinctiveness
	var out []sqlmodel.SearchPattern

	table := q.PrimaryTable
	for _, c := range q.Conditions {
		owner := sqlmodel.AssociationNameForColumn(c.Column.Name)
		if owner == "" {
			continue
		}
		out = append(out, sqlmodel.SearchPattern{
			// find_all_by-style wrapper methods on the owning side.
			Text:            `\bfind_\w*` + table + `\b`,
			Regex:           true,
			Distinctiveness: d.ScopeCall,
			Clause:          sqlmodel.ClauseAssociation,
			Description:     "finder wrapper returning " + table,
		})
		out = append(out, sqlmodel.SearchPattern{
			// owner.collection chain, e.g. company.members.
			Text:            owner + "." + table + ".",
			Distinctiveness: d.GenericLimit,
			Clause:          sqlmodel.ClauseAssociation,
			Description:     "association chain " + owner + "." + table,
		})
	}
	return out
}
