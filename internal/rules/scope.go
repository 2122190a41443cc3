package rules

import (
	"fmt"
	"strings"

	"github.com/ppiankov/sqlsleuth/internal/config"
	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// ScopeDefinitionRule covers WHERE conditions expressed through named
// scopes or frozen SQL-fragment constants. Scope declarations live in model
// files; call sites can be anywhere in the app.
type ScopeDefinitionRule struct{}

func (ScopeDefinitionRule) Name() string { return "scope_definition" }

func (ScopeDefinitionRule) Applies(q *sqlmodel.Query) bool {
	return len(q.Conditions) > 0
}

func (ScopeDefinitionRule) SearchLocations(_ *sqlmodel.Query, s *config.Search) []string {
	return append(append([]string{}, s.ModelDirs...), s.AppDirs...)
}

func (ScopeDefinitionRule) BuildPatterns(q *sqlmodel.Query, t *config.Tuning) []sqlmodel.SearchPattern {
	d := t.Distinctiveness
	var out []sqlmodel.SearchPattern

	for _, c := range q.Conditions {
		out = append(out, scopeNameGuesses(c, d)...)

		// Null tests are often frozen into predicate-fragment constants; the
		// raw SQL text itself is then a highly distinctive search key.
		if c.Operator == sqlmodel.OpIsNull || c.Operator == sqlmodel.OpIsNotNull {
			out = append(out, sqlmodel.SearchPattern{
				Text:            c.Column.Name + " " + string(c.Operator),
				Distinctiveness: d.Constant,
				Clause:          sqlmodel.ClauseConstant,
				Description:     "raw SQL fragment for " + c.Column.Name,
			})
		}
	}

	// Generic declaration marker: meaningful only inside model files, so it
	// must never exclude a call-site file elsewhere.
	out = append(out, sqlmodel.SearchPattern{
		Text:            "scope :",
		Distinctiveness: d.ScopeDef,
		Clause:          sqlmodel.ClauseScope,
		Optional:        true,
		Description:     "scope declaration marker",
	})
	return out
}

// scopeNameGuesses maps a condition to the scope names convention suggests
// for it. All guesses for one condition are alternatives of each other and
// share one clause type; the refinement stage must never require two.
func scopeNameGuesses(c sqlmodel.Condition, d config.Distinctiveness) []sqlmodel.SearchPattern {
	col := c.Column.Name
	var names []string
	switch c.Operator {
	case sqlmodel.OpEq, sqlmodel.OpIn:
		base := strings.TrimSuffix(col, "_id")
		names = []string{"for_" + base, "by_" + base, "with_" + base, col + "_is"}
	case sqlmodel.OpIsNotNull:
		names = []string{"having_" + col, "with_" + col}
	case sqlmodel.OpIsNull:
		names = []string{"without_" + col, "no_" + col}
	default:
		return nil
	}

	out := make([]sqlmodel.SearchPattern, 0, len(names))
	for _, n := range names {
		out = append(out, sqlmodel.SearchPattern{
			Text:            "." + n,
			Distinctiveness: d.ScopeCall,
			Clause:          sqlmodel.ClauseScope,
			Description:     fmt.Sprintf("scope guess %s for %s", n, c.Describe()),
		})
	}
	return out
}
