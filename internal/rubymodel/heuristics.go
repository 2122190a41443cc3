package rubymodel

import (
	"strings"

	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// HeuristicConditions infers the conditions a scope name implies by naming
// convention alone. This is the documented fallback when a scope body is
// missing, dynamic, or branching: the condition is inferred rather than
// dropped. Returns false when the name suggests nothing.
func HeuristicConditions(name string) ([]sqlmodel.Condition, bool) {
	n := strings.ToLower(name)

	eq := func(col string) ([]sqlmodel.Condition, bool) {
		return []sqlmodel.Condition{{
			Column:   sqlmodel.ColumnRef{Name: col},
			Operator: sqlmodel.OpEq,
		}}, true
	}

	switch {
	case strings.HasPrefix(n, "for_"):
		return eq(strings.TrimPrefix(n, "for_"))
	case strings.HasPrefix(n, "by_"):
		return eq(strings.TrimPrefix(n, "by_"))
	case strings.HasPrefix(n, "with_"):
		return eq(strings.TrimPrefix(n, "with_"))
	case strings.HasPrefix(n, "having_"):
		return []sqlmodel.Condition{{
			Column:   sqlmodel.ColumnRef{Name: strings.TrimPrefix(n, "having_")},
			Operator: sqlmodel.OpIsNotNull,
		}}, true
	case strings.HasPrefix(n, "without_"):
		return []sqlmodel.Condition{{
			Column:   sqlmodel.ColumnRef{Name: strings.TrimPrefix(n, "without_")},
			Operator: sqlmodel.OpIsNull,
		}}, true
	case strings.HasSuffix(n, "_is"):
		return eq(strings.TrimSuffix(n, "_is"))
	}
	return nil, false
}
