package sqlparse

import (
	"fmt"
	"strings"

	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// Fingerprint renders the canonical, value-independent shape of a query for
// human-readable reporting. Every intent has its own branch; an intent with
// no branch is a programming error reported loudly, never a quiet generic
// rendering that hides what the statement actually does.
func Fingerprint(q *sqlmodel.Query) string {
	switch q.Intent {
	case sqlmodel.IntentSelect:
		return "SELECT * FROM " + q.PrimaryTable + whereFingerprint(q) + tailFingerprint(q)
	case sqlmodel.IntentInsert:
		return "INSERT INTO " + q.PrimaryTable + " (" + strings.Join(q.InsertColumns, ", ") + ")"
	case sqlmodel.IntentUpdate:
		return "UPDATE " + q.PrimaryTable + " SET (" + strings.Join(q.InsertColumns, ", ") + ")" + whereFingerprint(q)
	case sqlmodel.IntentDelete:
		return "DELETE FROM " + q.PrimaryTable + whereFingerprint(q)
	case sqlmodel.IntentExists:
		return "SELECT 1 AS one FROM " + q.PrimaryTable + whereFingerprint(q) + " LIMIT 1"
	case sqlmodel.IntentCount:
		return "SELECT COUNT(*) FROM " + q.PrimaryTable + whereFingerprint(q)
	default:
		return fmt.Sprintf("UNRECOGNIZED INTENT %q ON %s", string(q.Intent), q.PrimaryTable)
	}
}

func whereFingerprint(q *sqlmodel.Query) string {
	if len(q.Conditions) == 0 {
		return ""
	}
	parts := make([]string, 0, len(q.Conditions))
	for _, c := range q.Conditions {
		if c.Operator.Unary() {
			parts = append(parts, c.Column.Name+" "+string(c.Operator))
		} else {
			parts = append(parts, c.Column.Name+" "+string(c.Operator)+" ?")
		}
	}
	return " WHERE " + strings.Join(parts, " AND ")
}

func tailFingerprint(q *sqlmodel.Query) string {
	var b strings.Builder
	if q.OrderBy != nil {
		b.WriteString(" ORDER BY " + q.OrderBy.Column.Name)
		if q.OrderBy.Descending {
			b.WriteString(" DESC")
		}
	}
	if q.Limit != nil {
		b.WriteString(" LIMIT ?")
	}
	if q.Offset != nil {
		b.WriteString(" OFFSET ?")
	}
	return b.String()
}
