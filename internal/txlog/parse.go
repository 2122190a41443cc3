// Package txlog parses multi-statement transaction logs and locates the
// application code that produced them: the transaction wrapper block and,
// where the model declares them, lifecycle callbacks that explain writes
// the wrapper does not issue directly.
package txlog

import (
	"log/slog"
	"strings"

	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
	"github.com/ppiankov/sqlsleuth/internal/sqlparse"
)

// Parse splits a transaction log into statements, analyzes each into a
// Query, and returns the ordered flow. BEGIN/COMMIT/ROLLBACK markers are
// kept as boundary statements with a nil Query so the flow preserves the
// log's shape; statements that fail analysis likewise keep their raw text.
func Parse(log string) (*sqlmodel.TransactionFlow, error) {
	raws := sqlparse.ExtractStatements(log)
	if len(raws) == 0 {
		return nil, sqlmodel.ErrEmptyInput
	}

	flow := &sqlmodel.TransactionFlow{Raw: log}
	for _, rs := range raws {
		st := sqlmodel.Statement{
			Raw:        rs.Text,
			LineStart:  rs.LineStart,
			LineEnd:    rs.LineEnd,
			Timestamp:  rs.Timestamp,
			Controller: rs.Controller,
			Action:     rs.Action,
		}
		if isBoundary(rs.Text) {
			flow.Statements = append(flow.Statements, st)
			continue
		}
		q, err := sqlparse.Analyze(rs.Text)
		if err != nil {
			slog.Debug("statement analysis failed", "statement", rs.Text, "error", err)
		} else {
			st.Query = q
		}
		flow.Statements = append(flow.Statements, st)
	}
	return flow, nil
}

func isBoundary(s string) bool {
	up := strings.ToUpper(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ";")))
	switch up {
	case "BEGIN", "COMMIT", "ROLLBACK":
		return true
	}
	return strings.HasPrefix(up, "START TRANSACTION") ||
		strings.HasPrefix(up, "SAVEPOINT") ||
		strings.HasPrefix(up, "RELEASE SAVEPOINT")
}
