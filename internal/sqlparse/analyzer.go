// Package sqlparse turns raw SQL text into the structured query model used
// by the search and scoring layers. Parsing is AST-first with a regex
// fallback; both paths produce the same Query shape.
package sqlparse

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// Analyze parses one SQL statement into a Query. The MySQL-dialect AST
// parser runs first (it understands backticked and table-qualified
// identifiers); if it rejects the statement, the line-oriented regex
// extractor takes over. A statement neither path can handle yields an
// AnalysisError.
func Analyze(sql string) (*sqlmodel.Query, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return nil, sqlmodel.ErrEmptyInput
	}
	trimmed = strings.TrimSuffix(trimmed, ";")

	q, err := analyzeAST(trimmed)
	if err == nil {
		return q, nil
	}
	slog.Debug("AST parse failed, using regex fallback", "err", err)

	q, ferr := analyzeFallback(trimmed)
	if ferr != nil {
		return nil, &sqlmodel.AnalysisError{Input: sql, Reason: "no parser accepted the statement", Err: err}
	}
	return q, nil
}

func analyzeAST(sql string) (*sqlmodel.Query, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, err
	}

	switch s := stmt.(type) {
	case *sqlparser.Select:
		return analyzeSelect(s, sql)
	case *sqlparser.Insert:
		return analyzeInsert(s, sql)
	case *sqlparser.Update:
		return analyzeUpdate(s, sql)
	case *sqlparser.Delete:
		return analyzeDelete(s, sql)
	default:
		return nil, &sqlmodel.AnalysisError{Input: sql, Reason: "unsupported statement kind"}
	}
}

func analyzeSelect(s *sqlparser.Select, raw string) (*sqlmodel.Query, error) {
	q := &sqlmodel.Query{Intent: sqlmodel.IntentSelect, Raw: raw}

	q.PrimaryTable = firstTable(s.From)
	q.PrimaryModel = sqlmodel.RailsModel(q.PrimaryTable)

	switch {
	case isExistsIdiom(s):
		q.Intent = sqlmodel.IntentExists
	case isPureCount(s):
		q.Intent = sqlmodel.IntentCount
	}

	if s.Where != nil {
		q.Conditions = collectConditions(s.Where.Expr)
	}
	q.OrderBy = firstOrder(s.OrderBy)
	q.Limit, q.Offset = limitOffset(s.Limit)
	return q, nil
}

func analyzeInsert(s *sqlparser.Insert, raw string) (*sqlmodel.Query, error) {
	q := &sqlmodel.Query{Intent: sqlmodel.IntentInsert, Raw: raw}
	q.PrimaryTable = s.Table.Name.String()
	q.PrimaryModel = sqlmodel.RailsModel(q.PrimaryTable)
	for _, col := range s.Columns {
		q.InsertColumns = append(q.InsertColumns, strings.ToLower(col.String()))
	}
	return q, nil
}

func analyzeUpdate(s *sqlparser.Update, raw string) (*sqlmodel.Query, error) {
	q := &sqlmodel.Query{Intent: sqlmodel.IntentUpdate, Raw: raw}
	q.PrimaryTable = firstTable(s.TableExprs)
	q.PrimaryModel = sqlmodel.RailsModel(q.PrimaryTable)
	// Updated columns matter for signature derivation the same way INSERT
	// columns do.
	for _, ue := range s.Exprs {
		q.InsertColumns = append(q.InsertColumns, strings.ToLower(ue.Name.Name.String()))
	}
	if s.Where != nil {
		q.Conditions = collectConditions(s.Where.Expr)
	}
	q.OrderBy = firstOrder(s.OrderBy)
	q.Limit, q.Offset = limitOffset(s.Limit)
	return q, nil
}

func analyzeDelete(s *sqlparser.Delete, raw string) (*sqlmodel.Query, error) {
	q := &sqlmodel.Query{Intent: sqlmodel.IntentDelete, Raw: raw}
	q.PrimaryTable = firstTable(s.TableExprs)
	q.PrimaryModel = sqlmodel.RailsModel(q.PrimaryTable)
	if s.Where != nil {
		q.Conditions = collectConditions(s.Where.Expr)
	}
	q.OrderBy = firstOrder(s.OrderBy)
	q.Limit, q.Offset = limitOffset(s.Limit)
	return q, nil
}

// isExistsIdiom recognizes the ORM existence probe: SELECT 1 AS one ... LIMIT 1.
func isExistsIdiom(s *sqlparser.Select) bool {
	if len(s.SelectExprs) != 1 {
		return false
	}
	ae, ok := s.SelectExprs[0].(*sqlparser.AliasedExpr)
	if !ok || !strings.EqualFold(ae.As.String(), "one") {
		return false
	}
	v, ok := ae.Expr.(*sqlparser.SQLVal)
	return ok && v.Type == sqlparser.IntVal && string(v.Val) == "1"
}

// isPureCount recognizes SELECT COUNT(*) with no companion expressions.
func isPureCount(s *sqlparser.Select) bool {
	if len(s.SelectExprs) != 1 {
		return false
	}
	ae, ok := s.SelectExprs[0].(*sqlparser.AliasedExpr)
	if !ok {
		return false
	}
	f, ok := ae.Expr.(*sqlparser.FuncExpr)
	return ok && strings.EqualFold(f.Name.String(), "count")
}

// collectConditions flattens AND/OR-connected predicates into Conditions.
// IS NULL / IS NOT NULL arrive as a single IsExpr node and are emitted
// exactly once; they never additionally appear as a binary comparison.
func collectConditions(expr sqlparser.Expr) []sqlmodel.Condition {
	var out []sqlmodel.Condition

	var walk func(e sqlparser.Expr)
	walk = func(e sqlparser.Expr) {
		switch n := e.(type) {
		case *sqlparser.AndExpr:
			walk(n.Left)
			walk(n.Right)
		case *sqlparser.OrExpr:
			walk(n.Left)
			walk(n.Right)
		case *sqlparser.ParenExpr:
			walk(n.Expr)
		case *sqlparser.ComparisonExpr:
			if c, ok := comparisonCondition(n); ok {
				out = append(out, c)
			}
		case *sqlparser.IsExpr:
			if c, ok := isCondition(n); ok {
				out = append(out, c)
			}
		}
	}
	walk(expr)
	return out
}

func comparisonCondition(n *sqlparser.ComparisonExpr) (sqlmodel.Condition, bool) {
	col, ok := n.Left.(*sqlparser.ColName)
	if !ok {
		return sqlmodel.Condition{}, false
	}
	op, ok := operatorFor(n.Operator)
	if !ok {
		return sqlmodel.Condition{}, false
	}
	return sqlmodel.Condition{
		Column:   columnRef(col),
		Operator: op,
		Value:    literalValue(n.Right),
	}, true
}

func isCondition(n *sqlparser.IsExpr) (sqlmodel.Condition, bool) {
	col, ok := n.Expr.(*sqlparser.ColName)
	if !ok {
		return sqlmodel.Condition{}, false
	}
	switch n.Operator {
	case sqlparser.IsNullStr:
		return sqlmodel.Condition{Column: columnRef(col), Operator: sqlmodel.OpIsNull}, true
	case sqlparser.IsNotNullStr:
		return sqlmodel.Condition{Column: columnRef(col), Operator: sqlmodel.OpIsNotNull}, true
	}
	return sqlmodel.Condition{}, false
}

func operatorFor(op string) (sqlmodel.Operator, bool) {
	switch op {
	case sqlparser.EqualStr:
		return sqlmodel.OpEq, true
	case sqlparser.NotEqualStr:
		return sqlmodel.OpNeq, true
	case sqlparser.LessThanStr:
		return sqlmodel.OpLt, true
	case sqlparser.LessEqualStr:
		return sqlmodel.OpLte, true
	case sqlparser.GreaterThanStr:
		return sqlmodel.OpGt, true
	case sqlparser.GreaterEqualStr:
		return sqlmodel.OpGte, true
	case sqlparser.InStr:
		return sqlmodel.OpIn, true
	}
	return "", false
}

func columnRef(col *sqlparser.ColName) sqlmodel.ColumnRef {
	return sqlmodel.ColumnRef{
		Table: strings.ToLower(col.Qualifier.Name.String()),
		Name:  strings.ToLower(col.Name.String()),
	}
}

func literalValue(e sqlparser.Expr) string {
	v, ok := e.(*sqlparser.SQLVal)
	if !ok {
		return ""
	}
	switch v.Type {
	case sqlparser.IntVal, sqlparser.FloatVal, sqlparser.StrVal:
		return string(v.Val)
	}
	return "" // placeholder
}

func firstTable(exprs sqlparser.TableExprs) string {
	for _, te := range exprs {
		if ate, ok := te.(*sqlparser.AliasedTableExpr); ok {
			if tn, ok := ate.Expr.(sqlparser.TableName); ok {
				return strings.ToLower(tn.Name.String())
			}
		}
	}
	return ""
}

func firstOrder(ob sqlparser.OrderBy) *sqlmodel.OrderBy {
	for _, o := range ob {
		col, ok := o.Expr.(*sqlparser.ColName)
		if !ok {
			continue
		}
		return &sqlmodel.OrderBy{
			Column:     columnRef(col),
			Descending: o.Direction == sqlparser.DescScr,
		}
	}
	return nil
}

func limitOffset(l *sqlparser.Limit) (limit, offset *int) {
	if l == nil {
		return nil, nil
	}
	if n, ok := intLiteral(l.Rowcount); ok {
		limit = &n
	}
	if n, ok := intLiteral(l.Offset); ok {
		offset = &n
	}
	return limit, offset
}

func intLiteral(e sqlparser.Expr) (int, bool) {
	v, ok := e.(*sqlparser.SQLVal)
	if !ok || v.Type != sqlparser.IntVal {
		return 0, false
	}
	n, err := strconv.Atoi(string(v.Val))
	if err != nil {
		return 0, false
	}
	return n, true
}
