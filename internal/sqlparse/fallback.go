package sqlparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// Regex fallback for statements the AST parser rejects (nonstandard
// dialects, log-mangled text). Operator patterns accept backticked and
// table-qualified column forms so the fallback extracts the same
// conditions the AST path would.

const columnToken = "`?(?:[a-zA-Z_][a-zA-Z0-9_]*\\.)?[a-zA-Z_][a-zA-Z0-9_]*`?"

var (
	reFrom   = regexp.MustCompile(`(?i)\bFROM\s+` + "`?" + `([a-zA-Z_][a-zA-Z0-9_.]*)` + "`?")
	reInto   = regexp.MustCompile(`(?i)\bINSERT\s+INTO\s+` + "`?" + `([a-zA-Z_][a-zA-Z0-9_.]*)` + "`?" + `\s*\(([^)]*)\)`)
	reUpdate = regexp.MustCompile(`(?i)^\s*UPDATE\s+` + "`?" + `([a-zA-Z_][a-zA-Z0-9_.]*)` + "`?")
	reSet    = regexp.MustCompile(`(?i)\bSET\s+(.*?)(?:\bWHERE\b|$)`)
	reSetCol = regexp.MustCompile("`?([a-zA-Z_][a-zA-Z0-9_]*)`?\\s*=")

	reWhere  = regexp.MustCompile(`(?is)\bWHERE\s+(.*?)(?:\s+ORDER\s+BY\b|\s+GROUP\s+BY\b|\s+LIMIT\b|\s+OFFSET\b|\s+HAVING\b|$)`)
	reOrder  = regexp.MustCompile(`(?i)\bORDER\s+BY\s+(` + columnToken + `)(?:\s+(ASC|DESC))?`)
	reLimit  = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)`)
	reOffset = regexp.MustCompile(`(?i)\bOFFSET\s+(\d+)`)

	reExists = regexp.MustCompile(`(?i)^\s*SELECT\s+1\s+AS\s+one\b`)
	reCount  = regexp.MustCompile(`(?i)^\s*SELECT\s+COUNT\s*\(`)

	reIsNotNull = regexp.MustCompile(`(?i)(` + columnToken + `)\s+IS\s+NOT\s+NULL`)
	reIsNull    = regexp.MustCompile(`(?i)(` + columnToken + `)\s+IS\s+NULL`)
	reIn        = regexp.MustCompile(`(?i)(` + columnToken + `)\s+IN\s*\(([^)]*)\)`)
	reBinary    = regexp.MustCompile(`(` + columnToken + `)\s*(<=|>=|!=|<>|=|<|>)\s*('[^']*'|"[^"]*"|[\w.?]+)`)
)

func analyzeFallback(sql string) (*sqlmodel.Query, error) {
	upper := strings.ToUpper(strings.TrimSpace(sql))

	q := &sqlmodel.Query{Raw: sql}
	switch {
	case reExists.MatchString(sql):
		q.Intent = sqlmodel.IntentExists
	case reCount.MatchString(sql):
		q.Intent = sqlmodel.IntentCount
	case strings.HasPrefix(upper, "SELECT"):
		q.Intent = sqlmodel.IntentSelect
	case strings.HasPrefix(upper, "INSERT"):
		q.Intent = sqlmodel.IntentInsert
	case strings.HasPrefix(upper, "UPDATE"):
		q.Intent = sqlmodel.IntentUpdate
	case strings.HasPrefix(upper, "DELETE"):
		q.Intent = sqlmodel.IntentDelete
	default:
		return nil, &sqlmodel.AnalysisError{Input: sql, Reason: "unrecognized statement verb"}
	}

	switch q.Intent {
	case sqlmodel.IntentInsert:
		if m := reInto.FindStringSubmatch(sql); m != nil {
			q.PrimaryTable = normalizeTable(m[1])
			for _, c := range strings.Split(m[2], ",") {
				c = strings.Trim(strings.TrimSpace(c), "`\"")
				if c != "" {
					q.InsertColumns = append(q.InsertColumns, strings.ToLower(c))
				}
			}
		}
	case sqlmodel.IntentUpdate:
		if m := reUpdate.FindStringSubmatch(sql); m != nil {
			q.PrimaryTable = normalizeTable(m[1])
		}
		if m := reSet.FindStringSubmatch(sql); m != nil {
			for _, sm := range reSetCol.FindAllStringSubmatch(m[1], -1) {
				q.InsertColumns = append(q.InsertColumns, strings.ToLower(sm[1]))
			}
		}
	default:
		if m := reFrom.FindStringSubmatch(sql); m != nil {
			q.PrimaryTable = normalizeTable(m[1])
		}
	}
	if q.PrimaryTable == "" && q.Intent != sqlmodel.IntentInsert {
		return nil, &sqlmodel.AnalysisError{Input: sql, Reason: "no table reference found"}
	}
	q.PrimaryModel = sqlmodel.RailsModel(q.PrimaryTable)

	if m := reWhere.FindStringSubmatch(sql); m != nil {
		q.Conditions = extractConditions(m[1])
	}
	if m := reOrder.FindStringSubmatch(sql); m != nil {
		q.OrderBy = &sqlmodel.OrderBy{
			Column:     sqlmodel.NormalizeColumn(m[1]),
			Descending: strings.EqualFold(m[2], "DESC"),
		}
	}
	if m := reLimit.FindStringSubmatch(sql); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			q.Limit = &n
		}
	}
	if m := reOffset.FindStringSubmatch(sql); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			q.Offset = &n
		}
	}
	return q, nil
}

// extractConditions pulls predicates out of a WHERE fragment. NULL tests are
// consumed first and their spans masked so the binary-operator pass cannot
// re-extract the same predicate (the historical double-extraction bug:
// "x IS NOT NULL" read once as a null test and once as "x = NULL").
func extractConditions(where string) []sqlmodel.Condition {
	var out []sqlmodel.Condition
	rest := where

	for _, m := range reIsNotNull.FindAllStringSubmatch(rest, -1) {
		out = append(out, sqlmodel.Condition{
			Column:   sqlmodel.NormalizeColumn(m[1]),
			Operator: sqlmodel.OpIsNotNull,
		})
	}
	rest = reIsNotNull.ReplaceAllString(rest, " ")

	for _, m := range reIsNull.FindAllStringSubmatch(rest, -1) {
		out = append(out, sqlmodel.Condition{
			Column:   sqlmodel.NormalizeColumn(m[1]),
			Operator: sqlmodel.OpIsNull,
		})
	}
	rest = reIsNull.ReplaceAllString(rest, " ")

	for _, m := range reIn.FindAllStringSubmatch(rest, -1) {
		out = append(out, sqlmodel.Condition{
			Column:   sqlmodel.NormalizeColumn(m[1]),
			Operator: sqlmodel.OpIn,
			Value:    strings.TrimSpace(m[2]),
		})
	}
	rest = reIn.ReplaceAllString(rest, " ")

	for _, m := range reBinary.FindAllStringSubmatch(rest, -1) {
		op := sqlmodel.Operator(m[2])
		if m[2] == "<>" {
			op = sqlmodel.OpNeq
		}
		val := strings.Trim(m[3], `'"`)
		if val == "?" {
			val = ""
		}
		out = append(out, sqlmodel.Condition{
			Column:   sqlmodel.NormalizeColumn(m[1]),
			Operator: op,
			Value:    val,
		})
	}
	return out
}

// ParseWhereFragment extracts conditions from a bare SQL WHERE fragment of
// the kind found in string predicates and frozen constants in source code.
func ParseWhereFragment(s string) []sqlmodel.Condition {
	return extractConditions(s)
}

func normalizeTable(t string) string {
	return strings.ToLower(strings.Trim(t, "`\""))
}
