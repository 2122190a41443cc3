package sqlmodel

import "strings"

// Intent classifies what a SQL statement does.
type Intent string

const (
	IntentSelect Intent = "SELECT"
	IntentInsert Intent = "INSERT"
	IntentUpdate Intent = "UPDATE"
	IntentDelete Intent = "DELETE"
	IntentExists Intent = "EXISTS"
	IntentCount  Intent = "COUNT"
)

// Intents lists every intent value. Fingerprinting and pattern building
// switch over this set exhaustively; a statement that fits none of them is
// an analysis error, never a silent default.
var Intents = []Intent{IntentSelect, IntentInsert, IntentUpdate, IntentDelete, IntentExists, IntentCount}

// Operator is a comparison operator in a WHERE predicate.
type Operator string

const (
	OpEq        Operator = "="
	OpNeq       Operator = "!="
	OpLt        Operator = "<"
	OpLte       Operator = "<="
	OpGt        Operator = ">"
	OpGte       Operator = ">="
	OpIn        Operator = "IN"
	OpIsNull    Operator = "IS NULL"
	OpIsNotNull Operator = "IS NOT NULL"
)

// Unary reports whether the operator takes no right-hand value.
func (o Operator) Unary() bool {
	return o == OpIsNull || o == OpIsNotNull
}

// ColumnRef names a column, optionally qualified by table.
type ColumnRef struct {
	Table string `json:"table,omitempty"`
	Name  string `json:"name"`
}

// NormalizeColumn strips backtick/quote decoration and an optional table
// qualifier from a raw column token and returns a lowercased ColumnRef.
func NormalizeColumn(raw string) ColumnRef {
	s := strings.Trim(strings.TrimSpace(raw), "`\"'")
	s = strings.ToLower(s)
	if i := strings.LastIndex(s, "."); i >= 0 {
		return ColumnRef{
			Table: strings.Trim(s[:i], "`\"'"),
			Name:  strings.Trim(s[i+1:], "`\"'"),
		}
	}
	return ColumnRef{Name: s}
}

// Equal compares column names ignoring case and table qualification.
func (c ColumnRef) Equal(other ColumnRef) bool {
	return strings.EqualFold(c.Name, other.Name)
}

// Condition is one normalized WHERE predicate.
type Condition struct {
	Column   ColumnRef `json:"column"`
	Operator Operator  `json:"operator"`
	Value    string    `json:"value,omitempty"` // literal text; "" means placeholder
}

// Key identifies the condition for set comparison. Values are structurally
// irrelevant for matching, so the key is (column, operator) only.
func (c Condition) Key() string {
	return strings.ToLower(c.Column.Name) + " " + string(c.Operator)
}

// Describe renders the condition for rationale output.
func (c Condition) Describe() string {
	if c.Operator.Unary() {
		return c.Column.Name + " " + string(c.Operator)
	}
	v := c.Value
	if v == "" {
		v = "?"
	}
	return c.Column.Name + " " + string(c.Operator) + " " + v
}

// OrderBy is an ORDER BY clause reduced to its first column.
type OrderBy struct {
	Column     ColumnRef `json:"column"`
	Descending bool      `json:"descending,omitempty"`
}

// Query is the structured model of a single analyzed SQL statement.
// Immutable once built.
type Query struct {
	Intent        Intent      `json:"intent"`
	PrimaryTable  string      `json:"primaryTable"`
	PrimaryModel  string      `json:"primaryModel"`
	Conditions    []Condition `json:"conditions,omitempty"`
	OrderBy       *OrderBy    `json:"orderBy,omitempty"`
	Limit         *int        `json:"limit,omitempty"`
	Offset        *int        `json:"offset,omitempty"`
	InsertColumns []string    `json:"insertColumns,omitempty"`
	Raw           string      `json:"-"`
}

// HasPagination reports whether the query carries LIMIT or OFFSET.
func (q *Query) HasPagination() bool {
	return q.Limit != nil || q.Offset != nil
}

// Condition lookup by column name, nil if absent.
func (q *Query) ConditionOn(column string) *Condition {
	for i := range q.Conditions {
		if strings.EqualFold(q.Conditions[i].Column.Name, column) {
			return &q.Conditions[i]
		}
	}
	return nil
}
