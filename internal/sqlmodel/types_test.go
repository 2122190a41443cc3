package sqlmodel

import "testing"

func TestNormalizeColumn(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		table string
		col   string
	}{
		{"bare", "company_id", "", "company_id"},
		{"backticks", "`company_id`", "", "company_id"},
		{"qualified", "members.company_id", "members", "company_id"},
		{"qualified backticks", "`members`.`company_id`", "members", "company_id"},
		{"uppercase", "MEMBERS.Company_ID", "members", "company_id"},
		{"double quotes", `"login_handle"`, "", "login_handle"},
		{"whitespace", "  owner_id  ", "", "owner_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeColumn(tt.raw)
			if got.Table != tt.table || got.Name != tt.col {
				t.Errorf("NormalizeColumn(%q) = {%q, %q}, want {%q, %q}",
					tt.raw, got.Table, got.Name, tt.table, tt.col)
			}
		})
	}
}

func TestColumnRefEqual(t *testing.T) {
	a := ColumnRef{Table: "members", Name: "company_id"}
	b := ColumnRef{Name: "COMPANY_ID"}
	if !a.Equal(b) {
		t.Error("qualification and case should not affect equality")
	}
	c := ColumnRef{Name: "owner_id"}
	if a.Equal(c) {
		t.Error("different names should not be equal")
	}
}

func TestConditionKey_IgnoresValue(t *testing.T) {
	a := Condition{Column: ColumnRef{Name: "company_id"}, Operator: OpEq, Value: "5"}
	b := Condition{Column: ColumnRef{Name: "company_id"}, Operator: OpEq, Value: "9"}
	if a.Key() != b.Key() {
		t.Error("values must not affect the condition key")
	}
	c := Condition{Column: ColumnRef{Name: "company_id"}, Operator: OpIsNull}
	if a.Key() == c.Key() {
		t.Error("operator must affect the condition key")
	}
}

func TestConditionDescribe(t *testing.T) {
	tests := []struct {
		cond Condition
		want string
	}{
		{Condition{Column: ColumnRef{Name: "company_id"}, Operator: OpEq, Value: "5"}, "company_id = 5"},
		{Condition{Column: ColumnRef{Name: "company_id"}, Operator: OpEq}, "company_id = ?"},
		{Condition{Column: ColumnRef{Name: "owner_id"}, Operator: OpIsNull}, "owner_id IS NULL"},
		{Condition{Column: ColumnRef{Name: "login_handle"}, Operator: OpIsNotNull}, "login_handle IS NOT NULL"},
	}
	for _, tt := range tests {
		if got := tt.cond.Describe(); got != tt.want {
			t.Errorf("Describe() = %q, want %q", got, tt.want)
		}
	}
}

func TestOperatorUnary(t *testing.T) {
	for _, op := range []Operator{OpIsNull, OpIsNotNull} {
		if !op.Unary() {
			t.Errorf("%s should be unary", op)
		}
	}
	for _, op := range []Operator{OpEq, OpNeq, OpIn, OpLt, OpGte} {
		if op.Unary() {
			t.Errorf("%s should not be unary", op)
		}
	}
}

func TestHasPagination(t *testing.T) {
	n := 10
	if (&Query{}).HasPagination() {
		t.Error("no limit or offset")
	}
	if !(&Query{Limit: &n}).HasPagination() {
		t.Error("limit alone is pagination")
	}
	if !(&Query{Offset: &n}).HasPagination() {
		t.Error("offset alone is pagination")
	}
}

func TestConditionOn(t *testing.T) {
	q := &Query{Conditions: []Condition{
		{Column: ColumnRef{Name: "company_id"}, Operator: OpEq},
	}}
	if q.ConditionOn("COMPANY_ID") == nil {
		t.Error("lookup should be case-insensitive")
	}
	if q.ConditionOn("owner_id") != nil {
		t.Error("absent column should return nil")
	}
}

func TestTransactionFlowTables(t *testing.T) {
	flow := &TransactionFlow{Statements: []Statement{
		{Raw: "BEGIN"},
		{Query: &Query{Intent: IntentSelect, PrimaryTable: "members"}},
		{Query: &Query{Intent: IntentInsert, PrimaryTable: "audit_events"}},
		{Query: &Query{Intent: IntentUpdate, PrimaryTable: "members"}},
		{Query: &Query{Intent: IntentInsert, PrimaryTable: "audit_events"}},
	}}
	tables := flow.Tables()
	if len(tables) != 2 || tables[0] != "audit_events" || tables[1] != "members" {
		t.Errorf("Tables() = %v, want [audit_events members]", tables)
	}
}
