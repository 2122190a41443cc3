package sqlparse

import (
	"errors"
	"testing"

	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

func mustAnalyze(t *testing.T, sql string) *sqlmodel.Query {
	t.Helper()
	q, err := Analyze(sql)
	if err != nil {
		t.Fatalf("Analyze(%q): %v", sql, err)
	}
	return q
}

func TestAnalyze_Select(t *testing.T) {
	q := mustAnalyze(t, "SELECT `members`.* FROM `members` WHERE `members`.`company_id` = 5 AND `members`.`owner_id` IS NULL ORDER BY `members`.`id` DESC LIMIT 500 OFFSET 1000")

	if q.Intent != sqlmodel.IntentSelect {
		t.Errorf("intent = %s", q.Intent)
	}
	if q.PrimaryTable != "members" || q.PrimaryModel != "Member" {
		t.Errorf("table/model = %q/%q", q.PrimaryTable, q.PrimaryModel)
	}
	if len(q.Conditions) != 2 {
		t.Fatalf("conditions = %+v", q.Conditions)
	}
	if q.Conditions[0].Column.Name != "company_id" || q.Conditions[0].Operator != sqlmodel.OpEq || q.Conditions[0].Value != "5" {
		t.Errorf("first condition = %+v", q.Conditions[0])
	}
	if q.Conditions[1].Column.Name != "owner_id" || q.Conditions[1].Operator != sqlmodel.OpIsNull {
		t.Errorf("second condition = %+v", q.Conditions[1])
	}
	if q.OrderBy == nil || q.OrderBy.Column.Name != "id" || !q.OrderBy.Descending {
		t.Errorf("order = %+v", q.OrderBy)
	}
	if q.Limit == nil || *q.Limit != 500 {
		t.Errorf("limit = %v", q.Limit)
	}
	if q.Offset == nil || *q.Offset != 1000 {
		t.Errorf("offset = %v", q.Offset)
	}
}

func TestAnalyze_ExistsIdiom(t *testing.T) {
	q := mustAnalyze(t, "SELECT 1 AS one FROM `members` WHERE `members`.`login_handle` IS NOT NULL LIMIT 1")
	if q.Intent != sqlmodel.IntentExists {
		t.Errorf("intent = %s, want EXISTS", q.Intent)
	}
	if len(q.Conditions) != 1 || q.Conditions[0].Operator != sqlmodel.OpIsNotNull {
		t.Errorf("conditions = %+v", q.Conditions)
	}
}

func TestAnalyze_PureCount(t *testing.T) {
	q := mustAnalyze(t, "SELECT COUNT(*) FROM members WHERE company_id = 3")
	if q.Intent != sqlmodel.IntentCount {
		t.Errorf("intent = %s, want COUNT", q.Intent)
	}
}

func TestAnalyze_CountWithCompanionIsSelect(t *testing.T) {
	q := mustAnalyze(t, "SELECT COUNT(*), company_id FROM members GROUP BY company_id")
	if q.Intent != sqlmodel.IntentSelect {
		t.Errorf("intent = %s, want SELECT for mixed projection", q.Intent)
	}
}

func TestAnalyze_Insert(t *testing.T) {
	q := mustAnalyze(t, "INSERT INTO `audit_events` (`member_id`, `event_type`, `created_at`) VALUES (1, 'login', NOW())")
	if q.Intent != sqlmodel.IntentInsert {
		t.Errorf("intent = %s", q.Intent)
	}
	if q.PrimaryTable != "audit_events" || q.PrimaryModel != "AuditEvent" {
		t.Errorf("table/model = %q/%q", q.PrimaryTable, q.PrimaryModel)
	}
	want := []string{"member_id", "event_type", "created_at"}
	if len(q.InsertColumns) != len(want) {
		t.Fatalf("insert columns = %v", q.InsertColumns)
	}
	for i, c := range want {
		if q.InsertColumns[i] != c {
			t.Errorf("column[%d] = %q, want %q", i, q.InsertColumns[i], c)
		}
	}
}

func TestAnalyze_Update(t *testing.T) {
	q := mustAnalyze(t, "UPDATE members SET login_handle = 'new', updated_at = NOW() WHERE id = 7")
	if q.Intent != sqlmodel.IntentUpdate {
		t.Errorf("intent = %s", q.Intent)
	}
	if len(q.InsertColumns) != 2 || q.InsertColumns[0] != "login_handle" || q.InsertColumns[1] != "updated_at" {
		t.Errorf("updated columns = %v", q.InsertColumns)
	}
	if len(q.Conditions) != 1 || q.Conditions[0].Column.Name != "id" {
		t.Errorf("conditions = %+v", q.Conditions)
	}
}

func TestAnalyze_Delete(t *testing.T) {
	q := mustAnalyze(t, "DELETE FROM audit_events WHERE created_at < '2020-01-01'")
	if q.Intent != sqlmodel.IntentDelete {
		t.Errorf("intent = %s", q.Intent)
	}
	if len(q.Conditions) != 1 || q.Conditions[0].Operator != sqlmodel.OpLt {
		t.Errorf("conditions = %+v", q.Conditions)
	}
}

func TestAnalyze_InCondition(t *testing.T) {
	q := mustAnalyze(t, "SELECT * FROM members WHERE company_id IN (1, 2, 3)")
	if len(q.Conditions) != 1 || q.Conditions[0].Operator != sqlmodel.OpIn {
		t.Errorf("conditions = %+v", q.Conditions)
	}
}

func TestAnalyze_Placeholder(t *testing.T) {
	q := mustAnalyze(t, "SELECT * FROM members WHERE company_id = ?")
	if len(q.Conditions) != 1 {
		t.Fatalf("conditions = %+v", q.Conditions)
	}
	if q.Conditions[0].Value != "" {
		t.Errorf("placeholder value should be empty, got %q", q.Conditions[0].Value)
	}
}

func TestAnalyze_Empty(t *testing.T) {
	_, err := Analyze("   ")
	if !errors.Is(err, sqlmodel.ErrEmptyInput) {
		t.Errorf("err = %v, want ErrEmptyInput", err)
	}
}

func TestAnalyze_Garbage(t *testing.T) {
	_, err := Analyze("this is not sql at all")
	var ae *sqlmodel.AnalysisError
	if !errors.As(err, &ae) {
		t.Errorf("err = %v, want AnalysisError", err)
	}
}

func TestAnalyze_TrailingSemicolon(t *testing.T) {
	q := mustAnalyze(t, "SELECT * FROM members;")
	if q.PrimaryTable != "members" {
		t.Errorf("table = %q", q.PrimaryTable)
	}
}

// The fallback must produce the same shape as the AST path for statements
// both can read.
func TestFallback_ParityWithAST(t *testing.T) {
	sql := "SELECT * FROM members WHERE company_id = 5 AND owner_id IS NULL ORDER BY id DESC LIMIT 10 OFFSET 20"
	ast := mustAnalyze(t, sql)
	fb, err := analyzeFallback(sql)
	if err != nil {
		t.Fatal(err)
	}

	if ast.Intent != fb.Intent || ast.PrimaryTable != fb.PrimaryTable {
		t.Errorf("intent/table diverge: AST %s/%s, fallback %s/%s", ast.Intent, ast.PrimaryTable, fb.Intent, fb.PrimaryTable)
	}
	if len(ast.Conditions) != len(fb.Conditions) {
		t.Fatalf("condition counts diverge: AST %+v, fallback %+v", ast.Conditions, fb.Conditions)
	}
	astKeys := make(map[string]bool)
	for _, c := range ast.Conditions {
		astKeys[c.Key()] = true
	}
	for _, c := range fb.Conditions {
		if !astKeys[c.Key()] {
			t.Errorf("fallback condition %q not produced by AST path", c.Key())
		}
	}
	if *ast.Limit != *fb.Limit || *ast.Offset != *fb.Offset {
		t.Error("limit/offset diverge")
	}
	if ast.OrderBy.Column.Name != fb.OrderBy.Column.Name || ast.OrderBy.Descending != fb.OrderBy.Descending {
		t.Error("order diverges")
	}
}

// A NULL test must never be extracted twice: once as a null predicate and
// once as a binary comparison against the token NULL.
func TestExtractConditions_NullTestSingleExtraction(t *testing.T) {
	conds := extractConditions("login_handle IS NOT NULL AND owner_id IS NULL")
	if len(conds) != 2 {
		t.Fatalf("expected exactly 2 conditions, got %+v", conds)
	}
	for _, c := range conds {
		if !c.Operator.Unary() {
			t.Errorf("unexpected binary condition %+v", c)
		}
	}
}

func TestExtractConditions_MixedOperators(t *testing.T) {
	conds := extractConditions("company_id = 5 AND status != 'closed' AND score >= 10 AND kind IN ('a','b')")
	ops := make(map[sqlmodel.Operator]bool)
	for _, c := range conds {
		ops[c.Operator] = true
	}
	for _, want := range []sqlmodel.Operator{sqlmodel.OpEq, sqlmodel.OpNeq, sqlmodel.OpGte, sqlmodel.OpIn} {
		if !ops[want] {
			t.Errorf("operator %s not extracted: %+v", want, conds)
		}
	}
}

func TestFallback_Exists(t *testing.T) {
	q, err := analyzeFallback("SELECT 1 AS one FROM members WHERE id = 3 LIMIT 1")
	if err != nil {
		t.Fatal(err)
	}
	if q.Intent != sqlmodel.IntentExists {
		t.Errorf("intent = %s, want EXISTS", q.Intent)
	}
}

func TestFallback_NoTable(t *testing.T) {
	_, err := analyzeFallback("SELECT 1")
	if err == nil {
		t.Error("expected error for SELECT without a table")
	}
}
