package txlog

import (
	"errors"
	"testing"

	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

const sampleLog = `BEGIN;
INSERT INTO audit_events (member_id, event_type, payload) VALUES (1, 'claim', '{}');
UPDATE members SET owner_id = 7, claimed_at = NOW() WHERE id = 1;
UPDATE companies SET members_count = members_count + 1 WHERE id = 5;
COMMIT;`

func TestParse(t *testing.T) {
	flow, err := Parse(sampleLog)
	if err != nil {
		t.Fatal(err)
	}
	if len(flow.Statements) != 5 {
		t.Fatalf("got %d statements", len(flow.Statements))
	}

	if flow.Statements[0].Query != nil || flow.Statements[4].Query != nil {
		t.Error("boundary markers must keep a nil query")
	}
	if flow.Statements[0].Raw != "BEGIN" {
		t.Errorf("first raw = %q", flow.Statements[0].Raw)
	}

	ins := flow.Statements[1].Query
	if ins == nil || ins.Intent != sqlmodel.IntentInsert || ins.PrimaryTable != "audit_events" {
		t.Errorf("insert statement = %+v", ins)
	}
	upd := flow.Statements[2].Query
	if upd == nil || upd.Intent != sqlmodel.IntentUpdate || upd.PrimaryTable != "members" {
		t.Errorf("update statement = %+v", upd)
	}
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse("   \n")
	if !errors.Is(err, sqlmodel.ErrEmptyInput) {
		t.Errorf("err = %v, want ErrEmptyInput", err)
	}
}

// A statement no parser accepts stays in the flow as raw text; one bad line
// must not discard the rest of the log.
func TestParse_UnparseableStatementKept(t *testing.T) {
	flow, err := Parse(`BEGIN;
SET LOCAL statement_timeout = 0;
UPDATE members SET owner_id = 7 WHERE id = 1;
COMMIT;`)
	if err != nil {
		t.Fatal(err)
	}
	if len(flow.Statements) != 4 {
		t.Fatalf("got %d statements", len(flow.Statements))
	}
	if flow.Statements[2].Query == nil {
		t.Error("parseable statement lost after an unparseable one")
	}
}

func TestParse_Savepoints(t *testing.T) {
	flow, err := Parse(`BEGIN;
SAVEPOINT active_record_1;
INSERT INTO audit_events (member_id) VALUES (1);
RELEASE SAVEPOINT active_record_1;
COMMIT;`)
	if err != nil {
		t.Fatal(err)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if flow.Statements[i].Query != nil {
			t.Errorf("statement %d (%q) should be a boundary", i, flow.Statements[i].Raw)
		}
	}
	if flow.Statements[2].Query == nil {
		t.Error("insert inside savepoint not analyzed")
	}
}

func TestParse_Tables(t *testing.T) {
	flow, err := Parse(sampleLog)
	if err != nil {
		t.Fatal(err)
	}
	got := flow.Tables()
	want := []string{"audit_events", "members", "companies"}
	if len(got) != len(want) {
		t.Fatalf("tables = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tables[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
