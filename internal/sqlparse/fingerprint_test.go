package sqlparse

import (
	"strings"
	"testing"

	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

func TestFingerprint(t *testing.T) {
	lim, off := 500, 1000
	tests := []struct {
		name string
		q    *sqlmodel.Query
		want string
	}{
		{
			name: "select with everything",
			q: &sqlmodel.Query{
				Intent:       sqlmodel.IntentSelect,
				PrimaryTable: "members",
				Conditions: []sqlmodel.Condition{
					{Column: sqlmodel.ColumnRef{Name: "company_id"}, Operator: sqlmodel.OpEq, Value: "5"},
					{Column: sqlmodel.ColumnRef{Name: "owner_id"}, Operator: sqlmodel.OpIsNull},
				},
				OrderBy: &sqlmodel.OrderBy{Column: sqlmodel.ColumnRef{Name: "id"}, Descending: true},
				Limit:   &lim,
				Offset:  &off,
			},
			want: "SELECT * FROM members WHERE company_id = ? AND owner_id IS NULL ORDER BY id DESC LIMIT ? OFFSET ?",
		},
		{
			name: "insert",
			q: &sqlmodel.Query{
				Intent:        sqlmodel.IntentInsert,
				PrimaryTable:  "audit_events",
				InsertColumns: []string{"member_id", "event_type"},
			},
			want: "INSERT INTO audit_events (member_id, event_type)",
		},
		{
			name: "update",
			q: &sqlmodel.Query{
				Intent:        sqlmodel.IntentUpdate,
				PrimaryTable:  "members",
				InsertColumns: []string{"login_handle"},
				Conditions: []sqlmodel.Condition{
					{Column: sqlmodel.ColumnRef{Name: "id"}, Operator: sqlmodel.OpEq, Value: "7"},
				},
			},
			want: "UPDATE members SET (login_handle) WHERE id = ?",
		},
		{
			name: "delete",
			q: &sqlmodel.Query{
				Intent:       sqlmodel.IntentDelete,
				PrimaryTable: "audit_events",
			},
			want: "DELETE FROM audit_events",
		},
		{
			name: "exists",
			q: &sqlmodel.Query{
				Intent:       sqlmodel.IntentExists,
				PrimaryTable: "members",
				Conditions: []sqlmodel.Condition{
					{Column: sqlmodel.ColumnRef{Name: "login_handle"}, Operator: sqlmodel.OpIsNotNull},
				},
			},
			want: "SELECT 1 AS one FROM members WHERE login_handle IS NOT NULL LIMIT 1",
		},
		{
			name: "count",
			q: &sqlmodel.Query{
				Intent:       sqlmodel.IntentCount,
				PrimaryTable: "members",
			},
			want: "SELECT COUNT(*) FROM members",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fingerprint(tt.q); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// Every declared intent must have its own rendering branch.
func TestFingerprint_CoversAllIntents(t *testing.T) {
	for _, intent := range sqlmodel.Intents {
		q := &sqlmodel.Query{Intent: intent, PrimaryTable: "members"}
		if got := Fingerprint(q); strings.Contains(got, "UNRECOGNIZED") {
			t.Errorf("intent %s fell through to the default branch: %q", intent, got)
		}
	}
}

func TestFingerprint_UnknownIntentIsLoud(t *testing.T) {
	q := &sqlmodel.Query{Intent: sqlmodel.Intent("VACUUM"), PrimaryTable: "members"}
	got := Fingerprint(q)
	if !strings.Contains(got, "UNRECOGNIZED") || !strings.Contains(got, "VACUUM") {
		t.Errorf("unknown intent should render loudly, got %q", got)
	}
}

// The fingerprint must not depend on bound values, only on shape.
func TestFingerprint_ValueIndependent(t *testing.T) {
	a := mustAnalyze(t, "SELECT * FROM members WHERE company_id = 5")
	b := mustAnalyze(t, "SELECT * FROM members WHERE company_id = 99")
	if Fingerprint(a) != Fingerprint(b) {
		t.Errorf("fingerprints diverge on bound values: %q vs %q", Fingerprint(a), Fingerprint(b))
	}
}
