package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ppiankov/sqlsleuth/internal/engine"
	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

func TestWriteSARIF_ValidStructure(t *testing.T) {
	report := NewQueryReport("test", testQueryReport())
	var buf bytes.Buffer
	if err := Write(&buf, &report, FormatSARIF); err != nil {
		t.Fatal(err)
	}

	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("invalid SARIF JSON: %v\n%s", err, buf.String())
	}

	if log.Version != "2.1.0" {
		t.Errorf("version = %q, want 2.1.0", log.Version)
	}
	if len(log.Runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(log.Runs))
	}

	run := log.Runs[0]
	if run.Tool.Driver.Name != "sqlsleuth" {
		t.Errorf("tool name = %q", run.Tool.Driver.Name)
	}
	if len(run.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(run.Results))
	}

	r0 := run.Results[0]
	if r0.RuleID != "sqlsleuth/high" {
		t.Errorf("ruleId = %q", r0.RuleID)
	}
	if len(r0.Locations) != 1 {
		t.Fatalf("expected 1 location, got %d", len(r0.Locations))
	}
	loc := r0.Locations[0].PhysicalLocation
	if loc.ArtifactLocation.URI != "app/models/member.rb" {
		t.Errorf("uri = %q", loc.ArtifactLocation.URI)
	}
	if loc.Region.StartLine != 12 {
		t.Errorf("startLine = %d, want 12", loc.Region.StartLine)
	}
	if !strings.Contains(r0.Message.Text, "matched: condition company_id = ?") {
		t.Errorf("rationale missing from message: %q", r0.Message.Text)
	}
}

func TestWriteSARIF_Empty(t *testing.T) {
	report := NewQueryReport("test", &engine.QueryReport{Matches: []sqlmodel.MatchResult{}})
	var buf bytes.Buffer
	if err := Write(&buf, &report, FormatSARIF); err != nil {
		t.Fatal(err)
	}

	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("invalid SARIF JSON: %v", err)
	}
	if log.Runs[0].Results == nil {
		t.Error("results must be an empty array, not null")
	}
}

func TestWriteSARIF_TransactionFlattens(t *testing.T) {
	tr := &engine.TransactionReport{
		Statements: []engine.StatementReport{
			{Report: testQueryReport()},
			{Report: testQueryReport()},
		},
	}
	report := NewTransactionReport("test", tr)
	var buf bytes.Buffer
	if err := Write(&buf, &report, FormatSARIF); err != nil {
		t.Fatal(err)
	}

	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("invalid SARIF JSON: %v", err)
	}
	if len(log.Runs[0].Results) != 4 {
		t.Errorf("expected 4 flattened results, got %d", len(log.Runs[0].Results))
	}
}
