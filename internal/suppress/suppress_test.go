package suppress

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

func TestLoadRules_NoFile(t *testing.T) {
	rules, err := LoadRules(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(rules.ignoreFile.Suppressions) != 0 {
		t.Error("expected empty rules")
	}
}

func TestLoadRules_ValidFile(t *testing.T) {
	dir := t.TempDir()
	content := `suppressions:
  - path: app/models/legacy_report.rb
    reason: "Known false positive"
  - path: lib/tasks/*
    pattern: find_by_sql
    reason: "Raw SQL rake tasks reviewed separately"
`
	if err := os.WriteFile(filepath.Join(dir, ".sqlsleuth-ignore.yml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRules(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(rules.ignoreFile.Suppressions) != 2 {
		t.Fatalf("expected 2 suppressions, got %d", len(rules.ignoreFile.Suppressions))
	}
}

func TestLoadRules_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".sqlsleuth-ignore.yml"), []byte("{{invalid"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadRules(dir)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestMatches_ExactPath(t *testing.T) {
	rules := &Rules{
		ignoreFile: IgnoreFile{
			Suppressions: []Suppression{
				{Path: "app/models/legacy_report.rb"},
			},
		},
	}

	if !rules.Matches("app/models/legacy_report.rb", "anything") {
		t.Error("exact path should be suppressed")
	}
	if rules.Matches("app/models/member.rb", "anything") {
		t.Error("other path should not be suppressed")
	}
}

func TestMatches_Wildcard(t *testing.T) {
	rules := &Rules{
		ignoreFile: IgnoreFile{
			Suppressions: []Suppression{
				{Path: "lib/tasks/*"},
			},
		},
	}

	if !rules.Matches("lib/tasks/cleanup.rake", "anything") {
		t.Error("wildcard path should match")
	}
	if rules.Matches("lib/roster.rb", "anything") {
		t.Error("path outside wildcard should not match")
	}
}

func TestMatches_PatternFilter(t *testing.T) {
	rules := &Rules{
		ignoreFile: IgnoreFile{
			Suppressions: []Suppression{
				{Path: "lib/tasks/*", Pattern: "find_by_sql"},
			},
		},
	}

	if !rules.Matches("lib/tasks/cleanup.rake", "Member.find_by_sql(raw)") {
		t.Error("matching line should be suppressed")
	}
	if rules.Matches("lib/tasks/cleanup.rake", "Member.where(active: true)") {
		t.Error("non-matching line should not be suppressed")
	}
}

func TestMatches_CaseInsensitivePath(t *testing.T) {
	rules := &Rules{
		ignoreFile: IgnoreFile{
			Suppressions: []Suppression{
				{Path: "App/Models/Legacy_Report.rb"},
			},
		},
	}

	if !rules.Matches("app/models/legacy_report.rb", "anything") {
		t.Error("path match should be case-insensitive")
	}
}

func TestFilter(t *testing.T) {
	rules := &Rules{
		ignoreFile: IgnoreFile{
			Suppressions: []Suppression{
				{Path: "app/models/legacy_report.rb"},
			},
		},
	}

	results := []sqlmodel.MatchResult{
		{File: "app/models/legacy_report.rb", Line: 4},
		{File: "app/models/member.rb", Line: 12},
	}
	filtered, suppressed := rules.Filter(results)
	if suppressed != 1 {
		t.Errorf("suppressed = %d, want 1", suppressed)
	}
	if len(filtered) != 1 || filtered[0].File != "app/models/member.rb" {
		t.Errorf("unexpected filtered set: %+v", filtered)
	}
}

func TestFilter_NoRules(t *testing.T) {
	rules := &Rules{}
	results := []sqlmodel.MatchResult{{File: "a.rb", Line: 1}}
	filtered, suppressed := rules.Filter(results)
	if suppressed != 0 || len(filtered) != 1 {
		t.Errorf("no rules should pass everything: %d suppressed", suppressed)
	}
}

func TestHasInlineIgnore(t *testing.T) {
	if !HasInlineIgnore("scope :weird, -> { where(x: 1) } # sqlsleuth:ignore") {
		t.Error("inline marker should be detected")
	}
	if HasInlineIgnore("scope :normal, -> { where(x: 1) }") {
		t.Error("plain line should not be ignored")
	}
}
