package scoring

import (
	"strings"
	"testing"

	"github.com/ppiankov/sqlsleuth/internal/config"
	"github.com/ppiankov/sqlsleuth/internal/rubymodel"
	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

func intPtr(n int) *int { return &n }

func newScorer(t *testing.T) *Scorer {
	t.Helper()
	cfg := config.DefaultConfig()
	return &Scorer{
		Tuning:   &cfg.Tuning,
		Resolver: rubymodel.NewResolver(t.TempDir(), nil),
	}
}

func paginatedQuery() *sqlmodel.Query {
	return &sqlmodel.Query{
		Intent:       sqlmodel.IntentSelect,
		PrimaryTable: "members",
		PrimaryModel: "Member",
		Conditions: []sqlmodel.Condition{
			{Column: sqlmodel.ColumnRef{Name: "company_id"}, Operator: sqlmodel.OpEq, Value: "5"},
			{Column: sqlmodel.ColumnRef{Name: "owner_id"}, Operator: sqlmodel.OpIsNull},
		},
		OrderBy: &sqlmodel.OrderBy{Column: sqlmodel.ColumnRef{Name: "id"}, Descending: true},
		Limit:   intPtr(500),
		Offset:  intPtr(1000),
	}
}

func blockWith(text string) sqlmodel.CandidateBlock {
	return sqlmodel.CandidateBlock{
		File:      "app/mailers/digest_mailer.rb",
		StartLine: 3,
		EndLine:   5,
		Text:      text,
	}
}

func TestScore_FullMatchIsHigh(t *testing.T) {
	s := newScorer(t)
	block := blockWith(`Member.where(company_id: company.id).where(owner_id: nil).order(id: :desc).limit(500).offset(1000)`)

	r := s.Score(paginatedQuery(), block)
	if r.Label != sqlmodel.LabelHigh {
		t.Errorf("label = %s (%.3f), want high", r.Label, r.Confidence)
	}
	if r.Confidence < 0.9 {
		t.Errorf("confidence = %.3f, want >= 0.9", r.Confidence)
	}
	if len(r.Matched) == 0 {
		t.Error("full match carries no matched rationale")
	}
	if len(r.Missing) != 0 {
		t.Errorf("full match reports missing clauses: %v", r.Missing)
	}
}

func TestScore_ExtraConditionBelowHigh(t *testing.T) {
	s := newScorer(t)
	q := &sqlmodel.Query{
		Intent:       sqlmodel.IntentSelect,
		PrimaryTable: "members",
		PrimaryModel: "Member",
		Conditions: []sqlmodel.Condition{
			{Column: sqlmodel.ColumnRef{Name: "company_id"}, Operator: sqlmodel.OpEq, Value: "5"},
		},
	}
	block := blockWith(`Member.where(company_id: c.id).where(active: true)`)

	r := s.Score(q, block)
	if r.Label == sqlmodel.LabelHigh {
		t.Errorf("a source adding a condition must not read as high (%.3f)", r.Confidence)
	}
	if len(r.Extra) == 0 {
		t.Error("extra condition not reported in rationale")
	}
	if r.Confidence != 0.75 {
		t.Errorf("confidence = %.3f, want 0.75 for one extra against one matched", r.Confidence)
	}
}

func TestScore_MissingConditionCapped(t *testing.T) {
	s := newScorer(t)
	q := &sqlmodel.Query{
		Intent:       sqlmodel.IntentSelect,
		PrimaryTable: "members",
		PrimaryModel: "Member",
		Conditions: []sqlmodel.Condition{
			{Column: sqlmodel.ColumnRef{Name: "company_id"}, Operator: sqlmodel.OpEq},
			{Column: sqlmodel.ColumnRef{Name: "owner_id"}, Operator: sqlmodel.OpIsNull},
		},
	}
	block := blockWith(`Member.where(company_id: c.id)`)

	r := s.Score(q, block)
	if r.Confidence > s.Tuning.Caps.MissingWhere {
		t.Errorf("confidence %.3f exceeds the missing-condition cap %.2f", r.Confidence, s.Tuning.Caps.MissingWhere)
	}
	found := false
	for _, m := range r.Missing {
		if strings.Contains(m, "owner_id") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing rationale lacks the absent condition: %v", r.Missing)
	}
}

func TestScore_MissingOrderOnPaginatedQueryCapped(t *testing.T) {
	s := newScorer(t)
	block := blockWith(`Member.where(company_id: c.id).where(owner_id: nil).limit(500).offset(1000)`)

	r := s.Score(paginatedQuery(), block)
	if r.Confidence > s.Tuning.Caps.MissingOrder {
		t.Errorf("unordered pagination scored %.3f, cap is %.2f", r.Confidence, s.Tuning.Caps.MissingOrder)
	}
	found := false
	for _, m := range r.Missing {
		if strings.Contains(m, "order by id") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing rationale lacks the order clause: %v", r.Missing)
	}
}

func TestScore_MissingOrderWithoutPaginationNotCapped(t *testing.T) {
	s := newScorer(t)
	q := &sqlmodel.Query{
		Intent:       sqlmodel.IntentSelect,
		PrimaryTable: "members",
		PrimaryModel: "Member",
		Conditions: []sqlmodel.Condition{
			{Column: sqlmodel.ColumnRef{Name: "company_id"}, Operator: sqlmodel.OpEq},
		},
		OrderBy: &sqlmodel.OrderBy{Column: sqlmodel.ColumnRef{Name: "id"}},
	}
	block := blockWith(`Member.where(company_id: c.id)`)

	r := s.Score(q, block)
	// Ordering is only correctness-critical under pagination; without it the
	// weighted deficit applies but not the hard cap.
	if r.Confidence <= s.Tuning.Caps.MissingOrder {
		t.Errorf("confidence %.3f; the missing-order cap should not bind without pagination", r.Confidence)
	}
}

func TestScore_LimitMismatchCapped(t *testing.T) {
	s := newScorer(t)
	block := blockWith(`Member.where(company_id: c.id).where(owner_id: nil).order(id: :desc).limit(100).offset(1000)`)

	r := s.Score(paginatedQuery(), block)
	if r.Confidence > s.Tuning.Caps.BadPagination {
		t.Errorf("limit mismatch scored %.3f, cap is %.2f", r.Confidence, s.Tuning.Caps.BadPagination)
	}
	found := false
	for _, m := range r.Missing {
		if strings.Contains(m, "LIMIT mismatch") {
			found = true
		}
	}
	if !found {
		t.Errorf("rationale lacks the limit mismatch: %v", r.Missing)
	}
}

func TestScore_OffsetNotMultipleOfPageSize(t *testing.T) {
	s := newScorer(t)
	q := paginatedQuery()
	q.Offset = intPtr(1234)
	block := blockWith(`Member.where(company_id: c.id).where(owner_id: nil).order(id: :desc).limit(500).offset(page * 500)`)

	r := s.Score(q, block)
	if r.Confidence > s.Tuning.Caps.BadPagination {
		t.Errorf("impossible offset scored %.3f, cap is %.2f", r.Confidence, s.Tuning.Caps.BadPagination)
	}
	found := false
	for _, m := range r.Missing {
		if strings.Contains(m, "not a multiple of page size") {
			found = true
		}
	}
	if !found {
		t.Errorf("rationale lacks the page-size issue: %v", r.Missing)
	}
}

func TestScore_ManyMissingCapped(t *testing.T) {
	s := newScorer(t)
	block := blockWith(`Member.all`)

	r := s.Score(paginatedQuery(), block)
	if r.Confidence > s.Tuning.Caps.ManyMissing {
		t.Errorf("candidate missing everything scored %.3f, cap is %.2f", r.Confidence, s.Tuning.Caps.ManyMissing)
	}
	if r.Label != sqlmodel.LabelLow {
		t.Errorf("label = %s, want low", r.Label)
	}
}

// More matched conditions can never score lower, all else equal.
func TestScore_Monotonic(t *testing.T) {
	s := newScorer(t)
	q := paginatedQuery()

	partial := s.Score(q, blockWith(`Member.where(company_id: c.id).order(id: :desc).limit(500).offset(1000)`))
	full := s.Score(q, blockWith(`Member.where(company_id: c.id).where(owner_id: nil).order(id: :desc).limit(500).offset(1000)`))

	if full.Confidence < partial.Confidence {
		t.Errorf("full match %.3f scored below partial match %.3f", full.Confidence, partial.Confidence)
	}
}

func TestScore_GenericOrderWorthLessThanColumnMatch(t *testing.T) {
	s := newScorer(t)
	q := paginatedQuery()

	columnMatch := s.Score(q, blockWith(`Member.where(company_id: c.id).where(owner_id: nil).order(id: :desc).limit(500).offset(1000)`))
	genericOrder := s.Score(q, blockWith(`Member.where(company_id: c.id).where(owner_id: nil).order(sort_expr).limit(500).offset(1000)`))

	if genericOrder.Confidence >= columnMatch.Confidence {
		t.Errorf("unverified ordering %.3f should score below a column match %.3f", genericOrder.Confidence, columnMatch.Confidence)
	}
	found := false
	for _, m := range genericOrder.Matched {
		if strings.Contains(m, "column unverified") {
			found = true
		}
	}
	if !found {
		t.Errorf("rationale does not flag the unverified order column: %v", genericOrder.Matched)
	}
}

func TestScore_DistinctivenessBonus(t *testing.T) {
	s := newScorer(t)
	q := paginatedQuery()
	text := `Member.where(company_id: c.id).where(owner_id: nil).order(id: :desc).limit(500).offset(1000)`

	plain := s.Score(q, blockWith(text))

	withPatterns := blockWith(text)
	withPatterns.MatchedPatterns = []sqlmodel.SearchPattern{
		{Text: ".limit(500)", Distinctiveness: 0.85, Clause: sqlmodel.ClauseLimit},
		{Text: ".for_company", Distinctiveness: 0.7, Clause: sqlmodel.ClauseScope},
	}
	boosted := s.Score(q, withPatterns)

	// Both are full matches; the distinctiveness term only redistributes
	// weight, so neither falls out of the high band.
	if plain.Label != sqlmodel.LabelHigh || boosted.Label != sqlmodel.LabelHigh {
		t.Errorf("labels = %s / %s, want high for both", plain.Label, boosted.Label)
	}
}

func TestScore_ConfidenceInRange(t *testing.T) {
	s := newScorer(t)
	snippets := []string{
		`Member.all`,
		`Member.where(company_id: c.id)`,
		`Member.where(company_id: c.id).where(owner_id: nil).where(a: 1).where(b: 2).order(id: :desc).limit(500).offset(1000)`,
		``,
	}
	for _, text := range snippets {
		r := s.Score(paginatedQuery(), blockWith(text))
		if r.Confidence < 0 || r.Confidence > 1 {
			t.Errorf("confidence %.3f out of range for snippet %q", r.Confidence, text)
		}
	}
}

func TestCompare(t *testing.T) {
	query := []sqlmodel.Condition{
		{Column: sqlmodel.ColumnRef{Name: "company_id"}, Operator: sqlmodel.OpEq, Value: "5"},
		{Column: sqlmodel.ColumnRef{Name: "owner_id"}, Operator: sqlmodel.OpIsNull},
	}
	source := []sqlmodel.Condition{
		{Column: sqlmodel.ColumnRef{Name: "company_id"}, Operator: sqlmodel.OpEq, Value: ""}, // value irrelevant
		{Column: sqlmodel.ColumnRef{Name: "active"}, Operator: sqlmodel.OpEq},
	}

	matched, missing, extra := compare(query, source)
	if len(matched) != 1 || matched[0].Column.Name != "company_id" {
		t.Errorf("matched = %+v", matched)
	}
	if len(missing) != 1 || missing[0].Column.Name != "owner_id" {
		t.Errorf("missing = %+v", missing)
	}
	if len(extra) != 1 || extra[0].Column.Name != "active" {
		t.Errorf("extra = %+v", extra)
	}
}

func TestCompare_OperatorMatters(t *testing.T) {
	query := []sqlmodel.Condition{
		{Column: sqlmodel.ColumnRef{Name: "owner_id"}, Operator: sqlmodel.OpIsNull},
	}
	source := []sqlmodel.Condition{
		{Column: sqlmodel.ColumnRef{Name: "owner_id"}, Operator: sqlmodel.OpIsNotNull},
	}
	matched, missing, extra := compare(query, source)
	if len(matched) != 0 || len(missing) != 1 || len(extra) != 1 {
		t.Errorf("IS NULL must not match IS NOT NULL: matched=%v missing=%v extra=%v", matched, missing, extra)
	}
}
