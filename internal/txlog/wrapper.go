package txlog

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/sqlsleuth/internal/config"
	"github.com/ppiankov/sqlsleuth/internal/rubymodel"
	"github.com/ppiankov/sqlsleuth/internal/search"
	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// WrapperCandidate is one transaction block scored against the flow's
// write signature.
type WrapperCandidate struct {
	File       string   `json:"file"`
	Line       int      `json:"line"`
	Snippet    string   `json:"snippet"`
	Columns    []string `json:"columns"` // signature columns referenced in the block
	Confidence float64  `json:"confidence"`
}

// WrapperReport is the outcome of a wrapper search: ranked candidates, or
// an explanation of why there are none. An empty result is a finding, not
// a failure.
type WrapperReport struct {
	Candidates  []WrapperCandidate           `json:"candidates"`
	Callbacks   []sqlmodel.CallbackSuggestion `json:"callbacks,omitempty"`
	Signature   []string                     `json:"signature"`
	Threshold   int                          `json:"threshold"`
	Explanation string                       `json:"explanation,omitempty"`
}

// Locator finds the application block wrapping a multi-statement
// transaction. It searches for explicit transaction blocks and scores each
// by how many of the flow's distinctive write columns appear in the block
// body.
type Locator struct {
	Searcher search.Searcher
	Resolver *rubymodel.Resolver
	Cfg      *config.Search
	Sig      *config.Signature
}

var txBlockPattern = sqlmodel.SearchPattern{
	Text:            `transaction\s+do`,
	Regex:           true,
	Distinctiveness: 0.7,
	Clause:          sqlmodel.ClauseScope,
	Description:     "explicit transaction block",
}

// Locate searches for transaction blocks and ranks them by signature
// overlap. Columns a block never mentions directly are retried through the
// owning model's association names, since application code writes
// `member: current_member` where the log shows `member_id`.
func (l *Locator) Locate(ctx context.Context, flow *sqlmodel.TransactionFlow) (*WrapperReport, error) {
	distinctive, generic := SignatureColumns(flow, l.Sig)
	signature := append(append([]string(nil), distinctive...), generic...)
	threshold := matchThreshold(len(signature), l.Sig)

	report := &WrapperReport{Signature: signature, Threshold: threshold}
	if len(signature) == 0 {
		report.Explanation = "no INSERT or UPDATE statements in the transaction; nothing to match a wrapper against"
		return report, nil
	}

	hits, err := l.Searcher.Search(ctx, search.Request{
		Pattern:    txBlockPattern,
		Include:    l.Cfg.AppDirs,
		After:      l.Cfg.TransactionContext,
		MaxResults: l.Cfg.MaxResults,
	})
	if err != nil {
		var timeout *sqlmodel.SearchTimeoutError
		if !asTimeout(err, &timeout) {
			return nil, err
		}
		report.Explanation = "transaction block search hit its time budget; results may be partial"
	}

	models := flow.Tables()
	for _, h := range hits {
		matched := l.columnsInBlock(h.Context, signature, models)
		if len(matched) < threshold {
			continue
		}
		report.Candidates = append(report.Candidates, WrapperCandidate{
			File:       h.File,
			Line:       h.Line,
			Snippet:    h.Context,
			Columns:    matched,
			Confidence: blockConfidence(matched, distinctive, len(signature), l.Sig),
		})
	}

	sort.SliceStable(report.Candidates, func(i, j int) bool {
		return report.Candidates[i].Confidence > report.Candidates[j].Confidence
	})
	if max := l.Sig.MaxBlocks; max > 0 && len(report.Candidates) > max {
		report.Candidates = report.Candidates[:max]
	}
	if len(report.Candidates) == 0 && report.Explanation == "" {
		report.Explanation = fmt.Sprintf(
			"0 transaction blocks matched at >=%d of %d signature columns; the writes may come from callbacks or a framework-managed transaction",
			threshold, len(signature))
	}
	return report, nil
}

// columnsInBlock reports which signature columns the block references,
// either literally (symbol, hash key, or quoted string) or through an
// association name for foreign-key columns.
func (l *Locator) columnsInBlock(body string, signature, models []string) []string {
	var matched []string
	for _, col := range signature {
		if columnMentioned(body, col) {
			matched = append(matched, col)
			continue
		}
		if assoc := l.associationMention(body, col, models); assoc != "" {
			matched = append(matched, col+" (as "+assoc+")")
		}
	}
	return matched
}

func columnMentioned(body, col string) bool {
	re := regexp.MustCompile(`(:` + regexp.QuoteMeta(col) + `\b|\b` + regexp.QuoteMeta(col) + `:|['"]` + regexp.QuoteMeta(col) + `['"])`)
	return re.MatchString(body)
}

// associationMention checks whether a *_id column is satisfied through the
// association it backs on any model the flow writes to.
func (l *Locator) associationMention(body, col string, models []string) string {
	assoc := sqlmodel.AssociationNameForColumn(col)
	if assoc == "" || l.Resolver == nil {
		return ""
	}
	for _, table := range models {
		model := sqlmodel.RailsModel(table)
		if !l.Resolver.HasAssociation(model, assoc) {
			continue
		}
		if regexp.MustCompile(`\b` + regexp.QuoteMeta(assoc) + `\b`).MatchString(body) {
			return assoc
		}
	}
	return ""
}

// blockConfidence normalizes signature coverage into [0,1] with a bonus
// for each distinctive column hit. Generic columns alone never push a
// block to full confidence.
func blockConfidence(matched []string, distinctive []string, signatureLen int, sig *config.Signature) float64 {
	if signatureLen == 0 {
		return 0
	}
	isDistinctive := make(map[string]bool, len(distinctive))
	for _, d := range distinctive {
		isDistinctive[d] = true
	}
	score := 0.0
	for _, m := range matched {
		name := m
		if i := strings.Index(name, " (as "); i >= 0 {
			name = name[:i]
		}
		score += 1.0
		if isDistinctive[name] {
			score += sig.DistinctiveBonus
		}
	}
	max := float64(signatureLen) * (1.0 + sig.DistinctiveBonus)
	conf := score / max
	if conf > 1 {
		conf = 1
	}
	return conf
}
