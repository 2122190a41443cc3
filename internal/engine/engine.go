// Package engine wires analysis, search, and scoring into the two
// operations the CLI exposes: single-query provenance and transaction-log
// provenance. The engine only reads the target repository; nothing in this
// package or below it writes to the analyzed tree.
package engine

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/sqlsleuth/internal/config"
	"github.com/ppiankov/sqlsleuth/internal/rubymodel"
	"github.com/ppiankov/sqlsleuth/internal/rules"
	"github.com/ppiankov/sqlsleuth/internal/scoring"
	"github.com/ppiankov/sqlsleuth/internal/search"
	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
	"github.com/ppiankov/sqlsleuth/internal/sqlparse"
	"github.com/ppiankov/sqlsleuth/internal/suppress"
	"github.com/ppiankov/sqlsleuth/internal/txlog"
)

// Engine analyzes SQL against one source tree. Construct with New; the
// resolver caches model files for the lifetime of the engine, so use one
// engine per repository.
type Engine struct {
	Root     string
	Cfg      *config.Config
	Searcher search.Searcher

	resolver *rubymodel.Resolver
	suppress *suppress.Rules
	parallel int
}

// New builds an engine rooted at the repository under analysis. Suppression
// rules are loaded from the repo root if present.
func New(root string, cfg *config.Config, parallel int) (*Engine, error) {
	sup, err := suppress.LoadRules(root)
	if err != nil {
		return nil, err
	}
	if parallel <= 0 {
		parallel = 4
	}
	return &Engine{
		Root:     root,
		Cfg:      cfg,
		Searcher: search.NewGrep(root, cfg.Search, sup),
		resolver: rubymodel.NewResolver(root, cfg.Search.ModelDirs),
		suppress: sup,
		parallel: parallel,
	}, nil
}

// QueryReport is the full provenance result for one query. Analysis
// failures are carried in Error rather than aborting: a transaction report
// keeps its shape even when one statement is unparseable.
type QueryReport struct {
	Input       string                   `json:"input"`
	Query       *sqlmodel.Query          `json:"query,omitempty"`
	Fingerprint string                   `json:"fingerprint,omitempty"`
	Patterns    []sqlmodel.SearchPattern `json:"patterns,omitempty"`
	Matches     []sqlmodel.MatchResult   `json:"matches"`
	Notes       []string                 `json:"notes,omitempty"`
	Suppressed  int                      `json:"suppressed,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// AnalyzeQuery runs the whole pipeline for one SQL statement: analyze,
// build ranked patterns, progressive search, score every candidate block.
func (e *Engine) AnalyzeQuery(ctx context.Context, sql string) *QueryReport {
	report := &QueryReport{Input: sql, Matches: []sqlmodel.MatchResult{}}

	q, err := sqlparse.Analyze(sql)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.Query = q
	report.Fingerprint = sqlparse.Fingerprint(q)
	report.Patterns = sqlparse.BuildPatterns(q, &e.Cfg.Tuning)

	if len(report.Patterns) == 0 {
		report.Notes = append(report.Notes, "no searchable patterns could be derived from this query")
		return report
	}

	prog := &search.Progressive{Searcher: e.Searcher, Tuning: &e.Cfg.Tuning, Cfg: e.Cfg.Search}
	res := prog.Run(ctx, q, report.Patterns, rules.Locations(q, &e.Cfg.Search))
	report.Notes = append(report.Notes, res.Notes...)

	scorer := &scoring.Scorer{Tuning: &e.Cfg.Tuning, Resolver: e.resolver}
	for _, block := range res.Blocks {
		report.Matches = append(report.Matches, scorer.Score(q, block))
	}
	sort.SliceStable(report.Matches, func(i, j int) bool {
		return report.Matches[i].Confidence > report.Matches[j].Confidence
	})
	report.Matches, report.Suppressed = e.suppress.Filter(report.Matches)
	return report
}

// StatementReport pairs a transaction statement with its provenance.
// Boundary statements (BEGIN, COMMIT) carry no report.
type StatementReport struct {
	Statement sqlmodel.Statement `json:"statement"`
	Report    *QueryReport       `json:"report,omitempty"`
}

// TransactionReport is the provenance result for a multi-statement log:
// per-statement matches, the ranked wrapper candidates, and callback
// suggestions kept apart from the wrapper scores.
type TransactionReport struct {
	Statements []StatementReport             `json:"statements"`
	Wrapper    *txlog.WrapperReport          `json:"wrapper,omitempty"`
	Callbacks  []sqlmodel.CallbackSuggestion `json:"callbacks,omitempty"`
	Error      string                        `json:"error,omitempty"`
}

// AnalyzeTransaction parses a transaction log and analyzes each statement
// concurrently, then locates the wrapper block and suggests callbacks for
// the tables the flow writes.
func (e *Engine) AnalyzeTransaction(ctx context.Context, log string) *TransactionReport {
	report := &TransactionReport{}

	flow, err := txlog.Parse(log)
	if err != nil {
		report.Error = err.Error()
		return report
	}

	report.Statements = make([]StatementReport, len(flow.Statements))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallel)
	for i, st := range flow.Statements {
		report.Statements[i] = StatementReport{Statement: st}
		if st.Query == nil {
			continue
		}
		g.Go(func() error {
			report.Statements[i].Report = e.AnalyzeQuery(gctx, st.Raw)
			return nil
		})
	}
	_ = g.Wait()

	loc := &txlog.Locator{
		Searcher: e.Searcher,
		Resolver: e.resolver,
		Cfg:      &e.Cfg.Search,
		Sig:      &e.Cfg.Tuning.Signature,
	}
	wrapper, err := loc.Locate(ctx, flow)
	if err != nil {
		slog.Warn("wrapper search failed", "error", err)
		report.Error = err.Error()
	} else {
		report.Wrapper = wrapper
	}
	report.Callbacks = txlog.SuggestCallbacks(e.resolver, flow, &e.Cfg.Tuning.Signature)
	return report
}

// Classify exposes input-kind routing so the CLI can pick the right
// operation for ambiguous input.
func (e *Engine) Classify(input string) sqlparse.Classification {
	return sqlparse.Classify(input)
}
