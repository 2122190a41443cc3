// Package reporter renders query and transaction reports as text, JSON, or
// SARIF. The text form is the evidence a human reviews: every match prints
// its rationale, because a confidence number alone cannot tell an exact
// match from a partial one.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ppiankov/sqlsleuth/internal/engine"
	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// Format controls report output format.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatSARIF Format = "sarif"
)

// Metadata holds report context.
type Metadata struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	Command   string `json:"command"`
	Timestamp string `json:"timestamp"`
}

// Report is the top-level output for either operation; exactly one of
// Query or Transaction is set.
type Report struct {
	Metadata    Metadata                  `json:"metadata"`
	Query       *engine.QueryReport       `json:"query,omitempty"`
	Transaction *engine.TransactionReport `json:"transaction,omitempty"`
}

// NewQueryReport wraps a query result with metadata.
func NewQueryReport(version string, qr *engine.QueryReport) Report {
	return Report{Metadata: metadata(version, "query"), Query: qr}
}

// NewTransactionReport wraps a transaction result with metadata.
func NewTransactionReport(version string, tr *engine.TransactionReport) Report {
	return Report{Metadata: metadata(version, "transaction"), Transaction: tr}
}

func metadata(version, command string) Metadata {
	return Metadata{
		Tool:      "sqlsleuth",
		Version:   version,
		Command:   command,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Write outputs the report in the given format.
func Write(w io.Writer, report *Report, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatSARIF:
		return writeSARIF(w, report)
	default:
		return writeText(w, report)
	}
}

func writeJSON(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeText(w io.Writer, report *Report) error {
	color := isTTY(w)
	if report.Query != nil {
		return writeQueryText(w, report.Query, color)
	}
	if report.Transaction != nil {
		return writeTransactionText(w, report.Transaction, color)
	}
	_, err := fmt.Fprintln(w, "Nothing to report.")
	return err
}

func writeQueryText(w io.Writer, qr *engine.QueryReport, color bool) error {
	if qr.Error != "" {
		_, err := fmt.Fprintf(w, "analysis failed: %s\n", qr.Error)
		return err
	}
	if qr.Fingerprint != "" {
		if _, err := fmt.Fprintf(w, "Query: %s\n", qr.Fingerprint); err != nil {
			return err
		}
	}
	for _, note := range qr.Notes {
		if _, err := fmt.Fprintf(w, "note: %s\n", note); err != nil {
			return err
		}
	}
	if len(qr.Matches) == 0 {
		if _, err := fmt.Fprintln(w, "No matching source locations found."); err != nil {
			return err
		}
		if qr.Suppressed > 0 {
			_, err := fmt.Fprintf(w, "%d match(es) suppressed by ignore rules\n", qr.Suppressed)
			return err
		}
		return nil
	}
	for i := range qr.Matches {
		if err := writeMatch(w, &qr.Matches[i], color); err != nil {
			return err
		}
	}
	if qr.Suppressed > 0 {
		if _, err := fmt.Fprintf(w, "\n%d match(es) suppressed by ignore rules\n", qr.Suppressed); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\nSummary: %d candidate location(s)\n", len(qr.Matches))
	return err
}

func writeMatch(w io.Writer, m *sqlmodel.MatchResult, color bool) error {
	label := strings.ToUpper(string(m.Label))
	if color {
		label = labelColor[m.Label] + label + colorReset
	}
	if _, err := fmt.Fprintf(w, "\n[%s %.2f] %s:%d\n", label, m.Confidence, m.File, m.Line); err != nil {
		return err
	}
	for _, s := range m.Matched {
		if _, err := fmt.Fprintf(w, "  + %s\n", s); err != nil {
			return err
		}
	}
	for _, s := range m.Missing {
		if _, err := fmt.Fprintf(w, "  - missing %s\n", s); err != nil {
			return err
		}
	}
	for _, s := range m.Extra {
		if _, err := fmt.Fprintf(w, "  ! %s\n", s); err != nil {
			return err
		}
	}
	return nil
}

func writeTransactionText(w io.Writer, tr *engine.TransactionReport, color bool) error {
	if tr.Error != "" {
		if _, err := fmt.Fprintf(w, "error: %s\n", tr.Error); err != nil {
			return err
		}
	}
	for i := range tr.Statements {
		st := &tr.Statements[i]
		if _, err := fmt.Fprintf(w, "\n--- statement %d: %s\n", i+1, firstLine(st.Statement.Raw)); err != nil {
			return err
		}
		if st.Statement.Controller != "" {
			if _, err := fmt.Fprintf(w, "hint: %s#%s (from log comment, unverified)\n",
				st.Statement.Controller, st.Statement.Action); err != nil {
				return err
			}
		}
		if st.Report == nil {
			continue
		}
		if err := writeQueryText(w, st.Report, color); err != nil {
			return err
		}
	}

	if wr := tr.Wrapper; wr != nil {
		if _, err := fmt.Fprintf(w, "\n=== transaction wrapper (signature: %s)\n", strings.Join(wr.Signature, ", ")); err != nil {
			return err
		}
		if wr.Explanation != "" {
			if _, err := fmt.Fprintf(w, "%s\n", wr.Explanation); err != nil {
				return err
			}
		}
		for _, c := range wr.Candidates {
			if _, err := fmt.Fprintf(w, "[%.2f] %s:%d matched columns: %s\n",
				c.Confidence, c.File, c.Line, strings.Join(c.Columns, ", ")); err != nil {
				return err
			}
		}
	}

	for _, cb := range tr.Callbacks {
		status := "unverified"
		if cb.Verified {
			status = fmt.Sprintf("%s:%d", cb.File, cb.Line)
		}
		if _, err := fmt.Fprintf(w, "callback suggestion: %s %s %s (%s) - %s\n",
			cb.Model, cb.Callback, cb.Method, status, cb.Reason); err != nil {
			return err
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 100 {
		s = s[:100] + "..."
	}
	return s
}
