package sqlparse

import (
	"fmt"
	"regexp"
	"strings"
)

// InputKind classifies raw input so the caller can route it to the right
// pipeline: single queries go through provenance search, transaction logs
// through the transaction analyzer.
type InputKind string

const (
	InputSingleQuery    InputKind = "single_query"
	InputTransactionLog InputKind = "transaction_log"
	InputEmpty          InputKind = "empty"
	InputUnrecognized   InputKind = "unrecognized"
)

// Classification is the routing decision with its evidence.
type Classification struct {
	Kind       InputKind `json:"kind"`
	QueryCount int       `json:"queryCount"`
	Confidence string    `json:"confidence"` // high, medium, low
	Reason     string    `json:"reason"`
}

var reTimestampLine = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}`)

// Classify decides whether raw input is a single query or a transaction
// log. Statement extraction is tried first; when it finds nothing, line
// heuristics (timestamps, BEGIN/COMMIT markers, verb counts) decide.
func Classify(input string) Classification {
	if strings.TrimSpace(input) == "" {
		return Classification{Kind: InputEmpty, Confidence: "high", Reason: "empty input"}
	}

	stmts := ExtractStatements(input)
	if len(stmts) == 0 {
		return classifyHeuristic(input)
	}

	for _, st := range stmts {
		upper := strings.ToUpper(st.Text)
		if strings.HasPrefix(upper, "BEGIN") || strings.HasPrefix(upper, "START TRANSACTION") {
			return Classification{
				Kind:       InputTransactionLog,
				QueryCount: len(stmts),
				Confidence: "high",
				Reason:     "transaction boundary marker present",
			}
		}
	}
	if len(stmts) > 1 {
		return Classification{
			Kind:       InputTransactionLog,
			QueryCount: len(stmts),
			Confidence: "high",
			Reason:     fmt.Sprintf("%d independent statements extracted", len(stmts)),
		}
	}
	return Classification{
		Kind:       InputSingleQuery,
		QueryCount: 1,
		Confidence: "high",
		Reason:     "single statement extracted",
	}
}

func classifyHeuristic(input string) Classification {
	lines := strings.Split(input, "\n")

	timestamped := 0
	queryCount := 0
	hasBegin, hasCommit := false, false
	for _, line := range lines {
		s := strings.TrimSpace(line)
		if s == "" {
			continue
		}
		if reTimestampLine.MatchString(s) {
			timestamped++
		}
		upper := strings.ToUpper(s)
		for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
			if strings.Contains(upper, op) {
				queryCount++
				break
			}
		}
		if strings.Contains(upper, "BEGIN") {
			hasBegin = true
		}
		if strings.Contains(upper, "COMMIT") {
			hasCommit = true
		}
	}

	switch {
	case timestamped >= 3:
		return Classification{
			Kind:       InputTransactionLog,
			QueryCount: timestamped,
			Confidence: "medium",
			Reason:     fmt.Sprintf("%d timestamped log entries", timestamped),
		}
	case hasBegin && hasCommit && queryCount >= 2:
		return Classification{
			Kind:       InputTransactionLog,
			QueryCount: queryCount,
			Confidence: "medium",
			Reason:     fmt.Sprintf("BEGIN/COMMIT markers with %d queries", queryCount),
		}
	case queryCount >= 3:
		return Classification{
			Kind:       InputTransactionLog,
			QueryCount: queryCount,
			Confidence: "low",
			Reason:     fmt.Sprintf("%d SQL operations without clear transaction markers", queryCount),
		}
	case queryCount == 1:
		return Classification{
			Kind:       InputSingleQuery,
			QueryCount: 1,
			Confidence: "medium",
			Reason:     "single SQL operation detected",
		}
	}
	return Classification{Kind: InputUnrecognized, Confidence: "low", Reason: "could not parse SQL input"}
}
