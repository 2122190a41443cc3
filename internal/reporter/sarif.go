package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// SARIF 2.1.0 types — minimal subset for valid output.

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string            `json:"id"`
	ShortDescription sarifMessage      `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaults `json:"defaultConfiguration"`
}

type sarifRuleDefaults struct {
	Level string `json:"level"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

var ruleDescriptions = map[sqlmodel.Label]string{
	sqlmodel.LabelHigh:    "Source location matching the query with high confidence",
	sqlmodel.LabelMedium:  "Source location matching most of the query's predicates",
	sqlmodel.LabelPartial: "Source location matching part of the query's predicates",
	sqlmodel.LabelLow:     "Source location with weak structural similarity to the query",
}

var labelToLevel = map[sqlmodel.Label]string{
	sqlmodel.LabelHigh:    "note",
	sqlmodel.LabelMedium:  "note",
	sqlmodel.LabelPartial: "note",
	sqlmodel.LabelLow:     "none",
}

func writeSARIF(w io.Writer, report *Report) error {
	var matches []sqlmodel.MatchResult
	if report.Query != nil {
		matches = report.Query.Matches
	}
	if report.Transaction != nil {
		for _, st := range report.Transaction.Statements {
			if st.Report != nil {
				matches = append(matches, st.Report.Matches...)
			}
		}
	}

	ruleSet := make(map[sqlmodel.Label]bool)
	for _, m := range matches {
		ruleSet[m.Label] = true
	}
	rules := make([]sarifRule, 0)
	for label := range ruleSet {
		desc := ruleDescriptions[label]
		if desc == "" {
			desc = string(label)
		}
		rules = append(rules, sarifRule{
			ID:               "sqlsleuth/" + string(label),
			ShortDescription: sarifMessage{Text: desc},
			DefaultConfig:    sarifRuleDefaults{Level: "note"},
		})
	}

	var results []sarifResult
	for _, m := range matches {
		level := labelToLevel[m.Label]
		if level == "" {
			level = "note"
		}
		results = append(results, sarifResult{
			RuleID:  "sqlsleuth/" + string(m.Label),
			Level:   level,
			Message: sarifMessage{Text: matchMessage(&m)},
			Locations: []sarifLocation{
				{
					PhysicalLocation: sarifPhysicalLocation{
						ArtifactLocation: sarifArtifactLocation{URI: m.File},
						Region:           sarifRegion{StartLine: m.Line},
					},
				},
			},
		})
	}

	log := sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           "sqlsleuth",
						Version:        report.Metadata.Version,
						InformationURI: "https://github.com/ppiankov/sqlsleuth",
						Rules:          rules,
					},
				},
				Results: results,
			},
		},
	}

	if log.Runs[0].Results == nil {
		log.Runs[0].Results = []sarifResult{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(log); err != nil {
		return fmt.Errorf("encode SARIF: %w", err)
	}
	return nil
}

func matchMessage(m *sqlmodel.MatchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "confidence %.2f", m.Confidence)
	if len(m.Matched) > 0 {
		b.WriteString("; matched: " + strings.Join(m.Matched, ", "))
	}
	if len(m.Missing) > 0 {
		b.WriteString("; missing: " + strings.Join(m.Missing, ", "))
	}
	if len(m.Extra) > 0 {
		b.WriteString("; " + strings.Join(m.Extra, ", "))
	}
	return b.String()
}
