// Package baseline persists fingerprints of previously reviewed matches so
// repeated runs only surface new candidates. The baseline file is written
// next to wherever the caller points it, never inside the analyzed tree.
package baseline

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// Baseline holds fingerprints of previously seen matches.
type Baseline struct {
	Fingerprints []string `json:"fingerprints"`
	set          map[string]bool
}

// Load reads a baseline file. Returns an empty baseline if the file does not exist.
func Load(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Baseline{set: make(map[string]bool)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read baseline: %w", err)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse baseline: %w", err)
	}
	b.set = make(map[string]bool, len(b.Fingerprints))
	for _, fp := range b.Fingerprints {
		b.set[fp] = true
	}
	return &b, nil
}

// Save writes the baseline to a file. queryFingerprint scopes the match
// fingerprints so the same source line matched by two different queries
// baselines independently.
func Save(path, queryFingerprint string, matches []sqlmodel.MatchResult) error {
	fps := make([]string, 0, len(matches))
	seen := make(map[string]bool)
	for i := range matches {
		fp := Fingerprint(queryFingerprint, &matches[i])
		if !seen[fp] {
			fps = append(fps, fp)
			seen[fp] = true
		}
	}
	sort.Strings(fps)

	b := Baseline{Fingerprints: fps}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// Contains returns true if the match's fingerprint is in the baseline.
func (b *Baseline) Contains(queryFingerprint string, m *sqlmodel.MatchResult) bool {
	return b.set[Fingerprint(queryFingerprint, m)]
}

// Filter removes baselined matches and returns the remaining ones along
// with the number filtered out.
func (b *Baseline) Filter(queryFingerprint string, matches []sqlmodel.MatchResult) ([]sqlmodel.MatchResult, int) {
	if len(b.set) == 0 {
		return matches, 0
	}

	var filtered []sqlmodel.MatchResult
	suppressed := 0
	for i := range matches {
		if b.Contains(queryFingerprint, &matches[i]) {
			suppressed++
		} else {
			filtered = append(filtered, matches[i])
		}
	}
	return filtered, suppressed
}

// Fingerprint computes a stable identifier for one match of one query.
// Confidence is excluded; retuning weights must not invalidate a baseline.
func Fingerprint(queryFingerprint string, m *sqlmodel.MatchResult) string {
	key := fmt.Sprintf("%s|%s|%d", queryFingerprint, m.File, m.Line)
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h[:16])
}
