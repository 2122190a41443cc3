package suppress

import (
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// Suppression is a single rule in the ignore file. Path supports trailing
// wildcards; Pattern, when set, must also appear in the hit line.
type Suppression struct {
	Path    string `yaml:"path"`
	Pattern string `yaml:"pattern,omitempty"`
	Reason  string `yaml:"reason,omitempty"`
}

// IgnoreFile is the structure of .sqlsleuth-ignore.yml.
type IgnoreFile struct {
	Suppressions []Suppression `yaml:"suppressions"`
}

// Rules holds loaded suppression rules.
type Rules struct {
	ignoreFile IgnoreFile
}

// LoadRules loads suppression rules from .sqlsleuth-ignore.yml in the given
// directory (normally the analyzed repository root).
func LoadRules(dir string) (*Rules, error) {
	r := &Rules{}

	path := filepath.Join(dir, ".sqlsleuth-ignore.yml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, &r.ignoreFile); err != nil {
		return nil, err
	}
	return r, nil
}

// Matches reports whether a hit at the given repo-relative path and line
// text is suppressed.
func (r *Rules) Matches(path, line string) bool {
	for _, s := range r.ignoreFile.Suppressions {
		if !matchPath(s.Path, path) {
			continue
		}
		if s.Pattern == "" || strings.Contains(line, s.Pattern) {
			return true
		}
	}
	return false
}

// Filter removes suppressed match results and returns the remaining ones
// along with the number suppressed.
func (r *Rules) Filter(results []sqlmodel.MatchResult) ([]sqlmodel.MatchResult, int) {
	if len(r.ignoreFile.Suppressions) == 0 {
		return results, 0
	}

	var filtered []sqlmodel.MatchResult
	suppressed := 0
	for i := range results {
		if r.Matches(results[i].File, results[i].Snippet) {
			suppressed++
		} else {
			filtered = append(filtered, results[i])
		}
	}
	return filtered, suppressed
}

// matchPath matches a repo-relative path against a pattern with trailing
// wildcard support: "app/mailers/*" matches everything under app/mailers.
func matchPath(pattern, path string) bool {
	pattern = strings.ToLower(filepath.ToSlash(pattern))
	path = strings.ToLower(filepath.ToSlash(path))

	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(path, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == path
}

// HasInlineIgnore returns true if the line carries a sqlsleuth:ignore
// comment; such lines never become candidates.
func HasInlineIgnore(line string) bool {
	return strings.Contains(line, "sqlsleuth:ignore")
}
