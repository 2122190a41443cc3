package rubymodel

import (
	"regexp"
	"strings"
)

var (
	reScopeDecl = regexp.MustCompile(`(?m)^\s*scope\s+:(\w+)\s*,\s*(.*)$`)
	reConstDecl = regexp.MustCompile(`(?m)^\s*([A-Z][A-Z0-9_]*)\s*=\s*(.+)$`)
	reQuoted    = regexp.MustCompile(`^["']` + `(.*)` + `["']$`)
)

// extractScopeBody finds the body of `scope :name, ...` in a model file.
// Handles single-line lambdas, brace bodies spanning multiple lines, and
// `-> do ... end` forms.
func extractScopeBody(src, name string) (string, bool) {
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		m := reScopeDecl.FindStringSubmatch(line)
		if m == nil || m[1] != name {
			continue
		}
		rest := m[2]

		if idx := strings.Index(rest, "{"); idx >= 0 {
			return braceBody(lines, i, idx+scopeColumnOffset(line, rest)), true
		}
		if strings.Contains(rest, " do") || strings.HasSuffix(strings.TrimSpace(rest), "do") {
			return doEndBody(lines, i), true
		}
		// scope :name, -> body-on-next-line is not a form worth chasing.
		return strings.TrimSpace(rest), true
	}
	return "", false
}

func scopeColumnOffset(line, rest string) int {
	return strings.Index(line, rest)
}

// braceBody collects a brace-balanced body starting at lines[start][col...].
func braceBody(lines []string, start, col int) string {
	depth := 0
	var b strings.Builder
	for i := start; i < len(lines); i++ {
		line := lines[i]
		j := 0
		if i == start {
			j = col
		}
		for ; j < len(line); j++ {
			ch := line[j]
			switch ch {
			case '{':
				depth++
				if depth == 1 {
					continue
				}
			case '}':
				depth--
				if depth == 0 {
					return strings.TrimSpace(b.String())
				}
			}
			if depth >= 1 {
				b.WriteByte(ch)
			}
		}
		if depth >= 1 {
			b.WriteByte(' ')
		}
	}
	return strings.TrimSpace(b.String())
}

// doEndBody collects lines between a trailing `do` and its matching `end`.
func doEndBody(lines []string, start int) string {
	depth := 1
	var body []string
	for i := start + 1; i < len(lines); i++ {
		s := strings.TrimSpace(lines[i])
		if s == "end" || strings.HasPrefix(s, "end ") || strings.HasPrefix(s, "end.") {
			depth--
			if depth == 0 {
				break
			}
		}
		if strings.HasSuffix(s, " do") || s == "do" || strings.HasPrefix(s, "if ") || strings.HasPrefix(s, "unless ") || strings.HasPrefix(s, "case ") {
			depth++
		}
		body = append(body, s)
	}
	return strings.Join(body, " ")
}

// constants extracts uppercase constant assignments, resolving simple
// string concatenation between constants: A = B + " AND x" yields the
// concatenated text when B is itself resolvable.
func constants(src string) map[string]string {
	out := make(map[string]string)
	type pending struct{ name, expr string }
	var later []pending

	for _, m := range reConstDecl.FindAllStringSubmatch(src, -1) {
		name, expr := m[1], strings.TrimSpace(m[2])
		expr = strings.TrimSuffix(expr, ".freeze")
		if v, ok := literalString(expr); ok {
			out[name] = v
			continue
		}
		later = append(later, pending{name, expr})
	}

	// Second pass: concatenations referencing constants from the first.
	for _, p := range later {
		parts := strings.Split(p.expr, "+")
		var b strings.Builder
		ok := true
		for _, part := range parts {
			part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), ".freeze"))
			if v, lit := literalString(part); lit {
				b.WriteString(v)
			} else if v, known := out[part]; known {
				b.WriteString(v)
			} else {
				ok = false
				break
			}
		}
		if ok && b.Len() > 0 {
			out[p.name] = b.String()
		}
	}
	return out
}

// NumericConstants extracts integer constant assignments from the model
// file, used to resolve pagination expressions like .limit(PAGE_SIZE).
func (r *Resolver) NumericConstants(model string) map[string]int {
	src, ok := r.modelSource(model)
	if !ok {
		return nil
	}
	out := make(map[string]int)
	for _, m := range reConstDecl.FindAllStringSubmatch(src, -1) {
		v := strings.TrimSpace(m[2])
		n := 0
		numeric := v != ""
		for _, ch := range v {
			if ch < '0' || ch > '9' {
				numeric = false
				break
			}
			n = n*10 + int(ch-'0')
		}
		if numeric {
			out[m[1]] = n
		}
	}
	return out
}

func literalString(expr string) (string, bool) {
	m := reQuoted.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return "", false
	}
	return m[1], true
}
