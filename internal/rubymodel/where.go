package rubymodel

import (
	"regexp"
	"strings"

	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
	"github.com/ppiankov/sqlsleuth/internal/sqlparse"
)

var (
	reWhereCall  = regexp.MustCompile(`where(\.not)?\s*\(`)
	reHashModern = regexp.MustCompile(`(\w+):\s*([^,]+)`)
	reHashRocket = regexp.MustCompile(`:(\w+)\s*=>\s*([^,]+)`)
	reConstRef   = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

// SnippetConditions extracts direct where-call conditions from a call-site
// snippet, resolving fragment constants against the owning model's file.
func (r *Resolver) SnippetConditions(model, snippet string) []sqlmodel.Condition {
	src, _ := r.modelSource(model)
	return parseWhereCalls(snippet, constants(src))
}

// parseWhereCalls extracts every condition contributed by where / where.not
// calls in a snippet of model or call-site code. Hash arguments are
// accepted in both modern (`key: value`) and hash-rocket (`:key => value`)
// forms; string arguments and SQL-fragment constants go through the same
// WHERE-fragment extractor the SQL fallback parser uses, so both sides of a
// comparison normalize identically.
func parseWhereCalls(snippet string, consts map[string]string) []sqlmodel.Condition {
	var out []sqlmodel.Condition

	for _, loc := range reWhereCall.FindAllStringSubmatchIndex(snippet, -1) {
		negated := loc[2] >= 0 // ".not" group matched
		argStart := loc[1]
		arg, ok := balancedArg(snippet, argStart-1)
		if !ok {
			continue
		}
		out = append(out, parseWhereArg(arg, negated, consts)...)
	}
	return out
}

// balancedArg returns the text between the opening paren at snippet[open]
// and its balanced closing paren.
func balancedArg(snippet string, open int) (string, bool) {
	depth := 0
	for i := open; i < len(snippet); i++ {
		switch snippet[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return snippet[open+1 : i], true
			}
		}
	}
	return "", false
}

func parseWhereArg(arg string, negated bool, consts map[string]string) []sqlmodel.Condition {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil
	}

	// String predicate, possibly concatenated with fragment constants.
	if strings.HasPrefix(arg, `"`) || strings.HasPrefix(arg, `'`) || reConstRef.MatchString(firstToken(arg)) {
		if frag, ok := resolveFragment(arg, consts); ok {
			return sqlparse.ParseWhereFragment(frag)
		}
	}

	// Hash argument. Hash-rocket pairs are matched first and masked so the
	// modern-form pattern cannot re-read ":key => nil" as "key: nil".
	var out []sqlmodel.Condition
	rest := arg
	for _, m := range reHashRocket.FindAllStringSubmatch(rest, -1) {
		out = append(out, hashCondition(m[1], m[2], negated))
	}
	rest = reHashRocket.ReplaceAllString(rest, " ")
	for _, m := range reHashModern.FindAllStringSubmatch(rest, -1) {
		out = append(out, hashCondition(m[1], m[2], negated))
	}
	return out
}

func hashCondition(key, value string, negated bool) sqlmodel.Condition {
	col := sqlmodel.NormalizeColumn(key)
	value = strings.TrimSpace(value)

	if value == "nil" {
		op := sqlmodel.OpIsNull
		if negated {
			op = sqlmodel.OpIsNotNull
		}
		return sqlmodel.Condition{Column: col, Operator: op}
	}

	op := sqlmodel.OpEq
	if negated {
		op = sqlmodel.OpNeq
	}
	if strings.HasPrefix(value, "[") {
		op = sqlmodel.OpIn
	}
	return sqlmodel.Condition{Column: col, Operator: op, Value: literalOrPlaceholder(value)}
}

func literalOrPlaceholder(value string) string {
	value = strings.TrimSpace(value)
	if v, ok := literalString(value); ok {
		return v
	}
	if isNumber(value) {
		return value
	}
	return "" // variable or expression: placeholder
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// resolveFragment flattens a string/constant concatenation into one SQL
// fragment, returning false when any part is unresolvable.
func resolveFragment(arg string, consts map[string]string) (string, bool) {
	var b strings.Builder
	for _, part := range strings.Split(arg, "+") {
		part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), ".freeze"))
		if v, ok := literalString(part); ok {
			b.WriteString(v)
			continue
		}
		if v, ok := consts[part]; ok {
			b.WriteString(v)
			continue
		}
		return "", false
	}
	return b.String(), b.Len() > 0
}

func firstToken(s string) string {
	if i := strings.IndexAny(s, " +.("); i >= 0 {
		return s[:i]
	}
	return s
}
