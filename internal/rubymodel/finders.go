package rubymodel

import (
	"regexp"
	"strings"

	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// standardARMethods are relation methods every model responds to. A chained
// call that is one of these is query-building, not a custom finder.
var standardARMethods = map[string]bool{
	"where": true, "not": true, "find": true, "find_by": true, "find_by!": true,
	"find_each": true, "find_in_batches": true, "first": true, "last": true,
	"take": true, "all": true, "none": true, "order": true, "limit": true,
	"offset": true, "group": true, "having": true, "joins": true,
	"includes": true, "select": true, "distinct": true, "references": true,
	"readonly": true, "reorder": true, "unscoped": true, "lock": true,
	"count": true, "sum": true, "average": true, "minimum": true, "maximum": true,
	"pluck": true, "ids": true, "exists?": true, "any?": true, "many?": true,
	"none?": true, "one?": true, "empty?": true, "size": true, "length": true,
	"create": true, "create!": true, "new": true, "build": true,
	"update": true, "update_all": true, "delete_all": true, "destroy_all": true,
	"each": true, "map": true, "to_a": true,
}

// terminalAggregates end a chain with a scalar or array, not a relation.
var terminalAggregates = map[string]bool{
	"count": true, "sum": true, "average": true, "minimum": true,
	"maximum": true, "pluck": true, "ids": true, "size": true, "length": true,
	"exists?": true, "any?": true, "empty?": true, "to_a": true,
}

var reRelationStart = regexp.MustCompile(`^(self\.|[A-Z]\w*\.)?(where|joins|includes|order|scoped|all)\b`)

// IsCustomFinder reports whether a method name not in the standard relation
// vocabulary resolves, on the owning model, to a relation-producing body.
// Detection is dynamic — it inspects the method's terminal expression —
// rather than by naming convention. Classification is cached per
// (model, method) for the resolver's lifetime.
func (r *Resolver) IsCustomFinder(model, method string) bool {
	if standardARMethods[method] {
		return false
	}
	key := model + "." + method
	r.mu.Lock()
	if v, ok := r.finderCache[key]; ok {
		r.mu.Unlock()
		return v
	}
	r.mu.Unlock()
	body, ok := r.methodBody(model, method)
	result := ok && relationProducing(body)
	r.mu.Lock()
	r.finderCache[key] = result
	r.mu.Unlock()
	return result
}

var reDefLine = regexp.MustCompile(`^(\s*)def\s+(?:self\.)?(\w+[!?]?)`)

// methodBody extracts the source of `def method` ... `end` from the model.
// The closing end is the one at the def's own indentation, so nested
// if/do blocks inside the body do not truncate it.
func (r *Resolver) methodBody(model, method string) (string, bool) {
	src, ok := r.modelSource(model)
	if !ok {
		return "", false
	}
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		m := reDefLine.FindStringSubmatch(line)
		if m == nil || m[2] != method {
			continue
		}
		indent := m[1]
		var body []string
		for j := i + 1; j < len(lines); j++ {
			trimmed := strings.TrimSpace(lines[j])
			lead := lines[j][:len(lines[j])-len(strings.TrimLeft(lines[j], " \t"))]
			if lead == indent && (trimmed == "end" || strings.HasPrefix(trimmed, "end ")) {
				return strings.Join(body, "\n"), true
			}
			body = append(body, lines[j])
		}
		return "", false
	}
	return "", false
}

// relationProducing classifies a method body by its terminal expression:
// the last non-comment line must chain off a relation or scope and must not
// end in a terminal aggregate.
func relationProducing(body string) bool {
	lines := strings.Split(body, "\n")
	var last string
	for i := len(lines) - 1; i >= 0; i-- {
		s := strings.TrimSpace(lines[i])
		if s == "" || strings.HasPrefix(s, "#") || s == "end" {
			continue
		}
		last = s
		break
	}
	if last == "" {
		return false
	}

	// Terminal aggregate ends the relation.
	if i := strings.LastIndex(last, "."); i >= 0 {
		tail := last[i+1:]
		if j := strings.IndexAny(tail, "( "); j >= 0 {
			tail = tail[:j]
		}
		if terminalAggregates[tail] {
			return false
		}
	}

	if reRelationStart.MatchString(last) {
		return true
	}
	// A bare chain off another method or scope, e.g. "active.recent".
	return strings.Contains(last, ".") && !strings.ContainsAny(last, "=\"'")
}

// ExpandFinder resolves a custom finder's body into conditions: its where
// calls plus the conditions of every scope the terminal chain references.
// The caller is responsible for reattaching whatever trailed the finder in
// the original call chain.
func (r *Resolver) ExpandFinder(model, method string) ([]sqlmodel.Condition, error) {
	body, ok := r.methodBody(model, method)
	if !ok {
		return nil, &sqlmodel.ResolutionError{Model: model, Name: method, Reason: "method not found"}
	}
	src, _ := r.modelSource(model)
	conds := parseWhereCalls(body, constants(src))

	var last string
	for _, line := range strings.Split(body, "\n") {
		if s := strings.TrimSpace(line); s != "" && !strings.HasPrefix(s, "#") {
			last = s
		}
	}
	for _, ref := range leadingChainNames(stripReceiver(last)) {
		if sub, err := r.ResolveScope(model, ref); err == nil {
			conds = append(conds, sub...)
		} else if h, ok := HeuristicConditions(ref); ok {
			conds = append(conds, h...)
		}
	}

	if len(conds) == 0 {
		return nil, &sqlmodel.ResolutionError{Model: model, Name: method, Reason: "no static predicates in finder body"}
	}
	return dedupeConditions(conds), nil
}

// stripReceiver drops a leading constant or variable receiver so chain-name
// extraction sees only method names: "members.active.recent" → "active.recent"
// when the receiver is an association collection.
func stripReceiver(expr string) string {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return expr
	}
	first, rest, found := strings.Cut(expr, ".")
	if !found {
		return expr
	}
	if first == "self" || (first[0] >= 'A' && first[0] <= 'Z') {
		return rest
	}
	return expr
}
