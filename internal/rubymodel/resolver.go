// Package rubymodel statically resolves model-layer constructs — named
// scopes, associations, custom finder methods — into the normalized
// conditions they contribute to a query. Resolution is best-effort text
// analysis over model files; anything it cannot resolve falls back to
// name-heuristic inference rather than dropping the condition.
package rubymodel

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// Resolver locates and parses model files under one source tree. Caches are
// scoped to the Resolver, and a Resolver lives for one analysis request:
// nothing persists across requests. One request may fan statements out
// across goroutines that all share the resolver, so cache access is
// guarded; the lock is never held across file IO or recursive resolution,
// so concurrent misses at worst duplicate work.
type Resolver struct {
	root      string
	modelDirs []string

	mu          sync.Mutex
	fileCache   map[string]string               // model name -> file content
	pathCache   map[string]string               // model name -> repo-relative path
	scopeCache  map[string][]sqlmodel.Condition // model.scope -> conditions
	finderCache map[string]bool                 // model.method -> relation-producing
}

// NewResolver builds a Resolver over the repository root.
func NewResolver(root string, modelDirs []string) *Resolver {
	if len(modelDirs) == 0 {
		modelDirs = []string{"app/models"}
	}
	return &Resolver{
		root:        root,
		modelDirs:   modelDirs,
		fileCache:   make(map[string]string),
		pathCache:   make(map[string]string),
		scopeCache:  make(map[string][]sqlmodel.Condition),
		finderCache: make(map[string]bool),
	}
}

// ModelPath returns the repo-relative path of the model's file, or "" when
// no file by the conventional name exists.
func (r *Resolver) ModelPath(model string) string {
	r.mu.Lock()
	if p, ok := r.pathCache[model]; ok {
		r.mu.Unlock()
		return p
	}
	r.mu.Unlock()
	want := sqlmodel.Underscore(model) + ".rb"
	found := ""
	for _, dir := range r.modelDirs {
		abs := filepath.Join(r.root, dir)
		_ = filepath.WalkDir(abs, func(path string, d os.DirEntry, err error) error {
			if err != nil || found != "" || d.IsDir() {
				return nil
			}
			if d.Name() == want {
				rel, _ := filepath.Rel(r.root, path)
				found = filepath.ToSlash(rel)
			}
			return nil
		})
		if found != "" {
			break
		}
	}
	r.mu.Lock()
	r.pathCache[model] = found
	r.mu.Unlock()
	return found
}

// modelSource reads and caches the model file's content.
func (r *Resolver) modelSource(model string) (string, bool) {
	r.mu.Lock()
	if src, ok := r.fileCache[model]; ok {
		r.mu.Unlock()
		return src, src != ""
	}
	r.mu.Unlock()

	src := ""
	if path := r.ModelPath(model); path != "" {
		if data, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(path))); err == nil {
			src = string(data)
		}
	}
	r.mu.Lock()
	r.fileCache[model] = src
	r.mu.Unlock()
	return src, src != ""
}

// ResolveScope resolves a named scope on a model to its conditions,
// following scope-to-scope references and SQL-fragment constants. When the
// body cannot be statically resolved the returned error is a
// ResolutionError; callers then use HeuristicConditions.
func (r *Resolver) ResolveScope(model, scope string) ([]sqlmodel.Condition, error) {
	key := model + "." + scope
	r.mu.Lock()
	if conds, ok := r.scopeCache[key]; ok {
		r.mu.Unlock()
		if conds == nil {
			return nil, &sqlmodel.ResolutionError{Model: model, Name: scope, Reason: "previously failed to resolve"}
		}
		return conds, nil
	}
	r.mu.Unlock()

	src, ok := r.modelSource(model)
	if !ok {
		r.cacheScope(key, nil)
		return nil, &sqlmodel.ResolutionError{Model: model, Name: scope, Reason: "model file not found"}
	}

	conds, err := r.resolveScopeIn(model, src, scope, map[string]bool{scope: true})
	if err != nil {
		r.cacheScope(key, nil)
		return nil, err
	}
	r.cacheScope(key, conds)
	return conds, nil
}

func (r *Resolver) cacheScope(key string, conds []sqlmodel.Condition) {
	r.mu.Lock()
	r.scopeCache[key] = conds
	r.mu.Unlock()
}

// resolveScopeIn resolves one scope body, recursing through referenced
// scopes. The visiting set breaks reference cycles.
func (r *Resolver) resolveScopeIn(model, src, scope string, visiting map[string]bool) ([]sqlmodel.Condition, error) {
	body, ok := extractScopeBody(src, scope)
	if !ok {
		return nil, &sqlmodel.ResolutionError{Model: model, Name: scope, Reason: "scope not declared"}
	}

	conds := parseWhereCalls(body, constants(src))

	// A body like "active.where(...)" chains off sibling scopes; their
	// conditions accumulate.
	for _, ref := range leadingChainNames(body) {
		if visiting[ref] {
			continue
		}
		visiting[ref] = true
		if sub, err := r.resolveScopeIn(model, src, ref, visiting); err == nil {
			conds = append(conds, sub...)
		} else if h, ok := HeuristicConditions(ref); ok {
			conds = append(conds, h...)
		}
	}

	if len(conds) == 0 {
		return nil, &sqlmodel.ResolutionError{Model: model, Name: scope, Reason: "no static predicates in scope body"}
	}
	return dedupeConditions(conds), nil
}

func dedupeConditions(conds []sqlmodel.Condition) []sqlmodel.Condition {
	seen := make(map[string]bool, len(conds))
	var out []sqlmodel.Condition
	for _, c := range conds {
		if seen[c.Key()] {
			continue
		}
		seen[c.Key()] = true
		out = append(out, c)
	}
	return out
}

// leadingChainNames extracts sibling scope/method names a body chains off:
// in "active.where(x: 1).order(:id)" that is "active". Query-builder
// methods themselves are not scope references.
func leadingChainNames(body string) []string {
	body = strings.TrimSpace(body)
	body = strings.TrimPrefix(body, "self.")
	var out []string
	for _, tok := range strings.Split(body, ".") {
		name := tok
		if i := strings.IndexAny(name, "( \t"); i >= 0 {
			name = name[:i]
		}
		name = strings.TrimSpace(name)
		if name == "" || !isIdent(name) {
			break
		}
		if queryMethods[name] {
			continue
		}
		out = append(out, name)
	}
	return out
}

// queryMethods are relation-builder calls that never name a scope.
var queryMethods = map[string]bool{
	"where": true, "not": true, "order": true, "limit": true, "offset": true,
	"joins": true, "includes": true, "group": true, "having": true,
	"select": true, "distinct": true, "all": true, "unscoped": true,
	"references": true, "readonly": true, "lock": true, "reorder": true,
}

// IsQueryMethod reports whether the name is a standard relation-builder or
// finder method rather than a project-defined scope.
func IsQueryMethod(name string) bool {
	return queryMethods[name] || standardARMethods[name]
}

func isIdent(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return s != ""
}
