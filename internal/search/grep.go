package search

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/sqlsleuth/internal/config"
	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
	"github.com/ppiankov/sqlsleuth/internal/suppress"
)

// skipDirs are never searched regardless of configuration.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"tmp":          true,
	"log":          true,
	"coverage":     true,
	"public":       true,
}

// Grep is the walker-based Searcher. It reads files itself rather than
// shelling out, honors the configured exclusions, and never writes to the
// tree it searches.
type Grep struct {
	Root         string
	Cfg          config.Search
	Suppressions *suppress.Rules // optional
}

// NewGrep builds a Grep over the repository root.
func NewGrep(root string, cfg config.Search, sup *suppress.Rules) *Grep {
	return &Grep{Root: root, Cfg: cfg, Suppressions: sup}
}

// Search runs one search invocation under the context deadline. On deadline
// expiry it returns the hits gathered so far along with a SearchTimeoutError
// so callers can degrade instead of failing.
func (g *Grep) Search(ctx context.Context, req Request) ([]Hit, error) {
	matcher, err := compileMatcher(req.Pattern)
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", req.Pattern.Text, err)
	}

	paths, err := g.collectPaths(ctx, req)
	if err != nil {
		return nil, err
	}

	workers := g.Cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	pathCh := make(chan string, len(paths))
	for _, p := range paths {
		pathCh <- p
	}
	close(pathCh)

	type fileHits struct {
		hits []Hit
		err  error
	}
	resultCh := make(chan fileHits, len(paths))
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range pathCh {
				if ctx.Err() != nil {
					resultCh <- fileHits{err: ctx.Err()}
					return
				}
				hits, err := g.searchFile(path, matcher, req)
				resultCh <- fileHits{hits: hits, err: err}
			}
		}()
	}
	wg.Wait()
	close(resultCh)

	var out []Hit
	var timedOut bool
	for fr := range resultCh {
		if fr.err != nil {
			if errors.Is(fr.err, context.DeadlineExceeded) || errors.Is(fr.err, context.Canceled) {
				timedOut = true
				continue
			}
			return out, fr.err
		}
		out = append(out, fr.hits...)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Line < out[j].Line
	})

	cap := req.MaxResults
	if cap <= 0 {
		cap = g.Cfg.MaxResults
	}
	if cap > 0 && len(out) > cap {
		out = out[:cap]
	}

	if timedOut {
		budget := time.Duration(0)
		if dl, ok := ctx.Deadline(); ok {
			budget = time.Until(dl)
			if budget < 0 {
				budget = -budget
			}
		}
		return out, &sqlmodel.SearchTimeoutError{Pattern: req.Pattern.Text, Budget: budget}
	}
	return out, nil
}

// collectPaths walks the include roots and gathers candidate files.
func (g *Grep) collectPaths(ctx context.Context, req Request) ([]string, error) {
	if len(req.Files) > 0 {
		paths := make([]string, 0, len(req.Files))
		for _, f := range req.Files {
			paths = append(paths, filepath.Join(g.Root, f))
		}
		return paths, nil
	}

	roots := req.Include
	if len(roots) == 0 {
		roots = g.Cfg.AppDirs
	}
	if len(roots) == 0 {
		roots = []string{"."}
	}

	extOK := make(map[string]bool, len(g.Cfg.Extensions))
	for _, e := range g.Cfg.Extensions {
		extOK[strings.ToLower(e)] = true
	}

	seen := make(map[string]bool)
	var paths []string
	for _, root := range roots {
		abs := filepath.Join(g.Root, root)
		if _, err := os.Stat(abs); err != nil {
			continue
		}
		err := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			rel, _ := filepath.Rel(g.Root, path)
			if d.IsDir() {
				if skipDirs[d.Name()] || g.excluded(rel) {
					return filepath.SkipDir
				}
				return nil
			}
			if len(extOK) > 0 && !extOK[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			if g.excluded(rel) || seen[path] {
				return nil
			}
			seen[path] = true
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return paths, nil // let the search phase report the timeout
			}
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	return paths, nil
}

// excluded checks a repo-relative path against the configured exclusions.
// Entries match either a path prefix ("db/migrate") or any segment ("spec").
func (g *Grep) excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, ex := range g.Cfg.ExcludeDirs {
		ex = filepath.ToSlash(ex)
		if rel == ex || strings.HasPrefix(rel, ex+"/") {
			return true
		}
		if !strings.Contains(ex, "/") {
			for _, seg := range strings.Split(rel, "/") {
				if seg == ex {
					return true
				}
			}
		}
	}
	return false
}

func (g *Grep) searchFile(path string, match func(string) bool, req Request) ([]Hit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	rel, _ := filepath.Rel(g.Root, path)
	rel = filepath.ToSlash(rel)

	var hits []Hit
	for i, line := range lines {
		if !match(line) {
			continue
		}
		if suppress.HasInlineIgnore(line) {
			continue
		}
		if g.Suppressions != nil && g.Suppressions.Matches(rel, line) {
			continue
		}
		start := i - req.Before
		if start < 0 {
			start = 0
		}
		end := i + req.After
		if end > len(lines)-1 {
			end = len(lines) - 1
		}
		hits = append(hits, Hit{
			File:      rel,
			Line:      i + 1,
			Text:      line,
			StartLine: start + 1,
			EndLine:   end + 1,
			Context:   strings.Join(lines[start:end+1], "\n"),
		})
	}
	return hits, nil
}

// compileMatcher builds the per-line predicate: a compiled regexp for regex
// patterns, plain substring containment otherwise.
func compileMatcher(p sqlmodel.SearchPattern) (func(string) bool, error) {
	if p.Regex {
		re, err := regexp.Compile(p.Text)
		if err != nil {
			return nil, err
		}
		return re.MatchString, nil
	}
	text := p.Text
	return func(line string) bool {
		return strings.Contains(line, text)
	}, nil
}
