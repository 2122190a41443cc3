package scoring

import (
	"regexp"
	"strconv"
	"strings"
)

// PaginationParams are the pagination clauses detected in a source snippet.
type PaginationParams struct {
	HasLimit  bool
	Limit     *int // nil when the expression could not be resolved
	HasOffset bool
	PageSize  *int // inferred page size when offset is computed from a page number
}

var (
	reLimitCall    = regexp.MustCompile(`\.limit\s*\(\s*([^)]+?)\s*\)`)
	reOffsetCall   = regexp.MustCompile(`\.offset\s*\(\s*([^)]+?)\s*\)`)
	reAccessorCall = regexp.MustCompile(`\.(take|first|last|find_by)\b(?:\s*\(\s*([^)]*?)\s*\))?`)
	rePagedOffset  = regexp.MustCompile(`\([^)]+\)\s*\*\s*(\S+)|\w+\s*\*\s*(\S+)`)
	reMulLeft      = regexp.MustCompile(`^(\w+)\s*\*\s*(\d+)$`)
	reMulRight     = regexp.MustCompile(`^(\d+)\s*\*\s*(\w+)$`)
)

// ExtractPagination detects LIMIT/OFFSET-equivalent clauses in a snippet.
// Constants lets expressions like .limit(PAGE_SIZE) resolve to a value.
// Argument-less single-record accessors count as limit 1.
func ExtractPagination(snippet string, constants map[string]int) PaginationParams {
	var p PaginationParams

	if m := reLimitCall.FindStringSubmatch(snippet); m != nil {
		p.HasLimit = true
		if n, ok := resolveIntExpr(m[1], constants); ok {
			p.Limit = &n
			p.PageSize = &n
		}
	} else if m := reAccessorCall.FindStringSubmatch(snippet); m != nil {
		p.HasLimit = true
		arg := strings.TrimSpace(m[2])
		if arg == "" {
			one := 1
			p.Limit = &one
		} else if n, ok := resolveIntExpr(arg, constants); ok {
			p.Limit = &n
		}
	}

	if m := reOffsetCall.FindStringSubmatch(snippet); m != nil {
		p.HasOffset = true
		if size, ok := pageSizeFromOffset(m[1], constants); ok {
			p.PageSize = &size
		}
	}
	return p
}

// resolveIntExpr resolves a literal, a named constant, or a simple
// constant-times-literal product.
func resolveIntExpr(expr string, constants map[string]int) (int, bool) {
	expr = strings.TrimSpace(expr)
	if n, err := strconv.Atoi(expr); err == nil {
		return n, true
	}
	if v, ok := constants[expr]; ok {
		return v, true
	}
	if m := reMulLeft.FindStringSubmatch(expr); m != nil {
		if v, ok := constants[m[1]]; ok {
			n, _ := strconv.Atoi(m[2])
			return v * n, true
		}
	}
	if m := reMulRight.FindStringSubmatch(expr); m != nil {
		if v, ok := constants[m[2]]; ok {
			n, _ := strconv.Atoi(m[1])
			return n * v, true
		}
	}
	return 0, false
}

// pageSizeFromOffset infers the page size from expressions of the shape
// (page-1)*SIZE or page*SIZE.
func pageSizeFromOffset(expr string, constants map[string]int) (int, bool) {
	m := rePagedOffset.FindStringSubmatch(expr)
	if m == nil {
		return 0, false
	}
	size := m[1]
	if size == "" {
		size = m[2]
	}
	return resolveIntExpr(size, constants)
}

// checkPagination compares SQL pagination values against the snippet's.
// Unresolvable values get the benefit of the doubt; resolvable mismatches
// are incompatibilities, including an offset the code's page size can never
// produce.
func checkPagination(sqlLimit, sqlOffset *int, p PaginationParams) (limitOK, offsetOK, incompatible bool, issues []string) {
	limitOK, offsetOK = true, true

	if sqlLimit != nil {
		switch {
		case !p.HasLimit:
			limitOK = false
			issues = append(issues, "source has no LIMIT-equivalent clause")
		case p.Limit == nil:
			// Unresolvable expression: compatible until proven otherwise.
		case *p.Limit != *sqlLimit:
			limitOK = false
			incompatible = true
			issues = append(issues, "LIMIT mismatch: query "+strconv.Itoa(*sqlLimit)+", source "+strconv.Itoa(*p.Limit))
		}
	}

	if sqlOffset != nil {
		switch {
		case !p.HasOffset:
			offsetOK = false
			issues = append(issues, "source has no OFFSET clause")
		case p.PageSize == nil || *p.PageSize == 0:
			// Unknown granularity.
		case *sqlOffset%*p.PageSize != 0:
			offsetOK = false
			incompatible = true
			issues = append(issues, "OFFSET "+strconv.Itoa(*sqlOffset)+" is not a multiple of page size "+strconv.Itoa(*p.PageSize))
		}
	}
	return limitOK, offsetOK, incompatible, issues
}
