package scoring

import "testing"

func TestExtractPagination(t *testing.T) {
	consts := map[string]int{"PAGE_SIZE": 500}
	tests := []struct {
		name      string
		snippet   string
		hasLimit  bool
		limit     *int
		hasOffset bool
		pageSize  *int
	}{
		{
			name:     "literal limit",
			snippet:  `.limit(500)`,
			hasLimit: true,
			limit:    intPtr(500),
			pageSize: intPtr(500),
		},
		{
			name:     "constant limit",
			snippet:  `.limit(PAGE_SIZE)`,
			hasLimit: true,
			limit:    intPtr(500),
			pageSize: intPtr(500),
		},
		{
			name:     "unresolvable limit",
			snippet:  `.limit(params[:n])`,
			hasLimit: true,
			limit:    nil,
		},
		{
			name:     "accessor counts as limit one",
			snippet:  `.first`,
			hasLimit: true,
			limit:    intPtr(1),
		},
		{
			name:     "take with argument",
			snippet:  `.take(10)`,
			hasLimit: true,
			limit:    intPtr(10),
		},
		{
			name:      "paged offset infers page size",
			snippet:   `.offset(page * PAGE_SIZE)`,
			hasOffset: true,
			pageSize:  intPtr(500),
		},
		{
			name:      "parenthesized page expression",
			snippet:   `.limit(500).offset(n * 500)`,
			hasLimit:  true,
			limit:     intPtr(500),
			hasOffset: true,
			pageSize:  intPtr(500),
		},
		{
			name:    "no pagination",
			snippet: `.where(company_id: 1)`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ExtractPagination(tt.snippet, consts)
			if p.HasLimit != tt.hasLimit || p.HasOffset != tt.hasOffset {
				t.Errorf("flags = limit %v / offset %v", p.HasLimit, p.HasOffset)
			}
			if (p.Limit == nil) != (tt.limit == nil) {
				t.Fatalf("limit = %v, want %v", p.Limit, tt.limit)
			}
			if p.Limit != nil && *p.Limit != *tt.limit {
				t.Errorf("limit = %d, want %d", *p.Limit, *tt.limit)
			}
			if tt.pageSize != nil {
				if p.PageSize == nil || *p.PageSize != *tt.pageSize {
					t.Errorf("pageSize = %v, want %d", p.PageSize, *tt.pageSize)
				}
			}
		})
	}
}

func TestResolveIntExpr(t *testing.T) {
	consts := map[string]int{"PAGE_SIZE": 500}
	tests := []struct {
		expr string
		want int
		ok   bool
	}{
		{"500", 500, true},
		{"PAGE_SIZE", 500, true},
		{"PAGE_SIZE * 2", 1000, true},
		{"2 * PAGE_SIZE", 1000, true},
		{"params[:n]", 0, false},
		{"UNKNOWN", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, ok := resolveIntExpr(tt.expr, consts)
			if ok != tt.ok || got != tt.want {
				t.Errorf("resolveIntExpr(%q) = %d, %v", tt.expr, got, ok)
			}
		})
	}
}

func TestCheckPagination(t *testing.T) {
	tests := []struct {
		name         string
		limit        *int
		offset       *int
		p            PaginationParams
		limitOK      bool
		offsetOK     bool
		incompatible bool
	}{
		{
			name:     "exact match",
			limit:    intPtr(500),
			offset:   intPtr(1000),
			p:        PaginationParams{HasLimit: true, Limit: intPtr(500), HasOffset: true, PageSize: intPtr(500)},
			limitOK:  true,
			offsetOK: true,
		},
		{
			name:         "limit mismatch",
			limit:        intPtr(500),
			p:            PaginationParams{HasLimit: true, Limit: intPtr(100)},
			limitOK:      false,
			offsetOK:     true,
			incompatible: true,
		},
		{
			name:     "unresolvable limit is compatible",
			limit:    intPtr(500),
			p:        PaginationParams{HasLimit: true},
			limitOK:  true,
			offsetOK: true,
		},
		{
			name:     "missing limit clause",
			limit:    intPtr(500),
			p:        PaginationParams{},
			limitOK:  false,
			offsetOK: true,
		},
		{
			name:         "offset not a page multiple",
			offset:       intPtr(1234),
			p:            PaginationParams{HasOffset: true, PageSize: intPtr(500)},
			limitOK:      true,
			offsetOK:     false,
			incompatible: true,
		},
		{
			name:     "offset with unknown page size",
			offset:   intPtr(1234),
			p:        PaginationParams{HasOffset: true},
			limitOK:  true,
			offsetOK: true,
		},
		{
			name:     "no pagination in query",
			p:        PaginationParams{HasLimit: true, Limit: intPtr(100)},
			limitOK:  true,
			offsetOK: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limitOK, offsetOK, incompatible, issues := checkPagination(tt.limit, tt.offset, tt.p)
			if limitOK != tt.limitOK || offsetOK != tt.offsetOK || incompatible != tt.incompatible {
				t.Errorf("got %v/%v/%v, want %v/%v/%v (issues: %v)",
					limitOK, offsetOK, incompatible, tt.limitOK, tt.offsetOK, tt.incompatible, issues)
			}
			if (!limitOK || !offsetOK) && len(issues) == 0 {
				t.Error("failed check carries no issue description")
			}
		})
	}
}
