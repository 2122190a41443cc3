package txlog

import (
	"sort"
	"strings"

	"github.com/ppiankov/sqlsleuth/internal/config"
	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// Names that appear on practically every Rails table and therefore carry no
// signal for telling one write apart from another.
var genericColumns = map[string]bool{
	"id":          true,
	"name":        true,
	"title":       true,
	"description": true,
	"type":        true,
	"status":      true,
	"created_at":  true,
	"updated_at":  true,
	"deleted_at":  true,
	"deleted":     true,
	"active":      true,
	"enabled":     true,
	"visible":     true,
}

// SignatureColumns collects the distinct column names written by the flow's
// INSERT and UPDATE statements, distinctive names first. The split is
// pattern-based, not a fixed list: foreign keys (*_id) and boolean-style
// is_* flags are common enough to count as generic alongside the timestamp
// and soft-delete columns every table carries.
func SignatureColumns(flow *sqlmodel.TransactionFlow, sig *config.Signature) (distinctive, generic []string) {
	seen := make(map[string]bool)
	extra := make(map[string]bool, len(sig.GenericNames))
	for _, n := range sig.GenericNames {
		extra[strings.ToLower(n)] = true
	}

	for _, st := range flow.Statements {
		if st.Query == nil {
			continue
		}
		if st.Query.Intent != sqlmodel.IntentInsert && st.Query.Intent != sqlmodel.IntentUpdate {
			continue
		}
		for _, col := range st.Query.InsertColumns {
			name := strings.ToLower(col)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			if isGenericColumn(name) || extra[name] {
				generic = append(generic, name)
			} else {
				distinctive = append(distinctive, name)
			}
		}
	}
	sort.Strings(distinctive)
	sort.Strings(generic)
	return distinctive, generic
}

func isGenericColumn(name string) bool {
	if genericColumns[name] {
		return true
	}
	if strings.HasSuffix(name, "_id") || strings.HasSuffix(name, "_at") {
		return true
	}
	return strings.HasPrefix(name, "is_")
}

// matchThreshold is how many signature columns a transaction block must
// reference before it counts as a candidate wrapper. The fraction scales
// with signature size but the threshold never demands the full set; one
// column written by a callback rather than the wrapper is expected.
func matchThreshold(signatureLen int, sig *config.Signature) int {
	if signatureLen == 0 {
		return 0
	}
	n := int(float64(signatureLen) * sig.Fraction)
	if n < sig.MinColumns {
		n = sig.MinColumns
	}
	if n >= signatureLen && signatureLen > 1 {
		n = signatureLen - 1
	}
	if n > signatureLen {
		n = signatureLen
	}
	return n
}
