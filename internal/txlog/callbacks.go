package txlog

import (
	"errors"
	"sort"
	"strings"

	"github.com/ppiankov/sqlsleuth/internal/config"
	"github.com/ppiankov/sqlsleuth/internal/rubymodel"
	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// Keywords that suggest a callback method performs secondary writes. Used
// only for ranking; a callback is suggested because it exists on a model
// the flow writes to, never because of its name alone.
var callbackKeywords = []string{"save", "create", "commit", "feed", "audit", "aggregate", "publish", "notify", "log"}

// SuggestCallbacks proposes lifecycle callbacks that could explain writes
// the wrapper block does not issue directly. Declarations found in the
// model file are marked verified with their location; when no model file
// is available the suggestion is inferred and says so. Suggestions are
// reported separately from wrapper candidates and never merged into their
// confidence.
func SuggestCallbacks(r *rubymodel.Resolver, flow *sqlmodel.TransactionFlow, sig *config.Signature) []sqlmodel.CallbackSuggestion {
	var out []sqlmodel.CallbackSuggestion
	for _, table := range flow.Tables() {
		model := sqlmodel.RailsModel(table)
		file := r.ModelPath(model)
		var decls []rubymodel.CallbackDecl
		if file != "" {
			decls = r.Callbacks(model)
		}
		if len(decls) == 0 {
			out = append(out, sqlmodel.CallbackSuggestion{
				Model:    model,
				Callback: "after_save",
				Verified: false,
				Reason:   "inferred from the write to " + table + " - not verified against a model declaration",
			})
			continue
		}
		for _, d := range decls {
			out = append(out, sqlmodel.CallbackSuggestion{
				Model:    model,
				Callback: d.Callback,
				Method:   d.Method,
				File:     file,
				Line:     d.Line,
				Verified: true,
				Reason:   "declared in " + file,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return callbackRank(out[i]) > callbackRank(out[j])
	})
	if max := sig.MaxCallbacks; max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

func callbackRank(s sqlmodel.CallbackSuggestion) int {
	rank := 0
	if s.Verified {
		rank += 10
	}
	name := strings.ToLower(s.Method + " " + s.Callback)
	for _, kw := range callbackKeywords {
		if strings.Contains(name, kw) {
			rank++
		}
	}
	return rank
}

func asTimeout(err error, target **sqlmodel.SearchTimeoutError) bool {
	return errors.As(err, target)
}
