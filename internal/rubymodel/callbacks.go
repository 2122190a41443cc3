package rubymodel

import (
	"regexp"
	"strings"
)

// CallbackDecl is one lifecycle callback declaration found in a model file.
type CallbackDecl struct {
	Callback string // e.g. after_save
	Method   string
	Line     int // 1-based declaration line
}

var reCallback = regexp.MustCompile(`^\s*(before_validation|before_save|before_create|before_update|before_destroy|after_save|after_create|after_update|after_destroy|after_commit|after_rollback|around_save|around_create)\s+:(\w+)`)

// Callbacks lists the model's lifecycle callback declarations with their
// exact declaration lines, so suggestions built on them can be marked
// verified.
func (r *Resolver) Callbacks(model string) []CallbackDecl {
	src, ok := r.modelSource(model)
	if !ok {
		return nil
	}
	var out []CallbackDecl
	for i, line := range strings.Split(src, "\n") {
		m := reCallback.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, CallbackDecl{Callback: m[1], Method: m[2], Line: i + 1})
	}
	return out
}
