package rubymodel

import (
	"regexp"
	"strings"

	"github.com/ppiankov/sqlsleuth/internal/sqlmodel"
)

// Association is one declared model association.
type Association struct {
	Kind        string // has_many, has_one, belongs_to
	Name        string
	Polymorphic bool
}

// Declarations are anchored to a single line: the option scan must never
// run across line boundaries and pick up options of the next declaration.
var reAssociation = regexp.MustCompile(`(?m)^\s*(has_many|has_one|belongs_to)\s+:(\w+)([^\n]*)$`)

// Associations parses the model's association declarations.
func (r *Resolver) Associations(model string) []Association {
	src, ok := r.modelSource(model)
	if !ok {
		return nil
	}
	var out []Association
	for _, m := range reAssociation.FindAllStringSubmatch(src, -1) {
		opts := m[3]
		out = append(out, Association{
			Kind:        m[1],
			Name:        m[2],
			Polymorphic: strings.Contains(opts, "polymorphic: true") || strings.Contains(opts, ":polymorphic => true"),
		})
	}
	return out
}

// HasAssociation reports whether the model declares an association with the
// given name in any form.
func (r *Resolver) HasAssociation(model, name string) bool {
	for _, a := range r.Associations(model) {
		if strings.EqualFold(a.Name, name) {
			return true
		}
	}
	return false
}

// PolymorphicColumns expands the model's polymorphic belongs_to
// declarations into their physical column pairs. One logical reference maps
// to a type discriminator and an identifier, both attributed to the same
// association name.
func (r *Resolver) PolymorphicColumns(model string) map[string][2]string {
	out := make(map[string][2]string)
	for _, a := range r.Associations(model) {
		if a.Kind == "belongs_to" && a.Polymorphic {
			out[a.Name] = [2]string{a.Name + "_type", a.Name + "_id"}
		}
	}
	return out
}

// AssociationConditions returns the conditions implied by accessing the
// model through the named association: the foreign key for a plain
// belongs_to, both columns for a polymorphic one.
func (r *Resolver) AssociationConditions(model, assoc string) []sqlmodel.Condition {
	if cols, ok := r.PolymorphicColumns(model)[assoc]; ok {
		return []sqlmodel.Condition{
			{Column: sqlmodel.ColumnRef{Name: cols[0]}, Operator: sqlmodel.OpEq},
			{Column: sqlmodel.ColumnRef{Name: cols[1]}, Operator: sqlmodel.OpEq},
		}
	}
	return []sqlmodel.Condition{{
		Column:   sqlmodel.ColumnRef{Name: sqlmodel.AssociationForeignKey(assoc)},
		Operator: sqlmodel.OpEq,
	}}
}
