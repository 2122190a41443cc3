package sqlmodel

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// RailsModel converts a SQL table name to its conventional model name:
// schema prefix stripped, singularized, CamelCased. "public.members" → "Member",
// "people" → "Person". Projects with unconventional names override the result
// via configuration; this is only the default mapping.
func RailsModel(table string) string {
	if table == "" {
		return ""
	}
	base := strings.ToLower(table)
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[i+1:]
	}
	base = strings.Trim(base, "`\"")
	return Camelize(inflection.Singular(base))
}

// Camelize converts snake_case to CamelCase.
func Camelize(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// Underscore converts CamelCase to snake_case. Inverse of Camelize for
// conventional names; used for model-file lookup.
func Underscore(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// AssociationForeignKey maps an association name to its conventional
// foreign-key column: "member" → "member_id", "company" → "company_id".
func AssociationForeignKey(assoc string) string {
	return inflection.Singular(strings.ToLower(assoc)) + "_id"
}

// AssociationNameForColumn strips the _id suffix from a foreign-key column,
// returning "" when the column is not a foreign key.
func AssociationNameForColumn(column string) string {
	c := strings.ToLower(column)
	if !strings.HasSuffix(c, "_id") || len(c) <= 3 {
		return ""
	}
	return strings.TrimSuffix(c, "_id")
}
