// Package projection maps spec fields onto target-language types.
//
// Each projection is a pure function of a single field: TypeScript for the
// static type, Zod for runtime validation, Storage for the column kind and
// OpenAPI for the documented schema. None of them touch the file system.
package projection

import (
	"strings"

	"github.com/matthewbaird/turbine/internal/spec"
)

// TypeScript returns the static TypeScript type of a field.
func TypeScript(f spec.Field) string {
	switch f.Type {
	case spec.FieldString, spec.FieldText, spec.FieldEmail, spec.FieldURL, spec.FieldUUID:
		return "string"
	case spec.FieldNumber, spec.FieldInteger:
		return "number"
	case spec.FieldBoolean:
		return "boolean"
	case spec.FieldDate, spec.FieldDateTime:
		return "Date"
	case spec.FieldJSON:
		return "unknown"
	case spec.FieldEnum:
		return literalUnion(f.EnumValues)
	case spec.FieldRelation:
		if f.Relation == nil {
			return "string"
		}
		if isCollection(f.Relation.Type) {
			return f.Relation.Target + "[]"
		}
		return f.Relation.Target
	}
	return ""
}

func literalUnion(vals []string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = quote(v)
	}
	return strings.Join(parts, " | ")
}

func isCollection(r spec.RelationType) bool {
	return r == spec.HasMany || r == spec.ManyToMany
}

// quote renders s as a single-quoted TypeScript string literal.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`)
	return "'" + r.Replace(s) + "'"
}
