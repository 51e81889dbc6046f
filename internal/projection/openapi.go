package projection

import (
	"github.com/matthewbaird/turbine/internal/spec"
)

// OpenAPI returns the JSON-schema fragment documenting a field.
func OpenAPI(f spec.Field) map[string]any {
	var s map[string]any
	switch f.Type {
	case spec.FieldString, spec.FieldText:
		s = map[string]any{"type": "string"}
	case spec.FieldEmail:
		s = map[string]any{"type": "string", "format": "email"}
	case spec.FieldURL:
		s = map[string]any{"type": "string", "format": "uri"}
	case spec.FieldUUID:
		s = map[string]any{"type": "string", "format": "uuid"}
	case spec.FieldNumber:
		s = map[string]any{"type": "number", "format": "double"}
	case spec.FieldInteger:
		s = map[string]any{"type": "integer", "format": "int32"}
	case spec.FieldBoolean:
		s = map[string]any{"type": "boolean"}
	case spec.FieldDate:
		s = map[string]any{"type": "string", "format": "date"}
	case spec.FieldDateTime:
		s = map[string]any{"type": "string", "format": "date-time"}
	case spec.FieldJSON:
		s = map[string]any{"type": "object"}
	case spec.FieldEnum:
		s = map[string]any{"type": "string", "enum": f.EnumValues}
	case spec.FieldRelation:
		id := map[string]any{"type": "string", "format": "uuid"}
		if f.Relation != nil && isCollection(f.Relation.Type) {
			s = map[string]any{"type": "array", "items": id}
		} else {
			s = id
		}
	default:
		return nil
	}

	if v := f.Validation; v != nil {
		if v.Min != nil {
			s["minimum"] = *v.Min
		}
		if v.Max != nil {
			s["maximum"] = *v.Max
		}
		if v.MinLength != nil {
			s["minLength"] = *v.MinLength
		}
		if v.MaxLength != nil {
			s["maxLength"] = *v.MaxLength
		}
		if v.Pattern != "" {
			s["pattern"] = v.Pattern
		}
		if v.Default != nil {
			s["default"] = v.Default
		}
	}
	if f.Description != "" {
		s["description"] = f.Description
	}
	return s
}
