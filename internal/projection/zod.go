package projection

import (
	"math"
	"strconv"
	"strings"

	"github.com/matthewbaird/turbine/internal/spec"
)

const zodJSON = "z.record(z.any()).or(z.array(z.any())).or(z.null()).optional()"

// Zod returns the Zod validator expression for a field. Modifiers are
// layered in a fixed order: min, max, regex, default, then optional when
// the field is not required.
func Zod(f spec.Field) string {
	base := zodBase(f)
	if f.Type == spec.FieldJSON {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	if v := f.Validation; v != nil {
		switch {
		case f.Type == spec.FieldNumber || f.Type == spec.FieldInteger:
			if v.Min != nil {
				b.WriteString(".min(" + number(*v.Min) + ")")
			}
			if v.Max != nil {
				b.WriteString(".max(" + number(*v.Max) + ")")
			}
		case f.Type.IsTextual():
			if v.MinLength != nil {
				b.WriteString(".min(" + strconv.Itoa(*v.MinLength) + ")")
			}
			if v.MaxLength != nil {
				b.WriteString(".max(" + strconv.Itoa(*v.MaxLength) + ")")
			}
			if v.Pattern != "" {
				b.WriteString(".regex(" + regexLiteral(v.Pattern) + ")")
			}
		}
	}
	if def, ok := f.Default(); ok {
		b.WriteString(".default(" + zodDefault(f, def) + ")")
	}
	if !f.Required() {
		b.WriteString(".optional()")
	}
	return b.String()
}

func zodBase(f spec.Field) string {
	switch f.Type {
	case spec.FieldString, spec.FieldText:
		return "z.string()"
	case spec.FieldEmail:
		return "z.string().email()"
	case spec.FieldURL:
		return "z.string().url()"
	case spec.FieldUUID:
		return "z.string().uuid()"
	case spec.FieldNumber:
		return "z.number()"
	case spec.FieldInteger:
		return "z.number().int()"
	case spec.FieldBoolean:
		return "z.boolean()"
	case spec.FieldDate, spec.FieldDateTime:
		return "z.coerce.date()"
	case spec.FieldJSON:
		return zodJSON
	case spec.FieldEnum:
		return "z.enum([" + tsList(f.EnumValues) + "])"
	case spec.FieldRelation:
		if f.Relation != nil && isCollection(f.Relation.Type) {
			return "z.array(z.string().uuid())"
		}
		return "z.string().uuid()"
	}
	return ""
}

// regexLiteral wraps a pattern in regex literal delimiters, escaping only
// the slashes the pattern leaves unescaped.
func regexLiteral(pattern string) string {
	var b strings.Builder
	b.WriteByte('/')
	escaped := false
	for _, r := range pattern {
		if r == '/' && !escaped {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
		escaped = r == '\\' && !escaped
	}
	b.WriteByte('/')
	return b.String()
}

func zodDefault(f spec.Field, def any) string {
	if f.Type.IsTemporal() {
		if s, ok := def.(string); ok {
			if s == "now" {
				return "() => new Date()"
			}
			return "new Date(" + quote(s) + ")"
		}
	}
	return Literal(def)
}

// Literal renders a scalar document value as a TypeScript literal.
func Literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return quote(x)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return number(x)
	case int:
		return strconv.Itoa(x)
	}
	return "undefined"
}

func number(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
