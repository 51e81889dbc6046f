package spec

import (
	"strings"
	"unicode"
)

// Pluralize applies the simple suffix rules used for every derived plural:
// consonant+y becomes +ies, a trailing s, x, ch or sh takes +es, anything
// else takes +s. Irregular English plurals are not handled.
func Pluralize(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	switch {
	case strings.HasSuffix(lower, "y") && len(s) > 1 && !strings.ContainsRune("aeiou", rune(lower[len(lower)-2])):
		return s[:len(s)-1] + "ies"
	case strings.HasSuffix(lower, "s"), strings.HasSuffix(lower, "x"),
		strings.HasSuffix(lower, "ch"), strings.HasSuffix(lower, "sh"):
		return s + "es"
	}
	return s + "s"
}

// SnakeCase inserts "_" before every upper-case letter except the first and
// lower-cases the result: "LineItems" -> "line_items".
func SnakeCase(s string) string { return splitCase(s, '_') }

// KebabCase is SnakeCase with "-": "LineItems" -> "line-items".
func KebabCase(s string) string { return splitCase(s, '-') }

func splitCase(s string, sep rune) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteRune(sep)
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CamelCase lower-cases the first letter: "LineItem" -> "lineItem".
func CamelCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// PascalCase upper-cases the first letter: "status" -> "Status".
func PascalCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
