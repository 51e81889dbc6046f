package emit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// cw accumulates generated source line by line.
type cw struct{ bytes.Buffer }

func (w *cw) line(format string, args ...any) {
	fmt.Fprintf(&w.Buffer, format+"\n", args...)
}

// raw appends text verbatim.
func (w *cw) raw(s string) { w.WriteString(s) }

func (w *cw) blank() { w.WriteByte('\n') }

// orderedMap is a JSON object that keeps insertion order, so manifests and
// API documents render identically on every run.
type orderedMap struct {
	keys   []string
	values map[string]any
}

func newOrderedMap() *orderedMap {
	return &orderedMap{values: make(map[string]any)}
}

func (om *orderedMap) Set(key string, value any) *orderedMap {
	if _, exists := om.values[key]; !exists {
		om.keys = append(om.keys, key)
	}
	om.values[key] = value
	return om
}

func (om *orderedMap) Len() int { return len(om.keys) }

func (om *orderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, key := range om.keys {
		if i > 0 {
			buf.WriteString(",")
		}
		keyJSON, err := marshalPlain(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteString(":")
		valJSON, err := marshalPlain(om.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}
	buf.WriteString("}")
	return buf.Bytes(), nil
}

// marshalPlain marshals v without HTML escaping; shell snippets in
// manifests keep their "&&".
func marshalPlain(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// prettyJSON renders v with two-space indentation and a final newline.
func prettyJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// tsString renders s as a single-quoted TypeScript literal.
func tsString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`)
	return "'" + r.Replace(s) + "'"
}

// tsStrings renders a TypeScript array literal of strings.
func tsStrings(vals []string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = tsString(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// gap renders a block-comment gap marker.
func gap(format string, args ...any) string {
	return "/* GAP: " + fmt.Sprintf(format, args...) + " */"
}
