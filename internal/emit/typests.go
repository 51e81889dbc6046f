package emit

import (
	"maps"
	"slices"
	"strings"

	"github.com/matthewbaird/turbine/internal/projection"
	"github.com/matthewbaird/turbine/internal/spec"
	"github.com/matthewbaird/turbine/internal/weave"
)

// objectIDPattern matches the hex form of a MongoDB ObjectId.
const objectIDPattern = "^[0-9a-f]{24}$"

// keyField is the scalar form of a foreign key field, as clients send it.
func (c *Context) keyField(f weave.Field) spec.Field {
	v := &spec.Validation{Required: f.Required()}
	return c.identifier(spec.Field{Name: f.Link.ForeignKey, Type: spec.FieldUUID, Validation: v, Visibility: f.Visibility})
}

// identifier adapts a uuid key to the database's identifier format. On
// MongoDB keys are ObjectIds, so they validate as 24 hex digits.
func (c *Context) identifier(f spec.Field) spec.Field {
	if c.Spec.Stack.Database != spec.MongoDB || f.Type != spec.FieldUUID {
		return f
	}
	f.Type = spec.FieldString
	f.Validation = &spec.Validation{Required: f.Required(), Unique: f.Unique(), Pattern: objectIDPattern}
	return f
}

func isForeignKey(f weave.Field) bool {
	return f.Link != nil && f.Link.Kind == weave.LinkForeignKey
}

// schemaFields returns the fields of an entity's runtime schema: scalars
// and foreign key columns. Collections and reverse sides are left out.
func (c *Context) schemaFields(e *weave.Entity) []spec.Field {
	var out []spec.Field
	for _, f := range e.AllFields() {
		switch {
		case isForeignKey(f):
			out = append(out, c.keyField(f))
		case f.Name == spec.IDField:
			out = append(out, c.identifier(f.Field))
		case f.Link != nil:
		default:
			out = append(out, f.Field)
		}
	}
	return out
}

// serverFields lists the schema fields clients never send: identifiers,
// timestamps, and the values the server injects from the caller.
func (c *Context) serverFields(e *weave.Entity) []string {
	var out []string
	for _, f := range c.schemaFields(e) {
		switch {
		case spec.ServerManaged(f.Name):
		case c.hasAuth() && e.Owned && (f.Name == weave.CreatedByID || f.Name == weave.UpdatedByID):
		case e.TenantField != "" && f.Name == e.TenantField:
		default:
			continue
		}
		out = append(out, f.Name)
	}
	return out
}

func emitTypes(c *Context, out *output) {
	var w cw
	w.line("import { z } from 'zod';")
	for _, e := range c.Model.Entities {
		w.blank()
		writeEntityTypes(c, &w, e)
	}
	out.file("src/types.ts", w.String())
}

func writeEntityTypes(c *Context, w *cw, e *weave.Entity) {
	n := nameOf(e)
	if e.Description != "" {
		w.line("/** %s */", e.Description)
	}
	w.line("export interface %s {", n.Type)
	for _, f := range e.AllFields() {
		switch {
		case isForeignKey(f):
			k := c.keyField(f)
			if k.Required() {
				w.line("  %s: string;", k.Name)
			} else {
				w.line("  %s?: string | null;", k.Name)
			}
			w.line("  %s?: %s;", f.Link.Pointer, f.Link.Target)
		case f.Link != nil:
			t := f.Link.Target
			if f.Link.Many {
				t += "[]"
			} else {
				t += " | null"
			}
			w.line("  %s?: %s;", f.Name, t)
		case f.Required():
			w.line("  %s: %s;", f.Name, projection.TypeScript(f.Field))
		default:
			w.line("  %s?: %s | null;", f.Name, projection.TypeScript(f.Field))
		}
	}
	w.line("}")
	w.blank()

	w.line("export const %sSchema = z.object({", n.Type)
	for _, f := range c.schemaFields(e) {
		w.line("  %s: %s,", f.Name, projection.Zod(f))
	}
	w.line("});")

	if len(e.Operations) > 0 && !e.Synthesized() {
		w.blank()
		omit := c.serverFields(e)
		if len(omit) > 0 {
			keys := make([]string, len(omit))
			for i, k := range omit {
				keys[i] = k + ": true"
			}
			w.line("export const Create%sSchema = %sSchema.omit({ %s });", n.Type, n.Type, strings.Join(keys, ", "))
		} else {
			w.line("export const Create%sSchema = %sSchema;", n.Type, n.Type)
		}
		w.line("export const Update%sSchema = Create%sSchema.partial();", n.Type, n.Type)
		w.line("export type Create%sInput = z.infer<typeof Create%sSchema>;", n.Type, n.Type)
		w.line("export type Update%sInput = z.infer<typeof Update%sSchema>;", n.Type, n.Type)
	}

	for _, name := range slices.Sorted(maps.Keys(e.Projections)) {
		w.blank()
		w.line("export type %s%s = %s;", n.Type, spec.PascalCase(name), projectionType(n.Type, e.Projections[name]))
	}
}

// projectionType renders a named field subset with Pick and Omit.
func projectionType(typ string, p spec.Projection) string {
	t := typ
	if len(p.Include) > 0 && !slices.Contains(p.Include, "*") {
		t = "Pick<" + t + ", " + keyUnion(p.Include) + ">"
	}
	if len(p.Exclude) > 0 {
		t = "Omit<" + t + ", " + keyUnion(p.Exclude) + ">"
	}
	return t
}

func keyUnion(keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = tsString(k)
	}
	return strings.Join(parts, " | ")
}
