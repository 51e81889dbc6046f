package emit

import (
	"fmt"
	"slices"
	"strings"

	"entgo.io/ent/schema/field"

	"github.com/matthewbaird/turbine/internal/projection"
	"github.com/matthewbaird/turbine/internal/spec"
	"github.com/matthewbaird/turbine/internal/weave"
)

var drizzleActions = map[spec.OnDelete]string{
	spec.Cascade:  "cascade",
	spec.SetNull:  "set null",
	spec.Restrict: "restrict",
	spec.NoAction: "no action",
}

type drizzleCore struct {
	pkg, table, dialect, anyColumn string
}

func coreFor(db spec.Database) drizzleCore {
	switch db {
	case spec.MySQL:
		return drizzleCore{"drizzle-orm/mysql-core", "mysqlTable", "mysql", "AnyMySqlColumn"}
	case spec.SQLite:
		return drizzleCore{"drizzle-orm/sqlite-core", "sqliteTable", "sqlite", "AnySQLiteColumn"}
	}
	return drizzleCore{"drizzle-orm/pg-core", "pgTable", "postgresql", "AnyPgColumn"}
}

func tableVar(e *weave.Entity) string { return spec.CamelCase(e.Plural) }

// joinTable is the storage of a manyToMany relation without a join entity.
type joinTable struct {
	name       string // relation name
	table      string
	a, b       *weave.Entity
	colA, colB string
}

func (j joinTable) varName() string { return spec.CamelCase(j.name) }

// joinTables collects the implicit manyToMany relations in dependency
// order, one per relation name.
func (c *Context) joinTables() []joinTable {
	var out []joinTable
	seen := map[string]bool{}
	for _, e := range c.Order {
		for _, f := range e.Fields {
			if f.Link == nil || f.Link.Kind != weave.LinkImplicit || seen[f.Link.Name] {
				continue
			}
			seen[f.Link.Name] = true
			b, ok := c.Model.Entity(f.Link.Target)
			if !ok {
				continue
			}
			j := joinTable{
				name:  f.Link.Name,
				table: spec.SnakeCase(f.Link.Name),
				a:     e,
				b:     b,
				colA:  spec.SnakeCase(e.Name) + "_id",
				colB:  spec.SnakeCase(b.Name) + "_id",
			}
			if j.colA == j.colB {
				j.colB = spec.SnakeCase(f.Name) + "_id"
			}
			out = append(out, j)
		}
	}
	return out
}

func emitDrizzle(c *Context, out *output) {
	db := c.Spec.Stack.Database
	core := coreFor(db)

	schema := drizzleSchema(c, core)
	out.file("src/db/schema.ts", schema)

	var w cw
	switch db {
	case spec.MySQL:
		w.line("import { drizzle } from 'drizzle-orm/mysql2';")
		w.line("import mysql from 'mysql2/promise';")
		w.line("import * as schema from './db/schema.js';")
		w.blank()
		w.line("const pool = mysql.createPool(process.env.DATABASE_URL ?? '');")
		w.line("export const db = drizzle(pool, { schema, mode: 'default' });")
	case spec.SQLite:
		w.line("import { drizzle } from 'drizzle-orm/better-sqlite3';")
		w.line("import Database from 'better-sqlite3';")
		w.line("import * as schema from './db/schema.js';")
		w.blank()
		w.line("const sqlite = new Database((process.env.DATABASE_URL ?? 'file:./dev.db').replace(/^file:/, ''));")
		w.line("export const db = drizzle(sqlite, { schema });")
	default:
		w.line("import { drizzle } from 'drizzle-orm/node-postgres';")
		w.line("import pg from 'pg';")
		w.line("import * as schema from './db/schema.js';")
		w.blank()
		w.line("const pool = new pg.Pool({ connectionString: process.env.DATABASE_URL });")
		w.line("export const db = drizzle(pool, { schema });")
	}
	out.file("src/db.ts", w.String())

	var k cw
	k.line("import { defineConfig } from 'drizzle-kit';")
	k.blank()
	k.line("export default defineConfig({")
	k.line("  schema: './src/db/schema.ts',")
	k.line("  out: './drizzle',")
	k.line("  dialect: '%s',", core.dialect)
	k.line("  dbCredentials: { url: process.env.DATABASE_URL ?? '' },")
	k.line("});")
	out.file("drizzle.config.ts", k.String())
}

func drizzleSchema(c *Context, core drizzleCore) string {
	db := c.Spec.Stack.Database
	imports := map[string]bool{core.table: true}
	var body cw

	if db == spec.PostgreSQL {
		for _, e := range c.Model.Entities {
			for _, f := range e.AllFields() {
				if f.Type != spec.FieldEnum || f.Link != nil {
					continue
				}
				st := projection.StorageOf(e.Name, f.Field)
				imports["pgEnum"] = true
				body.line("export const %sEnum = pgEnum(%s, %s);", spec.CamelCase(st.Enum), tsString(spec.SnakeCase(st.Enum)), tsStrings(st.EnumValues))
			}
		}
		if body.Len() > 0 {
			body.blank()
		}
	}

	selfRef := false
	for i, e := range c.Order {
		if i > 0 {
			body.blank()
		}
		selfRef = writeDrizzleTable(c, &body, e, core, imports) || selfRef
	}
	joins := c.joinTables()
	for _, j := range joins {
		body.blank()
		writeDrizzleJoin(c, &body, j, core, imports)
	}

	relations := drizzleRelations(c, joins)

	var w cw
	names := make([]string, 0, len(imports))
	for n := range imports {
		if n != "" {
			names = append(names, n)
		}
	}
	slices.Sort(names)
	if selfRef {
		names = append(names, "type "+core.anyColumn)
	}
	if relations != "" {
		w.line("import { relations } from 'drizzle-orm';")
	}
	w.line("import { %s } from '%s';", strings.Join(names, ", "), core.pkg)
	w.blank()
	w.raw(body.String())
	if relations != "" {
		w.blank()
		w.raw(relations)
	}
	return w.String()
}

func idColumn(db spec.Database) (string, string) {
	switch db {
	case spec.MySQL:
		return "varchar('id', { length: 36 }).primaryKey().$defaultFn(() => crypto.randomUUID())", "varchar"
	case spec.SQLite:
		return "text('id').primaryKey().$defaultFn(() => crypto.randomUUID())", "text"
	}
	return "uuid('id').primaryKey().defaultRandom()", "uuid"
}

// writeDrizzleTable renders one table and reports whether it references
// itself.
func writeDrizzleTable(c *Context, w *cw, e *weave.Entity, core drizzleCore, imports map[string]bool) bool {
	db := c.Spec.Stack.Database
	selfRef := false
	w.line("export const %s = %s(%s, {", tableVar(e), core.table, tsString(e.TableName))
	for _, f := range e.AllFields() {
		if f.Link != nil && f.Link.Kind != weave.LinkForeignKey {
			continue
		}
		if f.Name == spec.IDField {
			call, imp := idColumn(db)
			imports[imp] = true
			w.line("  id: %s,", call)
			continue
		}
		name := columnOf(f)
		st := projection.StorageOf(e.Name, f.Field)
		call, imp := st.Drizzle(db, spec.SnakeCase(name))
		imports[imp] = true

		var b strings.Builder
		b.WriteString(call)
		if f.Required() {
			b.WriteString(".notNull()")
		}
		if f.Unique() || (isForeignKey(f) && f.Link.Unique) {
			b.WriteString(".unique()")
		}
		b.WriteString(drizzleDefault(db, st, f))
		if isForeignKey(f) {
			target, _ := c.Model.Entity(f.Link.Target)
			ref := "() => " + tableVar(target) + ".id"
			if target == e {
				ref = "(): " + core.anyColumn + " => " + tableVar(target) + ".id"
				selfRef = true
			}
			fmt.Fprintf(&b, ".references(%s, { onDelete: '%s' })", ref, drizzleActions[f.Link.OnDelete])
		}
		w.line("  %s: %s,", name, b.String())
	}
	var constraints []string
	for i, group := range e.UniqueTogether {
		imports["unique"] = true
		cols := make([]string, len(group))
		for j, g := range group {
			cols[j] = "t." + g
		}
		constraints = append(constraints, fmt.Sprintf("unique%d: unique().on(%s)", i+1, strings.Join(cols, ", ")))
	}
	if e.TenantField != "" {
		if f, ok := e.Field(e.TenantField); ok && f.Link != nil {
			imports["index"] = true
			constraints = append(constraints, fmt.Sprintf("tenantIdx: index(%s).on(t.%s)",
				tsString(e.TableName+"_"+spec.SnakeCase(f.Link.ForeignKey)+"_idx"), f.Link.ForeignKey))
		}
	}
	if len(constraints) == 0 {
		w.line("});")
		return selfRef
	}
	w.line("}, (t) => ({")
	for _, x := range constraints {
		w.line("  %s,", x)
	}
	w.line("}));")
	return selfRef
}

func drizzleDefault(db spec.Database, st projection.Storage, f weave.Field) string {
	now := ".defaultNow()"
	if db == spec.SQLite {
		now = ".$defaultFn(() => new Date())"
	}
	switch f.Name {
	case spec.CreatedAtField:
		return now
	case spec.UpdatedAtField:
		return now + ".$onUpdate(() => new Date())"
	}
	def, ok := f.Default()
	if !ok {
		return ""
	}
	if st.Kind == field.TypeTime {
		if s, ok := def.(string); ok && s == "now" {
			return now
		}
		if s, ok := def.(string); ok {
			return ".default(new Date(" + tsString(s) + "))"
		}
	}
	return ".default(" + projection.Literal(def) + ")"
}

func writeDrizzleJoin(c *Context, w *cw, j joinTable, core drizzleCore, imports map[string]bool) {
	db := c.Spec.Stack.Database
	key := projection.Storage{Kind: field.TypeUUID}
	callA, imp := key.Drizzle(db, j.colA)
	callB, _ := key.Drizzle(db, j.colB)
	imports[imp] = true
	imports["primaryKey"] = true
	fa, fb := spec.CamelCase(snakeToPascal(j.colA)), spec.CamelCase(snakeToPascal(j.colB))
	w.line("export const %s = %s(%s, {", j.varName(), core.table, tsString(j.table))
	w.line("  %s: %s.notNull().references(() => %s.id, { onDelete: 'cascade' }),", fa, callA, tableVar(j.a))
	w.line("  %s: %s.notNull().references(() => %s.id, { onDelete: 'cascade' }),", fb, callB, tableVar(j.b))
	w.line("}, (t) => ({")
	w.line("  pk: primaryKey({ columns: [t.%s, t.%s] }),", fa, fb)
	w.line("}));")
}

func snakeToPascal(s string) string {
	parts := strings.Split(s, "_")
	for i, p := range parts {
		parts[i] = spec.PascalCase(p)
	}
	return strings.Join(parts, "")
}

func drizzleRelations(c *Context, joins []joinTable) string {
	var w cw
	first := true
	for _, e := range c.Order {
		var lines []string
		for _, f := range e.Fields {
			if f.Link == nil {
				continue
			}
			l := f.Link
			target, ok := c.Model.Entity(l.Target)
			if !ok {
				continue
			}
			switch l.Kind {
			case weave.LinkForeignKey:
				lines = append(lines, fmt.Sprintf("%s: one(%s, { fields: [%s.%s], references: [%s.id], relationName: %s }),",
					l.Pointer, tableVar(target), tableVar(e), l.ForeignKey, tableVar(target), tsString(l.Name)))
			case weave.LinkBack:
				if l.Many {
					lines = append(lines, fmt.Sprintf("%s: many(%s, { relationName: %s }),", f.Name, tableVar(target), tsString(l.Name)))
				} else {
					lines = append(lines, fmt.Sprintf("%s: one(%s, { relationName: %s }),", f.Name, tableVar(target), tsString(l.Name)))
				}
			case weave.LinkImplicit:
				for _, j := range joins {
					if j.name == l.Name {
						lines = append(lines, fmt.Sprintf("%s: many(%s),", f.Name, j.varName()))
					}
				}
			case weave.LinkThrough:
				lines = append(lines, fmt.Sprintf("// %s: %s[] through %s", f.Name, l.Target, l.Through))
			case weave.LinkUnpaired:
				lines = append(lines, fmt.Sprintf("// TODO: %s %s[] has no belongsTo counterpart on %s", f.Name, l.Target, l.Target))
			}
		}
		if len(lines) == 0 {
			continue
		}
		if !first {
			w.blank()
		}
		first = false
		w.line("export const %sRelations = relations(%s, ({ one, many }) => ({", tableVar(e), tableVar(e))
		for _, l := range lines {
			w.line("  %s", l)
		}
		w.line("}));")
	}
	for _, j := range joins {
		if !first {
			w.blank()
		}
		first = false
		fa, fb := spec.CamelCase(snakeToPascal(j.colA)), spec.CamelCase(snakeToPascal(j.colB))
		w.line("export const %sRelations = relations(%s, ({ one }) => ({", j.varName(), j.varName())
		w.line("  %s: one(%s, { fields: [%s.%s], references: [%s.id] }),", strings.TrimSuffix(fa, "Id"), tableVar(j.a), j.varName(), fa, tableVar(j.a))
		w.line("  %s: one(%s, { fields: [%s.%s], references: [%s.id] }),", strings.TrimSuffix(fb, "Id"), tableVar(j.b), j.varName(), fb, tableVar(j.b))
		w.line("}));")
	}
	return w.String()
}
