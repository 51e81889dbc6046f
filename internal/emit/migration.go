package emit

import (
	"strconv"
	"strings"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"entgo.io/ent/schema/field"

	"github.com/matthewbaird/turbine/internal/projection"
	"github.com/matthewbaird/turbine/internal/spec"
	"github.com/matthewbaird/turbine/internal/weave"
)

var sqlActions = map[spec.OnDelete]string{
	spec.Cascade:  "CASCADE",
	spec.SetNull:  "SET NULL",
	spec.Restrict: "RESTRICT",
	spec.NoAction: "NO ACTION",
}

type sqlColumn struct {
	name  string
	typ   string
	attrs []string
}

type sqlForeignKey struct {
	column, table, action string
}

type sqlTable struct {
	name    string
	columns []sqlColumn
	fks     []sqlForeignKey
	primary []string // composite primary key
	uniques [][]string
}

// create renders the CREATE TABLE statement with the ent builder so that
// identifiers are quoted for the dialect.
func (t sqlTable) create(d string) string {
	return sql.Dialect(d).String(func(b *sql.Builder) {
		b.WriteString("CREATE TABLE ").Ident(t.name).WriteString(" (\n")
		for i, col := range t.columns {
			if i > 0 {
				b.WriteString(",\n")
			}
			b.WriteString("  ").Join(sql.Dialect(d).Column(col.name).Type(col.typ))
			for _, a := range col.attrs {
				b.Pad().WriteString(a)
			}
		}
		if len(t.primary) > 0 {
			b.WriteString(",\n  PRIMARY KEY ").Wrap(func(b *sql.Builder) { b.IdentComma(t.primary...) })
		}
		for _, u := range t.uniques {
			b.WriteString(",\n  UNIQUE ").Wrap(func(b *sql.Builder) { b.IdentComma(u...) })
		}
		for _, fk := range t.fks {
			b.WriteString(",\n  ")
			writeReference(b, fk)
		}
		b.WriteString("\n);")
	})
}

func writeReference(b *sql.Builder, fk sqlForeignKey) {
	b.WriteString("FOREIGN KEY ").Wrap(func(b *sql.Builder) { b.Ident(fk.column) })
	b.WriteString(" REFERENCES ").Ident(fk.table).Pad().Wrap(func(b *sql.Builder) { b.Ident(spec.IDField) })
	b.WriteString(" ON DELETE " + fk.action)
}

// alterReference renders a foreign key added after both tables exist.
func alterReference(d, table string, fk sqlForeignKey) string {
	return sql.Dialect(d).String(func(b *sql.Builder) {
		b.WriteString("ALTER TABLE ").Ident(table).WriteString(" ADD ")
		writeReference(b, fk)
		b.WriteString(";")
	})
}

func createIndex(d, name, table string, cols ...string) string {
	return sql.Dialect(d).String(func(b *sql.Builder) {
		b.WriteString("CREATE INDEX ").Ident(name).WriteString(" ON ").Ident(table).Pad().
			Wrap(func(b *sql.Builder) { b.IdentComma(cols...) })
		b.WriteString(";")
	})
}

// sqlLiteral renders a document default as a SQL literal, or "" when the
// column type takes no literal default.
func sqlLiteral(d string, st projection.Storage, def any) string {
	switch v := def.(type) {
	case string:
		if st.Kind == field.TypeTime && v == "now" {
			return "CURRENT_TIMESTAMP"
		}
		if st.Kind == field.TypeJSON || (d == dialect.MySQL && st.Long) {
			return ""
		}
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		if st.Kind == field.TypeInt {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func idDefault(d string) string {
	switch d {
	case dialect.Postgres:
		return "DEFAULT gen_random_uuid()"
	case dialect.MySQL:
		return "DEFAULT (UUID())"
	}
	return ""
}

// entityTable lays out the table of an entity with every foreign key
// inline; migrationSQL moves forward references out.
func entityTable(d string, e *weave.Entity, c *Context) sqlTable {
	t := sqlTable{name: e.TableName}
	for _, f := range e.AllFields() {
		if f.Link != nil && f.Link.Kind != weave.LinkForeignKey {
			continue
		}
		name := spec.SnakeCase(columnOf(f))
		st := projection.StorageOf(e.Name, f.Field)
		col := sqlColumn{name: name, typ: st.SQL(d)}

		if f.Name == spec.IDField {
			col.attrs = append(col.attrs, "PRIMARY KEY")
			if def := idDefault(d); def != "" {
				col.attrs = append(col.attrs, def)
			}
			t.columns = append(t.columns, col)
			continue
		}
		if f.Required() {
			col.attrs = append(col.attrs, "NOT NULL")
		}
		if f.Unique() || (isForeignKey(f) && f.Link.Unique) {
			col.attrs = append(col.attrs, "UNIQUE")
		}
		switch {
		case f.Name == spec.CreatedAtField || f.Name == spec.UpdatedAtField:
			col.attrs = append(col.attrs, "DEFAULT CURRENT_TIMESTAMP")
		default:
			if def, ok := f.Default(); ok {
				if lit := sqlLiteral(d, st, def); lit != "" {
					col.attrs = append(col.attrs, "DEFAULT "+lit)
				}
			}
		}
		t.columns = append(t.columns, col)

		if isForeignKey(f) {
			target, _ := c.Model.Entity(f.Link.Target)
			t.fks = append(t.fks, sqlForeignKey{column: name, table: target.TableName, action: sqlActions[f.Link.OnDelete]})
		}
	}
	for _, group := range e.UniqueTogether {
		cols := make([]string, len(group))
		for i, g := range group {
			cols[i] = spec.SnakeCase(g)
		}
		t.uniques = append(t.uniques, cols)
	}
	return t
}

// migrationSQL renders the initial schema in dependency order. Foreign
// keys to tables created later are added by ALTER TABLE at the end,
// except on SQLite, which checks references lazily and cannot add
// constraints to existing tables.
func migrationSQL(c *Context) string {
	d := projection.Dialect(c.Spec.Stack.Database)
	var w cw
	w.line("-- Initial schema for %s", c.Spec.Project.Name)

	if d == dialect.Postgres {
		first := true
		for _, e := range c.Model.Entities {
			for _, f := range e.AllFields() {
				if f.Link != nil {
					continue
				}
				if ddl := projection.StorageOf(e.Name, f.Field).EnumDDL(d); ddl != "" {
					if first {
						w.blank()
						first = false
					}
					w.line("%s;", ddl)
				}
			}
		}
	}

	created := map[string]bool{}
	type deferred struct {
		table string
		fk    sqlForeignKey
	}
	var later []deferred
	var indexes []string
	for _, e := range c.Order {
		t := entityTable(d, e, c)
		created[t.name] = true
		if d != dialect.SQLite {
			inline := t.fks[:0:0]
			for _, fk := range t.fks {
				if created[fk.table] {
					inline = append(inline, fk)
				} else {
					later = append(later, deferred{t.name, fk})
				}
			}
			t.fks = inline
		}
		w.blank()
		w.line("%s", t.create(d))

		if e.TenantField != "" {
			if f, ok := e.Field(e.TenantField); ok && f.Link != nil {
				col := spec.SnakeCase(f.Link.ForeignKey)
				indexes = append(indexes, createIndex(d, t.name+"_"+col+"_idx", t.name, col))
			}
		}
	}

	for _, j := range c.joinTables() {
		key := projection.Storage{Kind: field.TypeUUID}.SQL(d)
		t := sqlTable{
			name: j.table,
			columns: []sqlColumn{
				{name: j.colA, typ: key, attrs: []string{"NOT NULL"}},
				{name: j.colB, typ: key, attrs: []string{"NOT NULL"}},
			},
			primary: []string{j.colA, j.colB},
			fks: []sqlForeignKey{
				{column: j.colA, table: j.a.TableName, action: "CASCADE"},
				{column: j.colB, table: j.b.TableName, action: "CASCADE"},
			},
		}
		w.blank()
		w.line("%s", t.create(d))
	}

	if len(later) > 0 {
		w.blank()
		for _, l := range later {
			w.line("%s", alterReference(d, l.table, l.fk))
		}
	}
	if len(indexes) > 0 {
		w.blank()
		for _, ix := range indexes {
			w.line("%s", ix)
		}
	}
	return w.String()
}

func emitKysely(c *Context, out *output) {
	out.file("migrations/0001_init.sql", migrationSQL(c))
	out.file("src/db.ts", kyselyDatabase(c))
}

func kyselyColumnType(db spec.Database, e *weave.Entity, f weave.Field) string {
	if isForeignKey(f) {
		return "string"
	}
	st := projection.StorageOf(e.Name, f.Field)
	if db == spec.SQLite {
		switch st.Kind {
		case field.TypeBool:
			return "number"
		case field.TypeTime:
			return "string"
		}
	}
	return projection.TypeScript(f.Field)
}

func kyselyDatabase(c *Context) string {
	db := c.Spec.Stack.Database
	var w cw
	w.line("import { Kysely, %s, type Generated } from 'kysely';", kyselyDialect(db))
	switch db {
	case spec.MySQL:
		w.line("import { createPool } from 'mysql2';")
	case spec.SQLite:
		w.line("import SQLite from 'better-sqlite3';")
	default:
		w.line("import pg from 'pg';")
	}

	for _, e := range c.Order {
		w.blank()
		w.line("export interface %sTable {", e.Name)
		for _, f := range e.AllFields() {
			if f.Link != nil && f.Link.Kind != weave.LinkForeignKey {
				continue
			}
			typ := kyselyColumnType(db, e, f)
			if !f.Required() && f.Name != spec.IDField {
				typ += " | null"
			}
			_, hasDefault := f.Default()
			generated := f.Name == spec.CreatedAtField || f.Name == spec.UpdatedAtField || hasDefault ||
				(f.Name == spec.IDField && db != spec.SQLite)
			if generated {
				typ = "Generated<" + typ + ">"
			}
			w.line("  %s: %s;", spec.SnakeCase(columnOf(f)), typ)
		}
		w.line("}")
	}
	for _, j := range c.joinTables() {
		w.blank()
		w.line("export interface %sTable {", spec.PascalCase(j.varName()))
		w.line("  %s: string;", j.colA)
		w.line("  %s: string;", j.colB)
		w.line("}")
	}

	w.blank()
	w.line("export interface Database {")
	for _, e := range c.Order {
		w.line("  %s: %sTable;", e.TableName, e.Name)
	}
	for _, j := range c.joinTables() {
		w.line("  %s: %sTable;", j.table, spec.PascalCase(j.varName()))
	}
	w.line("}")
	w.blank()

	w.line("export const db = new Kysely<Database>({")
	switch db {
	case spec.MySQL:
		w.line("  dialect: new MysqlDialect({ pool: createPool(process.env.DATABASE_URL ?? '') }),")
	case spec.SQLite:
		w.line("  dialect: new SqliteDialect({")
		w.line("    database: new SQLite((process.env.DATABASE_URL ?? 'file:./dev.db').replace(/^file:/, '')),")
		w.line("  }),")
	default:
		w.line("  dialect: new PostgresDialect({ pool: new pg.Pool({ connectionString: process.env.DATABASE_URL }) }),")
	}
	w.line("});")
	return w.String()
}

func kyselyDialect(db spec.Database) string {
	switch db {
	case spec.MySQL:
		return "MysqlDialect"
	case spec.SQLite:
		return "SqliteDialect"
	}
	return "PostgresDialect"
}
