package emit

import (
	"fmt"
	"strings"
	"unicode"

	"entgo.io/ent/schema/field"

	"github.com/matthewbaird/turbine/internal/projection"
	"github.com/matthewbaird/turbine/internal/spec"
	"github.com/matthewbaird/turbine/internal/weave"
)

var prismaActions = map[spec.OnDelete]string{
	spec.Cascade:  "Cascade",
	spec.SetNull:  "SetNull",
	spec.Restrict: "Restrict",
	spec.NoAction: "NoAction",
}

// prismaRow is one aligned line of a model block. Rows with only a
// comment are written unaligned.
type prismaRow struct {
	name, typ, attrs string
	comment          string
}

func emitStorage(c *Context, out *output) {
	st := c.Spec.Stack
	if st.Database == spec.MongoDB && st.ORM != spec.Prisma {
		out.fail("src/db.ts", "%s has no mongodb target; choose prisma or a SQL database", st.ORM)
		return
	}
	switch st.ORM {
	case spec.Prisma:
		emitPrisma(c, out)
	case spec.Drizzle:
		emitDrizzle(c, out)
	case spec.Kysely:
		emitKysely(c, out)
	default:
		var w cw
		w.line("// TODO: implement the %s data source", st.ORM)
		for _, e := range c.Order {
			w.line("%s", gap("%s entity for table %s", e.Name, e.TableName))
		}
		w.line("export {};")
		out.file("src/db.ts", w.String())
	}
}

func emitPrisma(c *Context, out *output) {
	out.file("prisma/schema.prisma", prismaSchema(c))

	var w cw
	w.line("import { PrismaClient } from '@prisma/client';")
	w.blank()
	w.line("export const db = new PrismaClient();")
	out.file("src/db.ts", w.String())

	if len(c.Spec.Seeds) > 0 {
		seed, err := prismaSeed(c)
		if err != nil {
			out.fail("prisma/seed.ts", "render seeds: %v", err)
			return
		}
		out.file("prisma/seed.ts", seed)
	}
}

func prismaProvider(db spec.Database) string {
	if db == spec.PostgreSQL {
		return "postgresql"
	}
	return string(db)
}

func prismaSchema(c *Context) string {
	db := c.Spec.Stack.Database
	var w cw
	w.line("generator client {")
	w.line("  provider = \"prisma-client-js\"")
	w.line("}")
	w.blank()
	w.line("datasource db {")
	w.line("  provider = %q", prismaProvider(db))
	w.line("  url      = env(\"DATABASE_URL\")")
	w.line("}")

	if db != spec.SQLite {
		for _, e := range c.Model.Entities {
			for _, f := range e.AllFields() {
				if f.Type != spec.FieldEnum || f.Link != nil {
					continue
				}
				w.blank()
				w.line("enum %s {", projection.EnumName(e.Name, f.Name))
				for _, v := range f.EnumValues {
					if id := prismaIdent(v); id != v {
						w.line("  %s @map(%q)", id, v)
					} else {
						w.line("  %s", v)
					}
				}
				w.line("}")
			}
		}
	}

	for _, e := range c.Order {
		w.blank()
		writePrismaModel(c, &w, e)
	}
	return w.String()
}

// prismaIdent turns an enum value into a Prisma identifier.
func prismaIdent(v string) string {
	var b strings.Builder
	for _, r := range v {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	s := b.String()
	if s == "" || unicode.IsDigit(rune(s[0])) {
		s = "v_" + s
	}
	return s
}

func writePrismaModel(c *Context, w *cw, e *weave.Entity) {
	db := c.Spec.Stack.Database
	var rows []prismaRow
	for _, f := range e.AllFields() {
		rows = append(rows, prismaRows(c, e, f)...)
	}

	nameW, typeW := 0, 0
	for _, r := range rows {
		if r.comment != "" {
			continue
		}
		nameW = max(nameW, len(r.name))
		typeW = max(typeW, len(r.typ))
	}

	w.line("model %s {", e.Name)
	for _, r := range rows {
		if r.comment != "" {
			w.line("  %s", r.comment)
			continue
		}
		if r.attrs == "" {
			w.line("  %-*s %s", nameW, r.name, r.typ)
			continue
		}
		w.line("  %-*s %-*s %s", nameW, r.name, typeW, r.typ, r.attrs)
	}

	var extra []string
	for _, group := range e.UniqueTogether {
		extra = append(extra, "@@unique(["+strings.Join(group, ", ")+"])")
	}
	if e.TenantField != "" {
		if f, ok := e.Field(e.TenantField); ok && f.Link != nil {
			extra = append(extra, "@@index(["+f.Link.ForeignKey+"])")
		}
	}
	if db != spec.MongoDB {
		extra = append(extra, fmt.Sprintf("@@map(%q)", e.TableName))
	}
	w.blank()
	for _, x := range extra {
		w.line("  %s", x)
	}
	w.line("}")
}

func prismaRows(c *Context, e *weave.Entity, f weave.Field) []prismaRow {
	db := c.Spec.Stack.Database
	mongo := db == spec.MongoDB
	if f.Link == nil {
		return []prismaRow{prismaScalar(c, e, f)}
	}

	l := f.Link
	switch l.Kind {
	case weave.LinkForeignKey:
		opt := ""
		if !f.Required() {
			opt = "?"
		}
		var keyAttrs []string
		if l.Unique {
			keyAttrs = append(keyAttrs, "@unique")
		}
		if mongo {
			keyAttrs = append(keyAttrs, "@db.ObjectId")
		}
		rel := fmt.Sprintf("@relation(%q, fields: [%s], references: [id], onDelete: %s)", l.Name, l.ForeignKey, prismaActions[l.OnDelete])
		return []prismaRow{
			{name: l.ForeignKey, typ: "String" + opt, attrs: strings.Join(keyAttrs, " ")},
			{name: l.Pointer, typ: l.Target + opt, attrs: rel},
		}
	case weave.LinkBack:
		typ := l.Target + "[]"
		if !l.Many {
			typ = l.Target + "?"
		}
		return []prismaRow{{name: f.Name, typ: typ, attrs: fmt.Sprintf("@relation(%q)", l.Name)}}
	case weave.LinkImplicit:
		if mongo {
			return []prismaRow{{comment: fmt.Sprintf("// TODO: %s %s[] needs explicit id lists on mongodb", f.Name, l.Target)}}
		}
		return []prismaRow{{name: f.Name, typ: l.Target + "[]", attrs: fmt.Sprintf("@relation(%q)", l.Name)}}
	case weave.LinkThrough:
		return []prismaRow{{comment: fmt.Sprintf("// %s: %s[] through %s", f.Name, l.Target, l.Through)}}
	}
	return []prismaRow{{comment: fmt.Sprintf("// TODO: %s %s[] has no belongsTo counterpart on %s", f.Name, l.Target, l.Target)}}
}

func prismaScalar(c *Context, e *weave.Entity, f weave.Field) prismaRow {
	db := c.Spec.Stack.Database
	mongo := db == spec.MongoDB
	st := projection.StorageOf(e.Name, f.Field)

	typ := st.Prisma()
	if db == spec.SQLite && (st.Kind == field.TypeEnum || st.Kind == field.TypeJSON) {
		typ = "String"
	}
	if f.Name == spec.IDField {
		if mongo {
			return prismaRow{name: f.Name, typ: "String", attrs: "@id @default(auto()) @map(\"_id\") @db.ObjectId"}
		}
		return prismaRow{name: f.Name, typ: "String", attrs: "@id @default(uuid())"}
	}
	if !f.Required() {
		typ += "?"
	}

	var attrs []string
	if f.Unique() {
		attrs = append(attrs, "@unique")
	}
	switch f.Name {
	case spec.CreatedAtField:
		attrs = append(attrs, "@default(now())")
	case spec.UpdatedAtField:
		attrs = append(attrs, "@updatedAt")
	default:
		if def, ok := f.Default(); ok {
			if d := prismaDefault(st, typ, def); d != "" {
				attrs = append(attrs, "@default("+d+")")
			}
		}
	}
	if db == spec.PostgreSQL || db == spec.MySQL {
		switch {
		case st.Long:
			attrs = append(attrs, "@db.Text")
		case st.DateOnly:
			attrs = append(attrs, "@db.Date")
		}
	}
	return prismaRow{name: f.Name, typ: typ, attrs: strings.Join(attrs, " ")}
}

func prismaDefault(st projection.Storage, typ string, def any) string {
	switch v := def.(type) {
	case string:
		switch {
		case st.Kind == field.TypeTime && v == "now":
			return "now()"
		case st.Kind == field.TypeEnum && !strings.HasPrefix(typ, "String"):
			return prismaIdent(v)
		}
		return fmt.Sprintf("%q", v)
	case bool:
		return fmt.Sprint(v)
	case float64:
		if st.Kind == field.TypeInt {
			return fmt.Sprint(int64(v))
		}
		return projection.Literal(v)
	}
	return ""
}

func prismaSeed(c *Context) (string, error) {
	var w cw
	w.line("import { PrismaClient } from '@prisma/client';")
	w.blank()
	w.line("const db = new PrismaClient();")
	w.blank()
	w.line("async function main() {")
	for _, e := range c.Order {
		rows, ok := c.Spec.Seeds[e.Name]
		if !ok {
			continue
		}
		if err := writeSeedRows(&w, spec.CamelCase(e.Name), rows); err != nil {
			return "", err
		}
	}
	w.line("}")
	w.blank()
	w.line("main()")
	w.line("  .catch((err) => {")
	w.line("    console.error(err);")
	w.line("    process.exit(1);")
	w.line("  })")
	w.line("  .finally(() => db.$disconnect());")
	return w.String(), nil
}

func writeSeedRows(w *cw, delegate string, rows []map[string]any) error {
	w.line("  await db.%s.createMany({", delegate)
	w.line("    data: [")
	for _, row := range rows {
		b, err := marshalPlain(row)
		if err != nil {
			return err
		}
		w.line("      %s,", b)
	}
	w.line("    ],")
	w.line("  });")
	return nil
}
