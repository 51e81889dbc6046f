package projection

import (
	"strings"

	"entgo.io/ent/dialect"
	"entgo.io/ent/schema/field"

	"github.com/matthewbaird/turbine/internal/spec"
)

// Storage is the storage projection of a field: an ent field kind plus the
// details each schema dialect needs to render it.
type Storage struct {
	Kind       field.Type
	DateOnly   bool
	Long       bool
	Enum       string
	EnumValues []string
	Target     string
	Collection bool
}

// StorageOf projects a field of the named entity. Enums get a named type,
// relations collapse to the identifier type of their foreign key.
func StorageOf(entity string, f spec.Field) Storage {
	switch f.Type {
	case spec.FieldString, spec.FieldEmail, spec.FieldURL:
		return Storage{Kind: field.TypeString}
	case spec.FieldText:
		return Storage{Kind: field.TypeString, Long: true}
	case spec.FieldNumber:
		return Storage{Kind: field.TypeFloat64}
	case spec.FieldInteger:
		return Storage{Kind: field.TypeInt}
	case spec.FieldBoolean:
		return Storage{Kind: field.TypeBool}
	case spec.FieldDate:
		return Storage{Kind: field.TypeTime, DateOnly: true}
	case spec.FieldDateTime:
		return Storage{Kind: field.TypeTime}
	case spec.FieldUUID:
		return Storage{Kind: field.TypeUUID}
	case spec.FieldJSON:
		return Storage{Kind: field.TypeJSON}
	case spec.FieldEnum:
		return Storage{Kind: field.TypeEnum, Enum: EnumName(entity, f.Name), EnumValues: f.EnumValues}
	case spec.FieldRelation:
		s := Storage{Kind: field.TypeUUID}
		if f.Relation != nil {
			s.Target = f.Relation.Target
			s.Collection = isCollection(f.Relation.Type)
		}
		return s
	}
	return Storage{Kind: field.TypeInvalid}
}

// EnumName is the generated enumeration type for an enum field.
func EnumName(entity, fieldName string) string {
	return entity + spec.PascalCase(fieldName)
}

// Prisma returns the Prisma scalar or enum type.
func (s Storage) Prisma() string {
	switch s.Kind {
	case field.TypeString, field.TypeUUID:
		return "String"
	case field.TypeFloat64:
		return "Float"
	case field.TypeInt:
		return "Int"
	case field.TypeBool:
		return "Boolean"
	case field.TypeTime:
		return "DateTime"
	case field.TypeJSON:
		return "Json"
	case field.TypeEnum:
		return s.Enum
	}
	return ""
}

// Dialect maps a database choice onto an ent SQL dialect name.
func Dialect(db spec.Database) string {
	switch db {
	case spec.MySQL:
		return dialect.MySQL
	case spec.SQLite:
		return dialect.SQLite
	}
	return dialect.Postgres
}

// SQL returns the column type for an ent dialect. Postgres enums refer to
// a type created by EnumDDL.
func (s Storage) SQL(d string) string {
	switch s.Kind {
	case field.TypeString:
		if s.Long || d == dialect.SQLite {
			return "text"
		}
		return "varchar(255)"
	case field.TypeUUID:
		switch d {
		case dialect.Postgres:
			return "uuid"
		case dialect.MySQL:
			return "char(36)"
		}
		return "text"
	case field.TypeFloat64:
		switch d {
		case dialect.Postgres:
			return "double precision"
		case dialect.MySQL:
			return "double"
		}
		return "real"
	case field.TypeInt:
		if d == dialect.MySQL {
			return "int"
		}
		return "integer"
	case field.TypeBool:
		return "boolean"
	case field.TypeTime:
		switch {
		case d == dialect.SQLite:
			return "text"
		case s.DateOnly:
			return "date"
		case d == dialect.MySQL:
			return "datetime"
		}
		return "timestamptz"
	case field.TypeJSON:
		switch d {
		case dialect.Postgres:
			return "jsonb"
		case dialect.MySQL:
			return "json"
		}
		return "text"
	case field.TypeEnum:
		switch d {
		case dialect.Postgres:
			return `"` + spec.SnakeCase(s.Enum) + `"`
		case dialect.MySQL:
			return "enum(" + sqlList(s.EnumValues) + ")"
		}
		return "text"
	}
	return ""
}

// EnumDDL returns the statement creating the enum type, or "" when the
// dialect has no named enum types.
func (s Storage) EnumDDL(d string) string {
	if s.Kind != field.TypeEnum || d != dialect.Postgres {
		return ""
	}
	return `CREATE TYPE "` + spec.SnakeCase(s.Enum) + `" AS ENUM (` + sqlList(s.EnumValues) + `)`
}

func sqlList(vals []string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return strings.Join(parts, ", ")
}

// Drizzle returns the drizzle column builder call for the column and the
// drizzle core import it needs. Postgres enums call the generated
// pgEnum constant and need no import.
func (s Storage) Drizzle(db spec.Database, column string) (call, imp string) {
	col := quote(column)
	switch db {
	case spec.MySQL:
		return s.drizzleMySQL(col)
	case spec.SQLite:
		return s.drizzleSQLite(col)
	}
	return s.drizzlePG(col)
}

func (s Storage) drizzlePG(col string) (string, string) {
	switch s.Kind {
	case field.TypeString:
		if s.Long {
			return "text(" + col + ")", "text"
		}
		return "varchar(" + col + ", { length: 255 })", "varchar"
	case field.TypeUUID:
		return "uuid(" + col + ")", "uuid"
	case field.TypeFloat64:
		return "doublePrecision(" + col + ")", "doublePrecision"
	case field.TypeInt:
		return "integer(" + col + ")", "integer"
	case field.TypeBool:
		return "boolean(" + col + ")", "boolean"
	case field.TypeTime:
		if s.DateOnly {
			return "date(" + col + ", { mode: 'date' })", "date"
		}
		return "timestamp(" + col + ", { withTimezone: true })", "timestamp"
	case field.TypeJSON:
		return "jsonb(" + col + ")", "jsonb"
	case field.TypeEnum:
		return spec.CamelCase(s.Enum) + "Enum(" + col + ")", ""
	}
	return "", ""
}

func (s Storage) drizzleMySQL(col string) (string, string) {
	switch s.Kind {
	case field.TypeString:
		if s.Long {
			return "text(" + col + ")", "text"
		}
		return "varchar(" + col + ", { length: 255 })", "varchar"
	case field.TypeUUID:
		return "varchar(" + col + ", { length: 36 })", "varchar"
	case field.TypeFloat64:
		return "double(" + col + ")", "double"
	case field.TypeInt:
		return "int(" + col + ")", "int"
	case field.TypeBool:
		return "boolean(" + col + ")", "boolean"
	case field.TypeTime:
		if s.DateOnly {
			return "date(" + col + ", { mode: 'date' })", "date"
		}
		return "datetime(" + col + ")", "datetime"
	case field.TypeJSON:
		return "json(" + col + ")", "json"
	case field.TypeEnum:
		return "mysqlEnum(" + col + ", [" + tsList(s.EnumValues) + "])", "mysqlEnum"
	}
	return "", ""
}

func (s Storage) drizzleSQLite(col string) (string, string) {
	switch s.Kind {
	case field.TypeString, field.TypeUUID:
		return "text(" + col + ")", "text"
	case field.TypeFloat64:
		return "real(" + col + ")", "real"
	case field.TypeInt:
		return "integer(" + col + ")", "integer"
	case field.TypeBool:
		return "integer(" + col + ", { mode: 'boolean' })", "integer"
	case field.TypeTime:
		return "integer(" + col + ", { mode: 'timestamp' })", "integer"
	case field.TypeJSON:
		return "text(" + col + ", { mode: 'json' })", "text"
	case field.TypeEnum:
		return "text(" + col + ", { enum: [" + tsList(s.EnumValues) + "] })", "text"
	}
	return "", ""
}

func tsList(vals []string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = quote(v)
	}
	return strings.Join(parts, ", ")
}
