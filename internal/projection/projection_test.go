package projection

import (
	"testing"

	"entgo.io/ent/dialect"
	"entgo.io/ent/schema/field"
	"github.com/stretchr/testify/assert"

	"github.com/matthewbaird/turbine/internal/spec"
)

func sample(t spec.FieldType) spec.Field {
	f := spec.Field{Name: "value", Type: t}
	switch t {
	case spec.FieldEnum:
		f.EnumValues = []string{"draft", "published"}
	case spec.FieldRelation:
		f.Relation = &spec.Relation{Type: spec.BelongsTo, Target: "User"}
	}
	return f
}

func TestProjectionTotality(t *testing.T) {
	databases := []spec.Database{spec.PostgreSQL, spec.MySQL, spec.SQLite}
	for _, ft := range spec.FieldTypes() {
		t.Run(ft.String(), func(t *testing.T) {
			f := sample(ft)
			assert.NotEmpty(t, TypeScript(f))
			assert.NotEmpty(t, Zod(f))
			assert.NotNil(t, OpenAPI(f))

			st := StorageOf("Post", f)
			assert.True(t, st.Kind.Valid())
			assert.NotEmpty(t, st.Prisma())
			for _, db := range databases {
				assert.NotEmpty(t, st.SQL(Dialect(db)), db)
				call, _ := st.Drizzle(db, "value")
				assert.NotEmpty(t, call, db)
			}
		})
	}
}

func TestTypeScript(t *testing.T) {
	tests := []struct {
		field spec.Field
		want  string
	}{
		{spec.Field{Type: spec.FieldString}, "string"},
		{spec.Field{Type: spec.FieldInteger}, "number"},
		{spec.Field{Type: spec.FieldDateTime}, "Date"},
		{spec.Field{Type: spec.FieldJSON}, "unknown"},
		{spec.Field{Type: spec.FieldEnum, EnumValues: []string{"a", "b"}}, "'a' | 'b'"},
		{spec.Field{Type: spec.FieldRelation, Relation: &spec.Relation{Type: spec.BelongsTo, Target: "User"}}, "User"},
		{spec.Field{Type: spec.FieldRelation, Relation: &spec.Relation{Type: spec.HasMany, Target: "Post"}}, "Post[]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TypeScript(tt.field))
	}
}

func ptr[T any](v T) *T { return &v }

func TestZod(t *testing.T) {
	tests := []struct {
		name  string
		field spec.Field
		want  string
	}{
		{
			name:  "required string",
			field: spec.Field{Type: spec.FieldString, Validation: &spec.Validation{Required: true}},
			want:  "z.string()",
		},
		{
			name:  "optional without validation block",
			field: spec.Field{Type: spec.FieldString},
			want:  "z.string().optional()",
		},
		{
			name: "length bounds and pattern",
			field: spec.Field{Type: spec.FieldString, Validation: &spec.Validation{
				Required: true, MinLength: ptr(2), MaxLength: ptr(40), Pattern: "^[a-z]+/[0-9]+$",
			}},
			want: `z.string().min(2).max(40).regex(/^[a-z]+\/[0-9]+$/)`,
		},
		{
			name:  "pattern with escaped slash",
			field: spec.Field{Type: spec.FieldString, Validation: &spec.Validation{Required: true, Pattern: `^a\/b$`}},
			want:  `z.string().regex(/^a\/b$/)`,
		},
		{
			name:  "pattern with escaped backslash before slash",
			field: spec.Field{Type: spec.FieldString, Validation: &spec.Validation{Required: true, Pattern: `^a\\/b$`}},
			want:  `z.string().regex(/^a\\\/b$/)`,
		},
		{
			name: "numeric bounds",
			field: spec.Field{Type: spec.FieldNumber, Validation: &spec.Validation{
				Required: true, Min: ptr(0.5), Max: ptr(100.0),
			}},
			want: "z.number().min(0.5).max(100)",
		},
		{
			name: "default then optional",
			field: spec.Field{Type: spec.FieldInteger, Validation: &spec.Validation{
				Min: ptr(0.0), Default: float64(3),
			}},
			want: "z.number().int().min(0).default(3).optional()",
		},
		{
			name: "enum default",
			field: spec.Field{Type: spec.FieldEnum, EnumValues: []string{"draft", "live"}, Validation: &spec.Validation{
				Required: true, Default: "draft",
			}},
			want: "z.enum(['draft', 'live']).default('draft')",
		},
		{
			name:  "datetime now",
			field: spec.Field{Type: spec.FieldDateTime, Validation: &spec.Validation{Required: true, Default: "now"}},
			want:  "z.coerce.date().default(() => new Date())",
		},
		{
			name:  "email",
			field: spec.Field{Type: spec.FieldEmail, Validation: &spec.Validation{Required: true, Unique: true}},
			want:  "z.string().email()",
		},
		{
			name:  "json is always optional",
			field: spec.Field{Type: spec.FieldJSON, Validation: &spec.Validation{Required: true}},
			want:  zodJSON,
		},
		{
			name:  "relation",
			field: spec.Field{Type: spec.FieldRelation, Relation: &spec.Relation{Type: spec.BelongsTo, Target: "User"}},
			want:  "z.string().uuid().optional()",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Zod(tt.field))
		})
	}
}

func TestStorage(t *testing.T) {
	status := spec.Field{Name: "status", Type: spec.FieldEnum, EnumValues: []string{"open", "won't fix"}}
	st := StorageOf("Ticket", status)
	assert.Equal(t, field.TypeEnum, st.Kind)
	assert.Equal(t, "TicketStatus", st.Prisma())
	assert.Equal(t, `"ticket_status"`, st.SQL(dialect.Postgres))
	assert.Equal(t, `enum('open', 'won''t fix')`, st.SQL(dialect.MySQL))
	assert.Equal(t, `CREATE TYPE "ticket_status" AS ENUM ('open', 'won''t fix')`, st.EnumDDL(dialect.Postgres))
	assert.Empty(t, st.EnumDDL(dialect.SQLite))

	call, imp := st.Drizzle(spec.PostgreSQL, "status")
	assert.Equal(t, "ticketStatusEnum('status')", call)
	assert.Empty(t, imp)

	rel := StorageOf("Post", sample(spec.FieldRelation))
	assert.Equal(t, "String", rel.Prisma())
	assert.Equal(t, "User", rel.Target)
	assert.False(t, rel.Collection)

	assert.Equal(t, "Float", StorageOf("P", spec.Field{Type: spec.FieldNumber}).Prisma())
	assert.Equal(t, "Int", StorageOf("P", spec.Field{Type: spec.FieldInteger}).Prisma())
	assert.Equal(t, "DateTime", StorageOf("P", spec.Field{Type: spec.FieldDate}).Prisma())
	assert.Equal(t, "Json", StorageOf("P", spec.Field{Type: spec.FieldJSON}).Prisma())
	assert.Equal(t, "text", StorageOf("P", spec.Field{Type: spec.FieldText}).SQL(dialect.Postgres))
	assert.Equal(t, "varchar(255)", StorageOf("P", spec.Field{Type: spec.FieldString}).SQL(dialect.MySQL))
}

func TestOpenAPI(t *testing.T) {
	f := spec.Field{Type: spec.FieldString, Description: "Title", Validation: &spec.Validation{MaxLength: ptr(80)}}
	assert.Equal(t, map[string]any{"type": "string", "maxLength": 80, "description": "Title"}, OpenAPI(f))
	assert.Nil(t, OpenAPI(spec.Field{Type: spec.FieldType(99)}))
}
