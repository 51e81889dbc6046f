package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldNames(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

func TestAllFields(t *testing.T) {
	tests := []struct {
		name   string
		entity Entity
		want   []string
	}{
		{
			name:   "timestamps",
			entity: Entity{Name: "Item", Timestamps: true, Fields: []Field{{Name: "title"}}},
			want:   []string{"id", "title", "createdAt", "updatedAt"},
		},
		{
			name:   "no timestamps",
			entity: Entity{Name: "Item", Fields: []Field{{Name: "title"}}},
			want:   []string{"id", "title"},
		},
		{
			name:   "soft delete",
			entity: Entity{Name: "Item", Timestamps: true, SoftDelete: true, Fields: []Field{{Name: "title"}}},
			want:   []string{"id", "title", "createdAt", "updatedAt", "deletedAt"},
		},
		{
			name: "explicit declarations win",
			entity: Entity{Name: "Item", Timestamps: true, SoftDelete: true, Fields: []Field{
				{Name: "title"},
				{Name: "id", Type: FieldInteger},
				{Name: "createdAt", Type: FieldDate},
			}},
			want: []string{"title", "id", "createdAt", "updatedAt", "deletedAt"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fieldNames(tt.entity.AllFields()))
		})
	}
}

func TestAllFields_ImplicitShapes(t *testing.T) {
	e := Entity{Name: "Item", Timestamps: true, SoftDelete: true}
	all := e.AllFields()
	require.Len(t, all, 4)

	assert.Equal(t, FieldUUID, all[0].Type)
	assert.True(t, all[0].Required())
	assert.True(t, all[0].Unique())
	assert.Equal(t, FieldDateTime, all[1].Type)
	assert.True(t, all[1].Required())
	assert.False(t, all[3].Required(), "deletedAt is nullable")
	assert.Empty(t, e.Fields, "AllFields does not modify the entity")
}

func TestSpecification_EntityLookup(t *testing.T) {
	s := &Specification{Entities: []Entity{{Name: "User"}, {Name: "Post"}}}

	e, ok := s.Entity("Post")
	require.True(t, ok)
	assert.Equal(t, "Post", e.Name)

	_, ok = s.Entity("Comment")
	assert.False(t, ok)
	assert.Equal(t, []string{"User", "Post"}, s.EntityNames())
	assert.Equal(t, "User", s.UserEntity())
}

func TestNormalize(t *testing.T) {
	yes := true
	s := &Specification{Entities: []Entity{
		{
			Name:       "Category",
			Operations: []Operation{OpList, OpCreate, OpList},
			Fields:     []Field{{Name: "slug", Type: FieldString, UniqueFlag: &yes}},
			Permissions: &EntityPermissions{
				Ownership: &Ownership{TrackCreator: true},
			},
		},
		{Name: "Person", Plural: "People"},
	}}

	n := s.Normalize()
	cat := n.Entities[0]
	assert.Equal(t, "Categories", cat.Plural)
	assert.Equal(t, "categories", cat.TableName)
	assert.Equal(t, []Operation{OpList, OpCreate}, cat.Operations)
	assert.True(t, cat.Fields[0].Unique())
	assert.Nil(t, cat.Fields[0].UniqueFlag)
	require.NotNil(t, cat.Ownership)
	assert.True(t, cat.Ownership.TrackCreator)

	assert.Equal(t, "People", n.Entities[1].Plural)
	assert.Equal(t, "people", n.Entities[1].TableName)

	// the input is untouched
	assert.Empty(t, s.Entities[0].Plural)
	assert.NotNil(t, s.Entities[0].Fields[0].UniqueFlag)
	assert.Nil(t, s.Entities[0].Fields[0].Validation)
	assert.Nil(t, s.Entities[0].Ownership)
}
