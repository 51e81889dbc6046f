package resolve

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/turbine/internal/errors"
	"github.com/matthewbaird/turbine/internal/spec"
)

func belongsTo(name, target string) spec.Field {
	return spec.Field{
		Name:     name,
		Type:     spec.FieldRelation,
		Relation: &spec.Relation{Type: spec.BelongsTo, Target: target},
	}
}

func entity(name string, fields ...spec.Field) spec.Entity {
	return spec.Entity{Name: name, Fields: fields}
}

func names(entities []spec.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Name
	}
	return out
}

func TestOrder(t *testing.T) {
	tests := []struct {
		name     string
		entities []spec.Entity
		want     []string
	}{
		{
			name:     "no relations keeps declaration order",
			entities: []spec.Entity{entity("A"), entity("B"), entity("C")},
			want:     []string{"A", "B", "C"},
		},
		{
			name: "targets first",
			entities: []spec.Entity{
				entity("Comment", belongsTo("post", "Post"), belongsTo("author", "User")),
				entity("Post", belongsTo("author", "User")),
				entity("User"),
			},
			want: []string{"User", "Post", "Comment"},
		},
		{
			name: "ties broken by declaration",
			entities: []spec.Entity{
				entity("Invoice", belongsTo("customer", "Customer"), belongsTo("account", "Account")),
				entity("Account"),
				entity("Customer"),
			},
			want: []string{"Customer", "Account", "Invoice"},
		},
		{
			name: "self reference",
			entities: []spec.Entity{
				entity("Category", belongsTo("parent", "Category")),
			},
			want: []string{"Category"},
		},
		{
			name: "non belongsTo ignored",
			entities: []spec.Entity{
				entity("User", spec.Field{Name: "posts", Type: spec.FieldRelation, Relation: &spec.Relation{Type: spec.HasMany, Target: "Post"}}),
				entity("Post", belongsTo("author", "User")),
			},
			want: []string{"User", "Post"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Order(tt.entities)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
			assertTopological(t, got)
		})
	}
}

func assertTopological(t *testing.T, ordered []spec.Entity) {
	t.Helper()
	pos := make(map[string]int)
	for i, e := range ordered {
		pos[e.Name] = i
	}
	for _, e := range ordered {
		for _, f := range e.Fields {
			if f.IsRelation() && f.Relation.Type == spec.BelongsTo && f.Relation.Target != e.Name {
				assert.Less(t, pos[f.Relation.Target], pos[e.Name], "%s must precede %s", f.Relation.Target, e.Name)
			}
		}
	}
}

func TestOrder_LargeChain(t *testing.T) {
	// a long chain exercises the explicit stack
	const n = 5000
	entities := make([]spec.Entity, n)
	for i := range entities {
		name := "E" + strconv.Itoa(i)
		if i+1 < n {
			entities[i] = entity(name, belongsTo("next", "E"+strconv.Itoa(i+1)))
		} else {
			entities[i] = entity(name)
		}
	}
	got, err := Order(entities)
	require.NoError(t, err)
	require.Len(t, got, n)
	assert.Equal(t, "E4999", got[0].Name)
	assert.Equal(t, "E0", got[n-1].Name)
}

func TestOrder_Cycle(t *testing.T) {
	entities := []spec.Entity{
		entity("A", belongsTo("b", "B")),
		entity("B", belongsTo("c", "C")),
		entity("C", belongsTo("a", "A")),
	}
	_, err := Order(entities)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCircularDependency))

	var cerr *CycleError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "A", cerr.Entity)
	assert.Equal(t, []string{"A", "B", "C"}, cerr.Cycle)
	assert.Equal(t, "circular dependency involving A", err.Error())
}

func TestCheckReferences(t *testing.T) {
	base := func() *spec.Specification {
		return &spec.Specification{Entities: []spec.Entity{
			entity("User"),
			entity("Post", belongsTo("author", "User")),
		}}
	}

	require.NoError(t, CheckReferences(base()))

	t.Run("unknown relation target", func(t *testing.T) {
		s := base()
		s.Entities[1].Fields[0].Relation.Target = "Usr"
		err := CheckReferences(s)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrReference))
		var rerr *ReferenceError
		require.True(t, errors.As(err, &rerr))
		assert.Equal(t, "entities[1].fields[0].relation.target", rerr.Path)
		assert.Equal(t, "did you mean 'User'?", rerr.Suggestion)
	})

	t.Run("ownership without user entity", func(t *testing.T) {
		s := &spec.Specification{Entities: []spec.Entity{
			{Name: "Note", Ownership: &spec.Ownership{TrackCreator: true}},
		}}
		err := CheckReferences(s)
		assert.True(t, errors.Is(err, errors.ErrReference))
	})

	t.Run("synthesized tenant entity resolves", func(t *testing.T) {
		s := base()
		s.Tenancy = &spec.TenancyConfig{Enabled: true, TenantEntity: "Workspace", ScopedEntities: []string{"*"}, GlobalEntities: []string{"User", "Audit"}}
		s.Entities = append(s.Entities, entity("Setting", belongsTo("workspace", "Workspace")))
		assert.NoError(t, CheckReferences(s))
	})

	t.Run("unknown scoped entity", func(t *testing.T) {
		s := base()
		s.Tenancy = &spec.TenancyConfig{Enabled: true, TenantEntity: "Workspace", ScopedEntities: []string{"Post", "Page"}}
		var rerr *ReferenceError
		require.True(t, errors.As(CheckReferences(s), &rerr))
		assert.Equal(t, "tenancy.scopedEntities[1]", rerr.Path)
	})

	t.Run("unknown seed entity", func(t *testing.T) {
		s := base()
		s.Seeds = map[string][]map[string]any{"Post": nil, "Comment": nil}
		var rerr *ReferenceError
		require.True(t, errors.As(CheckReferences(s), &rerr))
		assert.Equal(t, "seeds.Comment", rerr.Path)
	})

	t.Run("unknown projection field", func(t *testing.T) {
		s := base()
		s.Entities[1].Projections = map[string]spec.Projection{
			"summary": {Include: []string{"id", "titel"}},
		}
		var rerr *ReferenceError
		require.True(t, errors.As(CheckReferences(s), &rerr))
		assert.Equal(t, "entities[1].projections.summary.include[1]", rerr.Path)
		assert.Equal(t, "field", rerr.Kind)
	})
}
