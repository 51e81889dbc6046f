package weave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/turbine/internal/spec"
)

func rel(name string, kind spec.RelationType, target string) spec.Field {
	return spec.Field{Name: name, Type: spec.FieldRelation, Relation: &spec.Relation{Type: kind, Target: target}}
}

func str(name string) spec.Field {
	return spec.Field{Name: name, Type: spec.FieldString}
}

func specOf(entities ...spec.Entity) *spec.Specification {
	return (&spec.Specification{Entities: entities}).Normalize()
}

func fieldNames(e *Entity) []string {
	out := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		out[i] = f.Name
	}
	return out
}

func mustEntity(t *testing.T, m *Model, name string) *Entity {
	t.Helper()
	e, ok := m.Entity(name)
	require.True(t, ok, "entity %s", name)
	return e
}

func mustField(t *testing.T, e *Entity, name string) *Field {
	t.Helper()
	f, ok := e.Field(name)
	require.True(t, ok, "field %s.%s", e.Name, name)
	return f
}

func TestWeave_BelongsToBackReference(t *testing.T) {
	m := Weave(specOf(
		spec.Entity{Name: "User", Fields: []spec.Field{str("email")}},
		spec.Entity{Name: "Post", Fields: []spec.Field{str("title"), rel("author", spec.BelongsTo, "User")}},
	))

	author := mustField(t, mustEntity(t, m, "Post"), "author")
	require.NotNil(t, author.Link)
	assert.Equal(t, LinkForeignKey, author.Link.Kind)
	assert.Equal(t, "PostAuthor", author.Link.Name)
	assert.Equal(t, "authorId", author.Link.ForeignKey)
	assert.Equal(t, "author", author.Link.Pointer)
	assert.Equal(t, spec.Cascade, author.Link.OnDelete)

	user := mustEntity(t, m, "User")
	assert.Equal(t, []string{"email", "posts"}, fieldNames(user))
	posts := mustField(t, user, "posts")
	assert.True(t, posts.Derived)
	assert.Equal(t, OriginBackRef, posts.Origin)
	assert.Equal(t, spec.HasMany, posts.Relation.Type)
	assert.Equal(t, &Link{Kind: LinkBack, Name: "PostAuthor", Target: "Post", Many: true}, posts.Link)
}

func TestWeave_MultipleRelationsToSameTarget(t *testing.T) {
	m := Weave(specOf(
		spec.Entity{Name: "User"},
		spec.Entity{Name: "Post", Fields: []spec.Field{
			rel("author", spec.BelongsTo, "User"),
			rel("editorId", spec.BelongsTo, "User"),
		}},
	))
	user := mustEntity(t, m, "User")
	assert.Equal(t, []string{"posts", "postsEditor"}, fieldNames(user))
	assert.Equal(t, "PostAuthor", mustField(t, user, "posts").Link.Name)
	assert.Equal(t, "PostEditor", mustField(t, user, "postsEditor").Link.Name)

	editor := mustField(t, mustEntity(t, m, "Post"), "editorId")
	assert.Equal(t, "editorId", editor.Link.ForeignKey)
	assert.Equal(t, "editor", editor.Link.Pointer)
}

func TestWeave_DeclaredHasManyPairs(t *testing.T) {
	m := Weave(specOf(
		spec.Entity{Name: "User", Fields: []spec.Field{rel("articles", spec.HasMany, "Post")}},
		spec.Entity{Name: "Post", Fields: []spec.Field{rel("author", spec.BelongsTo, "User")}},
		spec.Entity{Name: "Tag", Fields: []spec.Field{rel("posts", spec.HasMany, "Post")}},
	))
	user := mustEntity(t, m, "User")
	assert.Equal(t, []string{"articles"}, fieldNames(user))
	assert.Equal(t, &Link{Kind: LinkBack, Name: "PostAuthor", Target: "Post", Many: true}, mustField(t, user, "articles").Link)

	tagPosts := mustField(t, mustEntity(t, m, "Tag"), "posts")
	assert.Equal(t, LinkUnpaired, tagPosts.Link.Kind)
}

func TestWeave_HasOne(t *testing.T) {
	m := Weave(specOf(
		spec.Entity{Name: "User", Fields: []spec.Field{rel("profile", spec.HasOne, "Profile")}},
		spec.Entity{Name: "Profile", Fields: []spec.Field{str("bio")}},
	))
	profile := mustField(t, mustEntity(t, m, "User"), "profile")
	assert.True(t, profile.Link.Unique)
	assert.Equal(t, "profileId", profile.Link.ForeignKey)

	back := mustField(t, mustEntity(t, m, "Profile"), "user")
	assert.Equal(t, spec.HasOne, back.Relation.Type)
	assert.False(t, back.Link.Many)
	assert.Equal(t, "UserProfile", back.Link.Name)
}

func TestWeave_ManyToMany(t *testing.T) {
	m := Weave(specOf(
		spec.Entity{Name: "Post", Fields: []spec.Field{rel("tags", spec.ManyToMany, "Tag")}},
		spec.Entity{Name: "Tag"},
		spec.Entity{Name: "Course", Fields: []spec.Field{rel("students", spec.ManyToMany, "Student")}},
		spec.Entity{Name: "Student", Fields: []spec.Field{rel("courses", spec.ManyToMany, "Course")}},
	))
	posts := mustField(t, mustEntity(t, m, "Tag"), "posts")
	assert.Equal(t, &Link{Kind: LinkImplicit, Name: "PostTags", Target: "Post", Many: true}, posts.Link)

	student := mustEntity(t, m, "Student")
	assert.Equal(t, []string{"courses"}, fieldNames(student))
	assert.Equal(t, "CourseStudents", mustField(t, student, "courses").Link.Name)
}

func TestWeave_Ownership(t *testing.T) {
	own := &spec.Ownership{TrackCreator: true, TrackModifier: true, AutoFilter: true, AutoFilterField: CreatedByID}
	m := Weave(specOf(
		spec.Entity{Name: "User", Ownership: own},
		spec.Entity{Name: "Note", Ownership: own, Fields: []spec.Field{str("body")}},
		spec.Entity{Name: "Draft", Ownership: &spec.Ownership{TrackCreator: true}, Fields: []spec.Field{
			rel(CreatedByID, spec.BelongsTo, "User"),
		}},
	))

	note := mustEntity(t, m, "Note")
	assert.True(t, note.Owned)
	assert.Equal(t, []string{"body", "createdById", "updatedById"}, fieldNames(note))
	created := mustField(t, note, CreatedByID)
	assert.True(t, created.Required())
	assert.Equal(t, "createdBy", created.Link.Pointer)
	assert.Equal(t, "NoteCreatedBy", created.Link.Name)
	assert.False(t, mustField(t, note, UpdatedByID).Required())

	user := mustEntity(t, m, "User")
	assert.False(t, user.Owned, "the user entity never tracks itself")
	assert.Equal(t, []string{"notesCreated", "notesUpdated", "drafts"}, fieldNames(user))

	draft := mustEntity(t, m, "Draft")
	assert.Equal(t, []string{"createdById"}, fieldNames(draft), "declared field is not duplicated")
	assert.False(t, draft.Fields[0].Derived)
}

func tenancyConfig() *spec.TenancyConfig {
	return &spec.TenancyConfig{
		Enabled:        true,
		Model:          spec.TenancyWorkspace,
		TenantEntity:   "Workspace",
		TenantField:    "workspaceId",
		AutoFilter:     true,
		ScopedEntities: []string{"*"},
		GlobalEntities: []string{"User"},
	}
}

func TestWeave_TenancyGlobalExclusion(t *testing.T) {
	s := specOf(
		spec.Entity{Name: "User", Fields: []spec.Field{str("email")}},
		spec.Entity{Name: "Project", Fields: []spec.Field{str("name")}},
		spec.Entity{Name: "Task", Fields: []spec.Field{str("title")}},
	)
	s.Tenancy = tenancyConfig()
	m := Weave(s)

	user := mustEntity(t, m, "User")
	_, scoped := user.Field("workspaceId")
	assert.False(t, scoped)
	assert.Empty(t, user.TenantField)

	for _, name := range []string{"Project", "Task"} {
		e := mustEntity(t, m, name)
		f := mustField(t, e, "workspaceId")
		assert.Equal(t, OriginTenant, f.Origin)
		assert.True(t, f.Required())
		assert.Equal(t, "workspace", f.Link.Pointer)
		assert.Equal(t, "workspaceId", e.TenantField)
	}

	ws := mustEntity(t, m, "Workspace")
	assert.True(t, ws.Derived)
	assert.Equal(t, []string{"name", "slug", "projects", "tasks"}, fieldNames(ws))
	assert.True(t, mustField(t, ws, "slug").Unique())
	assert.Len(t, m.Declared(), 3)
}

func TestWeave_GroupScaffolding(t *testing.T) {
	s := specOf(spec.Entity{Name: "User"})
	s.Identity = &spec.IdentityConfig{UserEntity: "User", GroupEntity: "Team", GroupHierarchy: true}
	m := Weave(s)

	team := mustEntity(t, m, "Team")
	assert.Equal(t, []string{"name", "description", "parentId", "children", "members"}, fieldNames(team))
	parent := mustField(t, team, "parentId")
	assert.False(t, parent.Required())
	assert.Equal(t, "parent", parent.Link.Pointer)
	assert.Equal(t, parent.Link.Name, mustField(t, team, "children").Link.Name)

	membership := mustEntity(t, m, "TeamMembership")
	assert.Equal(t, []string{"userId", "groupId", "role"}, fieldNames(membership))
	assert.Equal(t, [][]string{{"userId", "groupId"}}, membership.UniqueTogether)
	def, ok := mustField(t, membership, "role").Default()
	require.True(t, ok)
	assert.Equal(t, "member", def)

	user := mustEntity(t, m, "User")
	assert.Equal(t, []string{"teamMemberships"}, fieldNames(user))
}

func richSpec() *spec.Specification {
	own := &spec.Ownership{TrackCreator: true, TrackModifier: true}
	s := specOf(
		spec.Entity{Name: "User", Fields: []spec.Field{str("email"), rel("profile", spec.HasOne, "Profile")}},
		spec.Entity{Name: "Profile", Fields: []spec.Field{str("bio")}},
		spec.Entity{Name: "Post", Ownership: own, Timestamps: true, SoftDelete: true, Fields: []spec.Field{
			str("title"),
			rel("author", spec.BelongsTo, "User"),
			rel("reviewer", spec.BelongsTo, "User"),
			rel("tags", spec.ManyToMany, "Tag"),
		}},
		spec.Entity{Name: "Tag", Fields: []spec.Field{str("label")}},
		spec.Entity{Name: "Category", Fields: []spec.Field{rel("parent", spec.BelongsTo, "Category")}},
	)
	s.Tenancy = tenancyConfig()
	s.Identity = &spec.IdentityConfig{UserEntity: "User", GroupEntity: "Team", GroupHierarchy: true}
	return s
}

func TestWeave_Idempotent(t *testing.T) {
	first := Weave(richSpec())
	second := Weave(first.Feedback())

	require.Equal(t, len(first.Entities), len(second.Entities))
	for i, e1 := range first.Entities {
		e2 := second.Entities[i]
		assert.Equal(t, e1.Name, e2.Name)
		assert.False(t, e2.Derived, "entity %s synthesized twice", e2.Name)
		assert.Equal(t, fieldNames(e1), fieldNames(e2), "entity %s", e1.Name)
		assert.Equal(t, e1.Owned, e2.Owned)
		assert.Equal(t, e1.TenantField, e2.TenantField)
		assert.Equal(t, e1.UniqueTogether, e2.UniqueTogether)
		for j, f1 := range e1.Fields {
			f2 := e2.Fields[j]
			assert.False(t, f2.Derived, "field %s.%s derived twice", e2.Name, f2.Name)
			assert.Equal(t, f1.Link, f2.Link, "link of %s.%s", e1.Name, f1.Name)
		}
	}
}

func TestWeave_DoesNotModifyInput(t *testing.T) {
	s := richSpec()
	before := len(s.Entities[0].Fields)
	Weave(s)
	assert.Len(t, s.Entities, 5)
	assert.Len(t, s.Entities[0].Fields, before)
	assert.Len(t, s.Entities[1].Fields, 1)
	assert.Equal(t, []string{"User", "Profile", "Post", "Tag", "Category"}, s.EntityNames())
}

func TestModel_Ordered(t *testing.T) {
	m := Weave(richSpec())
	ordered, err := m.Ordered()
	require.NoError(t, err)

	pos := make(map[string]int)
	for i, e := range ordered {
		pos[e.Name] = i
	}
	assert.Less(t, pos["User"], pos["Post"])
	assert.Less(t, pos["Workspace"], pos["Post"])
	assert.Less(t, pos["Team"], pos["TeamMembership"])
	assert.Less(t, pos["User"], pos["TeamMembership"])
}

func TestEntity_AllFields(t *testing.T) {
	m := Weave(richSpec())
	post := mustEntity(t, m, "Post")
	var names []string
	for _, f := range post.AllFields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"id", "title", "author", "reviewer", "tags",
		"createdById", "updatedById", "workspaceId",
		"createdAt", "updatedAt", "deletedAt",
	}, names)
}
