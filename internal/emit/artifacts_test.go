package emit

import (
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"
)

func withStack(doc, stack string) string {
	return strings.Replace(doc, "stack:\n  testing: [vitest, playwright]", "stack:\n"+stack, 1)
}

func TestMigrationSQL_SQLiteExecutes(t *testing.T) {
	res := generate(t, withStack(blogYAML, "  orm: kysely\n  database: sqlite"))
	ddl := content(t, res, "migrations/0001_init.sql")

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)
	_, err = db.Exec(ddl)
	require.NoError(t, err, ddl)

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	require.NoError(t, err)
	var tables []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		tables = append(tables, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"comments", "post_tags", "posts", "tags", "users"}, tables)

	mustExec := func(q string) {
		t.Helper()
		_, err := db.Exec(q)
		require.NoError(t, err, q)
	}
	mustExec("INSERT INTO users (id, email, password_hash) VALUES ('u1', 'a@example.com', 'x')")
	mustExec("INSERT INTO posts (id, title, created_by_id) VALUES ('p1', 'Hello', 'u1')")
	mustExec("INSERT INTO tags (id, label) VALUES ('t1', 'go')")
	mustExec("INSERT INTO post_tags (post_id, tag_id) VALUES ('p1', 't1')")
	mustExec("INSERT INTO comments (id, body, post_id) VALUES ('c1', 'First', 'p1')")

	var role string
	require.NoError(t, db.QueryRow("SELECT role FROM users WHERE id = 'u1'").Scan(&role))
	assert.Equal(t, "reader", role)
	var published bool
	require.NoError(t, db.QueryRow("SELECT published FROM posts WHERE id = 'p1'").Scan(&published))
	assert.False(t, published)

	_, err = db.Exec("INSERT INTO comments (id, body, post_id) VALUES ('c2', 'Orphan', 'missing')")
	assert.Error(t, err, "unknown post is rejected")
	_, err = db.Exec("INSERT INTO tags (id, label) VALUES ('t2', 'go')")
	assert.Error(t, err, "label is unique")
	_, err = db.Exec("DELETE FROM users WHERE id = 'u1'")
	assert.Error(t, err, "creator reference restricts deletes")

	mustExec("DELETE FROM posts WHERE id = 'p1'")
	var n int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM comments").Scan(&n))
	assert.Zero(t, n, "comments cascade with their post")
	require.NoError(t, db.QueryRow("SELECT count(*) FROM post_tags").Scan(&n))
	assert.Zero(t, n)
}

func TestMigrationSQL_Postgres(t *testing.T) {
	res := generate(t, withStack(blogYAML, "  orm: kysely"))
	ddl := content(t, res, "migrations/0001_init.sql")

	assert.Contains(t, ddl, `CREATE TYPE "user_role" AS ENUM ('admin', 'moderator', 'editor', 'reader');`)
	assert.Contains(t, ddl, `CREATE TABLE "posts" (`)
	assert.Contains(t, ddl, `"id" uuid PRIMARY KEY DEFAULT gen_random_uuid()`)
	assert.Contains(t, ddl, `FOREIGN KEY ("created_by_id") REFERENCES "users" ("id") ON DELETE RESTRICT`)
	assert.Contains(t, ddl, `FOREIGN KEY ("updated_by_id") REFERENCES "users" ("id") ON DELETE SET NULL`)
	assert.Contains(t, ddl, `PRIMARY KEY ("post_id", "tag_id")`)
	assert.Less(t, strings.Index(ddl, `CREATE TABLE "users"`), strings.Index(ddl, `CREATE TABLE "posts"`))
	assert.Less(t, strings.Index(ddl, `CREATE TABLE "posts"`), strings.Index(ddl, `CREATE TABLE "comments"`))

	db := content(t, res, "src/db.ts")
	assert.Contains(t, db, "PostgresDialect")
}

func TestMigrationSQL_ForwardReferenceDeferred(t *testing.T) {
	doc := `
project: {name: Profiles, description: x}
stack: {orm: kysely, database: mysql}
entities:
  - name: User
    fields:
      - name: profile
        type: relation
        relation: {type: hasOne, target: Profile}
  - name: Profile
    fields:
      - {name: bio, type: text}
`
	res := generate(t, doc)
	ddl := content(t, res, "migrations/0001_init.sql")
	users := ddl[strings.Index(ddl, "CREATE TABLE `users`"):]
	users = users[:strings.Index(users, ");")]
	assert.NotContains(t, users, "FOREIGN KEY")
	assert.Contains(t, ddl, "ALTER TABLE `users` ADD FOREIGN KEY (`profile_id`) REFERENCES `profiles` (`id`) ON DELETE CASCADE;")
	assert.Contains(t, users, "`profile_id` char(36) UNIQUE")
}

func TestPrisma_MongoKeysAreObjectIDs(t *testing.T) {
	res := generate(t, withStack(blogYAML, "  orm: prisma\n  database: mongodb"))

	schema := content(t, res, "prisma/schema.prisma")
	assert.Regexp(t, `postId\s+String\s+@db\.ObjectId`, schema)
	assert.Contains(t, schema, `@id @default(auto()) @map("_id") @db.ObjectId`)

	types := content(t, res, "src/types.ts")
	assert.Contains(t, types, "  postId: z.string().regex(/^[0-9a-f]{24}$/),")
	assert.Contains(t, types, "  id: z.string().regex(/^[0-9a-f]{24}$/),")
	assert.NotContains(t, types, "uuid()")

	var doc struct {
		Paths map[string]map[string]struct {
			Parameters []map[string]any `json:"parameters"`
		} `json:"paths"`
		Comps struct {
			Schemas map[string]struct {
				Properties map[string]map[string]any `json:"properties"`
			} `json:"schemas"`
		} `json:"components"`
	}
	require.NoError(t, json.Unmarshal([]byte(content(t, res, "openapi.json")), &doc))
	postID := doc.Comps.Schemas["Comment"].Properties["postId"]
	assert.Equal(t, "^[0-9a-f]{24}$", postID["pattern"])
	assert.NotContains(t, postID, "format")
	param := doc.Paths["/posts/{id}"]["get"].Parameters[0]
	assert.Equal(t, map[string]any{"type": "string", "pattern": "^[0-9a-f]{24}$"}, param["schema"])
}

func TestOpenAPI(t *testing.T) {
	res := generate(t, blogYAML)
	var doc struct {
		OpenAPI string                               `json:"openapi"`
		Info    map[string]any                       `json:"info"`
		Paths   map[string]map[string]map[string]any `json:"paths"`
		Comps   struct {
			Schemas map[string]struct {
				Properties map[string]any `json:"properties"`
				Required   []string       `json:"required"`
			} `json:"schemas"`
			SecuritySchemes map[string]any `json:"securitySchemes"`
		} `json:"components"`
	}
	raw := content(t, res, "openapi.json")
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	assert.Equal(t, "3.1.0", doc.OpenAPI)
	assert.Equal(t, "My Blog API", doc.Info["title"])
	assert.Contains(t, doc.Paths, "/posts")
	assert.Contains(t, doc.Paths, "/posts/search")
	assert.Contains(t, doc.Paths["/posts/{id}"], "patch")
	assert.Contains(t, doc.Paths["/posts/{id}"], "delete")
	assert.Contains(t, doc.Paths["/posts/{id}/publish"], "post")
	assert.Contains(t, doc.Paths["/auth/login"], "post")
	assert.Contains(t, doc.Paths["/health"], "get")

	user := doc.Comps.Schemas["User"]
	assert.Contains(t, user.Properties, "email")
	assert.NotContains(t, user.Properties, "passwordHash")
	assert.Contains(t, doc.Comps.Schemas["CreateUser"].Properties, "passwordHash")

	create := doc.Comps.Schemas["CreatePost"]
	assert.Contains(t, create.Required, "title")
	assert.NotContains(t, create.Properties, "createdById")
	assert.NotContains(t, create.Properties, "id")
	assert.Empty(t, doc.Comps.Schemas["UpdatePost"].Required)
	assert.Contains(t, doc.Comps.SecuritySchemes, "bearerAuth")

	// Keys keep insertion order in the rendered text.
	assert.Less(t, strings.Index(raw, `"openapi"`), strings.Index(raw, `"info"`))
	assert.Less(t, strings.Index(raw, `"paths"`), strings.Index(raw, `"components"`))
	assert.Less(t, strings.Index(raw, `"/users"`), strings.Index(raw, `"/posts"`))
}

func TestCI_GitHub(t *testing.T) {
	res := generate(t, blogYAML)
	a, ok := res.Artifact(".github/workflows/ci.yml")
	require.True(t, ok)
	assert.True(t, a.HasGaps, "aws deployment needs credentials")
	assert.True(t, strings.HasPrefix(a.Content, "# TODO: configure aws credentials"))

	var wf struct {
		Name string                    `yaml:"name"`
		Jobs map[string]map[string]any `yaml:"jobs"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(a.Content), &wf))
	assert.Equal(t, "CI", wf.Name)
	assert.Contains(t, wf.Jobs, "ci")
	assert.Contains(t, wf.Jobs, "e2e")
	prod := wf.Jobs["deploy-production"]
	require.NotNil(t, prod)
	assert.Equal(t, "production", prod["environment"])
	assert.Equal(t, []any{"ci", "e2e"}, prod["needs"])
	assert.Equal(t, "github.ref == 'refs/heads/main'", prod["if"])
	assert.Contains(t, wf.Jobs, "deploy-staging")
	assert.Contains(t, a.Content, "run: npm run typecheck")
	assert.Contains(t, a.Content, "flyctl deploy --remote-only")
}

func TestCI_GitLab(t *testing.T) {
	doc := strings.Replace(itemYAML, "entities:", "cicd:\n  provider: gitlab\n  stages: {build: false}\nentities:", 1)
	res := generate(t, doc)
	_, ok := res.Artifact(".github/workflows/ci.yml")
	assert.False(t, ok)

	var pl map[string]any
	raw := content(t, res, ".gitlab-ci.yml")
	require.NoError(t, yaml.Unmarshal([]byte(raw), &pl))
	assert.Equal(t, []any{"verify"}, pl["stages"])
	lint, ok := pl["lint"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"npm ci", "npm run db:generate", "npm run lint"}, lint["script"])
	assert.NotContains(t, pl, "build")
	assert.False(t, HasGap(raw))
}

func TestFrontend(t *testing.T) {
	res := generate(t, blogYAML)
	app := content(t, res, "web/src/App.tsx")
	assert.Contains(t, app, "{ name: 'Posts', path: '/api/posts', columns: ['id', 'title', 'body', 'published', 'createdAt', 'updatedAt'] },")
	assert.NotContains(t, app, "passwordHash")
	assert.Contains(t, content(t, res, "web/src/index.css"), "prefers-color-scheme: dark")
	assert.Contains(t, content(t, res, "web/index.html"), "<title>My Blog API</title>")

	vue := generate(t, strings.Replace(itemYAML, "entities:", "stack:\n  frontend: vue\nentities:", 1))
	main, ok := vue.Artifact("web/src/main.ts")
	require.True(t, ok)
	assert.True(t, main.HasGaps)
	_, ok = vue.Artifact("web/src/App.tsx")
	assert.False(t, ok)
}
