package emit

import (
	"maps"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/matthewbaird/turbine/internal/spec"
	"github.com/matthewbaird/turbine/internal/weave"
)

// naming holds the identifiers an entity is rendered under.
type naming struct {
	Type  string // Post
	Var   string // post
	File  string // post, for src/routes/post.ts
	Route string // posts, the URL segment
	Table string // posts
}

func nameOf(e *weave.Entity) naming {
	return naming{
		Type:  e.Name,
		Var:   spec.CamelCase(e.Name),
		File:  spec.KebabCase(e.Name),
		Route: spec.KebabCase(e.Plural),
		Table: e.TableName,
	}
}

func (c *Context) hasAuth() bool { return c.Spec.Stack.HasAuth() }

// routed returns the declared entities that expose at least one operation,
// in declaration order.
func (c *Context) routed() []*weave.Entity {
	var out []*weave.Entity
	for _, e := range c.Model.Declared() {
		if len(e.Operations) > 0 {
			out = append(out, e)
		}
	}
	return out
}

// elevatedRoles returns "admin" followed by every role that inherits it,
// directly or transitively, sorted.
func (c *Context) elevatedRoles() []string {
	elevated := map[string]bool{"admin": true}
	p := c.Spec.Permissions
	if p != nil {
		names := slices.Sorted(maps.Keys(p.Roles))
		for changed := true; changed; {
			changed = false
			for _, r := range names {
				if elevated[r] {
					continue
				}
				for _, parent := range p.Roles[r].Inherits {
					if elevated[parent] {
						elevated[r] = true
						changed = true
						break
					}
				}
			}
		}
	}
	rest := slices.Sorted(maps.Keys(elevated))
	out := []string{"admin"}
	for _, r := range rest {
		if r != "admin" {
			out = append(out, r)
		}
	}
	return out
}

// ownerField returns the field ownership checks compare against the
// caller, or "" when the entity has no ownership checks.
func (c *Context) ownerField(e *weave.Entity) string {
	if !e.Owned || !c.hasAuth() {
		return ""
	}
	name := e.Ownership.AutoFilterField
	if name == "" {
		name = weave.CreatedByID
	}
	if _, ok := e.Field(name); !ok {
		return ""
	}
	return name
}

// ownerFilter reports whether list results are narrowed to the caller.
func (c *Context) ownerFilter(e *weave.Entity) bool {
	return c.ownerField(e) != "" && e.Ownership.AutoFilter
}

// tenantFilter returns the tenant scope field lists and lookups filter on.
func (c *Context) tenantFilter(e *weave.Entity) string {
	if e.TenantField == "" || !c.Spec.Tenancy.AutoFilter {
		return ""
	}
	return e.TenantField
}

func (c *Context) permissionModel() spec.PermissionModel {
	if c.Spec.Permissions == nil || c.Spec.Permissions.Model == "" {
		return spec.PermOwner
	}
	return c.Spec.Permissions.Model
}

// access describes how a route is guarded.
type access struct {
	Auth       bool
	Roles      []string // empty means any authenticated caller
	Conditions bool     // attribute conditions apply that cannot be derived
}

// accessFor decides the guard of an operation on an entity. Entity rules
// are consulted together with the global rules.
func (c *Context) accessFor(e *weave.Entity, op spec.Operation) access {
	if !c.hasAuth() || c.permissionModel() == spec.PermPublic {
		return access{}
	}
	a := access{Auth: true}
	model := c.permissionModel()
	if model != spec.PermRBAC && model != spec.PermABAC {
		return a
	}

	var rules []spec.PermissionRule
	rules = append(rules, c.Spec.Permissions.Rules...)
	if e.Permissions != nil {
		rules = append(rules, e.Permissions.Rules...)
	}
	roles := map[string]bool{}
	matched := false
	for _, r := range rules {
		if !ruleCovers(r, e.Name, op) {
			continue
		}
		matched = true
		if len(r.Conditions) > 0 {
			a.Conditions = true
		}
		if r.Role == "" {
			// A rule without a role admits every authenticated caller.
			return a
		}
		roles[r.Role] = true
	}
	if !matched && c.Spec.Permissions.DefaultAccess == "allow" {
		return a
	}
	for _, r := range c.elevatedRoles() {
		roles[r] = true
	}
	a.Roles = slices.Sorted(maps.Keys(roles))
	return a
}

func ruleCovers(r spec.PermissionRule, entity string, op spec.Operation) bool {
	res := slices.Contains(r.Resources, "*") || slices.Contains(r.Resources, entity)
	act := slices.Contains(r.Actions, "*") || slices.Contains(r.Actions, op)
	return res && act
}

// searchable, filterable and sortable field names, in field order.
func fieldNames(e *weave.Entity, keep func(weave.Field) bool) []string {
	var out []string
	for _, f := range e.AllFields() {
		if f.Link != nil && f.Link.Kind != weave.LinkForeignKey {
			continue
		}
		if keep(f) {
			out = append(out, columnOf(f))
		}
	}
	return out
}

// columnOf is the scalar name a field is stored and queried under.
func columnOf(f weave.Field) string {
	if f.Link != nil && f.Link.Kind == weave.LinkForeignKey {
		return f.Link.ForeignKey
	}
	return f.Name
}

// hidden reports whether a field is withheld from API responses.
func hidden(c *Context, f weave.Field) bool {
	if f.Visibility == spec.Private || f.Visibility == spec.Internal {
		return true
	}
	return f.Name == c.identity().Credential
}

// identity returns the identity field names, defaulted when the document
// has no identity block.
func (c *Context) identity() spec.IdentityFields {
	if c.Spec.Identity != nil {
		return c.Spec.Identity.Fields
	}
	return spec.IdentityFields{
		Identifier:  "email",
		Credential:  "passwordHash",
		DisplayName: "name",
		Role:        "role",
		Active:      "isActive",
	}
}

// slug lower-cases a project name and joins its words with sep:
// "My Blog API" -> "my-blog-api".
func slug(name string, sep rune) string {
	var b strings.Builder
	pending := false
	for i, r := range name {
		switch {
		case unicode.IsUpper(r):
			if i > 0 && b.Len() > 0 && !pending && unicode.IsLower(prevRune(name, i)) {
				pending = true
			}
			r = unicode.ToLower(r)
		case unicode.IsLower(r), unicode.IsDigit(r):
		default:
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteRune(sep)
			pending = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func prevRune(s string, i int) rune {
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return r
}

func (c *Context) packageName() string { return slug(c.Spec.Project.Name, '-') }

func (c *Context) databaseName() string { return slug(c.Spec.Project.Name, '_') }
