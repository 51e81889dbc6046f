// Package weave computes the fields and relations every entity gains from
// its neighbours and from the cross-cutting concerns: relation
// back-references, ownership tracking, tenant scoping and the identity
// group/membership scaffolding.
//
// Weaving runs to completion over the whole entity set before any artifact
// is rendered. Derivation is idempotent: weaving the Feedback of a model
// derives nothing new.
package weave

import (
	"github.com/matthewbaird/turbine/internal/resolve"
	"github.com/matthewbaird/turbine/internal/spec"
)

// Derivation rules, recorded in spec.Field.Origin and spec.Entity.Origin.
const (
	OriginBackRef      = "backref"
	OriginCreator      = "ownership.creator"
	OriginModifier     = "ownership.modifier"
	OriginTenant       = "tenancy"
	OriginTenantEntity = "tenancy.entity"
	OriginGroup        = "identity.group"
	OriginHierarchy    = "identity.group.parent"
	OriginMembership   = "identity.membership"
	OriginMemberGroup  = "identity.membership.group"
)

// Names of the ownership tracking fields.
const (
	CreatedByID = "createdById"
	UpdatedByID = "updatedById"
)

// LinkKind says how a relation field is stored.
type LinkKind int

const (
	// LinkForeignKey fields hold the foreign key (belongsTo, hasOne).
	LinkForeignKey LinkKind = iota
	// LinkBack fields are the reverse side of a LinkForeignKey relation.
	LinkBack
	// LinkImplicit fields are a manyToMany without a join entity.
	LinkImplicit
	// LinkThrough fields are a manyToMany stored in a join entity.
	LinkThrough
	// LinkUnpaired fields are a hasMany with no belongsTo counterpart.
	LinkUnpaired
)

// Link is the resolved wiring of a relation field.
type Link struct {
	Kind       LinkKind
	Name       string // relation name shared by both sides
	Target     string
	ForeignKey string // scalar column holding the key, LinkForeignKey only
	Pointer    string // navigation field name, LinkForeignKey only
	Unique     bool   // one-to-one foreign key
	Many       bool   // collection side
	OnDelete   spec.OnDelete
	Through    string
}

// Field is a woven field.
type Field struct {
	spec.Field
	Link    *Link
	Derived bool // added by this weave pass
}

// Entity is a woven entity. Fields shadows the declared field list with
// the woven one: declared fields in order, then concern fields, then
// back-references.
type Entity struct {
	spec.Entity
	Fields []Field

	Derived        bool   // synthesized by this weave pass
	Owned          bool   // ownership tracking applies
	TenantField    string // tenant scope field, "" when unscoped
	UniqueTogether [][]string
}

// Field looks up a woven field by name.
func (e *Entity) Field(name string) (*Field, bool) {
	i := e.fieldIndex(name)
	if i < 0 {
		return nil, false
	}
	return &e.Fields[i], true
}

func (e *Entity) fieldIndex(name string) int {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			return i
		}
	}
	return -1
}

// Synthesized reports whether the weaver created the entity, in this pass
// or an earlier one.
func (e *Entity) Synthesized() bool { return e.Derived || e.Origin != "" }

// AllFields returns the woven fields with the implicit id, timestamp and
// soft-delete fields, following spec.Entity.AllFields.
func (e *Entity) AllFields() []Field {
	decl := e.Entity
	decl.Fields = make([]spec.Field, len(e.Fields))
	for i, f := range e.Fields {
		decl.Fields[i] = f.Field
	}
	all := decl.AllFields()

	out := make([]Field, len(all))
	for i, f := range all {
		if j := e.fieldIndex(f.Name); j >= 0 {
			out[i] = e.Fields[j]
			continue
		}
		out[i] = Field{Field: f}
	}
	return out
}

// Model is the woven entity set.
type Model struct {
	Spec     *spec.Specification
	Entities []*Entity
	index    map[string]*Entity
}

// Entity looks up a woven entity by name.
func (m *Model) Entity(name string) (*Entity, bool) {
	e, ok := m.index[name]
	return e, ok
}

// Declared returns the entities of the document in declaration order.
func (m *Model) Declared() []*Entity {
	var out []*Entity
	for _, e := range m.Entities {
		if !e.Synthesized() {
			out = append(out, e)
		}
	}
	return out
}

// Ordered returns every entity in dependency order.
func (m *Model) Ordered() ([]*Entity, error) {
	ordered, err := resolve.Order(m.Feedback().Entities)
	if err != nil {
		return nil, err
	}
	out := make([]*Entity, len(ordered))
	for i, e := range ordered {
		out[i] = m.index[e.Name]
	}
	return out, nil
}

// Feedback converts the model back into a specification whose entities
// carry every woven field as a declared one, tagged with its origin.
func (m *Model) Feedback() *spec.Specification {
	out := *m.Spec
	out.Entities = make([]spec.Entity, len(m.Entities))
	for i, e := range m.Entities {
		se := e.Entity
		se.Fields = make([]spec.Field, len(e.Fields))
		for j, f := range e.Fields {
			se.Fields[j] = f.Field
		}
		out.Entities[i] = se
	}
	return &out
}

func (m *Model) add(e *Entity) {
	m.Entities = append(m.Entities, e)
	m.index[e.Name] = e
}
