package weave

import (
	"strings"

	"github.com/matthewbaird/turbine/internal/spec"
)

// Weave computes the woven model of a specification whose references have
// been checked with resolve.CheckReferences. s is not modified.
func Weave(s *spec.Specification) *Model {
	m := &Model{Spec: s, index: make(map[string]*Entity, len(s.Entities)+3)}
	for _, e := range s.Entities {
		m.add(fromSpec(e, false))
	}
	m.synthesize()
	for _, e := range m.Entities {
		m.deriveConcerns(e)
	}
	m.link()
	return m
}

func fromSpec(se spec.Entity, derived bool) *Entity {
	e := &Entity{Entity: se, Derived: derived}
	e.Fields = make([]Field, len(se.Fields))
	for i, f := range se.Fields {
		e.Fields[i] = Field{Field: f, Derived: derived}
	}
	if se.Origin == OriginMembership {
		e.UniqueTogether = [][]string{{"userId", "groupId"}}
	}
	return e
}

// ensure appends f unless a field of the same name exists.
func (e *Entity) ensure(f spec.Field) {
	if e.fieldIndex(f.Name) >= 0 {
		return
	}
	if f.Visibility == "" {
		f.Visibility = spec.Public
	}
	e.Fields = append(e.Fields, Field{Field: f, Derived: true})
}

func relationField(name, target string, required bool, onDelete spec.OnDelete, origin string) spec.Field {
	return spec.Field{
		Name:       name,
		Type:       spec.FieldRelation,
		Relation:   &spec.Relation{Type: spec.BelongsTo, Target: target, OnDelete: onDelete},
		Validation: &spec.Validation{Required: required},
		Visibility: spec.Public,
		Origin:     origin,
	}
}

func (m *Model) deriveConcerns(e *Entity) {
	s := m.Spec
	user := s.UserEntity()

	if e.Ownership.Tracks() && e.Name != user {
		e.Owned = true
		if e.Ownership.TrackCreator {
			e.ensure(relationField(CreatedByID, user, true, spec.Restrict, OriginCreator))
		}
		if e.Ownership.TrackModifier {
			e.ensure(relationField(UpdatedByID, user, false, spec.SetNull, OriginModifier))
		}
	}

	if t := s.Tenancy; s.TenancyEnabled() && !e.Synthesized() && e.Name != user &&
		e.Name != t.TenantEntity && !t.IsGlobal(e.Name) && t.IsScoped(e.Name) {
		e.TenantField = t.TenantField
		e.ensure(relationField(t.TenantField, t.TenantEntity, true, spec.Cascade, OriginTenant))
	}
}

// link resolves every relation field and derives the missing reverse
// sides. Declared hasMany fields claim their belongsTo counterpart first so
// that no duplicate back-reference is derived for them.
func (m *Model) link() {
	claims := m.claimCounterparts()

	for _, a := range m.Entities {
		for i := range a.Fields {
			f := a.Fields[i]
			if !f.IsRelation() || f.Link != nil || f.Origin == OriginBackRef {
				continue
			}
			switch f.Relation.Type {
			case spec.BelongsTo, spec.HasOne:
				m.linkForeignKey(a, i, claims)
			case spec.ManyToMany:
				if f.Relation.Through != "" {
					a.Fields[i].Link = &Link{Kind: LinkThrough, Target: f.Relation.Target, Through: f.Relation.Through, Many: true}
					continue
				}
				m.linkImplicit(a, i)
			}
		}
	}

	for _, e := range m.Entities {
		for i := range e.Fields {
			if e.Fields[i].IsRelation() && e.Fields[i].Link == nil {
				e.Fields[i].Link = &Link{Kind: LinkUnpaired, Target: e.Fields[i].Relation.Target, Many: true}
			}
		}
	}
}

type fieldRef struct {
	entity *Entity
	index  int
}

// claimCounterparts pairs declared hasMany fields with a belongsTo field on
// their target that points back. A belongsTo whose derived back-reference
// name equals the hasMany name is preferred, then declaration order.
func (m *Model) claimCounterparts() map[fieldRef]fieldRef {
	claims := make(map[fieldRef]fieldRef)
	for _, b := range m.Entities {
		for j, h := range b.Fields {
			if !h.IsRelation() || h.Relation.Type != spec.HasMany || h.Origin == OriginBackRef {
				continue
			}
			a, ok := m.index[h.Relation.Target]
			if !ok {
				continue
			}
			best := -1
			for i, f := range a.Fields {
				if !f.IsRelation() || f.Relation.Type != spec.BelongsTo || f.Relation.Target != b.Name {
					continue
				}
				if _, taken := claims[fieldRef{a, i}]; taken {
					continue
				}
				if m.backRefName(a, i) == h.Name {
					best = i
					break
				}
				if best < 0 {
					best = i
				}
			}
			if best >= 0 {
				claims[fieldRef{a, best}] = fieldRef{b, j}
			}
		}
	}
	return claims
}

func (m *Model) linkForeignKey(a *Entity, i int, claims map[fieldRef]fieldRef) {
	f := a.Fields[i]
	fk, ptr := Keys(f.Field)
	name := relationName(a.Name, ptr)
	a.Fields[i].Link = &Link{
		Kind:       LinkForeignKey,
		Name:       name,
		Target:     f.Relation.Target,
		ForeignKey: fk,
		Pointer:    ptr,
		Unique:     f.Relation.Type == spec.HasOne || f.Unique(),
		OnDelete:   f.Relation.OnDelete.OrDefault(),
	}

	b, ok := m.index[f.Relation.Target]
	if !ok {
		return
	}
	many := f.Relation.Type == spec.BelongsTo
	back := &Link{Kind: LinkBack, Name: name, Target: a.Name, Many: many}

	if h, claimed := claims[fieldRef{a, i}]; claimed {
		h.entity.Fields[h.index].Link = back
		return
	}
	bname := m.backRefName(a, i)
	if j := b.fieldIndex(bname); j >= 0 {
		existing := b.Fields[j]
		if existing.IsRelation() && existing.Relation.Target == a.Name && existing.Link == nil {
			b.Fields[j].Link = back
		}
		return
	}
	kind := spec.HasMany
	if !many {
		kind = spec.HasOne
	}
	b.Fields = append(b.Fields, Field{
		Field: spec.Field{
			Name:       bname,
			Type:       spec.FieldRelation,
			Relation:   &spec.Relation{Type: kind, Target: a.Name},
			Visibility: spec.Public,
			Origin:     OriginBackRef,
		},
		Link:    back,
		Derived: true,
	})
}

func (m *Model) linkImplicit(a *Entity, i int) {
	f := a.Fields[i]
	name := relationName(a.Name, f.Name)
	a.Fields[i].Link = &Link{Kind: LinkImplicit, Name: name, Target: f.Relation.Target, Many: true}

	b, ok := m.index[f.Relation.Target]
	if !ok {
		return
	}
	back := &Link{Kind: LinkImplicit, Name: name, Target: a.Name, Many: true}
	for j, g := range b.Fields {
		if b == a && j == i {
			continue
		}
		if g.IsRelation() && g.Relation.Type == spec.ManyToMany && g.Relation.Through == "" &&
			g.Relation.Target == a.Name && g.Link == nil {
			b.Fields[j].Link = back
			return
		}
	}
	bname := m.backRefName(a, i)
	if b.fieldIndex(bname) >= 0 {
		return
	}
	b.Fields = append(b.Fields, Field{
		Field: spec.Field{
			Name:       bname,
			Type:       spec.FieldRelation,
			Relation:   &spec.Relation{Type: spec.ManyToMany, Target: a.Name},
			Visibility: spec.Public,
			Origin:     OriginBackRef,
		},
		Link:    back,
		Derived: true,
	})
}

// Keys returns the foreign key column and navigation field names of a
// belongsTo or hasOne field. A field named "authorId" or "author" yields
// ("authorId", "author").
func Keys(f spec.Field) (fk, pointer string) {
	base := f.Name
	if trimmed, ok := strings.CutSuffix(f.Name, "Id"); ok && trimmed != "" {
		base = trimmed
	}
	fk = base + "Id"
	if f.Relation != nil && f.Relation.ForeignKey != "" {
		fk = f.Relation.ForeignKey
	}
	pointer = base
	if pointer == fk {
		pointer += "Rel"
	}
	return fk, pointer
}

// relationName tags both sides of a relation: "{Entity}{Field}".
func relationName(entity, field string) string {
	return entity + spec.PascalCase(field)
}

// backRefName names the reverse side of a.Fields[i] on its target: the
// pluralized camel form of a, singular for hasOne. Further relations from a
// to the same target append the field name.
func (m *Model) backRefName(a *Entity, i int) string {
	f := a.Fields[i]
	base := spec.Pluralize(spec.CamelCase(a.Name))
	switch f.Origin {
	case OriginCreator:
		return base + "Created"
	case OriginModifier:
		return base + "Updated"
	case OriginHierarchy:
		return "children"
	case OriginMemberGroup:
		return "members"
	}
	if f.Relation.Type == spec.HasOne {
		base = spec.CamelCase(a.Name)
	}
	if !firstLink(a, i) {
		_, ptr := Keys(f.Field)
		if f.Relation.Type == spec.ManyToMany {
			ptr = f.Name
		}
		base += spec.PascalCase(ptr)
	}
	return base
}

// firstLink reports whether no earlier field of a links to the same target
// under the general naming rule.
func firstLink(a *Entity, i int) bool {
	f := a.Fields[i]
	for _, g := range a.Fields[:i] {
		if !g.IsRelation() || g.Relation.Target != f.Relation.Target {
			continue
		}
		switch g.Origin {
		case OriginBackRef, OriginCreator, OriginModifier, OriginHierarchy, OriginMemberGroup:
			continue
		}
		if (g.Relation.Type == spec.ManyToMany) == (f.Relation.Type == spec.ManyToMany) &&
			g.Relation.Type != spec.HasMany {
			return false
		}
	}
	return true
}
