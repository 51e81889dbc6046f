package weave

import (
	"github.com/matthewbaird/turbine/internal/spec"
)

// synthesize adds the tenant, group and membership entities the concern
// configs require and the document does not declare.
func (m *Model) synthesize() {
	s := m.Spec
	if s.TenancyEnabled() {
		if _, ok := m.index[s.Tenancy.TenantEntity]; !ok {
			m.add(fromSpec(tenantEntity(s.Tenancy.TenantEntity), true))
		}
	}
	id := s.Identity
	if id == nil || id.GroupEntity == "" {
		return
	}
	if _, ok := m.index[id.GroupEntity]; !ok {
		m.add(fromSpec(groupEntity(id), true))
	}
	if _, ok := m.index[id.Membership()]; !ok {
		m.add(fromSpec(membershipEntity(id, s.UserEntity()), true))
	}
}

func synthesized(name, origin string, fields ...spec.Field) spec.Entity {
	for i := range fields {
		fields[i].Origin = origin
		if fields[i].Visibility == "" {
			fields[i].Visibility = spec.Public
		}
	}
	plural := spec.Pluralize(name)
	return spec.Entity{
		Name:       name,
		Plural:     plural,
		TableName:  spec.SnakeCase(plural),
		Fields:     fields,
		Timestamps: true,
		Origin:     origin,
	}
}

func scalar(name string, t spec.FieldType, v *spec.Validation) spec.Field {
	return spec.Field{Name: name, Type: t, Validation: v}
}

func tenantEntity(name string) spec.Entity {
	return synthesized(name, OriginTenantEntity,
		scalar("name", spec.FieldString, &spec.Validation{Required: true}),
		scalar("slug", spec.FieldString, &spec.Validation{Required: true, Unique: true}),
	)
}

func groupEntity(id *spec.IdentityConfig) spec.Entity {
	fields := []spec.Field{
		scalar("name", spec.FieldString, &spec.Validation{Required: true}),
		scalar("description", spec.FieldString, nil),
	}
	e := synthesized(id.GroupEntity, OriginGroup, fields...)
	if id.GroupHierarchy {
		e.Fields = append(e.Fields, relationField("parentId", id.GroupEntity, false, spec.SetNull, OriginHierarchy))
	}
	return e
}

func membershipEntity(id *spec.IdentityConfig, user string) spec.Entity {
	e := synthesized(id.Membership(), OriginMembership,
		relationField("userId", user, true, spec.Cascade, ""),
		relationField("groupId", id.GroupEntity, true, spec.Cascade, ""),
		scalar("role", spec.FieldString, &spec.Validation{Required: true, Default: "member"}),
	)
	e.Fields[1].Origin = OriginMemberGroup
	return e
}
