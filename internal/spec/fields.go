package spec

// Names of the implicit fields every entity may receive.
const (
	IDField        = "id"
	CreatedAtField = "createdAt"
	UpdatedAtField = "updatedAt"
	DeletedAtField = "deletedAt"
)

// Entity looks up an entity by name.
func (s *Specification) Entity(name string) (*Entity, bool) {
	for i := range s.Entities {
		if s.Entities[i].Name == name {
			return &s.Entities[i], true
		}
	}
	return nil, false
}

// EntityNames lists entity names in declaration order.
func (s *Specification) EntityNames() []string {
	out := make([]string, len(s.Entities))
	for i, e := range s.Entities {
		out[i] = e.Name
	}
	return out
}

// UserEntity returns the identity user entity name, "User" by default.
func (s *Specification) UserEntity() string {
	if s.Identity != nil && s.Identity.UserEntity != "" {
		return s.Identity.UserEntity
	}
	return "User"
}

// TenancyEnabled reports whether tenancy is configured and switched on.
func (s *Specification) TenancyEnabled() bool { return s.Tenancy != nil && s.Tenancy.Enabled }

// Field looks up a declared field by name.
func (e *Entity) Field(name string) (*Field, bool) {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			return &e.Fields[i], true
		}
	}
	return nil, false
}

// Allows reports whether the entity exposes op.
func (e *Entity) Allows(op Operation) bool {
	for _, o := range e.Operations {
		if o == op {
			return true
		}
	}
	return false
}

// QueryingOrDefault returns the entity querying config or the defaults.
func (e *Entity) QueryingOrDefault() Querying {
	if e.Querying != nil {
		return *e.Querying
	}
	return DefaultQuerying()
}

// AllFields returns the declared fields plus the implicit id, timestamp and
// soft-delete fields. An implicit field is added only when no declared field
// has its name; declared fields keep their position.
func (e *Entity) AllFields() []Field {
	out := make([]Field, 0, len(e.Fields)+4)
	if _, ok := e.Field(IDField); !ok {
		out = append(out, Field{
			Name:       IDField,
			Type:       FieldUUID,
			Validation: &Validation{Required: true, Unique: true},
			Visibility: Public,
		})
	}
	out = append(out, e.Fields...)
	if e.Timestamps {
		for _, name := range []string{CreatedAtField, UpdatedAtField} {
			if _, ok := e.Field(name); !ok {
				out = append(out, Field{
					Name:       name,
					Type:       FieldDateTime,
					Validation: &Validation{Required: true},
					Visibility: Public,
				})
			}
		}
	}
	if e.SoftDelete {
		if _, ok := e.Field(DeletedAtField); !ok {
			out = append(out, Field{Name: DeletedAtField, Type: FieldDateTime, Visibility: Public})
		}
	}
	return out
}

// ServerManaged reports whether clients never supply the named field.
func ServerManaged(name string) bool {
	switch name {
	case IDField, CreatedAtField, UpdatedAtField, DeletedAtField:
		return true
	}
	return false
}
