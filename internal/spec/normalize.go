package spec

// Normalize returns a copy of s with every derived default filled in:
// entity plural and table names, validation shorthands folded into the
// validation block, de-duplicated operations, and entity ownership taken
// from permissions.ownership when only that is declared. s is not modified.
func (s *Specification) Normalize() *Specification {
	out := *s
	out.Entities = make([]Entity, len(s.Entities))
	for i, e := range s.Entities {
		out.Entities[i] = normalizeEntity(e)
	}
	return &out
}

func normalizeEntity(e Entity) Entity {
	if e.Plural == "" {
		e.Plural = Pluralize(e.Name)
	}
	if e.TableName == "" {
		e.TableName = SnakeCase(e.Plural)
	}
	if e.Ownership == nil && e.Permissions != nil && e.Permissions.Ownership != nil {
		own := *e.Permissions.Ownership
		e.Ownership = &own
	}

	ops := make([]Operation, 0, len(e.Operations))
	seen := make(map[Operation]bool, len(e.Operations))
	for _, op := range e.Operations {
		if !seen[op] {
			seen[op] = true
			ops = append(ops, op)
		}
	}
	e.Operations = ops

	fields := make([]Field, len(e.Fields))
	for i, f := range e.Fields {
		fields[i] = foldShorthands(f)
	}
	e.Fields = fields
	return e
}

func foldShorthands(f Field) Field {
	if f.RequiredFlag == nil && f.UniqueFlag == nil {
		return f
	}
	var v Validation
	if f.Validation != nil {
		v = *f.Validation
	}
	if f.RequiredFlag != nil {
		v.Required = v.Required || *f.RequiredFlag
	}
	if f.UniqueFlag != nil {
		v.Unique = v.Unique || *f.UniqueFlag
	}
	f.Validation = &v
	f.RequiredFlag, f.UniqueFlag = nil, nil
	return f
}
