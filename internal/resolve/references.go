package resolve

import (
	"fmt"
	"maps"
	"slices"

	"github.com/matthewbaird/turbine/internal/spec"
)

// Known returns every entity name a reference may resolve to: the declared
// entities plus those the weaver synthesizes (tenant, group, membership).
func Known(s *spec.Specification) map[string]bool {
	known := make(map[string]bool, len(s.Entities)+3)
	for _, e := range s.Entities {
		known[e.Name] = true
	}
	if s.TenancyEnabled() {
		known[s.Tenancy.TenantEntity] = true
	}
	if id := s.Identity; id != nil && id.GroupEntity != "" {
		known[id.GroupEntity] = true
		known[id.Membership()] = true
	}
	return known
}

// CheckReferences reports the first configuration value that names an
// entity or field which does not exist. Checks run in document order.
func CheckReferences(s *spec.Specification) error {
	known := Known(s)
	names := slices.Sorted(maps.Keys(known))
	_, hasUser := s.Entity(s.UserEntity())

	entityRef := func(path, name string) error {
		if known[name] {
			return nil
		}
		return &ReferenceError{Path: path, Target: name, Kind: "entity", Suggestion: spec.SuggestFrom(name, names, 2)}
	}

	for i := range s.Entities {
		e := &s.Entities[i]
		path := fmt.Sprintf("entities[%d]", i)
		for j, f := range e.Fields {
			if !f.IsRelation() {
				continue
			}
			fpath := fmt.Sprintf("%s.fields[%d].relation", path, j)
			if err := entityRef(fpath+".target", f.Relation.Target); err != nil {
				return err
			}
			if f.Relation.Through != "" {
				if err := entityRef(fpath+".through", f.Relation.Through); err != nil {
					return err
				}
			}
		}
		if e.Ownership.Tracks() && e.Name != s.UserEntity() && !hasUser {
			return &ReferenceError{Path: path + ".ownership", Target: s.UserEntity(), Kind: "entity"}
		}
		if err := checkEntityFields(path, e); err != nil {
			return err
		}
	}

	if id := s.Identity; id != nil && id.GroupEntity != "" && !hasUser {
		return &ReferenceError{Path: "identity.userEntity", Target: s.UserEntity(), Kind: "entity"}
	}
	if s.TenancyEnabled() {
		for k, name := range s.Tenancy.ScopedEntities {
			if name == "*" {
				continue
			}
			if err := entityRef(fmt.Sprintf("tenancy.scopedEntities[%d]", k), name); err != nil {
				return err
			}
		}
	}
	if p := s.Permissions; p != nil {
		for k, rule := range p.Rules {
			for m, res := range rule.Resources {
				if res == "*" {
					continue
				}
				if err := entityRef(fmt.Sprintf("permissions.rules[%d].resources[%d]", k, m), res); err != nil {
					return err
				}
			}
		}
	}
	for _, name := range slices.Sorted(maps.Keys(s.Seeds)) {
		if err := entityRef("seeds."+name, name); err != nil {
			return err
		}
	}
	return nil
}

// checkEntityFields verifies field names used by projections and querying.
func checkEntityFields(path string, e *spec.Entity) error {
	all := e.AllFields()
	fields := make([]string, len(all))
	for i, f := range all {
		fields[i] = f.Name
	}
	if o := e.Ownership; o.Tracks() {
		fields = append(fields, "createdById", "updatedById")
	}
	fieldRef := func(p, name string) error {
		if name == "*" || slices.Contains(fields, name) {
			return nil
		}
		return &ReferenceError{Path: p, Target: name, Kind: "field", Suggestion: spec.SuggestFrom(name, fields, 2)}
	}

	for _, pname := range slices.Sorted(maps.Keys(e.Projections)) {
		proj := e.Projections[pname]
		ppath := path + ".projections." + pname
		for k, name := range proj.Include {
			if err := fieldRef(fmt.Sprintf("%s.include[%d]", ppath, k), name); err != nil {
				return err
			}
		}
		for k, name := range proj.Exclude {
			if err := fieldRef(fmt.Sprintf("%s.exclude[%d]", ppath, k), name); err != nil {
				return err
			}
		}
	}
	if q := e.Querying; q != nil && e.Timestamps {
		return fieldRef(path+".querying.defaultSortField", q.DefaultSortField)
	}
	return nil
}
