package spec

import (
	"fmt"
	"maps"
	"math"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
)

// SupportedVersions is the specVersion constraint this build understands.
const SupportedVersions = ">= 1.0, < 2.0"

var versionConstraint = func() *semver.Constraints {
	c, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		panic(err)
	}
	return c
}()

// validate runs the structural checks the schema cannot express. It expects
// a normalized specification.
func (s *Specification) validate() error {
	var is issues

	if v, err := semver.NewVersion(string(s.SpecVersion)); err != nil {
		is.add("specVersion", "%q is not a version", s.SpecVersion)
	} else if !versionConstraint.Check(v) {
		is.add("specVersion", "unsupported version %s (supported %s)", s.SpecVersion, SupportedVersions)
	}

	if strings.IndexFunc(s.Project.Name, isNameRune) < 0 {
		is.add("project.name", "%q has no letters or digits to derive a package name from", s.Project.Name)
	}

	entityIdx := make(map[string]int, len(s.Entities))
	for i, e := range s.Entities {
		path := fmt.Sprintf("entities[%d]", i)
		if prev, dup := entityIdx[e.Name]; dup {
			is.add(path+".name", "duplicate entity name %q (first declared at entities[%d])", e.Name, prev)
		} else {
			entityIdx[e.Name] = i
		}
		validateEntity(&is, path, &e)
	}

	endpoints := make(map[string]bool, len(s.CustomEndpoints))
	for i, ep := range s.CustomEndpoints {
		key := string(ep.Method) + " " + ep.Path
		if endpoints[key] {
			is.add(fmt.Sprintf("customEndpoints[%d]", i), "duplicate endpoint %s", key)
		}
		endpoints[key] = true
	}

	if id := s.Identity; id != nil && id.GroupEntity == "" {
		if id.GroupHierarchy {
			is.add("identity.groupHierarchy", "requires identity.groupEntity")
		}
		if id.MembershipEntity != "" {
			is.add("identity.membershipEntity", "requires identity.groupEntity")
		}
	}

	if p := s.Permissions; p != nil {
		for _, role := range slices.Sorted(maps.Keys(p.Roles)) {
			for _, parent := range p.Roles[role].Inherits {
				if _, ok := p.Roles[parent]; !ok && parent != "admin" {
					is.add("permissions.roles."+role+".inherits", "unknown role %q", parent)
				}
			}
		}
	}

	return is.err()
}

func validateEntity(is *issues, path string, e *Entity) {
	fieldIdx := make(map[string]bool, len(e.Fields))
	for j := range e.Fields {
		f := &e.Fields[j]
		fpath := fmt.Sprintf("%s.fields[%d]", path, j)
		if fieldIdx[f.Name] {
			is.add(fpath+".name", "duplicate field %q in entity %s", f.Name, e.Name)
		}
		fieldIdx[f.Name] = true
		validateField(is, fpath, f)
	}

	if q := e.Querying; q != nil && q.DefaultLimit > q.MaxLimit {
		is.add(path+".querying.defaultLimit", "defaultLimit %d exceeds maxLimit %d", q.DefaultLimit, q.MaxLimit)
	}
	if o := e.Ownership; o != nil && o.Transferable && o.TransferField == "" {
		is.add(path+".ownership.transferField", "required when transferable is true")
	}
}

func validateField(is *issues, path string, f *Field) {
	switch {
	case f.Type == FieldEnum && len(f.EnumValues) == 0:
		is.add(path+".enumValues", "enum field %q needs at least one value", f.Name)
	case f.Type != FieldEnum && len(f.EnumValues) > 0:
		is.add(path+".enumValues", "only enum fields take enumValues")
	}
	if dup := firstDuplicate(f.EnumValues); dup != "" {
		is.add(path+".enumValues", "duplicate enum value %q", dup)
	}

	switch {
	case f.Type == FieldRelation && f.Relation == nil:
		is.add(path+".relation", "relation field %q needs a relation descriptor", f.Name)
	case f.Type != FieldRelation && f.Relation != nil:
		is.add(path+".relation", "only relation fields take a relation descriptor")
	case f.Relation != nil && f.Relation.Through != "" && f.Relation.Type != ManyToMany:
		is.add(path+".relation.through", "through is only valid for manyToMany relations")
	case f.Relation != nil && strings.EqualFold(f.Name, IDField):
		is.add(path+".name", "relation field cannot be named %q; name it after its target, e.g. %q", f.Name, CamelCase(f.Relation.Target))
	}

	v := f.Validation
	if v == nil {
		return
	}
	vpath := path + ".validation"
	if v.Min != nil && v.Max != nil && *v.Min > *v.Max {
		is.add(vpath+".min", "min %v exceeds max %v", *v.Min, *v.Max)
	}
	if v.MinLength != nil && v.MaxLength != nil && *v.MinLength > *v.MaxLength {
		is.add(vpath+".minLength", "minLength %d exceeds maxLength %d", *v.MinLength, *v.MaxLength)
	}
	if v.Pattern != "" {
		if _, err := regexp.Compile(v.Pattern); err != nil {
			is.add(vpath+".pattern", "invalid pattern: %v", err)
		}
	}
	if v.Default != nil {
		if msg := checkDefault(f, v.Default); msg != "" {
			if f.Type == FieldEnum {
				if s, ok := v.Default.(string); ok {
					is.addSuggest(vpath+".default", s, f.EnumValues, "%s", msg)
					return
				}
			}
			is.add(vpath+".default", "%s", msg)
		}
	}
}

// checkDefault returns a message when def does not fit the field type.
func checkDefault(f *Field, def any) string {
	str, isStr := def.(string)
	num, isNum := def.(float64)
	_, isBool := def.(bool)

	switch f.Type {
	case FieldString, FieldText, FieldEmail, FieldURL:
		if !isStr {
			return fmt.Sprintf("default for %s field must be a string", f.Type)
		}
	case FieldNumber:
		if !isNum {
			return "default for number field must be numeric"
		}
	case FieldInteger:
		if !isNum || num != math.Trunc(num) {
			return "default for integer field must be a whole number"
		}
	case FieldBoolean:
		if !isBool {
			return "default for boolean field must be true or false"
		}
	case FieldUUID:
		if !isStr {
			return "default for uuid field must be a string"
		}
		if _, err := uuid.Parse(str); err != nil {
			return fmt.Sprintf("default %q is not a UUID", str)
		}
	case FieldDate, FieldDateTime:
		if !isStr {
			return fmt.Sprintf("default for %s field must be a string", f.Type)
		}
		if str != "now" && !parsesAsTime(str) {
			return fmt.Sprintf("default %q is neither \"now\" nor an ISO-8601 time", str)
		}
	case FieldEnum:
		if !isStr || !slices.Contains(f.EnumValues, str) {
			return fmt.Sprintf("default %v is not one of the enum values", def)
		}
	case FieldRelation:
		return "relation fields cannot declare a default"
	case FieldJSON:
	}
	return ""
}

func parsesAsTime(s string) bool {
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// isNameRune reports whether r survives into package and database names.
func isNameRune(r rune) bool {
	return unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsDigit(r)
}

func firstDuplicate(vals []string) string {
	seen := make(map[string]bool, len(vals))
	for _, v := range vals {
		if seen[v] {
			return v
		}
		seen[v] = true
	}
	return ""
}
