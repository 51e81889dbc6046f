// Package spec is the typed model of a turbine project specification.
//
// A Specification is built from an untyped document by Parse (or one of the
// Load helpers), which applies the CUE schema in schema.cue for shape checks
// and declarative defaults, runs the structural checks in validate.go, and
// finally normalizes derived names. The returned value is treated as
// read-only by every later pipeline stage.
package spec

import "encoding/json"

// Version is a specVersion value. YAML documents frequently carry it as a
// bare number, so numeric JSON is accepted as its literal text.
type Version string

func (v *Version) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Version(s)
		return nil
	}
	*v = Version(b)
	return nil
}

// Specification is the root of a project specification.
type Specification struct {
	SpecVersion     Version                     `json:"specVersion"`
	Project         ProjectMeta                 `json:"project"`
	Stack           Stack                       `json:"stack"`
	Features        Features                    `json:"features"`
	CICD            CICD                        `json:"cicd"`
	Entities        []Entity                    `json:"entities"`
	CustomEndpoints []CustomEndpoint            `json:"customEndpoints"`
	Seeds           map[string][]map[string]any `json:"seeds,omitempty"`
	Env             map[string]EnvVar           `json:"env"`

	Identity    *IdentityConfig    `json:"identity,omitempty"`
	Tenancy     *TenancyConfig     `json:"tenancy,omitempty"`
	Permissions *PermissionsConfig `json:"permissions,omitempty"`
}

type ProjectMeta struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Author      string   `json:"author,omitempty"`
	License     string   `json:"license"`
	Repository  string   `json:"repository,omitempty"`
	Keywords    []string `json:"keywords"`
}

type Stack struct {
	Backend          Backend            `json:"backend"`
	Frontend         Frontend           `json:"frontend"`
	ORM              ORM                `json:"orm"`
	Database         Database           `json:"database"`
	Auth             AuthStrategy       `json:"auth"`
	Testing          []TestingFramework `json:"testing"`
	Containerization bool               `json:"containerization"`
	CICD             CICDProvider       `json:"cicd"`
}

// HasAuth reports whether an auth strategy other than none is selected.
func (s Stack) HasAuth() bool { return s.Auth != "" && s.Auth != AuthNone }

// Tests reports whether the given framework is selected.
func (s Stack) Tests(f TestingFramework) bool {
	for _, t := range s.Testing {
		if t == f {
			return true
		}
	}
	return false
}

type Features struct {
	OpenAPI    bool `json:"openapi"`
	GraphQL    bool `json:"graphql"`
	WebSockets bool `json:"websockets"`
	RateLimit  bool `json:"rateLimit"`
	CORS       bool `json:"cors"`

	Pagination bool `json:"pagination"`
	Filtering  bool `json:"filtering"`
	Sorting    bool `json:"sorting"`
	Search     bool `json:"search"`

	Logging     bool `json:"logging"`
	Metrics     bool `json:"metrics"`
	Tracing     bool `json:"tracing"`
	HealthCheck bool `json:"healthCheck"`

	Readme    bool `json:"readme"`
	APIDocs   bool `json:"apiDocs"`
	Wiki      bool `json:"wiki"`
	Changelog bool `json:"changelog"`

	DarkMode  bool `json:"darkMode"`
	I18n      bool `json:"i18n"`
	PWA       bool `json:"pwa"`
	Storybook bool `json:"storybook"`
}

type CICD struct {
	Provider    CICDProvider `json:"provider"`
	Branches    Branches     `json:"branches"`
	Stages      Stages       `json:"stages"`
	Deployments []Deployment `json:"deployments"`
}

type Branches struct {
	Main    string `json:"main"`
	Develop string `json:"develop,omitempty"`
	Release string `json:"release,omitempty"`
}

type Stages struct {
	Lint      bool `json:"lint"`
	Typecheck bool `json:"typecheck"`
	Test      bool `json:"test"`
	Build     bool `json:"build"`
	E2E       bool `json:"e2e"`
	Deploy    bool `json:"deploy"`
}

type Deployment struct {
	Name        string `json:"name"`
	Environment string `json:"environment"` // staging | production
	Provider    string `json:"provider"`    // vercel | railway | fly | aws | gcp | docker
	Branch      string `json:"branch"`
	AutoMerge   bool   `json:"autoMerge"`
}

// Entity is a domain object that yields a storage model and CRUD routes.
type Entity struct {
	Name        string      `json:"name"`
	Plural      string      `json:"plural,omitempty"`
	TableName   string      `json:"tableName,omitempty"`
	Description string      `json:"description,omitempty"`
	Fields      []Field     `json:"fields"`
	Operations  []Operation `json:"operations"`
	Timestamps  bool        `json:"timestamps"`
	SoftDelete  bool        `json:"softDelete"`
	Audit       bool        `json:"audit"`
	Hooks       *Hooks      `json:"hooks,omitempty"`

	Ownership   *Ownership            `json:"ownership,omitempty"`
	Permissions *EntityPermissions    `json:"permissions,omitempty"`
	Projections map[string]Projection `json:"projections,omitempty"`
	Querying    *Querying             `json:"querying,omitempty"`

	// Origin names the weaver rule that synthesized this entity when a
	// woven model is fed back as declared input. Empty for document entities.
	Origin string `json:"-"`
}

// Field is a declared attribute of an entity.
type Field struct {
	Name        string      `json:"name"`
	Type        FieldType   `json:"type"`
	Validation  *Validation `json:"validation,omitempty"`
	EnumValues  []string    `json:"enumValues,omitempty"`
	Relation    *Relation   `json:"relation,omitempty"`
	Description string      `json:"description,omitempty"`
	Searchable  bool        `json:"searchable"`
	Sortable    bool        `json:"sortable"`
	Filterable  bool        `json:"filterable"`
	Visibility  Visibility  `json:"visibility"`

	// Document shorthands for validation.required and validation.unique.
	// Normalize folds them into Validation and clears them.
	RequiredFlag *bool `json:"required,omitempty"`
	UniqueFlag   *bool `json:"unique,omitempty"`

	// Origin names the weaver rule that derived this field when a woven
	// model is fed back as declared input. Empty for document fields.
	Origin string `json:"-"`
}

// Required reports whether the field must be present.
func (f Field) Required() bool { return f.Validation != nil && f.Validation.Required }

// Unique reports whether the field carries a uniqueness constraint.
func (f Field) Unique() bool { return f.Validation != nil && f.Validation.Unique }

// Default returns the declared default value and whether one exists.
func (f Field) Default() (any, bool) {
	if f.Validation == nil || f.Validation.Default == nil {
		return nil, false
	}
	return f.Validation.Default, true
}

// IsRelation reports whether the field carries a relation descriptor.
func (f Field) IsRelation() bool { return f.Type == FieldRelation && f.Relation != nil }

type Validation struct {
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Required  bool     `json:"required"`
	Unique    bool     `json:"unique"`
	Default   any      `json:"default,omitempty"`
}

type Relation struct {
	Type       RelationType `json:"type"`
	Target     string       `json:"target"`
	ForeignKey string       `json:"foreignKey,omitempty"`
	Through    string       `json:"through,omitempty"`
	OnDelete   OnDelete     `json:"onDelete,omitempty"`
}

// Hooks holds opaque handler references for lifecycle points.
type Hooks struct {
	BeforeCreate string `json:"beforeCreate,omitempty"`
	AfterCreate  string `json:"afterCreate,omitempty"`
	BeforeUpdate string `json:"beforeUpdate,omitempty"`
	AfterUpdate  string `json:"afterUpdate,omitempty"`
	BeforeDelete string `json:"beforeDelete,omitempty"`
	AfterDelete  string `json:"afterDelete,omitempty"`
}

// HookPoint pairs a lifecycle point with its handler reference.
type HookPoint struct {
	Point   string
	Handler string
}

// Points returns the declared hooks in lifecycle order.
func (h *Hooks) Points() []HookPoint {
	if h == nil {
		return nil
	}
	all := []HookPoint{
		{"beforeCreate", h.BeforeCreate},
		{"afterCreate", h.AfterCreate},
		{"beforeUpdate", h.BeforeUpdate},
		{"afterUpdate", h.AfterUpdate},
		{"beforeDelete", h.BeforeDelete},
		{"afterDelete", h.AfterDelete},
	}
	var out []HookPoint
	for _, p := range all {
		if p.Handler != "" {
			out = append(out, p)
		}
	}
	return out
}

type IdentityFields struct {
	Identifier  string `json:"identifier"`
	Credential  string `json:"credential"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	Active      string `json:"active"`
}

type IdentityConfig struct {
	UserEntity       string         `json:"userEntity"`
	GroupEntity      string         `json:"groupEntity,omitempty"`
	MembershipEntity string         `json:"membershipEntity,omitempty"`
	GroupHierarchy   bool           `json:"groupHierarchy"`
	GroupPermissions bool           `json:"groupPermissions"`
	Fields           IdentityFields `json:"fields"`
}

// Membership returns the membership junction entity name.
func (c *IdentityConfig) Membership() string {
	if c.MembershipEntity != "" {
		return c.MembershipEntity
	}
	return c.GroupEntity + "Membership"
}

type TenancyConfig struct {
	Enabled            bool         `json:"enabled"`
	Model              TenancyModel `json:"model"`
	TenantEntity       string       `json:"tenantEntity"`
	TenantField        string       `json:"tenantField"`
	UserTenantRelation string       `json:"userTenantRelation"` // one | many
	AutoFilter         bool         `json:"autoFilter"`
	ScopedEntities     []string     `json:"scopedEntities"`
	GlobalEntities     []string     `json:"globalEntities"`
}

// IsGlobal reports whether the entity is excluded from tenant scoping.
func (c *TenancyConfig) IsGlobal(entity string) bool {
	for _, g := range c.GlobalEntities {
		if g == entity {
			return true
		}
	}
	return false
}

// IsScoped reports whether the entity is listed as tenant-scoped.
func (c *TenancyConfig) IsScoped(entity string) bool {
	for _, s := range c.ScopedEntities {
		if s == "*" || s == entity {
			return true
		}
	}
	return false
}

type Ownership struct {
	TrackCreator    bool   `json:"trackCreator"`
	TrackModifier   bool   `json:"trackModifier"`
	Transferable    bool   `json:"transferable"`
	TransferField   string `json:"transferField,omitempty"`
	AutoFilter      bool   `json:"autoFilter"`
	AutoFilterField string `json:"autoFilterField"`
}

// Tracks reports whether any ownership field is tracked.
func (o *Ownership) Tracks() bool {
	return o != nil && (o.TrackCreator || o.TrackModifier)
}

type PermissionRule struct {
	Role       string         `json:"role,omitempty"`
	Actions    []Operation    `json:"actions"`
	Resources  []string       `json:"resources"`
	Conditions map[string]any `json:"conditions,omitempty"`
}

type RoleDefinition struct {
	Description string   `json:"description"`
	Inherits    []string `json:"inherits"`
}

type PermissionsConfig struct {
	Model         PermissionModel           `json:"model"`
	DefaultAccess string                    `json:"defaultAccess"` // allow | deny
	Roles         map[string]RoleDefinition `json:"roles"`
	Rules         []PermissionRule          `json:"rules"`
}

type EntityPermissions struct {
	Ownership *Ownership       `json:"ownership,omitempty"`
	Rules     []PermissionRule `json:"rules"`
}

// Projection is a named field subset of an entity.
type Projection struct {
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

type Querying struct {
	DefaultLimit         int             `json:"defaultLimit"`
	MaxLimit             int             `json:"maxLimit"`
	PaginationStyle      PaginationStyle `json:"paginationStyle"`
	DefaultSortField     string          `json:"defaultSortField"`
	DefaultSortDirection string          `json:"defaultSortDirection"`
	MaxSortFields        int             `json:"maxSortFields"`
}

// DefaultQuerying mirrors the defaults of #Querying in schema.cue.
func DefaultQuerying() Querying {
	return Querying{
		DefaultLimit:         20,
		MaxLimit:             100,
		PaginationStyle:      PaginationOffset,
		DefaultSortField:     "createdAt",
		DefaultSortDirection: "desc",
		MaxSortFields:        3,
	}
}

type CustomEndpoint struct {
	Method      HTTPMethod `json:"method"`
	Path        string     `json:"path"`
	Description string     `json:"description"`
	Handler     string     `json:"handler,omitempty"`
	Auth        bool       `json:"auth"`
	RateLimit   *int       `json:"rateLimit,omitempty"`
}

type EnvVar struct {
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Required    bool   `json:"required"`
	Secret      bool   `json:"secret"`
}
