package spec

import (
	"fmt"
)

// FieldType is the closed set of abstract field types. Every projection
// switches over it; TestProjectionTotality in internal/projection fails when
// a new tag is added without a projection for it.
type FieldType int

const (
	FieldString FieldType = iota
	FieldText
	FieldNumber
	FieldInteger
	FieldBoolean
	FieldDate
	FieldDateTime
	FieldUUID
	FieldEmail
	FieldURL
	FieldJSON
	FieldEnum
	FieldRelation
)

var fieldTypeNames = [...]string{
	FieldString:   "string",
	FieldText:     "text",
	FieldNumber:   "number",
	FieldInteger:  "integer",
	FieldBoolean:  "boolean",
	FieldDate:     "date",
	FieldDateTime: "datetime",
	FieldUUID:     "uuid",
	FieldEmail:    "email",
	FieldURL:      "url",
	FieldJSON:     "json",
	FieldEnum:     "enum",
	FieldRelation: "relation",
}

// FieldTypes lists every FieldType in declaration order.
func FieldTypes() []FieldType {
	out := make([]FieldType, len(fieldTypeNames))
	for i := range fieldTypeNames {
		out[i] = FieldType(i)
	}
	return out
}

// String returns the document spelling of the type.
func (t FieldType) String() string {
	if t >= 0 && int(t) < len(fieldTypeNames) {
		return fieldTypeNames[t]
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t FieldType) MarshalText() ([]byte, error) {
	if t < 0 || int(t) >= len(fieldTypeNames) {
		return nil, fmt.Errorf("invalid field type %d", int(t))
	}
	return []byte(fieldTypeNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *FieldType) UnmarshalText(b []byte) error {
	for i, name := range fieldTypeNames {
		if name == string(b) {
			*t = FieldType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown field type %q", string(b))
}

// IsTemporal reports whether values of this type are points in time.
func (t FieldType) IsTemporal() bool {
	return t == FieldDate || t == FieldDateTime
}

// IsTextual reports whether values of this type are strings at rest.
func (t FieldType) IsTextual() bool {
	switch t {
	case FieldString, FieldText, FieldEmail, FieldURL, FieldUUID:
		return true
	default:
		return false
	}
}

// RelationType is the kind of a relation descriptor.
type RelationType int

const (
	HasOne RelationType = iota
	HasMany
	BelongsTo
	ManyToMany
)

var relationTypeNames = [...]string{
	HasOne:     "hasOne",
	HasMany:    "hasMany",
	BelongsTo:  "belongsTo",
	ManyToMany: "manyToMany",
}

func (r RelationType) String() string {
	if r >= 0 && int(r) < len(relationTypeNames) {
		return relationTypeNames[r]
	}
	return fmt.Sprintf("RelationType(%d)", int(r))
}

func (r RelationType) MarshalText() ([]byte, error) {
	if r < 0 || int(r) >= len(relationTypeNames) {
		return nil, fmt.Errorf("invalid relation type %d", int(r))
	}
	return []byte(relationTypeNames[r]), nil
}

func (r *RelationType) UnmarshalText(b []byte) error {
	for i, name := range relationTypeNames {
		if name == string(b) {
			*r = RelationType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown relation type %q", string(b))
}

// OnDelete is the referential action applied when a relation target is
// removed. The zero value means the document did not choose one.
type OnDelete int

const (
	OnDeleteUnset OnDelete = iota
	Cascade
	SetNull
	Restrict
	NoAction
)

var onDeleteNames = [...]string{
	OnDeleteUnset: "",
	Cascade:       "cascade",
	SetNull:       "setNull",
	Restrict:      "restrict",
	NoAction:      "noAction",
}

func (o OnDelete) String() string {
	if o >= 0 && int(o) < len(onDeleteNames) {
		return onDeleteNames[o]
	}
	return fmt.Sprintf("OnDelete(%d)", int(o))
}

func (o OnDelete) MarshalText() ([]byte, error) {
	if o < 0 || int(o) >= len(onDeleteNames) {
		return nil, fmt.Errorf("invalid onDelete %d", int(o))
	}
	return []byte(onDeleteNames[o]), nil
}

func (o *OnDelete) UnmarshalText(b []byte) error {
	for i, name := range onDeleteNames {
		if name == string(b) {
			*o = OnDelete(i)
			return nil
		}
	}
	return fmt.Errorf("unknown onDelete action %q", string(b))
}

// OrDefault resolves an unset action to cascade.
func (o OnDelete) OrDefault() OnDelete {
	if o == OnDeleteUnset {
		return Cascade
	}
	return o
}

// Operation is a CRUD-style operation an entity exposes.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpList   Operation = "list"
	OpSearch Operation = "search"
)

// DefaultOperations is used when an entity does not list its operations.
var DefaultOperations = []Operation{OpCreate, OpRead, OpUpdate, OpDelete, OpList}

type Visibility string

const (
	Public   Visibility = "public"
	Private  Visibility = "private"
	Internal Visibility = "internal"
)

type Backend string

const (
	Fastify Backend = "fastify"
	Express Backend = "express"
	Hono    Backend = "hono"
	Elysia  Backend = "elysia"
)

type Frontend string

const (
	React      Frontend = "react"
	Vue        Frontend = "vue"
	Svelte     Frontend = "svelte"
	Solid      Frontend = "solid"
	NextJS     Frontend = "nextjs"
	Nuxt       Frontend = "nuxt"
	NoFrontend Frontend = "none"
)

type ORM string

const (
	Prisma  ORM = "prisma"
	Drizzle ORM = "drizzle"
	TypeORM ORM = "typeorm"
	Kysely  ORM = "kysely"
)

type Database string

const (
	PostgreSQL Database = "postgresql"
	MySQL      Database = "mysql"
	SQLite     Database = "sqlite"
	MongoDB    Database = "mongodb"
)

// IsSQL reports whether the database speaks SQL.
func (d Database) IsSQL() bool { return d != MongoDB }

type AuthStrategy string

const (
	AuthJWT     AuthStrategy = "jwt"
	AuthSession AuthStrategy = "session"
	AuthOAuth   AuthStrategy = "oauth"
	AuthPasskey AuthStrategy = "passkey"
	AuthNone    AuthStrategy = "none"
)

type TestingFramework string

const (
	Vitest     TestingFramework = "vitest"
	Jest       TestingFramework = "jest"
	Playwright TestingFramework = "playwright"
	Cypress    TestingFramework = "cypress"
)

type CICDProvider string

const (
	GitHub CICDProvider = "github"
	GitLab CICDProvider = "gitlab"
	NoCICD CICDProvider = "none"
)

type PermissionModel string

const (
	PermOwner  PermissionModel = "owner"
	PermRBAC   PermissionModel = "rbac"
	PermABAC   PermissionModel = "abac"
	PermPublic PermissionModel = "public"
)

type TenancyModel string

const (
	TenancyWorkspace    TenancyModel = "workspace"
	TenancyOrganization TenancyModel = "organization"
	TenancyAccount      TenancyModel = "account"
)

type PaginationStyle string

const (
	PaginationOffset PaginationStyle = "offset"
	PaginationCursor PaginationStyle = "cursor"
)

type HTTPMethod string

const (
	MethodGet    HTTPMethod = "GET"
	MethodPost   HTTPMethod = "POST"
	MethodPut    HTTPMethod = "PUT"
	MethodPatch  HTTPMethod = "PATCH"
	MethodDelete HTTPMethod = "DELETE"
)
