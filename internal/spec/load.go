package spec

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
	cueyaml "cuelang.org/go/encoding/yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/matthewbaird/turbine/internal/errors"
)

//go:embed schema.cue
var schemaSource []byte

// Format is the encoding of a specification document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatCUE  Format = "cue"
)

// FormatFromPath picks the document format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".cue":
		return FormatCUE, nil
	}
	return "", errors.Newf("unrecognized specification extension %q", filepath.Ext(path))
}

// schemaRuntime owns the CUE context. A cue.Context is not safe for
// concurrent use, so every evaluation holds mu.
type schemaRuntime struct {
	mu  sync.Mutex
	ctx *cue.Context
	def cue.Value
}

var (
	schemaOnce sync.Once
	schemaRT   *schemaRuntime
	schemaErr  error
)

func loadSchema() (*schemaRuntime, error) {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = errors.Wrap(err, "compile specification schema")
			return
		}
		def := v.LookupPath(cue.ParsePath("#Spec"))
		if err := def.Err(); err != nil {
			schemaErr = errors.Wrap(err, "lookup #Spec")
			return
		}
		schemaRT = &schemaRuntime{ctx: ctx, def: def}
	})
	return schemaRT, schemaErr
}

// Parse builds a Specification from an untyped document such as the result
// of decoding YAML or JSON into map[string]any.
func Parse(doc any) (*Specification, error) {
	rt, err := loadSchema()
	if err != nil {
		return nil, err
	}
	rt.mu.Lock()
	s, err := rt.decode(rt.ctx.Encode(doc))
	rt.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return finish(s)
}

// Load builds a Specification from raw document bytes.
func Load(data []byte, format Format) (*Specification, error) {
	rt, err := loadSchema()
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if format == FormatTOML {
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, syntaxError(err)
		}
	}

	rt.mu.Lock()
	var v cue.Value
	switch format {
	case FormatYAML:
		f, err := cueyaml.Extract("spec.yaml", data)
		if err != nil {
			rt.mu.Unlock()
			return nil, syntaxError(err)
		}
		v = rt.ctx.BuildFile(f)
	case FormatJSON:
		expr, err := cuejson.Extract("spec.json", data)
		if err != nil {
			rt.mu.Unlock()
			return nil, syntaxError(err)
		}
		v = rt.ctx.BuildExpr(expr)
	case FormatTOML:
		v = rt.ctx.Encode(doc)
	case FormatCUE:
		v = rt.ctx.CompileBytes(data, cue.Filename("spec.cue"))
	default:
		rt.mu.Unlock()
		return nil, errors.Newf("unsupported specification format %q", format)
	}
	s, err := rt.decode(v)
	rt.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return finish(s)
}

// LoadFile reads and loads the document at path.
func LoadFile(path string) (*Specification, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return Load(data, format)
}

func finish(s *Specification) (*Specification, error) {
	n := s.Normalize()
	if err := n.validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// decode unifies a document with #Spec and decodes the concrete result.
// Callers hold rt.mu.
func (rt *schemaRuntime) decode(doc cue.Value) (*Specification, error) {
	if err := doc.Err(); err != nil {
		return nil, syntaxError(err)
	}
	v := rt.def.Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, schemaIssues(err, doc)
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return nil, schemaIssues(err, doc)
	}
	var s Specification
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, errors.Wrap(err, "decode specification")
	}
	return &s, nil
}

func syntaxError(err error) error {
	return &ValidationError{Issues: []Issue{{Message: "malformed document: " + err.Error()}}}
}

// schemaIssues converts CUE errors into issues, one per path.
func schemaIssues(err error, doc cue.Value) error {
	var out issues
	seen := make(map[string]bool)
	for _, e := range cueerrors.Errors(err) {
		segs := cleanPath(e.Path())
		path := FormatPath(segs)
		if seen[path] {
			continue
		}
		seen[path] = true

		format, args := e.Msg()
		issue := Issue{Path: path, Message: fmt.Sprintf(format, args...)}
		if choices := enumChoices[pathPattern(segs)]; choices != nil {
			if got, err := doc.LookupPath(selectorPath(segs)).String(); err == nil {
				issue.Message = fmt.Sprintf("unknown value %q, expected one of: %s", got, strings.Join(choices, ", "))
				issue.Suggestion = SuggestFrom(got, choices, maxSuggestDistance(got))
			}
		}
		out = append(out, issue)
	}
	if len(out) == 0 {
		out.add("", "%v", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out.err()
}

func cleanPath(segs []string) []string {
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		if strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out
}

// FormatPath renders path segments as entities[0].fields[1].type.
func FormatPath(segs []string) string {
	var b strings.Builder
	for _, s := range segs {
		if _, err := strconv.Atoi(s); err == nil {
			b.WriteString("[" + s + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s)
	}
	return b.String()
}

func pathPattern(segs []string) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		if _, err := strconv.Atoi(s); err == nil {
			parts[i] = "*"
			continue
		}
		parts[i] = s
	}
	return strings.Join(parts, ".")
}

func selectorPath(segs []string) cue.Path {
	sels := make([]cue.Selector, len(segs))
	for i, s := range segs {
		if n, err := strconv.Atoi(s); err == nil {
			sels[i] = cue.Index(n)
			continue
		}
		sels[i] = cue.Str(s)
	}
	return cue.MakePath(sels...)
}

func names[T ~string](vals ...T) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}

var (
	operationNames = names(OpCreate, OpRead, OpUpdate, OpDelete, OpList, OpSearch)
	providerNames  = names(GitHub, GitLab, NoCICD)
)

// enumChoices lists the closed value sets that get "did you mean"
// suggestions, keyed by path pattern.
var enumChoices = map[string][]string{
	"stack.backend":                         names(Fastify, Express, Hono, Elysia),
	"stack.frontend":                        names(React, Vue, Svelte, Solid, NextJS, Nuxt, NoFrontend),
	"stack.orm":                             names(Prisma, Drizzle, TypeORM, Kysely),
	"stack.database":                        names(PostgreSQL, MySQL, SQLite, MongoDB),
	"stack.auth":                            names(AuthJWT, AuthSession, AuthOAuth, AuthPasskey, AuthNone),
	"stack.testing.*":                       names(Vitest, Jest, Playwright, Cypress),
	"stack.cicd":                            providerNames,
	"cicd.provider":                         providerNames,
	"entities.*.operations.*":               operationNames,
	"entities.*.fields.*.type":              fieldTypeNames[:],
	"entities.*.fields.*.visibility":        names(Public, Private, Internal),
	"entities.*.fields.*.relation.type":     relationTypeNames[:],
	"entities.*.fields.*.relation.onDelete": onDeleteNames[1:],
	"entities.*.querying.paginationStyle":   names(PaginationOffset, PaginationCursor),
	"customEndpoints.*.method":              names(MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete),
	"tenancy.model":                         names(TenancyWorkspace, TenancyOrganization, TenancyAccount),
	"permissions.model":                     names(PermOwner, PermRBAC, PermABAC, PermPublic),
}
