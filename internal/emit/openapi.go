package emit

import (
	"regexp"
	"slices"
	"strings"

	"github.com/matthewbaird/turbine/internal/projection"
	"github.com/matthewbaird/turbine/internal/spec"
	"github.com/matthewbaird/turbine/internal/weave"
)

var pathParam = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

func ref(name string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

// objectSchema documents a field list, leaving out the excluded names.
func objectSchema(fields []spec.Field, skip func(spec.Field) bool, required bool) *orderedMap {
	props := newOrderedMap()
	var req []string
	for _, f := range fields {
		if skip(f) {
			continue
		}
		props.Set(f.Name, projection.OpenAPI(f))
		if required && f.Required() {
			req = append(req, f.Name)
		}
	}
	s := newOrderedMap().Set("type", "object").Set("properties", props)
	if len(req) > 0 {
		s.Set("required", req)
	}
	return s
}

func (c *Context) entitySchemas(e *weave.Entity, schemas *orderedMap) {
	fields := c.schemaFields(e)
	hiddenNames := map[string]bool{}
	for _, f := range e.AllFields() {
		if hidden(c, f) {
			hiddenNames[columnOf(f)] = true
		}
	}
	server := c.serverFields(e)
	schemas.Set(e.Name, objectSchema(fields, func(f spec.Field) bool { return hiddenNames[f.Name] }, true))
	if e.Allows(spec.OpCreate) {
		schemas.Set("Create"+e.Name, objectSchema(fields, func(f spec.Field) bool {
			return slices.Contains(server, f.Name)
		}, true))
	}
	if e.Allows(spec.OpUpdate) {
		schemas.Set("Update"+e.Name, objectSchema(fields, func(f spec.Field) bool {
			return slices.Contains(server, f.Name)
		}, false))
	}
}

func jsonBody(schema any) *orderedMap {
	return newOrderedMap().Set("content", newOrderedMap().
		Set("application/json", newOrderedMap().Set("schema", schema)))
}

func response(desc string, schema any) *orderedMap {
	r := newOrderedMap().Set("description", desc)
	if schema != nil {
		r.Set("content", newOrderedMap().Set("application/json", newOrderedMap().Set("schema", schema)))
	}
	return r
}

func queryParam(name, desc string, schema map[string]any) *orderedMap {
	return newOrderedMap().
		Set("name", name).
		Set("in", "query").
		Set("description", desc).
		Set("schema", schema)
}

func (c *Context) idParam() *orderedMap {
	schema := map[string]any{"type": "string", "format": "uuid"}
	if c.Spec.Stack.Database == spec.MongoDB {
		schema = map[string]any{"type": "string", "pattern": objectIDPattern}
	}
	return newOrderedMap().
		Set("name", "id").
		Set("in", "path").
		Set("required", true).
		Set("schema", schema)
}

func (c *Context) listParams(e *weave.Entity, r routeModel, search bool) []any {
	var params []any
	if search {
		params = append(params, queryParam("q", "Search term", map[string]any{"type": "string"}).Set("required", true))
	}
	if c.Spec.Features.Pagination {
		params = append(params, queryParam("limit", "Page size", map[string]any{
			"type": "integer", "minimum": 1, "maximum": r.query.MaxLimit, "default": r.query.DefaultLimit,
		}))
		if r.query.PaginationStyle == spec.PaginationCursor {
			params = append(params, queryParam("cursor", "Identifier of the last item of the previous page", map[string]any{"type": "string"}))
		} else {
			params = append(params, queryParam("offset", "Number of items to skip", map[string]any{"type": "integer", "minimum": 0}))
		}
	}
	if len(r.sortable) > 0 {
		params = append(params, queryParam("sort", "Comma separated fields, prefixed with - for descending: "+strings.Join(r.sortable, ", "), map[string]any{"type": "string"}))
	}
	for _, col := range r.filterable {
		params = append(params, queryParam(col, "Filter on "+col, map[string]any{"type": "string"}))
	}
	return params
}

func (c *Context) operation(e *weave.Entity, op spec.Operation, r routeModel) *orderedMap {
	n := nameOf(e)
	o := newOrderedMap().
		Set("operationId", string(op)+n.Type).
		Set("tags", []string{e.Plural})
	errs := func(codes ...string) {
		resp := o.values["responses"].(*orderedMap)
		desc := map[string]string{
			"400": "Invalid request",
			"401": "Authentication required",
			"403": "Forbidden",
			"404": "Not found",
			"409": "Conflict",
		}
		for _, code := range codes {
			resp.Set(code, response(desc[code], ref("Error")))
		}
	}
	switch op {
	case spec.OpList, spec.OpSearch:
		summary := "List " + e.Plural
		if op == spec.OpSearch {
			summary = "Search " + e.Plural
		}
		o.Set("summary", summary)
		if params := c.listParams(e, r, op == spec.OpSearch); len(params) > 0 {
			o.Set("parameters", params)
		}
		o.Set("responses", newOrderedMap().Set("200", response("OK", map[string]any{"type": "array", "items": ref(n.Type)})))
		if op == spec.OpSearch {
			errs("400")
		}
	case spec.OpRead:
		o.Set("summary", "Get a "+n.Type).Set("parameters", []any{c.idParam()})
		o.Set("responses", newOrderedMap().Set("200", response("OK", ref(n.Type))))
		errs("404")
	case spec.OpCreate:
		o.Set("summary", "Create a "+n.Type).Set("requestBody", jsonBody(ref("Create"+n.Type)).Set("required", true))
		o.Set("responses", newOrderedMap().Set("201", response("Created", ref(n.Type))))
		errs("400", "409")
	case spec.OpUpdate:
		o.Set("summary", "Update a "+n.Type).Set("parameters", []any{c.idParam()}).Set("requestBody", jsonBody(ref("Update"+n.Type)).Set("required", true))
		o.Set("responses", newOrderedMap().Set("200", response("OK", ref(n.Type))))
		errs("400", "404", "409")
	case spec.OpDelete:
		o.Set("summary", "Delete a "+n.Type).Set("parameters", []any{c.idParam()})
		o.Set("responses", newOrderedMap().Set("204", response("Deleted", nil)))
		errs("404")
	}
	a := c.accessFor(e, op)
	if a.Auth {
		o.Set("security", []any{map[string]any{"bearerAuth": []string{}}})
		errs("401")
		if len(a.Roles) > 0 || r.owner != "" {
			errs("403")
		}
	}
	return o
}

// openAPIDocument builds the OpenAPI 3.1 description of the generated API.
func openAPIDocument(c *Context) *orderedMap {
	p := c.Spec.Project
	info := newOrderedMap().Set("title", p.Name).Set("version", p.Version)
	if p.Description != "" {
		info.Set("description", p.Description)
	}
	if p.License != "" {
		info.Set("license", map[string]any{"name": p.License})
	}

	paths := newOrderedMap()
	if c.Spec.Features.HealthCheck {
		paths.Set("/health", newOrderedMap().Set("get", newOrderedMap().
			Set("operationId", "health").
			Set("summary", "Liveness probe").
			Set("responses", newOrderedMap().Set("200", response("OK", nil)))))
	}
	if c.loginRoute() {
		id := c.identity()
		body := newOrderedMap().Set("type", "object").
			Set("properties", newOrderedMap().
				Set(id.Identifier, map[string]any{"type": "string"}).
				Set("password", map[string]any{"type": "string"})).
			Set("required", []string{id.Identifier, "password"})
		paths.Set("/auth/login", newOrderedMap().Set("post", newOrderedMap().
			Set("operationId", "login").
			Set("summary", "Exchange credentials for a token").
			Set("tags", []string{"auth"}).
			Set("requestBody", jsonBody(body).Set("required", true)).
			Set("responses", newOrderedMap().
				Set("200", response("OK", map[string]any{
					"type":       "object",
					"properties": map[string]any{"token": map[string]any{"type": "string"}},
				})).
				Set("401", response("Invalid credentials", ref("Error"))))))
	}

	schemas := newOrderedMap()
	schemas.Set("Error", newOrderedMap().Set("type", "object").
		Set("properties", newOrderedMap().
			Set("error", map[string]any{"type": "string"}).
			Set("details", map[string]any{})).
		Set("required", []string{"error"}))

	for _, e := range c.routed() {
		c.entitySchemas(e, schemas)
		r := newRouteModel(c, e)
		base := "/" + nameOf(e).Route
		for _, op := range routeOrder {
			if !e.Allows(op) {
				continue
			}
			method, sub := opRoute(op)
			path := strings.TrimSuffix(base+pathParam.ReplaceAllString(sub, "{$1}"), "/")
			item, ok := paths.values[path].(*orderedMap)
			if !ok {
				item = newOrderedMap()
				paths.Set(path, item)
			}
			item.Set(strings.ToLower(method), c.operation(e, op, r))
		}
	}

	for _, ep := range c.Spec.CustomEndpoints {
		path := pathParam.ReplaceAllString(ep.Path, "{$1}")
		item, ok := paths.values[path].(*orderedMap)
		if !ok {
			item = newOrderedMap()
			paths.Set(path, item)
		}
		o := newOrderedMap().Set("summary", ep.Description)
		var params []any
		for _, m := range pathParam.FindAllStringSubmatch(ep.Path, -1) {
			params = append(params, newOrderedMap().
				Set("name", m[1]).
				Set("in", "path").
				Set("required", true).
				Set("schema", map[string]any{"type": "string"}))
		}
		if len(params) > 0 {
			o.Set("parameters", params)
		}
		if ep.Auth && c.hasAuth() {
			o.Set("security", []any{map[string]any{"bearerAuth": []string{}}})
		}
		o.Set("responses", newOrderedMap().Set("501", response("Not implemented", ref("Error"))))
		item.Set(strings.ToLower(string(ep.Method)), o)
	}

	components := newOrderedMap().Set("schemas", schemas)
	if c.hasAuth() {
		components.Set("securitySchemes", map[string]any{
			"bearerAuth": map[string]any{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
		})
	}
	return newOrderedMap().
		Set("openapi", "3.1.0").
		Set("info", info).
		Set("servers", []any{map[string]any{"url": "http://localhost:3000"}}).
		Set("paths", paths).
		Set("components", components)
}

func emitOpenAPI(c *Context, out *output) {
	ft := c.Spec.Features
	if !ft.OpenAPI && !ft.APIDocs {
		return
	}
	doc, err := prettyJSON(openAPIDocument(c))
	if err != nil {
		out.fail("openapi.json", "render: %v", err)
		return
	}
	out.file("openapi.json", doc)
}
