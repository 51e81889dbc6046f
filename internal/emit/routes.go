package emit

import (
	"fmt"
	"strings"

	"github.com/matthewbaird/turbine/internal/spec"
	"github.com/matthewbaird/turbine/internal/weave"
)

// opRoute returns the HTTP method and sub-path an operation is served on.
func opRoute(op spec.Operation) (method, path string) {
	switch op {
	case spec.OpList:
		return "GET", "/"
	case spec.OpSearch:
		return "GET", "/search"
	case spec.OpRead:
		return "GET", "/:id"
	case spec.OpCreate:
		return "POST", "/"
	case spec.OpUpdate:
		return "PATCH", "/:id"
	case spec.OpDelete:
		return "DELETE", "/:id"
	}
	return "", ""
}

// routeOrder is the registration order of operations. Static paths
// precede "/:id" so that "/search" is not captured as an identifier.
var routeOrder = []spec.Operation{spec.OpList, spec.OpSearch, spec.OpRead, spec.OpCreate, spec.OpUpdate, spec.OpDelete}

func routeFile(e *weave.Entity) string { return "src/routes/" + nameOf(e).File + ".ts" }

// routesExport is the exported plugin or router of an entity.
func routesExport(e *weave.Entity) string { return nameOf(e).Var + "Routes" }

func emitRoutes(c *Context, out *output) {
	st := c.Spec.Stack
	for _, e := range c.routed() {
		switch {
		case st.Backend == spec.Fastify && st.ORM == spec.Prisma:
			out.file(routeFile(e), fastifyPrismaRoutes(c, e))
		default:
			out.file(routeFile(e), gapRoutes(c, e))
		}
	}
}

// routeModel gathers what the route handlers of one entity need.
type routeModel struct {
	n          naming
	auth       bool
	owner      string // ownership check field
	ownerList  bool   // list narrowed to the caller
	modifier   bool   // inject updatedById
	creator    bool   // inject createdById
	tenant     string // tenant scope field
	softDelete bool
	hidden     []string
	hooks      map[string]bool
	query      spec.Querying
	sortField  string
	filterable []string
	kinds      map[string]string
	searchable []string
	sortable   []string
}

func newRouteModel(c *Context, e *weave.Entity) routeModel {
	ft := c.Spec.Features
	r := routeModel{
		n:          nameOf(e),
		auth:       c.hasAuth(),
		owner:      c.ownerField(e),
		ownerList:  c.ownerFilter(e),
		tenant:     c.tenantFilter(e),
		softDelete: e.SoftDelete,
		hooks:      map[string]bool{},
		query:      e.QueryingOrDefault(),
		kinds:      map[string]string{},
	}
	if c.hasAuth() && e.Owned {
		_, r.creator = e.Field(weave.CreatedByID)
		_, r.modifier = e.Field(weave.UpdatedByID)
	}
	for _, f := range e.AllFields() {
		if hidden(c, f) {
			r.hidden = append(r.hidden, columnOf(f))
		}
	}
	for _, p := range e.Hooks.Points() {
		r.hooks[p.Point] = true
	}

	r.sortField = r.query.DefaultSortField
	if !hasColumn(e, r.sortField) {
		r.sortField = spec.IDField
	}
	if ft.Filtering {
		for _, f := range e.AllFields() {
			if (f.Filterable || isForeignKey(f)) && (f.Link == nil || isForeignKey(f)) && !hidden(c, f) {
				col := columnOf(f)
				r.filterable = append(r.filterable, col)
				r.kinds[col] = filterKind(f)
			}
		}
	}
	if ft.Search {
		r.searchable = fieldNames(e, func(f weave.Field) bool { return f.Searchable && f.Type.IsTextual() })
	}
	if ft.Sorting {
		r.sortable = fieldNames(e, func(f weave.Field) bool {
			return f.Sortable || f.Name == spec.CreatedAtField || f.Name == spec.UpdatedAtField
		})
	}
	return r
}

func hasColumn(e *weave.Entity, name string) bool {
	for _, f := range e.AllFields() {
		if columnOf(f) == name {
			return true
		}
	}
	return false
}

func filterKind(f weave.Field) string {
	switch f.Type {
	case spec.FieldNumber, spec.FieldInteger:
		return "number"
	case spec.FieldBoolean:
		return "boolean"
	case spec.FieldDate, spec.FieldDateTime:
		return "date"
	}
	return "string"
}

// scope renders the where-clause entries every lookup of the entity
// carries, in injection order: owner, tenant, then soft-delete exclusion.
func (r routeModel) scope(list bool) []string {
	var out []string
	if list && r.ownerList {
		out = append(out, fmt.Sprintf("...(isElevated(request.user) ? {} : { %s: request.user!.userId })", r.owner))
	}
	if r.tenant != "" {
		out = append(out, r.tenant+": request.tenantId")
	}
	if r.softDelete {
		out = append(out, "deletedAt: null")
	}
	return out
}

func guardList(c *Context, e *weave.Entity, r routeModel, op spec.Operation) string {
	a := c.accessFor(e, op)
	var g []string
	if a.Auth {
		g = append(g, "requireAuth")
	}
	if len(a.Roles) > 0 {
		g = append(g, "requireRole("+strings.Join(quoteAll(a.Roles), ", ")+")")
	}
	if e.TenantField != "" {
		g = append(g, "requireTenant")
	}
	if len(g) == 0 {
		return ""
	}
	return "{ preHandler: [" + strings.Join(g, ", ") + "] }, "
}

func quoteAll(vals []string) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = tsString(v)
	}
	return out
}

func fastifyPrismaRoutes(c *Context, e *weave.Entity) string {
	r := newRouteModel(c, e)
	n := r.n
	model := "db." + n.Var

	var w cw
	w.line("import type { FastifyPluginAsync } from 'fastify';")
	var typeImports []string
	if e.Allows(spec.OpCreate) {
		typeImports = append(typeImports, "Create"+n.Type+"Schema")
	}
	if e.Allows(spec.OpUpdate) {
		typeImports = append(typeImports, "Update"+n.Type+"Schema")
	}
	if len(typeImports) > 0 {
		w.line("import { %s } from '../types.js';", strings.Join(typeImports, ", "))
	}
	w.line("import { db } from '../db.js';")
	lists := e.Allows(spec.OpList) || e.Allows(spec.OpSearch)
	if lists {
		w.line("import { addPaginationHeaders, buildOrderBy, buildPagination, buildWhere, parseQueryParams } from '../utils/query-builder.js';")
		w.line("import type { FieldKind, QueryOptions } from '../utils/query-builder.js';")
	}
	if c.hasAuth() {
		var mw []string
		if r.owner != "" {
			mw = append(mw, "isElevated")
		}
		mw = append(mw, "requireAuth")
		for _, op := range e.Operations {
			if len(c.accessFor(e, op).Roles) > 0 {
				mw = append(mw, "requireRole")
				break
			}
		}
		w.line("import { %s } from '../middleware/auth.js';", strings.Join(mw, ", "))
	}
	if e.TenantField != "" {
		w.line("import { requireTenant } from '../middleware/tenant.js';")
	}
	if len(r.hooks) > 0 {
		w.line("import * as hooks from '../hooks/%s.js';", n.File)
	}
	w.blank()

	if lists {
		w.line("const FILTERABLE: Record<string, FieldKind> = {%s};", kindsLiteral(r))
		w.line("const SEARCHABLE = %s;", tsStrings(r.searchable))
		w.line("const SORTABLE = %s;", tsStrings(r.sortable))
		w.line("const QUERY_OPTIONS: QueryOptions = {")
		w.line("  defaultLimit: %d,", r.query.DefaultLimit)
		w.line("  maxLimit: %d,", r.query.MaxLimit)
		w.line("  defaultSort: %s,", tsString(r.sortField))
		w.line("  defaultDirection: %s,", tsString(r.query.DefaultSortDirection))
		w.line("  maxSortFields: %d,", r.query.MaxSortFields)
		w.line("  paginationStyle: %s,", tsString(string(r.query.PaginationStyle)))
		w.line("};")
		w.blank()
	}
	present := "item"
	if len(r.hidden) > 0 {
		w.line("function present<T extends Record<string, unknown>>(item: T) {")
		w.line("  const { %s, ...visible } = item;", strings.Join(r.hidden, ", "))
		w.line("  return visible;")
		w.line("}")
		w.blank()
		present = "present(item)"
	}

	w.line("export const %s: FastifyPluginAsync = async (app) => {", routesExport(e))
	first := true
	for _, op := range routeOrder {
		if !e.Allows(op) {
			continue
		}
		if !first {
			w.blank()
		}
		first = false
		guard := guardList(c, e, r, op)
		switch op {
		case spec.OpList:
			writeList(&w, r, model, guard, present, false)
		case spec.OpSearch:
			writeList(&w, r, model, guard, present, true)
		case spec.OpRead:
			writeRead(&w, r, model, guard, present)
		case spec.OpCreate:
			writeCreate(&w, e, r, model, guard, present)
		case spec.OpUpdate:
			writeUpdate(&w, e, r, model, guard, present)
		case spec.OpDelete:
			writeDelete(&w, e, r, model, guard)
		}
	}
	w.line("};")
	return w.String()
}

func kindsLiteral(r routeModel) string {
	if len(r.filterable) == 0 {
		return ""
	}
	parts := make([]string, len(r.filterable))
	for i, f := range r.filterable {
		parts[i] = f + ": " + tsString(r.kinds[f])
	}
	return " " + strings.Join(parts, ", ") + " "
}

func writeList(w *cw, r routeModel, model, guard, present string, search bool) {
	path := "/"
	if search {
		path = "/search"
	}
	w.line("  app.get('%s', %sasync (request, reply) => {", path, guard)
	w.line("    const params = parseQueryParams(request.query as Record<string, unknown>);")
	if search {
		w.line("    if (!params.q) {")
		w.line("      return reply.status(400).send({ error: 'Query parameter q is required' });")
		w.line("    }")
	}
	w.line("    const pagination = buildPagination(params, QUERY_OPTIONS);")
	w.line("    const where = {")
	w.line("      ...buildWhere(params, FILTERABLE, SEARCHABLE),")
	for _, s := range r.scope(true) {
		w.line("      %s,", s)
	}
	w.line("    };")
	w.line("    const [items, total] = await Promise.all([")
	w.line("      %s.findMany({ where, orderBy: buildOrderBy(params, SORTABLE, QUERY_OPTIONS), ...pagination }),", model)
	w.line("      %s.count({ where }),", model)
	w.line("    ]);")
	w.line("    addPaginationHeaders(reply, total, pagination);")
	if present == "item" {
		w.line("    return items;")
	} else {
		w.line("    return items.map((item) => %s);", present)
	}
	w.line("  });")
}

// writeLookup fetches the record and answers 404, then applies the
// ownership check and answers 403.
func writeLookup(w *cw, r routeModel, model, target string) {
	conds := append([]string{"id: request.params.id"}, r.scope(false)...)
	w.line("    const %s = await %s.findFirst({ where: { %s } });", target, model, strings.Join(conds, ", "))
	w.line("    if (!%s) {", target)
	w.line("      return reply.status(404).send({ error: '%s not found' });", r.n.Type)
	w.line("    }")
	if r.owner != "" {
		w.line("    if (!isElevated(request.user) && %s.%s !== request.user!.userId) {", target, r.owner)
		w.line("      return reply.status(403).send({ error: 'Forbidden' });")
		w.line("    }")
	}
}

func writeRead(w *cw, r routeModel, model, guard, present string) {
	w.line("  app.get<{ Params: { id: string } }>('/:id', %sasync (request, reply) => {", guard)
	writeLookup(w, r, model, "item")
	w.line("    return %s;", present)
	w.line("  });")
}

func writeAudit(w *cw, e *weave.Entity, r routeModel, action, id string) {
	if !e.Audit {
		return
	}
	user := "null"
	if r.auth {
		user = "request.user?.userId ?? null"
	}
	w.line("    request.log.info({ audit: { entity: '%s', action: '%s', id: %s, userId: %s } }, 'audit');", e.Name, action, id, user)
}

func writeCreate(w *cw, e *weave.Entity, r routeModel, model, guard, present string) {
	w.line("  app.post('/', %sasync (request, reply) => {", guard)
	if r.hooks["beforeCreate"] {
		w.line("    const input = await hooks.beforeCreate(Create%sSchema.parse(request.body));", r.n.Type)
	} else {
		w.line("    const input = Create%sSchema.parse(request.body);", r.n.Type)
	}
	var inject []string
	if r.creator {
		inject = append(inject, weave.CreatedByID+": request.user!.userId")
	}
	if r.modifier {
		inject = append(inject, weave.UpdatedByID+": request.user!.userId")
	}
	if e.TenantField != "" {
		inject = append(inject, e.TenantField+": request.tenantId!")
	}
	if len(inject) > 0 {
		w.line("    const item = await %s.create({ data: { ...input, %s } });", model, strings.Join(inject, ", "))
	} else {
		w.line("    const item = await %s.create({ data: input });", model)
	}
	if r.hooks["afterCreate"] {
		w.line("    await hooks.afterCreate(item);")
	}
	writeAudit(w, e, r, "create", "item.id")
	w.line("    return reply.status(201).send(%s);", present)
	w.line("  });")
}

func writeUpdate(w *cw, e *weave.Entity, r routeModel, model, guard, present string) {
	w.line("  app.patch<{ Params: { id: string } }>('/:id', %sasync (request, reply) => {", guard)
	writeLookup(w, r, model, "existing")
	if r.hooks["beforeUpdate"] {
		w.line("    const input = await hooks.beforeUpdate(existing, Update%sSchema.parse(request.body));", r.n.Type)
	} else {
		w.line("    const input = Update%sSchema.parse(request.body);", r.n.Type)
	}
	if r.modifier {
		w.line("    const item = await %s.update({ where: { id: existing.id }, data: { ...input, %s: request.user!.userId } });", model, weave.UpdatedByID)
	} else {
		w.line("    const item = await %s.update({ where: { id: existing.id }, data: input });", model)
	}
	if r.hooks["afterUpdate"] {
		w.line("    await hooks.afterUpdate(item);")
	}
	writeAudit(w, e, r, "update", "item.id")
	w.line("    return %s;", present)
	w.line("  });")
}

func writeDelete(w *cw, e *weave.Entity, r routeModel, model, guard string) {
	w.line("  app.delete<{ Params: { id: string } }>('/:id', %sasync (request, reply) => {", guard)
	writeLookup(w, r, model, "existing")
	if r.hooks["beforeDelete"] {
		w.line("    await hooks.beforeDelete(existing);")
	}
	if r.softDelete {
		data := "deletedAt: new Date()"
		if r.modifier {
			data += ", " + weave.UpdatedByID + ": request.user!.userId"
		}
		w.line("    await %s.update({ where: { id: existing.id }, data: { %s } });", model, data)
	} else {
		w.line("    await %s.delete({ where: { id: existing.id } });", model)
	}
	if r.hooks["afterDelete"] {
		w.line("    await hooks.afterDelete(existing);")
	}
	writeAudit(w, e, r, "delete", "existing.id")
	w.line("    return reply.status(204).send();")
	w.line("  });")
}

// gapRoutes renders a route module whose handlers need completion for a
// backend and ORM pairing without a CRUD rule.
func gapRoutes(c *Context, e *weave.Entity) string {
	st := c.Spec.Stack
	n := nameOf(e)
	var w cw
	w.line("// TODO: implement %s routes for %s with %s", n.Type, st.Backend, st.ORM)
	switch st.Backend {
	case spec.Fastify:
		w.line("import type { FastifyPluginAsync } from 'fastify';")
		w.blank()
		w.line("export const %s: FastifyPluginAsync = async (app) => {", routesExport(e))
		for _, op := range routeOrder {
			if !e.Allows(op) {
				continue
			}
			method, path := opRoute(op)
			w.line("  app.%s('%s', async (_request, reply) => {", strings.ToLower(method), path)
			w.line("    %s", gap("%s handler for %s (%s /%s%s)", op, n.Type, method, n.Route, strings.TrimSuffix(path, "/")))
			w.line("    return reply.status(501).send({ error: 'Not implemented' });")
			w.line("  });")
		}
		w.line("};")
	case spec.Express:
		w.line("import { Router } from 'express';")
		w.blank()
		w.line("export const %s = Router();", routesExport(e))
		for _, op := range routeOrder {
			if !e.Allows(op) {
				continue
			}
			method, path := opRoute(op)
			w.line("%s.%s('%s', (_req, res) => {", routesExport(e), strings.ToLower(method), path)
			w.line("  %s", gap("%s handler for %s (%s /%s%s)", op, n.Type, method, n.Route, strings.TrimSuffix(path, "/")))
			w.line("  res.status(501).json({ error: 'Not implemented' });")
			w.line("});")
		}
	default:
		for _, op := range routeOrder {
			if !e.Allows(op) {
				continue
			}
			method, path := opRoute(op)
			w.line("%s", gap("%s handler for %s (%s /%s%s)", op, n.Type, method, n.Route, strings.TrimSuffix(path, "/")))
		}
		w.line("export {};")
	}
	return w.String()
}
