package emit

import (
	"strconv"
	"strings"

	"github.com/matthewbaird/turbine/internal/spec"
	"github.com/matthewbaird/turbine/internal/weave"
)

func emitEntry(c *Context, out *output) {
	switch c.Spec.Stack.Backend {
	case spec.Fastify:
		out.file("src/index.ts", fastifyEntry(c))
	case spec.Express:
		out.file("src/index.ts", expressEntry(c))
	default:
		var w cw
		w.line("// TODO: implement the %s server entry point", c.Spec.Stack.Backend)
		for _, e := range c.routed() {
			w.line("%s", gap("mount %s routes at /%s from ./routes/%s.js", e.Name, nameOf(e).Route, nameOf(e).File))
		}
		w.line("export {};")
		out.file("src/index.ts", w.String())
	}
}

func (c *Context) loginRoute() bool {
	st := c.Spec.Stack
	if st.Auth != spec.AuthJWT || st.Backend != spec.Fastify || st.ORM != spec.Prisma {
		return false
	}
	u, ok := c.Model.Entity(c.Spec.UserEntity())
	if !ok {
		return false
	}
	id := c.identity()
	_, hasIdent := u.Field(id.Identifier)
	_, hasCred := u.Field(id.Credential)
	return hasIdent && hasCred
}

func fastifyEntry(c *Context) string {
	ft := c.Spec.Features
	var w cw
	if ft.Tracing {
		w.line("import './tracing.js';")
	}
	w.line("import Fastify from 'fastify';")
	w.line("import helmet from '@fastify/helmet';")
	if ft.CORS {
		w.line("import cors from '@fastify/cors';")
	}
	if ft.RateLimit {
		w.line("import rateLimit from '@fastify/rate-limit';")
	}
	if ft.OpenAPI && ft.APIDocs {
		w.line("import swagger from '@fastify/swagger';")
		w.line("import swaggerUi from '@fastify/swagger-ui';")
	}
	if ft.Metrics {
		w.line("import client from 'prom-client';")
	}
	w.line("import { errorHandler } from './middleware.js';")
	if c.hasAuth() {
		w.line("import { authMiddleware } from './middleware/auth.js';")
		w.line("import { authRoutes } from './auth.js';")
	}
	if c.Spec.TenancyEnabled() {
		w.line("import { tenantMiddleware } from './middleware/tenant.js';")
	}
	for _, e := range c.routed() {
		w.line("import { %s } from './routes/%s.js';", routesExport(e), nameOf(e).File)
	}
	if len(c.Spec.CustomEndpoints) > 0 {
		w.line("import { customRoutes } from './routes/custom.js';")
	}
	w.blank()
	if ft.Logging {
		w.line("const app = Fastify({ logger: { level: process.env.LOG_LEVEL ?? 'info' } });")
	} else {
		w.line("const app = Fastify({ logger: false });")
	}
	w.blank()
	w.line("await app.register(helmet);")
	if ft.CORS {
		w.line("await app.register(cors, { origin: true });")
	}
	if ft.RateLimit {
		w.line("await app.register(rateLimit, { max: 100, timeWindow: '1 minute' });")
	}
	if ft.OpenAPI && ft.APIDocs {
		w.line("await app.register(swagger, {")
		w.line("  openapi: { info: { title: %s, version: %s } },", tsString(c.Spec.Project.Name), tsString(c.Spec.Project.Version))
		w.line("});")
		w.line("await app.register(swaggerUi, { routePrefix: '/docs' });")
	}
	w.blank()
	w.line("app.setErrorHandler(errorHandler);")
	if c.hasAuth() {
		w.line("app.addHook('onRequest', authMiddleware);")
	}
	if c.Spec.TenancyEnabled() {
		w.line("app.addHook('onRequest', tenantMiddleware);")
	}
	w.blank()
	if ft.HealthCheck {
		w.line("app.get('/health', async () => ({ status: 'ok', timestamp: new Date().toISOString() }));")
	}
	if ft.Metrics {
		w.line("client.collectDefaultMetrics();")
		w.line("app.get('/metrics', async (_request, reply) => {")
		w.line("  reply.header('Content-Type', client.register.contentType);")
		w.line("  return client.register.metrics();")
		w.line("});")
	}
	if c.hasAuth() {
		w.line("await app.register(authRoutes, { prefix: '/auth' });")
	}
	for _, e := range c.routed() {
		w.line("await app.register(%s, { prefix: '/%s' });", routesExport(e), nameOf(e).Route)
	}
	if len(c.Spec.CustomEndpoints) > 0 {
		w.line("await app.register(customRoutes);")
	}
	w.blank()
	w.line("const port = Number(process.env.PORT ?? 3000);")
	w.line("try {")
	w.line("  await app.listen({ port, host: '0.0.0.0' });")
	w.line("} catch (err) {")
	w.line("  app.log.error(err);")
	w.line("  process.exit(1);")
	w.line("}")
	return w.String()
}

func expressEntry(c *Context) string {
	ft := c.Spec.Features
	var w cw
	if ft.Tracing {
		w.line("import './tracing.js';")
	}
	w.line("import express from 'express';")
	w.line("import helmet from 'helmet';")
	if ft.CORS {
		w.line("import cors from 'cors';")
	}
	if ft.RateLimit {
		w.line("import { rateLimit } from 'express-rate-limit';")
	}
	if ft.Logging {
		w.line("import { pinoHttp } from 'pino-http';")
	}
	if ft.Metrics {
		w.line("import client from 'prom-client';")
	}
	w.line("import { errorHandler } from './middleware.js';")
	if c.hasAuth() {
		w.line("import { authMiddleware } from './middleware/auth.js';")
		w.line("import { authRoutes } from './auth.js';")
	}
	if c.Spec.TenancyEnabled() {
		w.line("import { tenantMiddleware } from './middleware/tenant.js';")
	}
	for _, e := range c.routed() {
		w.line("import { %s } from './routes/%s.js';", routesExport(e), nameOf(e).File)
	}
	if len(c.Spec.CustomEndpoints) > 0 {
		w.line("import { customRoutes } from './routes/custom.js';")
	}
	w.blank()
	w.line("const app = express();")
	w.line("app.use(helmet());")
	if ft.CORS {
		w.line("app.use(cors());")
	}
	if ft.RateLimit {
		w.line("app.use(rateLimit({ windowMs: 60_000, limit: 100 }));")
	}
	if ft.Logging {
		w.line("app.use(pinoHttp({ level: process.env.LOG_LEVEL ?? 'info' }));")
	}
	w.line("app.use(express.json());")
	if c.hasAuth() {
		w.line("app.use(authMiddleware);")
	}
	if c.Spec.TenancyEnabled() {
		w.line("app.use(tenantMiddleware);")
	}
	w.blank()
	if ft.HealthCheck {
		w.line("app.get('/health', (_req, res) => {")
		w.line("  res.json({ status: 'ok', timestamp: new Date().toISOString() });")
		w.line("});")
	}
	if ft.Metrics {
		w.line("client.collectDefaultMetrics();")
		w.line("app.get('/metrics', async (_req, res) => {")
		w.line("  res.set('Content-Type', client.register.contentType);")
		w.line("  res.send(await client.register.metrics());")
		w.line("});")
	}
	if c.hasAuth() {
		w.line("app.use('/auth', authRoutes);")
	}
	for _, e := range c.routed() {
		w.line("app.use('/%s', %s);", nameOf(e).Route, routesExport(e))
	}
	if len(c.Spec.CustomEndpoints) > 0 {
		w.line("app.use(customRoutes);")
	}
	w.line("app.use(errorHandler);")
	w.blank()
	w.line("const port = Number(process.env.PORT ?? 3000);")
	w.line("app.listen(port, () => {")
	w.line("  console.log('listening on port ' + port);")
	w.line("});")
	return w.String()
}

func emitAuth(c *Context, out *output) {
	if !c.hasAuth() {
		return
	}
	st := c.Spec.Stack
	var w cw
	if st.Auth != spec.AuthJWT {
		w.line("// TODO: implement %s authentication", st.Auth)
		writeClaims(&w)
		w.blank()
		w.line("export function verifyToken(_token: string): TokenClaims {")
		w.line("  %s", gap("verify a %s credential and return the caller claims", st.Auth))
		w.line("  throw new Error('authentication is not implemented');")
		w.line("}")
		w.blank()
		writeGapAuthRoutes(c, &w)
		out.file("src/auth.ts", w.String())
		return
	}

	w.line("import jwt from 'jsonwebtoken';")
	w.line("import bcrypt from 'bcryptjs';")
	login := c.loginRoute()
	if login {
		w.line("import type { FastifyPluginAsync } from 'fastify';")
		w.line("import { z } from 'zod';")
		w.line("import { db } from './db.js';")
	}
	w.blank()
	w.line("const SECRET = process.env.JWT_SECRET ?? '';")
	w.line("const EXPIRES_IN = '1h';")
	w.blank()
	writeClaims(&w)
	w.blank()
	w.line("export function signToken(claims: TokenClaims): string {")
	w.line("  return jwt.sign(claims, SECRET, { expiresIn: EXPIRES_IN });")
	w.line("}")
	w.blank()
	w.line("export function verifyToken(token: string): TokenClaims {")
	w.line("  return jwt.verify(token, SECRET) as TokenClaims;")
	w.line("}")
	w.blank()
	w.line("export function hashPassword(password: string): Promise<string> {")
	w.line("  return bcrypt.hash(password, 12);")
	w.line("}")
	w.blank()
	w.line("export function verifyPassword(password: string, hash: string): Promise<boolean> {")
	w.line("  return bcrypt.compare(password, hash);")
	w.line("}")
	w.blank()
	if !login {
		writeGapAuthRoutes(c, &w)
		out.file("src/auth.ts", w.String())
		return
	}

	id := c.identity()
	u, _ := c.Model.Entity(c.Spec.UserEntity())
	w.line("const LoginSchema = z.object({ %s: z.string().min(1), password: z.string().min(1) });", id.Identifier)
	w.blank()
	w.line("export const authRoutes: FastifyPluginAsync = async (app) => {")
	w.line("  app.post('/login', async (request, reply) => {")
	w.line("    const { %s, password } = LoginSchema.parse(request.body);", id.Identifier)
	w.line("    const user = await db.%s.findFirst({ where: { %s } });", spec.CamelCase(u.Name), id.Identifier)
	w.line("    if (!user || !(await verifyPassword(password, user.%s))) {", id.Credential)
	w.line("      return reply.status(401).send({ error: 'Invalid credentials' });")
	w.line("    }")
	if _, ok := u.Field(id.Active); ok {
		w.line("    if (user.%s === false) {", id.Active)
		w.line("      return reply.status(403).send({ error: 'Account disabled' });")
		w.line("    }")
	}
	role := "'user'"
	if _, ok := u.Field(id.Role); ok {
		role = "String(user." + id.Role + " ?? 'user')"
	}
	claims := "userId: user.id, role: " + role
	if t := c.Spec.Tenancy; c.Spec.TenancyEnabled() && t.UserTenantRelation == "one" {
		if f, ok := u.Field(t.TenantField); ok && f.Link != nil {
			claims += ", tenantId: user." + f.Link.ForeignKey
		}
	}
	w.line("    return { token: signToken({ %s }) };", claims)
	w.line("  });")
	w.line("};")
	out.file("src/auth.ts", w.String())
}

func writeClaims(w *cw) {
	w.line("export interface TokenClaims {")
	w.line("  userId: string;")
	w.line("  role: string;")
	w.line("  tenantId?: string;")
	w.line("}")
}

func writeGapAuthRoutes(c *Context, w *cw) {
	switch c.Spec.Stack.Backend {
	case spec.Fastify:
		w.line("import type { FastifyPluginAsync } from 'fastify';")
		w.blank()
		w.line("export const authRoutes: FastifyPluginAsync = async (app) => {")
		w.line("  app.post('/login', async (_request, reply) => {")
		w.line("    %s", gap("%s login for %s", c.Spec.Stack.Auth, c.Spec.UserEntity()))
		w.line("    return reply.status(501).send({ error: 'Not implemented' });")
		w.line("  });")
		w.line("};")
	case spec.Express:
		w.line("import { Router } from 'express';")
		w.blank()
		w.line("export const authRoutes = Router();")
		w.line("authRoutes.post('/login', (_req, res) => {")
		w.line("  %s", gap("%s login for %s", c.Spec.Stack.Auth, c.Spec.UserEntity()))
		w.line("  res.status(501).json({ error: 'Not implemented' });")
		w.line("});")
	default:
		w.line("%s", gap("%s login routes for %s", c.Spec.Stack.Auth, c.Spec.Stack.Backend))
	}
}

func emitMiddleware(c *Context, out *output) {
	switch c.Spec.Stack.Backend {
	case spec.Fastify:
		out.file("src/middleware.ts", fastifyErrorHandler(c))
		if c.hasAuth() {
			out.file("src/middleware/auth.ts", fastifyAuthMiddleware(c))
		}
		if c.Spec.TenancyEnabled() {
			out.file("src/middleware/tenant.ts", tenantMiddleware(c, true))
		}
	case spec.Express:
		out.file("src/middleware.ts", expressErrorHandler(c))
		if c.hasAuth() {
			out.file("src/middleware/auth.ts", expressAuthMiddleware(c))
		}
		if c.Spec.TenancyEnabled() {
			out.file("src/middleware/tenant.ts", tenantMiddleware(c, false))
		}
	default:
		var w cw
		w.line("// TODO: implement %s middleware", c.Spec.Stack.Backend)
		w.line("%s", gap("error handling that maps validation errors to 400"))
		if c.hasAuth() {
			w.line("%s", gap("authentication guard that attaches the caller claims"))
		}
		if c.Spec.TenancyEnabled() {
			w.line("%s", gap("tenant resolution from the %s", c.tenantSource()))
		}
		w.line("export {};")
		out.file("src/middleware.ts", w.String())
	}
}

func (c *Context) prismaErrors() bool { return c.Spec.Stack.ORM == spec.Prisma }

func fastifyErrorHandler(c *Context) string {
	var w cw
	w.line("import type { FastifyError, FastifyReply, FastifyRequest } from 'fastify';")
	w.line("import { ZodError } from 'zod';")
	w.blank()
	w.line("export function errorHandler(error: FastifyError, request: FastifyRequest, reply: FastifyReply) {")
	w.line("  if (error instanceof ZodError) {")
	w.line("    return reply.status(400).send({ error: 'Validation failed', issues: error.issues });")
	w.line("  }")
	if c.prismaErrors() {
		w.line("  if (error.code === 'P2002') {")
		w.line("    return reply.status(409).send({ error: 'Unique constraint violated' });")
		w.line("  }")
		w.line("  if (error.code === 'P2003') {")
		w.line("    return reply.status(409).send({ error: 'Related record constraint violated' });")
		w.line("  }")
	}
	w.line("  if (error.statusCode && error.statusCode < 500) {")
	w.line("    return reply.status(error.statusCode).send({ error: error.message });")
	w.line("  }")
	w.line("  request.log.error(error);")
	w.line("  return reply.status(500).send({ error: 'Internal server error' });")
	w.line("}")
	return w.String()
}

func expressErrorHandler(c *Context) string {
	var w cw
	w.line("import type { NextFunction, Request, Response } from 'express';")
	w.line("import { ZodError } from 'zod';")
	w.blank()
	w.line("export function errorHandler(error: unknown, _req: Request, res: Response, _next: NextFunction) {")
	w.line("  if (error instanceof ZodError) {")
	w.line("    res.status(400).json({ error: 'Validation failed', issues: error.issues });")
	w.line("    return;")
	w.line("  }")
	if c.prismaErrors() {
		w.line("  const code = (error as { code?: string }).code;")
		w.line("  if (code === 'P2002' || code === 'P2003') {")
		w.line("    res.status(409).json({ error: 'Constraint violated' });")
		w.line("    return;")
		w.line("  }")
	}
	w.line("  console.error(error);")
	w.line("  res.status(500).json({ error: 'Internal server error' });")
	w.line("}")
	return w.String()
}

func fastifyAuthMiddleware(c *Context) string {
	var w cw
	w.line("import type { FastifyReply, FastifyRequest } from 'fastify';")
	w.line("import { verifyToken, type TokenClaims } from '../auth.js';")
	w.blank()
	w.line("declare module 'fastify' {")
	w.line("  interface FastifyRequest {")
	w.line("    user?: TokenClaims;")
	w.line("  }")
	w.line("}")
	w.blank()
	w.line("export const ELEVATED_ROLES = %s;", tsStrings(c.elevatedRoles()))
	w.blank()
	w.line("export function isElevated(user?: TokenClaims): boolean {")
	w.line("  return user !== undefined && ELEVATED_ROLES.includes(user.role);")
	w.line("}")
	w.blank()
	w.line("export async function authMiddleware(request: FastifyRequest): Promise<void> {")
	w.line("  const header = request.headers.authorization;")
	w.line("  if (!header?.startsWith('Bearer ')) return;")
	w.line("  try {")
	w.line("    request.user = verifyToken(header.slice(7));")
	w.line("  } catch {")
	w.line("    request.user = undefined;")
	w.line("  }")
	w.line("}")
	w.blank()
	w.line("export async function requireAuth(request: FastifyRequest, reply: FastifyReply) {")
	w.line("  if (!request.user) {")
	w.line("    return reply.status(401).send({ error: 'Unauthorized' });")
	w.line("  }")
	w.line("}")
	w.blank()
	w.line("export function requireRole(...roles: string[]) {")
	w.line("  return async (request: FastifyRequest, reply: FastifyReply) => {")
	w.line("    if (!request.user || !roles.includes(request.user.role)) {")
	w.line("      return reply.status(403).send({ error: 'Forbidden' });")
	w.line("    }")
	w.line("  };")
	w.line("}")
	return w.String()
}

func expressAuthMiddleware(c *Context) string {
	var w cw
	w.line("import type { NextFunction, Request, Response } from 'express';")
	w.line("import { verifyToken, type TokenClaims } from '../auth.js';")
	w.blank()
	w.line("declare global {")
	w.line("  namespace Express {")
	w.line("    interface Request {")
	w.line("      user?: TokenClaims;")
	w.line("    }")
	w.line("  }")
	w.line("}")
	w.blank()
	w.line("export const ELEVATED_ROLES = %s;", tsStrings(c.elevatedRoles()))
	w.blank()
	w.line("export function isElevated(user?: TokenClaims): boolean {")
	w.line("  return user !== undefined && ELEVATED_ROLES.includes(user.role);")
	w.line("}")
	w.blank()
	w.line("export function authMiddleware(req: Request, _res: Response, next: NextFunction) {")
	w.line("  const header = req.headers.authorization;")
	w.line("  if (header?.startsWith('Bearer ')) {")
	w.line("    try {")
	w.line("      req.user = verifyToken(header.slice(7));")
	w.line("    } catch {")
	w.line("      req.user = undefined;")
	w.line("    }")
	w.line("  }")
	w.line("  next();")
	w.line("}")
	w.blank()
	w.line("export function requireAuth(req: Request, res: Response, next: NextFunction) {")
	w.line("  if (!req.user) {")
	w.line("    res.status(401).json({ error: 'Unauthorized' });")
	w.line("    return;")
	w.line("  }")
	w.line("  next();")
	w.line("}")
	w.blank()
	w.line("export function requireRole(...roles: string[]) {")
	w.line("  return (req: Request, res: Response, next: NextFunction) => {")
	w.line("    if (!req.user || !roles.includes(req.user.role)) {")
	w.line("      res.status(403).json({ error: 'Forbidden' });")
	w.line("      return;")
	w.line("    }")
	w.line("    next();")
	w.line("  };")
	w.line("}")
	return w.String()
}

// tenantSource describes where a request's tenant comes from.
func (c *Context) tenantSource() string {
	if c.Spec.Tenancy.UserTenantRelation == "one" {
		return "caller token"
	}
	return "x-tenant-id header"
}

func tenantMiddleware(c *Context, fastify bool) string {
	t := c.Spec.Tenancy
	fromToken := t.UserTenantRelation == "one" && c.hasAuth()
	var w cw
	if fastify {
		w.line("import type { FastifyReply, FastifyRequest } from 'fastify';")
		w.blank()
		w.line("declare module 'fastify' {")
		w.line("  interface FastifyRequest {")
		w.line("    tenantId?: string;")
		w.line("  }")
		w.line("}")
	} else {
		w.line("import type { NextFunction, Request, Response } from 'express';")
		w.blank()
		w.line("declare global {")
		w.line("  namespace Express {")
		w.line("    interface Request {")
		w.line("      tenantId?: string;")
		w.line("    }")
		w.line("  }")
		w.line("}")
	}
	w.blank()
	w.line("export const TENANT_HEADER = 'x-tenant-id';")
	w.blank()

	req := "request"
	if fastify {
		w.line("export async function tenantMiddleware(request: FastifyRequest): Promise<void> {")
	} else {
		req = "req"
		w.line("export function tenantMiddleware(req: Request, _res: Response, next: NextFunction) {")
	}
	if fromToken {
		w.line("  %s.tenantId = %s.user?.tenantId;", req, req)
	} else {
		w.line("  const header = %s.headers[TENANT_HEADER];", req)
		w.line("  %s.tenantId = typeof header === 'string' && header !== '' ? header : undefined;", req)
		if c.hasAuth() {
			w.line("  %s", gap("verify that %s.user may act in the requested %s", req, t.TenantEntity))
		}
	}
	if !fastify {
		w.line("  next();")
	}
	w.line("}")
	w.blank()
	if fastify {
		w.line("export async function requireTenant(request: FastifyRequest, reply: FastifyReply) {")
		w.line("  if (!request.tenantId) {")
		w.line("    return reply.status(400).send({ error: 'Missing %s' });", t.TenantEntity)
		w.line("  }")
		w.line("}")
	} else {
		w.line("export function requireTenant(req: Request, res: Response, next: NextFunction) {")
		w.line("  if (!req.tenantId) {")
		w.line("    res.status(400).json({ error: 'Missing %s' });", t.TenantEntity)
		w.line("    return;")
		w.line("  }")
		w.line("  next();")
		w.line("}")
	}
	return w.String()
}

func emitCustom(c *Context, out *output) {
	eps := c.Spec.CustomEndpoints
	if len(eps) == 0 {
		return
	}
	st := c.Spec.Stack
	ft := c.Spec.Features
	var w cw
	switch st.Backend {
	case spec.Fastify:
		w.line("import type { FastifyPluginAsync } from 'fastify';")
		if c.hasAuth() {
			w.line("import { requireAuth } from '../middleware/auth.js';")
		}
		w.blank()
		w.line("export const customRoutes: FastifyPluginAsync = async (app) => {")
		for i, ep := range eps {
			if i > 0 {
				w.blank()
			}
			var opts []string
			if ep.Auth && c.hasAuth() {
				opts = append(opts, "preHandler: [requireAuth]")
			}
			if ep.RateLimit != nil && ft.RateLimit {
				opts = append(opts, "config: { rateLimit: { max: "+strconv.Itoa(*ep.RateLimit)+", timeWindow: '1 minute' } }")
			}
			optStr := ""
			if len(opts) > 0 {
				optStr = "{ " + strings.Join(opts, ", ") + " }, "
			}
			w.line("  // %s", ep.Description)
			w.line("  app.%s('%s', %sasync (_request, reply) => {", strings.ToLower(string(ep.Method)), ep.Path, optStr)
			w.line("    %s", customGap(ep))
			w.line("    return reply.status(501).send({ error: 'Not implemented' });")
			w.line("  });")
		}
		w.line("};")
	case spec.Express:
		w.line("import { Router } from 'express';")
		if c.hasAuth() {
			w.line("import { requireAuth } from '../middleware/auth.js';")
		}
		limited := false
		for _, ep := range eps {
			limited = limited || (ep.RateLimit != nil && ft.RateLimit)
		}
		if limited {
			w.line("import { rateLimit } from 'express-rate-limit';")
		}
		w.blank()
		w.line("export const customRoutes = Router();")
		for _, ep := range eps {
			w.blank()
			var mw []string
			if ep.Auth && c.hasAuth() {
				mw = append(mw, "requireAuth")
			}
			if ep.RateLimit != nil && ft.RateLimit {
				mw = append(mw, "rateLimit({ windowMs: 60_000, limit: "+strconv.Itoa(*ep.RateLimit)+" })")
			}
			mwStr := ""
			if len(mw) > 0 {
				mwStr = strings.Join(mw, ", ") + ", "
			}
			w.line("// %s", ep.Description)
			w.line("customRoutes.%s('%s', %s(_req, res) => {", strings.ToLower(string(ep.Method)), ep.Path, mwStr)
			w.line("  %s", customGap(ep))
			w.line("  res.status(501).json({ error: 'Not implemented' });")
			w.line("});")
		}
	default:
		for _, ep := range eps {
			w.line("%s", customGap(ep))
		}
		w.line("export {};")
	}
	out.file("src/routes/custom.ts", w.String())
}

func customGap(ep spec.CustomEndpoint) string {
	handler := ep.Handler
	if handler == "" {
		handler = "handler"
	}
	return gap("%s for %s %s: %s", handler, ep.Method, ep.Path, ep.Description)
}

func emitHooks(c *Context, out *output) {
	for _, e := range c.Model.Declared() {
		points := e.Hooks.Points()
		if len(points) == 0 {
			continue
		}
		n := nameOf(e)
		var types []string
		types = append(types, n.Type)
		if len(e.Operations) > 0 {
			types = append(types, "Create"+n.Type+"Input", "Update"+n.Type+"Input")
		}
		var w cw
		w.line("import type { %s } from '../types.js';", strings.Join(types, ", "))
		for _, p := range points {
			w.blank()
			writeHook(&w, e, n, p)
		}
		out.file("src/hooks/"+n.File+".ts", w.String())
	}
}

func writeHook(w *cw, e *weave.Entity, n naming, p spec.HookPoint) {
	marker := gap("%s hook %q for %s", p.Point, p.Handler, n.Type)
	input := "Create" + n.Type + "Input"
	if len(e.Operations) == 0 {
		input = "Partial<" + n.Type + ">"
	}
	update := "Update" + n.Type + "Input"
	if len(e.Operations) == 0 {
		update = "Partial<" + n.Type + ">"
	}
	switch p.Point {
	case "beforeCreate":
		w.line("export async function beforeCreate(input: %s): Promise<%s> {", input, input)
		w.line("  %s", marker)
		w.line("  return input;")
	case "beforeUpdate":
		w.line("export async function beforeUpdate(_existing: %s, input: %s): Promise<%s> {", n.Type, update, update)
		w.line("  %s", marker)
		w.line("  return input;")
	case "afterCreate", "afterUpdate":
		w.line("export async function %s(_item: %s): Promise<void> {", p.Point, n.Type)
		w.line("  %s", marker)
	default:
		w.line("export async function %s(_existing: %s): Promise<void> {", p.Point, n.Type)
		w.line("  %s", marker)
	}
	w.line("}")
}
