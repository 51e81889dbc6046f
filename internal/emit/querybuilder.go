package emit

import (
	"strconv"

	"github.com/matthewbaird/turbine/internal/spec"
)

const queryBuilderTS = `export type SortDirection = 'asc' | 'desc';
export type FieldKind = 'string' | 'number' | 'boolean' | 'date';

export interface QueryOptions {
  defaultLimit: number;
  maxLimit: number;
  defaultSort: string;
  defaultDirection: SortDirection;
  maxSortFields: number;
  paginationStyle: 'offset' | 'cursor';
}

export interface QueryParams {
  limit?: number;
  offset?: number;
  cursor?: string;
  sort?: string;
  q?: string;
  filters: Record<string, Record<string, string>>;
}

export interface Pagination {
  take: number;
  skip: number;
  cursor?: { id: string };
}

const FILTER_KEY = /^(\w+)(?:\[(\w+)\])?$/;

// Accepts both flat keys ("price[gte]") and parsers that nest them.
export function parseQueryParams(query: Record<string, unknown>): QueryParams {
  const params: QueryParams = { filters: {} };
  for (const [key, raw] of Object.entries(query)) {
    if (raw === undefined || raw === null) continue;
    switch (key) {
      case 'limit':
        params.limit = Number.parseInt(String(raw), 10);
        continue;
      case 'offset':
        params.offset = Number.parseInt(String(raw), 10);
        continue;
      case 'cursor':
        params.cursor = String(raw);
        continue;
      case 'sort':
        params.sort = String(raw);
        continue;
      case 'q':
        params.q = String(raw);
        continue;
    }
    const match = FILTER_KEY.exec(key);
    if (!match) continue;
    const [, field, op] = match;
    const ops = (params.filters[field] ??= {});
    if (typeof raw === 'object' && !Array.isArray(raw)) {
      for (const [nestedOp, value] of Object.entries(raw as Record<string, unknown>)) {
        ops[nestedOp] = String(value);
      }
    } else {
      ops[op ?? 'eq'] = String(raw);
    }
  }
  return params;
}

export function clampLimit(limit: number | undefined, options: QueryOptions): number {
  if (limit === undefined || Number.isNaN(limit)) return options.defaultLimit;
  return Math.min(Math.max(limit, 1), options.maxLimit);
}

export function buildPagination(params: QueryParams, options: QueryOptions): Pagination {
  const take = clampLimit(params.limit, options);
  if (options.paginationStyle === 'cursor' && params.cursor) {
    return { take, skip: 1, cursor: { id: params.cursor } };
  }
  return { take, skip: Math.max(params.offset ?? 0, 0) };
}

function coerce(value: string, kind: FieldKind): unknown {
  switch (kind) {
    case 'number':
      return Number(value);
    case 'boolean':
      return value === 'true';
    case 'date':
      return new Date(value);
    default:
      return value;
  }
}

export function buildWhere(
  params: QueryParams,
  filterable: Record<string, FieldKind>,
  searchable: string[],
): Record<string, unknown> {
  const where: Record<string, unknown> = {};
  for (const [field, ops] of Object.entries(params.filters)) {
    const kind = filterable[field];
    if (!kind) continue;
    const condition: Record<string, unknown> = {};
    for (const [op, value] of Object.entries(ops)) {
      switch (op) {
        case 'eq':
          condition.equals = coerce(value, kind);
          break;
        case 'ne':
          condition.not = coerce(value, kind);
          break;
        case 'contains':
        case 'startsWith':
          if (kind === 'string') condition[op] = value;
          break;
        case 'in':
          condition.in = value.split(',').map((v) => coerce(v.trim(), kind));
          break;
        case 'gt':
        case 'gte':
        case 'lt':
        case 'lte':
          condition[op] = coerce(value, kind);
          break;
      }
    }
    if (Object.keys(condition).length > 0) where[field] = condition;
  }
  if (params.q && searchable.length > 0) {
    where.OR = searchable.map((field) => ({ [field]: search(params.q!) }));
  }
  return where;
}

export function buildOrderBy(
  params: QueryParams,
  sortable: string[],
  options: QueryOptions,
): Record<string, SortDirection>[] {
  const orderBy: Record<string, SortDirection>[] = [];
  for (const part of (params.sort ?? '').split(',')) {
    if (orderBy.length >= options.maxSortFields) break;
    const token = part.trim();
    if (!token) continue;
    const direction: SortDirection = token.startsWith('-') ? 'desc' : 'asc';
    const field = token.replace(/^[-+]/, '');
    if (sortable.includes(field)) orderBy.push({ [field]: direction });
  }
  if (orderBy.length === 0) orderBy.push({ [options.defaultSort]: options.defaultDirection });
  return orderBy;
}

export function addPaginationHeaders(
  reply: { header(name: string, value: string): unknown },
  total: number,
  pagination: Pagination,
): void {
  reply.header('X-Total-Count', String(total));
  reply.header('X-Limit', String(pagination.take));
  reply.header('X-Offset', String(pagination.skip));
}
`

func emitQueryBuilder(c *Context, out *output) {
	if len(c.routed()) == 0 {
		return
	}
	// Case-insensitive matching is a Prisma filter mode on PostgreSQL and
	// MongoDB only.
	insensitive := c.Spec.Stack.Database == spec.PostgreSQL || c.Spec.Stack.Database == spec.MongoDB
	var w cw
	w.line("const CASE_INSENSITIVE = %s;", strconv.FormatBool(insensitive))
	w.blank()
	w.line("function search(term: string): Record<string, unknown> {")
	w.line("  return CASE_INSENSITIVE ? { contains: term, mode: 'insensitive' } : { contains: term };")
	w.line("}")
	w.blank()
	w.raw(queryBuilderTS)
	out.file("src/utils/query-builder.ts", w.String())
}
