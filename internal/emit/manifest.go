package emit

import (
	"maps"
	"slices"

	"github.com/matthewbaird/turbine/internal/spec"
)

// Pinned package versions for generated manifests.
var versions = map[string]string{
	"fastify":                                   "^4.28.1",
	"@fastify/cors":                             "^9.0.1",
	"@fastify/helmet":                           "^11.1.1",
	"@fastify/rate-limit":                       "^9.1.0",
	"@fastify/swagger":                          "^8.15.0",
	"@fastify/swagger-ui":                       "^4.1.0",
	"express":                                   "^4.19.2",
	"cors":                                      "^2.8.5",
	"helmet":                                    "^7.1.0",
	"express-rate-limit":                        "^7.4.0",
	"pino-http":                                 "^10.2.0",
	"hono":                                      "^4.5.5",
	"@hono/node-server":                         "^1.12.1",
	"elysia":                                    "^1.1.6",
	"zod":                                       "^3.23.8",
	"@prisma/client":                            "^5.18.0",
	"prisma":                                    "^5.18.0",
	"drizzle-orm":                               "^0.33.0",
	"drizzle-kit":                               "^0.24.0",
	"kysely":                                    "^0.27.4",
	"typeorm":                                   "^0.3.20",
	"reflect-metadata":                          "^0.2.2",
	"pg":                                        "^8.12.0",
	"mysql2":                                    "^3.11.0",
	"better-sqlite3":                            "^11.1.2",
	"jsonwebtoken":                              "^9.0.2",
	"bcryptjs":                                  "^2.4.3",
	"prom-client":                               "^15.1.3",
	"@opentelemetry/sdk-node":                   "^0.52.1",
	"@opentelemetry/auto-instrumentations-node": "^0.49.1",
	"react":                                     "^18.3.1",
	"react-dom":                                 "^18.3.1",
	"vite":                                      "^5.4.0",
	"@vitejs/plugin-react":                      "^4.3.1",
	"typescript":                                "^5.5.4",
	"tsx":                                       "^4.17.0",
	"eslint":                                    "^9.9.0",
	"typescript-eslint":                         "^8.0.1",
	"vitest":                                    "^2.0.5",
	"jest":                                      "^29.7.0",
	"ts-jest":                                   "^29.2.4",
	"@playwright/test":                          "^1.46.0",
	"cypress":                                   "^13.13.2",
	"@types/node":                               "^20.14.15",
	"@types/express":                            "^4.17.21",
	"@types/cors":                               "^2.8.17",
	"@types/jsonwebtoken":                       "^9.0.6",
	"@types/bcryptjs":                           "^2.4.6",
	"@types/pg":                                 "^8.11.6",
	"@types/better-sqlite3":                     "^7.6.11",
	"@types/react":                              "^18.3.3",
	"@types/react-dom":                          "^18.3.0",
	"@types/jest":                               "^29.5.12",
}

// deps is a set of package names resolved against versions.
type deps map[string]bool

func (d deps) add(names ...string) {
	for _, n := range names {
		d[n] = true
	}
}

func (d deps) render() *orderedMap {
	om := newOrderedMap()
	for _, n := range slices.Sorted(maps.Keys(d)) {
		om.Set(n, versions[n])
	}
	return om
}

// driverPackages lists the node driver a SQL ORM needs for the database.
func driverPackages(db spec.Database) (dep, types string) {
	switch db {
	case spec.MySQL:
		return "mysql2", ""
	case spec.SQLite:
		return "better-sqlite3", "@types/better-sqlite3"
	case spec.MongoDB:
		return "", ""
	}
	return "pg", "@types/pg"
}

func (c *Context) dependencies() (prod, dev deps) {
	st := c.Spec.Stack
	ft := c.Spec.Features
	prod, dev = deps{}, deps{}
	prod.add("zod")
	dev.add("typescript", "tsx", "@types/node", "eslint", "typescript-eslint")

	switch st.Backend {
	case spec.Fastify:
		prod.add("fastify", "@fastify/helmet")
		if ft.CORS {
			prod.add("@fastify/cors")
		}
		if ft.RateLimit {
			prod.add("@fastify/rate-limit")
		}
		if ft.OpenAPI && ft.APIDocs {
			prod.add("@fastify/swagger", "@fastify/swagger-ui")
		}
	case spec.Express:
		prod.add("express", "helmet")
		dev.add("@types/express")
		if ft.CORS {
			prod.add("cors")
			dev.add("@types/cors")
		}
		if ft.RateLimit {
			prod.add("express-rate-limit")
		}
		if ft.Logging {
			prod.add("pino-http")
		}
	case spec.Hono:
		prod.add("hono", "@hono/node-server")
	case spec.Elysia:
		prod.add("elysia")
	}

	driver, driverTypes := driverPackages(st.Database)
	switch st.ORM {
	case spec.Prisma:
		prod.add("@prisma/client")
		dev.add("prisma")
	case spec.Drizzle:
		prod.add("drizzle-orm")
		dev.add("drizzle-kit")
	case spec.Kysely:
		prod.add("kysely")
	case spec.TypeORM:
		prod.add("typeorm", "reflect-metadata")
	}
	if st.ORM != spec.Prisma && driver != "" {
		prod.add(driver)
		if driverTypes != "" {
			dev.add(driverTypes)
		}
	}

	if st.Auth == spec.AuthJWT {
		prod.add("jsonwebtoken", "bcryptjs")
		dev.add("@types/jsonwebtoken", "@types/bcryptjs")
	}
	if ft.Metrics {
		prod.add("prom-client")
	}
	if ft.Tracing {
		prod.add("@opentelemetry/sdk-node", "@opentelemetry/auto-instrumentations-node")
	}

	if st.Frontend == spec.React {
		prod.add("react", "react-dom")
		dev.add("vite", "@vitejs/plugin-react", "@types/react", "@types/react-dom")
	}

	for _, t := range st.Testing {
		switch t {
		case spec.Vitest:
			dev.add("vitest")
		case spec.Jest:
			dev.add("jest", "ts-jest", "@types/jest")
		case spec.Playwright:
			dev.add("@playwright/test")
		case spec.Cypress:
			dev.add("cypress")
		}
	}
	return prod, dev
}

func (c *Context) scripts() *orderedMap {
	st := c.Spec.Stack
	s := newOrderedMap()
	s.Set("dev", "tsx watch src/index.ts")
	s.Set("build", "tsc -p tsconfig.json")
	s.Set("start", "node dist/index.js")
	s.Set("lint", "eslint src")
	s.Set("typecheck", "tsc --noEmit")

	switch {
	case st.Tests(spec.Vitest):
		s.Set("test", "vitest run")
	case st.Tests(spec.Jest):
		s.Set("test", "jest")
	default:
		s.Set("test", "echo \"no unit test runner selected\" && exit 0")
	}
	switch {
	case st.Tests(spec.Playwright):
		s.Set("test:e2e", "playwright test")
	case st.Tests(spec.Cypress):
		s.Set("test:e2e", "cypress run")
	}

	switch st.ORM {
	case spec.Prisma:
		s.Set("db:generate", "prisma generate")
		s.Set("db:migrate", "prisma migrate dev")
		if len(c.Spec.Seeds) > 0 {
			s.Set("db:seed", "tsx prisma/seed.ts")
		}
	case spec.Drizzle:
		s.Set("db:generate", "drizzle-kit generate")
		s.Set("db:migrate", "drizzle-kit migrate")
	case spec.Kysely:
		switch st.Database {
		case spec.MySQL:
			s.Set("db:migrate", "mysql \"$DATABASE_URL\" < migrations/0001_init.sql")
		case spec.SQLite:
			s.Set("db:migrate", "sqlite3 \"${DATABASE_URL#file:}\" < migrations/0001_init.sql")
		default:
			s.Set("db:migrate", "psql \"$DATABASE_URL\" -f migrations/0001_init.sql")
		}
	}

	if st.Frontend == spec.React {
		s.Set("dev:web", "vite web")
		s.Set("build:web", "vite build web")
	}
	return s
}

func emitManifest(c *Context, out *output) {
	p := c.Spec.Project
	pkg := newOrderedMap()
	pkg.Set("name", c.packageName())
	pkg.Set("version", p.Version)
	pkg.Set("description", p.Description)
	if p.Author != "" {
		pkg.Set("author", p.Author)
	}
	pkg.Set("license", p.License)
	if p.Repository != "" {
		pkg.Set("repository", newOrderedMap().Set("type", "git").Set("url", p.Repository))
	}
	keywords := p.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	pkg.Set("keywords", keywords)
	pkg.Set("type", "module")
	pkg.Set("main", "dist/index.js")
	pkg.Set("engines", newOrderedMap().Set("node", ">=20"))
	pkg.Set("scripts", c.scripts())

	prod, dev := c.dependencies()
	pkg.Set("dependencies", prod.render())
	pkg.Set("devDependencies", dev.render())
	if c.Spec.Stack.ORM == spec.Prisma && len(c.Spec.Seeds) > 0 {
		pkg.Set("prisma", newOrderedMap().Set("seed", "tsx prisma/seed.ts"))
	}

	content, err := prettyJSON(pkg)
	if err != nil {
		out.fail("package.json", "encode manifest: %v", err)
		return
	}
	out.file("package.json", content)
}

func emitTSConfig(c *Context, out *output) {
	opts := newOrderedMap().
		Set("target", "ES2022").
		Set("module", "NodeNext").
		Set("moduleResolution", "NodeNext").
		Set("outDir", "dist").
		Set("rootDir", "src").
		Set("strict", true).
		Set("esModuleInterop", true).
		Set("skipLibCheck", true).
		Set("forceConsistentCasingInFileNames", true).
		Set("resolveJsonModule", true).
		Set("declaration", false).
		Set("sourceMap", true)
	if c.Spec.Stack.ORM == spec.TypeORM {
		opts.Set("experimentalDecorators", true)
		opts.Set("emitDecoratorMetadata", true)
	}
	cfg := newOrderedMap().
		Set("compilerOptions", opts).
		Set("include", []string{"src/**/*.ts"}).
		Set("exclude", []string{"node_modules", "dist", "web"})

	content, err := prettyJSON(cfg)
	if err != nil {
		out.fail("tsconfig.json", "encode tsconfig: %v", err)
		return
	}
	out.file("tsconfig.json", content)
}
