package emit

import (
	"github.com/matthewbaird/turbine/internal/spec"
)

// emitTesting writes the runner configuration of the selected frameworks.
func emitTesting(c *Context, out *output) {
	st := c.Spec.Stack
	if st.Tests(spec.Vitest) {
		var w cw
		w.line("import { defineConfig } from 'vitest/config';")
		w.blank()
		w.line("export default defineConfig({")
		w.line("  test: {")
		w.line("    include: ['src/**/*.test.ts'],")
		w.line("    environment: 'node',")
		w.line("  },")
		w.line("});")
		out.file("vitest.config.ts", w.String())
	} else if st.Tests(spec.Jest) {
		var w cw
		w.line("/** @type {import('jest').Config} */")
		w.line("export default {")
		w.line("  preset: 'ts-jest',")
		w.line("  testEnvironment: 'node',")
		w.line("  roots: ['<rootDir>/src'],")
		w.line("};")
		out.file("jest.config.js", w.String())
	}
	if st.Tests(spec.Playwright) {
		var w cw
		w.line("import { defineConfig } from '@playwright/test';")
		w.blank()
		w.line("export default defineConfig({")
		w.line("  testDir: 'e2e',")
		w.line("  use: { baseURL: 'http://localhost:3000' },")
		w.line("  webServer: { command: 'npm run dev', url: 'http://localhost:3000/health', reuseExistingServer: true },")
		w.line("});")
		out.file("playwright.config.ts", w.String())

		var t cw
		t.line("import { test, expect } from '@playwright/test';")
		t.blank()
		t.line("test('serves the health probe', async ({ request }) => {")
		t.line("  const res = await request.get('/health');")
		t.line("  expect(res.ok()).toBeTruthy();")
		t.line("});")
		for _, e := range c.routed() {
			if e.Allows(spec.OpList) && !c.hasAuth() {
				t.blank()
				t.line("test('lists %s', async ({ request }) => {", e.Plural)
				t.line("  const res = await request.get('/%s');", nameOf(e).Route)
				t.line("  expect(res.status()).toBe(200);")
				t.line("});")
			}
		}
		if c.hasAuth() {
			t.blank()
			t.line("%s", gap("end-to-end flows that sign in before calling protected routes"))
		}
		out.file("e2e/health.spec.ts", t.String())
	}
}

// emitFeatures writes the optional runtime features. Features without a
// derivable implementation get a gap-marked stub.
func emitFeatures(c *Context, out *output) {
	ft := c.Spec.Features
	hasUI := c.Spec.Stack.Frontend != spec.NoFrontend && c.Spec.Stack.Frontend != ""

	if ft.Tracing {
		var w cw
		w.line("import { NodeSDK } from '@opentelemetry/sdk-node';")
		w.line("import { getNodeAutoInstrumentations } from '@opentelemetry/auto-instrumentations-node';")
		w.blank()
		w.line("const sdk = new NodeSDK({")
		w.line("  serviceName: %s,", tsString(c.packageName()))
		w.line("  instrumentations: [getNodeAutoInstrumentations()],")
		w.line("});")
		w.blank()
		w.line("sdk.start();")
		w.blank()
		w.line("process.on('SIGTERM', () => {")
		w.line("  sdk.shutdown().finally(() => process.exit(0));")
		w.line("});")
		out.file("src/tracing.ts", w.String())
	}
	if ft.GraphQL {
		var w cw
		w.line("%s", gap("GraphQL schema and resolvers"))
		for _, e := range c.routed() {
			w.line("%s", gap("type %s with queries for %s", e.Name, joinOps(e.Operations)))
		}
		w.line("export {};")
		out.file("src/graphql.ts", w.String())
	}
	if ft.WebSockets {
		var w cw
		w.line("%s", gap("WebSocket server and the events it broadcasts"))
		w.line("export {};")
		out.file("src/ws.ts", w.String())
	}
	if ft.Wiki {
		var w cw
		w.line("# %s wiki", c.Spec.Project.Name)
		w.blank()
		w.line("<!-- GAP: architecture overview and operational runbooks -->")
		for _, e := range c.routed() {
			w.blank()
			w.line("## %s", e.Name)
			w.blank()
			if e.Description != "" {
				w.line("%s", e.Description)
				w.blank()
			}
			w.line("<!-- GAP: domain rules of %s -->", e.Name)
		}
		out.file("docs/wiki/Home.md", w.String())
	}
	if !hasUI {
		return
	}
	if ft.I18n {
		var w cw
		w.line("%s", gap("translation catalogs and locale detection"))
		w.line("export const messages: Record<string, Record<string, string>> = { en: {} };")
		out.file("web/src/i18n.ts", w.String())
	}
	if ft.PWA {
		var w cw
		w.line("%s", gap("service worker caching strategy"))
		w.line("export {};")
		out.file("web/src/sw.ts", w.String())
	}
	if ft.Storybook {
		var w cw
		w.line("%s", gap("Storybook configuration for the %s frontend", c.Spec.Stack.Frontend))
		w.line("export default { stories: ['../src/**/*.stories.tsx'] };")
		out.file("web/.storybook/main.ts", w.String())
	}
}
