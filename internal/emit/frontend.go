package emit

import (
	"strings"

	"github.com/matthewbaird/turbine/internal/spec"
	"github.com/matthewbaird/turbine/internal/weave"
)

func emitFrontend(c *Context, out *output) {
	switch fe := c.Spec.Stack.Frontend; fe {
	case spec.NoFrontend, "":
		return
	case spec.React:
		emitReact(c, out)
	default:
		var w cw
		w.line("// TODO: implement the %s frontend", fe)
		for _, e := range c.routed() {
			w.line("%s", gap("%s views backed by /api/%s", e.Name, nameOf(e).Route))
		}
		w.line("export {};")
		out.file("web/src/main.ts", w.String())
	}
}

func emitReact(c *Context, out *output) {
	var v cw
	v.line("import { defineConfig } from 'vite';")
	v.line("import react from '@vitejs/plugin-react';")
	v.blank()
	v.line("export default defineConfig({")
	v.line("  plugins: [react()],")
	v.line("  server: {")
	v.line("    proxy: {")
	v.line("      '/api': { target: 'http://localhost:3000', rewrite: (path) => path.replace(/^\\/api/, '') },")
	v.line("    },")
	v.line("  },")
	v.line("});")
	out.file("web/vite.config.ts", v.String())

	var h cw
	h.line("<!doctype html>")
	h.line("<html lang=\"en\">")
	h.line("  <head>")
	h.line("    <meta charset=\"UTF-8\" />")
	h.line("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\" />")
	h.line("    <title>%s</title>", htmlEscape(c.Spec.Project.Name))
	h.line("  </head>")
	h.line("  <body>")
	h.line("    <div id=\"root\"></div>")
	h.line("    <script type=\"module\" src=\"/src/main.tsx\"></script>")
	h.line("  </body>")
	h.line("</html>")
	out.file("web/index.html", h.String())

	var m cw
	m.line("import { StrictMode } from 'react';")
	m.line("import { createRoot } from 'react-dom/client';")
	m.line("import { App } from './App';")
	m.line("import './index.css';")
	m.blank()
	m.line("createRoot(document.getElementById('root')!).render(")
	m.line("  <StrictMode>")
	m.line("    <App />")
	m.line("  </StrictMode>,")
	m.line(");")
	out.file("web/src/main.tsx", m.String())

	out.file("web/src/App.tsx", reactApp(c))

	var s cw
	s.line(":root {")
	s.line("  font-family: system-ui, sans-serif;")
	s.line("  color: #1a1a1a;")
	s.line("  background: #ffffff;")
	s.line("}")
	if c.Spec.Features.DarkMode {
		s.blank()
		s.line("@media (prefers-color-scheme: dark) {")
		s.line("  :root {")
		s.line("    color: #f0f0f0;")
		s.line("    background: #121212;")
		s.line("  }")
		s.line("}")
	}
	s.blank()
	s.line("nav a {")
	s.line("  margin-right: 1rem;")
	s.line("}")
	s.blank()
	s.line("table {")
	s.line("  border-collapse: collapse;")
	s.line("}")
	s.blank()
	s.line("th,")
	s.line("td {")
	s.line("  padding: 0.25rem 0.75rem;")
	s.line("  text-align: left;")
	s.line("}")
	out.file("web/src/index.css", s.String())
}

// listColumns picks the visible scalar columns shown in a list view.
func listColumns(c *Context, e *weave.Entity) []string {
	var cols []string
	for _, f := range e.AllFields() {
		if f.Link != nil || hidden(c, f) || f.Type == spec.FieldJSON || f.Name == spec.DeletedAtField {
			continue
		}
		cols = append(cols, f.Name)
	}
	return cols
}

func reactApp(c *Context) string {
	var w cw
	w.line("import { useEffect, useState } from 'react';")
	w.blank()
	w.line("interface Resource {")
	w.line("  name: string;")
	w.line("  path: string;")
	w.line("  columns: string[];")
	w.line("}")
	w.blank()
	w.line("const RESOURCES: Resource[] = [")
	for _, e := range c.routed() {
		if !e.Allows(spec.OpList) {
			continue
		}
		w.line("  { name: %s, path: %s, columns: %s },", tsString(e.Plural), tsString("/api/"+nameOf(e).Route), tsStrings(listColumns(c, e)))
	}
	w.line("];")
	w.blank()
	w.line("function ResourceList({ resource }: { resource: Resource }) {")
	w.line("  const [rows, setRows] = useState<Record<string, unknown>[]>([]);")
	w.line("  const [error, setError] = useState<string | null>(null);")
	w.blank()
	w.line("  useEffect(() => {")
	w.line("    fetch(resource.path, { headers: authHeaders() })")
	w.line("      .then((res) => (res.ok ? res.json() : Promise.reject(new Error(res.statusText))))")
	w.line("      .then(setRows)")
	w.line("      .catch((err: Error) => setError(err.message));")
	w.line("  }, [resource.path]);")
	w.blank()
	w.line("  if (error) return <p role=\"alert\">{error}</p>;")
	w.line("  return (")
	w.line("    <table>")
	w.line("      <thead>")
	w.line("        <tr>")
	w.line("          {resource.columns.map((col) => (")
	w.line("            <th key={col}>{col}</th>")
	w.line("          ))}")
	w.line("        </tr>")
	w.line("      </thead>")
	w.line("      <tbody>")
	w.line("        {rows.map((row) => (")
	w.line("          <tr key={String(row.id)}>")
	w.line("            {resource.columns.map((col) => (")
	w.line("              <td key={col}>{String(row[col] ?? '')}</td>")
	w.line("            ))}")
	w.line("          </tr>")
	w.line("        ))}")
	w.line("      </tbody>")
	w.line("    </table>")
	w.line("  );")
	w.line("}")
	w.blank()
	w.line("function authHeaders(): Record<string, string> {")
	if c.hasAuth() {
		w.line("  const token = localStorage.getItem('token');")
		if c.Spec.TenancyEnabled() {
			w.line("  const tenant = localStorage.getItem('tenant');")
			w.line("  return {")
			w.line("    ...(token ? { Authorization: 'Bearer ' + token } : {}),")
			w.line("    ...(tenant ? { 'x-tenant-id': tenant } : {}),")
			w.line("  };")
		} else {
			w.line("  return token ? { Authorization: 'Bearer ' + token } : {};")
		}
	} else {
		w.line("  return {};")
	}
	w.line("}")
	w.blank()
	w.line("export function App() {")
	w.line("  const [active, setActive] = useState(0);")
	w.line("  const resource = RESOURCES[active];")
	w.line("  return (")
	w.line("    <main>")
	w.line("      <h1>%s</h1>", htmlEscape(c.Spec.Project.Name))
	if c.hasAuth() {
		w.line("      {%s}", gap("sign-in form that stores the token from POST /api/auth/login"))
	}
	w.line("      <nav>")
	w.line("        {RESOURCES.map((r, i) => (")
	w.line("          <a key={r.path} href=\"#\" onClick={(e) => { e.preventDefault(); setActive(i); }}>")
	w.line("            {r.name}")
	w.line("          </a>")
	w.line("        ))}")
	w.line("      </nav>")
	w.line("      {resource ? <ResourceList key={resource.path} resource={resource} /> : <p>No resources.</p>}")
	w.line("    </main>")
	w.line("  );")
	w.line("}")
	return w.String()
}

// htmlEscape escapes text placed in HTML or JSX children.
var htmlEscape = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"{", "&#123;",
	"}", "&#125;",
).Replace
