package emit

import (
	"strings"

	"github.com/matthewbaird/turbine/internal/spec"
)

// mdCell escapes a value placed in a markdown table cell.
var mdCell = strings.NewReplacer("|", `\|`, "\n", " ").Replace

func emitDocs(c *Context, out *output) {
	ft := c.Spec.Features
	if ft.Readme {
		out.file("README.md", readme(c))
	}
	if ft.Changelog {
		var w cw
		w.line("# Changelog")
		w.blank()
		w.line("All notable changes to this project are documented in this file.")
		w.blank()
		w.line("## [%s] - Unreleased", c.Spec.Project.Version)
		w.blank()
		w.line("### Added")
		w.blank()
		w.line("- Initial scaffold.")
		for _, e := range c.routed() {
			w.line("- %s resource (%s).", e.Name, joinOps(e.Operations))
		}
		out.file("CHANGELOG.md", w.String())
	}
}

func joinOps(ops []spec.Operation) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = string(op)
	}
	return strings.Join(parts, ", ")
}

func readme(c *Context) string {
	p := c.Spec.Project
	st := c.Spec.Stack
	var w cw
	w.line("# %s", p.Name)
	if p.Description != "" {
		w.blank()
		w.line("%s", p.Description)
	}

	w.blank()
	w.line("## Stack")
	w.blank()
	w.line("| Layer | Choice |")
	w.line("| --- | --- |")
	w.line("| Backend | %s |", st.Backend)
	w.line("| Frontend | %s |", st.Frontend)
	w.line("| ORM | %s |", st.ORM)
	w.line("| Database | %s |", st.Database)
	w.line("| Auth | %s |", st.Auth)
	if len(st.Testing) > 0 {
		names := make([]string, len(st.Testing))
		for i, t := range st.Testing {
			names[i] = string(t)
		}
		w.line("| Testing | %s |", strings.Join(names, ", "))
	}

	w.blank()
	w.line("## Getting started")
	w.blank()
	w.line("```sh")
	w.line("cp .env.example .env")
	w.line("npm install")
	switch st.ORM {
	case spec.Prisma:
		w.line("npm run db:generate")
		w.line("npm run db:migrate")
	case spec.Drizzle, spec.Kysely:
		w.line("npm run db:migrate")
	}
	w.line("npm run dev")
	w.line("```")
	if st.Containerization {
		w.blank()
		w.line("Or run everything in containers:")
		w.blank()
		w.line("```sh")
		w.line("docker compose up --build")
		w.line("```")
	}

	if routed := c.routed(); len(routed) > 0 {
		w.blank()
		w.line("## Resources")
		w.blank()
		w.line("| Entity | Path | Operations |")
		w.line("| --- | --- | --- |")
		for _, e := range routed {
			w.line("| %s | `/%s` | %s |", e.Name, nameOf(e).Route, joinOps(e.Operations))
		}
	}
	if len(c.Spec.CustomEndpoints) > 0 {
		w.blank()
		w.line("## Custom endpoints")
		w.blank()
		w.line("| Method | Path | Description |")
		w.line("| --- | --- | --- |")
		for _, ep := range c.Spec.CustomEndpoints {
			w.line("| %s | `%s` | %s |", ep.Method, ep.Path, mdCell(ep.Description))
		}
	}

	w.blank()
	w.line("## Environment")
	w.blank()
	w.line("| Variable | Description |")
	w.line("| --- | --- |")
	for _, e := range c.envEntries() {
		w.line("| `%s` | %s |", e.name, mdCell(e.note))
	}

	if c.Spec.Features.OpenAPI || c.Spec.Features.APIDocs {
		w.blank()
		w.line("## API documentation")
		w.blank()
		w.line("The OpenAPI description of every route is in `openapi.json`.")
	}

	w.blank()
	w.line("## Completing the scaffold")
	w.blank()
	w.line("Places that need a hand-written implementation are marked with `GAP:` or `TODO:` comments.")
	if p.License != "" {
		w.blank()
		w.line("## License")
		w.blank()
		w.line("%s", p.License)
	}
	return w.String()
}
