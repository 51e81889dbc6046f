package emit

import (
	"maps"
	"slices"

	"github.com/matthewbaird/turbine/internal/spec"
)

// databaseURL is the development connection string for the database.
func (c *Context) databaseURL(host string) string {
	db := c.databaseName()
	switch c.Spec.Stack.Database {
	case spec.MySQL:
		return "mysql://root:root@" + host + ":3306/" + db
	case spec.SQLite:
		return "file:./dev.db"
	case spec.MongoDB:
		return "mongodb://" + host + ":27017/" + db
	}
	return "postgresql://postgres:postgres@" + host + ":5432/" + db
}

type envEntry struct {
	name  string
	value string
	note  string
}

// envEntries lists the built-in variables followed by the declared ones,
// sorted by name. A declared variable replaces a built-in of the same name.
func (c *Context) envEntries() []envEntry {
	builtin := []envEntry{
		{"NODE_ENV", "development", "runtime mode"},
		{"PORT", "3000", "HTTP listen port"},
		{"DATABASE_URL", c.databaseURL("localhost"), "database connection string"},
	}
	if c.Spec.Stack.Auth == spec.AuthJWT {
		builtin = append(builtin, envEntry{"JWT_SECRET", "change-me", "token signing secret"})
	}
	if c.Spec.Features.Logging {
		builtin = append(builtin, envEntry{"LOG_LEVEL", "info", "log verbosity"})
	}

	declared := c.Spec.Env
	var out []envEntry
	for _, b := range builtin {
		if _, ok := declared[b.name]; !ok {
			out = append(out, b)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(declared)) {
		v := declared[name]
		note := v.Description
		switch {
		case v.Required && v.Secret:
			note += " (required, secret)"
		case v.Required:
			note += " (required)"
		case v.Secret:
			note += " (secret)"
		}
		value := v.Default
		if v.Secret {
			value = ""
		}
		out = append(out, envEntry{name, value, note})
	}
	return out
}

func emitEnv(c *Context, out *output) {
	var w cw
	w.line("# Environment for %s", c.Spec.Project.Name)
	for _, e := range c.envEntries() {
		w.blank()
		if e.note != "" {
			w.line("# %s", e.note)
		}
		w.line("%s=%s", e.name, e.value)
	}
	out.file(".env.example", w.String())

	var g cw
	for _, p := range []string{"node_modules/", "dist/", "coverage/", ".env", ".env.local", "*.log", ".DS_Store"} {
		g.line("%s", p)
	}
	if c.Spec.Stack.Database == spec.SQLite {
		g.line("*.db")
	}
	if c.Spec.Stack.Frontend == spec.React {
		g.line("web/dist/")
	}
	if c.Spec.Stack.Tests(spec.Playwright) {
		g.line("playwright-report/")
		g.line("test-results/")
	}
	out.file(".gitignore", g.String())
}
