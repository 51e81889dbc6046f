package emit

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/matthewbaird/turbine/internal/spec"
)

type composeService struct {
	Image       string            `yaml:"image,omitempty"`
	Build       string            `yaml:"build,omitempty"`
	Ports       []string          `yaml:"ports,omitempty"`
	EnvFile     []string          `yaml:"env_file,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	DependsOn   []string          `yaml:"depends_on,omitempty"`
	Volumes     []string          `yaml:"volumes,omitempty"`
	Restart     string            `yaml:"restart,omitempty"`
}

type composeFile struct {
	Services map[string]composeService `yaml:"services"`
	Volumes  map[string]struct{}       `yaml:"volumes,omitempty"`
}

// databaseService returns the compose service for the database, or false
// when it runs in-process.
func databaseService(db spec.Database, name string) (composeService, string, bool) {
	switch db {
	case spec.PostgreSQL:
		return composeService{
			Image: "postgres:16-alpine",
			Environment: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       name,
			},
			Ports:   []string{"5432:5432"},
			Volumes: []string{"db-data:/var/lib/postgresql/data"},
			Restart: "unless-stopped",
		}, "db-data", true
	case spec.MySQL:
		return composeService{
			Image: "mysql:8.4",
			Environment: map[string]string{
				"MYSQL_ROOT_PASSWORD": "root",
				"MYSQL_DATABASE":      name,
			},
			Ports:   []string{"3306:3306"},
			Volumes: []string{"db-data:/var/lib/mysql"},
			Restart: "unless-stopped",
		}, "db-data", true
	case spec.MongoDB:
		return composeService{
			Image:   "mongo:7",
			Ports:   []string{"27017:27017"},
			Volumes: []string{"db-data:/data/db"},
			Restart: "unless-stopped",
		}, "db-data", true
	}
	return composeService{}, "", false
}

func emitContainer(c *Context, out *output) {
	if !c.Spec.Stack.Containerization {
		return
	}
	st := c.Spec.Stack

	var d cw
	d.line("FROM node:20-alpine AS build")
	d.line("WORKDIR /app")
	d.line("COPY package*.json ./")
	d.line("RUN npm ci")
	d.line("COPY . .")
	if st.ORM == spec.Prisma {
		d.line("RUN npx prisma generate")
	}
	d.line("RUN npm run build")
	d.blank()
	d.line("FROM node:20-alpine")
	d.line("WORKDIR /app")
	d.line("ENV NODE_ENV=production")
	d.line("COPY package*.json ./")
	d.line("RUN npm ci --omit=dev")
	d.line("COPY --from=build /app/dist ./dist")
	if st.ORM == spec.Prisma {
		d.line("COPY --from=build /app/prisma ./prisma")
		d.line("COPY --from=build /app/node_modules/.prisma ./node_modules/.prisma")
	}
	d.line("EXPOSE 3000")
	d.line("CMD [\"node\", \"dist/index.js\"]")
	out.file("Dockerfile", d.String())

	dbName := c.databaseName()
	app := composeService{
		Build:       ".",
		Ports:       []string{"3000:3000"},
		EnvFile:     []string{".env"},
		Environment: map[string]string{"DATABASE_URL": c.databaseURL("db")},
		Restart:     "unless-stopped",
	}
	file := composeFile{Services: map[string]composeService{}}
	if db, volume, ok := databaseService(st.Database, dbName); ok {
		app.DependsOn = []string{"db"}
		file.Services["db"] = db
		file.Volumes = map[string]struct{}{volume: {}}
	} else {
		app.Volumes = []string{"app-data:/app/data"}
		app.Environment["DATABASE_URL"] = "file:/app/data/app.db"
		file.Volumes = map[string]struct{}{"app-data": {}}
	}
	file.Services["app"] = app

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		out.fail("docker-compose.yml", "encode compose file: %v", err)
		return
	}
	_ = enc.Close()
	out.file("docker-compose.yml", buf.String())
}
