package emit

import (
	"bytes"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/matthewbaird/turbine/internal/spec"
)

// ymap is a YAML mapping that keeps insertion order.
type ymap []yitem

type yitem struct {
	key   string
	value any
}

func (m ymap) set(key string, value any) ymap { return append(m, yitem{key, value}) }

func (m ymap) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, it := range m {
		var v yaml.Node
		if err := v.Encode(it.value); err != nil {
			return nil, err
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: it.key}, &v)
	}
	return n, nil
}

func encodeYAML(v any) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ciProvider reconciles stack.cicd with cicd.provider: "none" in either
// place disables CI, otherwise a non-default choice in either place wins.
func (c *Context) ciProvider() spec.CICDProvider {
	stack, block := c.Spec.Stack.CICD, c.Spec.CICD.Provider
	switch {
	case stack == spec.NoCICD || block == spec.NoCICD:
		return spec.NoCICD
	case block != "" && block != spec.GitHub:
		return block
	case stack != "":
		return stack
	}
	return spec.GitHub
}

// ciStep is a named shell command of the pipeline.
type ciStep struct {
	name string
	run  string
}

// ciSteps lists the verification commands selected by cicd.stages, in
// pipeline order. e2e and deploy run as separate jobs.
func (c *Context) ciSteps() []ciStep {
	st := c.Spec.CICD.Stages
	var steps []ciStep
	if c.Spec.Stack.ORM == spec.Prisma {
		steps = append(steps, ciStep{"Generate client", "npm run db:generate"})
	}
	if st.Lint {
		steps = append(steps, ciStep{"Lint", "npm run lint"})
	}
	if st.Typecheck {
		steps = append(steps, ciStep{"Typecheck", "npm run typecheck"})
	}
	if st.Test {
		steps = append(steps, ciStep{"Test", "npm test"})
	}
	if st.Build {
		steps = append(steps, ciStep{"Build", "npm run build"})
	}
	return steps
}

func (c *Context) e2e() bool {
	st := c.Spec.Stack
	return c.Spec.CICD.Stages.E2E && (st.Tests(spec.Playwright) || st.Tests(spec.Cypress))
}

// deployCommand returns the shell command of a deployment, or false when
// the provider needs credentials wiring that cannot be derived.
func deployCommand(d spec.Deployment) (string, bool) {
	switch d.Provider {
	case "vercel":
		prod := ""
		if d.Environment == "production" {
			prod = " --prod"
		}
		return "npx vercel deploy" + prod + " --token \"$VERCEL_TOKEN\"", true
	case "railway":
		return "npx @railway/cli up --service \"$RAILWAY_SERVICE\"", true
	case "fly":
		return "flyctl deploy --remote-only", true
	case "docker":
		return "docker build -t \"$IMAGE:$TAG\" . && docker push \"$IMAGE:$TAG\"", true
	}
	return "", false
}

func deployJob(d spec.Deployment) string {
	return "deploy-" + slug(d.Name, '-')
}

func (c *Context) mainBranch() string {
	if b := c.Spec.CICD.Branches.Main; b != "" {
		return b
	}
	return "main"
}

func (c *Context) deployments() []spec.Deployment {
	if !c.Spec.CICD.Stages.Deploy {
		return nil
	}
	return c.Spec.CICD.Deployments
}

// ciGaps returns the gap comments heading the pipeline file.
func (c *Context) ciGaps() []string {
	var out []string
	for _, d := range c.deployments() {
		if _, ok := deployCommand(d); !ok {
			out = append(out, "# TODO: configure "+d.Provider+" credentials and the deploy command of job "+deployJob(d))
		}
	}
	return out
}

func withGaps(gaps []string, body string) string {
	var w cw
	for _, g := range gaps {
		w.line("%s", g)
	}
	w.raw(body)
	return w.String()
}

func emitCI(c *Context, out *output) {
	switch c.ciProvider() {
	case spec.GitHub:
		body, err := encodeYAML(githubWorkflow(c))
		if err != nil {
			out.fail(".github/workflows/ci.yml", "render: %v", err)
			return
		}
		out.file(".github/workflows/ci.yml", withGaps(c.ciGaps(), body))
	case spec.GitLab:
		body, err := encodeYAML(gitlabPipeline(c))
		if err != nil {
			out.fail(".gitlab-ci.yml", "render: %v", err)
			return
		}
		out.file(".gitlab-ci.yml", withGaps(c.ciGaps(), body))
	}
}

func githubSetup() []any {
	return []any{
		ymap{}.set("uses", "actions/checkout@v4"),
		ymap{}.set("uses", "actions/setup-node@v4").set("with", ymap{}.set("node-version", 20).set("cache", "npm")),
		ymap{}.set("run", "npm ci"),
	}
}

func githubWorkflow(c *Context) ymap {
	b := c.Spec.CICD.Branches
	push := []string{c.mainBranch()}
	for _, br := range []string{b.Develop, b.Release} {
		if br != "" {
			push = append(push, br)
		}
	}
	on := ymap{}.
		set("push", ymap{}.set("branches", push)).
		set("pull_request", ymap{}.set("branches", []string{c.mainBranch()}))

	jobs := ymap{}
	steps := githubSetup()
	for _, s := range c.ciSteps() {
		steps = append(steps, ymap{}.set("name", s.name).set("run", s.run))
	}
	jobs = jobs.set("ci", ymap{}.set("runs-on", "ubuntu-latest").set("steps", steps))
	needs := []string{"ci"}

	if c.e2e() {
		e2e := githubSetup()
		if c.Spec.Stack.Tests(spec.Playwright) {
			e2e = append(e2e, ymap{}.set("run", "npx playwright install --with-deps"))
		}
		e2e = append(e2e, ymap{}.set("name", "End-to-end tests").set("run", "npm run test:e2e"))
		jobs = jobs.set("e2e", ymap{}.set("runs-on", "ubuntu-latest").set("needs", []string{"ci"}).set("steps", e2e))
		needs = append(needs, "e2e")
	}

	for _, d := range c.deployments() {
		steps := []any{ymap{}.set("uses", "actions/checkout@v4")}
		env := ymap{}
		switch d.Provider {
		case "vercel":
			env = env.set("VERCEL_TOKEN", "${{ secrets.VERCEL_TOKEN }}")
		case "railway":
			env = env.set("RAILWAY_TOKEN", "${{ secrets.RAILWAY_TOKEN }}").set("RAILWAY_SERVICE", "${{ vars.RAILWAY_SERVICE }}")
		case "fly":
			steps = append(steps, ymap{}.set("uses", "superfly/flyctl-actions/setup-flyctl@master"))
			env = env.set("FLY_API_TOKEN", "${{ secrets.FLY_API_TOKEN }}")
		case "docker":
			env = env.set("IMAGE", "${{ vars.IMAGE }}").set("TAG", "${{ github.sha }}")
		}
		cmd, ok := deployCommand(d)
		if !ok {
			cmd = "echo \"deployment to " + d.Provider + " is not configured\" && exit 1"
		}
		step := ymap{}.set("name", "Deploy to "+d.Environment).set("run", cmd)
		if len(env) > 0 {
			step = step.set("env", env)
		}
		steps = append(steps, step)
		jobs = jobs.set(deployJob(d), ymap{}.
			set("runs-on", "ubuntu-latest").
			set("needs", needs).
			set("if", "github.ref == 'refs/heads/"+d.Branch+"'").
			set("environment", d.Environment).
			set("steps", steps))
	}

	return ymap{}.set("name", "CI").set("on", on).set("jobs", jobs)
}

func gitlabPipeline(c *Context) ymap {
	var stages []string
	addStage := func(s string) {
		if !slices.Contains(stages, s) {
			stages = append(stages, s)
		}
	}

	jobs := ymap{}
	prelude := []string{"npm ci"}
	for _, s := range c.ciSteps() {
		if s.name == "Generate client" {
			prelude = append(prelude, s.run)
			continue
		}
		stage := "verify"
		if s.name == "Build" {
			stage = "build"
		}
		addStage(stage)
		job := ymap{}.set("stage", stage).set("script", append(slices.Clone(prelude), s.run))
		if s.name == "Build" {
			job = job.set("artifacts", ymap{}.set("paths", []string{"dist/"}))
		}
		jobs = jobs.set(slug(s.name, '-'), job)
	}
	if c.e2e() {
		addStage("e2e")
		image := "node:20"
		if c.Spec.Stack.Tests(spec.Playwright) {
			image = "mcr.microsoft.com/playwright:v1.48.0-jammy"
		}
		jobs = jobs.set("e2e", ymap{}.set("stage", "e2e").set("image", image).set("script", []string{"npm ci", "npm run test:e2e"}))
	}
	for _, d := range c.deployments() {
		addStage("deploy")
		cmd, ok := deployCommand(d)
		if !ok {
			cmd = "echo \"deployment to " + d.Provider + " is not configured\" && exit 1"
		}
		jobs = jobs.set(deployJob(d), ymap{}.
			set("stage", "deploy").
			set("script", []string{cmd}).
			set("environment", d.Environment).
			set("rules", []any{ymap{}.set("if", "$CI_COMMIT_BRANCH == \""+d.Branch+"\"")}))
	}

	doc := ymap{}.set("image", "node:20").set("stages", stages).
		set("cache", ymap{}.set("key", ymap{}.set("files", []string{"package-lock.json"})).set("paths", []string{"node_modules/"}))
	return append(doc, jobs...)
}
