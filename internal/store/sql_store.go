package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/turbine/internal/errors"
)

const (
	runsTable      = "runs"
	artifactsTable = "run_artifacts"
)

var runColumns = []string{
	"id", "project", "version", "status", "started_at", "finished_at",
	"artifact_count", "gaps", "errors",
}

// SQLStore implements Store on SQLite through the pure-Go modernc driver.
// Statements are built with the ent SQL builder.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a SQLite database and migrates it.
func OpenSQLite(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// A single connection serializes writers and keeps :memory: databases
	// alive for the life of the store.
	db.SetMaxOpenConns(1)
	s := &SQLStore{db: db}
	if err := s.CreateTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database. CreateTables must have run.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func builder() *entsql.DialectBuilder { return entsql.Dialect(dialect.SQLite) }

type ddlColumn struct{ name, typ string }

func createTable(name string, cols []ddlColumn, tail ...func(*entsql.Builder)) string {
	return builder().String(func(b *entsql.Builder) {
		b.WriteString("CREATE TABLE IF NOT EXISTS ").Ident(name).WriteString(" (")
		for i, c := range cols {
			if i > 0 {
				b.Comma()
			}
			b.Join(builder().Column(c.name).Type(c.typ))
		}
		for _, t := range tail {
			b.Comma()
			t(b)
		}
		b.WriteString(")")
	})
}

// CreateTables creates the history tables when they are missing.
func (s *SQLStore) CreateTables(ctx context.Context) error {
	stmts := []string{
		"PRAGMA foreign_keys = ON",
		createTable(runsTable, []ddlColumn{
			{"id", "TEXT PRIMARY KEY"},
			{"project", "TEXT NOT NULL"},
			{"version", "TEXT NOT NULL"},
			{"status", "TEXT NOT NULL"},
			{"started_at", "INTEGER NOT NULL"},
			{"finished_at", "INTEGER NOT NULL"},
			{"artifact_count", "INTEGER NOT NULL"},
			{"gaps", "TEXT NOT NULL"},
			{"errors", "TEXT NOT NULL"},
		}),
		createTable(artifactsTable, []ddlColumn{
			{"run_id", "TEXT NOT NULL"},
			{"seq", "INTEGER NOT NULL"},
			{"path", "TEXT NOT NULL"},
			{"rule", "TEXT NOT NULL"},
			{"has_gaps", "INTEGER NOT NULL"},
			{"content", "TEXT NOT NULL"},
		}, func(b *entsql.Builder) {
			b.WriteString("PRIMARY KEY ").Wrap(func(b *entsql.Builder) { b.IdentComma("run_id", "path") })
		}, func(b *entsql.Builder) {
			b.WriteString("FOREIGN KEY ").Wrap(func(b *entsql.Builder) { b.Ident("run_id") }).
				WriteString(" REFERENCES ").Ident(runsTable).Wrap(func(b *entsql.Builder) { b.Ident("id") }).
				WriteString(" ON DELETE CASCADE")
		}),
		builder().String(func(b *entsql.Builder) {
			b.WriteString("CREATE INDEX IF NOT EXISTS ").Ident("idx_runs_started_at").
				WriteString(" ON ").Ident(runsTable).Wrap(func(b *entsql.Builder) { b.Ident("started_at") })
		}),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migrate: %s", stmt)
		}
	}
	return nil
}

func (s *SQLStore) SaveRun(ctx context.Context, run Run, artifacts []Artifact) (err error) {
	gaps, _ := json.Marshal(nonNil(run.Gaps))
	errs, _ := json.Marshal(nonNil(run.Errors))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query, args := builder().Insert(runsTable).Columns(runColumns...).Values(
		run.ID, run.Project, run.Version, string(run.Status),
		run.StartedAt.UnixNano(), run.FinishedAt.UnixNano(),
		run.ArtifactCount, string(gaps), string(errs),
	).Query()
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "insert run %s", run.ID)
	}

	for i, a := range artifacts {
		query, args := builder().Insert(artifactsTable).
			Columns("run_id", "seq", "path", "rule", "has_gaps", "content").
			Values(run.ID, i, a.Path, a.Rule, a.HasGaps, a.Content).
			Query()
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrapf(err, "insert artifact %s", a.Path)
		}
	}
	return errors.Wrap(tx.Commit(), "commit")
}

func (s *SQLStore) GetRun(ctx context.Context, id string) (Run, error) {
	query, args := builder().Select(runColumns...).
		From(entsql.Table(runsTable)).
		Where(entsql.EQ("id", id)).
		Query()
	r, err := scanRun(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, errors.Wrapf(errors.ErrNotFound, "run %s", id)
	}
	return r, err
}

func (s *SQLStore) ListRuns(ctx context.Context, opts ListOptions) ([]Run, string, int, error) {
	var preds []*entsql.Predicate
	if opts.Project != "" {
		preds = append(preds, entsql.EQ("project", opts.Project))
	}
	if opts.Status != "" {
		preds = append(preds, entsql.EQ("status", string(opts.Status)))
	}
	if opts.Since != nil {
		preds = append(preds, entsql.GTE("started_at", opts.Since.UnixNano()))
	}

	count := builder().Select(entsql.Count("*")).From(entsql.Table(runsTable))
	if len(preds) > 0 {
		count.Where(entsql.And(preds...))
	}
	query, args := count.Query()
	var total int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return nil, "", 0, errors.Wrap(err, "count runs")
	}

	if c, ok := opts.cursor(); ok {
		preds = append(preds, entsql.LT("started_at", c.UnixNano()))
	}
	limit := opts.limit()
	sel := builder().Select(runColumns...).From(entsql.Table(runsTable)).
		OrderBy(entsql.Desc("started_at")).
		Limit(limit + 1)
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	query, args = sel.Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", 0, errors.Wrap(err, "querying runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, "", 0, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", 0, errors.Wrap(err, "querying runs")
	}

	var next string
	if len(runs) > limit {
		runs = runs[:limit]
		next = encodeCursor(runs[len(runs)-1].StartedAt)
	}
	return runs, next, total, nil
}

func (s *SQLStore) Artifacts(ctx context.Context, runID string) ([]Artifact, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	query, args := builder().Select("path", "rule", "has_gaps", "LENGTH(CAST(content AS BLOB))").
		From(entsql.Table(artifactsTable)).
		Where(entsql.EQ("run_id", runID)).
		OrderBy("seq").
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying artifacts")
	}
	defer rows.Close()

	arts := []Artifact{}
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.Path, &a.Rule, &a.HasGaps, &a.Size); err != nil {
			return nil, errors.Wrap(err, "scanning artifact")
		}
		arts = append(arts, a)
	}
	return arts, errors.Wrap(rows.Err(), "querying artifacts")
}

func (s *SQLStore) Artifact(ctx context.Context, runID, path string) (Artifact, error) {
	query, args := builder().Select("path", "rule", "has_gaps", "content").
		From(entsql.Table(artifactsTable)).
		Where(entsql.And(entsql.EQ("run_id", runID), entsql.EQ("path", path))).
		Query()
	var a Artifact
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&a.Path, &a.Rule, &a.HasGaps, &a.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, errors.Wrapf(errors.ErrNotFound, "artifact %s of run %s", path, runID)
	}
	if err != nil {
		return Artifact{}, errors.Wrap(err, "querying artifact")
	}
	a.Size = len(a.Content)
	return a, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                 Run
		status            string
		started, finished int64
		gaps, errs        string
	)
	err := sc.Scan(&r.ID, &r.Project, &r.Version, &status, &started, &finished,
		&r.ArtifactCount, &gaps, &errs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, errors.Wrap(err, "scanning run")
	}
	r.Status = Status(status)
	r.StartedAt = time.Unix(0, started).UTC()
	r.FinishedAt = time.Unix(0, finished).UTC()
	_ = json.Unmarshal([]byte(gaps), &r.Gaps)
	_ = json.Unmarshal([]byte(errs), &r.Errors)
	return r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
