package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/turbine/internal/errors"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testRun(id, project string, status Status, minutes int) Run {
	start := epoch.Add(time.Duration(minutes) * time.Minute)
	return Run{
		ID:         id,
		Project:    project,
		Version:    "1.0.0",
		Status:     status,
		StartedAt:  start,
		FinishedAt: start.Add(250 * time.Millisecond),
		Gaps:       []string{},
		Errors:     []string{},
	}
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			run := testRun("r1", "blog", StatusSucceeded, 0)
			run.ArtifactCount = 2
			run.Gaps = []string{"src/hooks/post.ts"}
			arts := []Artifact{
				{Path: "package.json", Rule: "manifest", Content: "{}"},
				{Path: "src/hooks/post.ts", Rule: "hooks", HasGaps: true, Content: "// TODO: fill in"},
			}
			require.NoError(t, s.SaveRun(ctx, run, arts))

			got, err := s.GetRun(ctx, "r1")
			require.NoError(t, err)
			assert.Equal(t, run.Project, got.Project)
			assert.Equal(t, run.Status, got.Status)
			assert.True(t, run.StartedAt.Equal(got.StartedAt))
			assert.Equal(t, 250*time.Millisecond, got.Duration())
			assert.Equal(t, []string{"src/hooks/post.ts"}, got.Gaps)
			assert.Empty(t, got.Errors)

			list, err := s.Artifacts(ctx, "r1")
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "package.json", list[0].Path)
			assert.Equal(t, 2, list[0].Size)
			assert.Empty(t, list[0].Content, "listings omit content")
			assert.True(t, list[1].HasGaps)

			a, err := s.Artifact(ctx, "r1", "src/hooks/post.ts")
			require.NoError(t, err)
			assert.Equal(t, "// TODO: fill in", a.Content)
			assert.Equal(t, "hooks", a.Rule)
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.GetRun(ctx, "missing")
			assert.True(t, errors.Is(err, errors.ErrNotFound))

			_, err = s.Artifacts(ctx, "missing")
			assert.True(t, errors.Is(err, errors.ErrNotFound))

			require.NoError(t, s.SaveRun(ctx, testRun("r1", "blog", StatusFailed, 0), nil))
			arts, err := s.Artifacts(ctx, "r1")
			require.NoError(t, err)
			assert.Empty(t, arts)

			_, err = s.Artifact(ctx, "r1", "nope.ts")
			assert.True(t, errors.Is(err, errors.ErrNotFound))
		})
	}
}

func TestStore_DuplicateRunRejected(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			run := testRun("r1", "blog", StatusSucceeded, 0)
			require.NoError(t, s.SaveRun(ctx, run, nil))
			assert.Error(t, s.SaveRun(ctx, run, nil))
		})
	}
}

func TestStore_ListRuns(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := range 5 {
				project, status := "blog", StatusSucceeded
				if i%2 == 1 {
					project, status = "shop", StatusFailed
				}
				require.NoError(t, s.SaveRun(ctx, testRun(fmt.Sprintf("r%d", i), project, status, i), nil))
			}

			runs, next, total, err := s.ListRuns(ctx, ListOptions{})
			require.NoError(t, err)
			assert.Equal(t, 5, total)
			assert.Empty(t, next)
			require.Len(t, runs, 5)
			assert.Equal(t, "r4", runs[0].ID, "newest first")
			assert.Equal(t, "r0", runs[4].ID)

			runs, _, total, err = s.ListRuns(ctx, ListOptions{Project: "shop"})
			require.NoError(t, err)
			assert.Equal(t, 2, total)
			assert.Equal(t, []string{"r3", "r1"}, ids(runs))

			runs, _, _, err = s.ListRuns(ctx, ListOptions{Status: StatusSucceeded})
			require.NoError(t, err)
			assert.Equal(t, []string{"r4", "r2", "r0"}, ids(runs))

			since := epoch.Add(3 * time.Minute)
			runs, _, _, err = s.ListRuns(ctx, ListOptions{Since: &since})
			require.NoError(t, err)
			assert.Equal(t, []string{"r4", "r3"}, ids(runs))
		})
	}
}

func TestStore_ListRunsPaginates(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := range 5 {
				require.NoError(t, s.SaveRun(ctx, testRun(fmt.Sprintf("r%d", i), "blog", StatusSucceeded, i), nil))
			}

			var seen []string
			opts := ListOptions{Limit: 2}
			for page := 0; ; page++ {
				require.Less(t, page, 5)
				runs, next, total, err := s.ListRuns(ctx, opts)
				require.NoError(t, err)
				assert.Equal(t, 5, total)
				seen = append(seen, ids(runs)...)
				if next == "" {
					break
				}
				opts.Cursor = next
			}
			assert.Equal(t, []string{"r4", "r3", "r2", "r1", "r0"}, seen)
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, "postgres", "")
	assert.Error(t, err)
}

func ids(runs []Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}
