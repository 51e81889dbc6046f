package compiler

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/matthewbaird/turbine/internal/emit"
	"github.com/matthewbaird/turbine/internal/errors"
)

// WriteStats counts what WriteTree did.
type WriteStats struct {
	Written   int
	Unchanged int
}

// WriteTree writes artifacts under dir. Files whose content already
// matches are left untouched so that watchers and build tools see no
// spurious change. Artifact paths must stay inside dir.
func WriteTree(dir string, artifacts []emit.Artifact) (WriteStats, error) {
	var st WriteStats
	for _, a := range artifacts {
		if !filepath.IsLocal(a.Path) {
			return st, errors.Newf("artifact path %q escapes the output directory", a.Path)
		}
		target := filepath.Join(dir, filepath.FromSlash(a.Path))
		if cur, err := os.ReadFile(target); err == nil && bytes.Equal(cur, []byte(a.Content)) {
			st.Unchanged++
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return st, errors.Wrapf(err, "create directory for %s", a.Path)
		}
		if err := os.WriteFile(target, []byte(a.Content), 0o644); err != nil {
			return st, errors.Wrapf(err, "write %s", a.Path)
		}
		st.Written++
	}
	return st, nil
}
