// Package watch re-runs a callback when a file changes.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/matthewbaird/turbine/internal/errors"
	"github.com/matthewbaird/turbine/internal/logger"
)

// Watcher watches one file. Editors often save by renaming a temporary
// file over the original, so the parent directory is watched and events
// are filtered by name.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(context.Context)
	log      *zap.SugaredLogger
}

// New creates a watcher for path. onChange runs at most once per debounce
// window and never concurrently with itself.
func New(path string, debounce time.Duration, onChange func(context.Context)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", path)
	}
	return &Watcher{
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		log:      logger.Named("watch"),
	}, nil
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create fsnotify watcher")
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return errors.Wrapf(err, "failed to watch %s", w.path)
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
		runMu sync.Mutex
		wg    sync.WaitGroup
	)
	defer func() {
		mu.Lock()
		if timer != nil && timer.Stop() {
			wg.Done()
		}
		mu.Unlock()
		wg.Wait()
	}()

	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil && timer.Stop() {
			wg.Done()
		}
		wg.Add(1)
		timer = time.AfterFunc(w.debounce, func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			runMu.Lock()
			defer runMu.Unlock()
			w.onChange(ctx)
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != w.path {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
				continue
			}
			w.log.Debugw("change detected", logger.FieldPath, evt.Name, "op", evt.Op.String())
			schedule()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warnw("watcher error", zap.Error(err))
		}
	}
}
