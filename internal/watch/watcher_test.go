package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "turbine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))
	other := filepath.Join(dir, "other.yaml")

	var calls atomic.Int32
	w, err := New(path, 100*time.Millisecond, func(context.Context) { calls.Add(1) })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))
	for i := range 5 {
		require.NoError(t, os.WriteFile(path, []byte{byte('b' + i)}, 0o644))
	}

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "burst collapses into one callback")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
