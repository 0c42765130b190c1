package shaderwatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) add(p string) {
	r.mu.Lock()
	r.paths = append(r.paths, p)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestWatcherDebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	frag := filepath.Join(dir, "basic.frag.wgsl")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(frag, []byte("// v1"), 0o644))
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))

	rec := &recorder{}
	w, err := New([]string{frag}, rec.add, WithQuietPeriod(100*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for i := range 3 {
		require.NoError(t, os.WriteFile(frag, []byte{'v', byte('2' + i)}, 0o644))
	}
	require.NoError(t, os.WriteFile(other, []byte("y"), 0o644))

	require.Eventually(t, func() bool { return len(rec.snapshot()) > 0 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)

	want, err := filepath.Abs(frag)
	require.NoError(t, err)
	assert.Equal(t, []string{want}, rec.snapshot())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcherCloseEndsRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "basic.vert.wgsl")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	w, err := New([]string{path}, func(string) {})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestNewErrors(t *testing.T) {
	_, err := New(nil, func(string) {})
	assert.Error(t, err)

	_, err = New([]string{filepath.Join(t.TempDir(), "missing", "x.wgsl")}, func(string) {})
	assert.Error(t, err)
}
