package filestore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vango-dev/vstore/pkg/storage"
)

var _ storage.Backend = (*Store)(nil)
var _ storage.Lister = (*Store)(nil)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)

	_, ok, err := s.GetItem(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetItem(ctx, "theme", `"dark"`))
	require.NoError(t, s.SetItem(ctx, "app/layout", `{"cols":2}`))
	require.NoError(t, s.SetItem(ctx, "..", `1`))

	v, ok, err := s.GetItem(ctx, "app/layout")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"cols":2}`, v)

	keys, err := s.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"..", "app/layout", "theme"}, keys)

	keys, err = s.Keys(ctx, "app/")
	require.NoError(t, err)
	assert.Equal(t, []string{"app/layout"}, keys)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temp files should remain")

	require.NoError(t, s.RemoveItem(ctx, "theme"))
	require.NoError(t, s.RemoveItem(ctx, "theme"))
	_, ok, err = s.GetItem(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreFileMode(t *testing.T) {
	ctx := context.Background()
	s, err := Open(t.TempDir(), WithFileMode(0o640))
	require.NoError(t, err)
	require.NoError(t, s.SetItem(ctx, "k", "v"))

	info, err := os.Stat(s.path("k"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestFileStoreClosed(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, _, err = s.GetItem(context.Background(), "k")
	assert.ErrorIs(t, err, storage.ErrClosed)
}

func TestKeyFromName(t *testing.T) {
	key, ok := keyFromName("app%2Flayout.val")
	assert.True(t, ok)
	assert.Equal(t, "app/layout", key)

	_, ok = keyFromName(".tmp-123")
	assert.False(t, ok)
	_, ok = keyFromName("notes.txt")
	assert.False(t, ok)
}

func TestWatchReportsChanges(t *testing.T) {
	dir := t.TempDir()
	watched, err := Open(dir)
	require.NoError(t, err)
	writer, err := Open(dir)
	require.NoError(t, err)

	var mu sync.Mutex
	var changes []Change
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	started := make(chan struct{})

	go func() {
		close(started)
		done <- watched.Watch(ctx, func(c Change) {
			mu.Lock()
			changes = append(changes, c)
			mu.Unlock()
		})
	}()
	<-started

	seen := func(want Change) bool {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range changes {
			if c == want {
				return true
			}
		}
		return false
	}

	// the watcher registers asynchronously; keep writing until it notices
	require.Eventually(t, func() bool {
		_ = writer.SetItem(context.Background(), "theme", `"dark"`)
		return seen(Change{Key: "theme"})
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, writer.RemoveItem(context.Background(), "theme"))
	require.Eventually(t, func() bool {
		return seen(Change{Key: "theme", Removed: true})
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
