package vault

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForBatch(ch <-chan []string, timeout time.Duration) ([]string, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(timeout):
		return nil, false
	}
}

func startWatcher(t *testing.T, s *Store) <-chan []string {
	t.Helper()
	w, err := NewWatcher(s, 30*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	batches := make(chan []string, 10)
	require.NoError(t, w.Watch(func(ids []string) {
		batches <- ids
	}))
	time.Sleep(50 * time.Millisecond)
	return batches
}

func TestWatcherBatchesNoteChanges(t *testing.T) {
	s, root := newTestVault(t)
	batches := startWatcher(t, s)

	writeNote(t, root, "New.md", "fresh")
	writeNote(t, root, "bio/Cell Biology.md", "---\naliases: [CB]\n---\n")
	writeNote(t, root, "bio/readme.txt", "ignored")

	ids, ok := waitForBatch(batches, 2*time.Second)
	require.True(t, ok, "expected a batch")
	assert.Equal(t, []string{"New.md", "bio/Cell Biology.md"}, ids)
}

func TestWatcherReportsRemovals(t *testing.T) {
	s, root := newTestVault(t)
	batches := startWatcher(t, s)

	require.NoError(t, os.Remove(filepath.Join(root, "Glossary.md")))

	ids, ok := waitForBatch(batches, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, []string{"Glossary.md"}, ids)
}

func TestWatcherIgnoresToolFolders(t *testing.T) {
	s, root := newTestVault(t)
	batches := startWatcher(t, s)

	writeNote(t, root, ".obsidian/workspace.md", "changed")

	_, ok := waitForBatch(batches, 300*time.Millisecond)
	assert.False(t, ok)
}

func TestWatcherRescansOnNewDirectory(t *testing.T) {
	s, root := newTestVault(t)
	batches := startWatcher(t, s)

	require.NoError(t, os.Mkdir(filepath.Join(root, "projects"), 0o755))

	ids, ok := waitForBatch(batches, 2*time.Second)
	require.True(t, ok)
	assert.Nil(t, ids)

	writeNote(t, root, "projects/Plan.md", "plan")
	ids, ok = waitForBatch(batches, 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, []string{"projects/Plan.md"}, ids)
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	s, _ := newTestVault(t)
	w, err := NewWatcher(s, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.delay)
	require.NoError(t, w.Watch(func([]string) {}))
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
