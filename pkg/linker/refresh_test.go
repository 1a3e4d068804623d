package linker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bastiangx/wordlink/pkg/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSource struct {
	mu       sync.Mutex
	entities map[string]*entity.Entity
	broken   map[string]bool
	loads    map[string]int
	listErr  error
}

func newMemSource(entities ...*entity.Entity) *memSource {
	s := &memSource{
		entities: make(map[string]*entity.Entity),
		broken:   make(map[string]bool),
		loads:    make(map[string]int),
	}
	for _, e := range entities {
		s.entities[e.ID] = e
	}
	return s
}

func (s *memSource) List(context.Context) ([]Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	refs := make([]Ref, 0, len(s.entities))
	for id, e := range s.entities {
		refs = append(refs, Ref{ID: id, ModTime: e.ModTime})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

func (s *memSource) Load(_ context.Context, id string) (*entity.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads[id]++
	if s.broken[id] {
		return nil, errors.New("unreadable")
	}
	e, ok := s.entities[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return e.Clone(), nil
}

func (s *memSource) touch(id string, mtime int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[id].ModTime = time.Unix(mtime, 0)
}

func note(id, name string, mtime int64) *entity.Entity {
	return &entity.Entity{ID: id, Name: name, ModTime: time.Unix(mtime, 0)}
}

func TestRefreshFullThenUnchanged(t *testing.T) {
	ctx := context.Background()
	src := newMemSource(note("a.md", "Alpha", 1), note("b.md", "Beta", 1))
	ix := NewIndex(DefaultSettings(), nil)

	stats, err := ix.Refresh(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, RefreshStats{Full: true, Indexed: 2}, stats)
	assert.Equal(t, 2, ix.Len())

	stats, err = ix.Refresh(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, RefreshStats{Full: true, Skipped: 2}, stats)
	assert.Equal(t, 1, src.loads["a.md"])
}

func TestRefreshFullReloadsChanged(t *testing.T) {
	ctx := context.Background()
	src := newMemSource(note("a.md", "Alpha", 1), note("b.md", "Beta", 1))
	ix := NewIndex(DefaultSettings(), nil)
	_, err := ix.Refresh(ctx, src)
	require.NoError(t, err)

	src.touch("b.md", 2)
	stats, err := ix.Refresh(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, RefreshStats{Full: true, Indexed: 1, Skipped: 1}, stats)
	assert.Equal(t, 2, src.loads["b.md"])
}

func TestRefreshWithHints(t *testing.T) {
	ctx := context.Background()
	src := newMemSource(note("a.md", "Alpha", 1), note("b.md", "Beta", 1))
	ix := NewIndex(DefaultSettings(), nil)
	_, err := ix.Refresh(ctx, src)
	require.NoError(t, err)

	src.mu.Lock()
	src.entities["a.md"] = &entity.Entity{ID: "a.md", Name: "Alpha", Aliases: []string{"First"}, ModTime: time.Unix(2, 0)}
	src.mu.Unlock()

	stats, err := ix.Refresh(ctx, src, "a.md", "a.md", "gone.md")
	require.NoError(t, err)
	assert.Equal(t, RefreshStats{Indexed: 1}, stats)
	assert.Len(t, ix.Lookup("first"), 1)
	assert.Equal(t, 1, src.loads["b.md"])
}

func TestRefreshCountChangeForcesFull(t *testing.T) {
	ctx := context.Background()
	src := newMemSource(note("a.md", "Alpha", 1), note("b.md", "Beta", 1))
	ix := NewIndex(DefaultSettings(), nil)
	_, err := ix.Refresh(ctx, src)
	require.NoError(t, err)

	src.mu.Lock()
	delete(src.entities, "b.md")
	src.entities["c.md"] = note("c.md", "Gamma", 1)
	src.entities["d.md"] = note("d.md", "Delta", 1)
	src.mu.Unlock()

	stats, err := ix.Refresh(ctx, src, "c.md")
	require.NoError(t, err)
	assert.Equal(t, RefreshStats{Full: true, Indexed: 2, Skipped: 1, Removed: 1}, stats)
	assert.Equal(t, []string{"a.md", "c.md", "d.md"}, ix.IDs())
	assert.Empty(t, ix.Lookup("beta"))
}

func TestRefreshKeepsStateOnFailure(t *testing.T) {
	ctx := context.Background()
	src := newMemSource(note("a.md", "Alpha", 1), note("b.md", "Beta", 1))
	ix := NewIndex(DefaultSettings(), nil)
	_, err := ix.Refresh(ctx, src)
	require.NoError(t, err)

	src.touch("a.md", 2)
	src.broken["a.md"] = true
	src.mu.Lock()
	src.entities["b.md"] = &entity.Entity{ID: "b.md", ModTime: time.Unix(2, 0)}
	src.mu.Unlock()

	stats, err := ix.Refresh(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, RefreshStats{Full: true, Failed: 2}, stats)
	assert.Len(t, ix.Lookup("alpha"), 1)
	assert.Len(t, ix.Lookup("beta"), 1)

	src.broken["a.md"] = false
	stats, err = ix.Refresh(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Indexed, "a failed entity is retried")
}

func TestRefreshFailedEntityStaysIncremental(t *testing.T) {
	ctx := context.Background()
	src := newMemSource(note("a.md", "Alpha", 1), note("b.md", "Beta", 1), &entity.Entity{ID: "c.md", ModTime: time.Unix(1, 0)})
	src.broken["b.md"] = true
	ix := NewIndex(DefaultSettings(), nil)

	stats, err := ix.Refresh(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, RefreshStats{Full: true, Indexed: 1, Failed: 2}, stats)

	src.touch("a.md", 2)
	stats, err = ix.Refresh(ctx, src, "a.md")
	require.NoError(t, err)
	assert.Equal(t, RefreshStats{Indexed: 1}, stats, "failed entities do not force a full refresh")
	assert.Equal(t, 1, src.loads["b.md"])

	src.broken["b.md"] = false
	stats, err = ix.Refresh(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, RefreshStats{Full: true, Indexed: 1, Skipped: 1, Failed: 1}, stats, "failed entities are retried")
	assert.Len(t, ix.Lookup("beta"), 1)
}

func TestRefreshIneligibleIsTracked(t *testing.T) {
	ctx := context.Background()
	hidden := note("private/x.md", "Secret", 1)
	src := newMemSource(note("a.md", "Alpha", 1), hidden)

	settings := DefaultSettings()
	settings.Eligibility.Excluded = []string{"private"}
	ix := NewIndex(settings, nil)

	stats, err := ix.Refresh(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, RefreshStats{Full: true, Indexed: 1, Skipped: 1}, stats)
	assert.Empty(t, ix.Lookup("secret"))

	stats, err = ix.Refresh(ctx, src, "a.md")
	require.NoError(t, err)
	assert.False(t, stats.Full, "ineligible entities still count as known")
}

func TestRefreshListError(t *testing.T) {
	src := newMemSource()
	src.listErr = errors.New("disk gone")
	ix := NewIndex(DefaultSettings(), nil)

	_, err := ix.Refresh(context.Background(), src)
	assert.ErrorContains(t, err, "disk gone")
}

func TestRefreshCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := newMemSource(note("a.md", "Alpha", 1))
	ix := NewIndex(DefaultSettings(), nil)

	_, err := ix.Refresh(ctx, src)
	assert.ErrorIs(t, err, context.Canceled)
}
