package vault

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bastiangx/wordlink/pkg/entity"
	"github.com/bastiangx/wordlink/pkg/linker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeNote(t *testing.T, root, id, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(id))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestVault(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	writeNote(t, root, "Glossary.md", "---\naliases: GL\nlinker-match-case: [GL]\n---\nTerms. #reference\n")
	writeNote(t, root, "bio/Cell Biology.md", "---\naliases: [Cell Bio, CB]\ntags: [science, '#bio']\n---\n")
	writeNote(t, root, "bio/readme.txt", "not a note")
	writeNote(t, root, ".obsidian/workspace.md", "ignored")
	writeNote(t, root, ".trash/Old.md", "ignored")

	s, err := New(root, nil, nil)
	require.NoError(t, err)
	return s, root
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    entity.Entity
		wantErr bool
	}{
		{
			name:    "no front matter",
			content: "Just a #draft note.",
			want:    entity.Entity{ID: "n.md", Name: "n", Tags: []string{"draft"}},
		},
		{
			name:    "scalar alias",
			content: "---\naliases: Foo\n---\n",
			want:    entity.Entity{ID: "n.md", Name: "n", Aliases: []string{"Foo"}},
		},
		{
			name:    "alias and aliases",
			content: "---\naliases: [Foo, Bar]\nalias: Baz\n---\n",
			want:    entity.Entity{ID: "n.md", Name: "n", Aliases: []string{"Foo", "Bar", "Baz"}},
		},
		{
			name:    "comma separated tags",
			content: "---\ntags: a, b\ntag: c\n---\n",
			want:    entity.Entity{ID: "n.md", Name: "n", Tags: []string{"a", "b", "c"}},
		},
		{
			name:    "case directives",
			content: "---\nlinker-match-case: GL\nlinker-ignore-case: [NASA]\nlinker-exclude: [n]\n---\n",
			want: entity.Entity{
				ID: "n.md", Name: "n",
				MatchCase: []string{"GL"}, IgnoreCase: []string{"NASA"}, Excluded: []string{"n"},
			},
		},
		{
			name:    "malformed aliases are dropped",
			content: "---\naliases:\n  nested: map\ntags: ok\n---\n",
			want:    entity.Entity{ID: "n.md", Name: "n", Tags: []string{"ok"}},
			wantErr: true,
		},
		{
			name:    "invalid yaml keeps the name",
			content: "---\n: : :\n  - [\n---\n",
			want:    entity.Entity{ID: "n.md", Name: "n"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse("n.md", []byte(tt.content))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestListSkipsIgnoredDirs(t *testing.T) {
	s, _ := newTestVault(t)

	refs, err := s.List(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID)
		assert.False(t, r.ModTime.IsZero())
	}
	assert.Equal(t, []string{"Glossary.md", "bio/Cell Biology.md"}, ids)
}

func TestLoad(t *testing.T) {
	s, _ := newTestVault(t)
	ctx := context.Background()

	e, err := s.Load(ctx, "bio/Cell Biology.md")
	require.NoError(t, err)
	assert.Equal(t, "Cell Biology", e.Name)
	assert.Equal(t, []string{"Cell Bio", "CB"}, e.Aliases)
	assert.Equal(t, []string{"science", "#bio"}, e.Tags)
	assert.False(t, e.ModTime.IsZero())

	_, err = s.Load(ctx, "bio/readme.txt")
	assert.ErrorIs(t, err, ErrNotNote)

	_, err = s.Load(ctx, "missing.md")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestIDAndPath(t *testing.T) {
	s, root := newTestVault(t)

	id, err := s.ID(filepath.Join(s.Root(), "bio", "Cell Biology.md"))
	require.NoError(t, err)
	assert.Equal(t, "bio/Cell Biology.md", id)
	assert.Equal(t, filepath.Join(s.Root(), "bio", "Cell Biology.md"), s.Path(id))

	_, err = s.ID(filepath.Dir(root))
	assert.Error(t, err)

	content, err := s.Read("Glossary.md")
	require.NoError(t, err)
	assert.Contains(t, content, "Terms.")
}

func TestNewRejectsFiles(t *testing.T) {
	root := t.TempDir()
	path := writeNote(t, root, "a.md", "")
	_, err := New(path, nil, nil)
	assert.Error(t, err)
	_, err = New(filepath.Join(root, "missing"), nil, nil)
	assert.Error(t, err)
}

func TestStoreFeedsIndex(t *testing.T) {
	s, root := newTestVault(t)
	ctx := context.Background()
	ix := linker.NewIndex(linker.DefaultSettings(), nil)

	stats, err := ix.Refresh(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Indexed)

	links, _ := ix.AnnotateDocument("Other.md", "The GL of Cell Bio, but not gl.", nil)
	require.Len(t, links, 2)
	assert.Equal(t, "Glossary.md", links[0].Targets[0].ID)
	assert.Equal(t, "bio/Cell Biology.md", links[1].Targets[0].ID)

	require.NoError(t, os.Remove(filepath.Join(root, "Glossary.md")))
	stats, err = ix.Refresh(ctx, s, "Glossary.md")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)
	assert.Empty(t, ix.Lookup("GL"))
}

func TestCache(t *testing.T) {
	c, err := OpenCache(filepath.Join(t.TempDir(), "nested", "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	mtime := time.Unix(1700000000, 0)
	e := &entity.Entity{ID: "a.md", Name: "a", Aliases: []string{"Alpha"}, ModTime: mtime}
	require.NoError(t, c.Put(e))
	assertCacheLen(t, c, 1)

	got, ok := c.Get("a.md", mtime)
	require.True(t, ok)
	assert.Equal(t, []string{"Alpha"}, got.Aliases)
	assert.True(t, got.ModTime.Equal(mtime))

	_, ok = c.Get("a.md", mtime.Add(time.Second))
	assert.False(t, ok, "stale entries are misses")
	_, ok = c.Get("b.md", mtime)
	assert.False(t, ok)

	require.NoError(t, c.Put(&entity.Entity{ID: "b.md", Name: "b", ModTime: mtime}))
	n, err := c.Prune(map[string]struct{}{"b.md": {}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assertCacheLen(t, c, 1)

	require.NoError(t, c.Delete("b.md"))
	assertCacheLen(t, c, 0)
}

func TestStoreUsesCache(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "a.md", "---\naliases: [First]\n---\n")
	writeNote(t, root, "b.md", "")

	c, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	s, err := New(root, c, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Load(ctx, "a.md")
	require.NoError(t, err)
	assertCacheLen(t, c, 1)

	info, err := os.Stat(s.Path("a.md"))
	require.NoError(t, err)
	cached, ok := c.Get("a.md", info.ModTime())
	require.True(t, ok)
	assert.Equal(t, []string{"First"}, cached.Aliases)

	require.NoError(t, os.Remove(s.Path("a.md")))
	_, err = s.List(ctx)
	require.NoError(t, err)
	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n, "entries of deleted notes are pruned")
}

func assertCacheLen(t *testing.T, c *Cache, want int) {
	t.Helper()
	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, want, n)
}

func TestMalformedNoteKeepsIndexedState(t *testing.T) {
	root := t.TempDir()
	path := writeNote(t, root, "Glossary.md", "---\naliases: [GL]\n---\n")

	c, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	s, err := New(root, c, nil)
	require.NoError(t, err)
	ctx := context.Background()
	ix := linker.NewIndex(linker.DefaultSettings(), nil)

	_, err = ix.Refresh(ctx, s)
	require.NoError(t, err)
	links, _ := ix.AnnotateDocument("Daily.md", "Ask the GL.", nil)
	require.Len(t, links, 1)

	require.NoError(t, os.WriteFile(path, []byte("---\naliases:\n  bad: map\n---\n"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	_, err = s.Load(ctx, "Glossary.md")
	assert.ErrorContains(t, err, "malformed front matter")
	assertCacheLen(t, c, 0)

	stats, err := ix.Refresh(ctx, s, "Glossary.md")
	require.NoError(t, err)
	assert.Equal(t, linker.RefreshStats{Failed: 1}, stats)

	links, _ = ix.AnnotateDocument("Daily.md", "Ask the GL.", nil)
	require.Len(t, links, 1, "previous aliases stay indexed")
	assert.Equal(t, "Glossary.md", links[0].Targets[0].ID)
}

func TestLoadForgetsDeletedNotes(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "a.md", "---\naliases: [First]\n---\n")

	c, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	s, err := New(root, c, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Load(ctx, "a.md")
	require.NoError(t, err)
	assertCacheLen(t, c, 1)

	require.NoError(t, os.Remove(s.Path("a.md")))
	_, err = s.Load(ctx, "a.md")
	assert.ErrorIs(t, err, os.ErrNotExist)
	assertCacheLen(t, c, 0)
}
