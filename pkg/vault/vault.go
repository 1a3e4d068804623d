/*
Package vault serves a directory of markdown notes as the entity source of
the linker.

Note IDs are slash-separated paths relative to the vault root, extension
included ("projects/Cell Biology.md"). Hidden directories and the usual tool
folders are skipped. Parsed entities may be cached in a bbolt file keyed by
ID and modification time, so a restart only re-reads notes that changed.
*/
package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bastiangx/wordlink/internal/logger"
	"github.com/bastiangx/wordlink/pkg/entity"
	"github.com/bastiangx/wordlink/pkg/linker"
	"github.com/charmbracelet/log"
)

// ErrNotNote is returned for IDs that do not name a markdown note.
var ErrNotNote = errors.New("not a markdown note")

// Directories never walked or watched.
var ignoreDirs = map[string]bool{
	".git":         true,
	".obsidian":    true,
	".trash":       true,
	"node_modules": true,
}

// Store is a linker.Source over a vault directory.
type Store struct {
	root  string
	cache *Cache
	log   *log.Logger
}

// New opens the vault at root. cache may be nil; a nil logger discards output.
func New(root string, cache *Cache, l *log.Logger) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("vault root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root %s: not a directory", abs)
	}
	if l == nil {
		l = logger.Discard()
	}
	return &Store{root: abs, cache: cache, log: l}, nil
}

// Root returns the absolute vault directory.
func (s *Store) Root() string {
	return s.root
}

// IsNote reports whether name has the markdown extension.
func IsNote(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".md")
}

// Path returns the file path of id.
func (s *Store) Path(id string) string {
	return filepath.Join(s.root, filepath.FromSlash(id))
}

// ID converts a file path inside the vault to a note ID.
func (s *Store) ID(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return "", err
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the vault", path)
	}
	return filepath.ToSlash(rel), nil
}

// List enumerates every note of the vault. Cached entries of notes that no
// longer exist are pruned.
func (s *Store) List(ctx context.Context) ([]linker.Ref, error) {
	var refs []linker.Ref
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.log.Debug("skipping unreadable path", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.root && ignored(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsNote(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		id, err := s.ID(path)
		if err != nil {
			return nil
		}
		refs = append(refs, linker.Ref{ID: id, ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.root, err)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })

	if s.cache != nil {
		keep := make(map[string]struct{}, len(refs))
		for _, r := range refs {
			keep[r.ID] = struct{}{}
		}
		if n, err := s.cache.Prune(keep); err != nil {
			s.log.Warn("failed to prune cache", "err", err)
		} else if n > 0 {
			s.log.Debug("pruned cache", "entries", n)
		}
	}
	return refs, nil
}

// Load reads and parses the note id. A note with malformed front matter is
// an error and is not cached, so the index keeps its previous snapshot.
func (s *Store) Load(ctx context.Context, id string) (*entity.Entity, error) {
	if !IsNote(id) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotNote)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(s.Path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.forget(id)
		}
		return nil, err
	}

	if s.cache != nil {
		if e, ok := s.cache.Get(id, info.ModTime()); ok {
			return e, nil
		}
	}

	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		return nil, err
	}
	e, err := Parse(id, data)
	if err != nil {
		s.forget(id)
		return nil, fmt.Errorf("malformed front matter: %w", err)
	}
	e.ModTime = info.ModTime()

	if s.cache != nil {
		if err := s.cache.Put(e); err != nil {
			s.log.Warn("failed to cache entity", "id", id, "err", err)
		}
	}
	return e, nil
}

// forget drops the cached entry of id.
func (s *Store) forget(id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(id); err != nil {
		s.log.Warn("failed to drop cached entity", "id", id, "err", err)
	}
}

// Read returns the content of note id. IDs leaving the vault are rejected.
func (s *Store) Read(id string) (string, error) {
	if !IsNote(id) || !filepath.IsLocal(filepath.FromSlash(id)) {
		return "", fmt.Errorf("%s: %w", id, ErrNotNote)
	}
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func ignored(dir string) bool {
	return ignoreDirs[dir] || strings.HasPrefix(dir, ".")
}
