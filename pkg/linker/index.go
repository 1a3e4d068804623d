/*
Package linker owns the entity index and runs the matching pipeline.

An Index is an explicitly constructed object, one per document store session.
It maps entity IDs to dense uint32 handles, keeps the name trie used by the
scanner and a patricia trie of lowercased names used for lookups and
completion.

	ix := linker.NewIndex(linker.DefaultSettings(), nil)
	stats, err := ix.Refresh(ctx, source)
	links, linked := ix.Annotate(linker.Unit{Text: "See GL and Glossary."}, nil)

The Index is not safe for concurrent use. Mutations (Put, Remove, Refresh)
and scans (Annotate) must be serialized by the caller.
*/
package linker

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bastiangx/wordlink/internal/logger"
	"github.com/bastiangx/wordlink/pkg/casing"
	"github.com/bastiangx/wordlink/pkg/entity"
	"github.com/bastiangx/wordlink/pkg/selector"
	"github.com/bastiangx/wordlink/pkg/trie"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// ErrIneligible is returned by Put for entities filtered out by the eligibility rules.
var ErrIneligible = errors.New("entity is not eligible for linking")

// Settings gathers every policy the index applies.
type Settings struct {
	Casing         casing.Policy
	Selection      selector.Policy
	Eligibility    entity.Eligibility
	ExcludeSelf    bool // never link a document to itself
	ExcludeHeaders bool // keep markdown headings free of links
}

// DefaultSettings mirrors the defaults of the config file.
func DefaultSettings() Settings {
	return Settings{
		Casing:    casing.DefaultPolicy(),
		Selection: selector.DefaultPolicy(),
		Eligibility: entity.Eligibility{
			IncludeAll: true,
			IncludeTag: "linker-include",
			ExcludeTag: "linker-exclude",
		},
		ExcludeSelf:    true,
		ExcludeHeaders: true,
	}
}

// Index is the searchable set of entities.
type Index struct {
	settings Settings
	trie     *trie.Trie
	names    *patricia.Trie // lowercased name -> *roaring.Bitmap of handles

	handles  map[string]uint32
	entities []*entity.Entity // by handle, nil when free
	free     []uint32
	mtimes   map[string]time.Time // last snapshot seen by Refresh, eligible or not

	log *log.Logger
}

// NewIndex creates an empty index. A nil logger discards output.
func NewIndex(settings Settings, l *log.Logger) *Index {
	if l == nil {
		l = logger.Discard()
	}
	return &Index{
		settings: settings,
		trie:     trie.New(),
		names:    patricia.NewTrie(),
		handles:  make(map[string]uint32),
		mtimes:   make(map[string]time.Time),
		log:      l,
	}
}

// Settings returns the active settings.
func (ix *Index) Settings() Settings {
	return ix.settings
}

// Len returns the number of indexed entities.
func (ix *Index) Len() int {
	return len(ix.handles)
}

// IDs returns the indexed entity IDs in sorted order.
func (ix *Index) IDs() []string {
	ids := make([]string, 0, len(ix.handles))
	for id := range ix.handles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Get returns the indexed snapshot of id.
func (ix *Index) Get(id string) (*entity.Entity, bool) {
	h, ok := ix.handles[id]
	if !ok {
		return nil, false
	}
	return ix.entities[h], true
}

// Handle returns the internal handle of id.
func (ix *Index) Handle(id string) (uint32, bool) {
	h, ok := ix.handles[id]
	return h, ok
}

// Entity resolves a handle.
func (ix *Index) Entity(h uint32) (*entity.Entity, bool) {
	if int(h) >= len(ix.entities) || ix.entities[h] == nil {
		return nil, false
	}
	return ix.entities[h], true
}

// PrimaryName implements scan.Namer.
func (ix *Index) PrimaryName(h uint32) (string, bool) {
	e, ok := ix.Entity(h)
	if !ok {
		return "", false
	}
	return e.Name, true
}

// Put indexes e, replacing any previous snapshot with the same ID.
//
// Invalid or ineligible entities return an error. An invalid entity keeps its
// previous indexed state; an ineligible one is retracted.
func (ix *Index) Put(e *entity.Entity) error {
	if e == nil {
		return errors.New("nil entity")
	}
	e = e.Clone()
	e.Normalize()
	if err := e.Validate(); err != nil {
		return err
	}
	if !ix.settings.Eligibility.Allows(e) {
		ix.Remove(e.ID)
		ix.mtimes[e.ID] = e.ModTime
		return fmt.Errorf("%s: %w", e.ID, ErrIneligible)
	}

	names := ix.settings.Casing.Classify(e).Names()

	h, exists := ix.handles[e.ID]
	if exists {
		ix.retract(h)
	} else {
		h = ix.allocHandle()
		ix.handles[e.ID] = h
	}
	ix.entities[h] = e
	ix.mtimes[e.ID] = e.ModTime

	for _, n := range names {
		ix.trie.Insert(h, n.Text, n.CaseExact)
	}
	for _, n := range e.Names(ix.settings.Casing.IncludeAliases) {
		ix.addName(n, h)
	}
	ix.log.Debug("indexed", "id", e.ID, "names", len(names))
	return nil
}

// Remove retracts id from the index. It reports whether id was indexed.
func (ix *Index) Remove(id string) bool {
	delete(ix.mtimes, id)
	h, ok := ix.handles[id]
	if !ok {
		return false
	}
	ix.retract(h)
	delete(ix.handles, id)
	ix.entities[h] = nil
	ix.free = append(ix.free, h)
	ix.log.Debug("removed", "id", id)
	return true
}

// Lookup returns the entities whose primary name or alias equals name,
// ignoring case, sorted by ID.
func (ix *Index) Lookup(name string) []*entity.Entity {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil
	}
	item := ix.names.Get(patricia.Prefix(key))
	if item == nil {
		return nil
	}
	return ix.resolve(item.(*roaring.Bitmap))
}

// Resolve maps a reference as written in a document (an ID, an ID without
// extension, or a name) to entity handles.
func (ix *Index) Resolve(ref string) *roaring.Bitmap {
	out := roaring.New()
	ref = strings.TrimSpace(ref)
	if h, ok := ix.handles[ref]; ok {
		out.Add(h)
	}
	if h, ok := ix.handles[ref+".md"]; ok {
		out.Add(h)
	}
	for _, e := range ix.Lookup(ref) {
		out.Add(ix.handles[e.ID])
	}
	return out
}

func (ix *Index) resolve(set *roaring.Bitmap) []*entity.Entity {
	out := make([]*entity.Entity, 0, set.GetCardinality())
	it := set.Iterator()
	for it.HasNext() {
		if e, ok := ix.Entity(it.Next()); ok {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// retract removes every name registered for h without freeing the handle.
func (ix *Index) retract(h uint32) {
	ix.trie.Remove(h)
	if e := ix.entities[h]; e != nil {
		for _, n := range e.Names(ix.settings.Casing.IncludeAliases) {
			ix.dropName(n, h)
		}
	}
}

func (ix *Index) allocHandle() uint32 {
	if k := len(ix.free); k > 0 {
		h := ix.free[k-1]
		ix.free = ix.free[:k-1]
		return h
	}
	ix.entities = append(ix.entities, nil)
	return uint32(len(ix.entities) - 1)
}

func (ix *Index) addName(name string, h uint32) {
	key := patricia.Prefix(strings.ToLower(name))
	if item := ix.names.Get(key); item != nil {
		item.(*roaring.Bitmap).Add(h)
		return
	}
	ix.names.Insert(key, roaring.BitmapOf(h))
}

func (ix *Index) dropName(name string, h uint32) {
	key := patricia.Prefix(strings.ToLower(name))
	item := ix.names.Get(key)
	if item == nil {
		return
	}
	set := item.(*roaring.Bitmap)
	set.Remove(h)
	if set.IsEmpty() {
		ix.names.Delete(key)
	}
}

// Stats reports index sizes.
func (ix *Index) Stats() map[string]int {
	return map[string]int{
		"entities":  len(ix.handles),
		"named":     ix.trie.Entities(),
		"names":     ix.trie.Names(),
		"trieNodes": ix.trie.Len(),
	}
}
