package linker

import (
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Suggestion is an entity name starting with a completion prefix.
type Suggestion struct {
	Name    string `msgpack:"n"`
	ID      string `msgpack:"id"`
	IsAlias bool   `msgpack:"a,omitempty"`
}

// Complete returns up to limit entity names starting with prefix, ignoring
// case. Shorter names come first, then names in lexical order. A limit of 0
// or less returns every match.
func (ix *Index) Complete(prefix string, limit int) []Suggestion {
	lowerPrefix := strings.ToLower(strings.TrimSpace(prefix))
	if lowerPrefix == "" {
		return nil
	}

	var suggestions []Suggestion
	err := ix.names.VisitSubtree(patricia.Prefix(lowerPrefix), func(p patricia.Prefix, item patricia.Item) error {
		key := string(p)
		set, ok := item.(*roaring.Bitmap)
		if !ok {
			ix.log.Errorf("unexpected item type %T for name %q", item, key)
			return nil
		}
		it := set.Iterator()
		for it.HasNext() {
			e, ok := ix.Entity(it.Next())
			if !ok {
				continue
			}
			for _, n := range e.Names(ix.settings.Casing.IncludeAliases) {
				if strings.ToLower(n) != key {
					continue
				}
				suggestions = append(suggestions, Suggestion{
					Name:    n,
					ID:      e.ID,
					IsAlias: n != e.Name,
				})
			}
		}
		return nil
	})
	if err != nil {
		ix.log.Errorf("error visiting name subtree: %v", err)
		return nil
	}

	sort.Slice(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if len(a.Name) != len(b.Name) {
			return len(a.Name) < len(b.Name)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}
