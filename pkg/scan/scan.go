/*
Package scan walks text one code point at a time against a trie.

A State holds the live traversals: trie nodes reachable by some suffix of
the text consumed so far. Every Step first reports the traversals that end
at an entity name (candidates ending right before the new code point), then
advances all traversals by the code point and its lowercase fold. Finish
flushes the matches that end at the end of the text unit.

A State belongs to a single text unit. Create a fresh one per unit.
*/
package scan

import (
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bastiangx/wordlink/internal/utils"
	"github.com/bastiangx/wordlink/pkg/trie"
)

// Namer resolves entity handles to their primary names.
type Namer interface {
	PrimaryName(entity uint32) (string, bool)
}

// Options tunes a scan.
type Options struct {
	// SeedAnywhere starts new traversals after every code point, not only
	// after word boundaries. Set it when matches may begin mid-word.
	SeedAnywhere bool
	// Exclude holds entities that are never reported, e.g. the document being scanned.
	Exclude *roaring.Bitmap
}

// Candidate is a provisional match ending at a scan position.
type Candidate struct {
	Start             int // byte offset of the first code point
	End               int // byte offset right after the last code point
	Text              string
	Owners            *roaring.Bitmap
	IsAlias           bool
	CaseMatched       bool
	RequiresCaseMatch bool
	StartsAtBoundary  bool
	EndsAtBoundary    bool
}

// Len returns the byte length of the candidate span.
func (c Candidate) Len() int {
	return c.End - c.Start
}

type traversal struct {
	node        trie.NodeID
	start       int
	caseMatched bool
	atBoundary  bool
}

// State is the per text unit traversal state.
type State struct {
	trie  *trie.Trie
	names Namer
	opts  Options

	live []traversal
	next []traversal
	seen map[trie.NodeID]struct{}
	done bool
}

// New starts a scan. The beginning of a text unit counts as a word boundary.
func New(t *trie.Trie, names Namer, opts Options) *State {
	return &State{
		trie:  t,
		names: names,
		opts:  opts,
		live:  []traversal{{node: trie.Root, caseMatched: true, atBoundary: true}},
		seen:  make(map[trie.NodeID]struct{}),
	}
}

// Step consumes c, located at byte offset, and returns the candidates that end
// at offset, longest first.
func (s *State) Step(offset int, c rune) []Candidate {
	if s.done {
		return nil
	}
	boundary := utils.IsWordBoundary(c)
	found := s.collect(offset, boundary)
	s.advance(offset, c, boundary)
	return found
}

// Finish reports the candidates that end at offset, the end of the text unit,
// and closes the state.
func (s *State) Finish(offset int) []Candidate {
	if s.done {
		return nil
	}
	found := s.collect(offset, true)
	s.live = nil
	s.next = nil
	s.done = true
	return found
}

// Live returns the number of live traversals.
func (s *State) Live() int {
	return len(s.live)
}

func (s *State) advance(offset int, c rune, boundary bool) {
	next := s.next[:0]
	clear(s.seen)

	variants := [2]rune{c, utils.FoldRune(c)}
	n := 1
	if variants[1] != c {
		n = 2
	}

	for v := 0; v < n; v++ {
		for _, tr := range s.live {
			child, ok := s.trie.Child(tr.node, variants[v])
			if !ok {
				continue
			}
			// The verbatim variant runs first and wins.
			if _, dup := s.seen[child]; dup {
				continue
			}
			s.seen[child] = struct{}{}

			start := tr.start
			if tr.node == trie.Root {
				start = offset
			}
			next = append(next, traversal{
				node:        child,
				start:       start,
				caseMatched: tr.caseMatched && v == 0,
				atBoundary:  tr.atBoundary,
			})
		}
	}

	if s.opts.SeedAnywhere || boundary {
		next = append(next, traversal{node: trie.Root, caseMatched: true, atBoundary: boundary})
	}

	s.next = s.live
	s.live = next
}

func (s *State) collect(offset int, boundary bool) []Candidate {
	var found []Candidate
	for _, tr := range s.live {
		if tr.node == trie.Root {
			continue
		}
		owners := s.trie.Owners(tr.node)
		if owners == nil {
			continue
		}
		strict := s.trie.RequiresCaseMatch(tr.node)
		if strict && !tr.caseMatched {
			continue
		}

		var reported *roaring.Bitmap
		if s.opts.Exclude != nil && owners.Intersects(s.opts.Exclude) {
			reported = roaring.AndNot(owners, s.opts.Exclude)
		} else {
			reported = owners.Clone()
		}
		if reported.IsEmpty() {
			continue
		}

		text := s.trie.Value(tr.node)
		found = append(found, Candidate{
			Start:             tr.start,
			End:               offset,
			Text:              text,
			Owners:            reported,
			IsAlias:           s.isAlias(text, reported),
			CaseMatched:       tr.caseMatched,
			RequiresCaseMatch: strict,
			StartsAtBoundary:  tr.atBoundary,
			EndsAtBoundary:    boundary,
		})
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Len() > found[j].Len()
	})
	return found
}

// isAlias reports whether text differs from every owner's primary name,
// ignoring case.
func (s *State) isAlias(text string, owners *roaring.Bitmap) bool {
	if s.names == nil {
		return false
	}
	it := owners.Iterator()
	for it.HasNext() {
		if name, ok := s.names.PrimaryName(it.Next()); ok && strings.EqualFold(name, text) {
			return false
		}
	}
	return true
}

// Text scans a whole text unit whose first byte sits at base and returns every
// candidate in position order.
func Text(t *trie.Trie, names Namer, text string, base int, opts Options) []Candidate {
	s := New(t, names, opts)
	var all []Candidate
	for i, r := range text {
		all = append(all, s.Step(base+i, r)...)
	}
	return append(all, s.Finish(base+len(text))...)
}
