/*
Package selector turns the raw candidates of one text unit into final,
non-overlapping matches.

The pipeline runs in a fixed order: word boundary filter, exclusion of
entities already linked by hand, sort by start (longer first on ties), then
a single greedy pass that accepts a candidate when it starts at or after
the end of the last accepted match, avoids the excluded intervals and, when
OnlyOnce is set, still links some entity that has not been linked yet.
There is no backtracking: a rejected candidate is simply skipped.
*/
package selector

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bastiangx/wordlink/pkg/scan"
)

// Policy is the matching configuration the selector honours.
type Policy struct {
	AnyPartOfWord   bool // no boundary constraint at all
	BeginningOfWord bool // a match must start after a word boundary
	EndOfWord       bool // a match must end before a word boundary
	ExcludeLinked   bool // drop entities the unit already links explicitly
	OnlyOnce        bool // link each entity at most once per session
	Intervals       IntervalMode
}

// DefaultPolicy returns whole-word matching with every exclusion enabled.
func DefaultPolicy() Policy {
	return Policy{
		BeginningOfWord: true,
		EndOfWord:       true,
		ExcludeLinked:   true,
		OnlyOnce:        true,
		Intervals:       Overlap,
	}
}

// SeedAnywhere reports whether the scanner must start traversals mid-word to
// feed this policy.
func (p Policy) SeedAnywhere() bool {
	return p.AnyPartOfWord || !p.BeginningOfWord
}

// Unit carries the per text unit inputs of a selection.
type Unit struct {
	// Excluded holds ranges that must not be linked (code, existing links, headings).
	Excluded Intervals
	// Explicit holds the entities the unit already links by hand.
	Explicit *roaring.Bitmap
	// Linked holds the entities linked earlier in the session. It is not modified.
	Linked *roaring.Bitmap
}

// Match is a candidate that survived selection.
type Match struct {
	scan.Candidate
	// PartialWord is set when the match does not span whole words.
	PartialWord bool
}

// Result is the output of Select.
type Result struct {
	Matches []Match
	// Linked is Unit.Linked plus the owners of every accepted match.
	Linked *roaring.Bitmap
}

// Select resolves candidates into final matches. It is deterministic and
// does not modify its inputs.
func Select(candidates []scan.Candidate, p Policy, u Unit) Result {
	kept := make([]scan.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !p.boundaryOK(c) {
			continue
		}
		if p.ExcludeLinked && covered(c.Owners, u.Explicit) {
			continue
		}
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Start != kept[j].Start {
			return kept[i].Start < kept[j].Start
		}
		return kept[i].Len() > kept[j].Len()
	})

	linked := roaring.New()
	if u.Linked != nil {
		linked = u.Linked.Clone()
	}

	var matches []Match
	lastEnd := -1 << 62
	for _, c := range kept {
		if c.Start < lastEnd {
			continue
		}
		if u.Excluded.Blocks(c.Start, c.End, p.Intervals) {
			continue
		}
		if p.OnlyOnce && covered(c.Owners, linked) {
			continue
		}
		matches = append(matches, Match{
			Candidate:   c,
			PartialWord: !c.StartsAtBoundary || !c.EndsAtBoundary,
		})
		linked.Or(c.Owners)
		lastEnd = c.End
	}

	return Result{Matches: matches, Linked: linked}
}

func (p Policy) boundaryOK(c scan.Candidate) bool {
	if p.AnyPartOfWord {
		return true
	}
	if p.BeginningOfWord && !c.StartsAtBoundary {
		return false
	}
	if p.EndOfWord && !c.EndsAtBoundary {
		return false
	}
	return true
}

// covered reports whether every owner is already in set.
func covered(owners, set *roaring.Bitmap) bool {
	if set == nil || set.IsEmpty() || owners == nil {
		return false
	}
	return roaring.AndNot(owners, set).IsEmpty()
}
