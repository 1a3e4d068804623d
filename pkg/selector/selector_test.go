package selector

import (
	"strings"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bastiangx/wordlink/pkg/scan"
	"github.com/bastiangx/wordlink/pkg/trie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type names map[uint32]string

func (n names) PrimaryName(id uint32) (string, bool) {
	s, ok := n[id]
	return s, ok
}

func cand(start, end int, owners ...uint32) scan.Candidate {
	return scan.Candidate{
		Start:            start,
		End:              end,
		Owners:           roaring.BitmapOf(owners...),
		StartsAtBoundary: true,
		EndsAtBoundary:   true,
	}
}

func scanAll(n names, text string, p Policy) []scan.Candidate {
	tr := trie.New()
	for id, name := range n {
		tr.Insert(id, name, false)
		tr.Insert(id, strings.ToLower(name), false)
	}
	return scan.Text(tr, n, text, 0, scan.Options{SeedAnywhere: p.SeedAnywhere()})
}

func spans(text string, ms []Match) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, text[m.Start:m.End])
	}
	return out
}

func TestLongerCandidateWinsAtSameStart(t *testing.T) {
	res := Select([]scan.Candidate{cand(0, 4, 1), cand(0, 12, 2)}, DefaultPolicy(), Unit{})
	require.Len(t, res.Matches, 1)
	assert.Equal(t, 12, res.Matches[0].End)
	assert.True(t, res.Linked.Contains(2))
	assert.False(t, res.Linked.Contains(1))
}

func TestCellBiologyScenario(t *testing.T) {
	n := names{1: "Cell", 2: "Cell Biology"}
	text := "Cell Biology is complex."
	p := DefaultPolicy()

	res := Select(scanAll(n, text, p), p, Unit{})
	assert.Equal(t, []string{"Cell Biology"}, spans(text, res.Matches))
	assert.False(t, res.Matches[0].PartialWord)
}

func TestSelectIsDeterministic(t *testing.T) {
	in := []scan.Candidate{cand(5, 9, 3), cand(0, 4, 1), cand(2, 7, 2), cand(0, 6, 4), cand(10, 12, 1)}
	p := DefaultPolicy()
	p.OnlyOnce = false

	first := Select(in, p, Unit{})
	second := Select(in, p, Unit{})
	assert.Equal(t, first.Matches, second.Matches)
	assert.True(t, first.Linked.Equals(second.Linked))

	require.Len(t, first.Matches, 2)
	assert.Equal(t, 0, first.Matches[0].Start)
	assert.Equal(t, 6, first.Matches[0].End)
	assert.Equal(t, 10, first.Matches[1].Start)
}

func TestBeginningOfWordPolicy(t *testing.T) {
	n := names{1: "cell"}
	text := "subcell cell"
	p := Policy{BeginningOfWord: true}

	res := Select(scanAll(n, text, p), p, Unit{})
	assert.Equal(t, []string{"cell"}, spans(text, res.Matches))
	assert.Equal(t, 8, res.Matches[0].Start)

	p = Policy{AnyPartOfWord: true, BeginningOfWord: true, EndOfWord: true}
	res = Select(scanAll(n, text, p), p, Unit{})
	require.Len(t, res.Matches, 2)
	assert.True(t, res.Matches[0].PartialWord)
	assert.False(t, res.Matches[1].PartialWord)
}

func TestEndOfWordPolicy(t *testing.T) {
	n := names{1: "cell"}
	text := "cells cell"

	p := Policy{BeginningOfWord: true, EndOfWord: true}
	res := Select(scanAll(n, text, p), p, Unit{})
	assert.Equal(t, []int{6}, starts(res.Matches))

	p.EndOfWord = false
	res = Select(scanAll(n, text, p), p, Unit{})
	assert.Equal(t, []int{0, 6}, starts(res.Matches))
}

func TestMidWordStartWithoutBeginningRequirement(t *testing.T) {
	n := names{1: "cell"}
	text := "subcell"
	p := Policy{EndOfWord: true}
	res := Select(scanAll(n, text, p), p, Unit{})
	assert.Equal(t, []int{3}, starts(res.Matches))
}

func TestOnlyOnce(t *testing.T) {
	n := names{1: "Glossary"}
	text := "Glossary and glossary again."

	p := DefaultPolicy()
	res := Select(scanAll(n, text, p), p, Unit{})
	assert.Len(t, res.Matches, 1)

	p.OnlyOnce = false
	res = Select(scanAll(n, text, p), p, Unit{})
	assert.Len(t, res.Matches, 2)
}

func TestOnlyOnceCarriesAcrossUnits(t *testing.T) {
	p := DefaultPolicy()
	first := Select([]scan.Candidate{cand(0, 4, 1)}, p, Unit{})
	require.Len(t, first.Matches, 1)

	second := Select([]scan.Candidate{cand(0, 4, 1), cand(5, 9, 1, 2)}, p, Unit{Linked: first.Linked})
	require.Len(t, second.Matches, 1)
	assert.Equal(t, 5, second.Matches[0].Start, "a shared candidate still links an unlinked owner")
	assert.Equal(t, uint64(1), first.Linked.GetCardinality(), "input set must not be mutated")
}

func TestExplicitLinksExcluded(t *testing.T) {
	in := []scan.Candidate{cand(0, 4, 1), cand(5, 9, 1, 2)}
	p := DefaultPolicy()
	p.OnlyOnce = false

	res := Select(in, p, Unit{Explicit: roaring.BitmapOf(1)})
	require.Len(t, res.Matches, 1)
	assert.Equal(t, 5, res.Matches[0].Start)

	p.ExcludeLinked = false
	res = Select(in, p, Unit{Explicit: roaring.BitmapOf(1)})
	assert.Len(t, res.Matches, 2)
}

func TestExcludedIntervals(t *testing.T) {
	in := []scan.Candidate{cand(0, 6, 1), cand(8, 12, 2)}
	p := DefaultPolicy()
	ex := NewIntervals(Interval{Start: 4, End: 7})

	res := Select(in, p, Unit{Excluded: ex})
	assert.Equal(t, []int{8}, starts(res.Matches))

	p.Intervals = StartOnly
	res = Select(in, p, Unit{Excluded: ex})
	assert.Equal(t, []int{0, 8}, starts(res.Matches))

	res = Select(in, p, Unit{Excluded: NewIntervals(Interval{Start: 8, End: 9})})
	assert.Equal(t, []int{0}, starts(res.Matches))
}

func TestRejectedCandidateDoesNotBlockLater(t *testing.T) {
	in := []scan.Candidate{cand(0, 10, 1), cand(2, 5, 2)}
	res := Select(in, DefaultPolicy(), Unit{Excluded: NewIntervals(Interval{Start: 8, End: 9})})
	assert.Equal(t, []int{2}, starts(res.Matches))
}

func TestIntervals(t *testing.T) {
	s := NewIntervals(Interval{10, 20}, Interval{0, 5}, Interval{4, 8}, Interval{30, 30})
	assert.Equal(t, Intervals{{0, 8}, {10, 20}}, s)
	assert.True(t, s.Contains(0))
	assert.False(t, s.Contains(8))
	assert.True(t, s.Intersects(7, 12))
	assert.False(t, s.Intersects(8, 10))
	assert.False(t, s.Intersects(20, 25))

	s = s.Add(Interval{8, 10})
	assert.Equal(t, Intervals{{0, 20}}, s)

	assert.Equal(t, StartOnly, ParseIntervalMode("once"))
	assert.Equal(t, Overlap, ParseIntervalMode("whatever"))
}

func starts(ms []Match) []int {
	out := make([]int, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Start)
	}
	return out
}
