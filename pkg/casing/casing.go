// Package casing decides, per entity name, whether matching must respect letter case.
package casing

import (
	"strings"

	"github.com/bastiangx/wordlink/internal/utils"
	"github.com/bastiangx/wordlink/pkg/entity"
)

// DefaultCapitalProportion is the uppercase share from which a name is
// treated as an acronym-like name that must match case-exactly.
const DefaultCapitalProportion = 0.75

// Policy holds the knobs of the classifier.
type Policy struct {
	// CaseSensitive makes every name case-exact unless the entity carries IgnoreCaseTag.
	CaseSensitive     bool
	CapitalProportion float64
	MatchCaseTag      string
	IgnoreCaseTag     string
	IncludeAliases    bool
}

// DefaultPolicy mirrors the defaults of the config file.
func DefaultPolicy() Policy {
	return Policy{
		CapitalProportion: DefaultCapitalProportion,
		MatchCaseTag:      "linker-match-case",
		IgnoreCaseTag:     "linker-ignore-case",
		IncludeAliases:    true,
	}
}

// Name is one string to register in the trie.
type Name struct {
	Text      string
	CaseExact bool
}

// Classification is the outcome for one entity. CaseMatch and CaseIgnore are disjoint.
type Classification struct {
	CaseMatch  []string
	CaseIgnore []string
}

// Classify partitions the names of e.
//
// Forced lists on the entity take precedence over tags and the uppercase
// heuristic. Membership is tested by exact string equality.
func (p Policy) Classify(e *entity.Entity) Classification {
	forceMatch := toSet(e.MatchCase)
	forceIgnore := toSet(e.IgnoreCase)

	var c Classification
	for _, name := range e.Names(p.IncludeAliases) {
		exact := p.defaultCaseExact(e, name)
		if _, ok := forceMatch[name]; ok {
			exact = true
		}
		if _, ok := forceIgnore[name]; ok {
			exact = false
		}
		if exact {
			c.CaseMatch = append(c.CaseMatch, name)
		} else {
			c.CaseIgnore = append(c.CaseIgnore, name)
		}
	}
	return c
}

func (p Policy) defaultCaseExact(e *entity.Entity, name string) bool {
	if p.CaseSensitive {
		return !e.HasTag(p.IgnoreCaseTag)
	}
	if e.HasTag(p.MatchCaseTag) {
		return true
	}
	threshold := p.CapitalProportion
	if threshold <= 0 {
		threshold = DefaultCapitalProportion
	}
	return utils.UpperRatio(name) >= threshold
}

// Names flattens a classification into trie insertions. Case-ignore names are
// registered verbatim and lowercased so a folded child never collides with a
// case-exact one.
func (c Classification) Names() []Name {
	out := make([]Name, 0, len(c.CaseMatch)+2*len(c.CaseIgnore))
	for _, n := range c.CaseMatch {
		out = append(out, Name{Text: n, CaseExact: true})
	}
	for _, n := range c.CaseIgnore {
		out = append(out, Name{Text: n})
		if lower := strings.ToLower(n); lower != n {
			out = append(out, Name{Text: lower})
		}
	}
	return out
}

func toSet(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, s := range list {
		set[s] = struct{}{}
	}
	return set
}
