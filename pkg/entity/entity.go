/*
Package entity models the link targets known to the matcher.

An Entity is a snapshot of one document as seen by the document store: a
stable ID (its path), a primary name, aliases, tags and the per-name case
directives found in its front matter. The matcher never reads documents
itself; it only observes these snapshots.

Metadata arriving from the outside world is loosely shaped (an alias field
may be a single string or a list). StringList absorbs that at decode time so
the rest of the module only deals with plain string slices.
*/
package entity

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/bastiangx/wordlink/internal/utils"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// ErrNoName is returned by Validate for entities without a usable primary name.
var ErrNoName = errors.New("entity has no name")

// Entity is a named link target.
type Entity struct {
	ID      string    `msgpack:"id"`
	Name    string    `msgpack:"name"`
	Aliases []string  `msgpack:"aliases,omitempty"`
	Tags    []string  `msgpack:"tags,omitempty"`
	ModTime time.Time `msgpack:"mtime"`

	// Names listed here are forced to exact-case or case-insensitive matching,
	// or dropped from the candidate name list.
	MatchCase  []string `msgpack:"match_case,omitempty"`
	IgnoreCase []string `msgpack:"ignore_case,omitempty"`
	Excluded   []string `msgpack:"excluded,omitempty"`
}

// Validate checks the invariants the index relies on.
func (e *Entity) Validate() error {
	if e == nil {
		return errors.New("nil entity")
	}
	if e.ID == "" {
		return fmt.Errorf("entity %q: empty id", e.Name)
	}
	if utils.IsBlank(e.Name) {
		return fmt.Errorf("entity %s: %w", e.ID, ErrNoName)
	}
	return nil
}

// Normalize puts every name-bearing field into NFC form, trims blanks and
// drops empty entries. It is applied once, where metadata enters the index.
func (e *Entity) Normalize() {
	e.Name = normalizeName(e.Name)
	e.Aliases = normalizeNames(e.Aliases)
	e.MatchCase = normalizeNames(e.MatchCase)
	e.IgnoreCase = normalizeNames(e.IgnoreCase)
	e.Excluded = normalizeNames(e.Excluded)

	tags := e.Tags[:0]
	for _, t := range e.Tags {
		if t = utils.TrimTag(t); t != "" {
			tags = append(tags, t)
		}
	}
	e.Tags = tags
}

// HasTag reports whether the entity carries tag (without the leading '#').
func (e *Entity) HasTag(tag string) bool {
	if tag == "" {
		return false
	}
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Names returns the primary name followed by the aliases (when includeAliases
// is set), without duplicates and without names listed in Excluded.
func (e *Entity) Names(includeAliases bool) []string {
	excluded := make(map[string]struct{}, len(e.Excluded))
	for _, n := range e.Excluded {
		excluded[n] = struct{}{}
	}

	candidates := []string{e.Name}
	if includeAliases {
		candidates = append(candidates, e.Aliases...)
	}

	seen := make(map[string]struct{}, len(candidates))
	names := make([]string, 0, len(candidates))
	for _, n := range candidates {
		if n == "" {
			continue
		}
		if _, skip := excluded[n]; skip {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	return names
}

// Dir returns the location of the entity: the slash-separated directory of its ID.
func (e *Entity) Dir() string {
	d := path.Dir(e.ID)
	if d == "." {
		return ""
	}
	return d
}

// Clone returns a deep copy.
func (e *Entity) Clone() *Entity {
	c := *e
	c.Aliases = append([]string(nil), e.Aliases...)
	c.Tags = append([]string(nil), e.Tags...)
	c.MatchCase = append([]string(nil), e.MatchCase...)
	c.IgnoreCase = append([]string(nil), e.IgnoreCase...)
	c.Excluded = append([]string(nil), e.Excluded...)
	return &c
}

// NameFromID derives a primary name from a note path: its base name without extension.
func NameFromID(id string) string {
	base := path.Base(id)
	return strings.TrimSuffix(base, path.Ext(base))
}

func normalizeName(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

func normalizeNames(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = normalizeName(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// StringList is a list of strings that also accepts a single scalar when
// decoded from YAML, so `aliases: Foo` and `aliases: [Foo, Bar]` both work.
type StringList []string

// UnmarshalYAML coerces scalars into a one-element list and flattens
// sequences of scalars. Nested mappings are rejected.
func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || value.Value == "" {
			*l = nil
			return nil
		}
		*l = StringList{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make(StringList, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: expected a string, got %s", item.Line, kindName(item.Kind))
			}
			if item.Tag == "!!null" || item.Value == "" {
				continue
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list, got %s", value.Line, kindName(value.Kind))
	}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	default:
		return "scalar"
	}
}
