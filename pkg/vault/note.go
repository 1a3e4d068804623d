package vault

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bastiangx/wordlink/pkg/entity"
	"github.com/bastiangx/wordlink/pkg/markdown"
	"gopkg.in/yaml.v3"
)

// Front matter keys understood by Parse.
const (
	KeyAliases    = "aliases"
	KeyAlias      = "alias"
	KeyTags       = "tags"
	KeyTag        = "tag"
	KeyMatchCase  = "linker-match-case"
	KeyIgnoreCase = "linker-ignore-case"
	KeyExclude    = "linker-exclude"
)

// Parse builds the entity of a note from its content.
//
// The primary name is the file name. Aliases, tags and the per-name case
// directives come from the front matter; inline #tags of the body are added
// to the tags. Parse always returns an entity: malformed fields are dropped
// and reported in the returned error.
func Parse(id string, content []byte) (*entity.Entity, error) {
	text := string(content)
	e := &entity.Entity{ID: id, Name: entity.NameFromID(id)}

	var errs []error
	if front, _, ok := markdown.SplitFrontmatter(text); ok && strings.TrimSpace(front) != "" {
		fields := make(map[string]yaml.Node)
		if err := yaml.Unmarshal([]byte(front), &fields); err != nil {
			errs = append(errs, fmt.Errorf("front matter: %w", err))
		}

		list := func(key string) []string {
			node, ok := fields[key]
			if !ok {
				return nil
			}
			var l entity.StringList
			if err := node.Decode(&l); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return nil
			}
			return l
		}

		e.Aliases = append(list(KeyAliases), list(KeyAlias)...)
		e.Tags = append(e.Tags, splitTags(list(KeyTags))...)
		e.Tags = append(e.Tags, splitTags(list(KeyTag))...)
		e.MatchCase = list(KeyMatchCase)
		e.IgnoreCase = list(KeyIgnoreCase)
		e.Excluded = list(KeyExclude)
	}
	e.Tags = append(e.Tags, markdown.InlineTags(text)...)

	if len(errs) > 0 {
		return e, fmt.Errorf("%s: %w", id, errors.Join(errs...))
	}
	return e, nil
}

// splitTags accepts "a, b" and "a b" forms inside a single tag entry.
func splitTags(in []string) []string {
	var out []string
	for _, s := range in {
		out = append(out, strings.FieldsFunc(s, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})...)
	}
	return out
}
