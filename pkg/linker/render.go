package linker

import (
	"strings"
)

// Target returns the wikilink target for l: the ID of its first target
// without the .md extension.
func (l Link) Target() string {
	if len(l.Targets) == 0 {
		return ""
	}
	return strings.TrimSuffix(l.Targets[0].ID, ".md")
}

// Rewrite turns the links found in text into wikilinks. Links must be ordered,
// non-overlapping and positioned relative to text, as Annotate returns them
// for a unit with a zero Offset.
//
// A link whose text equals its target is written as [[target]], any other as
// [[target|text]].
func Rewrite(text string, links []Link) string {
	var b strings.Builder
	b.Grow(len(text) + 8*len(links))

	last := 0
	for _, l := range links {
		if l.Start < last || l.End > len(text) || l.Start >= l.End {
			continue
		}
		target := l.Target()
		if target == "" {
			continue
		}
		b.WriteString(text[last:l.Start])
		b.WriteString("[[")
		b.WriteString(target)
		if span := text[l.Start:l.End]; span != target {
			b.WriteByte('|')
			b.WriteString(span)
		}
		b.WriteString("]]")
		last = l.End
	}
	b.WriteString(text[last:])
	return b.String()
}
