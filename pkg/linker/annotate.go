package linker

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bastiangx/wordlink/pkg/entity"
	"github.com/bastiangx/wordlink/pkg/markdown"
	"github.com/bastiangx/wordlink/pkg/scan"
	"github.com/bastiangx/wordlink/pkg/selector"
	"golang.org/x/text/unicode/norm"
)

// Unit is one span of text to annotate.
type Unit struct {
	Text string
	// Offset is added to every reported position, for units cut out of a larger text.
	Offset int
	// Self is the ID of the document the text belongs to.
	Self string
	// Excluded holds ranges of Text that must not be linked.
	Excluded selector.Intervals
	// Explicit lists the references the text already links to, as written.
	Explicit []string
}

// Link is a final match resolved to its target entities.
type Link struct {
	Start       int              `msgpack:"s"`
	End         int              `msgpack:"e"`
	Text        string           `msgpack:"t"`
	Targets     []*entity.Entity `msgpack:"targets"`
	IsAlias     bool             `msgpack:"alias,omitempty"`
	PartialWord bool             `msgpack:"partial,omitempty"`
}

// Annotate finds the entity mentions in u.
//
// linked holds the entities linked by earlier units of the same session and is
// not modified. The returned set adds the entities linked in u; pass it to the
// next unit so that each entity is linked once when OnlyOnce is set.
//
// Text that is not in NFC form is normalized first and positions refer to the
// normalized text.
func (ix *Index) Annotate(u Unit, linked *roaring.Bitmap) ([]Link, *roaring.Bitmap) {
	text := u.Text
	if !norm.NFC.IsNormalString(text) {
		text = norm.NFC.String(text)
	}

	opts := scan.Options{SeedAnywhere: ix.settings.Selection.SeedAnywhere()}
	if ix.settings.ExcludeSelf && u.Self != "" {
		if h, ok := ix.handles[u.Self]; ok {
			opts.Exclude = roaring.BitmapOf(h)
		}
	}

	explicit := roaring.New()
	for _, ref := range u.Explicit {
		explicit.Or(ix.Resolve(ref))
	}

	candidates := scan.Text(ix.trie, ix, text, 0, opts)
	res := selector.Select(candidates, ix.settings.Selection, selector.Unit{
		Excluded: u.Excluded,
		Explicit: explicit,
		Linked:   linked,
	})

	links := make([]Link, 0, len(res.Matches))
	for _, m := range res.Matches {
		targets := ix.resolve(m.Owners)
		if len(targets) == 0 {
			continue
		}
		links = append(links, Link{
			Start:       u.Offset + m.Start,
			End:         u.Offset + m.End,
			Text:        text[m.Start:m.End],
			Targets:     targets,
			IsAlias:     m.IsAlias,
			PartialWord: m.PartialWord,
		})
	}
	ix.log.Debug("annotated", "self", u.Self, "candidates", len(candidates), "links", len(links))
	return links, res.Linked
}

// AnnotateDocument annotates a whole markdown note. Front matter, code, links,
// URLs and, when configured, headings are left alone; entities the note
// already links to are skipped when ExcludeLinked is set.
func (ix *Index) AnnotateDocument(id, content string, linked *roaring.Bitmap) ([]Link, *roaring.Bitmap) {
	content = norm.NFC.String(content)
	return ix.Annotate(Unit{
		Text:     content,
		Self:     id,
		Excluded: markdown.Regions(content, ix.settings.ExcludeHeaders),
		Explicit: markdown.LinkTargets(content),
	}, linked)
}
