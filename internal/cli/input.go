// Package cli handles cmd line input for trying the linker on a vault by hand.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bastiangx/wordlink/internal/utils"
	"github.com/bastiangx/wordlink/pkg/linker"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"golang.org/x/text/unicode/norm"
)

var (
	matchStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Underline(true)
	aliasStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("176")).Underline(true)
	partialStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// InputHandler reads lines and prints the links found in each of them.
// Lines are treated as consecutive units of one session, so an entity is
// linked once until the session is reset.
//
// Lines starting with "?" list the entity names completing the rest of the line,
// ":reset" starts a new session.
type InputHandler struct {
	ix     *linker.Index
	self   string
	limit  int
	color  bool
	linked *roaring.Bitmap
	out    io.Writer
}

// NewInputHandler handles initialization of the InputHandler. Text is
// linked as if it belonged to the note self, which may be empty.
func NewInputHandler(ix *linker.Index, self string, limit int, color bool, out io.Writer) *InputHandler {
	return &InputHandler{
		ix:     ix,
		self:   self,
		limit:  limit,
		color:  color,
		linked: roaring.New(),
		out:    out,
	}
}

// Start runs the loop until in is exhausted.
func (h *InputHandler) Start(in io.Reader) error {
	fmt.Fprintln(h.out, "WordLink CLI")
	fmt.Fprintln(h.out, "type some text and press Enter to see the links, ?prefix to complete names (Ctrl+D to exit):")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Fprint(h.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(h.out)
			return scanner.Err()
		}
		line := scanner.Text()
		if utils.IsBlank(line) {
			continue
		}
		h.HandleLine(line)
	}
}

// HandleLine processes a single line of input.
func (h *InputHandler) HandleLine(line string) {
	switch trimmed := strings.TrimSpace(line); {
	case trimmed == ":reset":
		h.linked = roaring.New()
		fmt.Fprintln(h.out, h.dim("session reset"))
	case strings.HasPrefix(trimmed, "?"):
		h.complete(strings.TrimPrefix(trimmed, "?"))
	default:
		h.annotate(line)
	}
}

func (h *InputHandler) annotate(line string) {
	// Link offsets refer to the NFC form of the line.
	line = norm.NFC.String(line)
	start := time.Now()
	links, linked := h.ix.Annotate(linker.Unit{Text: line, Self: h.self}, h.linked)
	h.linked = linked
	log.Debugf("Took [ %v ] for %d bytes", time.Since(start), len(line))

	if len(links) == 0 {
		fmt.Fprintln(h.out, h.dim("no links"))
		return
	}
	fmt.Fprintln(h.out, Highlight(line, links, h.color))
	for i, l := range links {
		targets := make([]string, len(l.Targets))
		for j, e := range l.Targets {
			targets[j] = e.ID
		}
		kind := "name"
		if l.IsAlias {
			kind = "alias"
		}
		if l.PartialWord {
			kind += ", partial"
		}
		fmt.Fprintf(h.out, "%2d. [%d:%d] %-24s -> %s %s\n",
			i+1, l.Start, l.End, l.Text, strings.Join(targets, ", "), h.dim("("+kind+")"))
	}
}

func (h *InputHandler) complete(prefix string) {
	suggestions := h.ix.Complete(prefix, h.limit)
	if len(suggestions) == 0 {
		fmt.Fprintln(h.out, h.dim(fmt.Sprintf("no names start with '%s'", prefix)))
		return
	}
	for i, s := range suggestions {
		name := s.Name
		if h.color {
			name = matchStyle.Render(name)
		}
		fmt.Fprintf(h.out, "%2d. %s %s\n", i+1, name, h.dim(s.ID))
	}
}

func (h *InputHandler) dim(s string) string {
	if !h.color {
		return s
	}
	return dimStyle.Render(s)
}

// Highlight renders text with every link styled, or wrapped in brackets when
// color is off. Links must be ordered and positioned relative to text.
func Highlight(text string, links []linker.Link, color bool) string {
	var b strings.Builder
	last := 0
	for _, l := range links {
		if l.Start < last || l.End > len(text) {
			continue
		}
		b.WriteString(text[last:l.Start])
		span := text[l.Start:l.End]
		switch {
		case !color:
			b.WriteString("[" + span + "]")
		case l.PartialWord:
			b.WriteString(partialStyle.Render(span))
		case l.IsAlias:
			b.WriteString(aliasStyle.Render(span))
		default:
			b.WriteString(matchStyle.Render(span))
		}
		last = l.End
	}
	b.WriteString(text[last:])
	return b.String()
}
