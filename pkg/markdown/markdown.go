/*
Package markdown extracts what the linker needs from a markdown note: the
front matter block, the regions that must never receive a link and the
references the author already wrote by hand.

All offsets are byte offsets into the content passed in.
*/
package markdown

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/bastiangx/wordlink/pkg/selector"
)

var (
	inlineCodePattern = regexp.MustCompile("`[^`\n]+`")
	wikiLinkPattern   = regexp.MustCompile(`!?\[\[([^\[\]\n]+)\]\]`)
	mdLinkPattern     = regexp.MustCompile(`!?\[[^\]\n]*\]\(([^()\s]+)(?:\s+"[^"\n]*")?\)`)
	urlPattern        = regexp.MustCompile(`(?i)\b(?:https?|ftp|file|obsidian)://[^\s<>()\[\]]+`)
	headingPattern    = regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}(?:[ \t][^\n]*)?$`)
	tagPattern        = regexp.MustCompile(`(?:^|[\s(,])#([\p{L}\p{N}_/-]+)`)
)

// SplitFrontmatter locates a leading YAML block delimited by "---" lines.
// It returns the YAML text and the offset at which the body starts. ok is
// false when content has no front matter.
func SplitFrontmatter(content string) (front string, bodyStart int, ok bool) {
	first, _, found := strings.Cut(content, "\n")
	if !found || strings.TrimRight(first, " \t\r") != "---" {
		return "", 0, false
	}
	offset := len(first) + 1
	pos := offset
	for pos <= len(content) {
		line, _, more := strings.Cut(content[pos:], "\n")
		trimmed := strings.TrimRight(line, " \t\r")
		if trimmed == "---" || trimmed == "..." {
			end := pos + len(line)
			if more {
				end++
			}
			return content[offset:pos], end, true
		}
		if !more {
			break
		}
		pos += len(line) + 1
	}
	return "", 0, false
}

// Regions returns the byte ranges of content that must not be linked: front
// matter, fenced and inline code, existing links, bare URLs and, when
// excludeHeaders is set, headings.
func Regions(content string, excludeHeaders bool) selector.Intervals {
	var out []selector.Interval
	if _, end, ok := SplitFrontmatter(content); ok {
		out = append(out, selector.Interval{Start: 0, End: end})
	}
	out = append(out, fences(content)...)
	out = append(out, spans(inlineCodePattern, content)...)
	out = append(out, spans(wikiLinkPattern, content)...)
	out = append(out, spans(mdLinkPattern, content)...)
	out = append(out, spans(urlPattern, content)...)
	if excludeHeaders {
		out = append(out, spans(headingPattern, content)...)
	}
	return selector.NewIntervals(out...)
}

// LinkTargets returns the notes content already links to, in order of first
// appearance: wikilink targets without heading or label, and local markdown
// link destinations. Links inside code are ignored.
func LinkTargets(content string) []string {
	code := codeRegions(content)
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	for _, m := range wikiLinkPattern.FindAllStringSubmatchIndex(content, -1) {
		if code.Contains(m[0]) {
			continue
		}
		target, _, _ := strings.Cut(content[m[2]:m[3]], "|")
		target, _, _ = strings.Cut(target, "#")
		add(target)
	}
	for _, m := range mdLinkPattern.FindAllStringSubmatchIndex(content, -1) {
		if code.Contains(m[0]) {
			continue
		}
		dest := content[m[2]:m[3]]
		if strings.Contains(dest, "://") || strings.HasPrefix(dest, "mailto:") || strings.HasPrefix(dest, "#") {
			continue
		}
		dest, _, _ = strings.Cut(dest, "#")
		if unescaped, err := url.PathUnescape(dest); err == nil {
			dest = unescaped
		}
		add(dest)
	}
	return out
}

// InlineTags returns the #tags written in the body, without the '#'.
// Purely numeric tokens such as issue numbers are not tags.
func InlineTags(content string) []string {
	start := 0
	if _, end, ok := SplitFrontmatter(content); ok {
		start = end
	}
	code := codeRegions(content)
	seen := make(map[string]struct{})
	var out []string
	for _, m := range tagPattern.FindAllStringSubmatchIndex(content[start:], -1) {
		if code.Contains(start + m[2]) {
			continue
		}
		tag := strings.TrimRight(content[start+m[2]:start+m[3]], "/")
		if tag == "" || !hasNonDigit(tag) {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func codeRegions(content string) selector.Intervals {
	out := fences(content)
	out = append(out, spans(inlineCodePattern, content)...)
	return selector.NewIntervals(out...)
}

// fences finds ``` and ~~~ blocks. An unterminated fence runs to the end.
func fences(content string) []selector.Interval {
	var out []selector.Interval
	open := -1
	marker := ""
	pos := 0
	for pos < len(content) {
		line, _, more := strings.Cut(content[pos:], "\n")
		next := pos + len(line)
		if more {
			next++
		}
		trimmed := strings.TrimLeft(line, " \t")
		switch {
		case open < 0 && (strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")):
			open = pos
			marker = trimmed[:3]
		case open >= 0 && strings.HasPrefix(trimmed, marker):
			out = append(out, selector.Interval{Start: open, End: next})
			open = -1
		}
		pos = next
	}
	if open >= 0 {
		out = append(out, selector.Interval{Start: open, End: len(content)})
	}
	return out
}

func spans(re *regexp.Regexp, content string) []selector.Interval {
	locs := re.FindAllStringIndex(content, -1)
	out := make([]selector.Interval, 0, len(locs))
	for _, l := range locs {
		out = append(out, selector.Interval{Start: l[0], End: l[1]})
	}
	return out
}

func hasNonDigit(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return true
		}
	}
	return false
}
