package shred

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/zimshred/internal/archive"
	"github.com/dgallion1/zimshred/internal/doctree"
	"github.com/dgallion1/zimshred/internal/token"
)

// renderer accumulates one article's Markdown blocks and sidecar during a
// single depth-first traversal. It is created per Shred call and holds
// every piece of per-article state, so shredding stays pure and
// parallel-safe.
type renderer struct {
	sh  *Shredder
	reg *token.Registry

	blocks   []string
	pending  strings.Builder // loose inline content awaiting a block boundary
	sidecar  []doctree.SidecarEntry
	images   []doctree.ImageRef
	toc      []doctree.TOCEntry
	warnings []string
}

func (r *renderer) writeBlock(s string) {
	s = strings.TrimSpace(s)
	if s != "" {
		r.blocks = append(r.blocks, s)
	}
}

// flushPending turns accumulated loose inline text into a paragraph block.
func (r *renderer) flushPending() {
	if r.pending.Len() == 0 {
		return
	}
	r.writeBlock(collapseWS(r.pending.String()))
	r.pending.Reset()
}

func (r *renderer) warnf(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

// walk visits block-level content in document order. Heavy elements are
// shredded to the sidecar; everything else renders to Markdown.
func (r *renderer) walk(n *html.Node) {
	if n.Type == html.TextNode {
		if strings.TrimSpace(n.Data) != "" {
			r.pending.WriteString(n.Data)
		}
		return
	}
	if n.Type != html.ElementNode {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			r.walk(c)
		}
		return
	}

	if hasClass(n, "mwe-math-element") {
		r.flushPending()
		r.writeBlock(r.formulaToken(n).Placeholder())
		return
	}

	if level := headingLevel(n.Data); level > 0 {
		r.flushPending()
		title := textContent(n)
		if title == "" {
			return
		}
		r.writeBlock(strings.Repeat("#", level) + " " + title)
		if level == 2 || level == 3 {
			r.toc = append(r.toc, doctree.TOCEntry{Level: level, Title: title})
		}
		return
	}

	switch n.Data {
	case "p":
		r.flushPending()
		r.writeBlock(r.inline(n))
	case "table":
		r.flushPending()
		r.table(n)
	case "img":
		r.flushPending()
		if md := r.image(n); md != "" {
			r.writeBlock(md)
		}
	case "ul", "ol":
		r.flushPending()
		r.writeBlock(r.list(n, 0))
	case "blockquote":
		r.flushPending()
		r.writeBlock(r.blockquote(n))
	case "pre":
		r.flushPending()
		code := strings.Trim(rawText(n), "\n")
		if code != "" {
			r.writeBlock("```\n" + code + "\n```")
		}
	case "hr":
		r.flushPending()
		r.writeBlock("---")
	case "br":
		r.pending.WriteString(" ")
	default:
		// Container elements: keep walking in document order.
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			r.walk(c)
		}
	}
}

// table routes a table element: infoboxes and large wikitables go to the
// sidecar, small wikitables render inline, layout tables dissolve into
// flow content.
func (r *renderer) table(n *html.Node) {
	switch {
	case hasClass(n, "infobox"):
		r.writeBlock(r.infoboxToken(n).Placeholder())
	case hasClass(n, "wikitable"):
		grid := tableGrid(n)
		if len(grid) < r.sh.MinTableRows && len(grid) > 0 {
			r.writeBlock(markdownTable(grid))
			return
		}
		r.writeBlock(r.tableToken(n, grid).Placeholder())
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			r.walk(c)
		}
	}
}

// inline renders an element's children as Markdown inline content.
func (r *renderer) inline(n *html.Node) string {
	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.inlineNode(c, &buf)
	}
	return collapseWS(buf.String())
}

func (r *renderer) inlineNode(n *html.Node, buf *strings.Builder) {
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
		return
	}
	if n.Type != html.ElementNode {
		return
	}
	if hasClass(n, "mwe-math-element") {
		buf.WriteString(" " + r.formulaToken(n).Placeholder() + " ")
		return
	}
	switch n.Data {
	case "a":
		inner := r.inline(n)
		target := normalizeTarget(attr(n, "href"))
		switch {
		case inner == "":
		case target == "":
			buf.WriteString(inner)
		default:
			buf.WriteString("[" + inner + "](" + target + ")")
		}
	case "b", "strong":
		if inner := r.inline(n); inner != "" {
			buf.WriteString("**" + inner + "**")
		}
	case "i", "em":
		if inner := r.inline(n); inner != "" {
			buf.WriteString("*" + inner + "*")
		}
	case "code", "tt":
		if code := textContent(n); code != "" {
			buf.WriteString("`" + code + "`")
		}
	case "img":
		buf.WriteString(r.image(n))
	case "sup":
		// Citation markers add noise to flow text.
		if hasClass(n, "reference") {
			return
		}
		buf.WriteString(r.inline(n))
	case "br":
		buf.WriteString(" ")
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			r.inlineNode(c, buf)
		}
	}
}

// image records an image locator and returns its Markdown form. Bytes are
// never read; the locator points back into the archive.
func (r *renderer) image(n *html.Node) string {
	src := attr(n, "src")
	if src == "" {
		return ""
	}
	filename := src
	if i := strings.LastIndexByte(filename, '/'); i >= 0 {
		filename = filename[i+1:]
	}
	if i := strings.IndexByte(filename, '?'); i >= 0 {
		filename = filename[:i]
	}
	if filename == "" {
		return ""
	}
	alt := collapseWS(attr(n, "alt"))
	ref := doctree.ImageRef{
		Filename: filename,
		Alt:      alt,
		Locator:  archive.MediaLocator(filename),
	}
	r.images = append(r.images, ref)
	if alt == "" {
		alt = "Image"
	}
	return "![" + alt + "](" + ref.Locator + ")"
}

func (r *renderer) list(n *html.Node, depth int) string {
	ordered := n.Data == "ol"
	indent := strings.Repeat("  ", depth)
	var lines []string
	idx := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" {
			continue
		}
		idx++
		marker := "- "
		if ordered {
			marker = fmt.Sprintf("%d. ", idx)
		}
		var item strings.Builder
		var nested []string
		for g := c.FirstChild; g != nil; g = g.NextSibling {
			if g.Type == html.ElementNode && (g.Data == "ul" || g.Data == "ol") {
				nested = append(nested, r.list(g, depth+1))
				continue
			}
			r.inlineNode(g, &item)
		}
		if text := collapseWS(item.String()); text != "" {
			lines = append(lines, indent+marker+text)
		}
		lines = append(lines, nested...)
	}
	return strings.Join(lines, "\n")
}

func (r *renderer) blockquote(n *html.Node) string {
	text := r.inline(n)
	if text == "" {
		return ""
	}
	return "> " + text
}

// rawText flattens text without collapsing whitespace, for code blocks.
func rawText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// normalizeTarget canonicalizes a link target: NFC form, relative wiki
// prefixes stripped, spaces underscored. External URLs pass through
// NFC-normalized only.
func normalizeTarget(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	href = norm.NFC.String(href)
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") || strings.HasPrefix(href, archive.Scheme) {
		return href
	}
	href = strings.TrimPrefix(href, "./")
	href = strings.TrimPrefix(href, "../")
	return strings.ReplaceAll(href, " ", "_")
}
