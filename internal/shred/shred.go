// Package shred turns raw wiki HTML into a ShreddedDocument: Markdown
// flow text with placeholder tokens, a sidecar of extracted heavy
// elements (tables, infoboxes, formulas) and image locators.
//
// Shredding is a pure function of the input markup: one fixed depth-first,
// document-order traversal of the parsed tree, with all per-article state
// (token counters, sidecar, warnings) held in a renderer created for that
// one call. Identical markup yields byte-identical Markdown and the same
// token set on every run — downstream chunk ids depend on it.
package shred

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/dgallion1/zimshred/internal/doctree"
	"github.com/dgallion1/zimshred/internal/token"
)

// Shredder shreds articles. The zero value is not usable; call New.
type Shredder struct {
	// MinTableRows is the row count at which a wikitable is moved to the
	// sidecar. Smaller tables stay inline as Markdown.
	MinTableRows int

	// AbstractCap bounds the extracted abstract, in runes.
	AbstractCap int
}

func New() *Shredder {
	return &Shredder{
		MinTableRows: 3,
		AbstractCap:  2000,
	}
}

// Shred processes one article. Malformed markup never aborts the article:
// fragments the parser cannot make sense of are recovered as opaque flow
// text and reported in the document's Warnings.
func (s *Shredder) Shred(articleID, title string, rawHTML []byte) (*doctree.ShreddedDocument, error) {
	doc := &doctree.ShreddedDocument{
		ArticleID: articleID,
		Title:     title,
	}

	root, err := html.Parse(bytes.NewReader(rawHTML))
	if err != nil {
		// Tokenizer-level failure. Degrade the whole article to opaque
		// flow text rather than failing the pipeline.
		doc.Markdown = collapseWS(string(rawHTML)) + "\n"
		doc.Abstract = s.abstract(doc.Markdown)
		doc.Warnings = []string{fmt.Sprintf("unparseable markup, kept as plain text: %v", err)}
		return doc, nil
	}

	cleanup(root)

	r := &renderer{sh: s, reg: token.NewRegistry(articleID)}
	body := findBody(root)
	if body == nil {
		body = root
	}
	r.walk(body)
	r.flushPending()

	doc.Markdown = strings.Join(r.blocks, "\n\n") + "\n"
	doc.Abstract = s.abstract(doc.Markdown)
	doc.TOC = r.toc
	doc.Sidecar = r.sidecar
	doc.Images = r.images
	doc.Warnings = r.warnings

	anchorSidecar(doc)

	if err := token.Verify(doc.Markdown, doc.SidecarIDs()); err != nil {
		// Internal invariant breach, not an input problem.
		return nil, fmt.Errorf("article %s: %w", articleID, err)
	}
	return doc, nil
}

// anchorSidecar records each placeholder's rune offset in the Markdown
// body. Tokens are unique within an article, so a plain search suffices.
func anchorSidecar(doc *doctree.ShreddedDocument) {
	for i := range doc.Sidecar {
		e := &doc.Sidecar[i]
		ph := token.Token{ID: e.TokenID, Category: e.Category, Label: e.Label}.Placeholder()
		if idx := strings.Index(doc.Markdown, ph); idx >= 0 {
			e.Anchor = utf8.RuneCountInString(doc.Markdown[:idx])
		}
	}
}

// abstract is the lead text before the first heading, capped.
func (s *Shredder) abstract(markdown string) string {
	var lead []string
	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(line, "#") {
			break
		}
		lead = append(lead, line)
	}
	out := strings.TrimSpace(strings.Join(lead, "\n"))
	if out == "" {
		// Article opens with a heading; fall back to a raw prefix.
		out = strings.TrimSpace(truncateRunes(markdown, s.AbstractCap/2))
	}
	return truncateRunes(out, s.AbstractCap)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// cleanup drops non-content elements before traversal: script, style,
// link, meta, noscript, and MediaWiki edit-section links.
func cleanup(root *html.Node) {
	var doomed []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "link", "meta", "noscript":
				doomed = append(doomed, n)
				return
			}
			if hasClass(n, "mw-editsection") {
				doomed = append(doomed, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	for _, n := range doomed {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// textContent flattens all text under a node, whitespace-collapsed.
func textContent(n *html.Node) string {
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
	return collapseWS(buf.String())
}

func collapseWS(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
