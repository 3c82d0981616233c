package chunker

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/zimshred/internal/doctree"
)

// BuildSectionTree parses Markdown header structure into a section tree.
// A level-L header attaches under the nearest open header with a lower
// level; non-header blocks attach to the nearest enclosing section as
// verbatim source spans, so concatenating blocks reproduces the source.
// The heading line itself is the section's first block. A document with no
// headers yields just the synthetic root holding every block.
func BuildSectionTree(markdown string) *doctree.SectionNode {
	src := []byte(markdown)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	root := &doctree.SectionNode{Level: 0}
	stack := []*doctree.SectionNode{root}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			title := strings.TrimSpace(string(h.Text(src)))
			for len(stack) > 1 && stack[len(stack)-1].Level >= h.Level {
				stack = stack[:len(stack)-1]
			}
			node := &doctree.SectionNode{Level: h.Level, Title: title}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, node)
			stack = append(stack, node)
			if title != "" {
				// Heading.Lines covers only the text, so rebuild the ATX
				// form to keep blocks verbatim with the source.
				node.Blocks = append(node.Blocks, strings.Repeat("#", h.Level)+" "+title)
			}
			continue
		}
		if b := blockSource(n, src); b != "" {
			top := stack[len(stack)-1]
			top.Blocks = append(top.Blocks, b)
		}
	}
	return root
}

// blockSource recovers the verbatim source span of a block node,
// descending into container blocks that carry no lines of their own.
func blockSource(n ast.Node, src []byte) string {
	start, stop, ok := blockSpan(n)
	if !ok || start >= stop {
		return ""
	}
	// Line spans exclude leading markers ("- ", "> "); widen to the start
	// of the line so list and quote prefixes survive.
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	return strings.TrimSpace(string(src[start:stop]))
}

func blockSpan(n ast.Node) (int, int, bool) {
	if lines := n.Lines(); lines != nil && lines.Len() > 0 {
		return lines.At(0).Start, lines.At(lines.Len() - 1).Stop, true
	}
	start, stop := -1, -1
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		cs, ce, ok := blockSpan(c)
		if !ok {
			continue
		}
		if start == -1 || cs < start {
			start = cs
		}
		if ce > stop {
			stop = ce
		}
	}
	if start == -1 {
		return 0, 0, false
	}
	return start, stop, true
}
