package shred

import (
	"encoding/csv"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/zimshred/internal/doctree"
	"github.com/dgallion1/zimshred/internal/token"
)

// tableToken shreds a data table into the sidecar and returns its token.
// An unrecognizable table degrades to a best-effort single-cell grid
// instead of failing the article.
func (r *renderer) tableToken(n *html.Node, grid [][]string) token.Token {
	label := captionText(n)
	degraded := false
	if len(grid) == 0 {
		degraded = true
		if text := textContent(n); text != "" {
			grid = [][]string{{text}}
		}
	}

	tok := r.reg.Next(token.CategoryTable, label)
	if degraded {
		r.warnf("table %s: no recognizable rows, kept flattened text", tok.ID)
	}
	r.sidecar = append(r.sidecar, doctree.SidecarEntry{
		TokenID:  tok.ID,
		Category: token.CategoryTable,
		Label:    tok.Label,
		Degraded: degraded,
		Grid:     grid,
		CSV:      gridCSV(grid),
	})
	return tok
}

// infoboxToken shreds an infobox into key-value fields with the raw HTML
// kept as a fallback for rendering.
func (r *renderer) infoboxToken(n *html.Node) token.Token {
	fields := make(map[string]string)
	label := captionText(n)
	for _, row := range tableRows(n) {
		cells := rowCells(row)
		switch len(cells) {
		case 1:
			// A full-width header cell often names the subject.
			if label == "" && cells[0].Data == "th" {
				label = cellText(cells[0])
			}
		case 2:
			key := cellText(cells[0])
			val := cellText(cells[1])
			if key != "" && val != "" {
				fields[key] = val
			}
		}
	}
	if label != "" {
		label = "Summary of " + label
	}

	tok := r.reg.Next(token.CategoryInfobox, label)
	degraded := len(fields) == 0
	if degraded {
		fields = nil
		r.warnf("infobox %s: unrecognized structure, raw markup kept", tok.ID)
	}
	r.sidecar = append(r.sidecar, doctree.SidecarEntry{
		TokenID:  tok.ID,
		Category: token.CategoryInfobox,
		Label:    tok.Label,
		Degraded: degraded,
		Fields:   fields,
		RawHTML:  renderHTML(n),
	})
	return tok
}

// formulaToken captures a math element's LaTeX source. MediaWiki renders
// math as an image whose alt text carries the TeX, with an accessibility
// annotation as the other common carrier.
func (r *renderer) formulaToken(n *html.Node) token.Token {
	latex := ""
	if img := findElement(n, func(e *html.Node) bool { return e.Data == "img" && attr(e, "alt") != "" }); img != nil {
		latex = collapseWS(attr(img, "alt"))
	} else if a11y := findElement(n, func(e *html.Node) bool { return hasClass(e, "mwe-math-mathml-a11y") }); a11y != nil {
		latex = textContent(a11y)
	}

	degraded := false
	if latex == "" {
		degraded = true
		latex = textContent(n)
	}

	label := latex
	if rs := []rune(label); len(rs) > 40 {
		label = string(rs[:40])
	}
	tok := r.reg.Next(token.CategoryFormula, label)
	if degraded {
		r.warnf("formula %s: no TeX source found, kept rendered text", tok.ID)
	}
	r.sidecar = append(r.sidecar, doctree.SidecarEntry{
		TokenID:  tok.ID,
		Category: token.CategoryFormula,
		Label:    tok.Label,
		Degraded: degraded,
		LaTeX:    latex,
	})
	return tok
}

// tableGrid flattens a table into a rectangular matrix, expanding rowspan
// and colspan so every grid position holds the covering cell's text.
func tableGrid(n *html.Node) [][]string {
	rows := tableRows(n)
	if len(rows) == 0 {
		return nil
	}

	type pos struct{ r, c int }
	cellMap := make(map[pos]string)
	occupied := make(map[pos]bool)
	maxCols := 0

	for rIdx, row := range rows {
		if strings.Contains(attr(row, "style"), "display:none") {
			continue
		}
		cIdx := 0
		for _, cell := range rowCells(row) {
			for occupied[pos{rIdx, cIdx}] {
				cIdx++
			}
			rowSpan := spanAttr(cell, "rowspan", len(rows)-rIdx)
			colSpan := spanAttr(cell, "colspan", 200)
			text := cellText(cell)
			for dr := 0; dr < rowSpan; dr++ {
				for dc := 0; dc < colSpan; dc++ {
					occupied[pos{rIdx + dr, cIdx + dc}] = true
					if text != "" {
						cellMap[pos{rIdx + dr, cIdx + dc}] = text
					}
				}
			}
			cIdx += colSpan
			if cIdx > maxCols {
				maxCols = cIdx
			}
		}
	}

	var grid [][]string
	for rIdx := range rows {
		rowData := make([]string, maxCols)
		empty := true
		for cIdx := 0; cIdx < maxCols; cIdx++ {
			rowData[cIdx] = cellMap[pos{rIdx, cIdx}]
			if rowData[cIdx] != "" {
				empty = false
			}
		}
		if !empty {
			grid = append(grid, rowData)
		}
	}
	return grid
}

func spanAttr(cell *html.Node, name string, limit int) int {
	v, err := strconv.Atoi(attr(cell, name))
	if err != nil || v < 1 {
		return 1
	}
	if v > limit {
		return limit
	}
	return v
}

// gridCSV renders the matrix as CSV for downstream storage and export.
func gridCSV(grid [][]string) string {
	if len(grid) == 0 {
		return ""
	}
	var buf strings.Builder
	w := csv.NewWriter(&buf)
	for _, row := range grid {
		// WriteAll flushes; per-row Write keeps error handling local.
		if err := w.Write(row); err != nil {
			return ""
		}
	}
	w.Flush()
	return buf.String()
}

// markdownTable renders a small grid as an inline pipe table.
func markdownTable(grid [][]string) string {
	if len(grid) == 0 {
		return ""
	}
	var lines []string
	for i, row := range grid {
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
		if i == 0 {
			sep := make([]string, len(row))
			for j := range sep {
				sep[j] = "---"
			}
			lines = append(lines, "| "+strings.Join(sep, " | ")+" |")
		}
	}
	return strings.Join(lines, "\n")
}

// tableRows collects tr elements in document order, looking through
// thead/tbody/tfoot wrappers but not into nested tables.
func tableRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "tr":
				rows = append(rows, c)
			case "thead", "tbody", "tfoot":
				walk(c)
			}
		}
	}
	walk(table)
	return rows
}

func rowCells(row *html.Node) []*html.Node {
	var cells []*html.Node
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			cells = append(cells, c)
		}
	}
	return cells
}

// cellText flattens a cell, dropping citation references.
func cellText(cell *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
			return
		}
		if n.Type == html.ElementNode && hasClass(n, "reference") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(cell)
	return collapseWS(buf.String())
}

func captionText(table *html.Node) string {
	if c := findElement(table, func(e *html.Node) bool { return e.Data == "caption" }); c != nil {
		return textContent(c)
	}
	return ""
}

func findElement(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			if match(c) {
				return c
			}
			if found := findElement(c, match); found != nil {
				return found
			}
		}
	}
	return nil
}

func renderHTML(n *html.Node) string {
	var buf strings.Builder
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}
