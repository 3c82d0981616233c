// Package token assigns placeholder tokens for heavy elements extracted
// from an article, and parses them back out of Markdown. Tokens are scoped
// to a single article: the registry is created per shredding pass and never
// shared, so identical input always yields identical token ids.
package token

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Category identifies the kind of heavy element behind a token.
type Category string

const (
	CategoryTable   Category = "TABLE"
	CategoryInfobox Category = "INFOBOX"
	CategoryFormula Category = "FORMULA"
)

// Code returns the short prefix used in token ids.
func (c Category) Code() string {
	switch c {
	case CategoryTable:
		return "TBL"
	case CategoryInfobox:
		return "INFO"
	case CategoryFormula:
		return "FML"
	}
	return "UNK"
}

// DefaultLabel is the display label used when an element provides none.
func (c Category) DefaultLabel() string {
	switch c {
	case CategoryTable:
		return "Data Table"
	case CategoryInfobox:
		return "Infobox"
	case CategoryFormula:
		return "Formula"
	}
	return "Element"
}

// Token is a placeholder for one extracted element.
type Token struct {
	ID       string
	Category Category
	Label    string
}

// Placeholder renders the exact textual form embedded in Markdown:
// **[<<CATEGORY: TOKEN_ID | ShortLabel>>]**
func (t Token) Placeholder() string {
	return fmt.Sprintf("**[<<%s: %s | %s>>]**", t.Category, t.ID, t.Label)
}

// Registry issues tokens for one article. Ids are a per-category ordinal
// behind the category code (TBL_1, INFO_1, FML_2, ...), assigned in
// document order, so re-shredding the same markup reproduces them exactly.
type Registry struct {
	articleID string
	counts    map[Category]int
	issued    []Token
}

func NewRegistry(articleID string) *Registry {
	return &Registry{
		articleID: articleID,
		counts:    make(map[Category]int),
	}
}

// ArticleID returns the article this registry is scoped to.
func (r *Registry) ArticleID() string { return r.articleID }

// Next issues the next token for the given category.
func (r *Registry) Next(cat Category, label string) Token {
	r.counts[cat]++
	t := Token{
		ID:       fmt.Sprintf("%s_%d", cat.Code(), r.counts[cat]),
		Category: cat,
		Label:    SanitizeLabel(label, cat),
	}
	r.issued = append(r.issued, t)
	return t
}

// Issued returns all tokens issued so far, in document order.
func (r *Registry) Issued() []Token {
	out := make([]Token, len(r.issued))
	copy(out, r.issued)
	return out
}

const maxLabelRunes = 80

// SanitizeLabel strips characters that would break the placeholder grammar
// and caps the label length. Empty labels fall back to a category default.
func SanitizeLabel(label string, cat Category) string {
	label = strings.NewReplacer("|", " ", ">", " ", "<", " ", "\n", " ", "\r", " ", "\t", " ").Replace(label)
	label = strings.Join(strings.Fields(label), " ")
	if label == "" {
		return cat.DefaultLabel()
	}
	runes := []rune(label)
	if len(runes) > maxLabelRunes {
		label = strings.TrimSpace(string(runes[:maxLabelRunes]))
	}
	return label
}

var placeholderRE = regexp.MustCompile(`\*\*\[<<(TABLE|INFOBOX|FORMULA): ((?:TBL|INFO|FML)_\d+) \| ([^<>\n]*)>>\]\*\*`)

// Scan returns every token referenced in the Markdown body, in order of
// appearance. The grammar is strict: near-miss strings do not match.
func Scan(markdown string) []Token {
	var out []Token
	for _, m := range placeholderRE.FindAllStringSubmatch(markdown, -1) {
		out = append(out, Token{ID: m[2], Category: Category(m[1]), Label: m[3]})
	}
	return out
}

// ScanIDs returns just the token ids referenced in the Markdown body.
func ScanIDs(markdown string) []string {
	matches := placeholderRE.FindAllStringSubmatch(markdown, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[2])
	}
	return out
}

// IsPlaceholder reports whether s is exactly one placeholder token.
func IsPlaceholder(s string) bool {
	m := placeholderRE.FindStringIndex(s)
	return m != nil && m[0] == 0 && m[1] == len(s)
}

// SplitAroundPlaceholders splits text so that every embedded placeholder
// becomes its own element, with the surrounding text as the other
// elements. Placeholders are atomic: no later processing may divide them.
func SplitAroundPlaceholders(s string) []string {
	locs := placeholderRE.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return []string{s}
	}
	var out []string
	prev := 0
	for _, loc := range locs {
		if pre := strings.TrimSpace(s[prev:loc[0]]); pre != "" {
			out = append(out, pre)
		}
		out = append(out, s[loc[0]:loc[1]])
		prev = loc[1]
	}
	if post := strings.TrimSpace(s[prev:]); post != "" {
		out = append(out, post)
	}
	return out
}

// Verify checks the bijection between tokens embedded in the Markdown body
// and the sidecar key set. A document is not valid output until this
// passes in both directions.
func Verify(markdown string, sidecarIDs []string) error {
	inText := make(map[string]int)
	for _, id := range ScanIDs(markdown) {
		inText[id]++
	}
	inSidecar := make(map[string]bool, len(sidecarIDs))
	for _, id := range sidecarIDs {
		if inSidecar[id] {
			return fmt.Errorf("duplicate sidecar token %s", id)
		}
		inSidecar[id] = true
	}

	var missing, orphaned []string
	for id, n := range inText {
		if n > 1 {
			return fmt.Errorf("token %s appears %d times in markdown", id, n)
		}
		if !inSidecar[id] {
			missing = append(missing, id)
		}
	}
	for id := range inSidecar {
		if inText[id] == 0 {
			orphaned = append(orphaned, id)
		}
	}
	if len(missing) == 0 && len(orphaned) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(orphaned)
	return fmt.Errorf("token bijection broken: in markdown without sidecar %v, in sidecar without markdown %v", missing, orphaned)
}
