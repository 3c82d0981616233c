// Package doctree holds the document model shared by the shredder and the
// chunker: the shredded article, its sidecar, the ephemeral section tree
// and the final chunks.
package doctree

import "github.com/dgallion1/zimshred/internal/token"

// SidecarEntry is one heavy element extracted out of the article flow.
// The payload fields used depend on Category: tables carry Grid and CSV,
// infoboxes carry Fields and RawHTML, formulas carry LaTeX.
type SidecarEntry struct {
	TokenID  string         `json:"token_id"`
	Category token.Category `json:"category"`
	Label    string         `json:"label"`
	Anchor   int            `json:"anchor"` // rune offset of the placeholder in the Markdown body
	Degraded bool           `json:"degraded,omitempty"`

	Grid    [][]string        `json:"grid,omitempty"`
	CSV     string            `json:"csv,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	RawHTML string            `json:"raw_html,omitempty"`
	LaTeX   string            `json:"latex,omitempty"`
}

// ImageRef is a reference to media left inside the archive. Bytes are
// never extracted; the locator is resolved on demand by the media server.
type ImageRef struct {
	Filename string `json:"filename"`
	Alt      string `json:"alt,omitempty"`
	Locator  string `json:"locator"` // zim://I/<filename>
}

// TOCEntry is one heading in the article's table of contents.
type TOCEntry struct {
	Level int    `json:"level"`
	Title string `json:"title"`
}

// ShreddedDocument is the output of one shredding pass. It is created
// once, verified, and never mutated afterward.
type ShreddedDocument struct {
	ArticleID string         `json:"article_id"`
	Title     string         `json:"title"`
	Markdown  string         `json:"markdown"`
	Abstract  string         `json:"abstract,omitempty"`
	TOC       []TOCEntry     `json:"toc,omitempty"`
	Sidecar   []SidecarEntry `json:"sidecar,omitempty"`
	Images    []ImageRef     `json:"images,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
}

// SidecarIDs returns the sidecar token ids in document order.
func (d *ShreddedDocument) SidecarIDs() []string {
	if len(d.Sidecar) == 0 {
		return nil
	}
	ids := make([]string, 0, len(d.Sidecar))
	for _, e := range d.Sidecar {
		ids = append(ids, e.TokenID)
	}
	return ids
}

// SectionNode is a node in the ephemeral header tree built during one
// chunking pass. Level 0 is the synthetic root; 1-6 follow header levels.
// Blocks are whole paragraphs; a placeholder token is always a block of
// its own and is never divided.
type SectionNode struct {
	Level    int
	Title    string
	Blocks   []string
	Children []*SectionNode
}

// ChunkKind records how a chunk was formed.
type ChunkKind string

const (
	KindParagraph ChunkKind = "paragraph"
	KindMerged    ChunkKind = "merged"
	KindSplit     ChunkKind = "split"
)

// Chunk is a contiguous, size-bounded span of document content. ID is a
// pure function of (article id, section path, seq), so re-ingesting an
// unchanged article upserts rather than duplicates.
type Chunk struct {
	ID          string    `json:"chunk_id"`
	ArticleID   string    `json:"article_id"`
	SectionPath []string  `json:"section_path"`
	Seq         int       `json:"seq"`
	Text        string    `json:"text"`
	TokenRefs   []string  `json:"token_refs,omitempty"`
	Kind        ChunkKind `json:"kind"`
}
