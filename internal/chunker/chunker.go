// Package chunker turns a shredded article's Markdown into an ordered,
// deterministically identified chunk sequence. Sizes are measured in
// runes. Chunk ids are a pure function of (article id, section path,
// sequence index), so re-running the pipeline on an unchanged article
// yields identical ids and storage can upsert without duplication.
package chunker

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/zimshred/internal/doctree"
	"github.com/dgallion1/zimshred/internal/token"
)

// Config controls chunk sizing. All values are rune counts.
type Config struct {
	MinSize    int // sections below this merge forward
	TargetSize int // split windows aim for this
	MaxSize    int // hard upper bound, except lone atomic tokens
	Overlap    int // trailing context repeated at the head of the next chunk
}

// DefaultConfig returns the default sizing policy.
func DefaultConfig() Config {
	return Config{
		MinSize:    200,
		TargetSize: 500,
		MaxSize:    800,
		Overlap:    50,
	}
}

// Validate rejects threshold combinations before any processing begins.
func (c Config) Validate() error {
	if c.MinSize <= 0 || c.TargetSize <= 0 || c.MaxSize <= 0 {
		return fmt.Errorf("chunker config: sizes must be positive, got min=%d target=%d max=%d", c.MinSize, c.TargetSize, c.MaxSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("chunker config: overlap must be non-negative, got %d", c.Overlap)
	}
	if c.MinSize > c.TargetSize {
		return fmt.Errorf("chunker config: min %d exceeds target %d", c.MinSize, c.TargetSize)
	}
	if c.TargetSize > c.MaxSize {
		return fmt.Errorf("chunker config: target %d exceeds max %d", c.TargetSize, c.MaxSize)
	}
	if c.Overlap >= c.TargetSize {
		return fmt.Errorf("chunker config: overlap %d must be smaller than target %d", c.Overlap, c.TargetSize)
	}
	return nil
}

// ChunkID derives a chunk's deterministic id from the article id, the
// ordered section path and the sequence index within that path.
//
// Two sibling sections with the same title share a path and so collide;
// likewise a "/" inside a section title makes the joined path ambiguous.
// Wiki section names make both vanishingly rare, and colliding ids
// degrade to an upsert of one chunk over the other, never to a failure.
func ChunkID(articleID string, sectionPath []string, seq int) string {
	raw := articleID + "|" + strings.Join(sectionPath, "/") + "|" + strconv.Itoa(seq)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", sum)[:16]
}

// Chunk produces the ordered chunk sequence for one article's Markdown.
// An empty or whitespace-only document yields zero chunks.
func Chunk(articleID, markdown string, cfg Config) ([]doctree.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(markdown) == "" {
		return nil, nil
	}

	root := BuildSectionTree(markdown)
	segs := mergeSmall(flatten(root), cfg.MinSize)

	var chunks []doctree.Chunk
	for _, seg := range segs {
		chunks = emitSegment(chunks, articleID, seg, cfg)
	}
	return chunks, nil
}

// segment is one section's content flattened out of the tree: the ordered
// blocks that will be chunked under a single section path.
type segment struct {
	path   []string
	blocks []string
	merged bool
}

// flatten walks the section tree depth-first in document order. The
// synthetic root contributes a segment with an empty path when a document
// has no headers.
func flatten(root *doctree.SectionNode) []segment {
	var segs []segment
	var walk func(n *doctree.SectionNode, path []string)
	walk = func(n *doctree.SectionNode, path []string) {
		if n.Level > 0 {
			path = append(append([]string{}, path...), n.Title)
		}
		if len(n.Blocks) > 0 {
			segs = append(segs, segment{path: path, blocks: n.Blocks})
		}
		for _, c := range n.Children {
			walk(c, path)
		}
	}
	walk(root, nil)
	return segs
}

// mergeSmall folds sections below minSize into the next section in
// document order, repeatedly, until the merged run reaches minSize or the
// sections run out. The merged segment keeps the first section's path.
func mergeSmall(segs []segment, minSize int) []segment {
	var out []segment
	for i := 0; i < len(segs); i++ {
		cur := segs[i]
		for segSize(cur.blocks) < minSize && i+1 < len(segs) {
			next := segs[i+1]
			cur.blocks = append(append([]string{}, cur.blocks...), next.blocks...)
			cur.merged = true
			i++
		}
		out = append(out, cur)
	}
	return out
}

func segSize(blocks []string) int {
	size := 0
	for i, b := range blocks {
		if i > 0 {
			size += 2 // joining blank line
		}
		size += utf8.RuneCountInString(b)
	}
	return size
}

// unit is an atomic piece of a segment during splitting: a whole block, a
// sentence of an oversized block, or a placeholder token. sep is the
// joiner that precedes the unit inside a chunk.
type unit struct {
	text string
	sep  string
}

func (u unit) size() int { return utf8.RuneCountInString(u.text) }

// piece is one window of a segment before ids are assigned.
type piece struct {
	text    string
	leadSep string // joiner to use if folded into the preceding piece
	atomic  bool   // a lone token, exempt from size bounds
}

func (p piece) size() int { return utf8.RuneCountInString(p.text) }

// emitSegment appends the segment's chunks. Segments within MaxSize emit
// as one chunk; larger segments are split by a sliding window over block
// boundaries, with the trailing Overlap runes repeated as leading context
// of the next chunk. Tokens are never divided; a lone token above MaxSize
// is emitted as its own unsplit chunk, the only case allowed outside the
// size bounds.
func emitSegment(chunks []doctree.Chunk, articleID string, seg segment, cfg Config) []doctree.Chunk {
	total := segSize(seg.blocks)
	if total == 0 {
		return chunks
	}

	if total <= cfg.MaxSize {
		kind := doctree.KindParagraph
		if seg.merged {
			kind = doctree.KindMerged
		}
		text := strings.Join(seg.blocks, "\n\n")
		return append(chunks, newChunk(articleID, seg.path, 0, text, kind))
	}

	pieces := buildWindows(explode(seg.blocks, cfg), cfg)
	pieces = foldRunts(pieces, cfg)
	for seq, p := range pieces {
		chunks = append(chunks, newChunk(articleID, seg.path, seq, p.text, doctree.KindSplit))
	}
	return chunks
}

// buildWindows slides a window over the segment's units, aiming for
// TargetSize and never letting a non-atomic piece exceed MaxSize. The
// trailing whole units worth at most Overlap runes repeat as context at
// the head of the next window; when the next unit cannot fit alongside
// that context, the context is dropped, never the unit. Units larger than
// MaxSize are atomic tokens (or, in pathological markup, a giant
// sentence) and become their own piece.
func buildWindows(units []unit, cfg Config) []piece {
	var pieces []piece
	var cur []unit
	curSize := 0
	carriedN := 0 // leading units of cur repeated from the previous window

	drop := func() {
		cur, curSize, carriedN = nil, 0, 0
	}
	flush := func(carryOverlap bool) {
		if len(cur) == 0 {
			return
		}
		pieces = append(pieces, piece{text: joinUnits(cur), leadSep: cur[0].sep})
		if carryOverlap {
			cur = overlapTail(cur, cfg.Overlap)
		} else {
			cur = nil
		}
		carriedN = len(cur)
		curSize = unitsSize(cur)
	}

	for _, u := range units {
		if u.size() > cfg.MaxSize {
			// A window holding only carried context has been emitted
			// already; flushing it again would duplicate it.
			if carriedN == len(cur) {
				drop()
			}
			flush(false)
			pieces = append(pieces, piece{text: u.text, leadSep: u.sep, atomic: token.IsPlaceholder(u.text)})
			continue
		}
		if curSize > 0 && curSize+len(u.sep)+u.size() > cfg.MaxSize {
			if carriedN == len(cur) {
				drop()
			} else {
				flush(true)
				if curSize > 0 && curSize+len(u.sep)+u.size() > cfg.MaxSize {
					drop()
				}
			}
		}
		cur = append(cur, u)
		curSize += u.size()
		if len(cur) > 1 {
			curSize += len(u.sep)
		}
		if curSize >= cfg.TargetSize {
			flush(true)
		}
	}
	// Whatever remains beyond the carried context is fresh and must land
	// in a chunk.
	if len(cur) > carriedN {
		flush(false)
	}
	return pieces
}

// foldRunts merges pieces below MinSize into a neighbor where the result
// stays within MaxSize, so splitting never produces undersized chunks.
// Atomic token pieces are left exactly as they are.
func foldRunts(pieces []piece, cfg Config) []piece {
	var out []piece
	for _, p := range pieces {
		if len(out) > 0 && !p.atomic {
			prev := &out[len(out)-1]
			small := p.size() < cfg.MinSize || prev.size() < cfg.MinSize
			if small && !prev.atomic && prev.size()+len(p.leadSep)+p.size() <= cfg.MaxSize {
				prev.text = prev.text + p.leadSep + p.text
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// explode breaks a segment into atomic units: whole blocks, with blocks
// above MaxSize further divided at sentence boundaries. Placeholder
// tokens always become their own unit and are never divided.
func explode(blocks []string, cfg Config) []unit {
	var units []unit
	for _, b := range blocks {
		if utf8.RuneCountInString(b) <= cfg.MaxSize || token.IsPlaceholder(b) {
			units = append(units, unit{text: b, sep: "\n\n"})
			continue
		}
		sep := "\n\n"
		for _, part := range token.SplitAroundPlaceholders(b) {
			if token.IsPlaceholder(part) {
				units = append(units, unit{text: part, sep: sep})
				sep = " "
				continue
			}
			for _, sent := range splitSentences(part) {
				units = append(units, unit{text: sent, sep: sep})
				sep = " "
			}
		}
	}
	return units
}

func joinUnits(units []unit) string {
	var b strings.Builder
	for i, u := range units {
		if i > 0 {
			b.WriteString(u.sep)
		}
		b.WriteString(u.text)
	}
	return b.String()
}

func unitsSize(units []unit) int {
	size := 0
	for i, u := range units {
		if i > 0 {
			size += len(u.sep)
		}
		size += u.size()
	}
	return size
}

// overlapTail returns the trailing whole units worth at most overlap
// runes. Working in whole units keeps tokens and sentences intact inside
// the repeated context.
func overlapTail(units []unit, overlap int) []unit {
	if overlap <= 0 {
		return nil
	}
	size := 0
	i := len(units)
	for i > 0 {
		next := size + units[i-1].size()
		if size > 0 {
			next += len(units[i-1].sep)
		}
		if next > overlap {
			break
		}
		size = next
		i--
	}
	if i == len(units) {
		return nil
	}
	tail := make([]unit, len(units)-i)
	copy(tail, units[i:])
	return tail
}

// splitSentences breaks text at sentence-ending punctuation followed by a
// space, keeping the punctuation.
func splitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		cur.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && runes[i+1] == ' ' {
			if s := strings.TrimSpace(cur.String()); s != "" {
				sentences = append(sentences, s)
			}
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func newChunk(articleID string, path []string, seq int, text string, kind doctree.ChunkKind) doctree.Chunk {
	return doctree.Chunk{
		ID:          ChunkID(articleID, path, seq),
		ArticleID:   articleID,
		SectionPath: path,
		Seq:         seq,
		Text:        text,
		TokenRefs:   token.ScanIDs(text),
		Kind:        kind,
	}
}
