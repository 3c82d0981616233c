package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/dgallion1/zimshred/internal/doctree"
)

// FileStore writes each article as its own directory:
//
//	root/articles/<article_id>/
//	    content.md
//	    abstract.md
//	    toc.json
//	    sidecar.json
//	    chunks.json
//
// The directory is staged under a temp name and renamed into place, so a
// crashed write never leaves a partially visible article.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(root, "articles"), 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) SaveArticle(ctx context.Context, doc *doctree.ShreddedDocument, chunks []doctree.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dirName := safeName(doc.ArticleID)
	final := filepath.Join(s.root, "articles", dirName)

	staging, err := os.MkdirTemp(filepath.Join(s.root, "articles"), "."+dirName+".tmp-")
	if err != nil {
		return fmt.Errorf("stage article dir: %w", err)
	}
	defer os.RemoveAll(staging)

	files := map[string]func() ([]byte, error){
		"content.md":   func() ([]byte, error) { return []byte(doc.Markdown), nil },
		"abstract.md":  func() ([]byte, error) { return []byte(doc.Abstract), nil },
		"toc.json":     func() ([]byte, error) { return marshalIndent(doc.TOC) },
		"sidecar.json": func() ([]byte, error) { return marshalIndent(doc.Sidecar) },
		"chunks.json":  func() ([]byte, error) { return marshalIndent(chunks) },
	}
	for name, render := range files {
		data, err := render()
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(staging, name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	// Replace any previous version of the article wholesale.
	if err := os.RemoveAll(final); err != nil {
		return fmt.Errorf("clear previous article: %w", err)
	}
	if err := os.Rename(staging, final); err != nil {
		return fmt.Errorf("publish article: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

func marshalIndent(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// safeName maps an article id to a filesystem-safe directory name.
func safeName(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		default:
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}
