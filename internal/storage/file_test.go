package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/zimshred/internal/doctree"
	"github.com/dgallion1/zimshred/internal/token"
)

func sampleDoc() *doctree.ShreddedDocument {
	return &doctree.ShreddedDocument{
		ArticleID: "Economy_of_France",
		Title:     "Economy of France",
		Markdown:  "Lead.\n\n**[<<TABLE: TBL_1 | GDP Data>>]**\n",
		Abstract:  "Lead.",
		TOC:       []doctree.TOCEntry{{Level: 2, Title: "GDP"}},
		Sidecar: []doctree.SidecarEntry{{
			TokenID:  "TBL_1",
			Category: token.CategoryTable,
			Label:    "GDP Data",
			Grid:     [][]string{{"Year", "GDP"}, {"2020", "100"}},
			CSV:      "Year,GDP\n2020,100\n",
		}},
	}
}

func sampleChunks(doc *doctree.ShreddedDocument) []doctree.Chunk {
	return []doctree.Chunk{{
		ID:        "abcdef0123456789",
		ArticleID: doc.ArticleID,
		Seq:       0,
		Text:      doc.Markdown,
		TokenRefs: []string{"TBL_1"},
		Kind:      doctree.KindParagraph,
	}}
}

func TestFileStoreLayout(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer store.Close()

	doc := sampleDoc()
	if err := store.SaveArticle(context.Background(), doc, sampleChunks(doc)); err != nil {
		t.Fatalf("SaveArticle: %v", err)
	}

	dir := filepath.Join(root, "articles", "Economy_of_France")
	for _, name := range []string{"content.md", "abstract.md", "toc.json", "sidecar.json", "chunks.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	content, err := os.ReadFile(filepath.Join(dir, "content.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != doc.Markdown {
		t.Errorf("content.md = %q", content)
	}

	var sidecar []doctree.SidecarEntry
	data, err := os.ReadFile(filepath.Join(dir, "sidecar.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &sidecar); err != nil {
		t.Fatalf("sidecar.json: %v", err)
	}
	if len(sidecar) != 1 || sidecar[0].TokenID != "TBL_1" || sidecar[0].CSV != "Year,GDP\n2020,100\n" {
		t.Errorf("sidecar = %+v", sidecar)
	}

	// No staging leftovers.
	entries, err := os.ReadDir(filepath.Join(root, "articles"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("articles dir has %d entries, want 1", len(entries))
	}
}

func TestFileStoreOverwriteIsIdempotent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	doc := sampleDoc()

	for i := 0; i < 2; i++ {
		if err := store.SaveArticle(context.Background(), doc, sampleChunks(doc)); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
}

func TestFileStoreHostileArticleID(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	doc := sampleDoc()
	doc.ArticleID = "../escape/attempt"
	if err := store.SaveArticle(context.Background(), doc, nil); err != nil {
		t.Fatalf("SaveArticle: %v", err)
	}
	// The id is flattened into a safe directory name inside the root.
	if _, err := os.Stat(filepath.Join(root, "articles", "--escape-attempt")); err != nil {
		t.Errorf("sanitized article dir missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "escape")); !os.IsNotExist(err) {
		t.Error("article escaped the storage root")
	}
}

func TestFileStoreCancelledContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := sampleDoc()
	if err := store.SaveArticle(ctx, doc, nil); err == nil {
		t.Error("cancelled save succeeded")
	}
}

func TestSafeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"France", "France"},
		{"Economy of France", "Economy_of_France"},
		{"a/b\\c", "a-b-c"},
		{"", "untitled"},
		{"Śląsk", "Śląsk"},
	}
	for _, tt := range tests {
		if got := safeName(tt.in); got != tt.want {
			t.Errorf("safeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsTransient(t *testing.T) {
	base := os.ErrDeadlineExceeded
	if IsTransient(base) {
		t.Error("plain error reported transient")
	}
	wrapped := &TransientError{Err: base}
	if !IsTransient(wrapped) {
		t.Error("TransientError not reported transient")
	}
	if !strings.Contains(wrapped.Error(), base.Error()) {
		t.Errorf("message lost: %q", wrapped.Error())
	}
}
