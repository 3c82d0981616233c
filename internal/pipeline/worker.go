package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/zimshred/internal/archive"
	"github.com/dgallion1/zimshred/internal/chunker"
	"github.com/dgallion1/zimshred/internal/doctree"
	"github.com/dgallion1/zimshred/internal/shred"
	"github.com/dgallion1/zimshred/internal/storage"
)

// Worker processes single articles: shred, chunk, store. It holds no
// per-article state, so one worker value may be shared across goroutines;
// per-article work is a pure function of (markup, configuration).
type Worker struct {
	reader   archive.Reader
	store    storage.Store
	shredder *shred.Shredder
	chunkCfg chunker.Config
	log      *slog.Logger
}

func NewWorker(reader archive.Reader, store storage.Store, shredder *shred.Shredder, chunkCfg chunker.Config, log *slog.Logger) *Worker {
	return &Worker{
		reader:   reader,
		store:    store,
		shredder: shredder,
		chunkCfg: chunkCfg,
		log:      log,
	}
}

// ArticleResult is what one article produced.
type ArticleResult struct {
	Doc    *doctree.ShreddedDocument
	Chunks []doctree.Chunk
}

// ProcessArticle runs the full shred → chunk → store pipeline for one
// article id. Recoverable markup problems surface as warnings on the
// document, never as an error; an error means the article produced no
// stored output and may safely be retried (re-running is idempotent).
func (w *Worker) ProcessArticle(ctx context.Context, id string) (*ArticleResult, error) {
	art, err := w.reader.Article(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	doc, err := w.shredder.Shred(art.ID, art.Title, art.HTML)
	if err != nil {
		return nil, fmt.Errorf("shred: %w", err)
	}

	chunks, err := chunker.Chunk(doc.ArticleID, doc.Markdown, w.chunkCfg)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}

	if err := w.save(ctx, doc, chunks); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	w.log.Debug("article processed",
		"article_id", id,
		"chunks", len(chunks),
		"sidecar", len(doc.Sidecar),
		"warnings", len(doc.Warnings),
	)
	return &ArticleResult{Doc: doc, Chunks: chunks}, nil
}

// save writes one article's full output, retrying transient storage
// failures with backoff. The store owns the transaction boundary.
func (w *Worker) save(ctx context.Context, doc *doctree.ShreddedDocument, chunks []doctree.Chunk) error {
	var lastErr error
	for attempt := range MaxRetries {
		lastErr = w.store.SaveArticle(ctx, doc, chunks)
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		w.log.Warn("retryable storage error",
			"article_id", doc.ArticleID,
			"attempt", attempt,
			"error", lastErr,
		)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
