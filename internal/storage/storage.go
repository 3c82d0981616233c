// Package storage persists shredded documents and their chunk sequences.
// Persistence, schema and embedding computation belong to the storage
// side; the pipeline only hands over plain structured records. An
// article's document and full chunk set are one transaction: a partially
// written article must never become visible.
package storage

import (
	"context"
	"errors"

	"github.com/dgallion1/zimshred/internal/doctree"
)

// Store persists one article's output atomically.
type Store interface {
	SaveArticle(ctx context.Context, doc *doctree.ShreddedDocument, chunks []doctree.Chunk) error
	Close() error
}

// TransientError marks a storage failure worth retrying, such as a 5xx
// from a remote store or a network hiccup.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient storage error: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable storage failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
