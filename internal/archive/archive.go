// Package archive defines read access to a wiki archive. The shredding
// core only depends on the Reader interface; decompression and
// random-access lookup belong to the archive implementation. Readers must
// support concurrent reads — workers share one reader with no
// coordination.
package archive

import "context"

// Article is one raw article as stored in the archive. It is read-only
// input to the pipeline.
type Article struct {
	ID    string
	Title string
	HTML  []byte
}

// Reader provides random access to an archive's articles and media.
type Reader interface {
	// Entries enumerates all article ids in the archive.
	Entries(ctx context.Context) ([]string, error)

	// Article returns the raw markup and metadata for one article id.
	Article(ctx context.Context, id string) (*Article, error)

	// Media returns raw bytes for a media path such as "I/Apollo_11.jpg".
	// Bytes are read straight out of the archive, never unpacked to disk.
	Media(ctx context.Context, path string) ([]byte, error)

	Close() error
}
