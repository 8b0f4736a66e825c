// Package attachments stores encrypted audio blobs in a sidecar SQLite
// database next to the vault container. Blobs are encrypted under per-blob
// data keys wrapped by the vault master key, so re-flushing the container
// never has to rewrite attachment bytes.
package attachments

import (
	"context"
	"time"
)

// Record is one encrypted attachment blob.
type Record struct {
	ID         string
	NoteID     string
	Ciphertext []byte
	WrappedKey []byte
	Nonce      []byte
	Size       int64
	CreatedAt  time.Time
}

// Repository persists attachment records.
type Repository interface {
	Add(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
}
