package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/jacentio/flexdb/document"
)

// collectionAttr holds the collection name on stored items.
const collectionAttr = "_tb"

// Store is a document store. Implementations are safe for concurrent use.
type Store interface {
	// Create inserts content as a new document in collection under a freshly
	// assigned record id and returns the stored document.
	Create(ctx context.Context, collection string, content document.Object) (document.Object, error)

	// Select returns every document in collection. A collection nobody wrote
	// to is empty, not an error.
	Select(ctx context.Context, collection string) ([]document.Object, error)

	// Get returns one document, or ErrNotFound.
	Get(ctx context.Context, rid document.RecordID) (document.Object, error)

	// Merge overwrites the document's fields with those in content, keeping
	// fields content doesn't mention, and returns the merged document.
	Merge(ctx context.Context, rid document.RecordID, content document.Object) (document.Object, error)

	// Append adds v to the end of the array held in field, creating the
	// array when the field is absent, and returns the updated document.
	Append(ctx context.Context, rid document.RecordID, field string, v document.Value) (document.Object, error)

	// Exec runs the batch atomically and returns the number of statements
	// executed, BEGIN and COMMIT included.
	Exec(ctx context.Context, b *Batch) (int, error)

	// Close releases the store's resources.
	Close() error
}

// NewID returns a fresh opaque record id.
func NewID() string {
	return uuid.NewString()
}

// isReserved reports whether field is managed by the store and can't be
// written through content.
func isReserved(field string) bool {
	return field == document.IDField || field == collectionAttr
}

// userFields returns content without store-managed fields. Record ids are
// assigned by the store and never change, so a client supplied id is dropped.
func userFields(content document.Object) document.Object {
	out := make(document.Object, len(content))
	for k, v := range content {
		if isReserved(k) {
			continue
		}
		out[k] = v
	}
	return out
}

// withRecord returns fields plus the structured id.
func withRecord(fields document.Object, rid document.RecordID) document.Object {
	out := fields.Clone()
	out[document.IDField] = document.Record(rid)
	return out
}
