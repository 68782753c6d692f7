// Package vectorstore defines the vector index contract used for grounding
// retrieval. The figure name is the sole partition key: a search result may
// never contain a document stored under a different figure.
package vectorstore

import "context"

// VectorSize is fixed by the embedding model (text-embedding-004 emits
// 768-dimensional vectors); the collection uses cosine distance.
const VectorSize = 768

// IndexedDocument is one stored point: an embedded chunk of source text.
type IndexedDocument struct {
	ID         string
	FigureName string
	SourceName string
	Text       string
	Vector     []float32
}

// RetrievedDocument is a search hit with its similarity score.
type RetrievedDocument struct {
	IndexedDocument
	Score float32
}

// Index stores and retrieves embedded documents.
type Index interface {
	// Upsert writes documents; existing IDs are overwritten.
	Upsert(ctx context.Context, docs []IndexedDocument) error
	// Search returns at most limit documents for figureName, ordered by
	// descending similarity. The filter is strict: no fallback to
	// unfiltered results.
	Search(ctx context.Context, vector []float32, figureName string, limit int) ([]RetrievedDocument, error)
	// Recreate drops and recreates the collection. Destructive and
	// idempotent; only for controlled re-indexing, never the request path.
	Recreate(ctx context.Context) error
}
