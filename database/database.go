package database

import (
	"context"

	"github.com/docuquery/rag-be/types"
)

// VectorStore persists chunks with their embeddings and serves top-k cosine
// similarity retrieval. A document's chunk set is written in one batch so a
// concurrent reader never observes it partially written.
type VectorStore interface {
	// UpsertChunks stores chunks[i] with vectors[i]. It rejects vectors whose
	// dimension differs from the store's configured embedding dimension.
	UpsertChunks(ctx context.Context, chunks []types.Chunk, vectors [][]float32) error

	// Search returns at most topK results with similarity >= minSimilarity,
	// ordered by descending similarity; ties broken by ascending chunk index,
	// then document ID.
	Search(ctx context.Context, vector []float32, topK int, minSimilarity float64) ([]types.RetrievalResult, error)

	// DeleteDocument removes every chunk and vector belonging to a document.
	DeleteDocument(ctx context.Context, documentID string) error

	// FindVectorByFingerprint returns a stored vector for a chunk content
	// fingerprint, if any. Used by chunk-level deduplication.
	FindVectorByFingerprint(ctx context.Context, fingerprint string) ([]float32, bool, error)
}
