package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/docuquery/rag-be/database"
	"github.com/docuquery/rag-be/types"
)

// RetrievalService turns a query into a ranked candidate set: embed the
// query, search the vector store, apply defaults. It owns no state and
// propagates failures from both collaborators without masking them.
type RetrievalService struct {
	embedder         Embedder
	store            database.VectorStore
	defaultTopK      int
	defaultThreshold float64
}

func NewRetrievalService(embedder Embedder, store database.VectorStore, defaultTopK int, defaultThreshold float64) *RetrievalService {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	if defaultThreshold <= 0 {
		defaultThreshold = 0.7
	}
	return &RetrievalService{
		embedder:         embedder,
		store:            store,
		defaultTopK:      defaultTopK,
		defaultThreshold: defaultThreshold,
	}
}

// Retrieve returns at most topK results above minSimilarity for the query.
// An embedding failure is a retrieval failure, never an empty success; zero
// results above the threshold is types.ErrNoRelevantContext.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, topK int, minSimilarity float64) ([]types.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", types.ErrValidation)
	}
	if topK <= 0 {
		topK = s.defaultTopK
	}
	if minSimilarity <= 0 {
		minSimilarity = s.defaultThreshold
	}

	vectors, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := s.store.Search(ctx, vectors[0], topK, minSimilarity)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if len(results) == 0 {
		return nil, types.ErrNoRelevantContext
	}
	return results, nil
}
