package database

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/docuquery/rag-be/types"
)

// MemoryVectorStore is an in-process VectorStore with exact cosine scoring.
// It backs local development and tests where no Weaviate instance exists.
type MemoryVectorStore struct {
	mu        sync.RWMutex
	dimension int
	entries   []memoryEntry
}

type memoryEntry struct {
	chunk  types.Chunk
	vector []float32
}

func NewMemoryVectorStore(dimension int) *MemoryVectorStore {
	return &MemoryVectorStore{dimension: dimension}
}

func (s *MemoryVectorStore) UpsertChunks(ctx context.Context, chunks []types.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("vector for chunk %d has dimension %d, store expects %d", i, len(v), s.dimension)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range chunks {
		s.entries = append(s.entries, memoryEntry{chunk: chunks[i], vector: vectors[i]})
	}
	return nil
}

func (s *MemoryVectorStore) Search(ctx context.Context, vector []float32, topK int, minSimilarity float64) ([]types.RetrievalResult, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, store expects %d", len(vector), s.dimension)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []types.RetrievalResult
	for _, e := range s.entries {
		sim := CosineSimilarity(vector, e.vector)
		if sim < minSimilarity {
			continue
		}
		results = append(results, types.RetrievalResult{
			Chunk:        e.chunk,
			Similarity:   sim,
			DocumentName: e.chunk.Metadata["document_name"],
		})
	}

	SortResults(results)
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *MemoryVectorStore) DeleteDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.chunk.DocumentID != documentID {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return nil
}

func (s *MemoryVectorStore) FindVectorByFingerprint(ctx context.Context, fingerprint string) ([]float32, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.chunk.Fingerprint == fingerprint {
			return e.vector, true, nil
		}
	}
	return nil, false, nil
}

// Count returns the number of stored chunks.
func (s *MemoryVectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// CosineSimilarity returns the cosine of the angle between a and b in
// [-1, 1]. Zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SortResults orders results by descending similarity, ties broken by
// ascending chunk index then document ID, so ranking is deterministic.
func SortResults(results []types.RetrievalResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		if results[i].Chunk.Index != results[j].Chunk.Index {
			return results[i].Chunk.Index < results[j].Chunk.Index
		}
		return results[i].Chunk.DocumentID < results[j].Chunk.DocumentID
	})
}
