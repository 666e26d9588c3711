package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuquery/rag-be/database"
	"github.com/docuquery/rag-be/types"
)

func newQueryStack(t *testing.T, embedder *fakeEmbedder, provider *fakeProvider) (*QueryService, *database.MemoryVectorStore) {
	t.Helper()
	store := database.NewMemoryVectorStore(3)
	retrieval := NewRetrievalService(embedder, store, 5, 0.7)
	answer := NewAnswerService(provider, nil, 8000, 3)
	return NewQueryService(retrieval, answer, 30*time.Second), store
}

func TestQueryEndToEnd(t *testing.T) {
	embedder := &fakeEmbedder{
		vectors: map[string][]float32{
			"What did Alberta do about taxes?": {0.9, 0.1, 0},
		},
	}
	provider := &fakeProvider{answer: "Alberta reduced taxes by 10 percent according to the report."}
	svc, store := newQueryStack(t, embedder, provider)
	seedStore(t, store)

	answer, err := svc.Query(context.Background(), types.QueryRequest{
		Query:         "What did Alberta do about taxes?",
		TopK:          1,
		MinSimilarity: 0.5,
	})
	require.NoError(t, err)

	assert.Equal(t, provider.answer, answer.Text)
	require.Len(t, answer.Sources, 1)
	require.NotNil(t, answer.Sources[0].PageNumber)
	assert.Equal(t, 1, *answer.Sources[0].PageNumber)
}

func TestQueryEmptyCorpusDegradesGracefully(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{1, 0, 0}}
	provider := &fakeProvider{answer: "should not be used"}
	svc, _ := newQueryStack(t, embedder, provider)

	answer, err := svc.Query(context.Background(), types.QueryRequest{Query: "anything?"})
	require.NoError(t, err)

	assert.Equal(t, InsufficientContextAnswer, answer.Text)
	assert.Equal(t, 0.0, answer.Confidence)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, 0, provider.callCount())
}

func TestQueryRetrievalFailurePropagates(t *testing.T) {
	embedder := &fakeEmbedder{err: types.ErrEmbeddingProvider}
	provider := &fakeProvider{answer: "unused"}
	svc, _ := newQueryStack(t, embedder, provider)

	_, err := svc.Query(context.Background(), types.QueryRequest{Query: "anything?"})
	assert.ErrorIs(t, err, types.ErrEmbeddingProvider)
	assert.Equal(t, 0, provider.callCount())
}

func TestQueryDeadlineMapsToTimeout(t *testing.T) {
	embedder := &fakeEmbedder{err: context.DeadlineExceeded}
	provider := &fakeProvider{answer: "unused"}
	svc, _ := newQueryStack(t, embedder, provider)

	_, err := svc.Query(context.Background(), types.QueryRequest{Query: "anything?"})
	assert.ErrorIs(t, err, types.ErrTimeout)
}
