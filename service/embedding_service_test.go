package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuquery/rag-be/config"
	"github.com/docuquery/rag-be/types"
)

// fakeEmbeddingClient returns deterministic vectors and can be scripted to
// fail the first N calls.
type fakeEmbeddingClient struct {
	mu        sync.Mutex
	calls     int
	batches   [][]string
	failFirst int
	failWith  error
	dimension int
}

func (f *fakeEmbeddingClient) CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	req := conv.Convert()
	texts := req.Input.([]string)
	f.batches = append(f.batches, texts)

	if f.calls <= f.failFirst {
		return openai.EmbeddingResponse{}, f.failWith
	}

	resp := openai.EmbeddingResponse{}
	for i, text := range texts {
		vector := make([]float32, f.dimension)
		vector[0] = float32(len(text))
		resp.Data = append(resp.Data, openai.Embedding{
			Index:     i,
			Embedding: vector,
		})
	}
	return resp, nil
}

func (f *fakeEmbeddingClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testEmbedConfig() *config.Config {
	return &config.Config{
		EmbeddingModel:      "test-embedding",
		EmbeddingDimension:  4,
		MaxBatchSize:        2,
		EmbedRequestsPerMin: 6000,
		EmbedMaxWait:        time.Second,
	}
}

func TestEmbedTextsPreservesOrderAcrossBatches(t *testing.T) {
	client := &fakeEmbeddingClient{dimension: 4}
	svc := NewEmbeddingService(client, testEmbedConfig(), nil)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := svc.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	// Batch size 2 splits five inputs into three ordered sub-batches.
	assert.Equal(t, 3, client.callCount())
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vectors[i][0])
	}
}

func TestEmbedTextsRetriesTransientFailures(t *testing.T) {
	client := &fakeEmbeddingClient{
		dimension: 4,
		failFirst: 2,
		failWith:  &openai.APIError{HTTPStatusCode: http.StatusInternalServerError, Message: "boom"},
	}
	svc := NewEmbeddingService(client, testEmbedConfig(), nil)
	svc.retryBase = time.Millisecond

	vectors, err := svc.EmbedTexts(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, 3, client.callCount())
}

func TestEmbedTextsExhaustsRetries(t *testing.T) {
	client := &fakeEmbeddingClient{
		dimension: 4,
		failFirst: 100,
		failWith:  &openai.APIError{HTTPStatusCode: http.StatusServiceUnavailable, Message: "down"},
	}
	svc := NewEmbeddingService(client, testEmbedConfig(), nil)
	svc.retryBase = time.Millisecond

	_, err := svc.EmbedTexts(context.Background(), []string{"hello"})
	assert.ErrorIs(t, err, types.ErrEmbeddingProvider)
	assert.Equal(t, embedMaxAttempts, client.callCount())
}

func TestEmbedTextsDoesNotRetryAuthFailure(t *testing.T) {
	client := &fakeEmbeddingClient{
		dimension: 4,
		failFirst: 100,
		failWith:  &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"},
	}
	svc := NewEmbeddingService(client, testEmbedConfig(), nil)
	svc.retryBase = time.Millisecond

	_, err := svc.EmbedTexts(context.Background(), []string{"hello"})
	assert.ErrorIs(t, err, types.ErrEmbeddingProvider)
	assert.Equal(t, 1, client.callCount())
}

func TestEmbedTextsRateLimitBoundedWait(t *testing.T) {
	cfg := testEmbedConfig()
	cfg.EmbedRequestsPerMin = 1
	cfg.EmbedMaxWait = 20 * time.Millisecond

	client := &fakeEmbeddingClient{dimension: 4}
	svc := NewEmbeddingService(client, cfg, nil)

	// First call consumes the whole minute budget.
	_, err := svc.EmbedTexts(context.Background(), []string{"hello"})
	require.NoError(t, err)

	// Second call cannot acquire budget within the bounded wait.
	_, err = svc.EmbedTexts(context.Background(), []string{"world"})
	assert.ErrorIs(t, err, types.ErrRateLimitExceeded)
	assert.Equal(t, 1, client.callCount())
}

func TestEmbedTextsRejectsWrongDimension(t *testing.T) {
	client := &fakeEmbeddingClient{dimension: 3}
	svc := NewEmbeddingService(client, testEmbedConfig(), nil)

	_, err := svc.EmbedTexts(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestEmbedTextsOpenBreakerFailsFast(t *testing.T) {
	breakers := NewBreakers(3, time.Minute)
	client := &fakeEmbeddingClient{
		dimension: 4,
		failFirst: 100,
		failWith:  fmt.Errorf("connection refused"),
	}
	svc := NewEmbeddingService(client, testEmbedConfig(), breakers.Embedding)
	svc.retryBase = time.Millisecond

	// Trip the breaker with consecutive failures. The generic error is
	// non-transient so each EmbedTexts call hits the provider once.
	for i := 0; i < 3; i++ {
		_, err := svc.EmbedTexts(context.Background(), []string{"hello"})
		require.Error(t, err)
	}
	callsWhenTripped := client.callCount()

	_, err := svc.EmbedTexts(context.Background(), []string{"hello"})
	assert.ErrorIs(t, err, types.ErrServiceUnavailable)
	assert.Equal(t, callsWhenTripped, client.callCount())
}
