package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/docuquery/rag-be/config"
	"github.com/docuquery/rag-be/types"
)

// Embedder converts texts into fixed-dimension vectors, one per input, in
// input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// embeddingClient is the slice of the OpenAI client the gateway needs.
type embeddingClient interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

const embedMaxAttempts = 3

// EmbeddingService is the gateway to the embedding provider. It batches
// inputs, enforces a request budget with a bounded wait, retries transient
// failures with exponential backoff and routes every provider call through
// the embedding circuit breaker.
type EmbeddingService struct {
	client       embeddingClient
	model        string
	dimension    int
	maxBatchSize int
	limiter      *rate.Limiter
	maxWait      time.Duration
	retryBase    time.Duration
	breaker      *gobreaker.CircuitBreaker
}

func NewEmbeddingService(client embeddingClient, cfg *config.Config, breaker *gobreaker.CircuitBreaker) *EmbeddingService {
	maxBatchSize := cfg.MaxBatchSize
	if maxBatchSize <= 0 {
		maxBatchSize = 100
	}
	perMin := cfg.EmbedRequestsPerMin
	if perMin <= 0 {
		perMin = 300
	}
	maxWait := cfg.EmbedMaxWait
	if maxWait <= 0 {
		maxWait = 30 * time.Second
	}
	return &EmbeddingService{
		client:       client,
		model:        cfg.EmbeddingModel,
		dimension:    cfg.EmbeddingDimension,
		maxBatchSize: maxBatchSize,
		limiter:      rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin),
		maxWait:      maxWait,
		retryBase:    time.Second,
		breaker:      breaker,
	}
}

// EmbedTexts returns one vector per input text, preserving order. Inputs
// larger than the provider batch size are split into ordered sub-batches and
// the results reassembled.
func (s *EmbeddingService) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.maxBatchSize {
		end := start + s.maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (s *EmbeddingService) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.waitForBudget(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < embedMaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := s.retryBase << uint(attempt-1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		vectors, err := s.callProvider(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		if errors.Is(err, types.ErrServiceUnavailable) {
			return nil, err
		}
		if !isTransient(err) {
			return nil, fmt.Errorf("%w: %v", types.ErrEmbeddingProvider, err)
		}
		lastErr = err
		log.Printf("embedding call failed (attempt %d/%d): %v", attempt+1, embedMaxAttempts, err)
	}
	return nil, fmt.Errorf("%w: retries exhausted: %v", types.ErrEmbeddingProvider, lastErr)
}

func (s *EmbeddingService) waitForBudget(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.maxWait)
	defer cancel()

	if err := s.limiter.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: embedding budget exhausted after waiting %s", types.ErrRateLimitExceeded, s.maxWait)
	}
	return nil
}

func (s *EmbeddingService) callProvider(ctx context.Context, texts []string) ([][]float32, error) {
	call := func() (interface{}, error) {
		return s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(s.model),
		})
	}

	var raw interface{}
	var err error
	if s.breaker != nil {
		raw, err = s.breaker.Execute(call)
		if IsBreakerOpen(err) {
			return nil, fmt.Errorf("%w: embedding circuit open", types.ErrServiceUnavailable)
		}
	} else {
		raw, err = call()
	}
	if err != nil {
		return nil, err
	}

	resp := raw.(openai.EmbeddingResponse)
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("provider returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("provider returned out-of-range index %d", item.Index)
		}
		if s.dimension > 0 && len(item.Embedding) != s.dimension {
			return nil, fmt.Errorf("provider returned %d-dimensional vector, expected %d", len(item.Embedding), s.dimension)
		}
		vectors[item.Index] = item.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("provider returned no vector for input %d", i)
		}
	}
	return vectors, nil
}

// isTransient reports whether a provider error is worth retrying: rate-limit
// and server-side statuses, and network timeouts. Client errors such as bad
// input or auth failures fail fast.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
