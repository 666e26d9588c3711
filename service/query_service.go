package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docuquery/rag-be/types"
)

// QueryService runs the full query path, retrieval then synthesis, under one
// end-to-end deadline.
type QueryService struct {
	retrieval *RetrievalService
	answer    *AnswerService
	timeout   time.Duration
}

func NewQueryService(retrieval *RetrievalService, answer *AnswerService, timeout time.Duration) *QueryService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &QueryService{
		retrieval: retrieval,
		answer:    answer,
		timeout:   timeout,
	}
}

// Query answers a question against the corpus. No relevant context is not an
// error at this level: it degrades to the fixed insufficient-context answer
// with confidence 0.
func (s *QueryService) Query(ctx context.Context, req types.QueryRequest) (*types.Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results, err := s.retrieval.Retrieve(ctx, req.Query, req.TopK, req.MinSimilarity)
	if err != nil && !errors.Is(err, types.ErrNoRelevantContext) {
		return nil, mapDeadline(err)
	}

	answer, err := s.answer.Synthesize(ctx, req.Query, results)
	if err != nil {
		return nil, mapDeadline(err)
	}
	return answer, nil
}

func mapDeadline(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: query deadline exceeded", types.ErrTimeout)
	}
	return err
}
