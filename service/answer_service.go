package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/docuquery/rag-be/types"
)

const answerSystemPrompt = `You are an assistant that answers questions using only the provided document excerpts.
Base your answer strictly on the excerpts. If they do not contain the answer, say that you don't have enough information.
Be concise and factual.`

// InsufficientContextAnswer is returned without calling the generation
// provider when retrieval produced nothing usable.
const InsufficientContextAnswer = "I don't have enough information in the uploaded documents to answer this question."

// filteredAnswer replaces a response the provider refused under its safety
// policy.
const filteredAnswer = "I can't provide an answer to this question based on the available documents."

// ConfidenceScorer derives a [0,1] confidence from the generated answer text
// and the mean similarity of the chunks placed in context. Pluggable because
// the weighting is the most likely point of future tuning.
type ConfidenceScorer func(answerText string, meanSimilarity float64) float64

// AnswerService assembles retrieved context into a prompt, invokes the
// generation provider and attaches citations plus a confidence estimate.
type AnswerService struct {
	provider         GenerationProvider
	scorer           ConfidenceScorer
	maxContextLength int
	maxSources       int
}

func NewAnswerService(provider GenerationProvider, scorer ConfidenceScorer, maxContextLength, maxSources int) *AnswerService {
	if scorer == nil {
		scorer = DefaultConfidenceScorer
	}
	if maxContextLength <= 0 {
		maxContextLength = 8000
	}
	if maxSources <= 0 {
		maxSources = 3
	}
	return &AnswerService{
		provider:         provider,
		scorer:           scorer,
		maxContextLength: maxContextLength,
		maxSources:       maxSources,
	}
}

// Synthesize produces an answer for the query from the retrieved results.
// With zero results the generation provider is not called at all; a safety
// refusal from the provider degrades to a fixed answer instead of an error.
func (s *AnswerService) Synthesize(ctx context.Context, query string, results []types.RetrievalResult) (*types.Answer, error) {
	start := time.Now()

	if len(results) == 0 {
		return &types.Answer{
			Text:           InsufficientContextAnswer,
			Sources:        []types.Source{},
			Confidence:     0,
			ProcessingTime: time.Since(start),
		}, nil
	}

	contextText, used := s.assembleContext(results)
	userPrompt := fmt.Sprintf("Document excerpts:\n\n%s\n\nQuestion: %s", contextText, query)

	text, err := s.provider.Generate(ctx, answerSystemPrompt, userPrompt)
	if errors.Is(err, types.ErrContentFiltered) {
		text = filteredAnswer
	} else if err != nil {
		return nil, err
	}

	confidence := clamp01(s.scorer(text, meanSimilarity(used)))

	return &types.Answer{
		Text:           text,
		Sources:        s.sources(used),
		Confidence:     confidence,
		ProcessingTime: time.Since(start),
	}, nil
}

// assembleContext concatenates source-tagged chunk texts under the context
// budget. Results arrive ranked, so stopping at the budget drops the lowest
// ranked chunks first.
func (s *AnswerService) assembleContext(results []types.RetrievalResult) (string, []types.RetrievalResult) {
	var sb strings.Builder
	var used []types.RetrievalResult
	for _, result := range results {
		tag := fmt.Sprintf("[Source: %s", result.DocumentName)
		if result.Chunk.PageNumber != nil {
			tag += fmt.Sprintf(" (Page %d)", *result.Chunk.PageNumber)
		}
		tag += "]"
		block := tag + "\n" + result.Chunk.Content + "\n\n"

		if sb.Len() > 0 && sb.Len()+len(block) > s.maxContextLength {
			break
		}
		sb.WriteString(block)
		used = append(used, result)
	}
	return strings.TrimRight(sb.String(), "\n"), used
}

func (s *AnswerService) sources(used []types.RetrievalResult) []types.Source {
	limit := s.maxSources
	if limit > len(used) {
		limit = len(used)
	}
	sources := make([]types.Source, 0, limit)
	for _, result := range used[:limit] {
		sources = append(sources, types.Source{
			DocumentName: result.DocumentName,
			PageNumber:   result.Chunk.PageNumber,
			Similarity:   result.Similarity,
		})
	}
	return sources
}

func meanSimilarity(results []types.RetrievalResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, result := range results {
		sum += result.Similarity
	}
	return sum / float64(len(results))
}

// hedgePhrases mark answers where the model signals it lacks grounding.
// Matching any of them caps confidence at 0.2 regardless of retrieval
// quality.
var hedgePhrases = []string{
	"don't have enough information",
	"do not have enough information",
	"insufficient information",
	"cannot answer",
	"can't answer",
	"can't provide an answer",
	"unable to answer",
	"not mentioned in the",
	"no information provided",
}

// DefaultConfidenceScorer blends retrieval quality with a structural signal
// from the answer: 0.7 x mean similarity + 0.3 x a length-based score.
func DefaultConfidenceScorer(answerText string, meanSimilarity float64) float64 {
	score := 0.7*meanSimilarity + 0.3*structureSignal(answerText)

	lower := strings.ToLower(answerText)
	for _, phrase := range hedgePhrases {
		if strings.Contains(lower, phrase) {
			return math.Min(score, 0.2)
		}
	}
	return score
}

func structureSignal(answerText string) float64 {
	switch n := len(strings.TrimSpace(answerText)); {
	case n == 0:
		return 0
	case n < 80:
		return 0.5
	case n < 200:
		return 0.8
	default:
		return 1.0
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
