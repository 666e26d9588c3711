package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"google.golang.org/api/option"

	"github.com/docuquery/rag-be/config"
	"github.com/docuquery/rag-be/types"
)

// GeminiProvider generates answers through the Gemini API. All four harm
// categories block at medium and above; a safety block is surfaced as
// types.ErrContentFiltered.
type GeminiProvider struct {
	client  *genai.Client
	model   string
	breaker *gobreaker.CircuitBreaker
}

func NewGeminiProvider(ctx context.Context, cfg *config.Config, breaker *gobreaker.CircuitBreaker) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiProvider{
		client:  client,
		model:   cfg.GenerationModel,
		breaker: breaker,
	}, nil
}

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func (p *GeminiProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	model := p.client.GenerativeModel(p.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockMediumAndAbove},
	}

	call := func() (interface{}, error) {
		return model.GenerateContent(ctx, genai.Text(userPrompt))
	}

	var raw interface{}
	var err error
	if p.breaker != nil {
		raw, err = p.breaker.Execute(call)
		if IsBreakerOpen(err) {
			return "", fmt.Errorf("%w: generation circuit open", types.ErrServiceUnavailable)
		}
	} else {
		raw, err = call()
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrGenerationProvider, err)
	}

	resp := raw.(*genai.GenerateContentResponse)
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", types.ErrContentFiltered
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: empty response", types.ErrGenerationProvider)
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", types.ErrContentFiltered
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty candidate content", types.ErrGenerationProvider)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}
