package service

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"github.com/docuquery/rag-be/config"
	"github.com/docuquery/rag-be/types"
)

// OpenAIProvider generates answers through the OpenAI chat completions API
// (or any compatible endpoint configured via openai_endpoint).
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	breaker *gobreaker.CircuitBreaker
}

func NewOpenAIProvider(cfg *config.Config, breaker *gobreaker.CircuitBreaker) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIEndpoint != "" {
		clientCfg.BaseURL = cfg.OpenAIEndpoint
	}
	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.GenerationModel,
		breaker: breaker,
	}
}

func (p *OpenAIProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	call := func() (interface{}, error) {
		return p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: p.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
			Temperature: 0.2,
		})
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

	resp := raw.(openai.ChatCompletionResponse)
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", types.ErrGenerationProvider)
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", types.ErrContentFiltered
	}
	return choice.Message.Content, nil
}
