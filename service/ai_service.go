package service

import "context"

// GenerationProvider produces answer text from a system instruction and a
// user prompt. A refusal under the provider's content-safety policy is
// returned as types.ErrContentFiltered so callers can degrade gracefully
// instead of failing.
type GenerationProvider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
