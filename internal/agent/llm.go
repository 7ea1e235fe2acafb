package agent

import (
	"context"

	"fixter/internal/provider"
)

// LLM turns a prompt into completion text.
type LLM interface {
	Invoke(ctx context.Context, prompt string, stop []string) (string, error)
}

// LLMFunc adapts a function to the LLM interface.
type LLMFunc func(ctx context.Context, prompt string, stop []string) (string, error)

// Invoke calls f.
func (f LLMFunc) Invoke(ctx context.Context, prompt string, stop []string) (string, error) {
	return f(ctx, prompt, stop)
}

// ProviderLLM sends each prompt as a single user message.
type ProviderLLM struct {
	Provider    provider.Provider
	Model       string
	Temperature float64
	MaxTokens   int
}

// NewProviderLLM wraps p.
func NewProviderLLM(p provider.Provider, model string, temperature float64, maxTokens int) *ProviderLLM {
	return &ProviderLLM{
		Provider:    p,
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}

// Invoke implements LLM.
func (l *ProviderLLM) Invoke(ctx context.Context, prompt string, stop []string) (string, error) {
	if l == nil || l.Provider == nil {
		return "", ErrNoProvider
	}
	return provider.Complete(ctx, l.Provider, provider.ChatRequest{
		Model:       l.Model,
		Temperature: l.Temperature,
		MaxTokens:   l.MaxTokens,
		Stop:        stop,
	}, prompt)
}
