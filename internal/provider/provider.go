// Package provider defines the LLM provider interface and types.
package provider

import (
	"context"
	"strings"
)

// Provider defines the interface for LLM providers.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// Models returns the list of supported models.
	Models() []string

	// Chat sends a chat request and returns the response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Complete sends a single user prompt and returns the trimmed reply text.
func Complete(ctx context.Context, p Provider, req ChatRequest, prompt string) (string, error) {
	req.Messages = append(append([]Message(nil), req.Messages...), Message{Role: RoleUser, Content: prompt})
	resp, err := p.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}
