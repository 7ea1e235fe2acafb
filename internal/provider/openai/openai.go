// Package openai implements the Provider interface for OpenAI compatible
// chat completion endpoints.
package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"fixter/internal/provider"
	"fixter/pkg/logger"
)

const providerName = "openai"

// DefaultModel is used when neither the request nor the config names one.
const DefaultModel = goopenai.GPT4oMini

// Config holds OpenAI provider configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Provider wraps a go-openai client.
type Provider struct {
	client *goopenai.Client
	model  string
}

// New creates a new OpenAI provider.
func New(cfg Config) *Provider {
	cc := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		if hc, ok := cc.HTTPClient.(*http.Client); ok {
			hc.Timeout = cfg.Timeout
		}
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Provider{
		client: goopenai.NewClientWithConfig(cc),
		model:  cfg.Model,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// Models returns the configured model.
func (p *Provider) Models() []string {
	return []string{p.model}
}

// Chat sends a chat completion request.
func (p *Provider) Chat(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	msgs := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
		Stop:        req.Stop,
	})
	if err != nil {
		logger.Debug().Err(err).Str("model", model).Msg("OpenAI chat completion failed")
		return nil, classifyError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, provider.NewProviderError(provider.ErrCodeEmptyResponse, "no choices returned", providerName, true)
	}

	choice := resp.Choices[0]
	out := &provider.ChatResponse{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
	}
	if resp.Usage.TotalTokens > 0 {
		out.Usage = &provider.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out, nil
}

func classifyError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return provider.NewProviderError(provider.ErrCodeTimeout, err.Error(), providerName, true)
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return provider.FromHTTPStatus(providerName, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return provider.FromHTTPStatus(providerName, reqErr.HTTPStatusCode, reqErr.Error())
	}
	return provider.NewProviderError(provider.ErrCodeNetworkError, err.Error(), providerName, true)
}
