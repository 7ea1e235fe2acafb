package assistant

import (
	"errors"
	"fmt"

	"fixter/internal/agent"
	"fixter/internal/config"
	"fixter/internal/forge"
	"fixter/internal/provider"
	"fixter/internal/provider/ollama"
	"fixter/internal/provider/openai"
	"fixter/internal/router"
	"fixter/internal/search"
	"fixter/internal/session"
	"fixter/internal/storage"
	"fixter/internal/tools/builtin"
)

// NewProvider creates the configured language model provider, wrapped
// with retries. It also returns the model name to request.
func NewProvider(cfg *config.Config) (provider.Provider, string, error) {
	var (
		p     provider.Provider
		model string
	)
	switch cfg.LLM.Provider {
	case "openai":
		model = cfg.LLM.Model
		p = openai.New(openai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   model,
			Timeout: cfg.LLM.Timeout,
		})
	case "ollama":
		model = cfg.Ollama.Model
		p = ollama.New(ollama.Config{
			Endpoint: cfg.Ollama.Endpoint,
			Model:    model,
			Timeout:  cfg.Ollama.Timeout,
		})
	default:
		return nil, "", fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
	return provider.WithRetry(p, provider.DefaultRetryPolicy(cfg.LLM.MaxRetries)), model, nil
}

// Options customizes Build.
type Options struct {
	// Provider overrides the configured provider.
	Provider provider.Provider

	// Observer receives run events from both loops.
	Observer agent.Observer
}

// Build wires an assistant from configuration on top of db.
func Build(cfg *config.Config, db *storage.DB, opts Options) (*Assistant, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("assistant: config and database are required")
	}

	p := opts.Provider
	model := cfg.LLM.Model
	if p == nil {
		var err error
		p, model, err = NewProvider(cfg)
		if err != nil {
			return nil, err
		}
	}

	fetcher, err := forge.NewFetcher(forge.Config{
		Token:             cfg.GitHub.Token,
		BaseURL:           cfg.GitHub.BaseURL,
		Concurrency:       cfg.GitHub.Concurrency,
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
		MaxFiles:          cfg.GitHub.MaxFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("github client: %w", err)
	}

	sessions := session.NewManager(db)
	registry, err := builtin.NewRegistry(builtin.Deps{
		Sessions: sessions,
		Search: search.NewManager(search.Config{
			Provider:   cfg.Search.Provider,
			MaxResults: cfg.Search.MaxResults,
			TavilyKey:  cfg.Search.TavilyKey,
			BraveKey:   cfg.Search.BraveKey,
			SearXNGURL: cfg.Search.SearXNGURL,
		}),
		Fetcher:   fetcher,
		Workspace: cfg.Workspace,
		ForgetCurrentSession: func() error {
			if err := db.KVDelete(CurrentSessionKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	llm := agent.NewProviderLLM(p, model, cfg.LLM.Temperature, cfg.LLM.MaxTokens)
	var loopOpts []agent.Option
	if opts.Observer != nil {
		loopOpts = append(loopOpts, agent.WithObserver(opts.Observer))
	}

	conversation, err := agent.NewLoop(agent.ConversationLoop().WithStepBudget(cfg.Agent.ConversationBudget), llm, registry, loopOpts...)
	if err != nil {
		return nil, err
	}
	extraction, err := agent.NewLoop(agent.ExtractionLoop().WithStepBudget(cfg.Agent.ExtractionBudget), llm, registry, loopOpts...)
	if err != nil {
		return nil, err
	}

	return New(router.New(p, model), sessions, conversation, extraction)
}
