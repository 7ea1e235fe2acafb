// Package search provides the web search backends behind the
// tavily_search_results_json tool.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when the selected backend lacks credentials.
var ErrNotConfigured = errors.New("search provider not configured")

// Result is a single search hit. Content is the page snippet.
type Result struct {
	Title   string `json:"title,omitempty"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Provider is implemented by each search backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Config selects and configures a backend.
type Config struct {
	Provider   string // tavily, brave, searxng
	MaxResults int
	TavilyKey  string
	BraveKey   string
	SearXNGURL string
}

// Manager routes queries to the configured primary backend.
type Manager struct {
	providers  map[string]Provider
	primary    string
	maxResults int
}

// NewManager creates a manager with every backend that has credentials.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		providers:  make(map[string]Provider),
		primary:    cfg.Provider,
		maxResults: cfg.MaxResults,
	}
	if m.primary == "" {
		m.primary = "tavily"
	}
	if m.maxResults <= 0 {
		m.maxResults = 5
	}
	if cfg.TavilyKey != "" {
		m.Register(NewTavily(cfg.TavilyKey, ""))
	}
	if cfg.BraveKey != "" {
		m.Register(NewBrave(cfg.BraveKey, ""))
	}
	if cfg.SearXNGURL != "" {
		m.Register(NewSearXNG(cfg.SearXNGURL))
	}
	return m
}

// Register adds or replaces a backend.
func (m *Manager) Register(p Provider) {
	m.providers[p.Name()] = p
}

// Primary returns the name of the backend Search uses.
func (m *Manager) Primary() string {
	return m.primary
}

// Search runs a query against the primary backend.
func (m *Manager) Search(ctx context.Context, query string) ([]Result, error) {
	p, ok := m.providers[m.primary]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, m.primary)
	}
	return p.Search(ctx, query, m.maxResults)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 20 * time.Second}
}

func readErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(body))
}
