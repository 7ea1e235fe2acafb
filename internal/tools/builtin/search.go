package builtin

import (
	"context"
	"encoding/json"
	"strings"

	"fixter/internal/tools"
	"fixter/pkg/logger"
)

// WebSearchArgs defines the parameters for the web search tool.
type WebSearchArgs struct {
	Query string `json:"query" jsonschema:"description=Search query,required"`
}

// WebSearchTool searches the web through the configured backend.
type WebSearchTool struct {
	tools.BaseTool
	deps Deps
}

// NewWebSearchTool creates the tavily_search_results_json tool.
func NewWebSearchTool(d Deps) *WebSearchTool {
	return &WebSearchTool{
		BaseTool: tools.BaseTool{
			ToolName: tools.NameWebSearch,
			ToolDescription: "A search engine optimized for comprehensive, accurate, and trusted results. " +
				"Useful for when you need to answer questions about current events. Input should be a search query.",
			ToolParameters: tools.BuildSchema(WebSearchArgs{}),
		},
		deps: d,
	}
}

type searchHit struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Execute runs the query. Backend failures become error results.
func (t *WebSearchTool) Execute(ctx context.Context, args map[string]any) (tools.ToolResult, error) {
	query := strings.TrimSpace(tools.StringArg(args, "query", ""))
	if query == "" {
		return tools.NewErrorResult("search query is required"), nil
	}
	if t.deps.Search == nil {
		return tools.NewErrorResult("web search is not configured"), nil
	}

	results, err := t.deps.Search.Search(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return tools.ToolResult{}, ctx.Err()
		}
		logger.Warn().Err(err).Str("query", query).Msg("Web search failed")
		return tools.NewErrorResult(err.Error()), nil
	}

	hits := make([]searchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, searchHit{URL: r.URL, Content: r.Content})
	}
	out, err := json.Marshal(hits)
	if err != nil {
		return tools.ToolResult{}, err
	}
	return tools.NewResultWithMetadata(string(out), map[string]any{"backend": t.deps.Search.Primary()}), nil
}
