// Package router picks the agent loop that should answer a query.
package router

import (
	"context"
	"regexp"
	"strings"

	"fixter/internal/agent"
	"fixter/internal/provider"
	"fixter/pkg/logger"
)

// Classification methods.
const (
	MethodLLM       = "llm"
	MethodHeuristic = "heuristic"
)

// ClassifierInstruction is the system prompt of the classification call.
const ClassifierInstruction = `You are an intelligent query classifier. Your task is to determine
the type of query based on its intent.

Query Types:
- extraction: Queries involving file/content retrieval, repository cloning,
              specific file searches, directory listings
- conversation: General information queries, reasoning tasks,
                open-ended questions, discussions

Respond with ONLY the agent type: extraction or conversation`

var extractionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`extract(ion)?`),
	regexp.MustCompile(`get content`),
	regexp.MustCompile(`pull files`),
	regexp.MustCompile(`fetch.*content`),
	regexp.MustCompile(`get.*files from`),
	regexp.MustCompile(`\.git`),
	regexp.MustCompile(`github\.com`),
	regexp.MustCompile(`repository`),
	regexp.MustCompile(`folder`),
	regexp.MustCompile(`directory`),
}

// Decision records how a loop was chosen.
type Decision struct {
	Loop   string             `json:"loop"`
	Method string             `json:"method"`
	Reply  string             `json:"reply,omitempty"`
	Error  string             `json:"error,omitempty"`
	Scores map[string]float64 `json:"scores,omitempty"`
}

// Router classifies queries with one model call and falls back to
// keyword scoring.
type Router struct {
	provider provider.Provider
	model    string
}

// New creates a router. A nil provider always uses the heuristic.
func New(p provider.Provider, model string) *Router {
	return &Router{provider: p, model: model}
}

// Select returns the loop name for query. It never fails.
func (r *Router) Select(ctx context.Context, query string) Decision {
	log := logger.Component("router")

	if r.provider == nil {
		return Heuristic(query)
	}

	resp, err := r.provider.Chat(ctx, provider.ChatRequest{
		Model: r.model,
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: ClassifierInstruction},
			{Role: provider.RoleUser, Content: query},
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Classification failed, using heuristic")
		d := Heuristic(query)
		d.Error = err.Error()
		return d
	}

	// labels are matched exactly; "Extraction" is not a label
	reply := strings.TrimSpace(resp.Content)
	switch reply {
	case agent.LoopExtraction, agent.LoopConversation:
		log.Debug().Str("loop", reply).Msg("Query classified")
		return Decision{Loop: reply, Method: MethodLLM, Reply: resp.Content}
	}

	log.Warn().Str("reply", resp.Content).Msg("Unexpected classification, using heuristic")
	d := Heuristic(query)
	d.Reply = resp.Content
	return d
}

// Heuristic scores query against the extraction keywords. Ties go to the
// conversation loop.
func Heuristic(query string) Decision {
	extraction, conversation := 0.2, 0.7
	if matchesExtraction(query) {
		extraction, conversation = 0.8, 0.3
	}

	loop := agent.LoopConversation
	if extraction > conversation {
		loop = agent.LoopExtraction
	}
	return Decision{
		Loop:   loop,
		Method: MethodHeuristic,
		Scores: map[string]float64{
			agent.LoopExtraction:   extraction,
			agent.LoopConversation: conversation,
		},
	}
}

func matchesExtraction(query string) bool {
	q := strings.ToLower(query)
	for _, p := range extractionPatterns {
		if p.MatchString(q) {
			return true
		}
	}
	return false
}
