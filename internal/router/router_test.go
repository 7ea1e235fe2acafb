package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixter/internal/agent"
	"fixter/internal/provider"
)

type stubProvider struct {
	reply string
	err   error
	req   provider.ChatRequest
}

func (s *stubProvider) Name() string     { return "stub" }
func (s *stubProvider) Models() []string { return nil }
func (s *stubProvider) Chat(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return &provider.ChatResponse{Content: s.reply}, nil
}

func TestSelectUsesLLMLabel(t *testing.T) {
	p := &stubProvider{reply: "  conversation \n"}
	d := New(p, "m").Select(context.Background(), "extract files from /tmp")

	assert.Equal(t, agent.LoopConversation, d.Loop)
	assert.Equal(t, MethodLLM, d.Method)
	require.Len(t, p.req.Messages, 2)
	assert.Equal(t, provider.RoleSystem, p.req.Messages[0].Role)
	assert.Equal(t, ClassifierInstruction, p.req.Messages[0].Content)
	assert.Equal(t, "extract files from /tmp", p.req.Messages[1].Content)
	assert.Equal(t, "m", p.req.Model)
}

func TestSelectInvalidLabelFallsBack(t *testing.T) {
	d := New(&stubProvider{reply: "Extraction."}, "").Select(context.Background(), "extract the python files from my folder")
	assert.Equal(t, agent.LoopExtraction, d.Loop)
	assert.Equal(t, MethodHeuristic, d.Method)
	assert.Equal(t, "Extraction.", d.Reply)
	assert.Equal(t, 0.8, d.Scores[agent.LoopExtraction])
	assert.Equal(t, 0.3, d.Scores[agent.LoopConversation])
}

func TestSelectWrongCaseIsInvalid(t *testing.T) {
	d := New(&stubProvider{reply: "Extraction"}, "").Select(context.Background(), "tell me about go modules")
	assert.Equal(t, agent.LoopConversation, d.Loop)
	assert.Equal(t, MethodHeuristic, d.Method)
	assert.Equal(t, 0.2, d.Scores[agent.LoopExtraction])
	assert.Equal(t, 0.7, d.Scores[agent.LoopConversation])

	d = New(&stubProvider{reply: "extraction"}, "").Select(context.Background(), "tell me about go modules")
	assert.Equal(t, agent.LoopExtraction, d.Loop)
	assert.Equal(t, MethodLLM, d.Method)
}

func TestSelectErrorFallsBack(t *testing.T) {
	d := New(&stubProvider{err: errors.New("offline")}, "").Select(context.Background(), "what's the weather?")
	assert.Equal(t, agent.LoopConversation, d.Loop)
	assert.Equal(t, MethodHeuristic, d.Method)
	assert.Equal(t, "offline", d.Error)
}

func TestSelectNilProvider(t *testing.T) {
	d := New(nil, "").Select(context.Background(), "clone https://github.com/o/r")
	assert.Equal(t, agent.LoopExtraction, d.Loop)
}

func TestHeuristic(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"Extract content from ~/code", agent.LoopExtraction},
		{"get content of the docs", agent.LoopExtraction},
		{"pull files please", agent.LoopExtraction},
		{"fetch all the content", agent.LoopExtraction},
		{"get the go files from /src", agent.LoopExtraction},
		{"look at repo.git", agent.LoopExtraction},
		{"see GITHUB.COM/o/r", agent.LoopExtraction},
		{"which repository is it", agent.LoopExtraction},
		{"list the Directory", agent.LoopExtraction},
		{"tell me a joke", agent.LoopConversation},
		{"", agent.LoopConversation},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Heuristic(tt.query).Loop)
		})
	}
}
