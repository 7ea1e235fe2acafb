package agent

import (
	"context"
	"errors"
	"strings"
	"sync"

	"fixter/internal/tools"
)

// scriptedLLM answers prompts by kind. Reasoning replies are consumed in
// order; the last one repeats.
type scriptedLLM struct {
	mu         sync.Mutex
	reasoning  []string
	critique   string
	synthesis  string
	prompts    []string
	stops      [][]string
	reasonings int
	critiques  int
	syntheses  int
	err        error
}

func (s *scriptedLLM) Invoke(ctx context.Context, prompt string, stop []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	s.stops = append(s.stops, stop)
	if s.err != nil {
		return "", s.err
	}

	switch {
	case strings.HasPrefix(prompt, "I need to answer this user query directly"):
		s.syntheses++
		return s.synthesis, nil
	case strings.HasPrefix(prompt, "Analyze the following"):
		s.critiques++
		return s.critique, nil
	}

	i := s.reasonings
	if i >= len(s.reasoning) {
		i = len(s.reasoning) - 1
	}
	s.reasonings++
	return s.reasoning[i], nil
}

func action(tool, input string) string {
	return "Thought: I should use a tool.\nAction: " + tool + "\nAction Input: " + input
}

type fakeTool struct {
	tools.BaseTool
	mu    sync.Mutex
	calls []map[string]any
	reply func(args map[string]any) (tools.ToolResult, error)
}

func newFakeTool(name string, reply func(args map[string]any) (tools.ToolResult, error)) *fakeTool {
	if reply == nil {
		reply = func(map[string]any) (tools.ToolResult, error) {
			return tools.NewSuccessResult(name + " result"), nil
		}
	}
	return &fakeTool{
		BaseTool: tools.BaseTool{ToolName: name, ToolDescription: "fake " + name},
		reply:    reply,
	}
}

func (t *fakeTool) Execute(ctx context.Context, args map[string]any) (tools.ToolResult, error) {
	t.mu.Lock()
	t.calls = append(t.calls, args)
	t.mu.Unlock()
	return t.reply(args)
}

func (t *fakeTool) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

var errBoom = errors.New("boom")

type recordingMemory struct {
	values []string
	meta   []map[string]any
}

func (m *recordingMemory) AddEntity(typ, value string, metadata map[string]any) {
	m.values = append(m.values, typ+":"+value)
	m.meta = append(m.meta, metadata)
}
