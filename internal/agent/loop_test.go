package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixter/internal/tools"
)

func TestNewLoopValidation(t *testing.T) {
	reg := tools.NewRegistry(newFakeTool("a", nil))

	_, err := NewLoop(ConversationLoop().WithTools("a"), nil, reg)
	assert.ErrorIs(t, err, ErrNoProvider)

	_, err = NewLoop(ConversationLoop().WithTools(), &scriptedLLM{}, reg)
	assert.ErrorIs(t, err, ErrNoTools)

	_, err = NewLoop(ConversationLoop().WithTools("a", "missing"), &scriptedLLM{}, reg)
	assert.ErrorIs(t, err, tools.ErrToolNotFound)

	l, err := NewLoop(ConversationLoop().WithTools("a"), &scriptedLLM{}, reg)
	require.NoError(t, err)
	assert.Equal(t, LoopConversation, l.Name())
}

func TestRunDirectAnswer(t *testing.T) {
	llm := &scriptedLLM{reasoning: []string{"Thought: easy\nFinal Answer: 4"}}
	tool := newFakeTool(tools.NameSystemTime, nil)
	l, err := NewLoop(ConversationLoop().WithTools(tool.Name()), llm, tools.NewRegistry(tool))
	require.NoError(t, err)

	st, err := l.Run(context.Background(), Request{Input: "2+2?", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "4", st.Answer())
	assert.Zero(t, st.StepCounter)
	assert.Zero(t, tool.callCount())
	assert.Equal(t, []string{StopSequence}, llm.stops[0])
	assert.Contains(t, llm.prompts[0], "Question: 2+2?\nThought:")
	assert.Contains(t, llm.prompts[0], "get_system_time: fake get_system_time")
	assert.NotEmpty(t, st.RunID)
}

func TestRunActThenAnswer(t *testing.T) {
	llm := &scriptedLLM{reasoning: []string{
		action(tools.NameConversationHistory, "limit=7"),
		"Thought: done\nFinal Answer: you asked about go",
	}}
	tool := newFakeTool(tools.NameConversationHistory, nil)
	l, err := NewLoop(ConversationLoop().WithTools(tool.Name()), llm, tools.NewRegistry(tool))
	require.NoError(t, err)

	var events []Event
	l.observer = ObserverFunc(func(e Event) { events = append(events, e) })

	st, err := l.Run(context.Background(), Request{Input: "what did I ask?"})
	require.NoError(t, err)
	assert.Equal(t, "you asked about go", st.Answer())
	require.Len(t, st.History, 1)
	assert.Equal(t, 1, st.StepCounter)
	assert.Equal(t, map[string]any{"limit": 7}, tool.calls[0])
	assert.Equal(t, "get_conversation_history result", st.History[0].Observation)

	// the scratchpad replays the previous step
	assert.Contains(t, llm.prompts[1], "Action Input: limit=7\nObservation: get_conversation_history result\nThought: ")

	var types []EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []EventType{EventReasoning, EventAction, EventObservation, EventReasoning, EventFinal}, types)
	assert.Equal(t, LoopConversation, events[0].Loop)
}

func TestRunLoopDetectionSynthesizes(t *testing.T) {
	llm := &scriptedLLM{
		reasoning: []string{action(tools.NameWebSearch, "weather today")},
		critique:  "stuck repeating the same search",
		synthesis: "It is sunny.",
	}
	search := newFakeTool(tools.NameWebSearch, nil)
	clock := newFakeTool(tools.NameSystemTime, nil)
	l, err := NewLoop(ConversationLoop().WithTools(search.Name(), clock.Name()), llm, tools.NewRegistry(search, clock))
	require.NoError(t, err)

	mem := &recordingMemory{}
	st, err := l.Run(context.Background(), Request{Input: "weather?", Memory: mem})
	require.NoError(t, err)

	assert.Equal(t, "It is sunny.", st.Answer())
	assert.Equal(t, "Synthesized answer from repeated tool calls", st.Outcome.Log)
	assert.Equal(t, 4, st.StepCounter)
	assert.Equal(t, 4, search.callCount())
	assert.Equal(t, 1, llm.syntheses)

	require.Len(t, st.Reflections, 3)
	for i, r := range st.Reflections {
		assert.Equal(t, ReflectionLoopDetection, r.Kind)
		assert.Equal(t, i+2, r.Step)
	}
	assert.Equal(t, []string{
		"reflection:Reflection at step 2",
		"reflection:Reflection at step 3",
		"reflection:Reflection at step 4",
	}, mem.values)
	assert.Equal(t, []string{tools.NameWebSearch, tools.NameWebSearch}, mem.meta[0]["tool_sequence"])

	synth := llm.prompts[len(llm.prompts)-1]
	assert.Contains(t, synth, `I need to answer this user query directly: "weather?"`)
	assert.Contains(t, synth, `"tool": "tavily_search_results_json"`)
}

func TestRunBudgetExtraction(t *testing.T) {
	llm := &scriptedLLM{reasoning: []string{action(tools.NameExtractLocal, "/tmp/project .go")}}
	local := newFakeTool(tools.NameExtractLocal, nil)
	git := newFakeTool(tools.NameExtractGit, nil)
	l, err := NewLoop(ExtractionLoop(), llm, tools.NewRegistry(local, git))
	require.NoError(t, err)

	st, err := l.Run(context.Background(), Request{Input: "extract /tmp/project"})
	require.NoError(t, err)
	assert.Equal(t, "Extraction process reached maximum steps. Please refine your query.", st.Answer())
	assert.Equal(t, 5, local.callCount())
	assert.Equal(t, 5, st.StepCounter)
	assert.Len(t, st.History, 5)
	assert.Equal(t, 5, llm.reasonings)
	assert.Zero(t, llm.critiques)
	assert.Equal(t, map[string]any{
		"directory":      "/tmp/project",
		"extensions":     []string{".go"},
		"clipboard_only": false,
	}, local.calls[0])
}

func TestRunBudgetConversationWithEfficiencyReflection(t *testing.T) {
	// alternate tools so loop detection never fires
	llm := &scriptedLLM{critique: "try answering directly"}
	for i := 0; i < 12; i++ {
		if i%2 == 0 {
			llm.reasoning = append(llm.reasoning, action(tools.NameWebSearch, "a"))
		} else {
			llm.reasoning = append(llm.reasoning, action(tools.NameSystemTime, ""))
		}
	}
	search := newFakeTool(tools.NameWebSearch, nil)
	clock := newFakeTool(tools.NameSystemTime, nil)
	cfg := ConversationLoop().WithTools(search.Name(), clock.Name())
	l, err := NewLoop(cfg, llm, tools.NewRegistry(search, clock))
	require.NoError(t, err)

	st, err := l.Run(context.Background(), Request{Input: "q"})
	require.NoError(t, err)
	assert.Equal(t, cfg.BudgetMessage, st.Answer())
	assert.Equal(t, 10, st.StepCounter)
	assert.Len(t, st.History, 10)
	assert.Equal(t, 10, llm.reasonings)

	// efficiency critiques after reasoning at steps 6 through 9
	require.Len(t, st.Reflections, 4)
	for _, r := range st.Reflections {
		assert.Equal(t, ReflectionEfficiency, r.Kind)
	}
	assert.Contains(t, st.WorkingInput, "Reflection: try answering directly")
	assert.Contains(t, st.WorkingInput, "1. Answer directly from existing information")
	assert.Contains(t, st.WorkingInput, "Original query: q")
}

func TestRunUnknownToolContinues(t *testing.T) {
	llm := &scriptedLLM{reasoning: []string{
		action("calculator", "2+2"),
		"Final Answer: 4",
	}}
	a := newFakeTool(tools.NameSystemTime, nil)
	b := newFakeTool(tools.NameWebSearch, nil)
	l, err := NewLoop(ConversationLoop().WithTools(b.Name(), a.Name()), llm, tools.NewRegistry(a, b))
	require.NoError(t, err)

	st, err := l.Run(context.Background(), Request{Input: "2+2"})
	require.NoError(t, err)
	assert.Equal(t, "4", st.Answer())
	require.Len(t, st.History, 1)
	assert.Equal(t,
		"Tool 'calculator' not found in conversation tools. Available tools: [get_system_time, tavily_search_results_json]",
		st.History[0].Observation)
	assert.Equal(t, 1, st.StepCounter)
}

func TestRunToolErrors(t *testing.T) {
	t.Run("error result becomes observation", func(t *testing.T) {
		llm := &scriptedLLM{reasoning: []string{action(tools.NameWebSearch, "x"), "Final Answer: no luck"}}
		tool := newFakeTool(tools.NameWebSearch, func(map[string]any) (tools.ToolResult, error) {
			return tools.NewErrorResult("search quota exceeded"), nil
		})
		l, err := NewLoop(ConversationLoop().WithTools(tool.Name()), llm, tools.NewRegistry(tool))
		require.NoError(t, err)

		st, err := l.Run(context.Background(), Request{Input: "x"})
		require.NoError(t, err)
		assert.Equal(t, "search quota exceeded", st.History[0].Observation)
	})

	t.Run("go error ends the run", func(t *testing.T) {
		llm := &scriptedLLM{reasoning: []string{action(tools.NameWebSearch, "x")}}
		tool := newFakeTool(tools.NameWebSearch, func(map[string]any) (tools.ToolResult, error) {
			return tools.ToolResult{}, errBoom
		})
		l, err := NewLoop(ConversationLoop().WithTools(tool.Name()), llm, tools.NewRegistry(tool))
		require.NoError(t, err)

		st, err := l.Run(context.Background(), Request{Input: "x"})
		require.Error(t, err)
		assert.ErrorIs(t, err, errBoom)
		assert.Contains(t, err.Error(), "execute tool tavily_search_results_json")
		assert.Empty(t, st.History)
		assert.False(t, st.Outcome.IsFinal())
	})
}

func TestRunLLMFailurePropagates(t *testing.T) {
	llm := &scriptedLLM{reasoning: []string{"x"}, err: errBoom}
	tool := newFakeTool(tools.NameSystemTime, nil)
	l, err := NewLoop(ConversationLoop().WithTools(tool.Name()), llm, tools.NewRegistry(tool))
	require.NoError(t, err)

	_, err = l.Run(context.Background(), Request{Input: "x"})
	assert.True(t, errors.Is(err, errBoom))
}

func TestRunCanceledContext(t *testing.T) {
	llm := &scriptedLLM{reasoning: []string{"Final Answer: x"}}
	tool := newFakeTool(tools.NameSystemTime, nil)
	l, err := NewLoop(ConversationLoop().WithTools(tool.Name()), llm, tools.NewRegistry(tool))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Run(ctx, Request{Input: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, llm.reasonings)
}

func TestRunParseRecovery(t *testing.T) {
	tool := newFakeTool(tools.NameSystemTime, nil)
	reg := tools.NewRegistry(tool, newFakeTool(tools.NameExtractLocal, nil), newFakeTool(tools.NameExtractGit, nil))

	conv, err := NewLoop(ConversationLoop().WithTools(tool.Name()), &scriptedLLM{reasoning: []string{"Just chatting, no format."}}, reg)
	require.NoError(t, err)
	st, err := conv.Run(context.Background(), Request{Input: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Just chatting, no format.", st.Answer())

	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"markup only", "Thought: I should extract the folder\nAction: extract_content_local", FallbackAnswer},
		{"text around markup", "Here is the plan. Thought: extract it", "Here is the plan."},
	}
	for _, tt := range tests {
		t.Run("extraction "+tt.name, func(t *testing.T) {
			ext, err := NewLoop(ExtractionLoop(), &scriptedLLM{reasoning: []string{tt.output}}, reg)
			require.NoError(t, err)
			st, err := ext.Run(context.Background(), Request{Input: "extract"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, st.Answer())
			assert.NotContains(t, st.Answer(), "Thought:")
			assert.Zero(t, st.StepCounter)
		})
	}
}

func TestNoActAfterFinal(t *testing.T) {
	llm := &scriptedLLM{reasoning: []string{"Final Answer: done"}}
	tool := newFakeTool(tools.NameSystemTime, nil)
	l, err := NewLoop(ConversationLoop().WithTools(tool.Name()), llm, tools.NewRegistry(tool))
	require.NoError(t, err)

	st := NewState("x", "")
	st.finish("done", "")
	require.Error(t, l.act(context.Background(), st))
	assert.Zero(t, st.StepCounter)
	assert.Zero(t, tool.callCount())
}

func TestRunSynthesizesAfterThreeIdenticalActions(t *testing.T) {
	llm := &scriptedLLM{
		reasoning: []string{
			action(tools.NameSystemTime, ""),
			action(tools.NameWebSearch, "q"),
		},
		critique:  "repeating",
		synthesis: "answer",
	}
	search := newFakeTool(tools.NameWebSearch, func(map[string]any) (tools.ToolResult, error) {
		return tools.NewSuccessResult(strings.Repeat("s", 1500)), nil
	})
	clock := newFakeTool(tools.NameSystemTime, nil)
	l, err := NewLoop(ConversationLoop().WithTools(search.Name(), clock.Name()), llm, tools.NewRegistry(search, clock))
	require.NoError(t, err)

	st, err := l.Run(context.Background(), Request{Input: "q"})
	require.NoError(t, err)
	assert.Equal(t, "answer", st.Answer())
	assert.Equal(t, 4, st.StepCounter)
	assert.Equal(t, 3, search.callCount())

	require.Len(t, st.Reflections, 2)
	assert.Equal(t, 3, st.Reflections[0].Step)
	assert.Equal(t, 4, st.Reflections[1].Step)

	synth := llm.prompts[len(llm.prompts)-1]
	assert.Contains(t, synth, `"result": "`+strings.Repeat("s", 1000)+`"`)
	assert.NotContains(t, synth, strings.Repeat("s", 1001))
}
