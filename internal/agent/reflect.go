package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	reflectionWindow  = 3
	synthesisMinSteps = 3
	efficiencySteps   = 5
	synthesisCut      = 1000
	observationCut    = 1000
)

// Memory receives the reflections of a run. *session.Session implements it.
type Memory interface {
	AddEntity(typ, value string, metadata map[string]any)
}

type discardMemory struct{}

func (discardMemory) AddEntity(string, string, map[string]any) {}

// reflect inspects the run after a reasoning step that asked for an
// action. It may record critiques, rewrite the working input, or replace
// the pending action with a synthesized answer.
func (l *Loop) reflect(ctx context.Context, st *State, mem Memory) error {
	if st.Outcome.IsFinal() {
		return nil
	}
	if st.StepCounter < 2 || len(st.History) < 2 {
		return nil
	}

	step := st.StepCounter
	seq := st.toolSequence(reflectionWindow)

	if len(seq) >= 2 && seq[len(seq)-1] == seq[len(seq)-2] {
		critique, err := l.llm.Invoke(ctx, loopDetectionPrompt(seq, st.lastSteps(2)), nil)
		if err != nil {
			return fmt.Errorf("loop detection at step %d: %w", step, err)
		}
		mem.AddEntity("reflection", fmt.Sprintf("Reflection at step %d", step), map[string]any{
			"content":       critique,
			"tool_sequence": seq,
		})
		l.addReflection(st, ReflectionRecord{Step: step, Kind: ReflectionLoopDetection, Content: critique})

		if step > synthesisMinSteps && allSame(seq) {
			answer, err := l.synthesize(ctx, st)
			if err != nil {
				return err
			}
			st.finish(answer, "Synthesized answer from repeated tool calls")
			l.log(st).Info().Str("tool", seq[0]).Msg("Repeated tool calls, synthesized answer")
		}
	}

	if step > efficiencySteps && !st.Outcome.IsFinal() {
		critique, err := l.llm.Invoke(ctx, efficiencyPrompt(step, seq, st.lastSteps(reflectionWindow)), nil)
		if err != nil {
			return fmt.Errorf("efficiency check at step %d: %w", step, err)
		}
		mem.AddEntity("reflection", fmt.Sprintf("Efficiency reflection at step %d", step), map[string]any{
			"content": critique,
		})
		l.addReflection(st, ReflectionRecord{Step: step, Kind: ReflectionEfficiency, Content: critique})
		st.WorkingInput = rewriteInput(critique, st.WorkingInput)
	}
	return nil
}

func (l *Loop) addReflection(st *State, r ReflectionRecord) {
	st.addReflection(r)
	l.emit(st, Event{Type: EventReflection, Kind: string(r.Kind), Content: r.Content})
	l.log(st).Debug().Str("kind", string(r.Kind)).Msg("Reflection recorded")
}

// synthesize asks for a direct answer from the observations gathered so far.
func (l *Loop) synthesize(ctx context.Context, st *State) (string, error) {
	type toolResult struct {
		Tool   string `json:"tool"`
		Result string `json:"result"`
	}
	results := make([]toolResult, len(st.History))
	for i, s := range st.History {
		results[i] = toolResult{Tool: s.Action.Tool, Result: truncate(s.Observation, synthesisCut)}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return "", err
	}

	answer, err := l.llm.Invoke(ctx, synthesisPrompt(st.WorkingInput, strings.TrimRight(buf.String(), "\n")), nil)
	if err != nil {
		return "", fmt.Errorf("synthesis: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func loopDetectionPrompt(seq []string, recent []Step) string {
	return fmt.Sprintf(`Analyze the following sequence of steps in the agent's execution:

Tool Sequence: %s
Recent Actions:
%s
The agent appears to be calling the same tool repeatedly. Evaluate if this is productive
or if the agent is stuck in a loop. Suggest a different approach if needed.`, formatList(seq), formatSteps(recent))
}

func efficiencyPrompt(step int, seq []string, recent []Step) string {
	return fmt.Sprintf(`Analyze the following execution path:

Total Steps: %d
Recent Tools Used: %s
Recent Actions:
%s
The agent has taken %d steps without reaching a conclusion.
Analyze if the current approach is making progress or if a more direct strategy is needed.`, step, formatList(seq), formatSteps(recent), step)
}

func synthesisPrompt(query, results string) string {
	return fmt.Sprintf(`I need to answer this user query directly: "%s"

I've gathered information using these tools:
%s

Based on this information, provide a direct answer to the query.
Be factual and concise. If there isn't enough information, provide
your best answer based on what's available and general knowledge.
Don't explain the tools or methods used, just provide the answer.`, query, results)
}

func rewriteInput(critique, previous string) string {
	return fmt.Sprintf(`Your previous approach has taken multiple steps without reaching a conclusion.

Reflection: %s

Please reconsider your strategy. Consider whether you can:
1. Answer directly from existing information
2. Use a different tool that might be more effective
3. Break down the problem differently

Original query: %s`, critique, previous)
}

func formatSteps(steps []Step) string {
	var b strings.Builder
	for _, s := range steps {
		fmt.Fprintf(&b, "- Action: %s\n  Action Input: %v\n  Observation: %s\n",
			s.Action.Tool, s.Action.RawInput, truncate(s.Observation, observationCut))
	}
	return b.String()
}

func formatList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

func allSame(seq []string) bool {
	if len(seq) == 0 {
		return false
	}
	for _, s := range seq[1:] {
		if s != seq[0] {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
