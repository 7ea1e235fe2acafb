package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fixter/internal/tools"
)

// act executes the pending action and records exactly one step.
func (l *Loop) act(ctx context.Context, st *State) error {
	if st.Outcome.Kind != OutcomePending || st.Outcome.Action == nil {
		return fmt.Errorf("act at step %d: no pending action", st.StepCounter)
	}
	a := *st.Outcome.Action
	l.emit(st, Event{Type: EventAction, Tool: a.Tool, Content: fmt.Sprint(a.RawInput)})

	tool, err := l.tools.Lookup(a.Tool)
	if err != nil {
		if !errors.Is(err, tools.ErrToolNotFound) {
			return err
		}
		obs := fmt.Sprintf("Tool '%s' not found in %s tools. Available tools: %s",
			a.Tool, l.cfg.Name, "["+strings.Join(l.tools.Names(), ", ")+"]")
		l.log(st).Warn().Str("tool", a.Tool).Msg("Model requested unknown tool")
		l.observe(st, a, obs)
		return nil
	}

	args := Normalize(a.Tool, a.RawInput)
	l.log(st).Debug().Str("tool", a.Tool).Interface("args", args).Msg("Executing tool")

	result, err := tool.Execute(ctx, args)
	if err != nil {
		return fmt.Errorf("execute tool %s: %w", a.Tool, err)
	}
	if result.IsError {
		l.log(st).Info().Str("tool", a.Tool).Str("error", result.Content).Msg("Tool returned an error result")
	}
	l.observe(st, a, result.Content)
	return nil
}

func (l *Loop) observe(st *State, a Action, obs string) {
	st.record(a, obs)
	l.emit(st, Event{Type: EventObservation, Tool: a.Tool, Content: obs})
}
