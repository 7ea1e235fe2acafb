// Package agent implements the bounded reason, reflect, act cycle that
// answers a query with the help of tools.
package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"fixter/internal/tools"
	"fixter/pkg/logger"
)

// Phase is a state of the execution loop.
type Phase int

const (
	PhaseReasoning Phase = iota
	PhaseReflecting
	PhaseActing
	PhaseFinished
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseReasoning:
		return "reasoning"
	case PhaseReflecting:
		return "reflecting"
	case PhaseActing:
		return "acting"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Request is the input of one run.
type Request struct {
	// Input is the initial working input.
	Input string

	// SessionID is attached to the tool context. Optional.
	SessionID string

	// Memory receives reflections. Optional.
	Memory Memory
}

// Loop runs one loop configuration against a language model and a tool set.
// A Loop holds no per-run state and may serve concurrent runs.
type Loop struct {
	cfg      LoopConfig
	llm      LLM
	tools    *tools.Registry
	observer Observer
}

// Option configures a Loop.
type Option func(*Loop)

// WithObserver sets the run event observer.
func WithObserver(o Observer) Option {
	return func(l *Loop) {
		l.observer = o
	}
}

// NewLoop creates a loop offering cfg.Tools from registry.
func NewLoop(cfg LoopConfig, llm LLM, registry *tools.Registry, opts ...Option) (*Loop, error) {
	if llm == nil {
		return nil, ErrNoProvider
	}
	if registry == nil || len(cfg.Tools) == 0 {
		return nil, ErrNoTools
	}
	if cfg.StepBudget <= 0 {
		return nil, fmt.Errorf("loop %s: step budget must be positive", cfg.Name)
	}
	subset, err := registry.Subset(cfg.Tools...)
	if err != nil {
		return nil, fmt.Errorf("loop %s: %w", cfg.Name, err)
	}

	l := &Loop{cfg: cfg, llm: llm, tools: subset}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Config returns the loop configuration.
func (l *Loop) Config() LoopConfig {
	return l.cfg
}

// Name returns the loop name.
func (l *Loop) Name() string {
	return l.cfg.Name
}

// Run drives the state machine until it finishes and returns the final
// state. The answer is st.Answer(). Errors from the model or from a tool
// end the run; the partial state is returned with them.
func (l *Loop) Run(ctx context.Context, req Request) (*State, error) {
	st := NewState(req.Input, req.SessionID)
	mem := req.Memory
	if mem == nil {
		mem = discardMemory{}
	}
	ctx = tools.WithRunID(tools.WithSessionID(ctx, req.SessionID), st.RunID)

	l.log(st).Info().Msg("Run started")

	phase := PhaseReasoning
	for phase != PhaseFinished {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		switch phase {
		case PhaseReasoning:
			if st.StepCounter >= l.cfg.StepBudget {
				l.log(st).Warn().Int("budget", l.cfg.StepBudget).Msg("Step budget exhausted")
				st.finish(l.cfg.BudgetMessage, "Max steps reached")
				phase = PhaseFinished
				continue
			}
			if err := l.reason(ctx, st); err != nil {
				return st, err
			}
			switch {
			case st.Outcome.IsFinal():
				phase = PhaseFinished
			case l.cfg.ReflectionEnabled:
				phase = PhaseReflecting
			default:
				phase = PhaseActing
			}

		case PhaseReflecting:
			if err := l.reflect(ctx, st, mem); err != nil {
				return st, err
			}
			if st.Outcome.IsFinal() {
				phase = PhaseFinished
			} else {
				phase = PhaseActing
			}

		case PhaseActing:
			if err := l.act(ctx, st); err != nil {
				return st, err
			}
			phase = PhaseReasoning
		}
	}

	l.emit(st, Event{Type: EventFinal, Content: st.Outcome.Text})
	l.log(st).Info().Int("reflections", len(st.Reflections)).Msg("Run finished")
	return st, nil
}

func (l *Loop) emit(st *State, e Event) {
	if l.observer == nil {
		return
	}
	e.RunID = st.RunID
	e.SessionID = st.SessionID
	e.Loop = l.cfg.Name
	e.Step = st.StepCounter
	l.observer.OnEvent(e)
}

func (l *Loop) log(st *State) *zerolog.Logger {
	lg := logger.Component("agent").With().
		Str("run_id", st.RunID).
		Str("session_id", st.SessionID).
		Str("loop", l.cfg.Name).
		Int("step", st.StepCounter).
		Logger()
	return &lg
}
