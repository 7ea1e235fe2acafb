// Package assistant coordinates loop selection, session memory and the
// agent loops for a single query.
package assistant

import (
	"context"
	"fmt"
	"time"

	"fixter/internal/agent"
	"fixter/internal/metrics"
	"fixter/internal/router"
	"fixter/internal/session"
	"fixter/pkg/logger"
)

// CurrentSessionKey is the kv key holding the CLI's current session id.
const CurrentSessionKey = "cli.current_session"

// Selector chooses the loop for a query.
type Selector interface {
	Select(ctx context.Context, query string) router.Decision
}

// Result is the outcome of one processed query.
type Result struct {
	Answer      string                   `json:"answer"`
	Loop        string                   `json:"loop"`
	SessionID   string                   `json:"session_id"`
	RunID       string                   `json:"run_id"`
	Steps       int                      `json:"steps"`
	Reflections []agent.ReflectionRecord `json:"reflections,omitempty"`
	Decision    router.Decision          `json:"decision"`
}

// Assistant answers queries.
type Assistant struct {
	selector Selector
	sessions *session.Manager
	loops    map[string]*agent.Loop
}

// New creates an assistant. The conversation loop is required; it also
// serves any selection without a matching loop.
func New(selector Selector, sessions *session.Manager, loops ...*agent.Loop) (*Assistant, error) {
	a := &Assistant{
		selector: selector,
		sessions: sessions,
		loops:    make(map[string]*agent.Loop, len(loops)),
	}
	for _, l := range loops {
		a.loops[l.Name()] = l
	}
	if _, ok := a.loops[agent.LoopConversation]; !ok {
		return nil, fmt.Errorf("assistant: %s loop is required", agent.LoopConversation)
	}
	return a, nil
}

// Sessions returns the session manager.
func (a *Assistant) Sessions() *session.Manager {
	return a.sessions
}

// Process answers query within the session sessionID. An empty id uses a
// fresh terminal session. The turn is appended and the session saved only
// when the run succeeds.
func (a *Assistant) Process(ctx context.Context, query, sessionID string) (Result, error) {
	start := time.Now()

	decision := a.selector.Select(ctx, query)
	metrics.RecordSelection(decision.Loop, decision.Method)

	loop, ok := a.loops[decision.Loop]
	if !ok {
		loop = a.loops[agent.LoopConversation]
	}

	id := a.sessions.ResolveID(sessionID)
	release := a.sessions.Acquire(id)
	defer release()

	res := Result{Loop: loop.Name(), SessionID: id, Decision: decision}
	log := logger.Component("assistant").With().
		Str("session_id", id).
		Str("loop", loop.Name()).
		Str("method", decision.Method).
		Logger()

	s, err := a.sessions.Get(id, true)
	if err != nil {
		return res, fmt.Errorf("load session %s: %w", id, err)
	}
	s.ExtractEntities(query)

	input := query
	if loop.Name() == agent.LoopConversation {
		input = session.Inject(query, s)
	}

	st, err := loop.Run(ctx, agent.Request{Input: input, SessionID: id, Memory: s})
	if st != nil {
		res.RunID = st.RunID
		res.Steps = st.StepCounter
		res.Reflections = st.Reflections
		for _, r := range st.Reflections {
			metrics.RecordReflection(string(r.Kind))
		}
	}
	metrics.RecordRun(loop.Name(), err, res.Steps, time.Since(start))
	if err != nil {
		log.Error().Err(err).Msg("Run failed")
		return res, err
	}

	res.Answer = st.Answer()
	s.AddTurn(query, res.Answer)
	if err := a.sessions.Save(id); err != nil {
		log.Warn().Err(err).Msg("Failed to save session")
	}

	log.Info().
		Int("steps", res.Steps).
		Dur("duration", time.Since(start)).
		Msg("Query processed")
	return res, nil
}
