package agent

// EventType represents the type of event emitted during a run.
type EventType int

const (
	// EventReasoning carries the raw model output of a reasoning step.
	EventReasoning EventType = iota
	// EventAction indicates a tool is about to run.
	EventAction
	// EventObservation carries a tool's observation.
	EventObservation
	// EventReflection carries a critique.
	EventReflection
	// EventFinal carries the answer.
	EventFinal
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventReasoning:
		return "reasoning"
	case EventAction:
		return "action"
	case EventObservation:
		return "observation"
	case EventReflection:
		return "reflection"
	case EventFinal:
		return "final"
	default:
		return "unknown"
	}
}

// Event is emitted to the loop's observer as a run progresses.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	SessionID string    `json:"session_id,omitempty"`
	Loop      string    `json:"loop"`
	Step      int       `json:"step"`
	Tool      string    `json:"tool,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	Content   string    `json:"content,omitempty"`
}

// Observer receives run events. OnEvent is called synchronously from the
// run and must not block.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnEvent calls f.
func (f ObserverFunc) OnEvent(e Event) { f(e) }
