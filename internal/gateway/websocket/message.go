// Package websocket streams agent run events to subscribed clients.
package websocket

import "fixter/internal/agent"

// WSMessage is the envelope for every frame in both directions.
type WSMessage struct {
	Type    string        `json:"type"`
	Session string        `json:"session,omitempty"`
	Query   string        `json:"query,omitempty"`
	Answer  string        `json:"answer,omitempty"`
	Loop    string        `json:"loop,omitempty"`
	Event   *EventPayload `json:"event,omitempty"`
	Path    string        `json:"path,omitempty"`
	Code    string        `json:"code,omitempty"`
	Message string        `json:"message,omitempty"`
}

// EventPayload is an agent event as sent to clients.
type EventPayload struct {
	Kind       string `json:"kind"`
	RunID      string `json:"run_id"`
	Loop       string `json:"loop"`
	Step       int    `json:"step"`
	Tool       string `json:"tool,omitempty"`
	Reflection string `json:"reflection,omitempty"`
	Content    string `json:"content,omitempty"`
}

// BroadcastMessage wraps a message with its target session.
type BroadcastMessage struct {
	Session string
	Data    []byte
}

// Message types.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"
	TypePong        = "pong"
	TypeAsk         = "ask"
	TypeAnswer      = "answer"
	TypeEvent       = "event"
	TypeExtraction  = "extraction"
	TypeError       = "error"
)

// NewEventMessage converts a run event into a frame for its session.
func NewEventMessage(e agent.Event) WSMessage {
	return WSMessage{
		Type:    TypeEvent,
		Session: e.SessionID,
		Event: &EventPayload{
			Kind:       e.Type.String(),
			RunID:      e.RunID,
			Loop:       e.Loop,
			Step:       e.Step,
			Tool:       e.Tool,
			Reflection: e.Kind,
			Content:    e.Content,
		},
	}
}
