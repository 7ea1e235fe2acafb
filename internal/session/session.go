// Package session holds per-terminal conversational memory: recent turns,
// mentioned entities and the active task.
package session

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MaxTurns bounds the conversation history; the oldest turns are evicted first.
const MaxTurns = 20

// Turn is one query/response pair.
type Turn struct {
	Timestamp time.Time `json:"timestamp"`
	Query     string    `json:"query"`
	Response  string    `json:"response,omitempty"`
}

// EntityInfo is something the user mentioned: a file, directory,
// repository, extension or a reflection the agent recorded.
type EntityInfo struct {
	Type          string         `json:"type"`
	Value         string         `json:"value"`
	LastMentioned time.Time      `json:"last_mentioned"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// ActiveTask describes work in progress across turns.
type ActiveTask struct {
	Description string         `json:"description"`
	StartedAt   time.Time      `json:"started_at"`
	Data        map[string]any `json:"data,omitempty"`
}

// Session is the memory of one terminal session. Methods are safe for
// concurrent use.
type Session struct {
	mu    sync.RWMutex
	clock func() time.Time

	id           string
	createdAt    time.Time
	lastAccessed time.Time
	history      []Turn
	entities     map[string]EntityInfo
	context      map[string]any
	activeTask   *ActiveTask
}

// New creates an empty session.
func New(id string) *Session {
	return NewWithClock(id, time.Now)
}

// NewWithClock creates an empty session whose timestamps come from clock.
func NewWithClock(id string, clock func() time.Time) *Session {
	now := clock()
	return &Session{
		clock:        clock,
		id:           id,
		createdAt:    now,
		lastAccessed: now,
		entities:     make(map[string]EntityInfo),
		context:      make(map[string]any),
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.createdAt
}

// LastAccessed returns the last read or write time.
func (s *Session) LastAccessed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccessed
}

// Touch updates the last access time.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastAccessed = s.clock()
	s.mu.Unlock()
}

// AddTurn appends a turn, evicting the oldest beyond MaxTurns.
func (s *Session) AddTurn(query, response string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	s.history = append(s.history, Turn{Timestamp: now, Query: query, Response: response})
	if n := len(s.history); n > MaxTurns {
		s.history = append([]Turn(nil), s.history[n-MaxTurns:]...)
	}
	s.lastAccessed = now
}

// History returns a copy of the conversation history, oldest first.
func (s *Session) History() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Turn(nil), s.history...)
}

// RecentTurns returns the last n turns; n <= 0 returns all of them.
func (s *Session) RecentTurns(n int) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n >= len(s.history) {
		return append([]Turn(nil), s.history...)
	}
	return append([]Turn(nil), s.history[len(s.history)-n:]...)
}

// Len returns the number of stored turns.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

func entityKey(typ, value string) string {
	return typ + ":" + value
}

// AddEntity inserts or overwrites the (type, value) entity.
func (s *Session) AddEntity(typ, value string, metadata map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if metadata == nil {
		metadata = map[string]any{}
	}
	now := s.clock()
	s.entities[entityKey(typ, value)] = EntityInfo{
		Type:          typ,
		Value:         value,
		LastMentioned: now,
		Metadata:      metadata,
	}
	s.lastAccessed = now
}

// RecentEntities returns entities newest first, optionally filtered by
// type. limit <= 0 returns all matches.
func (s *Session) RecentEntities(typ string, limit int) []EntityInfo {
	s.mu.RLock()
	out := make([]EntityInfo, 0, len(s.entities))
	for _, e := range s.entities {
		if typ == "" || e.Type == typ {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastMentioned.Equal(out[j].LastMentioned) {
			return out[i].LastMentioned.After(out[j].LastMentioned)
		}
		return entityKey(out[i].Type, out[i].Value) < entityKey(out[j].Type, out[j].Value)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// EntityCount returns the number of distinct entities.
func (s *Session) EntityCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// SetActiveTask records the task in progress.
func (s *Session) SetActiveTask(description string, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	s.activeTask = &ActiveTask{Description: description, StartedAt: now, Data: data}
	s.lastAccessed = now
}

// ClearActiveTask forgets the task in progress.
func (s *Session) ClearActiveTask() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeTask = nil
	s.lastAccessed = s.clock()
}

// ActiveTask returns a copy of the active task, or nil.
func (s *Session) ActiveTask() *ActiveTask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeTask == nil {
		return nil
	}
	t := *s.activeTask
	return &t
}

// SetContext stores a free-form value.
func (s *Session) SetContext(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context[key] = value
}

// ContextValue returns a free-form value.
func (s *Session) ContextValue(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.context[key]
	return v, ok
}

type sessionJSON struct {
	SessionID           string                `json:"session_id"`
	CreatedAt           time.Time             `json:"created_at"`
	LastAccessed        time.Time             `json:"last_accessed"`
	ConversationHistory []Turn                `json:"conversation_history"`
	Entities            map[string]EntityInfo `json:"entities"`
	Context             map[string]any        `json:"context"`
	ActiveTask          *ActiveTask           `json:"active_task,omitempty"`
}

// MarshalJSON encodes a consistent snapshot of the session.
func (s *Session) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(sessionJSON{
		SessionID:           s.id,
		CreatedAt:           s.createdAt,
		LastAccessed:        s.lastAccessed,
		ConversationHistory: s.history,
		Entities:            s.entities,
		Context:             s.context,
		ActiveTask:          s.activeTask,
	})
}

// Decode restores a session from its JSON form.
func Decode(data []byte) (*Session, error) {
	var raw sessionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	s := New(raw.SessionID)
	s.createdAt = raw.CreatedAt
	s.lastAccessed = raw.LastAccessed
	s.history = raw.ConversationHistory
	if len(s.history) > MaxTurns {
		s.history = s.history[len(s.history)-MaxTurns:]
	}
	if raw.Entities != nil {
		s.entities = raw.Entities
	}
	if raw.Context != nil {
		s.context = raw.Context
	}
	s.activeTask = raw.ActiveTask
	return s, nil
}
