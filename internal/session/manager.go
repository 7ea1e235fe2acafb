package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"fixter/internal/storage"
	"fixter/pkg/logger"
)

var (
	// ErrNotFound is returned when a session exists neither in memory nor
	// in the store.
	ErrNotFound = errors.New("session not found")

	// ErrNotLoaded is returned by Save for a session that was never loaded.
	ErrNotLoaded = errors.New("session not loaded")
)

// Summary describes a session for listings.
type Summary struct {
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	Turns        int       `json:"conversation_turns"`
	InMemory     bool      `json:"in_memory"`
}

// Manager caches sessions in memory and persists them to sqlite.
type Manager struct {
	db    *storage.DB
	clock func() time.Time

	mu    sync.Mutex
	cache map[string]*Session
	locks map[string]*idLock
}

// idLock is a per-session mutex, dropped from the map when its last
// holder or waiter releases it.
type idLock struct {
	mu   sync.Mutex
	refs int
}

// NewManager creates a manager backed by db.
func NewManager(db *storage.DB) *Manager {
	return &Manager{
		db:    db,
		clock: time.Now,
		cache: make(map[string]*Session),
		locks: make(map[string]*idLock),
	}
}

// ResolveID returns id, or a fresh terminal id when id is empty.
func (m *Manager) ResolveID(id string) string {
	if id != "" {
		return id
	}
	return TerminalID(m.clock())
}

// Acquire locks the session id for one read-modify-write cycle. Runs on
// different ids proceed concurrently. Calling release more than once is a
// no-op.
func (m *Manager) Acquire(id string) (release func()) {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &idLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			m.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(m.locks, id)
			}
			m.mu.Unlock()
		})
	}
}

// Get returns the session with the given id, loading it from the store
// when it is not cached. A missing session is created when create is set,
// otherwise ErrNotFound is returned. An empty id yields a terminal id.
func (m *Manager) Get(id string, create bool) (*Session, error) {
	id = m.ResolveID(id)

	m.mu.Lock()
	if s, ok := m.cache[id]; ok {
		m.mu.Unlock()
		s.Touch()
		return s, nil
	}
	m.mu.Unlock()

	s, err := m.load(id)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		if !create {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		s = NewWithClock(id, m.clock)
		logger.Debug().Str("session_id", id).Msg("Created session")
	default:
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.cache[id]; ok {
		cached.Touch()
		return cached, nil
	}
	s.Touch()
	m.cache[id] = s
	return s, nil
}

func (m *Manager) load(id string) (*Session, error) {
	rec, err := m.db.GetSessionRecord(id)
	if err != nil {
		return nil, err
	}
	s, err := Decode(rec.Data)
	if err != nil {
		logger.Warn().Err(err).Str("session_id", id).Msg("Discarding unreadable session")
		return nil, storage.ErrNotFound
	}
	s.clock = m.clock
	if s.id == "" {
		s.id = id
	}
	return s, nil
}

// Save writes a loaded session to the store.
func (m *Manager) Save(id string) error {
	m.mu.Lock()
	s, ok := m.cache[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, id)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}
	err = m.db.SaveSessionRecord(&storage.SessionRecord{
		ID:           id,
		Format:       storage.SessionFormat,
		Data:         data,
		Turns:        s.Len(),
		CreatedAt:    s.CreatedAt(),
		LastAccessed: s.LastAccessed(),
	})
	if err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

// SaveAll writes every cached session, returning the first error.
func (m *Manager) SaveAll() error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.cache))
	for id := range m.cache {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if err := m.Save(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// List returns cached and stored sessions, most recently accessed first.
func (m *Manager) List() ([]Summary, error) {
	recs, err := m.db.ListSessionRecords()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	m.mu.Lock()
	out := make([]Summary, 0, len(m.cache)+len(recs))
	for id, s := range m.cache {
		out = append(out, Summary{
			SessionID:    id,
			CreatedAt:    s.CreatedAt(),
			LastAccessed: s.LastAccessed(),
			Turns:        s.Len(),
			InMemory:     true,
		})
	}
	for _, rec := range recs {
		if _, ok := m.cache[rec.ID]; ok {
			continue
		}
		out = append(out, Summary{
			SessionID:    rec.ID,
			CreatedAt:    rec.CreatedAt,
			LastAccessed: rec.LastAccessed,
			Turns:        rec.Turns,
		})
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].LastAccessed.After(out[j].LastAccessed) })
	return out, nil
}

// Delete removes a session from memory and the store.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	_, cached := m.cache[id]
	delete(m.cache, id)
	m.mu.Unlock()

	err := m.db.DeleteSessionRecord(id)
	if errors.Is(err, storage.ErrNotFound) {
		if cached {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}

// Evict drops a session from memory without touching the store.
func (m *Manager) Evict(id string) {
	m.mu.Lock()
	delete(m.cache, id)
	m.mu.Unlock()
}

// ClearOld removes sessions not accessed within maxAge and returns their ids.
func (m *Manager) ClearOld(maxAge time.Duration) ([]string, error) {
	cutoff := m.clock().Add(-maxAge)

	removed, err := m.db.DeleteSessionRecordsBefore(cutoff)
	if err != nil {
		return nil, fmt.Errorf("prune sessions: %w", err)
	}
	seen := make(map[string]bool, len(removed))
	for _, id := range removed {
		seen[id] = true
	}

	m.mu.Lock()
	for id, s := range m.cache {
		if s.LastAccessed().Before(cutoff) {
			delete(m.cache, id)
			if !seen[id] {
				removed = append(removed, id)
				seen[id] = true
			}
		}
	}
	m.mu.Unlock()

	sort.Strings(removed)
	if len(removed) > 0 {
		logger.Info().Int("count", len(removed)).Dur("max_age", maxAge).Msg("Pruned old sessions")
	}
	return removed, nil
}
