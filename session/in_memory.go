package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hupe1980/deepresearch/core"
)

// InMemoryStore is a volatile SessionStore implementation storing sessions in
// a process-local map. It is safe for concurrent access. Each returned
// session is cloned to prevent external mutation of internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.Session)}
}

// Create allocates a new session with the given id. Creating a session whose
// id already exists is a defect (ids must be unique across concurrent runs).
func (s *InMemoryStore) Create(id string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[id]; exists {
		return nil, fmt.Errorf("session %q already exists", id)
	}
	sess := core.NewSession(id)
	s.sessions[id] = sess
	return sess.Clone(), nil
}

// Get returns a clone of an existing session.
func (s *InMemoryStore) Get(id string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q not found", id)
	}
	return sess.Clone(), nil
}

// Append adds messages to an existing session's log.
func (s *InMemoryStore) Append(sessionID string, msgs ...core.Message) error {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("session %q not found", sessionID)
	}
	sess.Append(msgs...)
	return nil
}

// SetStatus transitions an existing session's lifecycle status.
func (s *InMemoryStore) SetStatus(sessionID string, status core.Status) error {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("session %q not found", sessionID)
	}
	sess.SetStatus(status)
	return nil
}

// Checkpoint serializes the session's current state (id, status, ordered
// message log) to JSON for inspection or out-of-process resumption.
func (s *InMemoryStore) Checkpoint(sessionID string) ([]byte, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(sess, "", "  ")
}

// Restore loads a previously checkpointed session, overwriting any session
// stored under the same id.
func (s *InMemoryStore) Restore(data []byte) (*core.Session, error) {
	var sess core.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("invalid checkpoint: %w", err)
	}
	if sess.ID == "" {
		return nil, fmt.Errorf("invalid checkpoint: missing session id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = &sess
	return sess.Clone(), nil
}
