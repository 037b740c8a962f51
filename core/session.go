package core

import (
	"sync"
	"time"
)

// Status describes the lifecycle of a session.
type Status string

const (
	// StatusRunning marks a session whose workflow has not yet finished.
	StatusRunning Status = "running"
	// StatusCompleted marks a session that produced a final report.
	StatusCompleted Status = "completed"
	// StatusFailed marks a session aborted by an unrecovered failure.
	StatusFailed Status = "failed"
)

// Session is the complete record of one research run: a unique identifier,
// the ordered append-only message log and a lifecycle status. It is safe for
// concurrent access.
//
// Contract:
//   - Messages are only ever appended, never mutated or removed
//   - Append and SetStatus update the Updated timestamp
//   - GetMessages returns a defensive copy to avoid external mutation
//   - Clone performs a deep copy for safe divergence
type Session struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
	Status   Status    `json:"status"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
	mu       sync.RWMutex
}

// NewSession creates a running session with the given ID and an empty log.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, Messages: []Message{}, Status: StatusRunning, Created: now, Updated: now}
}

// Append adds messages to the log updating the Updated timestamp.
func (s *Session) Append(msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, msgs...)
	s.Updated = time.Now().UTC()
}

// GetMessages returns a defensive copy of the full message log.
func (s *Session) GetMessages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]Message, len(s.Messages))
	copy(msgs, s.Messages)
	return msgs
}

// Len returns the number of messages in the log.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Messages)
}

// SetStatus transitions the session lifecycle status.
func (s *Session) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = status
	s.Updated = time.Now().UTC()
}

// GetStatus returns the current lifecycle status.
func (s *Session) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// LastAgentText returns the text of the most recent agent reply, scanning the
// log from the end. The boolean reports whether any agent reply exists.
func (s *Session) LastAgentText() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAgent {
			return s.Messages[i].Text, true
		}
	}
	return "", false
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{ID: s.ID, Messages: make([]Message, len(s.Messages)), Status: s.Status, Created: s.Created, Updated: s.Updated}
	copy(clone.Messages, s.Messages)
	return clone
}

// SessionStore persists sessions and their growing message logs. The session
// log doubles as the checkpoint state: a stored session can be inspected or
// resumed by its identifier.
type SessionStore interface {
	Create(id string) (*Session, error)
	Get(id string) (*Session, error)
	Append(sessionID string, msgs ...Message) error
	SetStatus(sessionID string, status Status) error
}
