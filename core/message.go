package core

import (
	"time"

	"github.com/google/uuid"
)

// Role classifies who produced a message in the session log.
type Role string

const (
	// RoleUser marks the query message that seeds a session.
	RoleUser Role = "user"
	// RoleAgent marks a textual reply produced by an agent.
	RoleAgent Role = "agent"
	// RoleCapability marks the recorded outcome of a capability call made
	// by an agent during its turn.
	RoleCapability Role = "capability"
)

// CapabilityCall records a single capability invocation performed by an agent
// during its turn. A failed call carries the descriptive error text in Result
// with Failed set; callers treat it as ordinary data, not as an error.
type CapabilityCall struct {
	ID         string    `json:"id"`
	Capability string    `json:"capability"`
	Input      string    `json:"input"`
	Result     string    `json:"result"`
	Failed     bool      `json:"failed,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Message is the unit of the shared session log. Messages are immutable once
// appended; ordering in the log is significant and is the sole state shared
// between agents.
//
// Agent is empty for user messages. Calls is populated only on
// capability-result messages, preserving the order the calls were issued.
type Message struct {
	ID        string           `json:"id"`
	Role      Role             `json:"role"`
	Agent     string           `json:"agent,omitempty"`
	Text      string           `json:"text"`
	Calls     []CapabilityCall `json:"calls,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// NewUserMessage creates the user-authored message that seeds a session.
func NewUserMessage(text string) Message {
	return Message{
		ID:        NewID(),
		Role:      RoleUser,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

// NewAgentMessage creates a textual reply attributed to the named agent.
func NewAgentMessage(agent, text string) Message {
	return Message{
		ID:        NewID(),
		Role:      RoleAgent,
		Agent:     agent,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

// NewCapabilityMessage records the outcome of a capability call issued by the
// named agent. The call result doubles as the message text so the log reads
// chronologically without unpacking call records.
func NewCapabilityMessage(agent string, call CapabilityCall) Message {
	return Message{
		ID:        NewID(),
		Role:      RoleCapability,
		Agent:     agent,
		Text:      call.Result,
		Calls:     []CapabilityCall{call},
		Timestamp: time.Now().UTC(),
	}
}

// NewID generates a unique identifier for messages, sessions and calls.
func NewID() string { return uuid.NewString() }
