package model

import (
	"context"
	"strings"
	"sync"
)

// ToolCall represents a capability invocation request surfaced by a model
// provider. Unified across vendors so downstream logic does not need
// per-provider branching.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments
}

// ToolResult carries the textual outcome of a previously requested ToolCall
// back to the model on the next turn.
type ToolResult struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// ToolDefinition declaratively exposes a callable capability to the model.
// Parameters is a JSON Schema object (minimal subset).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Turn is one normalized conversation entry sent to a provider.
// Role is "user", "assistant" or "tool"; ToolCalls is set on assistant turns
// that requested capabilities, ToolResults on the tool turns answering them.
type Turn struct {
	Role        string       `json:"role"`
	Text        string       `json:"text,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// Request captures the normalized model input produced by agents.
type Request struct {
	Instructions string           `json:"instructions"`
	Turns        []Turn           `json:"turns"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// Response is the completed reply of a single generation call. Parts holds
// the ordered textual content blocks; ToolCalls the capability invocations
// the model requested before it can finish its answer.
type Response struct {
	Parts      []string   `json:"parts"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	StopReason string     `json:"stop_reason,omitempty"`
}

// Text concatenates all textual parts in their original order.
func (r *Response) Text() string { return strings.Join(r.Parts, "\n") }

// HasToolCalls reports whether the model requested capability invocations.
func (r *Response) HasToolCalls() bool { return len(r.ToolCalls) > 0 }

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "anthropic", "openai", "mock", ...
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by agents to drive generation.
// Generate must respect context cancellation; transport and timeout failures
// are returned as errors, never as fabricated replies.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a deterministic in-memory Model useful for tests & examples.
//
// Responses are registered as rules matched, in insertion order, against the
// request instructions and the last turn's text. Rules registered with
// AddToolCallResponse are consumed on first use so a subsequent call by the
// same agent falls through to its textual rule, mirroring a real tool loop.
type MockModel struct {
	mu       sync.Mutex
	info     Info
	rules    []mockRule
	calls    int
	failures int
	failErr  error
}

type mockRule struct {
	match string
	resp  Response
	once  bool
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info: Info{Name: name, Provider: "mock", SupportsTools: true},
	}
}

// AddResponse registers a persistent canned text reply for requests whose
// instructions or last turn contain match.
func (m *MockModel) AddResponse(match, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{match: match, resp: Response{Parts: []string{text}, StopReason: "stop"}})
}

// AddToolCallResponse registers a one-shot reply requesting the given tool
// calls for requests whose instructions or last turn contain match.
func (m *MockModel) AddToolCallResponse(match string, calls ...ToolCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{match: match, resp: Response{ToolCalls: calls, StopReason: "tool_use"}, once: true})
}

// FailTimes makes the next n Generate calls return err, simulating an
// unavailable backend.
func (m *MockModel) FailTimes(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
	m.failErr = err
}

// CallCount returns the number of Generate invocations so far.
func (m *MockModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.failures > 0 {
		m.failures--
		return nil, m.failErr
	}

	var lastText string
	if len(req.Turns) > 0 {
		lastText = req.Turns[len(req.Turns)-1].Text
	}

	for i, rule := range m.rules {
		if !strings.Contains(req.Instructions, rule.match) && !strings.Contains(lastText, rule.match) {
			continue
		}
		resp := rule.resp
		if rule.once {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
		}
		return &resp, nil
	}

	return &Response{Parts: []string{"Mock response to: " + lastText}, StopReason: "stop"}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
