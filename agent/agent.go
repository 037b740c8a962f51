package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/deepresearch/capability"
	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/logging"
	"github.com/hupe1980/deepresearch/model"
)

// ErrUnavailable marks a transport or timeout failure of the underlying
// model call. It is surfaced to the coordinator instead of being swallowed
// into a fabricated reply.
var ErrUnavailable = errors.New("agent unavailable")

// Options configures an Agent.
type Options struct {
	// CallTimeout bounds each individual model call.
	CallTimeout time.Duration
	// MaxCapabilityRounds bounds how many tool-call rounds a single turn may
	// take before the model is forced to answer.
	MaxCapabilityRounds int
	// Logger receives per-turn diagnostics.
	Logger logging.Logger
}

// Agent is a single-purpose reasoning unit: a fixed instruction prompt, a
// language model and an optional capability subset. Agents hold no mutable
// state between invocations beyond what is visible in the shared message
// log; one Agent value is safe for concurrent use across sessions.
type Agent struct {
	name                string
	instruction         string
	llm                 model.Model
	caps                *capability.Registry
	callTimeout         time.Duration
	maxCapabilityRounds int
	logger              logging.Logger
}

// New constructs an Agent from its descriptor. Granting capabilities to a
// descriptor not marked as the search role is a configuration error and is
// rejected here, at construction time, rather than silently ignored.
func New(desc Descriptor, llm model.Model, registry *capability.Registry, optFns ...func(o *Options)) (*Agent, error) {
	if desc.Name == "" {
		return nil, errors.New("agent descriptor requires a name")
	}
	if desc.Instruction == "" {
		return nil, fmt.Errorf("agent %q requires an instruction", desc.Name)
	}
	if !desc.Search && len(desc.Capabilities) > 0 {
		return nil, fmt.Errorf("agent %q is not the search role and must not be granted capabilities", desc.Name)
	}

	opts := Options{
		CallTimeout:         5 * time.Minute,
		MaxCapabilityRounds: 4,
		Logger:              logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	caps := capability.NewRegistry(nil)
	if desc.Search && registry != nil {
		names := desc.Capabilities
		if len(names) == 0 {
			names = registry.Names()
		}
		caps = registry.Subset(names...)
	}

	return &Agent{
		name:                desc.Name,
		instruction:         desc.Instruction,
		llm:                 llm,
		caps:                caps,
		callTimeout:         opts.CallTimeout,
		maxCapabilityRounds: opts.MaxCapabilityRounds,
		logger:              opts.Logger,
	}, nil
}

// Name returns the agent's unique name within a run.
func (a *Agent) Name() string { return a.name }

// Capabilities returns the names of the capabilities granted to this agent.
func (a *Agent) Capabilities() []string { return a.caps.Names() }

// Run produces this agent's contribution given the shared message log. It
// returns the capability-result messages generated during the turn (in call
// order) followed by exactly one textual reply attributed to the agent.
//
// The log is read-only to the agent; the coordinator owns appending.
func (a *Agent) Run(ctx context.Context, log []core.Message) ([]core.Message, error) {
	turns := a.buildTurns(log)

	var out []core.Message
	for round := 0; ; round++ {
		req := model.Request{
			Instructions: a.instruction,
			Turns:        turns,
		}
		// Withhold tool definitions on the last permitted round so the model
		// must produce its final answer.
		if a.caps.Len() > 0 && round < a.maxCapabilityRounds {
			req.Tools = a.toolDefinitions()
		}

		resp, err := a.generate(ctx, req)
		if err != nil {
			return nil, err
		}

		if resp.HasToolCalls() && a.caps.Len() > 0 && round < a.maxCapabilityRounds {
			assistantTurn := model.Turn{Role: "assistant", Text: resp.Text(), ToolCalls: resp.ToolCalls}
			toolTurn := model.Turn{Role: "tool"}

			// Capability calls are data-dependent; dispatch strictly in the
			// order the model requested them.
			for _, tc := range resp.ToolCalls {
				rec := a.caps.Invoke(ctx, tc.Name, toolQuery(tc))
				out = append(out, core.NewCapabilityMessage(a.name, rec))
				toolTurn.ToolResults = append(toolTurn.ToolResults, model.ToolResult{
					ID:      tc.ID,
					Name:    tc.Name,
					Content: rec.Result,
					IsError: rec.Failed,
				})
			}

			turns = append(turns, assistantTurn, toolTurn)
			continue
		}

		text := resp.Text()
		a.logger.Debug("agent.turn.complete", "agent", a.name, "rounds", round, "reply_len", len(text))
		return append(out, core.NewAgentMessage(a.name, text)), nil
	}
}

func (a *Agent) generate(ctx context.Context, req model.Request) (*model.Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	start := time.Now()
	resp, err := a.llm.Generate(callCtx, req)
	if err != nil {
		a.logger.Error("agent.model.failed", "agent", a.name, "error", err.Error())
		return nil, fmt.Errorf("agent %q: %w: %w", a.name, ErrUnavailable, err)
	}

	a.logger.Info("agent.model.success",
		"agent", a.name,
		"model", a.llm.Info().Name,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

// buildTurns converts the shared log into model turns from this agent's
// perspective: its own prior replies are assistant turns, everything else
// (the user query, other agents' replies, recorded capability results) is
// presented as attributed user context.
func (a *Agent) buildTurns(log []core.Message) []model.Turn {
	turns := make([]model.Turn, 0, len(log))
	for _, msg := range log {
		switch {
		case msg.Role == core.RoleUser:
			turns = append(turns, model.Turn{Role: "user", Text: msg.Text})
		case msg.Role == core.RoleAgent && msg.Agent == a.name:
			turns = append(turns, model.Turn{Role: "assistant", Text: msg.Text})
		case msg.Role == core.RoleAgent:
			turns = append(turns, model.Turn{Role: "user", Text: fmt.Sprintf("%s:\n%s", msg.Agent, msg.Text)})
		case msg.Role == core.RoleCapability:
			name := "capability"
			if len(msg.Calls) > 0 {
				name = msg.Calls[0].Capability
			}
			turns = append(turns, model.Turn{Role: "user", Text: fmt.Sprintf("%s result:\n%s", name, msg.Text)})
		}
	}
	return turns
}

// toolDefinitions exposes each granted capability as a single-argument tool.
func (a *Agent) toolDefinitions() []model.ToolDefinition {
	names := a.caps.Names()
	defs := make([]model.ToolDefinition, 0, len(names))
	for _, name := range names {
		c, ok := a.caps.Get(name)
		if !ok {
			continue
		}
		defs = append(defs, model.ToolDefinition{
			Name:        c.Name(),
			Description: c.Description(),
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The search query or lookup term.",
					},
				},
				"required": []string{"query"},
			},
		})
	}
	return defs
}

// toolQuery extracts the query argument from a tool call, falling back to the
// raw argument payload when it is not the expected JSON shape.
func toolQuery(tc model.ToolCall) string {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(tc.Arguments), &args); err == nil && args.Query != "" {
		return args.Query
	}
	return tc.Arguments
}
