package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/deepresearch/agent"
	"github.com/hupe1980/deepresearch/capability"
	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/model"
	"github.com/hupe1980/deepresearch/session"
)

// scriptedModel returns a mock with one canned reply per default agent,
// matched on distinctive phrases from the built-in instructions.
func scriptedModel(reflection string) *model.MockModel {
	llm := model.NewMockModel("test")
	llm.AddResponse("planning specialist", "RESEARCH PLAN\n- Query: the question")
	llm.AddResponse("search specialist", "Findings: Paris is the capital of France. Source: Example (2024)")
	llm.AddResponse("citation specialist", "All claims are supported by credible sources.")
	llm.AddResponse("quality assurance", reflection)
	llm.AddResponse("synthesis specialist", "RESEARCH REPORT\n\nSummary: Paris is the capital of France.")
	return llm
}

func newFixture(t *testing.T, llm model.Model) (*Coordinator, *session.InMemoryStore, string) {
	t.Helper()

	roster, err := agent.NewRoster(agent.DefaultDescriptors(), llm, capability.NewRegistry(nil))
	require.NoError(t, err)

	store := session.NewInMemoryStore()
	coord, err := NewCoordinator(roster, store)
	require.NoError(t, err)

	sess, err := store.Create("sess-1")
	require.NoError(t, err)
	require.NoError(t, store.Append(sess.ID, core.NewUserMessage("What is the capital of France?")))

	return coord, store, sess.ID
}

func agentTurns(t *testing.T, store *session.InMemoryStore, id string) []string {
	t.Helper()
	sess, err := store.Get(id)
	require.NoError(t, err)
	var agents []string
	for _, msg := range sess.GetMessages() {
		if msg.Role == core.RoleAgent {
			agents = append(agents, msg.Agent)
		}
	}
	return agents
}

func TestCoordinator_HappyPath(t *testing.T) {
	coord, store, id := newFixture(t, scriptedModel("Well sourced.\nDECISION: APPROVE"))

	report, err := coord.Run(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, report, "Paris")

	assert.Equal(t, []string{
		agent.PlannerName,
		agent.SearcherName,
		agent.ValidatorName,
		agent.ReflectorName,
		agent.SynthesizerName,
	}, agentTurns(t, store, id), "no loop-back: exactly five agent turns in pipeline order")

	sess, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, sess.GetStatus())
}

func TestCoordinator_LoopBackBound(t *testing.T) {
	// A reflector that always rejects must be overridden after 2 loop-backs.
	coord, store, id := newFixture(t, scriptedModel("Not enough evidence.\nDECISION: MORE RESEARCH"))

	report, err := coord.Run(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, report, "RESEARCH REPORT")

	turns := agentTurns(t, store, id)
	searches, reflections := 0, 0
	for _, name := range turns {
		switch name {
		case agent.SearcherName:
			searches++
		case agent.ReflectorName:
			reflections++
		}
	}
	assert.Equal(t, 3, searches, "first search plus exactly 2 loop-backs")
	assert.Equal(t, 3, reflections, "synthesis forced on the 3rd reflecting evaluation")
	assert.Equal(t, agent.SynthesizerName, turns[len(turns)-1])
}

func TestCoordinator_AmbiguousReflectionFailsOpen(t *testing.T) {
	coord, store, id := newFixture(t, scriptedModel("The research seems broadly fine, I suppose."))

	report, err := coord.Run(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, report, "RESEARCH REPORT")

	turns := agentTurns(t, store, id)
	assert.Len(t, turns, 5, "no loop-back on an unrecognizable decision")
}

func TestCoordinator_RetriesUnavailableAgentOnce(t *testing.T) {
	llm := scriptedModel("DECISION: APPROVE")
	llm.FailTimes(1, errors.New("connection reset"))
	coord, _, id := newFixture(t, llm)

	report, err := coord.Run(context.Background(), id)
	require.NoError(t, err, "a single transport failure is retried")
	assert.Contains(t, report, "Paris")
}

func TestCoordinator_AbortsAfterRetryExhausted(t *testing.T) {
	llm := scriptedModel("DECISION: APPROVE")
	llm.FailTimes(2, errors.New("connection reset"))
	coord, store, id := newFixture(t, llm)

	_, err := coord.Run(context.Background(), id)
	require.Error(t, err)
	assert.ErrorIs(t, err, agent.ErrUnavailable)

	sess, getErr := store.Get(id)
	require.NoError(t, getErr)
	assert.Equal(t, core.StatusFailed, sess.GetStatus())
}

func TestCoordinator_CapabilityErrorDoesNotAbort(t *testing.T) {
	llm := model.NewMockModel("test")
	llm.AddResponse("planning specialist", "RESEARCH PLAN")
	llm.AddToolCallResponse("search specialist", model.ToolCall{
		ID: "tc1", Name: "web_search", Arguments: `{"query":"q"}`,
	})
	llm.AddResponse("search specialist", "The search tool failed; no findings.")
	llm.AddResponse("citation specialist", "Nothing to validate.")
	llm.AddResponse("quality assurance", "DECISION: APPROVE")
	llm.AddResponse("synthesis specialist", "RESEARCH REPORT\n\nSummary: inconclusive.")

	roster, err := agent.NewRoster(agent.DefaultDescriptors(), llm, capability.NewRegistry([]capability.Capability{
		&erroringCapability{name: "web_search"},
	}))
	require.NoError(t, err)

	store := session.NewInMemoryStore()
	coord, err := NewCoordinator(roster, store)
	require.NoError(t, err)

	sess, err := store.Create("sess-cap")
	require.NoError(t, err)
	require.NoError(t, store.Append(sess.ID, core.NewUserMessage("q")))

	report, err := coord.Run(context.Background(), sess.ID)
	require.NoError(t, err, "capability failure is data, not an abort")
	assert.Contains(t, report, "RESEARCH REPORT")

	// The failed call is recorded in the log before validation proceeded.
	final, err := store.Get(sess.ID)
	require.NoError(t, err)
	var sawFailedCall bool
	for _, msg := range final.GetMessages() {
		if msg.Role == core.RoleCapability && len(msg.Calls) > 0 && msg.Calls[0].Failed {
			sawFailedCall = true
		}
	}
	assert.True(t, sawFailedCall)
}

type erroringCapability struct{ name string }

func (e *erroringCapability) Name() string        { return e.name }
func (e *erroringCapability) Description() string { return "always errors" }
func (e *erroringCapability) Invoke(context.Context, string) (string, error) {
	return "", errors.New("credential rejected")
}

func TestNewCoordinator_RejectsUnknownRole(t *testing.T) {
	llm := model.NewMockModel("test")
	roster, err := agent.NewRoster(agent.DefaultDescriptors(), llm, nil)
	require.NoError(t, err)

	_, err = NewCoordinator(roster, session.NewInMemoryStore(), func(o *Options) {
		o.Roles.Synthesizer = "ghost_expert"
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRouting)
}

func TestCoordinator_Cancellation(t *testing.T) {
	coord, store, id := newFixture(t, scriptedModel("DECISION: APPROVE"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := coord.Run(ctx, id)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	sess, getErr := store.Get(id)
	require.NoError(t, getErr)
	assert.Equal(t, core.StatusFailed, sess.GetStatus())
}
