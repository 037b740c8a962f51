package deepresearch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/deepresearch/capability"
	"github.com/hupe1980/deepresearch/config"
	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/model"
)

// stubSearch is a deterministic web search double that counts invocations.
type stubSearch struct {
	mu     sync.Mutex
	result string
	calls  int
}

func (s *stubSearch) Name() string        { return "web_search" }
func (s *stubSearch) Description() string { return "stubbed web search" }
func (s *stubSearch) Invoke(_ context.Context, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.result, nil
}

func (s *stubSearch) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// parisModel scripts the full five-agent pipeline for the France scenario.
func parisModel() *model.MockModel {
	llm := model.NewMockModel("test")
	llm.AddResponse("planning specialist", "RESEARCH PLAN\n- Query: What is the capital of France?")
	llm.AddToolCallResponse("search specialist", model.ToolCall{
		ID: "tc1", Name: "web_search", Arguments: `{"query":"capital of France"}`,
	})
	llm.AddResponse("search specialist", "Finding: Paris is the capital of France. Source: Example (2024)")
	llm.AddResponse("citation specialist", "The Example (2024) source is credible.")
	llm.AddResponse("quality assurance", "The query is fully answered.\nDECISION: APPROVE")
	llm.AddResponse("synthesis specialist", "RESEARCH REPORT\n\nSummary: Paris is the capital of France.\n\nSources: Example (2024)")
	return llm
}

func newService(t *testing.T, llm model.Model, caps ...capability.Capability) *Service {
	t.Helper()
	svc, err := New(config.Config{}, func(o *Options) {
		o.Model = llm
		o.Capabilities = caps
	})
	require.NoError(t, err)
	return svc
}

func TestService_EndToEnd(t *testing.T) {
	search := &stubSearch{result: "Paris is the capital of France. Source: Example (2024)"}
	svc := newService(t, parisModel(), search)

	sessionID, report := svc.RunSession(context.Background(), "What is the capital of France?")
	assert.Contains(t, report, "Paris")
	assert.Equal(t, 1, search.callCount())

	sess, err := svc.Session(sessionID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, sess.GetStatus())

	var agentTurns int
	for _, msg := range sess.GetMessages() {
		if msg.Role == core.RoleAgent {
			agentTurns++
		}
	}
	assert.Equal(t, 5, agentTurns, "no loop-back: exactly five agent turns")
}

func TestService_EmptyQueryRejectedWithoutInvocation(t *testing.T) {
	llm := parisModel()
	search := &stubSearch{result: "unused"}
	svc := newService(t, llm, search)

	for _, query := range []string{"", "   ", "\n\t"} {
		sessionID, report := svc.RunSession(context.Background(), query)
		assert.Equal(t, "Please enter a research question.", report)
		assert.Empty(t, sessionID, "no session is created for a rejected query")
	}

	assert.Equal(t, 0, llm.CallCount(), "no model call for empty queries")
	assert.Equal(t, 0, search.callCount(), "no capability call for empty queries")
}

func TestService_ConcurrentSessionsAreIsolated(t *testing.T) {
	svc := newService(t, parisModel(), &stubSearch{result: "finding"})

	queries := [2]string{
		"What is the capital of France?",
		"What is the capital of Japan?",
	}

	var wg sync.WaitGroup
	var ids [2]string
	for i := range queries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i], _ = svc.RunSession(context.Background(), queries[i])
		}()
	}
	wg.Wait()

	require.NotEqual(t, ids[0], ids[1], "session identifiers must be unique")

	for i, id := range ids {
		sess, err := svc.Session(id)
		require.NoError(t, err)
		other := queries[1-i]
		for _, msg := range sess.GetMessages() {
			if msg.Role == core.RoleUser {
				assert.Equal(t, queries[i], msg.Text)
				assert.NotEqual(t, other, msg.Text, "no message may leak between sessions")
			}
		}
	}
}

func TestService_UnrecoveredFailureYieldsErrorReport(t *testing.T) {
	llm := parisModel()
	llm.FailTimes(10, errors.New("model endpoint unreachable"))
	svc := newService(t, llm)

	sessionID, report := svc.RunSession(context.Background(), "anything")
	assert.True(t, strings.HasPrefix(report, "Error during research:"), "failures are error-tagged text, got %q", report)
	assert.NotContains(t, report, "unreachable", "diagnostics are not exposed verbatim")

	sess, err := svc.Session(sessionID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, sess.GetStatus())
}

func TestService_BlankSynthesisYieldsNoResultsMessage(t *testing.T) {
	llm := model.NewMockModel("test")
	llm.AddResponse("planning specialist", "plan")
	llm.AddResponse("search specialist", "findings")
	llm.AddResponse("citation specialist", "checked")
	llm.AddResponse("quality assurance", "DECISION: APPROVE")
	llm.AddResponse("synthesis specialist", "   ")

	svc := newService(t, llm)
	report := svc.Run(context.Background(), "question")
	assert.Equal(t, "Research completed but no results were generated.", report)
}
