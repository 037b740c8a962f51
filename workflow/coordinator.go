// Package workflow implements the coordinator that routes a research session
// through its fixed pipeline of specialized agents: planning, searching,
// citation validation, reflection and synthesis, with a bounded loop back to
// searching when reflection rejects the evidence gathered so far.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/deepresearch/agent"
	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/logging"
)

// State identifies a position in the research workflow.
type State string

const (
	// StatePlanning is the initial state: the planner drafts a research plan.
	StatePlanning State = "planning"
	// StateSearching gathers evidence via the search agent and its capabilities.
	StateSearching State = "searching"
	// StateValidating checks citations and source credibility.
	StateValidating State = "validating"
	// StateReflecting assesses whether the evidence answers the query.
	StateReflecting State = "reflecting"
	// StateSynthesizing produces the final report.
	StateSynthesizing State = "synthesizing"
	// StateDone is terminal.
	StateDone State = "done"
)

// ErrRouting marks a defect in the routing logic itself: a role resolving to
// an unregistered agent, or the transition bound failing to terminate. It
// must never occur in a correctly configured workflow.
var ErrRouting = errors.New("routing error")

// transitionSlack pads the transition invariant so an off-by-one in the
// bound arithmetic aborts the run instead of masking a real defect.
const transitionSlack = 1

// Roles maps workflow states to the agent names that serve them.
type Roles struct {
	Planner     string
	Searcher    string
	Validator   string
	Reflector   string
	Synthesizer string
}

// DefaultRoles returns the role mapping for the built-in roster.
func DefaultRoles() Roles {
	return Roles{
		Planner:     agent.PlannerName,
		Searcher:    agent.SearcherName,
		Validator:   agent.ValidatorName,
		Reflector:   agent.ReflectorName,
		Synthesizer: agent.SynthesizerName,
	}
}

// Options configures a Coordinator.
type Options struct {
	// MaxLoopbacks bounds how many additional searching rounds reflection may
	// request after the first.
	MaxLoopbacks int
	// Roles overrides the state-to-agent mapping.
	Roles Roles
	// Logger receives one record per transition.
	Logger logging.Logger
}

// Coordinator drives one session through the workflow. It owns the session
// log exclusively for the duration of a run: agents only read the log and
// return new messages for the coordinator to append. The coordinator never
// fabricates content; it only routes control and reads agent output to make
// the next routing decision.
type Coordinator struct {
	roster       *agent.Roster
	store        core.SessionStore
	roles        Roles
	maxLoopbacks int
	logger       logging.Logger
}

// NewCoordinator validates the role mapping against the roster and returns a
// ready coordinator. A role naming an unregistered agent is a routing defect
// caught here, not at dispatch time.
func NewCoordinator(roster *agent.Roster, store core.SessionStore, optFns ...func(o *Options)) (*Coordinator, error) {
	opts := Options{
		MaxLoopbacks: 2,
		Roles:        DefaultRoles(),
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	for _, name := range []string{opts.Roles.Planner, opts.Roles.Searcher, opts.Roles.Validator, opts.Roles.Reflector, opts.Roles.Synthesizer} {
		if _, ok := roster.Get(name); !ok {
			return nil, fmt.Errorf("%w: role references unregistered agent %q", ErrRouting, name)
		}
	}

	return &Coordinator{
		roster:       roster,
		store:        store,
		roles:        opts.Roles,
		maxLoopbacks: opts.MaxLoopbacks,
		logger:       opts.Logger,
	}, nil
}

// maxTransitions returns the hard invariant bound on state transitions:
// planning + synthesizing + (searching + validating + reflecting) per round,
// with one initial round plus at most maxLoopbacks extra. Exceeding it means
// the loop-bound logic is broken and the run aborts rather than loops forever.
func (c *Coordinator) maxTransitions() int {
	return 2 + 3*(1+c.maxLoopbacks) + transitionSlack
}

// Run drives the session identified by sessionID from PLANNING to DONE and
// returns the synthesis agent's final text. The session must already be
// seeded with the user query. On failure the session is marked failed and
// the error returned; capability failures never reach this level.
//
// Cancellation is cooperative: the context is checked before each agent turn.
func (c *Coordinator) Run(ctx context.Context, sessionID string) (string, error) {
	sess, err := c.store.Get(sessionID)
	if err != nil {
		return "", err
	}
	log := sess.GetMessages()

	state := StatePlanning
	loopbacks := 0
	transitions := 0
	report := ""

	for state != StateDone {
		if transitions++; transitions > c.maxTransitions() {
			return "", c.fail(sessionID, fmt.Errorf("%w: exceeded %d transitions without terminating", ErrRouting, c.maxTransitions()))
		}

		select {
		case <-ctx.Done():
			return "", c.fail(sessionID, ctx.Err())
		default:
		}

		switch state {
		case StatePlanning:
			if _, err := c.turn(ctx, c.roles.Planner, sessionID, &log); err != nil {
				return "", c.fail(sessionID, err)
			}
			state = c.transition(sessionID, state, StateSearching, "plan complete")

		case StateSearching:
			if _, err := c.turn(ctx, c.roles.Searcher, sessionID, &log); err != nil {
				return "", c.fail(sessionID, err)
			}
			state = c.transition(sessionID, state, StateValidating, "search complete")

		case StateValidating:
			if _, err := c.turn(ctx, c.roles.Validator, sessionID, &log); err != nil {
				return "", c.fail(sessionID, err)
			}
			state = c.transition(sessionID, state, StateReflecting, "citations validated")

		case StateReflecting:
			reply, err := c.turn(ctx, c.roles.Reflector, sessionID, &log)
			if err != nil {
				return "", c.fail(sessionID, err)
			}
			decision := ParseDecision(reply)
			switch {
			case decision == DecisionMoreResearch && loopbacks < c.maxLoopbacks:
				loopbacks++
				state = c.transition(sessionID, state, StateSearching, fmt.Sprintf("more research requested (loop-back %d of %d)", loopbacks, c.maxLoopbacks))
			case decision == DecisionMoreResearch:
				state = c.transition(sessionID, state, StateSynthesizing, "loop-bound exceeded")
			default:
				state = c.transition(sessionID, state, StateSynthesizing, decision.Reason())
			}

		case StateSynthesizing:
			reply, err := c.turn(ctx, c.roles.Synthesizer, sessionID, &log)
			if err != nil {
				return "", c.fail(sessionID, err)
			}
			report = reply
			state = c.transition(sessionID, state, StateDone, "report synthesized")

		default:
			return "", c.fail(sessionID, fmt.Errorf("%w: unknown state %q", ErrRouting, state))
		}
	}

	if err := c.store.SetStatus(sessionID, core.StatusCompleted); err != nil {
		return "", err
	}
	return report, nil
}

// turn dispatches one agent turn, appending its messages to both the local
// log and the session store. A model transport failure is retried once
// before being surfaced.
func (c *Coordinator) turn(ctx context.Context, name, sessionID string, log *[]core.Message) (string, error) {
	a, ok := c.roster.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: dispatch to unregistered agent %q", ErrRouting, name)
	}

	msgs, err := a.Run(ctx, *log)
	if errors.Is(err, agent.ErrUnavailable) {
		c.logger.Warn("workflow.turn.retry", "session_id", sessionID, "agent", name, "error", err.Error())
		msgs, err = a.Run(ctx, *log)
	}
	if err != nil {
		return "", err
	}

	*log = append(*log, msgs...)
	if err := c.store.Append(sessionID, msgs...); err != nil {
		return "", err
	}

	if len(msgs) == 0 {
		return "", fmt.Errorf("agent %q produced no reply", name)
	}
	return msgs[len(msgs)-1].Text, nil
}

func (c *Coordinator) transition(sessionID string, from, to State, reason string) State {
	c.logger.Info("workflow.transition",
		"session_id", sessionID,
		"from", string(from),
		"to", string(to),
		"reason", reason,
	)
	return to
}

func (c *Coordinator) fail(sessionID string, err error) error {
	if setErr := c.store.SetStatus(sessionID, core.StatusFailed); setErr != nil {
		c.logger.Error("workflow.fail.status", "session_id", sessionID, "error", setErr.Error())
	}
	c.logger.Error("workflow.failed", "session_id", sessionID, "error", err.Error())
	return err
}
