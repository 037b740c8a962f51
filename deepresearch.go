// Package deepresearch provides a high-level façade over the multi-agent
// research workflow: a coordinator routes a shared conversational session
// through planning, searching, citation validation, reflection and synthesis
// agents, looping back for more evidence when needed, and returns a single
// synthesized report. Most applications interact with this package by:
//  1. Creating a Service via New() with a Config (optionally overriding the
//     model backend, capability set or roster)
//  2. Calling Run() with a research question
//
// The façade delegates orchestration to workflow.Coordinator while keeping
// setup and usage ergonomics concise. All defaults are safe for local
// development; production deployments typically supply a structured logger.
package deepresearch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/deepresearch/agent"
	"github.com/hupe1980/deepresearch/capability"
	"github.com/hupe1980/deepresearch/config"
	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/logging"
	"github.com/hupe1980/deepresearch/model"
	"github.com/hupe1980/deepresearch/model/anthropic"
	"github.com/hupe1980/deepresearch/model/openai"
	"github.com/hupe1980/deepresearch/session"
	"github.com/hupe1980/deepresearch/workflow"
)

// Messages returned to callers in place of a report. The service boundary is
// exception-opaque: callers always receive text, never a raw fault.
const (
	emptyQueryMessage = "Please enter a research question."
	noResultsMessage  = "Research completed but no results were generated."
	errorReportPrefix = "Error during research: "
)

// Options configures a Service beyond what Config carries. Overrides exist
// primarily for tests and embedders; zero values select sensible defaults.
type Options struct {
	// Model overrides the provider selected by Config.
	Model model.Model
	// Capabilities overrides the default capability set.
	Capabilities []capability.Capability
	// Descriptors overrides the agent roster.
	Descriptors []agent.Descriptor
	// Roles overrides the state-to-agent mapping.
	Roles workflow.Roles
	// SessionStore overrides the default in-memory store.
	SessionStore core.SessionStore
	// Logger receives structured diagnostics (defaults to NoOp).
	Logger logging.Logger
}

// Service is the research façade. It is constructed once with an immutable
// configuration and shared model client, and is safe for concurrent Run
// calls: each call owns a fresh session and no mutable state is shared
// between sessions beyond the read-only roster and capability registry.
type Service struct {
	store  core.SessionStore
	coord  *workflow.Coordinator
	logger logging.Logger
}

// New wires the model backend, capability registry, roster and coordinator
// into a ready Service.
func New(cfg config.Config, optFns ...func(o *Options)) (*Service, error) {
	opts := Options{
		SessionStore: session.NewInMemoryStore(),
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Minute
	}
	if cfg.MaxLoopbacks <= 0 {
		cfg.MaxLoopbacks = 2
	}

	llm := opts.Model
	if llm == nil {
		var err error
		if llm, err = newModel(cfg); err != nil {
			return nil, err
		}
	}

	caps := opts.Capabilities
	if caps == nil {
		caps = defaultCapabilities(cfg)
	}
	registry := capability.NewRegistry(caps, func(o *capability.RegistryOptions) {
		o.CallTimeout = cfg.CallTimeout
		o.Logger = opts.Logger
	})

	descs := opts.Descriptors
	if descs == nil {
		if cfg.RosterPath != "" {
			var err error
			if descs, err = agent.LoadDescriptors(cfg.RosterPath); err != nil {
				return nil, err
			}
		} else {
			descs = agent.DefaultDescriptors()
		}
	}

	roster, err := agent.NewRoster(descs, llm, registry, func(o *agent.Options) {
		o.CallTimeout = cfg.CallTimeout
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	roles := opts.Roles
	if roles == (workflow.Roles{}) {
		roles = workflow.DefaultRoles()
	}

	coord, err := workflow.NewCoordinator(roster, opts.SessionStore, func(o *workflow.Options) {
		o.MaxLoopbacks = cfg.MaxLoopbacks
		o.Roles = roles
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		store:  opts.SessionStore,
		coord:  coord,
		logger: opts.Logger,
	}, nil
}

// Run answers a research question, always returning text: a completed
// report, a validation message for empty queries, or an error-tagged
// message. It never raises past the service boundary.
func (s *Service) Run(ctx context.Context, query string) string {
	_, report := s.RunSession(ctx, query)
	return report
}

// RunSession behaves like Run and additionally returns the session ID so the
// persisted log can be inspected afterwards. The ID is empty when the query
// was rejected before a session was created.
func (s *Service) RunSession(ctx context.Context, query string) (sessionID, report string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", emptyQueryMessage
	}

	sess, err := s.store.Create(core.NewID())
	if err != nil {
		s.logger.Error("service.session.create_failed", "error", err.Error())
		return "", errorReportPrefix + "a session could not be created."
	}
	sessionID = sess.ID

	if err := s.store.Append(sessionID, core.NewUserMessage(query)); err != nil {
		s.logger.Error("service.session.seed_failed", "session_id", sessionID, "error", err.Error())
		return sessionID, errorReportPrefix + "the session could not be started."
	}

	s.logger.Info("service.run.start", "session_id", sessionID, "query_len", len(query))

	report, err = s.drive(ctx, sessionID)
	if err != nil {
		// Diagnostic detail stays in the logs; the caller gets a marked,
		// generic error report.
		s.logger.Error("service.run.failed", "session_id", sessionID, "error", err.Error())
		return sessionID, errorReportPrefix + "the research workflow could not be completed."
	}

	if strings.TrimSpace(report) == "" {
		return sessionID, noResultsMessage
	}

	s.logger.Info("service.run.complete", "session_id", sessionID, "report_len", len(report))
	return sessionID, report
}

// drive runs the coordinator, converting panics into errors so no internal
// fault can escape the service boundary.
func (s *Service) drive(ctx context.Context, sessionID string) (report string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal panic: %v", r)
		}
	}()
	return s.coord.Run(ctx, sessionID)
}

// Session returns the persisted session (ordered message log, status) for a
// completed or in-flight run.
func (s *Service) Session(sessionID string) (*core.Session, error) {
	return s.store.Get(sessionID)
}

func newModel(cfg config.Config) (model.Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.AnthropicAPIKey
			if cfg.ModelName != "" {
				o.Model = cfg.ModelName
			}
		}), nil
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			o.APIKey = cfg.OpenAIAPIKey
			if cfg.ModelName != "" {
				o.Model = cfg.ModelName
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func defaultCapabilities(cfg config.Config) []capability.Capability {
	caps := make([]capability.Capability, 0, 3)
	if cfg.TavilyAPIKey != "" {
		caps = append(caps, capability.NewWebSearch(cfg.TavilyAPIKey))
	}
	caps = append(caps, capability.NewWikipedia(), capability.NewClock())
	return caps
}
