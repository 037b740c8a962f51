// Package capability implements the external lookup subsystem available to
// agents: web search, encyclopedia lookup and a clock, exposed through a
// uniform Registry. Capabilities are query-in/text-out with no persistent
// side effects. A failed invocation is returned as a descriptive result
// string so callers can treat it as ordinary, recoverable data.
package capability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/logging"
)

const (
	// maxQueryLen caps capability input after trimming.
	maxQueryLen = 300
	// maxResultLen caps capability output before the truncation marker.
	maxResultLen = 3000
	// truncationMarker is appended to results cut at maxResultLen.
	truncationMarker = "... [content truncated]"
)

// Capability is a single external lookup an agent may invoke mid-turn.
//
// Implementations must be safe for concurrent use and must not retain state
// between invocations. Invoke should respect context cancellation; errors are
// converted to descriptive result text by the Registry, never surfaced to
// agents as control flow.
type Capability interface {
	// Name returns the unique identifier for this capability (snake_case).
	Name() string

	// Description is the natural language description exposed to models so
	// they can decide when to use the capability.
	Description() string

	// Invoke performs the lookup for an already-sanitized query.
	Invoke(ctx context.Context, query string) (string, error)
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// CallTimeout bounds each capability invocation.
	CallTimeout time.Duration
	// Logger receives per-call diagnostics.
	Logger logging.Logger
}

// Registry holds the set of usable capabilities and exposes a uniform
// invocation surface. It is immutable after construction and safe for
// concurrent use. Capabilities whose credentials are missing are simply
// never registered; the system degrades to fewer tools instead of failing.
type Registry struct {
	caps        map[string]Capability
	order       []string
	callTimeout time.Duration
	logger      logging.Logger
}

// NewRegistry constructs a Registry over the given capabilities. Nil entries
// are skipped so callers can pass conditionally-constructed capabilities
// directly. Later capabilities with duplicate names are ignored.
func NewRegistry(caps []Capability, optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{
		CallTimeout: time.Minute,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	r := &Registry{
		caps:        make(map[string]Capability),
		callTimeout: opts.CallTimeout,
		logger:      opts.Logger,
	}
	for _, c := range caps {
		if c == nil {
			continue
		}
		if _, exists := r.caps[c.Name()]; exists {
			continue
		}
		r.caps[c.Name()] = c
		r.order = append(r.order, c.Name())
	}
	return r
}

// Names returns the registered capability names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Get returns the named capability if registered.
func (r *Registry) Get(name string) (Capability, bool) {
	c, ok := r.caps[name]
	return c, ok
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int { return len(r.caps) }

// Subset returns a new Registry restricted to the named capabilities,
// sharing the same timeout and logger. Unknown names are ignored.
func (r *Registry) Subset(names ...string) *Registry {
	sub := &Registry{
		caps:        make(map[string]Capability),
		callTimeout: r.callTimeout,
		logger:      r.logger,
	}
	for _, name := range names {
		if c, ok := r.caps[name]; ok {
			if _, dup := sub.caps[name]; dup {
				continue
			}
			sub.caps[name] = c
			sub.order = append(sub.order, name)
		}
	}
	return sub
}

// Invoke runs the named capability and returns a complete CapabilityCall
// record. Input is trimmed and length-capped, output is truncated with an
// explicit marker, and any failure (unknown name, empty query, capability
// error, timeout) is recorded as descriptive result text with Failed set
// rather than returned as an error.
func (r *Registry) Invoke(ctx context.Context, name, query string) core.CapabilityCall {
	call := core.CapabilityCall{
		ID:         core.NewID(),
		Capability: name,
		Timestamp:  time.Now().UTC(),
	}

	query = strings.TrimSpace(query)
	if len(query) > maxQueryLen {
		query = query[:maxQueryLen]
	}
	call.Input = query

	c, ok := r.caps[name]
	if !ok {
		call.Result = fmt.Sprintf("capability error: %q is not available", name)
		call.Failed = true
		r.logger.Warn("capability.invoke.unknown", "capability", name)
		return call
	}

	if query == "" {
		call.Result = "capability error: empty query"
		call.Failed = true
		return call
	}

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	start := time.Now()
	result, err := c.Invoke(callCtx, query)
	if err != nil {
		call.Result = fmt.Sprintf("%s error: %v", name, err)
		call.Failed = true
		r.logger.Warn("capability.invoke.failed", "capability", name, "error", err.Error())
		return call
	}

	if len(result) > maxResultLen {
		result = result[:maxResultLen] + truncationMarker
	}
	call.Result = result

	r.logger.Info("capability.invoke.success",
		"capability", name,
		"duration_ms", time.Since(start).Milliseconds(),
		"result_len", len(result),
	)
	return call
}
