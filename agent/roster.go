package agent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/deepresearch/capability"
	"github.com/hupe1980/deepresearch/model"
)

// Well-known agent names used by the default research roster.
const (
	PlannerName     = "planning_expert"
	SearcherName    = "search_expert"
	ValidatorName   = "citation_expert"
	ReflectorName   = "reflection_expert"
	SynthesizerName = "synthesis_expert"
)

// Descriptor declaratively describes one agent: its name, behavioral
// instruction and capability subset. Descriptors are immutable for the
// lifetime of a session. Only the descriptor marked Search may carry
// capabilities; an empty Capabilities list on the search role grants every
// registered capability.
type Descriptor struct {
	Name         string   `yaml:"name"`
	Instruction  string   `yaml:"instruction"`
	Capabilities []string `yaml:"capabilities,omitempty"`
	Search       bool     `yaml:"search,omitempty"`
}

// Roster is the validated, immutable set of agents participating in a run.
type Roster struct {
	agents map[string]*Agent
	names  []string
}

// NewRoster builds and validates a roster: unique non-empty names, exactly
// one search role, no capabilities outside it. All agents share the same
// model client and capability registry (constructed once, injected here).
func NewRoster(descs []Descriptor, llm model.Model, registry *capability.Registry, optFns ...func(o *Options)) (*Roster, error) {
	if len(descs) == 0 {
		return nil, fmt.Errorf("roster requires at least one agent descriptor")
	}

	searchCount := 0
	for _, d := range descs {
		if d.Search {
			searchCount++
		}
	}
	if searchCount != 1 {
		return nil, fmt.Errorf("roster requires exactly one search role, got %d", searchCount)
	}

	r := &Roster{agents: make(map[string]*Agent, len(descs))}
	for _, d := range descs {
		if _, dup := r.agents[d.Name]; dup {
			return nil, fmt.Errorf("duplicate agent name %q in roster", d.Name)
		}
		a, err := New(d, llm, registry, optFns...)
		if err != nil {
			return nil, err
		}
		r.agents[d.Name] = a
		r.names = append(r.names, d.Name)
	}
	return r, nil
}

// Get returns the named agent if registered.
func (r *Roster) Get(name string) (*Agent, bool) {
	a, ok := r.agents[name]
	return a, ok
}

// Names returns the agent names in roster order.
func (r *Roster) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// DefaultDescriptors returns the built-in five-agent research roster.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{
			Name: PlannerName,
			Instruction: `You are a research planning specialist. Create concise, actionable research plans.

OUTPUT FORMAT:
RESEARCH PLAN
- Query: [Core question]
- Objectives: [Key goals]
- Search Strategy: [Approach]
- Success Criteria: [Completion conditions]`,
		},
		{
			Name:   SearcherName,
			Search: true,
			Instruction: `You are a search specialist with access to web search and Wikipedia.

Execute targeted searches and return key findings with sources.
Focus on accuracy and source credibility.`,
		},
		{
			Name: ValidatorName,
			Instruction: `You are a citation specialist. Validate sources and format citations properly.

Ensure all claims are supported by credible sources.`,
		},
		{
			Name: ReflectorName,
			Instruction: `You are a quality assurance specialist.

Evaluate if the research adequately addresses the query.
End your reply with exactly one decision line:
DECISION: APPROVE - the research is ready for synthesis
DECISION: MORE RESEARCH - list the specific gaps that remain`,
		},
		{
			Name: SynthesizerName,
			Instruction: `You are a synthesis specialist. Create comprehensive final reports.

OUTPUT FORMAT:
RESEARCH REPORT

Summary: [Direct answer to query]

Key Findings:
1. [Major finding with source]
2. [Major finding with source]

Details: [Expanded analysis]

Sources: [All citations]`,
		},
	}
}

// rosterFile is the on-disk YAML shape for externally loaded rosters.
type rosterFile struct {
	Agents []Descriptor `yaml:"agents"`
}

// LoadDescriptors reads agent descriptors from a YAML file, allowing the
// roster to be extended without touching the workflow logic.
func LoadDescriptors(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster file: %w", err)
	}

	var f rosterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse roster file: %w", err)
	}
	if len(f.Agents) == 0 {
		return nil, fmt.Errorf("roster file %q contains no agents", path)
	}
	return f.Agents, nil
}
