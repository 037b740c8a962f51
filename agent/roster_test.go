package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/deepresearch/capability"
	"github.com/hupe1980/deepresearch/model"
)

func TestNewRoster_Defaults(t *testing.T) {
	llm := model.NewMockModel("test")
	registry := capability.NewRegistry([]capability.Capability{capability.NewClock()})

	r, err := NewRoster(DefaultDescriptors(), llm, registry)
	require.NoError(t, err)

	assert.Equal(t, []string{PlannerName, SearcherName, ValidatorName, ReflectorName, SynthesizerName}, r.Names())

	searcher, ok := r.Get(SearcherName)
	require.True(t, ok)
	assert.Equal(t, []string{"current_datetime"}, searcher.Capabilities(),
		"empty capability list on the search role grants every registered capability")

	planner, ok := r.Get(PlannerName)
	require.True(t, ok)
	assert.Empty(t, planner.Capabilities())

	_, ok = r.Get("unknown_expert")
	assert.False(t, ok)
}

func TestNewRoster_Validation(t *testing.T) {
	llm := model.NewMockModel("test")

	tests := []struct {
		name  string
		descs []Descriptor
	}{
		{"empty", nil},
		{"no search role", []Descriptor{{Name: "a", Instruction: "x"}}},
		{"two search roles", []Descriptor{
			{Name: "a", Instruction: "x", Search: true},
			{Name: "b", Instruction: "y", Search: true},
		}},
		{"duplicate names", []Descriptor{
			{Name: "a", Instruction: "x", Search: true},
			{Name: "a", Instruction: "y"},
		}},
		{"capabilities outside search role", []Descriptor{
			{Name: "a", Instruction: "x", Search: true},
			{Name: "b", Instruction: "y", Capabilities: []string{"web_search"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRoster(tt.descs, llm, nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadDescriptors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
agents:
  - name: planning_expert
    instruction: plan the research
  - name: search_expert
    instruction: search the web
    search: true
    capabilities: [web_search, wikipedia_lookup]
`), 0o644))

	descs, err := LoadDescriptors(path)
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, "planning_expert", descs[0].Name)
	assert.True(t, descs[1].Search)
	assert.Equal(t, []string{"web_search", "wikipedia_lookup"}, descs[1].Capabilities)

	_, err = LoadDescriptors(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("agents: []"), 0o644))
	_, err = LoadDescriptors(empty)
	assert.Error(t, err)
}
