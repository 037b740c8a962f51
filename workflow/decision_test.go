package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  Decision
	}{
		{"structured approve", "The research is solid.\nDECISION: APPROVE", DecisionApprove},
		{"structured more research", "Gaps remain in X.\nDECISION: MORE RESEARCH", DecisionMoreResearch},
		{"structured lowercase", "looks good\ndecision: approve", DecisionApprove},
		{"structured wins over prose", "I would normally approve this.\nDECISION: MORE RESEARCH", DecisionMoreResearch},
		{"fallback approve", "I APPROVE this research for synthesis.", DecisionApprove},
		{"fallback more research", "We need MORE RESEARCH on the economic angle.", DecisionMoreResearch},
		{"fallback more research wins", "I cannot approve; MORE RESEARCH is needed.", DecisionMoreResearch},
		{"ambiguous defaults to approve", "The findings look reasonably complete to me.", DecisionDefault},
		{"empty defaults to approve", "", DecisionDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDecision(tt.reply))
		})
	}
}

func TestDecision_Reason(t *testing.T) {
	assert.NotEmpty(t, DecisionApprove.Reason())
	assert.NotEmpty(t, DecisionMoreResearch.Reason())
	assert.Contains(t, DecisionDefault.Reason(), "defaulting to approve")
}
