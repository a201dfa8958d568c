package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/funnel-cli/internal/model"
)

func TestDecideActionThresholds(t *testing.T) {
	cases := []struct {
		name  string
		score float64
		conf  float64
		want  model.RecommendedAction
	}{
		{"strong go", 0.85, 0.82, model.ActionStrongGo},
		{"strong go boundary", 0.8, 0.8, model.ActionStrongGo},
		{"high score low confidence falls through", 0.85, 0.7, model.ActionConditionalGo},
		{"conditional go boundary", 0.6, 0.6, model.ActionConditionalGo},
		{"caution ignores confidence", 0.45, 0.1, model.ActionProceedWithCaution},
		{"caution boundary", 0.4, 0.0, model.ActionProceedWithCaution},
		{"no go", 0.39, 0.9, model.ActionNoGo},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := &model.IntegratedAnalysis{IntegratedScore: tc.score, IntegratedConfidence: tc.conf}
			decide(a, decisionInput{})
			assert.Equal(t, tc.want, a.RecommendedAction)
			assert.NotEmpty(t, a.NextSteps)
		})
	}
}

func TestDecisionConfidence(t *testing.T) {
	a := &model.IntegratedAnalysis{
		IntegratedScore:      0.7,
		IntegratedConfidence: 0.8,
		EvidenceStrength:     0.5,
	}
	decide(a, decisionInput{})
	// 0.8*0.6 + 0.5*0.4
	assert.InDelta(t, 0.68, a.DecisionConfidence, 0.001)
}

func TestRiskFactors(t *testing.T) {
	a := &model.IntegratedAnalysis{
		IntegratedScore:      0.7,
		IntegratedConfidence: 0.7,
		ResearchQualityScore: 0.3,
		EvidenceStrength:     0.3,
	}
	report := &model.ResearchReport{
		RiskFactors: []string{"deadline may be extended", "no direct contact information identified"},
	}
	decide(a, decisionInput{
		scoring:     &model.ScoringResult{OverallScore: 0.7, ConfidenceLevel: 0.5},
		report:      report,
		researchRan: true,
	})

	assert.Contains(t, a.RiskFactors, "low confidence in algorithmic scoring")
	assert.Contains(t, a.RiskFactors, "no direct contact information identified")
	assert.Contains(t, a.RiskFactors, "research evidence is thin or low quality")
	assert.Contains(t, a.RiskFactors, "weak supporting evidence for the compatibility score")
	assert.Contains(t, a.RiskFactors, "deadline may be extended")

	// The duplicated contact risk appears once.
	count := 0
	for _, r := range a.RiskFactors {
		if r == "no direct contact information identified" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestRiskFactorsScoringFailed(t *testing.T) {
	a := &model.IntegratedAnalysis{}
	decide(a, decisionInput{scoring: &model.ScoringResult{}, scoringFailed: true})
	assert.Contains(t, a.RiskFactors, "algorithmic scoring unavailable for this opportunity")
}

func TestRiskFactorsResearchFailed(t *testing.T) {
	a := &model.IntegratedAnalysis{IntegratedScore: 0.7, IntegratedConfidence: 0.7}
	decide(a, decisionInput{
		scoring:        &model.ScoringResult{OverallScore: 0.7, ConfidenceLevel: 0.7},
		researchFailed: true,
	})
	assert.Contains(t, a.RiskFactors, "research analysis failed; decision based on scoring only")
}

func TestNextStepsStrongGoWithContacts(t *testing.T) {
	report := &model.ResearchReport{ContactsIdentified: []model.Contact{{Name: "x"}}}
	steps := nextSteps(model.ActionStrongGo, decisionInput{report: report, researchRan: true})
	require.Len(t, steps, 3)
	assert.Equal(t, "initiate outreach to identified contacts", steps[2])

	noContacts := nextSteps(model.ActionStrongGo, decisionInput{report: &model.ResearchReport{}, researchRan: true})
	assert.Len(t, noContacts, 2)
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{"a", "b", "a", "", "c", "b"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}
