package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/funnel-cli/internal/model"
)

func fullReport() *model.ResearchReport {
	contacts := make([]model.Contact, 5)
	for i := range contacts {
		contacts[i] = model.Contact{Name: "c", Confidence: 0.9}
	}
	facts := make([]model.Fact, 10)
	for i := range facts {
		facts[i] = model.Fact{Statement: "fact", Confidence: 0.8}
	}
	return &model.ResearchReport{
		ExecutiveSummary:     strings.Repeat("thorough analysis ", 4),
		DetailedFindings:     map[string]string{"priorities": "aligned"},
		EvidencePackage:      facts,
		ContactsIdentified:   contacts,
		Recommendations:      []string{"a", "b", "c", "d", "e"},
		ConfidenceAssessment: map[string]float64{"overall": 0.9},
	}
}

func TestCombineWithoutResearchPassesThrough(t *testing.T) {
	scoring := &model.ScoringResult{OverallScore: 0.72, ConfidenceLevel: 0.65}

	got := combine(scoring, nil, 0, false, DefaultWeights())

	assert.InDelta(t, 0.72, got.score, 0.001)
	assert.InDelta(t, 0.65, got.confidence, 0.001)
	assert.Equal(t, 0.0, got.evidenceStrength)
	assert.Equal(t, 0.0, got.impact)
}

func TestCombineNilScoring(t *testing.T) {
	got := combine(nil, nil, 0, false, DefaultWeights())
	assert.Equal(t, 0.0, got.score)
	assert.Equal(t, 0.0, got.confidence)
}

func TestCombineStrongEvidenceBoost(t *testing.T) {
	scoring := &model.ScoringResult{OverallScore: 0.8, ConfidenceLevel: 0.7}
	report := fullReport()
	quality := researchQualityScore(report)

	got := combine(scoring, report, quality, true, DefaultWeights())

	// impact: all four factors saturated = 1.0
	assert.InDelta(t, 1.0, got.impact, 0.001)
	// strength: 0.9*0.4 + 1.0*0.3 + 1.0*0.3 = 0.96 → boost applies
	assert.InDelta(t, 0.96, got.evidenceStrength, 0.001)
	// score: 0.8*0.7 + 1.0*0.3 + 0.1 boost = 0.96
	assert.InDelta(t, 0.96, got.score, 0.001)
	// confidence: 0.7*0.7 + 0.9*0.3 = 0.76
	assert.InDelta(t, 0.76, got.confidence, 0.001)
}

func TestCombineWeakEvidencePenalty(t *testing.T) {
	scoring := &model.ScoringResult{OverallScore: 0.6, ConfidenceLevel: 0.7}
	report := &model.ResearchReport{
		ExecutiveSummary:     "thin",
		ConfidenceAssessment: map[string]float64{"overall": 0.3},
	}
	quality := researchQualityScore(report) // 0

	got := combine(scoring, report, quality, true, DefaultWeights())

	// strength: 0.3*0.4 = 0.12 < 0.4 → penalty applies
	assert.InDelta(t, 0.12, got.evidenceStrength, 0.001)
	// score: 0.6*0.7 + 0*0.3 − 0.05 = 0.37
	assert.InDelta(t, 0.37, got.score, 0.001)
}

func TestCombineBoostClampsAtOne(t *testing.T) {
	scoring := &model.ScoringResult{OverallScore: 1.0, ConfidenceLevel: 1.0}
	report := fullReport()
	report.ConfidenceAssessment["overall"] = 1.0

	got := combine(scoring, report, 1.0, true, DefaultWeights())
	assert.Equal(t, 1.0, got.score)
	assert.Equal(t, 1.0, got.confidence)
}

func TestCombinePenaltyClampsAtZero(t *testing.T) {
	scoring := &model.ScoringResult{OverallScore: 0.0, ConfidenceLevel: 0.1}
	report := &model.ResearchReport{}

	got := combine(scoring, report, 0, true, DefaultWeights())
	assert.Equal(t, 0.0, got.score)
}

func TestWeightsWithDefaults(t *testing.T) {
	w := Weights{}.withDefaults()
	assert.InDelta(t, 0.7, w.ScoringWeight, 0.001)
	assert.InDelta(t, 0.3, w.ResearchWeight, 0.001)
	assert.InDelta(t, 0.1, w.EvidenceBoost, 0.001)
	assert.InDelta(t, 0.05, w.QualityPenalty, 0.001)

	custom := Weights{ScoringWeight: 0.5, ResearchWeight: 0.5}.withDefaults()
	assert.InDelta(t, 0.5, custom.ScoringWeight, 0.001)
	assert.InDelta(t, 0.1, custom.EvidenceBoost, 0.001)
}
