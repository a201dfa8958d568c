package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportConfidence(t *testing.T) {
	var nilReport *ResearchReport
	assert.Equal(t, 0.0, nilReport.Confidence())

	assert.Equal(t, 0.0, (&ResearchReport{}).Confidence())

	r := &ResearchReport{ConfidenceAssessment: map[string]float64{"overall": 0.85}}
	assert.InDelta(t, 0.85, r.Confidence(), 0.001)

	// Out-of-range values clamp
	r.ConfidenceAssessment["overall"] = 1.4
	assert.Equal(t, 1.0, r.Confidence())
}

func TestVerifiedContactRatio(t *testing.T) {
	var nilReport *ResearchReport
	assert.Equal(t, 0.0, nilReport.VerifiedContactRatio())

	assert.Equal(t, 0.0, (&ResearchReport{}).VerifiedContactRatio())

	r := &ResearchReport{ContactsIdentified: []Contact{
		{Name: "a", Confidence: 0.9},
		{Name: "b", Confidence: 0.71},
		{Name: "c", Confidence: 0.7}, // not strictly above threshold
		{Name: "d", Confidence: 0.2},
	}}
	assert.InDelta(t, 0.5, r.VerifiedContactRatio(), 0.001)
}
