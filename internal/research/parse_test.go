package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReport(t *testing.T) {
	text := `{
		"executive_summary": "Strong alignment between the foundation's arts focus and the applicant mission.",
		"detailed_findings": {"priorities": "arts education in underserved districts"},
		"evidence_package": [{"statement": "funded 12 similar programs", "source": "annual report", "confidence": 0.9}],
		"contacts_identified": [{"name": "Dana Reyes", "role": "Program Officer", "confidence": 0.8}],
		"recommendations": ["submit LOI before the spring cycle"],
		"risk_factors": ["board turnover in 2025"],
		"confidence_assessment": {"overall": 0.85}
	}`

	report, err := parseReport(text)
	require.NoError(t, err)

	assert.Contains(t, report.ExecutiveSummary, "Strong alignment")
	assert.Len(t, report.EvidencePackage, 1)
	assert.Len(t, report.ContactsIdentified, 1)
	assert.Equal(t, "Dana Reyes", report.ContactsIdentified[0].Name)
	assert.Equal(t, []string{"board turnover in 2025"}, report.RiskFactors)
	assert.InDelta(t, 0.85, report.Confidence(), 0.001)
}

func TestParseReportToleratesProse(t *testing.T) {
	text := "Here is the report you asked for:\n\n" +
		`{"executive_summary": "ok", "confidence_assessment": {"overall": 0.5}}` +
		"\n\nLet me know if you need more."

	report, err := parseReport(text)
	require.NoError(t, err)
	assert.Equal(t, "ok", report.ExecutiveSummary)
}

func TestParseReportClampsConfidences(t *testing.T) {
	text := `{
		"evidence_package": [{"statement": "x", "confidence": 1.8}],
		"contacts_identified": [{"name": "y", "confidence": -0.2}],
		"confidence_assessment": {"overall": 2.0}
	}`

	report, err := parseReport(text)
	require.NoError(t, err)
	assert.Equal(t, 1.0, report.EvidencePackage[0].Confidence)
	assert.Equal(t, 0.0, report.ContactsIdentified[0].Confidence)
	assert.Equal(t, 1.0, report.ConfidenceAssessment["overall"])
}

func TestParseReportNoJSON(t *testing.T) {
	_, err := parseReport("I could not find any information about this organization.")
	assert.Error(t, err)
}

func TestParseReportMalformedJSON(t *testing.T) {
	_, err := parseReport(`{"executive_summary": `)
	assert.Error(t, err)
}
