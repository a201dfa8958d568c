package model

// ScoringResult is the output of the deterministic compatibility scorer.
type ScoringResult struct {
	OverallScore          float64 `json:"overall_score"`
	ConfidenceLevel       float64 `json:"confidence_level"`
	AutoPromotionEligible bool    `json:"auto_promotion_eligible"`
}

// Fact is a single piece of evidence extracted during research.
type Fact struct {
	Statement  string  `json:"statement"`
	Source     string  `json:"source,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Contact is a person identified during research as a potential point of
// contact at the funding organization.
type Contact struct {
	Name       string  `json:"name"`
	Role       string  `json:"role,omitempty"`
	Email      string  `json:"email,omitempty"`
	Phone      string  `json:"phone,omitempty"`
	Confidence float64 `json:"confidence"`
}

// TokenUsage tracks token consumption for a research call.
type TokenUsage struct {
	Model        string `json:"model,omitempty"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

// ResearchReport is the evidence package produced by the research analyzer
// for one opportunity.
type ResearchReport struct {
	ExecutiveSummary     string             `json:"executive_summary"`
	DetailedFindings     map[string]string  `json:"detailed_findings,omitempty"`
	EvidencePackage      []Fact             `json:"evidence_package,omitempty"`
	ContactsIdentified   []Contact          `json:"contacts_identified,omitempty"`
	Recommendations      []string           `json:"recommendations,omitempty"`
	RiskFactors          []string           `json:"risk_factors,omitempty"`
	ConfidenceAssessment map[string]float64 `json:"confidence_assessment,omitempty"`
	Usage                TokenUsage         `json:"usage,omitempty"`
}

// Confidence returns the analyzer's overall confidence in the report,
// falling back to 0 when the assessment is missing.
func (r *ResearchReport) Confidence() float64 {
	if r == nil || r.ConfidenceAssessment == nil {
		return 0
	}
	return Clamp01(r.ConfidenceAssessment["overall"])
}

// VerifiedContactRatio is the fraction of identified contacts with
// confidence above 0.7. Zero contacts yields 0.
func (r *ResearchReport) VerifiedContactRatio() float64 {
	if r == nil || len(r.ContactsIdentified) == 0 {
		return 0
	}
	verified := 0
	for _, c := range r.ContactsIdentified {
		if c.Confidence > 0.7 {
			verified++
		}
	}
	return float64(verified) / float64(len(r.ContactsIdentified))
}
