package model

import "time"

// RecommendedAction is the unified go/no-go decision for an opportunity.
type RecommendedAction string

const (
	ActionStrongGo            RecommendedAction = "strong_go"
	ActionConditionalGo       RecommendedAction = "conditional_go"
	ActionProceedWithCaution  RecommendedAction = "proceed_with_caution"
	ActionNoGo                RecommendedAction = "no_go"
	ActionErrorReviewRequired RecommendedAction = "error_review_required"
)

// CostBreakdown itemizes the external-call spend for one analysis run.
type CostBreakdown struct {
	Components map[string]float64 `json:"components,omitempty"`
	TotalCost  float64            `json:"total_cost"`
}

// IntegratedAnalysis is the unified result of one analysis run: the
// deterministic compatibility score merged with research evidence into a
// single confidence-weighted score and a recommended action. It is a value
// object — re-running analysis produces a fresh record, never an update.
type IntegratedAnalysis struct {
	RunID            string `json:"run_id"`
	OpportunityID    string `json:"opportunity_id"`
	OrganizationName string `json:"organization_name"`

	ScoringResults       *ScoringResult  `json:"scoring_results,omitempty"`
	ResearchReport       *ResearchReport `json:"research_report,omitempty"`
	ResearchQualityScore float64         `json:"research_quality_score"`

	IntegratedScore      float64 `json:"integrated_score"`
	IntegratedConfidence float64 `json:"integrated_confidence"`
	EvidenceStrength     float64 `json:"evidence_strength"`
	ResearchImpactFactor float64 `json:"research_impact_factor"`

	RecommendedAction  RecommendedAction `json:"recommended_action"`
	DecisionConfidence float64           `json:"decision_confidence"`
	NextSteps          []string          `json:"next_steps,omitempty"`
	RiskFactors        []string          `json:"risk_factors,omitempty"`

	CostBreakdown  CostBreakdown `json:"cost_breakdown"`
	ProcessingTime time.Duration `json:"processing_time_ns"`
	AnalyzedAt     time.Time     `json:"analyzed_at"`
	Error          string        `json:"error,omitempty"`
}

// Profile is the organization context handed to the scoring and research
// analyzers: who is seeking funding and what they are looking for.
type Profile struct {
	ID                   string       `json:"profile_id" yaml:"profile_id"`
	OrganizationName     string       `json:"organization_name" yaml:"organization_name"`
	MissionKeywords      []string     `json:"mission_keywords,omitempty" yaml:"mission_keywords,omitempty"`
	PreferredSourceTypes []SourceType `json:"preferred_source_types,omitempty" yaml:"preferred_source_types,omitempty"`
	MinFunding           float64      `json:"min_funding,omitempty" yaml:"min_funding,omitempty"`
	MaxFunding           float64      `json:"max_funding,omitempty" yaml:"max_funding,omitempty"`
	States               []string     `json:"states,omitempty" yaml:"states,omitempty"`
}
