package model

import "time"

// FunnelStage is one of the five ordered qualification tiers an opportunity
// occupies on its way from raw prospect to active pursuit.
type FunnelStage string

const (
	StageProspects          FunnelStage = "prospects"
	StageQualifiedProspects FunnelStage = "qualified_prospects"
	StageCandidates         FunnelStage = "candidates"
	StageTargets            FunnelStage = "targets"
	StageOpportunities      FunnelStage = "opportunities"
)

// Stages lists the funnel stages in promotion order.
var Stages = []FunnelStage{
	StageProspects,
	StageQualifiedProspects,
	StageCandidates,
	StageTargets,
	StageOpportunities,
}

// stageIndex maps each stage to its position in the funnel order.
var stageIndex = map[FunnelStage]int{
	StageProspects:          0,
	StageQualifiedProspects: 1,
	StageCandidates:         2,
	StageTargets:            3,
	StageOpportunities:      4,
}

// Valid reports whether s is one of the five known stages.
func (s FunnelStage) Valid() bool {
	_, ok := stageIndex[s]
	return ok
}

// Index returns the stage's position in the funnel order, or -1 if unknown.
func (s FunnelStage) Index() int {
	i, ok := stageIndex[s]
	if !ok {
		return -1
	}
	return i
}

// Next returns the following stage and true, or s and false at the terminal
// Opportunities stage (or for an unknown stage).
func (s FunnelStage) Next() (FunnelStage, bool) {
	i := s.Index()
	if i < 0 || i >= len(Stages)-1 {
		return s, false
	}
	return Stages[i+1], true
}

// Prev returns the preceding stage and true, or s and false at Prospects
// (or for an unknown stage).
func (s FunnelStage) Prev() (FunnelStage, bool) {
	i := s.Index()
	if i <= 0 {
		return s, false
	}
	return Stages[i-1], true
}

// SourceType classifies where a funding opportunity originates.
type SourceType string

const (
	SourceNonprofit  SourceType = "nonprofit"
	SourceFoundation SourceType = "foundation"
	SourceGovFederal SourceType = "government-federal"
	SourceGovState   SourceType = "government-state"
	SourceCorporate  SourceType = "corporate"
)

// Opportunity is a funding opportunity moving through the qualification
// funnel. DiscoveredAt is set once at creation and never mutated.
type Opportunity struct {
	ID                  string      `json:"opportunity_id" yaml:"opportunity_id"`
	OrganizationName    string      `json:"organization_name" yaml:"organization_name"`
	SourceType          SourceType  `json:"source_type" yaml:"source_type"`
	DiscoverySource     string      `json:"discovery_source" yaml:"discovery_source"`
	FundingAmount       *float64    `json:"funding_amount,omitempty" yaml:"funding_amount,omitempty"`
	ApplicationDeadline *time.Time  `json:"application_deadline,omitempty" yaml:"application_deadline,omitempty"`
	FunnelStage         FunnelStage `json:"funnel_stage" yaml:"funnel_stage"`
	StageUpdatedAt      time.Time   `json:"stage_updated_at" yaml:"stage_updated_at"`
	StageNotes          string      `json:"stage_notes,omitempty" yaml:"stage_notes,omitempty"`
	CompatibilityScore  float64     `json:"compatibility_score" yaml:"compatibility_score"`
	ConfidenceLevel     float64     `json:"confidence_level" yaml:"confidence_level"`
	DiscoveredAt        time.Time   `json:"discovered_at" yaml:"discovered_at"`
}

// StageTransition is one immutable entry in the append-only transition log.
// FromStage is nil for the initial add. The log is the sole source for
// funnel analytics.
type StageTransition struct {
	OpportunityID     string       `json:"opportunity_id"`
	FromStage         *FunnelStage `json:"from_stage,omitempty"`
	ToStage           FunnelStage  `json:"to_stage"`
	At                time.Time    `json:"at"`
	ScoreAtTransition float64      `json:"score_at_transition"`
	Notes             string       `json:"notes,omitempty"`
}

// Clamp01 bounds v to [0.0, 1.0].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
