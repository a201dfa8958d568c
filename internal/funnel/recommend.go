package funnel

import "github.com/sells-group/funnel-cli/internal/model"

// RecommendationType names a rule-based stage suggestion.
type RecommendationType string

const (
	RecommendPromoteToQualified     RecommendationType = "promote_to_qualified"
	RecommendPromoteToCandidates    RecommendationType = "promote_to_candidates"
	RecommendPromoteToTargets       RecommendationType = "promote_to_targets"
	RecommendPromoteToOpportunities RecommendationType = "promote_to_opportunities"
	RecommendConsiderDemotion       RecommendationType = "consider_demotion"
)

// StageRecommendation is an advisory suggestion for one opportunity. It
// never mutates state; acting on it is the caller's call.
type StageRecommendation struct {
	OpportunityID string             `json:"opportunity_id"`
	CurrentStage  model.FunnelStage  `json:"current_stage"`
	Type          RecommendationType `json:"type"`
	Reason        string             `json:"reason"`
}

// StageRecommendations applies the fixed rule table to every opportunity in
// the profile. Thresholds are business rules taken as given.
func (t *Tracker) StageRecommendations(profileID string) []StageRecommendation {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ps, ok := t.profiles[profileID]
	if !ok {
		return nil
	}

	var recs []StageRecommendation
	for _, id := range ps.order {
		opp := ps.opportunities[id]
		score := opp.CompatibilityScore
		conf := opp.ConfidenceLevel

		switch {
		case opp.FunnelStage == model.StageProspects && score > 0.7:
			recs = append(recs, recommendation(opp, RecommendPromoteToQualified,
				"compatibility score above 0.7"))
		case opp.FunnelStage == model.StageQualifiedProspects && score > 0.75:
			recs = append(recs, recommendation(opp, RecommendPromoteToCandidates,
				"compatibility score above 0.75"))
		case opp.FunnelStage == model.StageCandidates && score > 0.8 && conf > 0.7:
			recs = append(recs, recommendation(opp, RecommendPromoteToTargets,
				"score above 0.8 with confidence above 0.7"))
		case opp.FunnelStage == model.StageTargets && score > 0.85 && conf > 0.75:
			recs = append(recs, recommendation(opp, RecommendPromoteToOpportunities,
				"score above 0.85 with confidence above 0.75"))
		}

		if score < 0.3 {
			recs = append(recs, recommendation(opp, RecommendConsiderDemotion,
				"compatibility score below 0.3"))
		}
	}
	return recs
}

func recommendation(opp *model.Opportunity, typ RecommendationType, reason string) StageRecommendation {
	return StageRecommendation{
		OpportunityID: opp.ID,
		CurrentStage:  opp.FunnelStage,
		Type:          typ,
		Reason:        reason,
	}
}
