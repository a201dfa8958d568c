package engine

import "github.com/sells-group/funnel-cli/internal/model"

// decisionInput carries what the decision phase needs beyond the analysis
// record itself.
type decisionInput struct {
	scoring        *model.ScoringResult
	report         *model.ResearchReport
	researchRan    bool
	scoringFailed  bool
	researchFailed bool
}

// decide maps the integrated score and confidence to a recommended action,
// then assembles risk factors and next steps from the fixed rule tables.
// Thresholds are business rules taken as given.
func decide(a *model.IntegratedAnalysis, in decisionInput) {
	score := a.IntegratedScore
	conf := a.IntegratedConfidence

	switch {
	case score >= 0.8 && conf >= 0.8:
		a.RecommendedAction = model.ActionStrongGo
	case score >= 0.6 && conf >= 0.6:
		a.RecommendedAction = model.ActionConditionalGo
	case score >= 0.4:
		a.RecommendedAction = model.ActionProceedWithCaution
	default:
		a.RecommendedAction = model.ActionNoGo
	}

	a.DecisionConfidence = model.Clamp01(conf*0.6 + a.EvidenceStrength*0.4)
	a.RiskFactors = riskFactors(a, in)
	a.NextSteps = nextSteps(a.RecommendedAction, in)
}

// riskFactors applies the threshold rule table, folds in risks surfaced by
// the research report, and removes duplicates preserving order.
func riskFactors(a *model.IntegratedAnalysis, in decisionInput) []string {
	var risks []string

	if in.scoringFailed {
		risks = append(risks, "algorithmic scoring unavailable for this opportunity")
	}
	if in.scoring != nil && in.scoring.ConfidenceLevel < 0.6 {
		risks = append(risks, "low confidence in algorithmic scoring")
	}
	if in.researchFailed {
		risks = append(risks, "research analysis failed; decision based on scoring only")
	}
	if in.researchRan {
		if len(in.report.ContactsIdentified) == 0 {
			risks = append(risks, "no direct contact information identified")
		}
		if a.ResearchQualityScore < 0.4 {
			risks = append(risks, "research evidence is thin or low quality")
		}
		if a.EvidenceStrength < 0.4 {
			risks = append(risks, "weak supporting evidence for the compatibility score")
		}
		risks = append(risks, in.report.RiskFactors...)
	}

	return dedupe(risks)
}

// nextSteps returns the ordered follow-up list for an action.
func nextSteps(action model.RecommendedAction, in decisionInput) []string {
	switch action {
	case model.ActionStrongGo:
		steps := []string{
			"prepare letter of inquiry or application draft",
			"confirm submission requirements and deadline",
		}
		if in.researchRan && len(in.report.ContactsIdentified) > 0 {
			steps = append(steps, "initiate outreach to identified contacts")
		}
		return steps
	case model.ActionConditionalGo:
		return []string{
			"verify fit against published funding priorities",
			"resolve open risk factors before committing effort",
		}
	case model.ActionProceedWithCaution:
		return []string{
			"gather additional evidence before investing in an application",
			"re-run analysis with research enabled",
		}
	case model.ActionErrorReviewRequired:
		return []string{"manual review required before any outreach"}
	default:
		return []string{"deprioritize; revisit if profile or opportunity changes"}
	}
}

// dedupe removes duplicate strings preserving first-seen order.
func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, s := range items {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
