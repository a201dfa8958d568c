package engine

import "github.com/sells-group/funnel-cli/internal/model"

// combined holds the combine-phase outputs.
type combined struct {
	score            float64
	confidence       float64
	evidenceStrength float64
	impact           float64
}

// combine merges the base compatibility score with research evidence.
//
// With research: the research impact factor is a weighted sum of quality,
// contacts (cap 5), facts (cap 10), and recommendations (cap 5); the
// integrated score reweights base against impact, then an evidence-strength
// boost (+EvidenceBoost above 0.8) or weak-evidence penalty (−QualityPenalty
// below 0.4) applies before clamping. Without research the base score and
// scoring confidence pass through untouched.
func combine(scoring *model.ScoringResult, report *model.ResearchReport, quality float64, researchRan bool, w Weights) combined {
	base := 0.0
	scoringConf := 0.0
	if scoring != nil {
		base = scoring.OverallScore
		scoringConf = scoring.ConfidenceLevel
	}

	if !researchRan {
		return combined{
			score:      model.Clamp01(base),
			confidence: model.Clamp01(scoringConf),
		}
	}

	impact := quality*0.4 +
		capRatio(len(report.ContactsIdentified), 5)*0.2 +
		capRatio(len(report.EvidencePackage), 10)*0.2 +
		capRatio(len(report.Recommendations), 5)*0.2

	score := base*w.ScoringWeight + impact*w.ResearchWeight

	researchConf := report.Confidence()
	strength := researchConf*0.4 + quality*0.3 + report.VerifiedContactRatio()*0.3

	switch {
	case strength > 0.8:
		score += w.EvidenceBoost
	case strength < 0.4:
		score -= w.QualityPenalty
	}

	return combined{
		score:            model.Clamp01(score),
		confidence:       model.Clamp01(scoringConf*w.ScoringWeight + researchConf*w.ResearchWeight),
		evidenceStrength: model.Clamp01(strength),
		impact:           model.Clamp01(impact),
	}
}
