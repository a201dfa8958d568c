package orchestrate

import "github.com/sells-group/funnel-cli/internal/model"

// QualityDistribution buckets completed analyses by integrated confidence:
// high ≥ 0.8, medium ≥ 0.6, low < 0.6, with error runs counted separately.
type QualityDistribution struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
	Error  int `json:"error"`
}

func qualityDistribution(analyses []*model.IntegratedAnalysis) QualityDistribution {
	var q QualityDistribution
	for _, a := range analyses {
		switch {
		case a.RecommendedAction == model.ActionErrorReviewRequired:
			q.Error++
		case a.IntegratedConfidence >= 0.8:
			q.High++
		case a.IntegratedConfidence >= 0.6:
			q.Medium++
		default:
			q.Low++
		}
	}
	return q
}
