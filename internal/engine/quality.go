package engine

import (
	"strings"

	"github.com/sells-group/funnel-cli/internal/model"
)

// minSubstantiveSummary is the trimmed length below which an executive
// summary does not count toward research quality.
const minSubstantiveSummary = 50

// researchQualityScore rates a report on five equally weighted factors:
// a substantive summary, detailed findings, extracted facts (cap 5),
// identified contacts (cap 3), and recommendations (cap 3).
func researchQualityScore(report *model.ResearchReport) float64 {
	if report == nil {
		return 0
	}

	score := 0.0
	if len(strings.TrimSpace(report.ExecutiveSummary)) >= minSubstantiveSummary {
		score += 0.2
	}
	if len(report.DetailedFindings) > 0 {
		score += 0.2
	}
	score += 0.2 * capRatio(len(report.EvidencePackage), 5)
	score += 0.2 * capRatio(len(report.ContactsIdentified), 3)
	score += 0.2 * capRatio(len(report.Recommendations), 3)

	return model.Clamp01(score)
}

// capRatio normalizes a count against a cap, saturating at 1.0.
func capRatio(count, cap int) float64 {
	if count >= cap {
		return 1
	}
	if count <= 0 {
		return 0
	}
	return float64(count) / float64(cap)
}
