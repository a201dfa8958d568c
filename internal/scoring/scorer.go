// Package scoring implements the deterministic compatibility scorer: a
// weighted rule-based match between an opportunity and the organization
// profile, with no external calls.
package scoring

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/sells-group/funnel-cli/internal/config"
	"github.com/sells-group/funnel-cli/internal/model"
)

// Scorer computes compatibility scores from opportunity and profile
// attributes. It satisfies the engine's ScoringAnalyzer contract.
type Scorer struct {
	cfg config.ScoringConfig
	now func() time.Time
}

// New creates a Scorer with the given weights.
func New(cfg config.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg, now: time.Now}
}

// Score rates one opportunity against the profile. Dimensions: source-type
// affinity, funding-range fit, deadline runway, and mission keyword match.
// Confidence reflects how much of the record was actually present to score.
func (s *Scorer) Score(_ context.Context, opp model.Opportunity, profile model.Profile) (*model.ScoringResult, error) {
	total := weightSum(s.cfg)
	if total <= 0 {
		return &model.ScoringResult{}, nil
	}

	dims := 0
	present := 0

	score := 0.0

	// Source-type affinity.
	dims++
	if opp.SourceType != "" {
		present++
		score += s.cfg.SourceTypeWeight * sourceAffinity(opp.SourceType, profile.PreferredSourceTypes)
	}

	// Funding-range fit.
	dims++
	if opp.FundingAmount != nil {
		present++
		score += s.cfg.FundingFitWeight * fundingFit(*opp.FundingAmount, profile.MinFunding, profile.MaxFunding)
	}

	// Deadline runway.
	dims++
	if opp.ApplicationDeadline != nil {
		present++
		score += s.cfg.DeadlineWeight * deadlineFit(*opp.ApplicationDeadline, s.now().UTC())
	}

	// Mission keyword match against the discovery source and org name.
	dims++
	if len(profile.MissionKeywords) > 0 {
		present++
		score += s.cfg.MissionWeight * missionMatch(opp, profile.MissionKeywords)
	}

	overall := model.Clamp01(score / total)

	// Confidence scales the configured baseline by input completeness.
	confidence := s.cfg.BaselineConfidence
	if confidence <= 0 {
		confidence = 0.6
	}
	confidence = model.Clamp01(confidence * (0.5 + 0.5*float64(present)/float64(dims)))

	cutoff := s.cfg.PromotionCutoff
	if cutoff <= 0 {
		cutoff = 0.8
	}

	return &model.ScoringResult{
		OverallScore:          overall,
		ConfidenceLevel:       confidence,
		AutoPromotionEligible: overall >= cutoff,
	}, nil
}

func weightSum(c config.ScoringConfig) float64 {
	return c.SourceTypeWeight + c.FundingFitWeight + c.DeadlineWeight + c.MissionWeight
}

// sourceAffinity is 1.0 for a preferred source type, 0.5 when no preference
// is stated, and 0.25 for a non-preferred type.
func sourceAffinity(st model.SourceType, preferred []model.SourceType) float64 {
	if len(preferred) == 0 {
		return 0.5
	}
	for _, p := range preferred {
		if p == st {
			return 1.0
		}
	}
	return 0.25
}

// fundingFit is 1.0 inside the profile's range and decays with the log
// distance outside it. An open-ended range passes anything nonnegative.
func fundingFit(amount, minF, maxF float64) float64 {
	if amount < 0 {
		return 0
	}
	if minF <= 0 && maxF <= 0 {
		return 0.5
	}
	if (minF <= 0 || amount >= minF) && (maxF <= 0 || amount <= maxF) {
		return 1.0
	}

	var ratio float64
	if minF > 0 && amount < minF {
		ratio = minF / math.Max(amount, 1)
	} else {
		ratio = amount / math.Max(maxF, 1)
	}
	// One order of magnitude off → 0; halfway (ratio ~3.2x) → 0.5.
	fit := 1.0 - math.Log10(ratio)
	return model.Clamp01(fit)
}

// deadlineFit rewards enough runway to prepare an application: under a week
// is effectively unworkable, 90+ days is full credit.
func deadlineFit(deadline, now time.Time) float64 {
	days := deadline.Sub(now).Hours() / 24
	switch {
	case days < 0:
		return 0
	case days < 7:
		return 0.1
	case days >= 90:
		return 1.0
	default:
		// Linear from 0.1 at 7 days to 1.0 at 90 days.
		return 0.1 + 0.9*(days-7)/(90-7)
	}
}

// missionMatch is the fraction of mission keywords found in the
// opportunity's organization name or discovery source.
func missionMatch(opp model.Opportunity, keywords []string) float64 {
	haystack := strings.ToLower(opp.OrganizationName + " " + opp.DiscoverySource)
	matched := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(haystack, kw) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}
