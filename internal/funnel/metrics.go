package funnel

import (
	"sort"
	"time"

	"github.com/sells-group/funnel-cli/internal/model"
)

// MetricsConfig configures funnel analytics thresholds.
type MetricsConfig struct {
	// StalledThreshold marks opportunities whose stage has not changed
	// within this window. Default 14 days.
	StalledThreshold time.Duration

	// TopPerformerCount bounds the top-performers list. Default 5.
	TopPerformerCount int
}

// DefaultMetricsConfig returns the standard analytics thresholds.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		StalledThreshold:  14 * 24 * time.Hour,
		TopPerformerCount: 5,
	}
}

// StalledOpportunity pairs an opportunity with how long it has sat in its
// current stage.
type StalledOpportunity struct {
	Opportunity model.Opportunity `json:"opportunity"`
	DaysStalled int               `json:"days_stalled"`
}

// Metrics is a point-in-time analytics snapshot derived from the
// opportunity set and its transition log.
type Metrics struct {
	ProfileID          string `json:"profile_id"`
	TotalOpportunities int    `json:"total_opportunities"`

	// StageDistribution counts opportunities currently at each stage.
	StageDistribution map[model.FunnelStage]int `json:"stage_distribution"`

	// ConversionRates is the percentage of all opportunities ever added
	// that currently sit at or beyond each stage. Prospects is always 100.
	ConversionRates map[model.FunnelStage]float64 `json:"conversion_rates"`

	// AvgStageDurationHours is the mean time spent in each stage, over all
	// opportunities that have ever left that stage.
	AvgStageDurationHours map[model.FunnelStage]float64 `json:"avg_stage_duration_hours"`

	// VelocityDays is the mean age in days (now minus discovered-at),
	// grouped by current stage.
	VelocityDays map[model.FunnelStage]float64 `json:"velocity_days"`

	TopPerformers        []model.Opportunity  `json:"top_performers"`
	StalledOpportunities []StalledOpportunity `json:"stalled_opportunities"`

	ComputedAt time.Time `json:"computed_at"`
}

// FunnelMetrics computes the full analytics snapshot for a profile. An
// unknown or empty profile yields a zero-valued snapshot, not an error.
func (t *Tracker) FunnelMetrics(profileID string, cfg MetricsConfig) Metrics {
	if cfg.StalledThreshold <= 0 {
		cfg.StalledThreshold = 14 * 24 * time.Hour
	}
	if cfg.TopPerformerCount <= 0 {
		cfg.TopPerformerCount = 5
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now().UTC()
	m := Metrics{
		ProfileID:             profileID,
		StageDistribution:     make(map[model.FunnelStage]int),
		ConversionRates:       make(map[model.FunnelStage]float64),
		AvgStageDurationHours: make(map[model.FunnelStage]float64),
		VelocityDays:          make(map[model.FunnelStage]float64),
		ComputedAt:            now,
	}
	for _, s := range model.Stages {
		m.StageDistribution[s] = 0
		m.ConversionRates[s] = 0
	}

	ps, ok := t.profiles[profileID]
	if !ok || len(ps.opportunities) == 0 {
		return m
	}

	// Total ever added = initial transitions in the log.
	totalEver := 0
	for _, tr := range ps.transitions {
		if tr.FromStage == nil {
			totalEver++
		}
	}
	m.TotalOpportunities = len(ps.opportunities)

	// Distribution and velocity.
	ageSum := make(map[model.FunnelStage]float64)
	for _, id := range ps.order {
		opp := ps.opportunities[id]
		m.StageDistribution[opp.FunnelStage]++
		ageSum[opp.FunnelStage] += now.Sub(opp.DiscoveredAt).Hours() / 24
	}
	for stage, count := range m.StageDistribution {
		if count > 0 {
			m.VelocityDays[stage] = ageSum[stage] / float64(count)
		}
	}

	// Conversion: share currently at or beyond each stage.
	if totalEver > 0 {
		for _, stage := range model.Stages {
			atOrBeyond := 0
			for _, opp := range ps.opportunities {
				if opp.FunnelStage.Index() >= stage.Index() {
					atOrBeyond++
				}
			}
			m.ConversionRates[stage] = float64(atOrBeyond) / float64(totalEver) * 100
		}
	}
	m.ConversionRates[model.StageProspects] = 100

	m.AvgStageDurationHours = stageDurations(ps.transitions)
	m.TopPerformers = topPerformers(ps, cfg.TopPerformerCount)
	m.StalledOpportunities = stalled(ps, now, cfg.StalledThreshold)

	return m
}

// IdentifyStalledOpportunities returns opportunities whose stage has not
// changed within the threshold, sorted by days stalled descending.
func (t *Tracker) IdentifyStalledOpportunities(profileID string, threshold time.Duration) []StalledOpportunity {
	if threshold <= 0 {
		threshold = 14 * 24 * time.Hour
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	ps, ok := t.profiles[profileID]
	if !ok {
		return nil
	}
	return stalled(ps, t.now().UTC(), threshold)
}

// stageDurations computes mean hours-in-stage per stage from the transition
// log. A stay counts only once the opportunity has left the stage: the
// duration is entry transition to the next transition for the same id.
func stageDurations(transitions []model.StageTransition) map[model.FunnelStage]float64 {
	byOpp := make(map[string][]model.StageTransition)
	for _, tr := range transitions {
		byOpp[tr.OpportunityID] = append(byOpp[tr.OpportunityID], tr)
	}

	sums := make(map[model.FunnelStage]float64)
	counts := make(map[model.FunnelStage]int)
	for _, trs := range byOpp {
		for i := 0; i < len(trs)-1; i++ {
			stage := trs[i].ToStage
			hours := trs[i+1].At.Sub(trs[i].At).Hours()
			sums[stage] += hours
			counts[stage]++
		}
	}

	out := make(map[model.FunnelStage]float64)
	for stage, n := range counts {
		out[stage] = sums[stage] / float64(n)
	}
	return out
}

func topPerformers(ps *profileState, n int) []model.Opportunity {
	all := make([]model.Opportunity, 0, len(ps.order))
	for _, id := range ps.order {
		all = append(all, *ps.opportunities[id])
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CompatibilityScore > all[j].CompatibilityScore
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

func stalled(ps *profileState, now time.Time, threshold time.Duration) []StalledOpportunity {
	var out []StalledOpportunity
	for _, id := range ps.order {
		opp := ps.opportunities[id]
		idle := now.Sub(opp.StageUpdatedAt)
		if idle > threshold {
			out = append(out, StalledOpportunity{
				Opportunity: *opp,
				DaysStalled: int(idle.Hours() / 24),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysStalled > out[j].DaysStalled
	})
	return out
}
