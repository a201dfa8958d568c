// Package engine merges the deterministic compatibility score with research
// evidence into a single confidence-weighted score and recommended action.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/funnel-cli/internal/cost"
	"github.com/sells-group/funnel-cli/internal/model"
)

// ScoringAnalyzer produces a deterministic compatibility score for one
// opportunity. A failure degrades scoring confidence to 0; it never aborts
// the run.
type ScoringAnalyzer interface {
	Score(ctx context.Context, opp model.Opportunity, profile model.Profile) (*model.ScoringResult, error)
}

// ResearchAnalyzer produces an evidence report for one opportunity. It is
// optional; a failure degrades research quality to 0 and the run proceeds
// scoring-only.
type ResearchAnalyzer interface {
	Research(ctx context.Context, opp model.Opportunity, profile model.Profile) (*model.ResearchReport, error)
}

// Weights controls the combine phase. Zero values fall back to defaults.
type Weights struct {
	ScoringWeight  float64
	ResearchWeight float64
	EvidenceBoost  float64
	QualityPenalty float64
}

// DefaultWeights returns the standard combination weights.
func DefaultWeights() Weights {
	return Weights{
		ScoringWeight:  0.7,
		ResearchWeight: 0.3,
		EvidenceBoost:  0.1,
		QualityPenalty: 0.05,
	}
}

func (w Weights) withDefaults() Weights {
	d := DefaultWeights()
	if w.ScoringWeight <= 0 && w.ResearchWeight <= 0 {
		w.ScoringWeight = d.ScoringWeight
		w.ResearchWeight = d.ResearchWeight
	}
	if w.EvidenceBoost == 0 {
		w.EvidenceBoost = d.EvidenceBoost
	}
	if w.QualityPenalty == 0 {
		w.QualityPenalty = d.QualityPenalty
	}
	return w
}

// Options controls one analysis run.
type Options struct {
	IncludeResearch bool
}

// Engine runs the integration pipeline for single opportunities.
type Engine struct {
	scorer   ScoringAnalyzer
	research ResearchAnalyzer
	weights  Weights
	costs    *cost.Calculator
	now      func() time.Time
}

// New creates an Engine. research may be nil when no research analyzer is
// wired; runs requesting research then proceed scoring-only.
func New(scorer ScoringAnalyzer, research ResearchAnalyzer, weights Weights, costs *cost.Calculator) *Engine {
	if costs == nil {
		costs = cost.NewCalculator(cost.DefaultRates())
	}
	return &Engine{
		scorer:   scorer,
		research: research,
		weights:  weights.withDefaults(),
		costs:    costs,
		now:      time.Now,
	}
}

// Analyze runs the full pipeline for one opportunity:
// scoring → optional research → combine → decision.
//
// It always returns a complete analysis. Analyzer failures degrade
// confidence and surface as risk factors; a panic anywhere in the run
// yields a terminal error_review_required analysis instead of escaping to
// the caller.
func (e *Engine) Analyze(ctx context.Context, opp model.Opportunity, profile model.Profile, opts Options) (analysis *model.IntegratedAnalysis) {
	started := e.now().UTC()
	log := zap.L().With(
		zap.String("opportunity_id", opp.ID),
		zap.String("organization", opp.OrganizationName),
	)

	analysis = &model.IntegratedAnalysis{
		RunID:            uuid.New().String(),
		OpportunityID:    opp.ID,
		OrganizationName: opp.OrganizationName,
		AnalyzedAt:       started,
		CostBreakdown:    model.CostBreakdown{Components: make(map[string]float64)},
	}

	defer func() {
		analysis.ProcessingTime = e.now().UTC().Sub(started)
		if r := recover(); r != nil {
			log.Error("analysis run panicked", zap.Any("panic", r))
			analysis.RecommendedAction = model.ActionErrorReviewRequired
			analysis.Error = fmt.Sprintf("analysis run failed: %v", r)
			analysis.NextSteps = []string{"manual review required before any outreach"}
		}
	}()

	// Scoring phase.
	scoring, scoringFailed := e.runScoring(ctx, opp, profile, log)
	analysis.ScoringResults = scoring

	// Research phase.
	var report *model.ResearchReport
	researchRan := false
	researchFailed := false
	if opts.IncludeResearch && e.research != nil {
		report, researchFailed = e.runResearch(ctx, opp, profile, log)
		researchRan = report != nil
		analysis.ResearchReport = report
		analysis.ResearchQualityScore = researchQualityScore(report)
		if report != nil {
			analysis.CostBreakdown.Components["research"] = e.costs.Tokens(
				report.Usage.Model, report.Usage.InputTokens, report.Usage.OutputTokens)
		}
	}
	for _, c := range analysis.CostBreakdown.Components {
		analysis.CostBreakdown.TotalCost += c
	}

	// Combine phase.
	combined := combine(scoring, report, analysis.ResearchQualityScore, researchRan, e.weights)
	analysis.IntegratedScore = combined.score
	analysis.IntegratedConfidence = combined.confidence
	analysis.EvidenceStrength = combined.evidenceStrength
	analysis.ResearchImpactFactor = combined.impact

	// Decision phase.
	decide(analysis, decisionInput{
		scoring:        scoring,
		report:         report,
		researchRan:    researchRan,
		scoringFailed:  scoringFailed,
		researchFailed: researchFailed,
	})

	log.Info("analysis complete",
		zap.Float64("integrated_score", analysis.IntegratedScore),
		zap.Float64("integrated_confidence", analysis.IntegratedConfidence),
		zap.String("action", string(analysis.RecommendedAction)),
	)
	return analysis
}

// runScoring reuses the record's score when present, otherwise calls the
// scoring analyzer. On failure it returns a zero-confidence result.
func (e *Engine) runScoring(ctx context.Context, opp model.Opportunity, profile model.Profile, log *zap.Logger) (*model.ScoringResult, bool) {
	if opp.CompatibilityScore > 0 || opp.ConfidenceLevel > 0 {
		return &model.ScoringResult{
			OverallScore:    model.Clamp01(opp.CompatibilityScore),
			ConfidenceLevel: model.Clamp01(opp.ConfidenceLevel),
		}, false
	}

	if e.scorer == nil {
		log.Warn("no scoring analyzer wired, degrading confidence to 0")
		return &model.ScoringResult{}, true
	}

	result, err := e.scorer.Score(ctx, opp, profile)
	if err != nil || result == nil {
		log.Warn("scoring failed, degrading confidence to 0", zap.Error(err))
		return &model.ScoringResult{}, true
	}

	result.OverallScore = model.Clamp01(result.OverallScore)
	result.ConfidenceLevel = model.Clamp01(result.ConfidenceLevel)
	return result, false
}

// runResearch calls the research analyzer. On failure the run proceeds
// scoring-only with quality 0.
func (e *Engine) runResearch(ctx context.Context, opp model.Opportunity, profile model.Profile, log *zap.Logger) (*model.ResearchReport, bool) {
	report, err := e.research.Research(ctx, opp, profile)
	if err != nil || report == nil {
		log.Warn("research failed, proceeding scoring-only", zap.Error(err))
		return nil, true
	}
	return report, false
}
