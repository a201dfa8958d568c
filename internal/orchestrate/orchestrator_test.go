package orchestrate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/funnel-cli/internal/engine"
	"github.com/sells-group/funnel-cli/internal/model"
)

// selectiveScorer panics for ids in failOn, otherwise returns a fixed score.
type selectiveScorer struct {
	failOn map[string]bool
	score  float64
	conf   float64
}

func (s *selectiveScorer) Score(_ context.Context, opp model.Opportunity, _ model.Profile) (*model.ScoringResult, error) {
	if s.failOn[opp.ID] {
		panic("scorer failure for " + opp.ID)
	}
	return &model.ScoringResult{OverallScore: s.score, ConfidenceLevel: s.conf}, nil
}

func testEngine(scorer engine.ScoringAnalyzer) *engine.Engine {
	return engine.New(scorer, nil, engine.Weights{}, nil)
}

func makeOpps(n int) []model.Opportunity {
	opps := make([]model.Opportunity, n)
	for i := range opps {
		opps[i] = model.Opportunity{
			ID:               string(rune('a' + i)),
			OrganizationName: "Org",
			FunnelStage:      model.StageProspects,
		}
	}
	return opps
}

func TestRunBatchEmpty(t *testing.T) {
	orch := New(testEngine(&selectiveScorer{}), model.Profile{})
	res := orch.RunBatch(context.Background(), nil, Options{})
	assert.Equal(t, 0, res.Succeeded)
	assert.Equal(t, 0, res.Failed)
	assert.Empty(t, res.Analyses)
}

func TestRunBatchAllSucceed(t *testing.T) {
	scorer := &selectiveScorer{score: 0.7, conf: 0.7}
	orch := New(testEngine(scorer), model.Profile{})

	opps := makeOpps(7)
	res := orch.RunBatch(context.Background(), opps, Options{BatchSize: 3})

	assert.Equal(t, 7, res.Succeeded)
	assert.Equal(t, 0, res.Failed)
	require.Len(t, res.Analyses, 7)

	// Output preserves input order even though items run concurrently.
	for i, a := range res.Analyses {
		assert.Equal(t, opps[i].ID, a.OpportunityID)
	}
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	scorer := &selectiveScorer{score: 0.7, conf: 0.7, failOn: map[string]bool{"c": true}}
	orch := New(testEngine(scorer), model.Profile{})

	opps := makeOpps(5)
	res := orch.RunBatch(context.Background(), opps, Options{BatchSize: 2})

	assert.Equal(t, 4, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Analyses, 5)

	// The failed item still occupies its slot as an error-review record.
	assert.Equal(t, model.ActionErrorReviewRequired, res.Analyses[2].RecommendedAction)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "c", res.Errors[0].OpportunityID)
	assert.Contains(t, res.Errors[0].Message, "scorer failure")
}

func TestRunBatchQualityDistribution(t *testing.T) {
	scorer := &selectiveScorer{score: 0.7, conf: 0.9, failOn: map[string]bool{"b": true}}
	orch := New(testEngine(scorer), model.Profile{})

	res := orch.RunBatch(context.Background(), makeOpps(3), Options{})

	assert.Equal(t, 2, res.Quality.High)
	assert.Equal(t, 1, res.Quality.Error)
	assert.Equal(t, 0, res.Quality.Medium)
	assert.Equal(t, 0, res.Quality.Low)
}

func TestRunBatchCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := New(testEngine(&selectiveScorer{score: 0.7, conf: 0.7}), model.Profile{})
	opps := makeOpps(4)
	res := orch.RunBatch(ctx, opps, Options{})

	assert.Empty(t, res.Analyses)
	assert.Equal(t, 4, res.Failed)
	require.Len(t, res.Errors, 4)
	for i, e := range res.Errors {
		assert.Equal(t, opps[i].ID, e.OpportunityID)
		assert.Equal(t, "cancelled before processing", e.Message)
	}
	assert.Equal(t, 0.0, res.TotalCost)
	assert.Equal(t, 0.0, res.AvgCost)
}

func TestRunBatchCancelDuringPacingDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	orch := New(testEngine(&selectiveScorer{score: 0.7, conf: 0.7}), model.Profile{})
	opps := makeOpps(4)

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	res := orch.RunBatch(ctx, opps, Options{
		CostOptimization: true,
		BatchSize:        2,
		CostDelay:        5 * time.Second,
	})

	// First batch completed; the second never started.
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "cancelled before processing", res.Errors[0].Message)
}

func TestOptionsDefaults(t *testing.T) {
	assert.Equal(t, 10, Options{}.batchSize())
	assert.Equal(t, 5, Options{CostOptimization: true}.batchSize())
	assert.Equal(t, 7, Options{BatchSize: 7, CostOptimization: true}.batchSize())
	assert.Equal(t, 2*time.Second, Options{}.costDelay())
	assert.Equal(t, time.Second, Options{CostDelay: time.Second}.costDelay())
}

func TestQualityDistributionBuckets(t *testing.T) {
	analyses := []*model.IntegratedAnalysis{
		{IntegratedConfidence: 0.9},
		{IntegratedConfidence: 0.8},
		{IntegratedConfidence: 0.7},
		{IntegratedConfidence: 0.2},
		{RecommendedAction: model.ActionErrorReviewRequired, IntegratedConfidence: 0.9},
	}
	q := qualityDistribution(analyses)
	assert.Equal(t, 2, q.High)
	assert.Equal(t, 1, q.Medium)
	assert.Equal(t, 1, q.Low)
	assert.Equal(t, 1, q.Error)
}
