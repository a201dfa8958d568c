package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/funnel-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleOpp(id string) model.Opportunity {
	amount := 50000.0
	return model.Opportunity{
		ID:                 id,
		OrganizationName:   "Org " + id,
		SourceType:         model.SourceFoundation,
		DiscoverySource:    "grants database",
		FundingAmount:      &amount,
		FunnelStage:        model.StageProspects,
		StageUpdatedAt:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		CompatibilityScore: 0.6,
		ConfidenceLevel:    0.5,
		DiscoveredAt:       time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteUpsertAndList(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertOpportunities(ctx, "p1", []model.Opportunity{
		sampleOpp("a"), sampleOpp("b"),
	}))

	got, err := s.ListOpportunities(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, model.SourceFoundation, got[0].SourceType)
	require.NotNil(t, got[0].FundingAmount)
	assert.Equal(t, 50000.0, *got[0].FundingAmount)

	// Upsert updates stage fields in place.
	updated := sampleOpp("a")
	updated.FunnelStage = model.StageCandidates
	updated.CompatibilityScore = 0.9
	require.NoError(t, s.UpsertOpportunities(ctx, "p1", []model.Opportunity{updated}))

	got, err = s.ListOpportunities(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.StageCandidates, got[0].FunnelStage)
	assert.Equal(t, 0.9, got[0].CompatibilityScore)
}

func TestSQLiteProfileIsolation(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertOpportunities(ctx, "p1", []model.Opportunity{sampleOpp("a")}))
	require.NoError(t, s.UpsertOpportunities(ctx, "p2", []model.Opportunity{sampleOpp("a"), sampleOpp("b")}))

	got1, err := s.ListOpportunities(ctx, "p1")
	require.NoError(t, err)
	got2, err := s.ListOpportunities(ctx, "p2")
	require.NoError(t, err)
	assert.Len(t, got1, 1)
	assert.Len(t, got2, 2)
}

func TestSQLiteGetOpportunity(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertOpportunities(ctx, "p1", []model.Opportunity{sampleOpp("a")}))

	got, err := s.GetOpportunity(ctx, "p1", "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Org a", got.OrganizationName)
	assert.Equal(t, model.StageProspects, got.FunnelStage)
	require.NotNil(t, got.FundingAmount)
	assert.Equal(t, 50000.0, *got.FundingAmount)

	// Absent id and wrong profile both return nil without error.
	missing, err := s.GetOpportunity(ctx, "p1", "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)

	otherProfile, err := s.GetOpportunity(ctx, "p2", "a")
	require.NoError(t, err)
	assert.Nil(t, otherProfile)
}

func TestSQLiteTransitions(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	from := model.StageProspects
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendTransitions(ctx, "p1", []model.StageTransition{
		{OpportunityID: "a", FromStage: nil, ToStage: model.StageProspects, At: at, ScoreAtTransition: 0.5},
		{OpportunityID: "a", FromStage: &from, ToStage: model.StageQualifiedProspects, At: at.Add(time.Hour), Notes: "promoted"},
	}))

	got, err := s.ListTransitions(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Nil(t, got[0].FromStage)
	assert.Equal(t, model.StageProspects, got[0].ToStage)
	require.NotNil(t, got[1].FromStage)
	assert.Equal(t, model.StageProspects, *got[1].FromStage)
	assert.Equal(t, "promoted", got[1].Notes)
}

func TestSQLiteAnalyses(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, run := range []struct {
		runID, oppID string
	}{
		{"run-1", "a"}, {"run-2", "a"}, {"run-3", "b"},
	} {
		require.NoError(t, s.SaveAnalysis(ctx, "p1", &model.IntegratedAnalysis{
			RunID:             run.runID,
			OpportunityID:     run.oppID,
			IntegratedScore:   0.7,
			RecommendedAction: model.ActionConditionalGo,
			AnalyzedAt:        base.Add(time.Duration(i) * time.Hour),
		}))
	}

	all, err := s.ListAnalyses(ctx, "p1", AnalysisFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Most recent first.
	assert.Equal(t, "run-3", all[0].RunID)

	forA, err := s.ListAnalyses(ctx, "p1", AnalysisFilter{OpportunityID: "a"})
	require.NoError(t, err)
	assert.Len(t, forA, 2)

	limited, err := s.ListAnalyses(ctx, "p1", AnalysisFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "run-3", limited[0].RunID)
	assert.Equal(t, model.ActionConditionalGo, limited[0].RecommendedAction)
}

func TestLoadTrackerRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	opp := sampleOpp("a")
	opp.FunnelStage = model.StageCandidates
	require.NoError(t, s.UpsertOpportunities(ctx, "p1", []model.Opportunity{opp}))

	from := model.StageProspects
	require.NoError(t, s.AppendTransitions(ctx, "p1", []model.StageTransition{
		{OpportunityID: "a", ToStage: model.StageProspects, At: opp.DiscoveredAt},
		{OpportunityID: "a", FromStage: &from, ToStage: model.StageCandidates, At: opp.StageUpdatedAt},
	}))

	tracker, err := LoadTracker(ctx, s, "p1")
	require.NoError(t, err)

	got, ok := tracker.Get("p1", "a")
	require.True(t, ok)
	assert.Equal(t, model.StageCandidates, got.FunnelStage)
	assert.True(t, got.StageUpdatedAt.Equal(opp.StageUpdatedAt))

	// The persisted log replaces the synthetic initial-add entry.
	transitions := tracker.Transitions("p1")
	require.Len(t, transitions, 2)
	assert.Equal(t, model.StageCandidates, transitions[1].ToStage)
}
