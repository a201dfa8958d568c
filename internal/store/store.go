// Package store persists opportunities, the stage transition log, and
// analysis snapshots. The funnel tracker itself is in-memory; callers load
// state from a Store at startup and write mutations back through it.
package store

import (
	"context"

	"github.com/sells-group/funnel-cli/internal/funnel"
	"github.com/sells-group/funnel-cli/internal/model"
)

// AnalysisFilter specifies criteria for listing saved analyses.
type AnalysisFilter struct {
	OpportunityID string
	Limit         int
}

// Store defines the persistence interface for funnel state and analyses.
type Store interface {
	// Opportunities
	UpsertOpportunities(ctx context.Context, profileID string, opps []model.Opportunity) error
	ListOpportunities(ctx context.Context, profileID string) ([]model.Opportunity, error)
	GetOpportunity(ctx context.Context, profileID, id string) (*model.Opportunity, error)

	// Transition log (append-only)
	AppendTransitions(ctx context.Context, profileID string, transitions []model.StageTransition) error
	ListTransitions(ctx context.Context, profileID string) ([]model.StageTransition, error)

	// Analyses
	SaveAnalysis(ctx context.Context, profileID string, analysis *model.IntegratedAnalysis) error
	ListAnalyses(ctx context.Context, profileID string, filter AnalysisFilter) ([]model.IntegratedAnalysis, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// LoadTracker rehydrates a tracker from a profile's persisted opportunities
// and transition log. Stage state is restored as-is; the persisted log
// replaces the tracker's synthetic initial-add entries.
func LoadTracker(ctx context.Context, s Store, profileID string) (*funnel.Tracker, error) {
	opps, err := s.ListOpportunities(ctx, profileID)
	if err != nil {
		return nil, err
	}
	trs, err := s.ListTransitions(ctx, profileID)
	if err != nil {
		return nil, err
	}
	tr := funnel.NewTracker()
	tr.AddOpportunities(profileID, opps)
	tr.RestoreTransitions(profileID, trs)
	return tr, nil
}
