// Package funnel tracks funding opportunities through the five-stage
// qualification funnel and derives analytics from the stage transition log.
package funnel

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/funnel-cli/internal/model"
)

// profileState holds one profile's opportunities and transition log.
// Opportunity order is insertion order; transitions are append-only.
type profileState struct {
	order         []string
	opportunities map[string]*model.Opportunity
	transitions   []model.StageTransition
}

// Tracker maintains per-profile funnel state. All mutations are serialized
// behind a single mutex; reads take the same lock and copy out, so callers
// never see partially applied writes.
type Tracker struct {
	mu       sync.RWMutex
	profiles map[string]*profileState
	now      func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		profiles: make(map[string]*profileState),
		now:      time.Now,
	}
}

func (t *Tracker) profile(profileID string) *profileState {
	ps, ok := t.profiles[profileID]
	if !ok {
		ps = &profileState{opportunities: make(map[string]*model.Opportunity)}
		t.profiles[profileID] = ps
	}
	return ps
}

// AddOpportunities appends new records to the profile and logs an initial
// nil → starting-stage transition for each. Records without a stage start
// at Prospects. Dedup is the caller's responsibility.
func (t *Tracker) AddOpportunities(profileID string, opps []model.Opportunity) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	ps := t.profile(profileID)
	now := t.now().UTC()

	added := 0
	for _, opp := range opps {
		if opp.ID == "" {
			continue
		}
		if !opp.FunnelStage.Valid() {
			opp.FunnelStage = model.StageProspects
		}
		if opp.DiscoveredAt.IsZero() {
			opp.DiscoveredAt = now
		}
		if opp.StageUpdatedAt.IsZero() {
			opp.StageUpdatedAt = now
		}
		opp.CompatibilityScore = model.Clamp01(opp.CompatibilityScore)
		opp.ConfidenceLevel = model.Clamp01(opp.ConfidenceLevel)

		rec := opp
		ps.opportunities[rec.ID] = &rec
		ps.order = append(ps.order, rec.ID)
		ps.transitions = append(ps.transitions, model.StageTransition{
			OpportunityID:     rec.ID,
			FromStage:         nil,
			ToStage:           rec.FunnelStage,
			At:                now,
			ScoreAtTransition: rec.CompatibilityScore,
			Notes:             rec.StageNotes,
		})
		added++
	}

	zap.L().Debug("funnel: opportunities added",
		zap.String("profile_id", profileID),
		zap.Int("added", added),
	)
	return added
}

// Promote moves one opportunity forward a single stage. It reports false at
// the terminal Opportunities stage or for an unknown id.
func (t *Tracker) Promote(profileID, opportunityID, notes string) bool {
	return t.step(profileID, opportunityID, notes, true)
}

// Demote moves one opportunity back a single stage. It reports false at
// Prospects or for an unknown id.
func (t *Tracker) Demote(profileID, opportunityID, notes string) bool {
	return t.step(profileID, opportunityID, notes, false)
}

func (t *Tracker) step(profileID, opportunityID, notes string, forward bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	ps, ok := t.profiles[profileID]
	if !ok {
		return false
	}
	opp, ok := ps.opportunities[opportunityID]
	if !ok {
		return false
	}

	var next model.FunnelStage
	if forward {
		next, ok = opp.FunnelStage.Next()
	} else {
		next, ok = opp.FunnelStage.Prev()
	}
	if !ok {
		return false
	}

	t.applyTransition(ps, opp, next, notes)
	return true
}

// SetStage jumps an opportunity to an arbitrary stage, logging the
// transition like any other mutation. Used for manual overrides.
func (t *Tracker) SetStage(profileID, opportunityID string, target model.FunnelStage, notes string) bool {
	if !target.Valid() {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ps, ok := t.profiles[profileID]
	if !ok {
		return false
	}
	opp, ok := ps.opportunities[opportunityID]
	if !ok {
		return false
	}

	t.applyTransition(ps, opp, target, notes)
	return true
}

// BulkTransition applies SetStage independently to each id and returns a
// per-id success map. A failed id never aborts the rest.
func (t *Tracker) BulkTransition(profileID string, ids []string, target model.FunnelStage, notes string) map[string]bool {
	results := make(map[string]bool, len(ids))
	for _, id := range ids {
		results[id] = t.SetStage(profileID, id, target, notes)
	}
	return results
}

// applyTransition mutates the record and appends the log entry. Caller
// holds the write lock.
func (t *Tracker) applyTransition(ps *profileState, opp *model.Opportunity, target model.FunnelStage, notes string) {
	from := opp.FunnelStage
	now := t.now().UTC()

	opp.FunnelStage = target
	opp.StageUpdatedAt = now
	if notes != "" {
		opp.StageNotes = notes
	}

	ps.transitions = append(ps.transitions, model.StageTransition{
		OpportunityID:     opp.ID,
		FromStage:         &from,
		ToStage:           target,
		At:                now,
		ScoreAtTransition: opp.CompatibilityScore,
		Notes:             notes,
	})
}

// RestoreTransitions replaces the profile's transition log with a
// persisted one. Used when rehydrating a tracker from storage, where the
// synthetic initial-add entries would otherwise undercount history.
func (t *Tracker) RestoreTransitions(profileID string, transitions []model.StageTransition) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ps := t.profile(profileID)
	ps.transitions = make([]model.StageTransition, len(transitions))
	copy(ps.transitions, transitions)
}

// UpdateScore sets an opportunity's compatibility score and confidence,
// clamped to [0,1]. Reports false for unknown ids.
func (t *Tracker) UpdateScore(profileID, opportunityID string, score, confidence float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	ps, ok := t.profiles[profileID]
	if !ok {
		return false
	}
	opp, ok := ps.opportunities[opportunityID]
	if !ok {
		return false
	}

	opp.CompatibilityScore = model.Clamp01(score)
	opp.ConfidenceLevel = model.Clamp01(confidence)
	return true
}

// Get returns a copy of one opportunity, or false if unknown.
func (t *Tracker) Get(profileID, opportunityID string) (model.Opportunity, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ps, ok := t.profiles[profileID]
	if !ok {
		return model.Opportunity{}, false
	}
	opp, ok := ps.opportunities[opportunityID]
	if !ok {
		return model.Opportunity{}, false
	}
	return *opp, true
}

// All returns copies of the profile's opportunities in insertion order.
// An unknown profile yields an empty slice.
func (t *Tracker) All(profileID string) []model.Opportunity {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ps, ok := t.profiles[profileID]
	if !ok {
		return nil
	}

	out := make([]model.Opportunity, 0, len(ps.order))
	for _, id := range ps.order {
		out = append(out, *ps.opportunities[id])
	}
	return out
}

// OpportunitiesByStage returns copies of the profile's opportunities
// currently at the given stage, in insertion order.
func (t *Tracker) OpportunitiesByStage(profileID string, stage model.FunnelStage) []model.Opportunity {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ps, ok := t.profiles[profileID]
	if !ok {
		return nil
	}

	var out []model.Opportunity
	for _, id := range ps.order {
		if opp := ps.opportunities[id]; opp.FunnelStage == stage {
			out = append(out, *opp)
		}
	}
	return out
}

// Transitions returns a copy of the profile's append-only transition log.
func (t *Tracker) Transitions(profileID string) []model.StageTransition {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ps, ok := t.profiles[profileID]
	if !ok {
		return nil
	}

	out := make([]model.StageTransition, len(ps.transitions))
	copy(out, ps.transitions)
	return out
}
