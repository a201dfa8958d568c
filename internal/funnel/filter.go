package funnel

import "github.com/sells-group/funnel-cli/internal/model"

// Filter selects opportunities by stage, minimum score, and source type.
// Nil/zero fields are ignored; provided fields combine with AND semantics.
type Filter struct {
	Stage      *model.FunnelStage
	MinScore   *float64
	SourceType *model.SourceType
}

// ApplyFilter returns the opportunities matching every provided criterion.
// It is a stateless predicate over the input slice.
func ApplyFilter(opps []model.Opportunity, f Filter) []model.Opportunity {
	var out []model.Opportunity
	for _, opp := range opps {
		if f.Stage != nil && opp.FunnelStage != *f.Stage {
			continue
		}
		if f.MinScore != nil && opp.CompatibilityScore < *f.MinScore {
			continue
		}
		if f.SourceType != nil && opp.SourceType != *f.SourceType {
			continue
		}
		out = append(out, opp)
	}
	return out
}
