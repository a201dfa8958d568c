// Package source loads opportunity and profile input files.
package source

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/funnel-cli/internal/model"
)

// OpportunityFile is the on-disk shape of an opportunity input file.
type OpportunityFile struct {
	ProfileID     string              `yaml:"profile_id"`
	Opportunities []model.Opportunity `yaml:"opportunities"`
}

// LoadOpportunities reads an opportunity file and validates the records.
func LoadOpportunities(path string) (*OpportunityFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read %s", path)
	}

	var file OpportunityFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "source: parse %s", path)
	}

	for i, opp := range file.Opportunities {
		if opp.ID == "" {
			return nil, eris.Errorf("source: opportunity %d missing opportunity_id", i)
		}
		if opp.OrganizationName == "" {
			return nil, eris.Errorf("source: opportunity %s missing organization_name", opp.ID)
		}
		if opp.FundingAmount != nil && *opp.FundingAmount < 0 {
			return nil, eris.Errorf("source: opportunity %s has negative funding_amount", opp.ID)
		}
		if opp.FunnelStage != "" && !opp.FunnelStage.Valid() {
			return nil, eris.Errorf("source: opportunity %s has unknown funnel_stage %q", opp.ID, opp.FunnelStage)
		}
		file.Opportunities[i].CompatibilityScore = model.Clamp01(opp.CompatibilityScore)
		file.Opportunities[i].ConfidenceLevel = model.Clamp01(opp.ConfidenceLevel)
	}

	return &file, nil
}

// LoadProfile reads a profile context file.
func LoadProfile(path string) (*model.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read %s", path)
	}

	var profile model.Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, eris.Wrapf(err, "source: parse %s", path)
	}
	if profile.ID == "" {
		return nil, eris.Errorf("source: profile in %s missing profile_id", path)
	}

	return &profile, nil
}
