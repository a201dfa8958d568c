package research

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/funnel-cli/internal/model"
)

// parseReport extracts the JSON report from a model response, tolerating
// surrounding prose, and clamps all confidence values to [0,1].
func parseReport(text string) (*model.ResearchReport, error) {
	jsonStart := strings.Index(text, "{")
	jsonEnd := strings.LastIndex(text, "}")
	if jsonStart < 0 || jsonEnd < 0 || jsonEnd <= jsonStart {
		return nil, eris.Errorf("research: no JSON in response: %.120s", text)
	}

	var report model.ResearchReport
	if err := json.Unmarshal([]byte(text[jsonStart:jsonEnd+1]), &report); err != nil {
		return nil, eris.Wrap(err, "research: parse response JSON")
	}

	for i := range report.EvidencePackage {
		report.EvidencePackage[i].Confidence = model.Clamp01(report.EvidencePackage[i].Confidence)
	}
	for i := range report.ContactsIdentified {
		report.ContactsIdentified[i].Confidence = model.Clamp01(report.ContactsIdentified[i].Confidence)
	}
	for k, v := range report.ConfidenceAssessment {
		report.ConfidenceAssessment[k] = model.Clamp01(v)
	}

	return &report, nil
}
