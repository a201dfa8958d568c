package research

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/funnel-cli/internal/model"
	"github.com/sells-group/funnel-cli/internal/resilience"
)

// fakeMessenger returns canned responses, failing the first failures calls.
type fakeMessenger struct {
	response *sdk.Message
	err      error
	failures int
	calls    int
	params   []sdk.MessageNewParams
}

func (f *fakeMessenger) CreateMessage(_ context.Context, params sdk.MessageNewParams) (*sdk.Message, error) {
	f.calls++
	f.params = append(f.params, params)
	if f.calls <= f.failures {
		return nil, resilience.NewTransientError(eris.New("overloaded"), 529)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func textMessage(text string) *sdk.Message {
	return &sdk.Message{
		Model:   "claude-sonnet-4-5-20250929",
		Content: []sdk.ContentBlockUnion{{Type: "text", Text: text}},
		Usage:   sdk.Usage{InputTokens: 800, OutputTokens: 300},
	}
}

const reportJSON = `{
	"executive_summary": "Well aligned with the applicant's stated mission and funding range.",
	"evidence_package": [{"statement": "active grant cycle", "confidence": 0.8}],
	"contacts_identified": [{"name": "J. Okafor", "confidence": 0.9}],
	"recommendations": ["request program guidelines"],
	"confidence_assessment": {"overall": 0.8}
}`

func testResearchOpp() model.Opportunity {
	return model.Opportunity{
		ID:               "opp-1",
		OrganizationName: "Harbor Light Foundation",
		SourceType:       model.SourceFoundation,
		DiscoverySource:  "grants database",
	}
}

func TestResearch(t *testing.T) {
	fake := &fakeMessenger{response: textMessage(reportJSON)}
	a := NewWithMessenger(fake, "claude-sonnet-4-5-20250929", 2048)

	report, err := a.Research(context.Background(), testResearchOpp(), model.Profile{
		OrganizationName: "Youth STEM Alliance",
		MissionKeywords:  []string{"stem"},
	})
	require.NoError(t, err)

	assert.Len(t, report.EvidencePackage, 1)
	assert.Equal(t, "J. Okafor", report.ContactsIdentified[0].Name)
	assert.InDelta(t, 0.8, report.Confidence(), 0.001)

	// Token usage is carried through for cost accounting.
	assert.Equal(t, "claude-sonnet-4-5-20250929", report.Usage.Model)
	assert.Equal(t, int64(800), report.Usage.InputTokens)
	assert.Equal(t, int64(300), report.Usage.OutputTokens)

	// The request carries both sides of the match.
	require.Len(t, fake.params, 1)
	assert.Equal(t, sdk.Model("claude-sonnet-4-5-20250929"), fake.params[0].Model)
	assert.Equal(t, int64(2048), fake.params[0].MaxTokens)
}

func TestResearchRetriesTransientErrors(t *testing.T) {
	fake := &fakeMessenger{response: textMessage(reportJSON), failures: 2}
	a := NewWithMessenger(fake, "claude-sonnet-4-5-20250929", 1024)
	a.retry.InitialBackoff = 1 // keep the test fast

	report, err := a.Research(context.Background(), testResearchOpp(), model.Profile{})
	require.NoError(t, err)
	assert.Equal(t, 3, fake.calls)
	assert.NotNil(t, report)
}

func TestResearchGivesUpAfterRetries(t *testing.T) {
	fake := &fakeMessenger{response: textMessage(reportJSON), failures: 10}
	a := NewWithMessenger(fake, "claude-sonnet-4-5-20250929", 1024)
	a.retry.InitialBackoff = 1

	_, err := a.Research(context.Background(), testResearchOpp(), model.Profile{})
	assert.Error(t, err)
	assert.Equal(t, 3, fake.calls)
}

func TestResearchNonRetryableError(t *testing.T) {
	fake := &fakeMessenger{err: eris.New("invalid api key")}
	a := NewWithMessenger(fake, "claude-sonnet-4-5-20250929", 1024)

	_, err := a.Research(context.Background(), testResearchOpp(), model.Profile{})
	assert.Error(t, err)
	assert.Equal(t, 1, fake.calls)
}

func TestResearchEmptyResponse(t *testing.T) {
	fake := &fakeMessenger{response: &sdk.Message{}}
	a := NewWithMessenger(fake, "claude-sonnet-4-5-20250929", 1024)

	_, err := a.Research(context.Background(), testResearchOpp(), model.Profile{})
	assert.Error(t, err)
}

func TestBuildPrompt(t *testing.T) {
	amount := 75000.0
	opp := testResearchOpp()
	opp.FundingAmount = &amount

	prompt := buildPrompt(opp, model.Profile{
		OrganizationName: "Youth STEM Alliance",
		MissionKeywords:  []string{"stem", "education"},
		MinFunding:       25000,
		MaxFunding:       100000,
	})

	assert.Contains(t, prompt, "Harbor Light Foundation")
	assert.Contains(t, prompt, "$75000")
	assert.Contains(t, prompt, "Youth STEM Alliance")
	assert.Contains(t, prompt, "stem")
	assert.Contains(t, prompt, "$25000 - $100000")
}
