// Package research implements the research analyzer contract with Claude:
// it gathers evidence about a funding opportunity and returns a structured
// report the integration engine can weigh against the algorithmic score.
package research

import (
	"context"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/funnel-cli/internal/config"
	"github.com/sells-group/funnel-cli/internal/model"
	"github.com/sells-group/funnel-cli/internal/resilience"
)

// systemPrompt instructs the model to return the evidence report as JSON.
const systemPrompt = `You are researching a funding opportunity on behalf of an organization seeking grants. Using only the information provided, produce an evidence report.

Respond with ONLY valid JSON, no other text:
{
  "executive_summary": "2-4 sentence assessment of fit",
  "detailed_findings": {"topic": "finding"},
  "evidence_package": [{"statement": "", "source": "", "confidence": 0.0}],
  "contacts_identified": [{"name": "", "role": "", "email": "", "confidence": 0.0}],
  "recommendations": ["next action"],
  "risk_factors": ["risk"],
  "confidence_assessment": {"overall": 0.0}
}`

// Messenger is the slice of the Anthropic API the analyzer needs. The SDK
// client satisfies it through sdkMessenger; tests substitute fakes.
type Messenger interface {
	CreateMessage(ctx context.Context, params sdk.MessageNewParams) (*sdk.Message, error)
}

// Analyzer is a Claude-backed research analyzer. It satisfies the engine's
// ResearchAnalyzer contract.
type Analyzer struct {
	client  Messenger
	model   string
	maxTok  int64
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// New creates an Analyzer from config.
func New(cfg config.AnthropicConfig) *Analyzer {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &Analyzer{
		client:  &sdkMessenger{client: sdk.NewClient(option.WithAPIKey(cfg.Key))},
		model:   cfg.Model,
		maxTok:  cfg.MaxTokens,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		retry:   resilience.DefaultRetryConfig(),
	}
}

// NewWithMessenger creates an Analyzer with an explicit Messenger. Used by
// tests and alternative transports.
func NewWithMessenger(m Messenger, modelID string, maxTokens int64) *Analyzer {
	return &Analyzer{
		client:  m,
		model:   modelID,
		maxTok:  maxTokens,
		limiter: rate.NewLimiter(rate.Inf, 1),
		retry:   resilience.DefaultRetryConfig(),
	}
}

// Research produces an evidence report for one opportunity. Calls are rate
// limited and retried on transient failures.
func (a *Analyzer) Research(ctx context.Context, opp model.Opportunity, profile model.Profile) (*model.ResearchReport, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "research: rate limit wait")
	}

	log := zap.L().With(
		zap.String("opportunity_id", opp.ID),
		zap.String("organization", opp.OrganizationName),
	)

	userMsg := buildPrompt(opp, profile)
	retryCfg := a.retry
	retryCfg.OnRetry = resilience.RetryLogger("anthropic", "research")

	msg, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*sdk.Message, error) {
		return a.client.CreateMessage(ctx, sdk.MessageNewParams{
			Model:     sdk.Model(a.model),
			MaxTokens: a.maxTok,
			System:    []sdk.TextBlockParam{{Text: systemPrompt}},
			Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(userMsg))},
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "research: claude request")
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, eris.New("research: empty claude response")
	}

	report, err := parseReport(text)
	if err != nil {
		return nil, err
	}
	report.Usage = model.TokenUsage{
		Model:        string(msg.Model),
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}

	log.Debug("research complete",
		zap.Int("facts", len(report.EvidencePackage)),
		zap.Int("contacts", len(report.ContactsIdentified)),
		zap.Float64("confidence", report.Confidence()),
	)
	return report, nil
}

// buildPrompt renders the opportunity and profile context for the model.
func buildPrompt(opp model.Opportunity, profile model.Profile) string {
	msg := fmt.Sprintf("Funding organization: %s\nSource type: %s\nDiscovered via: %s\n",
		opp.OrganizationName, opp.SourceType, opp.DiscoverySource)
	if opp.FundingAmount != nil {
		msg += fmt.Sprintf("Funding amount: $%.0f\n", *opp.FundingAmount)
	}
	if opp.ApplicationDeadline != nil {
		msg += fmt.Sprintf("Application deadline: %s\n", opp.ApplicationDeadline.Format("2006-01-02"))
	}
	msg += fmt.Sprintf("\nSeeking organization: %s\n", profile.OrganizationName)
	if len(profile.MissionKeywords) > 0 {
		msg += fmt.Sprintf("Mission focus: %v\n", profile.MissionKeywords)
	}
	if profile.MinFunding > 0 || profile.MaxFunding > 0 {
		msg += fmt.Sprintf("Target funding range: $%.0f - $%.0f\n", profile.MinFunding, profile.MaxFunding)
	}
	return msg
}

// sdkMessenger adapts the official SDK client to the Messenger interface.
type sdkMessenger struct {
	client sdk.Client
}

func (s *sdkMessenger) CreateMessage(ctx context.Context, params sdk.MessageNewParams) (*sdk.Message, error) {
	return s.client.Messages.New(ctx, params)
}
