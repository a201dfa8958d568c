package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/funnel-cli/internal/config"
	"github.com/sells-group/funnel-cli/internal/cost"
	"github.com/sells-group/funnel-cli/internal/engine"
	"github.com/sells-group/funnel-cli/internal/funnel"
	"github.com/sells-group/funnel-cli/internal/research"
	"github.com/sells-group/funnel-cli/internal/scoring"
	"github.com/sells-group/funnel-cli/internal/store"
)

// openStore creates the configured store backend and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "postgres":
		s, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite", "":
		s, err = store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// buildEngine wires the scoring and research analyzers into an integration
// engine from config. Research is only wired when an API key is present.
func buildEngine(includeResearch bool) *engine.Engine {
	var researcher engine.ResearchAnalyzer
	if includeResearch && cfg.Anthropic.Key != "" {
		researcher = research.New(cfg.Anthropic)
	}

	rates := cost.Rates{Anthropic: make(map[string]cost.ModelRate, len(cfg.Pricing.Anthropic))}
	for m, p := range cfg.Pricing.Anthropic {
		rates.Anthropic[m] = cost.ModelRate{Input: p.Input, Output: p.Output}
	}

	return engine.New(
		scoring.New(cfg.Scoring),
		researcher,
		engine.Weights{
			ScoringWeight:  cfg.Integration.ScoringWeight,
			ResearchWeight: cfg.Integration.ResearchWeight,
			EvidenceBoost:  cfg.Integration.EvidenceBoost,
			QualityPenalty: cfg.Integration.QualityPenalty,
		},
		cost.NewCalculator(rates),
	)
}

// metricsConfig translates the funnel config section for the tracker.
func metricsConfig(c config.FunnelConfig) funnel.MetricsConfig {
	return funnel.MetricsConfig{
		StalledThreshold:  time.Duration(c.StalledThresholdDays) * 24 * time.Hour,
		TopPerformerCount: c.TopPerformerCount,
	}
}
