package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Integration IntegrationConfig `yaml:"integration" mapstructure:"integration"`
	Funnel      FunnelConfig      `yaml:"funnel" mapstructure:"funnel"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Scoring     ScoringConfig     `yaml:"scoring" mapstructure:"scoring"`
	Pricing     PricingConfig     `yaml:"pricing" mapstructure:"pricing"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings for the research analyzer.
type AnthropicConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	Model             string  `yaml:"model" mapstructure:"model"`
	MaxTokens         int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// IntegrationConfig holds the weights and adjustments for combining the
// algorithmic score with research evidence.
type IntegrationConfig struct {
	ScoringWeight  float64 `yaml:"scoring_weight" mapstructure:"scoring_weight"`
	ResearchWeight float64 `yaml:"research_weight" mapstructure:"research_weight"`
	EvidenceBoost  float64 `yaml:"evidence_boost" mapstructure:"evidence_boost"`
	QualityPenalty float64 `yaml:"quality_penalty" mapstructure:"quality_penalty"`
}

// FunnelConfig configures funnel analytics.
type FunnelConfig struct {
	StalledThresholdDays int `yaml:"stalled_threshold_days" mapstructure:"stalled_threshold_days"`
	TopPerformerCount    int `yaml:"top_performer_count" mapstructure:"top_performer_count"`
}

// BatchConfig configures batch orchestration.
type BatchConfig struct {
	CostOptimizedSize int `yaml:"cost_optimized_size" mapstructure:"cost_optimized_size"`
	StandardSize      int `yaml:"standard_size" mapstructure:"standard_size"`
	CostDelaySecs     int `yaml:"cost_delay_secs" mapstructure:"cost_delay_secs"`
}

// ScoringConfig holds the compatibility scorer weights. Weights sum to 100.
type ScoringConfig struct {
	SourceTypeWeight   float64 `yaml:"source_type_weight" mapstructure:"source_type_weight"`
	FundingFitWeight   float64 `yaml:"funding_fit_weight" mapstructure:"funding_fit_weight"`
	DeadlineWeight     float64 `yaml:"deadline_weight" mapstructure:"deadline_weight"`
	MissionWeight      float64 `yaml:"mission_weight" mapstructure:"mission_weight"`
	PromotionCutoff    float64 `yaml:"promotion_cutoff" mapstructure:"promotion_cutoff"`
	BaselineConfidence float64 `yaml:"baseline_confidence" mapstructure:"baseline_confidence"`
}

// PricingConfig holds per-model token pricing (USD per million tokens).
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelPricing holds per-model token pricing.
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// ServerConfig configures the read-only HTTP surface.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FUNNEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "funnel.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("integration.scoring_weight", 0.7)
	v.SetDefault("integration.research_weight", 0.3)
	v.SetDefault("integration.evidence_boost", 0.1)
	v.SetDefault("integration.quality_penalty", 0.05)
	v.SetDefault("funnel.stalled_threshold_days", 14)
	v.SetDefault("funnel.top_performer_count", 5)
	v.SetDefault("batch.cost_optimized_size", 5)
	v.SetDefault("batch.standard_size", 10)
	v.SetDefault("batch.cost_delay_secs", 2)
	v.SetDefault("scoring.source_type_weight", 30)
	v.SetDefault("scoring.funding_fit_weight", 25)
	v.SetDefault("scoring.deadline_weight", 20)
	v.SetDefault("scoring.mission_weight", 25)
	v.SetDefault("scoring.promotion_cutoff", 0.8)
	v.SetDefault("scoring.baseline_confidence", 0.6)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("anthropic.requests_per_second", 2)
	v.SetDefault("pricing.anthropic.claude-haiku-4-5-20251001.input", 0.80)
	v.SetDefault("pricing.anthropic.claude-haiku-4-5-20251001.output", 4.00)
	v.SetDefault("pricing.anthropic.claude-sonnet-4-5-20250929.input", 3.00)
	v.SetDefault("pricing.anthropic.claude-sonnet-4-5-20250929.output", 15.00)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
