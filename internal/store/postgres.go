package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/funnel-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock's pool
// interface satisfies it, which keeps the store unit-testable without a
// live database.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS opportunities (
	profile_id           TEXT NOT NULL,
	id                   TEXT NOT NULL,
	organization_name    TEXT NOT NULL,
	source_type          TEXT NOT NULL,
	discovery_source     TEXT NOT NULL DEFAULT '',
	funding_amount       DOUBLE PRECISION,
	application_deadline TIMESTAMPTZ,
	funnel_stage         TEXT NOT NULL,
	stage_updated_at     TIMESTAMPTZ NOT NULL,
	stage_notes          TEXT NOT NULL DEFAULT '',
	compatibility_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
	confidence_level     DOUBLE PRECISION NOT NULL DEFAULT 0,
	discovered_at        TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (profile_id, id)
);

CREATE TABLE IF NOT EXISTS stage_transitions (
	seq                 BIGSERIAL PRIMARY KEY,
	profile_id          TEXT NOT NULL,
	opportunity_id      TEXT NOT NULL,
	from_stage          TEXT,
	to_stage            TEXT NOT NULL,
	at                  TIMESTAMPTZ NOT NULL,
	score_at_transition DOUBLE PRECISION NOT NULL DEFAULT 0,
	notes               TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS analyses (
	run_id         TEXT PRIMARY KEY,
	profile_id     TEXT NOT NULL,
	opportunity_id TEXT NOT NULL,
	payload        JSONB NOT NULL,
	analyzed_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_opportunities_profile ON opportunities(profile_id);
CREATE INDEX IF NOT EXISTS idx_transitions_profile ON stage_transitions(profile_id);
CREATE INDEX IF NOT EXISTS idx_transitions_opportunity ON stage_transitions(opportunity_id);
CREATE INDEX IF NOT EXISTS idx_analyses_opportunity ON analyses(profile_id, opportunity_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertOpportunities(ctx context.Context, profileID string, opps []model.Opportunity) error {
	const q = `
INSERT INTO opportunities (
	profile_id, id, organization_name, source_type, discovery_source,
	funding_amount, application_deadline, funnel_stage, stage_updated_at,
	stage_notes, compatibility_score, confidence_level, discovered_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (profile_id, id) DO UPDATE SET
	funnel_stage = EXCLUDED.funnel_stage,
	stage_updated_at = EXCLUDED.stage_updated_at,
	stage_notes = EXCLUDED.stage_notes,
	compatibility_score = EXCLUDED.compatibility_score,
	confidence_level = EXCLUDED.confidence_level`

	for _, opp := range opps {
		if _, err := s.pool.Exec(ctx, q,
			profileID, opp.ID, opp.OrganizationName, string(opp.SourceType),
			opp.DiscoverySource, opp.FundingAmount, opp.ApplicationDeadline,
			string(opp.FunnelStage), opp.StageUpdatedAt, opp.StageNotes,
			opp.CompatibilityScore, opp.ConfidenceLevel, opp.DiscoveredAt,
		); err != nil {
			return eris.Wrapf(err, "postgres: upsert opportunity %s", opp.ID)
		}
	}
	return nil
}

func (s *PostgresStore) ListOpportunities(ctx context.Context, profileID string) ([]model.Opportunity, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, organization_name, source_type, discovery_source, funding_amount,
	application_deadline, funnel_stage, stage_updated_at, stage_notes,
	compatibility_score, confidence_level, discovered_at
FROM opportunities WHERE profile_id = $1 ORDER BY discovered_at, id`, profileID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list opportunities")
	}
	defer rows.Close()

	var out []model.Opportunity
	for rows.Next() {
		var opp model.Opportunity
		var sourceType, stage string
		if err := rows.Scan(
			&opp.ID, &opp.OrganizationName, &sourceType, &opp.DiscoverySource,
			&opp.FundingAmount, &opp.ApplicationDeadline, &stage,
			&opp.StageUpdatedAt, &opp.StageNotes, &opp.CompatibilityScore,
			&opp.ConfidenceLevel, &opp.DiscoveredAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan opportunity")
		}
		opp.SourceType = model.SourceType(sourceType)
		opp.FunnelStage = model.FunnelStage(stage)
		out = append(out, opp)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate opportunities")
}

func (s *PostgresStore) AppendTransitions(ctx context.Context, profileID string, transitions []model.StageTransition) error {
	const q = `
INSERT INTO stage_transitions (profile_id, opportunity_id, from_stage, to_stage, at, score_at_transition, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, tr := range transitions {
		var from *string
		if tr.FromStage != nil {
			f := string(*tr.FromStage)
			from = &f
		}
		if _, err := s.pool.Exec(ctx, q,
			profileID, tr.OpportunityID, from, string(tr.ToStage),
			tr.At, tr.ScoreAtTransition, tr.Notes,
		); err != nil {
			return eris.Wrapf(err, "postgres: append transition %s", tr.OpportunityID)
		}
	}
	return nil
}

func (s *PostgresStore) ListTransitions(ctx context.Context, profileID string) ([]model.StageTransition, error) {
	rows, err := s.pool.Query(ctx, `
SELECT opportunity_id, from_stage, to_stage, at, score_at_transition, notes
FROM stage_transitions WHERE profile_id = $1 ORDER BY seq`, profileID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list transitions")
	}
	defer rows.Close()

	var out []model.StageTransition
	for rows.Next() {
		var tr model.StageTransition
		var from *string
		var to string
		if err := rows.Scan(&tr.OpportunityID, &from, &to, &tr.At, &tr.ScoreAtTransition, &tr.Notes); err != nil {
			return nil, eris.Wrap(err, "postgres: scan transition")
		}
		if from != nil {
			f := model.FunnelStage(*from)
			tr.FromStage = &f
		}
		tr.ToStage = model.FunnelStage(to)
		out = append(out, tr)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate transitions")
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, profileID string, analysis *model.IntegratedAnalysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal analysis")
	}

	_, err = s.pool.Exec(ctx, `
INSERT INTO analyses (run_id, profile_id, opportunity_id, payload, analyzed_at)
VALUES ($1, $2, $3, $4, $5)`,
		analysis.RunID, profileID, analysis.OpportunityID, payload, analysis.AnalyzedAt,
	)
	return eris.Wrapf(err, "postgres: save analysis %s", analysis.RunID)
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, profileID string, filter AnalysisFilter) ([]model.IntegratedAnalysis, error) {
	q := `SELECT payload FROM analyses WHERE profile_id = $1`
	args := []any{profileID}
	if filter.OpportunityID != "" {
		q += ` AND opportunity_id = $2`
		args = append(args, filter.OpportunityID)
	}
	q += ` ORDER BY analyzed_at DESC`
	if filter.Limit > 0 {
		q += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var out []model.IntegratedAnalysis
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		var a model.IntegratedAnalysis
		if err := json.Unmarshal(payload, &a); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal analysis")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate analyses")
}

// GetOpportunity fetches one opportunity, returning nil when absent.
func (s *PostgresStore) GetOpportunity(ctx context.Context, profileID, id string) (*model.Opportunity, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, organization_name, source_type, discovery_source, funding_amount,
	application_deadline, funnel_stage, stage_updated_at, stage_notes,
	compatibility_score, confidence_level, discovered_at
FROM opportunities WHERE profile_id = $1 AND id = $2`, profileID, id)

	var opp model.Opportunity
	var sourceType, stage string
	err := row.Scan(
		&opp.ID, &opp.OrganizationName, &sourceType, &opp.DiscoverySource,
		&opp.FundingAmount, &opp.ApplicationDeadline, &stage,
		&opp.StageUpdatedAt, &opp.StageNotes, &opp.CompatibilityScore,
		&opp.ConfidenceLevel, &opp.DiscoveredAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get opportunity %s", id)
	}
	opp.SourceType = model.SourceType(sourceType)
	opp.FunnelStage = model.FunnelStage(stage)
	return &opp, nil
}
