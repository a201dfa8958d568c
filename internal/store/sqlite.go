package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/funnel-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS opportunities (
	profile_id           TEXT NOT NULL,
	id                   TEXT NOT NULL,
	organization_name    TEXT NOT NULL,
	source_type          TEXT NOT NULL,
	discovery_source     TEXT NOT NULL DEFAULT '',
	funding_amount       REAL,
	application_deadline DATETIME,
	funnel_stage         TEXT NOT NULL,
	stage_updated_at     DATETIME NOT NULL,
	stage_notes          TEXT NOT NULL DEFAULT '',
	compatibility_score  REAL NOT NULL DEFAULT 0,
	confidence_level     REAL NOT NULL DEFAULT 0,
	discovered_at        DATETIME NOT NULL,
	PRIMARY KEY (profile_id, id)
);

CREATE TABLE IF NOT EXISTS stage_transitions (
	seq                 INTEGER PRIMARY KEY AUTOINCREMENT,
	profile_id          TEXT NOT NULL,
	opportunity_id      TEXT NOT NULL,
	from_stage          TEXT,
	to_stage            TEXT NOT NULL,
	at                  DATETIME NOT NULL,
	score_at_transition REAL NOT NULL DEFAULT 0,
	notes               TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS analyses (
	run_id         TEXT PRIMARY KEY,
	profile_id     TEXT NOT NULL,
	opportunity_id TEXT NOT NULL,
	payload        TEXT NOT NULL,
	analyzed_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_opportunities_profile ON opportunities(profile_id);
CREATE INDEX IF NOT EXISTS idx_transitions_profile ON stage_transitions(profile_id);
CREATE INDEX IF NOT EXISTS idx_transitions_opportunity ON stage_transitions(opportunity_id);
CREATE INDEX IF NOT EXISTS idx_analyses_opportunity ON analyses(profile_id, opportunity_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertOpportunities(ctx context.Context, profileID string, opps []model.Opportunity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	const q = `
INSERT INTO opportunities (
	profile_id, id, organization_name, source_type, discovery_source,
	funding_amount, application_deadline, funnel_stage, stage_updated_at,
	stage_notes, compatibility_score, confidence_level, discovered_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (profile_id, id) DO UPDATE SET
	funnel_stage = excluded.funnel_stage,
	stage_updated_at = excluded.stage_updated_at,
	stage_notes = excluded.stage_notes,
	compatibility_score = excluded.compatibility_score,
	confidence_level = excluded.confidence_level`

	for _, opp := range opps {
		if _, err := tx.ExecContext(ctx, q,
			profileID, opp.ID, opp.OrganizationName, string(opp.SourceType),
			opp.DiscoverySource, opp.FundingAmount, opp.ApplicationDeadline,
			string(opp.FunnelStage), opp.StageUpdatedAt, opp.StageNotes,
			opp.CompatibilityScore, opp.ConfidenceLevel, opp.DiscoveredAt,
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert opportunity %s", opp.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit upsert")
}

func (s *SQLiteStore) ListOpportunities(ctx context.Context, profileID string) ([]model.Opportunity, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, organization_name, source_type, discovery_source, funding_amount,
	application_deadline, funnel_stage, stage_updated_at, stage_notes,
	compatibility_score, confidence_level, discovered_at
FROM opportunities WHERE profile_id = ? ORDER BY discovered_at, id`, profileID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list opportunities")
	}
	defer rows.Close() //nolint:errcheck

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
			return nil, eris.Wrap(err, "sqlite: scan opportunity")
		}
		opp.SourceType = model.SourceType(sourceType)
		opp.FunnelStage = model.FunnelStage(stage)
		out = append(out, opp)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate opportunities")
}

// GetOpportunity fetches one opportunity, returning nil when absent.
func (s *SQLiteStore) GetOpportunity(ctx context.Context, profileID, id string) (*model.Opportunity, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, organization_name, source_type, discovery_source, funding_amount,
	application_deadline, funnel_stage, stage_updated_at, stage_notes,
	compatibility_score, confidence_level, discovered_at
FROM opportunities WHERE profile_id = ? AND id = ?`, profileID, id)

	var opp model.Opportunity
	var sourceType, stage string
	err := row.Scan(
		&opp.ID, &opp.OrganizationName, &sourceType, &opp.DiscoverySource,
		&opp.FundingAmount, &opp.ApplicationDeadline, &stage,
		&opp.StageUpdatedAt, &opp.StageNotes, &opp.CompatibilityScore,
		&opp.ConfidenceLevel, &opp.DiscoveredAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get opportunity %s", id)
	}
	opp.SourceType = model.SourceType(sourceType)
	opp.FunnelStage = model.FunnelStage(stage)
	return &opp, nil
}

func (s *SQLiteStore) AppendTransitions(ctx context.Context, profileID string, transitions []model.StageTransition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin append")
	}
	defer tx.Rollback() //nolint:errcheck

	const q = `
INSERT INTO stage_transitions (profile_id, opportunity_id, from_stage, to_stage, at, score_at_transition, notes)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	for _, tr := range transitions {
		var from *string
		if tr.FromStage != nil {
			f := string(*tr.FromStage)
			from = &f
		}
		if _, err := tx.ExecContext(ctx, q,
			profileID, tr.OpportunityID, from, string(tr.ToStage),
			tr.At, tr.ScoreAtTransition, tr.Notes,
		); err != nil {
			return eris.Wrapf(err, "sqlite: append transition %s", tr.OpportunityID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit append")
}

func (s *SQLiteStore) ListTransitions(ctx context.Context, profileID string) ([]model.StageTransition, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT opportunity_id, from_stage, to_stage, at, score_at_transition, notes
FROM stage_transitions WHERE profile_id = ? ORDER BY seq`, profileID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list transitions")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.StageTransition
	for rows.Next() {
		var tr model.StageTransition
		var from *string
		var to string
		if err := rows.Scan(&tr.OpportunityID, &from, &to, &tr.At, &tr.ScoreAtTransition, &tr.Notes); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan transition")
		}
		if from != nil {
			f := model.FunnelStage(*from)
			tr.FromStage = &f
		}
		tr.ToStage = model.FunnelStage(to)
		out = append(out, tr)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate transitions")
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, profileID string, analysis *model.IntegratedAnalysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal analysis")
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO analyses (run_id, profile_id, opportunity_id, payload, analyzed_at)
VALUES (?, ?, ?, ?, ?)`,
		analysis.RunID, profileID, analysis.OpportunityID, string(payload), analysis.AnalyzedAt,
	)
	return eris.Wrapf(err, "sqlite: save analysis %s", analysis.RunID)
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, profileID string, filter AnalysisFilter) ([]model.IntegratedAnalysis, error) {
	q := `SELECT payload FROM analyses WHERE profile_id = ?`
	args := []any{profileID}
	if filter.OpportunityID != "" {
		q += ` AND opportunity_id = ?`
		args = append(args, filter.OpportunityID)
	}
	q += ` ORDER BY analyzed_at DESC`
	if filter.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.IntegratedAnalysis
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		var a model.IntegratedAnalysis
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal analysis")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate analyses")
}
