// Package audit keeps a decision trail of stream analyses and the patches
// they triggered. This is provenance for engineering review, not stream
// storage: readings themselves are never persisted.
package audit

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS stream_runs (
	run_id             TEXT PRIMARY KEY,
	project_id         TEXT,
	source             TEXT NOT NULL,
	design_sbc         REAL NOT NULL,
	reading_count      INTEGER NOT NULL,
	deviation_detected INTEGER NOT NULL,
	deviation_percent  REAL NOT NULL,
	alert_level        TEXT NOT NULL,
	trigger_recal      INTEGER NOT NULL,
	created_at         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS recal_patches (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id            TEXT NOT NULL,
	severity          TEXT NOT NULL,
	structural_action TEXT NOT NULL,
	add_depth_mm      INTEGER NOT NULL,
	add_piles         INTEGER NOT NULL,
	new_risk_band     TEXT NOT NULL,
	cost_delta_cr     REAL NOT NULL,
	requires_approval INTEGER NOT NULL,
	enriched          INTEGER NOT NULL,
	created_at        TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES stream_runs(run_id)
);
`

// #endregion schema

// #region run-source

// Run sources.
const (
	SourceSimulated = "simulated"
	SourceIngested  = "ingested"
)

// #endregion run-source

// #region records

// RunRecord is one analyzed stream run.
type RunRecord struct {
	RunID             string
	ProjectID         string
	Source            string
	DesignSBC         float64
	ReadingCount      int
	DeviationDetected bool
	DeviationPercent  float64
	AlertLevel        string
	TriggerRecal      bool
	CreatedAt         time.Time
}

// PatchRecord is the correction emitted for a run.
type PatchRecord struct {
	RunID            string
	Severity         string
	StructuralAction string
	AddDepthMM       int
	AddPiles         int
	NewRiskBand      string
	CostDeltaCr      float64
	RequiresApproval bool
	Enriched         bool
	CreatedAt        time.Time
}

// #endregion records

// #region store

// Store manages the audit trail in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion store

// #region record-run

// RecordRun inserts a run and returns its ID. A missing RunID or CreatedAt
// is filled in.
func (s *Store) RecordRun(rec RunRecord) (string, error) {
	if rec.RunID == "" {
		rec.RunID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO stream_runs (run_id, project_id, source, design_sbc, reading_count,
		                          deviation_detected, deviation_percent, alert_level, trigger_recal, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		nullIfEmpty(rec.ProjectID),
		rec.Source,
		rec.DesignSBC,
		rec.ReadingCount,
		rec.DeviationDetected,
		rec.DeviationPercent,
		rec.AlertLevel,
		rec.TriggerRecal,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return rec.RunID, nil
}

// #endregion record-run

// #region record-patch

// RecordPatch inserts the patch emitted for a run.
func (s *Store) RecordPatch(rec PatchRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO recal_patches (run_id, severity, structural_action, add_depth_mm, add_piles,
		                            new_risk_band, cost_delta_cr, requires_approval, enriched, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.Severity,
		rec.StructuralAction,
		rec.AddDepthMM,
		rec.AddPiles,
		rec.NewRiskBand,
		rec.CostDeltaCr,
		rec.RequiresApproval,
		rec.Enriched,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record patch: %w", err)
	}
	return nil
}

// #endregion record-patch

// #region list-runs

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, project_id, source, design_sbc, reading_count,
		        deviation_detected, deviation_percent, alert_level, trigger_recal, created_at
		 FROM stream_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// #endregion list-runs

// #region get-run

// GetRun retrieves a single run by ID.
func (s *Store) GetRun(runID string) (RunRecord, error) {
	row := s.db.QueryRow(
		`SELECT run_id, project_id, source, design_sbc, reading_count,
		        deviation_detected, deviation_percent, alert_level, trigger_recal, created_at
		 FROM stream_runs WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return rec, nil
}

// GetPatch retrieves the patch for a run. The second return is false when
// the run never triggered a recalibration.
func (s *Store) GetPatch(runID string) (PatchRecord, bool, error) {
	var rec PatchRecord
	var createdStr string
	err := s.db.QueryRow(
		`SELECT run_id, severity, structural_action, add_depth_mm, add_piles,
		        new_risk_band, cost_delta_cr, requires_approval, enriched, created_at
		 FROM recal_patches WHERE run_id = ? ORDER BY id DESC LIMIT 1`, runID,
	).Scan(&rec.RunID, &rec.Severity, &rec.StructuralAction, &rec.AddDepthMM, &rec.AddPiles,
		&rec.NewRiskBand, &rec.CostDeltaCr, &rec.RequiresApproval, &rec.Enriched, &createdStr)
	if err == sql.ErrNoRows {
		return PatchRecord{}, false, nil
	}
	if err != nil {
		return PatchRecord{}, false, fmt.Errorf("get patch for %s: %w", runID, err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, true, nil
}

// #endregion get-run

// #region helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var rec RunRecord
	var projectID sql.NullString
	var createdStr string
	err := row.Scan(&rec.RunID, &projectID, &rec.Source, &rec.DesignSBC, &rec.ReadingCount,
		&rec.DeviationDetected, &rec.DeviationPercent, &rec.AlertLevel, &rec.TriggerRecal, &createdStr)
	if err != nil {
		return RunRecord{}, err
	}
	if projectID.Valid {
		rec.ProjectID = projectID.String
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
