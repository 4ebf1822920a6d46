// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evidence persists extracted StudyRecords and their outcomes in a
// SQLite database with a full-text index over outcome sentences.
package evidence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/evidence-extractor/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "evidence.db"
)

// Store manages the evidence SQLite database.
type Store struct {
	db          *sql.DB
	evidenceDir string
	maxResults  int
	now         func() time.Time
}

// NewStore opens or creates the evidence database at
// evidenceDir/index/evidence.db and creates the schema if needed.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.EvidenceDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:          db,
		evidenceDir: cfg.EvidenceDir,
		maxResults:  maxResults,
		now:         time.Now,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// IndexDir returns the directory holding the database and exports.
func (s *Store) IndexDir() string {
	return filepath.Join(s.evidenceDir, indexDir)
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			stored INTEGER NOT NULL DEFAULT 0,
			updated INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS studies (
			study_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			year INTEGER,
			study_design TEXT NOT NULL,
			review_type TEXT NOT NULL,
			preprint_status TEXT,
			source TEXT,
			sample_size INTEGER,
			citation TEXT,
			engine TEXT NOT NULL,
			fallback_reason TEXT,
			run_id TEXT REFERENCES runs(id),
			record TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			study_id TEXT NOT NULL REFERENCES studies(study_id),
			position INTEGER NOT NULL,
			outcome_measured TEXT NOT NULL,
			citation_snippet TEXT NOT NULL,
			intervention TEXT,
			comparator TEXT,
			effect_size TEXT,
			p_value TEXT,
			confidence REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_study_id ON outcomes(study_id)`,
		`CREATE INDEX IF NOT EXISTS idx_studies_design ON studies(study_design)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS4 external-content table kept in sync by triggers.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='outcomes_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE outcomes_fts USING fts4(content="outcomes", outcome_measured, citation_snippet)`,
			`CREATE TRIGGER outcomes_bd BEFORE DELETE ON outcomes BEGIN
				DELETE FROM outcomes_fts WHERE docid = old.rowid;
			END`,
			`CREATE TRIGGER outcomes_bu BEFORE UPDATE ON outcomes BEGIN
				DELETE FROM outcomes_fts WHERE docid = old.rowid;
			END`,
			`CREATE TRIGGER outcomes_ai AFTER INSERT ON outcomes BEGIN
				INSERT INTO outcomes_fts(docid, outcome_measured, citation_snippet)
				VALUES (new.rowid, new.outcome_measured, new.citation_snippet);
			END`,
			`CREATE TRIGGER outcomes_au AFTER UPDATE ON outcomes BEGIN
				INSERT INTO outcomes_fts(docid, outcome_measured, citation_snippet)
				VALUES (new.rowid, new.outcome_measured, new.citation_snippet);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from one ingest run.
type IngestSummary struct {
	RunID   string
	Stored  int
	Updated int
	Skipped int
}

// Total returns the number of items processed.
func (s IngestSummary) Total() int {
	return s.Stored + s.Updated + s.Skipped
}

// OutcomeID returns the stable identifier of the outcome at position i of
// a study.
func OutcomeID(studyID string, i int) string {
	return fmt.Sprintf("%s-o%d", studyID, i+1)
}

// Ingest stores every successful item of a batch response. Items that
// carry an error are skipped. Re-ingesting a study replaces its outcomes.
// One status line per item is written to w.
func (s *Store) Ingest(ctx context.Context, items []types.ExtractionItem, w io.Writer) (IngestSummary, error) {
	summary := IngestSummary{RunID: uuid.New().String()}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		summary.RunID, s.now().UTC().Format(time.RFC3339),
	); err != nil {
		return summary, fmt.Errorf("recording run: %w", err)
	}

	for _, it := range items {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		if it.Failed() {
			fmt.Fprintf(w, "skipped %s\n", it.StudyID)
			summary.Skipped++
			continue
		}

		isUpdate, err := s.ingestStudy(ctx, summary.RunID, it)
		if err != nil {
			return summary, fmt.Errorf("storing %s: %w", it.StudyID, err)
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d outcomes)\n", it.StudyID, len(it.Study.Outcomes))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "stored  %s (%d outcomes)\n", it.StudyID, len(it.Study.Outcomes))
			summary.Stored++
		}
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE runs SET stored = ?, updated = ?, skipped = ? WHERE id = ?`,
		summary.Stored, summary.Updated, summary.Skipped, summary.RunID,
	); err != nil {
		return summary, fmt.Errorf("finishing run: %w", err)
	}

	return summary, nil
}

func (s *Store) ingestStudy(ctx context.Context, runID string, it types.ExtractionItem) (bool, error) {
	rec := it.Study
	diag := it.Diagnostics
	if diag == nil {
		diag = &types.Diagnostics{Engine: types.EngineAbstract}
	}

	record, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("encoding record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM studies WHERE study_id = ?`, rec.StudyID,
	).Scan(&existing); err != nil {
		return false, fmt.Errorf("checking study: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM outcomes WHERE study_id = ?`, rec.StudyID); err != nil {
		return false, fmt.Errorf("deleting old outcomes: %w", err)
	}

	var sampleSize sql.NullInt64
	if rec.SampleSize != nil {
		sampleSize = sql.NullInt64{Int64: int64(*rec.SampleSize), Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO studies (study_id, title, year, study_design, review_type, preprint_status,
			source, sample_size, citation, engine, fallback_reason, run_id, record)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(study_id) DO UPDATE SET
			title=excluded.title, year=excluded.year, study_design=excluded.study_design,
			review_type=excluded.review_type, preprint_status=excluded.preprint_status,
			source=excluded.source, sample_size=excluded.sample_size, citation=excluded.citation,
			engine=excluded.engine, fallback_reason=excluded.fallback_reason,
			run_id=excluded.run_id, record=excluded.record`,
		rec.StudyID, rec.Title, rec.Year, string(rec.StudyDesign), string(rec.ReviewType),
		string(rec.PreprintStatus), string(rec.Source), sampleSize, rec.Citation.Formatted,
		string(diag.Engine), diag.FallbackReason, runID, string(record),
	)
	if err != nil {
		return false, fmt.Errorf("upserting study: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outcomes (id, study_id, position, outcome_measured, citation_snippet,
			intervention, comparator, effect_size, p_value, confidence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return false, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, o := range rec.Outcomes {
		var confidence sql.NullFloat64
		if i < len(diag.OutcomeConfidence) {
			confidence = sql.NullFloat64{Float64: diag.OutcomeConfidence[i], Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			OutcomeID(rec.StudyID, i), rec.StudyID, i, o.OutcomeMeasured, o.CitationSnippet,
			o.Intervention, o.Comparator, o.EffectSize, o.PValue, confidence,
		); err != nil {
			return false, fmt.Errorf("inserting outcome %d: %w", i+1, err)
		}
	}

	return existing > 0, tx.Commit()
}

// Study returns the stored record for studyID.
func (s *Store) Study(ctx context.Context, studyID string) (*types.StudyRecord, error) {
	var record string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM studies WHERE study_id = ?`, studyID,
	).Scan(&record)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("study %s not found", studyID)
		}
		return nil, fmt.Errorf("looking up study: %w", err)
	}

	var rec types.StudyRecord
	if err := json.Unmarshal([]byte(record), &rec); err != nil {
		return nil, fmt.Errorf("decoding study %s: %w", studyID, err)
	}
	return &rec, nil
}
