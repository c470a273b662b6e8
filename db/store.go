package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"catalog-scraper/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Run statuses
const (
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Run is one persisted record set
type Run struct {
	ID           uuid.UUID
	Source       string
	Status       string
	RecordsCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateRun starts a run for the given source name
func (db *DB) CreateRun(ctx context.Context, source string) (*Run, error) {
	run := Run{ID: uuid.New()}
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO crawl_runs (id, source, status)
		VALUES ($1, $2, $3)
		RETURNING id, source, status, records_count, created_at, updated_at
	`, run.ID, source, StatusInProgress).Scan(
		&run.ID, &run.Source, &run.Status, &run.RecordsCount, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// FinishRun records the final status and record count of a run
func (db *DB) FinishRun(ctx context.Context, runID uuid.UUID, status string, count int) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE crawl_runs
		SET status = $1, records_count = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`, status, count, runID)
	return err
}

// GetRun loads a run by id. A missing run yields nil, nil.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, source, status, records_count, created_at, updated_at
		FROM crawl_runs
		WHERE id = $1
	`, runID).Scan(
		&run.ID, &run.Source, &run.Status, &run.RecordsCount, &run.CreatedAt, &run.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// SaveRecords inserts records for a run in a single transaction, keeping their order
func (db *DB) SaveRecords(ctx context.Context, runID uuid.UUID, records []models.Record) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO crawl_records (run_id, position, data)
		VALUES ($1, $2, $3)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, record := range records {
		data, err := RecordJSON(record)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, runID, i, data); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetRecords returns the stored rows of a run in insertion order
func (db *DB) GetRecords(ctx context.Context, runID uuid.UUID) ([]map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT data FROM crawl_records WHERE run_id = $1 ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]string
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		row := map[string]string{}
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// RecordJSON encodes a record as a column to value object
func RecordJSON(record models.Record) ([]byte, error) {
	columns, values := record.Columns(), record.Values()
	if len(columns) != len(values) {
		return nil, fmt.Errorf("record has %d columns and %d values", len(columns), len(values))
	}
	row := make(map[string]string, len(columns))
	for i, c := range columns {
		row[c] = values[i]
	}
	return json.Marshal(row)
}

// Store is a persist.Sink backed by PostgreSQL. Every Write is a new run.
type Store struct {
	db     *DB
	logger *logrus.Entry
}

// NewStore wraps db as a record sink
func NewStore(db *DB, logger *logrus.Entry) *Store {
	return &Store{db: db, logger: logger}
}

// Write stores records as a new run named after the destination
func (s *Store) Write(ctx context.Context, name string, records []models.Record) error {
	if len(records) == 0 {
		s.logger.WithField("source", name).Info("no records to store")
		return nil
	}

	run, err := s.db.CreateRun(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	logger := s.logger.WithFields(logrus.Fields{"run_id": run.ID, "source": name})

	if err := s.db.SaveRecords(ctx, run.ID, records); err != nil {
		if fErr := s.db.FinishRun(ctx, run.ID, StatusFailed, 0); fErr != nil {
			logger.WithError(fErr).Warn("failed to mark run failed")
		}
		return fmt.Errorf("failed to save records: %w", err)
	}

	if err := s.db.FinishRun(ctx, run.ID, StatusDone, len(records)); err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	logger.WithField("records", len(records)).Info("stored records")
	return nil
}
