package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/survi-edge/clipscan/internal/detect"
	"github.com/survi-edge/clipscan/internal/report"
)

// RunRecord is one stored pipeline run, success or error.
type RunRecord struct {
	ID             string             `json:"id"`
	EventID        string             `json:"event_id"`
	Status         string             `json:"status"`
	Error          string             `json:"error,omitempty"`
	FramesAnalyzed int                `json:"frames_analyzed"`
	Threshold      float64            `json:"threshold"`
	Summary        detect.Summary     `json:"summary"`
	Detections     []report.Detection `json:"detections"`
	LatencyMS      int64              `json:"latency_ms"`
	CreatedAt      time.Time          `json:"created_at"`
}

type RunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Save persists a finished run and its ranked detections. Returns the
// generated run ID.
func (r *RunRepository) Save(ctx context.Context, rep *report.Report) (string, error) {
	summaryJSON, err := json.Marshal(rep.Summary)
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary: %w", err)
	}
	if rep.Summary == nil {
		summaryJSON = []byte("{}")
	}

	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.New().String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, event_id, status, error, frames_analyzed, threshold, summary, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rep.EventID, rep.Status, rep.Error, rep.FramesAnalyzed,
		rep.Threshold, string(summaryJSON), rep.LatencyMS, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for _, d := range rep.Detections {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_detections (run_id, label, confidence, x, y, width, height, frame_idx)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, d.Label, d.Confidence, d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3], d.FrameIndex)
		if err != nil {
			return "", fmt.Errorf("failed to insert detection: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// List returns the most recent runs without their detection lists.
func (r *RunRepository) List(ctx context.Context, limit int) ([]*RunRecord, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, event_id, status, error, frames_analyzed, threshold, summary, latency_ms, created_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []*RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// GetByID returns one run with its detections, or nil when absent.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*RunRecord, error) {
	row := r.db.conn.QueryRowContext(ctx, `
		SELECT id, event_id, status, error, frames_analyzed, threshold, summary, latency_ms, created_at
		FROM runs
		WHERE id = ?`, id)

	record, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadDetections(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// GetByEventID returns the most recent run for an event, or nil when absent.
func (r *RunRepository) GetByEventID(ctx context.Context, eventID string) (*RunRecord, error) {
	row := r.db.conn.QueryRowContext(ctx, `
		SELECT id, event_id, status, error, frames_analyzed, threshold, summary, latency_ms, created_at
		FROM runs
		WHERE event_id = ?
		ORDER BY created_at DESC
		LIMIT 1`, eventID)

	record, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadDetections(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *RunRepository) loadDetections(ctx context.Context, record *RunRecord) error {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT label, confidence, x, y, width, height, frame_idx
		FROM run_detections
		WHERE run_id = ?
		ORDER BY confidence DESC, id`, record.ID)
	if err != nil {
		return fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	record.Detections = []report.Detection{}
	for rows.Next() {
		var d report.Detection
		if err := rows.Scan(&d.Label, &d.Confidence, &d.BBox[0], &d.BBox[1], &d.BBox[2], &d.BBox[3], &d.FrameIndex); err != nil {
			return fmt.Errorf("failed to scan detection: %w", err)
		}
		record.Detections = append(record.Detections, d)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	record := &RunRecord{}
	var summaryStr string

	err := row.Scan(
		&record.ID,
		&record.EventID,
		&record.Status,
		&record.Error,
		&record.FramesAnalyzed,
		&record.Threshold,
		&summaryStr,
		&record.LatencyMS,
		&record.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	record.Summary = detect.Summary{}
	if summaryStr != "" {
		if err := json.Unmarshal([]byte(summaryStr), &record.Summary); err != nil {
			record.Summary = detect.Summary{}
		}
	}
	return record, nil
}
