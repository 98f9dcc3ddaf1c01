package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"loom/internal/row"
	"loom/internal/rowstore"
)

var _ rowstore.Store = (*Store)(nil)

const rowColumns = `id, workflow_type, status, assigned_worker, job_id,
    last_attempted, error_count, notes, created_at, updated_at`

// NewRow inserts a row idle at the given step of a workflow.
func (s *Store) NewRow(ctx context.Context, workflowType, firstStep string) (*row.Row, error) {
	workflowType = strings.TrimSpace(workflowType)
	if workflowType == "" {
		return nil, errors.New("workflow type required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO rows (workflow_type, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		workflowType,
		row.Idle(firstStep).String(),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert row: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a single row.
func (s *Store) GetByID(ctx context.Context, id int64) (*row.Row, error) {
	ctx = ensureContext(ctx)
	record := s.db.QueryRowContext(ctx, `SELECT `+rowColumns+` FROM rows WHERE id = ?`, id)
	r, err := scanRow(record)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rowstore.ErrNotFound
		}
		return nil, fmt.Errorf("get row %d: %w", id, err)
	}
	return r, nil
}

// FetchActionable returns rows whose status is not terminal, optionally
// filtered by assigned worker and capped by limit.
func (s *Store) FetchActionable(ctx context.Context, filter rowstore.Filter) ([]row.Row, error) {
	ctx = ensureContext(ctx)

	query := `SELECT ` + rowColumns + ` FROM rows WHERE status NOT IN (?, ?)`
	args := []any{row.CompletedMarker, row.SupervisorMarker}
	if worker := strings.TrimSpace(filter.Worker); worker != "" {
		query += ` AND TRIM(assigned_worker) = ?`
		args = append(args, worker)
	}
	query += ` ORDER BY id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	records, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch actionable rows: %w", err)
	}
	defer records.Close()

	var rows []row.Row
	for records.Next() {
		r, err := scanRow(records)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rows = append(rows, *r)
	}
	return rows, records.Err()
}

// List returns every row in insertion order; used by the CLI and tests.
func (s *Store) List(ctx context.Context) ([]row.Row, error) {
	ctx = ensureContext(ctx)
	records, err := s.db.QueryContext(ctx, `SELECT `+rowColumns+` FROM rows ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	defer records.Close()

	var rows []row.Row
	for records.Next() {
		r, err := scanRow(records)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rows = append(rows, *r)
	}
	return rows, records.Err()
}

// SetAssignment records the worker and job id for a row.
func (s *Store) SetAssignment(ctx context.Context, rowID int64, workerID, jobID string) error {
	return s.updateRow(ctx, rowID, `assigned_worker = ?, job_id = ?`, strings.TrimSpace(workerID), strings.TrimSpace(jobID))
}

// SetStatus overwrites a row's status.
func (s *Store) SetStatus(ctx context.Context, rowID int64, status row.Status) error {
	return s.updateRow(ctx, rowID, `status = ?`, status.String())
}

// SetNotes overwrites a row's notes.
func (s *Store) SetNotes(ctx context.Context, rowID int64, notes string) error {
	return s.updateRow(ctx, rowID, `notes = ?`, notes)
}

// SetLastAttempted stamps the row's last attempt timestamp.
func (s *Store) SetLastAttempted(ctx context.Context, rowID int64, at time.Time) error {
	return s.updateRow(ctx, rowID, `last_attempted = ?`, at.UTC().Format(time.RFC3339Nano))
}

// IncrementErrorCount bumps the row's error counter and returns the new value.
func (s *Store) IncrementErrorCount(ctx context.Context, rowID int64) (int, error) {
	if err := s.updateRow(ctx, rowID, `error_count = error_count + 1`); err != nil {
		return 0, err
	}
	return s.GetErrorCount(ctx, rowID)
}

// GetErrorCount reads the row's error counter.
func (s *Store) GetErrorCount(ctx context.Context, rowID int64) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT error_count FROM rows WHERE id = ?`, rowID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, rowstore.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get error count for row %d: %w", rowID, err)
	}
	return count, nil
}

// ResetErrorCount zeroes the counter; used when an escalation is resolved.
func (s *Store) ResetErrorCount(ctx context.Context, rowID int64) error {
	return s.updateRow(ctx, rowID, `error_count = 0`)
}

func (s *Store) updateRow(ctx context.Context, rowID int64, setClause string, args ...any) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	args = append(args, now, rowID)
	res, err := s.execWithRetry(ctx, `UPDATE rows SET `+setClause+`, updated_at = ? WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update row %d: %w", rowID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update row %d: rows affected: %w", rowID, err)
	}
	if affected == 0 {
		return rowstore.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(record scanner) (*row.Row, error) {
	var (
		r             row.Row
		status        string
		lastAttempted sql.NullString
		createdAt     string
		updatedAt     string
	)
	if err := record.Scan(
		&r.ID,
		&r.WorkflowType,
		&status,
		&r.AssignedWorker,
		&r.JobID,
		&lastAttempted,
		&r.ErrorCount,
		&r.Notes,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	r.Status = row.ParseStatus(status)
	if lastAttempted.Valid && strings.TrimSpace(lastAttempted.String) != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, lastAttempted.String); err == nil {
			parsed = parsed.UTC()
			r.LastAttempted = &parsed
		}
	}
	if parsed, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		r.CreatedAt = parsed.UTC()
	}
	if parsed, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		r.UpdatedAt = parsed.UTC()
	}
	return &r, nil
}
