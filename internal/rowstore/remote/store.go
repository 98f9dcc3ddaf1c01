package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"loom/internal/logging"
	"loom/internal/remote"
	"loom/internal/row"
	"loom/internal/rowstore"
)

// Remote function names exposed by the external row table.
const (
	fnFetchRows           = "getRowsNeedingProcessing"
	fnSetAssignment       = "assignRowWorker"
	fnSetStatus           = "updateRowStatus"
	fnSetNotes            = "updateRowNotes"
	fnSetLastAttempted    = "updateLastAttempted"
	fnIncrementErrorCount = "incrementProgressErrorCount"
	fnGetErrorCount       = "getProgressErrorCount"
)

// Store drives the external row table through a remote.Caller.
type Store struct {
	caller remote.Caller
	logger *slog.Logger
}

var _ rowstore.Store = (*Store)(nil)

// New creates a remote-backed row store.
func New(caller remote.Caller, logger *slog.Logger) (*Store, error) {
	if caller == nil {
		return nil, errors.New("remote caller required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{caller: caller, logger: logger}, nil
}

type wireRow struct {
	Row           int64  `json:"row"`
	Workflow      string `json:"workflow"`
	Status        string `json:"status"`
	Worker        string `json:"worker"`
	JobID         string `json:"job_id"`
	LastAttempted string `json:"last_attempted"`
	ErrorCount    int    `json:"error_count"`
	Notes         string `json:"notes"`
}

type fetchResult struct {
	Rows []wireRow `json:"rows"`
}

// FetchActionable returns rows needing processing, optionally filtered.
func (s *Store) FetchActionable(ctx context.Context, filter rowstore.Filter) ([]row.Row, error) {
	params := remote.Params{}
	if filter.Limit > 0 {
		params["limit"] = filter.Limit
	}
	if worker := strings.TrimSpace(filter.Worker); worker != "" {
		params["worker"] = worker
	}

	result, err := s.caller.Call(ctx, fnFetchRows, params)
	if err != nil {
		return nil, err
	}

	var decoded fetchResult
	if err := json.Unmarshal(result, &decoded); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", fnFetchRows, err)
	}

	rows := make([]row.Row, 0, len(decoded.Rows))
	for _, wire := range decoded.Rows {
		rows = append(rows, wire.toRow(s.logger))
	}
	return rows, nil
}

// naiveTimestampLayout matches offset-less timestamps as written by systems
// that stamp local ISO time without a zone; parsing also accepts a
// fractional-seconds suffix. Such values are treated as UTC.
const naiveTimestampLayout = "2006-01-02T15:04:05"

func parseLastAttempted(value string) (time.Time, bool) {
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed.UTC(), true
	}
	if parsed, err := time.Parse(naiveTimestampLayout, value); err == nil {
		return parsed.UTC(), true
	}
	return time.Time{}, false
}

func (w wireRow) toRow(logger *slog.Logger) row.Row {
	r := row.Row{
		ID:             w.Row,
		WorkflowType:   strings.TrimSpace(w.Workflow),
		Status:         row.ParseStatus(w.Status),
		AssignedWorker: w.Worker,
		JobID:          strings.TrimSpace(w.JobID),
		ErrorCount:     w.ErrorCount,
		Notes:          w.Notes,
	}
	if ts := strings.TrimSpace(w.LastAttempted); ts != "" {
		if parsed, ok := parseLastAttempted(ts); ok {
			r.LastAttempted = &parsed
		} else {
			logger.Warn("unparseable last_attempted timestamp",
				logging.Int64(logging.FieldRowID, w.Row),
				logging.String("last_attempted", ts),
			)
		}
	}
	return r
}

// SetAssignment records the worker and job id for a row.
func (s *Store) SetAssignment(ctx context.Context, rowID int64, workerID, jobID string) error {
	_, err := s.caller.Call(ctx, fnSetAssignment, remote.Params{
		"row":    rowID,
		"worker": strings.TrimSpace(workerID),
		"job_id": strings.TrimSpace(jobID),
	})
	return err
}

// SetStatus overwrites a row's status column.
func (s *Store) SetStatus(ctx context.Context, rowID int64, status row.Status) error {
	_, err := s.caller.Call(ctx, fnSetStatus, remote.Params{
		"row":        rowID,
		"new_status": status.String(),
	})
	return err
}

// SetNotes overwrites a row's notes column.
func (s *Store) SetNotes(ctx context.Context, rowID int64, notes string) error {
	_, err := s.caller.Call(ctx, fnSetNotes, remote.Params{
		"row":   rowID,
		"notes": notes,
	})
	return err
}

// SetLastAttempted stamps the row's last attempt timestamp.
func (s *Store) SetLastAttempted(ctx context.Context, rowID int64, at time.Time) error {
	_, err := s.caller.Call(ctx, fnSetLastAttempted, remote.Params{
		"row":       rowID,
		"timestamp": at.UTC().Format(time.RFC3339),
	})
	return err
}

type countResult struct {
	Count int `json:"count"`
}

// IncrementErrorCount bumps the row's error counter and returns the new value.
func (s *Store) IncrementErrorCount(ctx context.Context, rowID int64) (int, error) {
	result, err := s.caller.Call(ctx, fnIncrementErrorCount, remote.Params{"row": rowID})
	if err != nil {
		return 0, err
	}
	var decoded countResult
	if err := json.Unmarshal(result, &decoded); err != nil {
		return 0, fmt.Errorf("decode %s result: %w", fnIncrementErrorCount, err)
	}
	return decoded.Count, nil
}

// GetErrorCount reads the row's error counter.
func (s *Store) GetErrorCount(ctx context.Context, rowID int64) (int, error) {
	result, err := s.caller.Call(ctx, fnGetErrorCount, remote.Params{"row": rowID})
	if err != nil {
		return 0, err
	}
	var decoded countResult
	if err := json.Unmarshal(result, &decoded); err != nil {
		return 0, fmt.Errorf("decode %s result: %w", fnGetErrorCount, err)
	}
	return decoded.Count, nil
}
