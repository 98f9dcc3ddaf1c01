// Package api defines the JSON types shared by the daemon's HTTP control
// surface and its clients.
package api

// RunRequest triggers a pipeline cycle. An empty worker list uses the
// configured pool.
type RunRequest struct {
	Workers []string `json:"workers,omitempty"`
}

// CycleResult mirrors one pipeline cycle outcome on the wire.
type CycleResult struct {
	CycleID       string            `json:"cycle_id"`
	Status        string            `json:"status"`
	RowsFetched   int               `json:"rows_fetched"`
	RowsProcessed int               `json:"rows_processed"`
	Succeeded     int               `json:"succeeded"`
	Failed        int               `json:"failed"`
	Skipped       int               `json:"skipped"`
	Assignments   map[string]string `json:"assignments,omitempty"`
	Recovered     int               `json:"recovered"`
	Escalated     int               `json:"escalated"`
	Invalid       int               `json:"invalid"`
	Warnings      []string          `json:"warnings,omitempty"`
	DurationMS    int64             `json:"duration_ms"`
}

// DaemonStatus reports daemon runtime state.
type DaemonStatus struct {
	Running      bool         `json:"running"`
	PID          int          `json:"pid"`
	Schedule     string       `json:"schedule"`
	LockFilePath string       `json:"lock_file"`
	LastCycle    *CycleResult `json:"last_cycle,omitempty"`
}

// Row is the wire form of one pipeline row.
type Row struct {
	ID            int64  `json:"id"`
	WorkflowType  string `json:"workflow_type"`
	Status        string `json:"status"`
	Worker        string `json:"worker,omitempty"`
	JobID         string `json:"job_id,omitempty"`
	LastAttempted string `json:"last_attempted,omitempty"`
	ErrorCount    int    `json:"error_count"`
	Notes         string `json:"notes,omitempty"`
}

// RowListResponse wraps a row listing.
type RowListResponse struct {
	Rows []Row `json:"rows"`
}

// ErrorResponse carries an API error message.
type ErrorResponse struct {
	Error string `json:"error"`
}
