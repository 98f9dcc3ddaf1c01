package row

import (
	"strings"
	"time"
)

// Row represents one unit of work moving through a workflow.
type Row struct {
	ID             int64
	WorkflowType   string
	Status         Status
	AssignedWorker string
	JobID          string
	LastAttempted  *time.Time
	ErrorCount     int
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Worker returns the assigned worker id trimmed of surrounding whitespace.
func (r Row) Worker() string {
	return strings.TrimSpace(r.AssignedWorker)
}

// Assigned reports whether the row has a non-blank assigned worker.
func (r Row) Assigned() bool {
	return r.Worker() != ""
}

// Actionable reports whether the row is eligible for automatic processing.
func (r Row) Actionable() bool {
	return !r.Status.Terminal()
}
