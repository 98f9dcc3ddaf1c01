package sqlite

import (
	"context"
	"fmt"
	"strings"

	"loom/internal/row"
)

// HealthSummary describes aggregated row counts per lifecycle phase.
type HealthSummary struct {
	Total      int
	Idle       int
	InFlight   int
	Completed  int
	Supervisor int
}

// Health returns aggregate counts for the CLI status view.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	ctx = ensureContext(ctx)
	records, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM rows GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("row health: %w", err)
	}
	defer records.Close()

	var summary HealthSummary
	for records.Next() {
		var status string
		var count int
		if err := records.Scan(&status, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("row health scan: %w", err)
		}
		summary.Total += count
		switch row.ParseStatus(strings.TrimSpace(status)).Phase {
		case row.PhaseInFlight:
			summary.InFlight += count
		case row.PhaseCompleted:
			summary.Completed += count
		case row.PhaseSupervisor:
			summary.Supervisor += count
		default:
			summary.Idle += count
		}
	}
	return summary, records.Err()
}
