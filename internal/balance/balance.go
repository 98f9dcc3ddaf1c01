package balance

import (
	"strings"

	"loom/internal/row"
)

// LoadMap counts rows currently assigned and unresolved per worker. It is
// derived from one snapshot and owned by a single assignment pass; it must
// never be shared across concurrent cycles.
type LoadMap map[string]int

// ComputeLoadMap tallies assignments from a row snapshot. Blank and
// whitespace-only workers count as unassigned.
func ComputeLoadMap(rows []row.Row) LoadMap {
	loads := make(LoadMap)
	for _, r := range rows {
		if worker := r.Worker(); worker != "" {
			loads[worker]++
		}
	}
	return loads
}

// LeastLoaded selects the pool worker with the minimum load. Ties break to
// the pool's declared order, so the result is deterministic and idempotent
// against an unchanged load map. Returns false for an empty pool.
func LeastLoaded(pool []string, loads LoadMap) (string, bool) {
	selected := ""
	best := 0
	for _, worker := range pool {
		worker = strings.TrimSpace(worker)
		if worker == "" {
			continue
		}
		count := loads[worker]
		if selected == "" || count < best {
			selected = worker
			best = count
		}
	}
	return selected, selected != ""
}
