package assign

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"loom/internal/balance"
	"loom/internal/logging"
	"loom/internal/row"
	"loom/internal/rowstore"
)

// Engine assigns unclaimed rows to workers.
type Engine struct {
	store  rowstore.Store
	logger *slog.Logger
}

// New constructs an assignment engine.
func New(store rowstore.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{store: store, logger: logger.With(logging.String(logging.FieldComponent, "assign"))}
}

// Assign walks the unassigned rows in input order and hands each to the
// globally least-loaded worker. When that worker is at or over capacity the
// row stays unassigned this cycle; assignment never falls through to a
// different worker, since every other pool member is at least as loaded.
// The load map is mutated in place so later rows in the same pass observe
// earlier assignments. A persistence failure for one row is logged and does
// not affect the rest of the pass.
func (e *Engine) Assign(ctx context.Context, unassigned []row.Row, pool []string, loads balance.LoadMap, capacityPerWorker int) map[int64]string {
	assignments := make(map[int64]string)
	for _, r := range unassigned {
		if r.Assigned() {
			continue
		}
		worker, ok := balance.LeastLoaded(pool, loads)
		if !ok {
			e.logger.Warn("no workers in pool; leaving rows unassigned")
			break
		}
		if capacityPerWorker > 0 && loads[worker] >= capacityPerWorker {
			e.logger.Debug("all workers at capacity; skipping row",
				logging.Int64(logging.FieldRowID, r.ID),
				logging.String(logging.FieldWorker, worker),
				logging.Int("load", loads[worker]),
			)
			continue
		}

		jobID := uuid.NewString()
		if err := e.store.SetAssignment(ctx, r.ID, worker, jobID); err != nil {
			e.logger.Error("failed to persist assignment",
				logging.Int64(logging.FieldRowID, r.ID),
				logging.String(logging.FieldWorker, worker),
				logging.Error(err),
			)
			continue
		}

		loads[worker]++
		assignments[r.ID] = worker
		e.logger.Info("row assigned",
			logging.Int64(logging.FieldRowID, r.ID),
			logging.String(logging.FieldWorker, worker),
			logging.String("job_id", jobID),
		)
	}
	return assignments
}
