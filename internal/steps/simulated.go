package steps

import (
	"context"
	"fmt"
	"log/slog"

	"loom/internal/logging"
	"loom/internal/row"
)

// SimulatedExecutor treats every bound step as an immediate success. It backs
// the sqlite development backend when no remote endpoint is configured, so
// rows advance through their workflows without external side effects.
type SimulatedExecutor struct {
	bindings *Bindings
	logger   *slog.Logger
}

var _ Executor = (*SimulatedExecutor)(nil)

// NewSimulatedExecutor builds a dry-run executor over the binding table.
func NewSimulatedExecutor(bindings *Bindings, logger *slog.Logger) *SimulatedExecutor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SimulatedExecutor{
		bindings: bindings,
		logger:   logger.With(logging.String(logging.FieldComponent, "steps")),
	}
}

// Execute logs the step that would have run and reports success.
func (e *SimulatedExecutor) Execute(ctx context.Context, r *row.Row) error {
	step := r.Status.Step
	fn, ok := e.bindings.FunctionFor(step)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnboundStep, step)
	}
	e.logger.Info("simulated step execution",
		logging.Int64(logging.FieldRowID, r.ID),
		logging.String(logging.FieldStep, step),
		logging.String(logging.FieldFunction, fn),
	)
	return nil
}

// Bound reports whether the step has a binding.
func (e *SimulatedExecutor) Bound(step string) bool {
	_, ok := e.bindings.FunctionFor(step)
	return ok
}
