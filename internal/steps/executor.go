package steps

import (
	"context"
	"errors"
	"fmt"

	"loom/internal/remote"
	"loom/internal/row"
)

// ErrUnboundStep reports a step with no executor binding.
var ErrUnboundStep = errors.New("no executor bound to step")

// Executor performs one workflow step for one row.
type Executor interface {
	// Bound reports whether the step has an executor behind it. Unbound
	// steps are skipped by the worker runner, not failed.
	Bound(step string) bool
	// Execute runs the step the row is idle at. A non-nil error means the
	// attempt failed and the row should revert to its pre-processing status.
	Execute(ctx context.Context, r *row.Row) error
}

// RemoteExecutor invokes step functions through the remote envelope.
type RemoteExecutor struct {
	caller   remote.Caller
	bindings *Bindings
}

var _ Executor = (*RemoteExecutor)(nil)

// NewRemoteExecutor builds the production executor.
func NewRemoteExecutor(caller remote.Caller, bindings *Bindings) (*RemoteExecutor, error) {
	if caller == nil {
		return nil, errors.New("remote caller required")
	}
	if bindings == nil {
		return nil, errors.New("step bindings required")
	}
	return &RemoteExecutor{caller: caller, bindings: bindings}, nil
}

// Execute invokes the remote function bound to the row's current step.
func (e *RemoteExecutor) Execute(ctx context.Context, r *row.Row) error {
	step := r.Status.Step
	fn, ok := e.bindings.FunctionFor(step)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnboundStep, step)
	}
	_, err := e.caller.Call(ctx, fn, remote.Params{"row": r.ID})
	return err
}

// Bound reports whether the row's current step has an executor binding.
func (e *RemoteExecutor) Bound(step string) bool {
	_, ok := e.bindings.FunctionFor(step)
	return ok
}
