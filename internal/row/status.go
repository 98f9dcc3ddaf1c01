package row

import "strings"

// Phase identifies where a row sits in its lifecycle.
type Phase int

const (
	// PhaseIdle means the row is waiting at a workflow step.
	PhaseIdle Phase = iota
	// PhaseInFlight means a worker has started the row's current step.
	PhaseInFlight
	// PhaseCompleted means the row finished its final step.
	PhaseCompleted
	// PhaseSupervisor means automatic processing is halted pending human review.
	PhaseSupervisor
)

// Store-boundary markers. The external row table encodes in-flight work as a
// string prefix and the terminal states as bare markers.
const (
	InFlightPrefix   = "Processing: "
	CompletedMarker  = "Completed"
	SupervisorMarker = "Supervisor"
)

// Status is the structured form of a row's status column.
type Status struct {
	Phase Phase
	Step  string
}

// Idle returns a status waiting at the named step.
func Idle(step string) Status {
	return Status{Phase: PhaseIdle, Step: strings.TrimSpace(step)}
}

// InFlight returns a status processing the named step.
func InFlight(step string) Status {
	return Status{Phase: PhaseInFlight, Step: strings.TrimSpace(step)}
}

// Completed returns the completed terminal status.
func Completed() Status {
	return Status{Phase: PhaseCompleted}
}

// Supervisor returns the supervisor terminal status.
func Supervisor() Status {
	return Status{Phase: PhaseSupervisor}
}

// ParseStatus converts the store's string encoding into a Status.
func ParseStatus(value string) Status {
	trimmed := strings.TrimSpace(value)
	switch {
	case strings.EqualFold(trimmed, CompletedMarker):
		return Completed()
	case strings.EqualFold(trimmed, SupervisorMarker):
		return Supervisor()
	case strings.HasPrefix(trimmed, InFlightPrefix):
		return InFlight(strings.TrimPrefix(trimmed, InFlightPrefix))
	default:
		return Idle(trimmed)
	}
}

// String renders the store's string encoding of the status.
func (s Status) String() string {
	switch s.Phase {
	case PhaseInFlight:
		return InFlightPrefix + s.Step
	case PhaseCompleted:
		return CompletedMarker
	case PhaseSupervisor:
		return SupervisorMarker
	default:
		return s.Step
	}
}

// Terminal reports whether the status halts further automatic processing.
func (s Status) Terminal() bool {
	return s.Phase == PhaseCompleted || s.Phase == PhaseSupervisor
}

// InFlightStatus reports whether the status carries the in-flight marker.
func (s Status) InFlightStatus() bool {
	return s.Phase == PhaseInFlight
}
