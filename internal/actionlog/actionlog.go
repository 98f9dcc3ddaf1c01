package actionlog

import (
	"context"
	"log/slog"
	"time"

	"loom/internal/logging"
	"loom/internal/remote"
)

const logFunction = "logAgentAction"

// Agent identities attached to audit entries.
const (
	AgentWorker  = "Worker"
	AgentManager = "Manager"
)

// Logger records actions against the external audit trail.
type Logger interface {
	// Record writes one audit entry. Failures are swallowed after local
	// logging; the audit trail is advisory.
	Record(ctx context.Context, action, outcome, notes, agent string)
}

// NewRemote builds an audit logger writing through the remote envelope.
func NewRemote(caller remote.Caller, logger *slog.Logger) Logger {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &remoteLogger{
		caller: caller,
		logger: logger.With(logging.String(logging.FieldComponent, "actionlog")),
		now:    time.Now,
	}
}

// NewLocal builds an audit logger that only writes to the process log. Used
// with the sqlite backend where no external audit trail exists.
func NewLocal(logger *slog.Logger) Logger {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &localLogger{logger: logger.With(logging.String(logging.FieldComponent, "actionlog"))}
}

type remoteLogger struct {
	caller remote.Caller
	logger *slog.Logger
	now    func() time.Time
}

func (l *remoteLogger) Record(ctx context.Context, action, outcome, notes, agent string) {
	if agent == "" {
		agent = AgentWorker
	}
	_, err := l.caller.Call(ctx, logFunction, remote.Params{
		"timestamp": l.now().UTC().Format(time.RFC3339),
		"action":    action,
		"outcome":   outcome,
		"notes":     notes,
		"agent":     agent,
	})
	if err != nil {
		l.logger.Warn("failed to record action",
			logging.String("action", action),
			logging.Error(err),
		)
	}
}

type localLogger struct {
	logger *slog.Logger
}

func (l *localLogger) Record(ctx context.Context, action, outcome, notes, agent string) {
	l.logger.Info("action recorded",
		logging.String("action", action),
		logging.String("outcome", outcome),
		logging.String("notes", notes),
		logging.String("agent", agent),
	)
}
