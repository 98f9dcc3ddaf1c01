// Package daemon runs the pipeline on a schedule, exposes the control API,
// and enforces single-instance execution through a lock file.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"loom/internal/config"
	"loom/internal/logging"
	"loom/internal/metrics"
	"loom/internal/pipeline"
	"loom/internal/rowstore"
)

// Daemon coordinates scheduled cycles and the control API.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	pipe    *pipeline.Pipeline
	store   rowstore.Store
	metrics *metrics.Metrics

	lockPath string
	lock     *flock.Flock

	scheduler *cron.Cron
	api       *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	mu        sync.Mutex
	lastCycle *pipeline.Result
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Schedule     string
	LockFilePath string
	LastCycle    *pipeline.Result
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, pipe *pipeline.Pipeline, store rowstore.Store, m *metrics.Metrics, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || pipe == nil || store == nil {
		return nil, errors.New("daemon requires config, pipeline, and row store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := filepath.Join(cfg.Paths.DataDir, "loomd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.String(logging.FieldComponent, "daemon")),
		pipe:     pipe,
		store:    store,
		metrics:  m,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, starts the scheduler, and brings up the
// control API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another loom daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if schedule := strings.TrimSpace(d.cfg.Pipeline.Schedule); schedule != "" {
		d.scheduler = cron.New()
		if _, err := d.scheduler.AddFunc(schedule, d.scheduledCycle); err != nil {
			d.releaseOnStartFailure()
			return fmt.Errorf("parse schedule %q: %w", schedule, err)
		}
		d.scheduler.Start()
		d.logger.Info("scheduler started", logging.String("schedule", schedule))
	} else {
		d.logger.Info("no schedule configured; cycles run on manual trigger only")
	}

	api, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.stopScheduler()
		d.releaseOnStartFailure()
		return err
	}
	d.api = api
	if err := d.api.start(d.ctx); err != nil {
		d.stopScheduler()
		d.releaseOnStartFailure()
		return err
	}

	d.running.Store(true)
	d.logger.Info("loom daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the scheduler and API and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.stopScheduler()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("loom daemon stopped")
}

// RunCycle triggers one pipeline cycle and records its result.
func (d *Daemon) RunCycle(ctx context.Context, opts pipeline.Options) (pipeline.Result, error) {
	result, err := d.pipe.RunCycle(ctx, opts)
	d.mu.Lock()
	d.lastCycle = &result
	d.mu.Unlock()
	return result, err
}

// APIAddr returns the control API's bound address, or empty when the API is
// disabled or the daemon is stopped.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Status reports the daemon's runtime state.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	last := d.lastCycle
	d.mu.Unlock()
	return Status{
		Running:      d.running.Load(),
		Schedule:     d.cfg.Pipeline.Schedule,
		LockFilePath: d.lockPath,
		LastCycle:    last,
	}
}

func (d *Daemon) scheduledCycle() {
	ctx := d.ctx
	if ctx == nil {
		return
	}
	if _, err := d.RunCycle(ctx, pipeline.Options{}); err != nil {
		d.logger.Error("scheduled cycle failed", logging.Error(err))
	}
}

func (d *Daemon) stopScheduler() {
	if d.scheduler == nil {
		return
	}
	<-d.scheduler.Stop().Done()
	d.scheduler = nil
}

func (d *Daemon) releaseOnStartFailure() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
}
