package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loom/internal/api"
	"loom/internal/config"
	"loom/internal/logging"
	"loom/internal/pipeline"
	"loom/internal/row"
	"loom/internal/rowstore"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/run", requireToken(token, srv.handleRun))
	mux.HandleFunc("/api/status", requireToken(token, srv.handleStatus))
	mux.HandleFunc("/api/rows", requireToken(token, srv.handleRows))
	mux.HandleFunc("/healthz", srv.handleHealthz)
	if d.metrics != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(d.metrics.Registry(), promhttp.HandlerOpts{}))
	}

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Manual cycles run synchronously inside the request.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req api.RunRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	result, err := s.daemon.RunCycle(r.Context(), pipeline.Options{WorkerPool: req.Workers})
	if err != nil {
		s.log().Error("manual cycle failed", logging.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, toCycleResult(result))
		return
	}
	status := http.StatusOK
	if result.Status == pipeline.StatusSkipped {
		status = http.StatusConflict
	}
	s.writeJSON(w, status, toCycleResult(result))
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status()
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          os.Getpid(),
		Schedule:     status.Schedule,
		LockFilePath: status.LockFilePath,
	}
	if status.LastCycle != nil {
		last := toCycleResult(*status.LastCycle)
		payload.LastCycle = &last
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleRows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	filter := rowstore.Filter{
		Worker: strings.TrimSpace(r.URL.Query().Get("worker")),
	}
	rows, err := s.daemon.store.FetchActionable(r.Context(), filter)
	if err != nil {
		s.log().Error("failed to list rows", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "row store unavailable")
		return
	}
	payload := api.RowListResponse{Rows: make([]api.Row, 0, len(rows))}
	for _, item := range rows {
		payload.Rows = append(payload.Rows, toAPIRow(item))
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toCycleResult(result pipeline.Result) api.CycleResult {
	resp := api.CycleResult{
		CycleID:       result.CycleID,
		Status:        result.Status,
		RowsFetched:   result.RowsFetched,
		RowsProcessed: result.RowsProcessed,
		Succeeded:     result.Succeeded,
		Failed:        result.Failed,
		Skipped:       result.Skipped,
		Recovered:     result.Recovered,
		Escalated:     result.Escalated,
		Invalid:       result.Invalid,
		Warnings:      result.Warnings,
		DurationMS:    result.Duration.Milliseconds(),
	}
	if len(result.Assignments) > 0 {
		resp.Assignments = make(map[string]string, len(result.Assignments))
		for id, worker := range result.Assignments {
			resp.Assignments[fmt.Sprintf("%d", id)] = worker
		}
	}
	return resp
}

func toAPIRow(item row.Row) api.Row {
	resp := api.Row{
		ID:           item.ID,
		WorkflowType: item.WorkflowType,
		Status:       item.Status.String(),
		Worker:       item.Worker(),
		JobID:        item.JobID,
		ErrorCount:   item.ErrorCount,
		Notes:        item.Notes,
	}
	if item.LastAttempted != nil {
		resp.LastAttempted = item.LastAttempted.UTC().Format(time.RFC3339)
	}
	return resp
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Warn("failed to encode api response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logging.NewNop()
}
