// Package httphandler serves the read-only run history API and the manual run trigger.
package httphandler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/overridebot/internal/domain/model"
	"github.com/ericfisherdev/overridebot/internal/domain/port/driven"
)

// RunTrigger starts an out-of-band override run and waits for its report.
type RunTrigger interface {
	TriggerRun(ctx context.Context) (*model.RunReport, error)
}

const healthPath = "/api/v1/health"

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	runStore driven.RunStore
	trigger  RunTrigger
	repo     string
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	runStore driven.RunStore,
	trigger RunTrigger,
	repo string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		runStore: runStore,
		trigger:  trigger,
		repo:     repo,
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+healthPath, h.Health)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", h.GetRun)
	mux.HandleFunc("POST /api/v1/runs", h.TriggerRun)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListRuns returns the most recent runs. The optional limit query parameter
// defaults to 20 and is capped at 200.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, 200)
	}

	runs, err := h.runStore.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RunSummaryResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toRunSummaryResponse(run))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetRun returns a single stored run with its outcomes and candidates.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	report, err := h.runStore.GetRun(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get run", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if report == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(*report))
}

// TriggerRun runs the override pipeline now and returns its report. A fatal
// run error answers 502, with the partial report when one exists.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if h.trigger == nil {
		writeError(w, http.StatusServiceUnavailable, "override service not running")
		return
	}

	report, err := h.trigger.TriggerRun(r.Context())
	if err != nil {
		h.logger.Error("triggered run failed", "repo", h.repo, "error", err)
		if report == nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}

		// The run reached the forge but failed as a whole; return what was recorded.
		resp := toRunResponse(*report)
		resp.Error = err.Error()
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(*report))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Repo:   h.repo,
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
