package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/database"
	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/models"
)

const defaultRunLimit = 50

// ReportsService serves the run registry and enrichment results captured by
// the pipeline's warehouse sink.
type ReportsService struct {
	DBManager database.DBManager
	logger    *slog.Logger
}

func NewReportsService(dbManager database.DBManager, logger *slog.Logger) *ReportsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportsService{DBManager: dbManager, logger: logger}
}

func (h *ReportsService) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *ReportsService) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	runs, err := h.DBManager.ListRuns(limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		http.Error(w, "Failed to retrieve runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []database.RunSummary{}
	}
	writeJSON(w, runs)
}

func (h *ReportsService) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, run)
}

func (h *ReportsService) GetRunAccumulation(w http.ResponseWriter, r *http.Request) {
	flag := strings.ToUpper(r.URL.Query().Get("flag"))
	switch flag {
	case "", string(models.FlagGreen), string(models.FlagYellow), string(models.FlagRed):
	default:
		http.Error(w, "Invalid flag parameter", http.StatusBadRequest)
		return
	}

	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}

	summaries, err := h.DBManager.ListAccumulation(run.RunID, flag)
	if err != nil {
		h.logger.Error("failed to list accumulation", "run_id", run.RunID, "error", err)
		http.Error(w, "Failed to retrieve accumulation summaries", http.StatusInternalServerError)
		return
	}
	if summaries == nil {
		summaries = []models.ZipAccumulationSummary{}
	}
	writeJSON(w, summaries)
}

func (h *ReportsService) GetRunExceptions(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}

	stage := r.URL.Query().Get("stage")
	exceptions, err := h.DBManager.ListExceptions(run.RunID, stage)
	if err != nil {
		h.logger.Error("failed to list exceptions", "run_id", run.RunID, "error", err)
		http.Error(w, "Failed to retrieve exceptions", http.StatusInternalServerError)
		return
	}
	if exceptions == nil {
		exceptions = []models.ExceptionRecord{}
	}
	writeJSON(w, exceptions)
}

func (h *ReportsService) GetProject(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}

	projectID := chi.URLParam(r, "projectID")
	record, err := h.DBManager.GetProject(run.RunID, projectID)
	if err != nil {
		h.logger.Error("failed to get project", "run_id", run.RunID, "project_id", projectID, "error", err)
		http.Error(w, "Failed to retrieve project", http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "Project not found", http.StatusNotFound)
		return
	}
	writeJSON(w, record)
}

// lookupRun resolves the {runID} route parameter, writing the error response
// itself when the run cannot be served.
func (h *ReportsService) lookupRun(w http.ResponseWriter, r *http.Request) (*database.RunSummary, bool) {
	runID := chi.URLParam(r, "runID")

	run, err := h.DBManager.GetRun(runID)
	if err != nil {
		h.logger.Error("failed to get run", "run_id", runID, "error", err)
		http.Error(w, "Failed to retrieve run", http.StatusInternalServerError)
		return nil, false
	}
	if run == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return nil, false
	}
	return run, true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
