package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"sales-pipeline/internal/config"
	"sales-pipeline/internal/generator"
	"sales-pipeline/internal/pipeline"
	"sales-pipeline/internal/store"
)

// IngestionHandler exposes the pipeline's control surface over HTTP. The
// front end only starts/stops the loop and reads status, logs and reports.
type IngestionHandler struct {
	Cfg       *config.Config
	Runner    *pipeline.Runner
	Generator *generator.Generator
}

// StartIngestion starts the ingestion loop.
// POST /api/v1/ingestion/start
func (h *IngestionHandler) StartIngestion(w http.ResponseWriter, r *http.Request) {
	runID, err := h.Runner.Start()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, map[string]interface{}{
		"message":   "Ingestion started",
		"runId":     runID,
		"startedAt": time.Now().UTC(),
	})
}

// StopIngestion signals the loop to stop. It returns immediately without
// waiting for the current cycle to finish.
// POST /api/v1/ingestion/stop
func (h *IngestionHandler) StopIngestion(w http.ResponseWriter, r *http.Request) {
	h.Runner.Stop()
	writeJSON(w, map[string]interface{}{
		"message": "Stop signaled",
		"running": h.Runner.IsRunning(),
	})
}

// GetStatus reports whether the loop is running plus its cumulative totals.
// GET /api/v1/ingestion/status
func (h *IngestionHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Runner.Status())
}

// GetLogs returns the latest persisted log lines, newest first.
// GET /api/v1/ingestion/logs?limit=N
func (h *IngestionHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 100)
	logs, err := store.GetRecentLogs(limit)
	if err != nil {
		http.Error(w, "Failed to retrieve logs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{
		"logs":  logs,
		"count": len(logs),
		"limit": limit,
	})
}

// GetOutcomes returns the most recent per-file outcomes.
// GET /api/v1/ingestion/outcomes?limit=N
func (h *IngestionHandler) GetOutcomes(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50)
	outcomes, err := store.ListFileOutcomes(limit)
	if err != nil {
		http.Error(w, "Failed to retrieve outcomes", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{
		"outcomes": outcomes,
		"count":    len(outcomes),
	})
}

// ListRuns returns all recorded runs, newest first.
// GET /api/v1/runs
func (h *IngestionHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := store.ListRuns()
	if err != nil {
		http.Error(w, "Failed to retrieve runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

// GetSummaryReport returns every appended summary line.
// GET /api/v1/reports/summary
func (h *IngestionHandler) GetSummaryReport(w http.ResponseWriter, r *http.Request) {
	summaries, err := pipeline.LoadRunSummaries(h.Cfg.ReportDir)
	if err != nil {
		http.Error(w, "Failed to read summary report", http.StatusInternalServerError)
		return
	}
	writeJSON(w, summaries)
}

// GetProductReport returns per-product totals aggregated across runs.
// GET /api/v1/reports/products
func (h *IngestionHandler) GetProductReport(w http.ResponseWriter, r *http.Request) {
	totals, err := pipeline.LoadProductTotals(h.Cfg.ReportDir)
	if err != nil {
		http.Error(w, "Failed to read product report", http.StatusInternalServerError)
		return
	}
	writeJSON(w, totals)
}

// GetDateReport returns per-date totals aggregated across runs.
// GET /api/v1/reports/dates
func (h *IngestionHandler) GetDateReport(w http.ResponseWriter, r *http.Request) {
	totals, err := pipeline.LoadDateTotals(h.Cfg.ReportDir)
	if err != nil {
		http.Error(w, "Failed to read date report", http.StatusInternalServerError)
		return
	}
	writeJSON(w, totals)
}

// StartGenerator starts the synthetic data generator.
// POST /api/v1/generator/start
func (h *IngestionHandler) StartGenerator(w http.ResponseWriter, r *http.Request) {
	if err := h.Generator.Start(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]interface{}{"message": "Generator started"})
}

// StopGenerator signals the generator to stop.
// POST /api/v1/generator/stop
func (h *IngestionHandler) StopGenerator(w http.ResponseWriter, r *http.Request) {
	h.Generator.Stop()
	writeJSON(w, map[string]interface{}{
		"message": "Stop signaled",
		"running": h.Generator.IsRunning(),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func queryLimit(r *http.Request, fallback int) int {
	limit := fallback
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return limit
}
