package api

import (
	"sales-pipeline/internal/api/handler"
	"sales-pipeline/pkg/router"
)

func RegisterRoutes(r *router.Router, h *handler.IngestionHandler) {
	r.POST("/api/v1/ingestion/start", h.StartIngestion)
	r.POST("/api/v1/ingestion/stop", h.StopIngestion)
	r.GET("/api/v1/ingestion/status", h.GetStatus)
	r.GET("/api/v1/ingestion/logs", h.GetLogs)
	r.GET("/api/v1/ingestion/outcomes", h.GetOutcomes)

	r.POST("/api/v1/generator/start", h.StartGenerator)
	r.POST("/api/v1/generator/stop", h.StopGenerator)

	r.GET("/api/v1/runs", h.ListRuns)

	r.GET("/api/v1/reports/summary", h.GetSummaryReport)
	r.GET("/api/v1/reports/products", h.GetProductReport)
	r.GET("/api/v1/reports/dates", h.GetDateReport)
}
