package model

import "time"

// Route is the destination decision for a fully-read input file.
type Route string

const (
	RouteProcessed Route = "processed"
	RouteRejected  Route = "error"
)

// StructuralErrorCount is the sentinel error count assigned to a file that
// could not be opened or read at all (not-found, permission-denied). It is
// always above any threshold, so the file lands in the error area.
const StructuralErrorCount = 999

// FileOutcome describes how one input file fared.
type FileOutcome struct {
	RunID       string         `json:"run_id"`
	File        string         `json:"file"`
	Rows        int            `json:"rows"`
	Valid       int            `json:"valid"`
	Invalid     int            `json:"invalid"`
	Route       Route          `json:"route"`
	MovedTo     string         `json:"moved_to,omitempty"`
	Reasons     map[Reason]int `json:"reasons,omitempty"`
	CompletedAt time.Time      `json:"completed_at"`
}

// RunStatus is what the control surface reports about the ingestion loop.
type RunStatus struct {
	Running        bool      `json:"running"`
	RunID          string    `json:"run_id,omitempty"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	Cycles         int64     `json:"cycles"`
	FilesProcessed int64     `json:"files_processed"`
	FilesRejected  int64     `json:"files_rejected"`
	Rows           int64     `json:"rows"`
	ValidRows      int64     `json:"valid_rows"`
	InvalidRows    int64     `json:"invalid_rows"`
	TotalQuantity  int64     `json:"total_quantity"`
	TotalRevenue   string    `json:"total_revenue"`
}
