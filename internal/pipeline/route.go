package pipeline

import (
	"fmt"

	"sales-pipeline/internal/model"
	"sales-pipeline/pkg/utils"
)

// DefaultErrorThreshold is the per-file row-error budget. A file with at
// most this many row errors still counts as processed.
const DefaultErrorThreshold = 5

// Decide picks the destination area for a file from its row-error count.
// Files with exactly threshold errors are still accepted; only a strictly
// greater count routes to the error area.
func Decide(errorCount, threshold int) model.Route {
	if errorCount > threshold {
		return model.RouteRejected
	}
	return model.RouteProcessed
}

// Router performs the decided move using the archive manager.
type Router struct {
	Threshold int
	Archive   *utils.ArchiveManager
}

// NewRouter creates a router over the processed and error areas.
func NewRouter(threshold int, archive *utils.ArchiveManager) *Router {
	return &Router{Threshold: threshold, Archive: archive}
}

// Route decides and performs the move for a fully-read file. It returns the
// decision and the final destination path.
func (rt *Router) Route(filePath string, errorCount int) (model.Route, string, error) {
	route := Decide(errorCount, rt.Threshold)

	destDir := rt.Archive.ProcessedDir
	if route == model.RouteRejected {
		destDir = rt.Archive.ErrorDir
	}

	dest := rt.Archive.DestinationPath(destDir, filePath)
	if err := rt.Archive.MoveFile(filePath, dest); err != nil {
		return route, "", fmt.Errorf("failed to move %s to %s: %w", filePath, dest, err)
	}
	return route, dest, nil
}
