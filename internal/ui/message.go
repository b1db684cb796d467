package ui

import "github.com/desertthunder/mixtape/internal/models"

// progressMsg carries one orchestrator progress event into the update loop.
type progressMsg models.DownloadProgress

// summaryMsg signals the end of the run with its summary.
type summaryMsg struct {
	summary *models.DownloadSummary
	err     error
}
