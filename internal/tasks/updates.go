package tasks

import "github.com/desertthunder/mixtape/internal/models"

// Progress event constructors. One per status keeps call sites in the
// download loop terse.

func searchingUpdate(idx, total int, name string) models.DownloadProgress {
	return models.DownloadProgress{
		CurrentIndex: idx,
		TotalCount:   total,
		TrackName:    name,
		Status:       models.StatusSearching,
	}
}

func fallbackUpdate(idx, total int, name string) models.DownloadProgress {
	return models.DownloadProgress{
		CurrentIndex: idx,
		TotalCount:   total,
		TrackName:    name,
		Status:       models.StatusSearchingFallback,
	}
}

func downloadingUpdate(idx, total int, name, source string, bytesRead, totalBytes int64) models.DownloadProgress {
	return models.DownloadProgress{
		CurrentIndex: idx,
		TotalCount:   total,
		TrackName:    name,
		Status:       models.StatusDownloading,
		Source:       source,
		BytesRead:    bytesRead,
		TotalBytes:   totalBytes,
	}
}

func doneUpdate(idx, total int, name, source string) models.DownloadProgress {
	return models.DownloadProgress{
		CurrentIndex: idx,
		TotalCount:   total,
		TrackName:    name,
		Status:       models.StatusDone,
		Source:       source,
	}
}

func failedUpdate(idx, total int, name string) models.DownloadProgress {
	return models.DownloadProgress{
		CurrentIndex: idx,
		TotalCount:   total,
		TrackName:    name,
		Status:       models.StatusFailed,
	}
}

func notFoundUpdate(idx, total int, name string) models.DownloadProgress {
	return models.DownloadProgress{
		CurrentIndex: idx,
		TotalCount:   total,
		TrackName:    name,
		Status:       models.StatusNotFound,
	}
}
