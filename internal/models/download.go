package models

// DownloadStatus enumerates the per-track states of a download run.
//
// For one track the emitted sequence is a prefix-ordered subset of:
// StatusSearching → StatusSearchingFallback → StatusDownloading →
// {StatusDone | StatusFailed | StatusNotFound}.
type DownloadStatus int

const (
	StatusSearching DownloadStatus = iota
	StatusSearchingFallback
	StatusDownloading
	StatusDone
	StatusFailed
	StatusNotFound
)

func (s DownloadStatus) String() string {
	switch s {
	case StatusSearching:
		return "searching"
	case StatusSearchingFallback:
		return "searching_fallback"
	case StatusDownloading:
		return "downloading"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	case StatusNotFound:
		return "not_found"
	default:
		return ""
	}
}

// DownloadProgress is a transient progress event for one track in a run.
type DownloadProgress struct {
	CurrentIndex int
	TotalCount   int
	TrackName    string
	Status       DownloadStatus
	Source       string // provider name; empty while searching
	// BytesRead/TotalBytes carry byte-level progress during StatusDownloading.
	// TotalBytes is -1 when the provider does not report a content length.
	BytesRead  int64
	TotalBytes int64
}

// DownloadSummary aggregates a completed download run.
//
// SoundCloudCount + BandcampCount + NotFoundCount always equals the number
// of tracks processed; failed tracks count toward NotFoundCount.
type DownloadSummary struct {
	SoundCloudCount int
	BandcampCount   int
	NotFoundCount   int
}

// Total returns the number of tracks accounted for by the summary.
func (s DownloadSummary) Total() int {
	return s.SoundCloudCount + s.BandcampCount + s.NotFoundCount
}
