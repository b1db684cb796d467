// Package tasks implements the batch download pipeline.
//
// The Downloader walks a playlist's track descriptors sequentially, trying
// providers in a fixed priority order, persisting each successful download,
// and emitting DownloadProgress events over a channel for the CLI/UI layer.
// One track's failure never aborts the batch; it is absorbed into the run's
// DownloadSummary.
package tasks
