// Package models defines the data model for the mixtape downloader:
// playlist descriptors resolved from a source URL, provider match results,
// persisted songs, and the progress/summary types emitted by download runs.
package models
