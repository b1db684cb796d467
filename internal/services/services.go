package services

import (
	"context"

	"github.com/desertthunder/mixtape/internal/models"
)

// PlaylistSource resolves a playlist URL into an ordered list of track
// descriptors.
type PlaylistSource interface {
	// Resolve returns the playlist name and its tracks. It fails with
	// shared.ErrInvalidInput when the URL does not look like a playlist and
	// shared.ErrSourceUnavailable when every extraction tier is exhausted.
	Resolve(ctx context.Context, playlistURL string) (string, []models.TrackDescriptor, error)

	// Name returns the source's display name.
	Name() string
}

// MatchedTrack is a provider search hit. Ref is the provider-specific handle
// used to resolve the actual stream URL: a transcoding endpoint for
// SoundCloud, a track permalink for Bandcamp.
type MatchedTrack struct {
	Title      string
	Artist     string
	DurationMs int
	ArtworkURL string
	Ref        string
}

// ProgressFunc receives byte-level download progress after each chunk.
// totalBytes is -1 when the origin does not report a content length.
type ProgressFunc func(bytesRead, totalBytes int64)

// Provider is a content source searched for a downloadable match to a track
// query. Implementations are tried in a fixed priority order by the
// download orchestrator.
type Provider interface {
	// SearchTrack returns the provider's top match for the query, or
	// (nil, nil) when the provider has no match. A nil match is a terminal
	// per-track outcome, not an error.
	SearchTrack(ctx context.Context, query string) (*MatchedTrack, error)

	// ResolveStreamURL exchanges a match for a streamable URL. The returned
	// URL may be short-lived and must not be persisted.
	ResolveStreamURL(ctx context.Context, track *MatchedTrack) (string, error)

	// DownloadToFile streams the URL to dest in fixed-size chunks, invoking
	// onProgress after each chunk. The whole file is never buffered in
	// memory.
	DownloadToFile(ctx context.Context, streamURL, dest string, onProgress ProgressFunc) error

	// Name returns the provider's display name.
	Name() string
}
