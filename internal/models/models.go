package models

import (
	"fmt"
	"strings"
	"time"
)

// TrackDescriptor identifies a track to download, as resolved from the
// playlist source. Immutable once produced.
type TrackDescriptor struct {
	Name       string
	Artist     string
	DurationMs int
	ArtworkURL string // empty when the source offers none
}

// SearchQuery derives the provider search string for the descriptor.
// Only the first listed artist is used; co-listed artists in the query tend
// to produce false negatives against provider search engines.
func (t TrackDescriptor) SearchQuery() string {
	artist := t.Artist
	if idx := strings.Index(artist, ","); idx >= 0 {
		artist = strings.TrimSpace(artist[:idx])
	}
	return strings.TrimSpace(t.Name + " " + artist)
}

// ResolvedMedia is a provider's answer for a search query. The stream URL
// may be short-lived or single-use, so resolved media is never persisted.
type ResolvedMedia struct {
	Title      string
	Artist     string
	StreamURL  string
	DurationMs int
	ArtworkURL string
}

// Playlist is a locally stored playlist resolved from a source URL.
type Playlist struct {
	ID        string
	Name      string
	SourceURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks required playlist fields. SourceURL is optional: one-off
// track downloads are filed under a playlist with no source.
func (p *Playlist) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("playlist name is required")
	}
	return nil
}

// Song is a downloaded track stored in the local library. LoudnessDb is nil
// until the analyzer has run; nil means "unknown loudness", never zero.
type Song struct {
	ID         string
	PlaylistID string
	Title      string
	Artist     string
	LocalPath  string
	DurationMs int
	ArtworkURL string
	OrderIndex int
	LoudnessDb *float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks required song fields.
func (s *Song) Validate() error {
	if s.PlaylistID == "" {
		return fmt.Errorf("song playlist ID is required")
	}
	if s.Title == "" {
		return fmt.Errorf("song title is required")
	}
	if s.LocalPath == "" {
		return fmt.Errorf("song local path is required")
	}
	if s.OrderIndex < 0 {
		return fmt.Errorf("song order index must be non-negative")
	}
	return nil
}
