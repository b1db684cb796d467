package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/time/rate"
)

// audioExtension is appended to every sanitized download filename.
const audioExtension = ".mp3"

// maxFileNameLength bounds the sanitized filename stem.
const maxFileNameLength = 100

// LoudnessAnalyzer measures a downloaded file. The boolean is false when no
// measurement is possible; that outcome is silently accepted.
type LoudnessAnalyzer interface {
	Measure(ctx context.Context, path string) (float64, bool)
}

// clientIDResolver is implemented by providers that need an access
// identifier resolved before use (the token-gated SoundCloud variant).
type clientIDResolver interface {
	ResolveClientID(ctx context.Context) (string, error)
}

// Downloader orchestrates batch downloads for one playlist at a time.
// Tracks within a run are processed sequentially, which bounds bandwidth
// use and keeps order-index assignment trivially correct. Two Downloaders
// working on different playlists are independent.
type Downloader struct {
	providers []services.Provider // fixed priority order
	songs     *repositories.SongRepository
	analyzer  LoudnessAnalyzer
	limiter   *rate.Limiter
	logger    *log.Logger
	dir       string
}

// DownloaderOpts configures a Downloader.
type DownloaderOpts struct {
	Providers []services.Provider
	Songs     *repositories.SongRepository
	Analyzer  LoudnessAnalyzer
	Logger    *log.Logger
	Directory string
	// RateLimit caps provider searches per second; 0 disables limiting.
	RateLimit float64
}

// NewDownloader creates a Downloader.
func NewDownloader(opts DownloaderOpts) *Downloader {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &Downloader{
		providers: opts.Providers,
		songs:     opts.Songs,
		analyzer:  opts.Analyzer,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    opts.Logger,
		dir:       opts.Directory,
	}
}

// sendProgress sends a progress update without blocking. A slow or absent
// consumer drops updates rather than stalling downloads.
func (d *Downloader) sendProgress(progress chan<- models.DownloadProgress, update models.DownloadProgress) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// DownloadTracks downloads every track in order and returns the run
// summary. Per-track failures are absorbed; the summary's provider and
// not-found counts always add up to len(tracks).
func (d *Downloader) DownloadTracks(ctx context.Context, playlistID string, tracks []models.TrackDescriptor, progress chan<- models.DownloadProgress) (*models.DownloadSummary, error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	// Resolve the token-gated provider's identifier once up front rather
	// than per track.
	for _, provider := range d.providers {
		if resolver, ok := provider.(clientIDResolver); ok {
			if _, err := resolver.ResolveClientID(ctx); err != nil {
				d.logger.Warn("client ID pre-resolution failed", "provider", provider.Name(), "err", err)
			}
		}
	}

	summary := &models.DownloadSummary{}
	var loudnessWork sync.WaitGroup
	total := len(tracks)

	for i, track := range tracks {
		if err := ctx.Err(); err != nil {
			// Count the rest of the batch as not found so the summary
			// still accounts for every track.
			summary.NotFoundCount += total - i
			break
		}

		name := track.Name
		providerIdx, err := d.downloadTrack(ctx, playlistID, track.SearchQuery(), name, track, i, total, progress, &loudnessWork)
		switch {
		case err != nil:
			d.logger.Warn("track download failed", "track", name, "err", err)
			summary.NotFoundCount++
			d.sendProgress(progress, failedUpdate(i, total, name))
		case providerIdx < 0:
			summary.NotFoundCount++
			d.sendProgress(progress, notFoundUpdate(i, total, name))
		case providerIdx == 0:
			summary.SoundCloudCount++
		default:
			summary.BandcampCount++
		}
	}

	loudnessWork.Wait()
	return summary, nil
}

// DownloadOne downloads a single track by query, outside any batch.
func (d *Downloader) DownloadOne(ctx context.Context, playlistID, query, displayName string, progress chan<- models.DownloadProgress) error {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: empty search query", shared.ErrInvalidInput)
	}

	var loudnessWork sync.WaitGroup
	descriptor := models.TrackDescriptor{Name: displayName}

	providerIdx, err := d.downloadTrack(ctx, playlistID, query, displayName, descriptor, 0, 1, progress, &loudnessWork)
	if err != nil {
		d.sendProgress(progress, failedUpdate(0, 1, displayName))
		loudnessWork.Wait()
		return err
	}
	if providerIdx < 0 {
		d.sendProgress(progress, notFoundUpdate(0, 1, displayName))
		loudnessWork.Wait()
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, displayName)
	}

	loudnessWork.Wait()
	return nil
}

// downloadTrack walks the provider priority order for one track. It returns
// the index of the provider that served the download, or -1 when no
// provider matched.
func (d *Downloader) downloadTrack(ctx context.Context, playlistID, query, name string, track models.TrackDescriptor, idx, total int, progress chan<- models.DownloadProgress, loudnessWork *sync.WaitGroup) (int, error) {
	for providerIdx, provider := range d.providers {
		if providerIdx == 0 {
			d.sendProgress(progress, searchingUpdate(idx, total, name))
		} else {
			d.sendProgress(progress, fallbackUpdate(idx, total, name))
		}

		if err := d.limiter.Wait(ctx); err != nil {
			return 0, err
		}

		match, err := provider.SearchTrack(ctx, query)
		if err != nil {
			return 0, err
		}
		if match == nil {
			continue
		}

		d.sendProgress(progress, downloadingUpdate(idx, total, name, provider.Name(), 0, -1))

		streamURL, err := provider.ResolveStreamURL(ctx, match)
		if err != nil {
			return 0, err
		}

		dest := filepath.Join(d.dir, SanitizeFileName(name)+audioExtension)
		onProgress := func(bytesRead, totalBytes int64) {
			d.sendProgress(progress, downloadingUpdate(idx, total, name, provider.Name(), bytesRead, totalBytes))
		}
		if err := provider.DownloadToFile(ctx, streamURL, dest, onProgress); err != nil {
			return 0, err
		}

		song, err := d.persistSong(playlistID, track, match, dest)
		if err != nil {
			return 0, err
		}

		d.scheduleLoudness(ctx, loudnessWork, song)
		d.sendProgress(progress, doneUpdate(idx, total, name, provider.Name()))
		return providerIdx, nil
	}

	return -1, nil
}

// persistSong stores the downloaded track. Only called once the file is
// fully written; a truncated download never reaches this point.
func (d *Downloader) persistSong(playlistID string, track models.TrackDescriptor, match *services.MatchedTrack, dest string) (*models.Song, error) {
	orderIndex, err := d.songs.NextOrderIndex(playlistID)
	if err != nil {
		return nil, err
	}

	title := track.Name
	if title == "" {
		title = match.Title
	}
	artist := track.Artist
	if artist == "" {
		artist = match.Artist
	}
	durationMs := track.DurationMs
	if durationMs == 0 {
		durationMs = match.DurationMs
	}
	artworkURL := track.ArtworkURL
	if artworkURL == "" {
		artworkURL = match.ArtworkURL
	}

	song := &models.Song{
		PlaylistID: playlistID,
		Title:      title,
		Artist:     artist,
		LocalPath:  dest,
		DurationMs: durationMs,
		ArtworkURL: artworkURL,
		OrderIndex: orderIndex,
	}
	if err := d.songs.Create(song); err != nil {
		return nil, err
	}

	return song, nil
}

// scheduleLoudness measures the stored file off the download loop and
// patches the result in. A failed measurement leaves loudness absent and is
// never retried; it must not block the track from counting as downloaded.
func (d *Downloader) scheduleLoudness(ctx context.Context, loudnessWork *sync.WaitGroup, song *models.Song) {
	if d.analyzer == nil {
		return
	}

	loudnessWork.Add(1)
	go func() {
		defer loudnessWork.Done()

		// Measurement outlives run cancellation; the file is already
		// persisted.
		measureCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Minute)
		defer cancel()

		db, ok := d.analyzer.Measure(measureCtx, song.LocalPath)
		if !ok {
			d.logger.Debug("loudness unavailable", "song", song.ID)
			return
		}
		if err := d.songs.SetLoudness(song.ID, db); err != nil {
			d.logger.Warn("failed to store loudness", "song", song.ID, "err", err)
		}
	}()
}

// SanitizeFileName strips everything but letters, digits, spaces, hyphens
// and underscores, truncating the result to 100 characters.
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}

	sanitized := b.String()
	if len(sanitized) > maxFileNameLength {
		sanitized = sanitized[:maxFileNameLength]
	}
	if sanitized == "" {
		sanitized = "track"
	}
	return sanitized
}
