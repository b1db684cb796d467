// Bandcamp download provider.
//
// Bandcamp has no public search API. Search scrapes the rendered results
// page for the first track permalink; stream resolution fetches that page
// and decodes the HTML-entity-encoded JSON in its data-tralbum attribute,
// which carries track metadata and a direct mp3 URL.

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
)

const bandcampBaseURL = "https://bandcamp.com"

var (
	trackPermalinkPattern = regexp.MustCompile(`href="(https?://[^"]+/track/[^"?]+)`)
	tralbumAttrPattern    = regexp.MustCompile(`data-tralbum="([^"]+)"`)
)

// BandcampService implements [Provider] by scraping search and track pages.
type BandcampService struct {
	httpClient *http.Client
	logger     *log.Logger
	baseURL    string
}

// BandcampOpts configures a BandcampService.
type BandcampOpts struct {
	HTTPClient *http.Client
	Logger     *log.Logger
	// BaseURL overrides the production endpoint in tests.
	BaseURL string
}

// NewBandcampService creates a Bandcamp provider.
func NewBandcampService(opts BandcampOpts) *BandcampService {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = bandcampBaseURL
	}

	return &BandcampService{
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		baseURL:    opts.BaseURL,
	}
}

func (s *BandcampService) Name() string {
	return "Bandcamp"
}

// SearchTrack fetches the rendered search-results page and returns the
// first track permalink as the stream handle. Title and artist come from
// the track page during resolution; the descriptor's own metadata is what
// gets persisted.
func (s *BandcampService) SearchTrack(ctx context.Context, query string) (*MatchedTrack, error) {
	searchURL := fmt.Sprintf("%s/search?q=%s&item_type=t", s.baseURL, url.QueryEscape(query))

	page, err := s.fetchPage(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	matches := trackPermalinkPattern.FindStringSubmatch(page)
	if len(matches) < 2 {
		return nil, nil
	}

	return &MatchedTrack{Ref: matches[1]}, nil
}

// bandcampTralbum is the embedded track payload on a track page.
type bandcampTralbum struct {
	Artist  string `json:"artist"`
	Current struct {
		Title string `json:"title"`
	} `json:"current"`
	Trackinfo []struct {
		Title    string            `json:"title"`
		Duration float64           `json:"duration"` // seconds
		File     map[string]string `json:"file"`
	} `json:"trackinfo"`
}

// ResolveStreamURL fetches the track permalink and extracts the direct
// stream URL from the data-tralbum attribute.
func (s *BandcampService) ResolveStreamURL(ctx context.Context, track *MatchedTrack) (string, error) {
	page, err := s.fetchPage(ctx, track.Ref)
	if err != nil {
		return "", err
	}

	matches := tralbumAttrPattern.FindStringSubmatch(page)
	if len(matches) < 2 {
		return "", fmt.Errorf("%w: no track data on page", shared.ErrDownloadFailed)
	}

	// The attribute value is HTML-entity-encoded JSON.
	var tralbum bandcampTralbum
	if err := json.Unmarshal([]byte(html.UnescapeString(matches[1])), &tralbum); err != nil {
		return "", fmt.Errorf("%w: malformed track data: %v", shared.ErrDownloadFailed, err)
	}

	if len(tralbum.Trackinfo) == 0 {
		return "", fmt.Errorf("%w: no tracks in page data", shared.ErrDownloadFailed)
	}

	info := tralbum.Trackinfo[0]
	streamURL := info.File["mp3-128"]
	if streamURL == "" {
		for _, candidate := range info.File {
			streamURL = candidate
			break
		}
	}
	if streamURL == "" {
		return "", fmt.Errorf("%w: no stream URL in page data", shared.ErrDownloadFailed)
	}

	// Backfill metadata on the match while it is at hand.
	if track.Title == "" {
		track.Title = info.Title
		if track.Title == "" {
			track.Title = tralbum.Current.Title
		}
	}
	if track.Artist == "" {
		track.Artist = tralbum.Artist
	}
	if track.DurationMs == 0 {
		track.DurationMs = int(info.Duration * 1000)
	}

	return streamURL, nil
}

// DownloadToFile streams the resolved URL to dest.
func (s *BandcampService) DownloadToFile(ctx context.Context, streamURL, dest string, onProgress ProgressFunc) error {
	return downloadToFile(ctx, s.httpClient, streamURL, dest, shared.DesktopUserAgent, onProgress)
}

func (s *BandcampService) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", shared.DesktopUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	return string(body), nil
}
