// SoundCloud download provider.
//
// The API requires a client_id that is not exposed through documented means;
// it rotates with web-player releases. Resolution fetches the home page,
// collects the referenced script bundles, and scans the most recent ones for
// a client_id literal. The identifier is cached for the process lifetime;
// callers that see an authorized call fail should Invalidate and re-resolve.

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
)

const (
	soundcloudHomeURL = "https://soundcloud.com/"
	soundcloudAPIBase = "https://api-v2.soundcloud.com"

	// Only the most recently declared bundles are scanned; the identifier
	// historically lives near the end of the bundle list.
	maxBundleScans = 5
)

var (
	// Two known shapes for script bundle references on the home page.
	bundleAssetPattern   = regexp.MustCompile(`src="(https://a-v2\.sndcdn\.com/assets/[^"]+\.js)"`)
	bundleGenericPattern = regexp.MustCompile(`<script[^>]+src="(https?://[^"]+\.js)"`)

	// Known client_id literal shapes inside the bundles.
	clientIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`client_id:"([A-Za-z0-9]{16,})"`),
		regexp.MustCompile(`client_id=([A-Za-z0-9]{16,})`),
		regexp.MustCompile(`"client_id":"([A-Za-z0-9]{16,})"`),
	}
)

// ClientIDCache holds the resolved client identifier for the process
// lifetime. Concurrent resolutions race harmlessly: the identifier is an
// externally-fixed value, so the last store wins and both are correct.
type ClientIDCache struct {
	value atomic.Value // string
}

// Get returns the cached identifier, if any.
func (c *ClientIDCache) Get() (string, bool) {
	v, ok := c.value.Load().(string)
	return v, ok && v != ""
}

// Set stores a resolved identifier.
func (c *ClientIDCache) Set(id string) {
	c.value.Store(id)
}

// Invalidate clears the cache so the next use re-resolves from scratch.
func (c *ClientIDCache) Invalidate() {
	c.value.Store("")
}

// SoundCloudService implements [Provider] via the token-gated v2 API.
type SoundCloudService struct {
	clientIDs  *ClientIDCache
	httpClient *http.Client
	logger     *log.Logger
	homeURL    string
	apiBase    string
}

// SoundCloudOpts configures a SoundCloudService.
type SoundCloudOpts struct {
	ClientIDs  *ClientIDCache
	HTTPClient *http.Client
	Logger     *log.Logger
	// HomeURL/APIBase override the production endpoints in tests.
	HomeURL string
	APIBase string
}

// NewSoundCloudService creates a SoundCloud provider.
func NewSoundCloudService(opts SoundCloudOpts) *SoundCloudService {
	if opts.ClientIDs == nil {
		opts.ClientIDs = &ClientIDCache{}
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.HomeURL == "" {
		opts.HomeURL = soundcloudHomeURL
	}
	if opts.APIBase == "" {
		opts.APIBase = soundcloudAPIBase
	}

	return &SoundCloudService{
		clientIDs:  opts.ClientIDs,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		homeURL:    opts.HomeURL,
		apiBase:    opts.APIBase,
	}
}

func (s *SoundCloudService) Name() string {
	return "SoundCloud"
}

// ClientIDs exposes the identifier cache for pre-resolution and
// invalidation by callers.
func (s *SoundCloudService) ClientIDs() *ClientIDCache {
	return s.clientIDs
}

// ResolveClientID returns the cached client identifier, extracting it from
// the web player's script bundles on first use.
func (s *SoundCloudService) ResolveClientID(ctx context.Context) (string, error) {
	if id, ok := s.clientIDs.Get(); ok {
		return id, nil
	}

	bundles, err := s.findBundleURLs(ctx)
	if err != nil {
		return "", err
	}

	// Scan the most recently declared bundles first.
	if len(bundles) > maxBundleScans {
		bundles = bundles[len(bundles)-maxBundleScans:]
	}
	for i := len(bundles) - 1; i >= 0; i-- {
		id, err := s.scanBundle(ctx, bundles[i])
		if err != nil {
			s.logger.Debug("bundle scan failed", "bundle", bundles[i], "err", err)
			continue
		}
		if id != "" {
			s.clientIDs.Set(id)
			return id, nil
		}
	}

	return "", fmt.Errorf("%w: client_id not found in any script bundle", shared.ErrAuthFailed)
}

// findBundleURLs fetches the home page and extracts referenced script
// bundle URLs, preferring whichever known pattern yields matches.
func (s *SoundCloudService) findBundleURLs(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.homeURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", shared.DesktopUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: home page status %d", shared.ErrAuthFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	page := string(body)

	for _, pattern := range []*regexp.Regexp{bundleAssetPattern, bundleGenericPattern} {
		var urls []string
		for _, matches := range pattern.FindAllStringSubmatch(page, -1) {
			urls = append(urls, matches[1])
		}
		if len(urls) > 0 {
			return urls, nil
		}
	}

	return nil, fmt.Errorf("%w: no script bundles found on home page", shared.ErrAuthFailed)
}

// scanBundle fetches one bundle and scans it for a client_id literal.
func (s *SoundCloudService) scanBundle(ctx context.Context, bundleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bundleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", shared.DesktopUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("bundle status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	bundle := string(body)

	for _, pattern := range clientIDPatterns {
		if matches := pattern.FindStringSubmatch(bundle); len(matches) >= 2 {
			return matches[1], nil
		}
	}

	return "", nil
}

type soundcloudTranscoding struct {
	URL    string `json:"url"`
	Format struct {
		Protocol string `json:"protocol"`
	} `json:"format"`
}

type soundcloudTrack struct {
	Title string `json:"title"`
	User  struct {
		Username string `json:"username"`
	} `json:"user"`
	Duration   int    `json:"duration"`
	ArtworkURL string `json:"artwork_url"`
	Media      struct {
		Transcodings []soundcloudTranscoding `json:"transcodings"`
	} `json:"media"`
}

// SearchTrack queries the search endpoint and returns the top hit, with the
// preferred transcoding endpoint as the stream handle.
func (s *SoundCloudService) SearchTrack(ctx context.Context, query string) (*MatchedTrack, error) {
	clientID, err := s.ResolveClientID(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/search/tracks?q=%s&client_id=%s&limit=10", s.apiBase, url.QueryEscape(query), url.QueryEscape(clientID))

	var result struct {
		Collection []soundcloudTrack `json:"collection"`
	}
	if err := s.apiGet(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	for _, track := range result.Collection {
		transcoding := pickTranscoding(track.Media.Transcodings)
		if transcoding == "" {
			continue
		}
		return &MatchedTrack{
			Title:      track.Title,
			Artist:     track.User.Username,
			DurationMs: track.Duration,
			ArtworkURL: track.ArtworkURL,
			Ref:        transcoding,
		}, nil
	}

	return nil, nil
}

// pickTranscoding prefers a progressive encoding, deliverable as a single
// sequential byte stream, over chunked/segmented ones. Falls back to the
// first available encoding.
func pickTranscoding(transcodings []soundcloudTranscoding) string {
	for _, t := range transcodings {
		if t.Format.Protocol == "progressive" {
			return t.URL
		}
	}
	if len(transcodings) > 0 {
		return transcodings[0].URL
	}
	return ""
}

// ResolveStreamURL exchanges the transcoding endpoint for the actual,
// short-lived stream URL.
func (s *SoundCloudService) ResolveStreamURL(ctx context.Context, track *MatchedTrack) (string, error) {
	clientID, err := s.ResolveClientID(ctx)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s?client_id=%s", track.Ref, url.QueryEscape(clientID))

	var result struct {
		URL string `json:"url"`
	}
	if err := s.apiGet(ctx, endpoint, &result); err != nil {
		return "", err
	}
	if result.URL == "" {
		return "", fmt.Errorf("%w: transcoding resolved to empty URL", shared.ErrDownloadFailed)
	}

	return result.URL, nil
}

// DownloadToFile streams the resolved URL to dest.
func (s *SoundCloudService) DownloadToFile(ctx context.Context, streamURL, dest string, onProgress ProgressFunc) error {
	return downloadToFile(ctx, s.httpClient, streamURL, dest, shared.DesktopUserAgent, onProgress)
}

func (s *SoundCloudService) apiGet(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", shared.DesktopUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
