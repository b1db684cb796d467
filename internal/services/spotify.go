// Spotify playlist source.
//
// Resolution walks three tiers, each with strictly less coverage than the
// one above it: the Web API (requires configured client credentials, returns
// the complete paginated track list), the base64 initial-state blob embedded
// in the playlist landing page, and finally the page's metadata/linked-data
// tags. A tier failing falls through to the next; only when all three yield
// nothing does Resolve fail.

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyAPIBase  = "https://api.spotify.com/v1"
	spotifyWebBase  = "https://open.spotify.com"

	// Artwork within this width band is preferred when the source offers
	// multiple resolutions.
	artworkMinWidth = 200
	artworkMaxWidth = 400

	// Tokens are refreshed when within this window of expiry.
	tokenExpiryLeeway = 60 * time.Second
)

var playlistURLPattern = regexp.MustCompile(`playlist[/:]([A-Za-z0-9]+)`)

// TokenCache is a lazily-populated, invalidatable wrapper around the
// client-credentials token source. Reconfiguring or revoking credentials
// clears the cached token; concurrent fetches race harmlessly on the
// underlying reuse source.
type TokenCache struct {
	mu     sync.Mutex
	conf   *clientcredentials.Config
	source oauth2.TokenSource
}

// NewTokenCache creates a token cache for the given client credentials.
// tokenURL overrides the production token endpoint in tests; empty uses the
// default.
func NewTokenCache(clientID, clientSecret, tokenURL string) *TokenCache {
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}
	return &TokenCache{
		conf: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		},
	}
}

// Token returns a valid access token, fetching or refreshing as needed.
func (c *TokenCache) Token(ctx context.Context) (*oauth2.Token, error) {
	if c.conf.ClientID == "" || c.conf.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client_id and client_secret must both be set", shared.ErrMissingCredentials)
	}

	c.mu.Lock()
	if c.source == nil {
		c.source = oauth2.ReuseTokenSourceWithExpiry(nil, c.conf.TokenSource(ctx), tokenExpiryLeeway)
	}
	source := c.source
	c.mu.Unlock()

	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Invalidate drops any cached token. The next Token call re-fetches.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.source = nil
	c.mu.Unlock()
}

// SpotifyService implements [PlaylistSource] for Spotify playlist URLs.
type SpotifyService struct {
	tokens     *TokenCache // nil when no credentials are configured
	httpClient *http.Client
	logger     *log.Logger
	webBase    string
	apiBase    string
}

// SpotifyOpts configures a SpotifyService.
type SpotifyOpts struct {
	// ClientID/ClientSecret enable the Web API tier when both are set.
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
	Logger       *log.Logger
	// WebBase/APIBase/TokenURL override the production endpoints in tests.
	WebBase  string
	APIBase  string
	TokenURL string
}

// NewSpotifyService creates a playlist source. Credentials are optional;
// without them resolution starts at the scrape tier.
func NewSpotifyService(opts SpotifyOpts) *SpotifyService {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.WebBase == "" {
		opts.WebBase = spotifyWebBase
	}
	if opts.APIBase == "" {
		opts.APIBase = spotifyAPIBase
	}

	var tokens *TokenCache
	if opts.ClientID != "" && opts.ClientSecret != "" {
		tokens = NewTokenCache(opts.ClientID, opts.ClientSecret, opts.TokenURL)
	}

	return &SpotifyService{
		tokens:     tokens,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		webBase:    opts.WebBase,
		apiBase:    opts.APIBase,
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Tokens exposes the credential cache, e.g. for explicit revocation.
func (s *SpotifyService) Tokens() *TokenCache {
	return s.tokens
}

// Resolve extracts the playlist ID from the URL and walks the tiers.
func (s *SpotifyService) Resolve(ctx context.Context, playlistURL string) (string, []models.TrackDescriptor, error) {
	matches := playlistURLPattern.FindStringSubmatch(playlistURL)
	if len(matches) < 2 {
		return "", nil, fmt.Errorf("%w: not a playlist URL: %s", shared.ErrInvalidInput, playlistURL)
	}
	playlistID := matches[1]

	if s.tokens != nil {
		name, tracks, err := s.resolveViaAPI(ctx, playlistID)
		if err == nil && len(tracks) > 0 {
			return name, tracks, nil
		}
		// Record the reason and fall through to scraping.
		s.logger.Warn("API playlist resolution failed, falling back to scrape", "playlist", playlistID, "err", err)
	}

	name, tracks, err := s.resolveViaScrape(ctx, playlistID)
	if err != nil {
		return "", nil, err
	}
	return name, tracks, nil
}

// spotifyImage is an image resource offered at a given resolution.
type spotifyImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type spotifyArtist struct {
	Name string `json:"name"`
}

type spotifyAPITrack struct {
	Name       string          `json:"name"`
	Artists    []spotifyArtist `json:"artists"`
	DurationMS int             `json:"duration_ms"`
	Album      struct {
		Images []spotifyImage `json:"images"`
	} `json:"album"`
}

type spotifyTrackPage struct {
	Items []struct {
		Track spotifyAPITrack `json:"track"`
	} `json:"items"`
	Next *string `json:"next"`
}

type spotifyAPIPlaylist struct {
	Name   string           `json:"name"`
	Tracks spotifyTrackPage `json:"tracks"`
}

// resolveViaAPI fetches the playlist through the Web API, following the
// opaque next-page URL until absent. This tier alone returns the complete
// track list regardless of playlist size.
func (s *SpotifyService) resolveViaAPI(ctx context.Context, playlistID string) (string, []models.TrackDescriptor, error) {
	fields := "name,tracks.items(track(name,artists(name),duration_ms,album(images))),tracks.next"
	endpoint := fmt.Sprintf("%s/playlists/%s?fields=%s", s.apiBase, playlistID, url.QueryEscape(fields))

	var playlist spotifyAPIPlaylist
	if err := s.apiGet(ctx, endpoint, &playlist); err != nil {
		return "", nil, err
	}

	var tracks []models.TrackDescriptor
	page := playlist.Tracks
	for {
		for _, item := range page.Items {
			tracks = append(tracks, descriptorFromAPITrack(item.Track))
		}
		if page.Next == nil || *page.Next == "" {
			break
		}

		var next spotifyTrackPage
		if err := s.apiGet(ctx, *page.Next, &next); err != nil {
			return "", nil, err
		}
		page = next
	}

	return playlist.Name, tracks, nil
}

func (s *SpotifyService) apiGet(ctx context.Context, endpoint string, result any) error {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: status %d", shared.ErrAuthFailed, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func descriptorFromAPITrack(track spotifyAPITrack) models.TrackDescriptor {
	names := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		if artist.Name != "" {
			names = append(names, artist.Name)
		}
	}

	return models.TrackDescriptor{
		Name:       track.Name,
		Artist:     strings.Join(names, ", "),
		DurationMs: track.DurationMS,
		ArtworkURL: pickArtwork(track.Album.Images),
	}
}

// pickArtwork prefers a source in the 200–400px width band, else the first.
func pickArtwork(images []spotifyImage) string {
	for _, img := range images {
		if img.Width >= artworkMinWidth && img.Width <= artworkMaxWidth {
			return img.URL
		}
	}
	if len(images) > 0 {
		return images[0].URL
	}
	return ""
}
