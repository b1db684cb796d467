package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/mixtape/internal/shared"
)

func tokenHandler(calls *int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"Bearer","expires_in":3600}`, *calls)
	}
}

func encodeInitialState(t *testing.T, state any) string {
	t.Helper()
	raw, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("failed to marshal state: %v", err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("Resolve", func(t *testing.T) {
		t.Run("Rejects Non-Playlist URL", func(t *testing.T) {
			srv := NewSpotifyService(SpotifyOpts{})
			_, _, err := srv.Resolve(ctx, "https://open.spotify.com/album/xyz")
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("Accepts URI Form", func(t *testing.T) {
			matches := playlistURLPattern.FindStringSubmatch("spotify:playlist:37i9dQZF1DX4JAvHpjipBk")
			if len(matches) < 2 || matches[1] != "37i9dQZF1DX4JAvHpjipBk" {
				t.Errorf("expected playlist ID extracted from URI, got %v", matches)
			}
		})
	})

	t.Run("API Tier", func(t *testing.T) {
		t.Run("Paginates And Maps Tracks", func(t *testing.T) {
			tokenCalls := 0
			tokenServer := httptest.NewServer(tokenHandler(&tokenCalls))
			defer tokenServer.Close()

			scrapeCalls := 0
			scrapeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				scrapeCalls++
			}))
			defer scrapeServer.Close()

			var apiServer *httptest.Server
			apiServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") == "" {
					t.Error("expected bearer token on API request")
				}
				w.Header().Set("Content-Type", "application/json")
				switch {
				case strings.HasPrefix(r.URL.Path, "/playlists/"):
					next := apiServer.URL + "/page2"
					json.NewEncoder(w).Encode(map[string]any{
						"name": "Morning Mix",
						"tracks": map[string]any{
							"items": []any{
								map[string]any{"track": map[string]any{
									"name":        "First Song",
									"artists":     []any{map[string]any{"name": "Artist One"}, map[string]any{"name": "Artist Two"}},
									"duration_ms": 215000,
									"album": map[string]any{"images": []any{
										map[string]any{"url": "https://img/640.jpg", "width": 640},
										map[string]any{"url": "https://img/300.jpg", "width": 300},
									}},
								}},
							},
							"next": next,
						},
					})
				case r.URL.Path == "/page2":
					json.NewEncoder(w).Encode(map[string]any{
						"items": []any{
							map[string]any{"track": map[string]any{
								"name":        "Second Song",
								"artists":     []any{map[string]any{"name": "Artist Three"}},
								"duration_ms": 180000,
							}},
						},
						"next": nil,
					})
				default:
					http.NotFound(w, r)
				}
			}))
			defer apiServer.Close()

			srv := NewSpotifyService(SpotifyOpts{
				ClientID:     "id",
				ClientSecret: "secret",
				TokenURL:     tokenServer.URL,
				APIBase:      apiServer.URL,
				WebBase:      scrapeServer.URL,
			})

			name, tracks, err := srv.Resolve(ctx, "https://open.spotify.com/playlist/abc123")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if name != "Morning Mix" {
				t.Errorf("expected playlist name 'Morning Mix', got %q", name)
			}
			if len(tracks) != 2 {
				t.Fatalf("expected 2 tracks across pages, got %d", len(tracks))
			}
			if tracks[0].Artist != "Artist One, Artist Two" {
				t.Errorf("expected joined artists, got %q", tracks[0].Artist)
			}
			if tracks[0].ArtworkURL != "https://img/300.jpg" {
				t.Errorf("expected mid-size artwork preferred, got %q", tracks[0].ArtworkURL)
			}
			if tracks[1].Name != "Second Song" || tracks[1].DurationMs != 180000 {
				t.Errorf("unexpected second track: %+v", tracks[1])
			}
			if scrapeCalls != 0 {
				t.Errorf("expected scrape tier untouched, got %d page fetches", scrapeCalls)
			}
		})

		t.Run("Falls Back To Scrape On API Failure", func(t *testing.T) {
			tokenCalls := 0
			tokenServer := httptest.NewServer(tokenHandler(&tokenCalls))
			defer tokenServer.Close()

			apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer apiServer.Close()

			state := map[string]any{
				"entities": map[string]any{"items": map[string]any{
					"playlist:abc": map[string]any{
						"name": "Fallback Mix",
						"content": map[string]any{"items": []any{
							map[string]any{"name": "Only Song", "artists": []any{map[string]any{"name": "Someone"}}, "duration_ms": 120000},
						}},
					},
				}},
			}
			blob := encodeInitialState(t, state)
			scrapeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `<html><script type="text/plain" id="initialState">%s</script></html>`, blob)
			}))
			defer scrapeServer.Close()

			srv := NewSpotifyService(SpotifyOpts{
				ClientID:     "id",
				ClientSecret: "secret",
				TokenURL:     tokenServer.URL,
				APIBase:      apiServer.URL,
				WebBase:      scrapeServer.URL,
			})

			name, tracks, err := srv.Resolve(ctx, "https://open.spotify.com/playlist/abc123")
			if err != nil {
				t.Fatalf("expected fallback to succeed, got %v", err)
			}
			if name != "Fallback Mix" || len(tracks) != 1 {
				t.Errorf("unexpected fallback result: %q, %d tracks", name, len(tracks))
			}
		})
	})

	t.Run("Scrape Tier", func(t *testing.T) {
		newScrapeService := func(page string) (*SpotifyService, func()) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, page)
			}))
			return NewSpotifyService(SpotifyOpts{WebBase: server.URL}), server.Close
		}

		t.Run("Initial State Blob", func(t *testing.T) {
			state := map[string]any{
				"entities": map[string]any{"items": map[string]any{
					"playlist:xyz": map[string]any{
						"name": "Evening Mix",
						"content": map[string]any{"items": []any{
							map[string]any{"itemV2": map[string]any{"data": map[string]any{
								"name":    "Blob Song",
								"artists": map[string]any{"items": []any{map[string]any{"profile": map[string]any{"name": "Profile Artist"}}}},
								"duration": map[string]any{"totalMilliseconds": 215000},
								"albumOfTrack": map[string]any{"coverArt": map[string]any{"sources": []any{
									map[string]any{"url": "https://img/cover.jpg", "width": 300},
								}}},
							}}},
							map[string]any{"track": map[string]any{
								"name":        "Nested Song",
								"artists":     []any{map[string]any{"name": "A"}, map[string]any{"name": "B"}},
								"duration_ms": 90000,
							}},
							map[string]any{"unrelated": true},
						}},
					},
				}},
			}
			blob := encodeInitialState(t, state)
			srv, cleanup := newScrapeService(fmt.Sprintf(`<html><script type="text/plain" id="initialState">%s</script></html>`, blob))
			defer cleanup()

			name, tracks, err := srv.Resolve(ctx, "https://open.spotify.com/playlist/xyz")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if name != "Evening Mix" {
				t.Errorf("expected blob playlist name, got %q", name)
			}
			if len(tracks) != 2 {
				t.Fatalf("expected unparseable item skipped, got %d tracks", len(tracks))
			}
			if tracks[0].Artist != "Profile Artist" || tracks[0].DurationMs != 215000 {
				t.Errorf("unexpected first track: %+v", tracks[0])
			}
			if tracks[0].ArtworkURL != "https://img/cover.jpg" {
				t.Errorf("expected cover art extracted, got %q", tracks[0].ArtworkURL)
			}
			if tracks[1].Artist != "A, B" {
				t.Errorf("expected joined artists, got %q", tracks[1].Artist)
			}
		})

		t.Run("Linked Data Fallback", func(t *testing.T) {
			page := `<html>
<meta property="og:title" content="Road Trip"/>
<script type="application/ld+json">
{"track":{"itemListElement":[
  {"item":{"name":"LD Song","byArtist":{"name":"LD Artist"},"duration":"PT3M20S"}},
  {"item":{"name":"Long Song","byArtist":{"name":"LD Artist"},"duration":"PT1H2M3S"}}
]}}
</script></html>`
			srv, cleanup := newScrapeService(page)
			defer cleanup()

			name, tracks, err := srv.Resolve(ctx, "https://open.spotify.com/playlist/xyz")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if name != "Road Trip" {
				t.Errorf("expected og:title name, got %q", name)
			}
			if len(tracks) != 2 {
				t.Fatalf("expected 2 tracks, got %d", len(tracks))
			}
			if tracks[0].DurationMs != 200000 {
				t.Errorf("expected PT3M20S = 200000ms, got %d", tracks[0].DurationMs)
			}
			if tracks[1].DurationMs != 3723000 {
				t.Errorf("expected PT1H2M3S = 3723000ms, got %d", tracks[1].DurationMs)
			}
		})

		t.Run("All Tiers Empty", func(t *testing.T) {
			srv, cleanup := newScrapeService(`<html><body>nothing here</body></html>`)
			defer cleanup()

			_, _, err := srv.Resolve(ctx, "https://open.spotify.com/playlist/xyz")
			if !errors.Is(err, shared.ErrSourceUnavailable) {
				t.Errorf("expected ErrSourceUnavailable, got %v", err)
			}
		})
	})

	t.Run("TokenCache", func(t *testing.T) {
		t.Run("Reuses Until Invalidated", func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(tokenHandler(&calls))
			defer server.Close()

			cache := NewTokenCache("id", "secret", server.URL)

			first, err := cache.Token(ctx)
			if err != nil {
				t.Fatalf("expected token, got %v", err)
			}
			second, err := cache.Token(ctx)
			if err != nil {
				t.Fatalf("expected token, got %v", err)
			}
			if first.AccessToken != second.AccessToken {
				t.Errorf("expected cached token reuse, got %q then %q", first.AccessToken, second.AccessToken)
			}
			if calls != 1 {
				t.Errorf("expected a single token fetch, got %d", calls)
			}

			cache.Invalidate()
			third, err := cache.Token(ctx)
			if err != nil {
				t.Fatalf("expected token after invalidation, got %v", err)
			}
			if third.AccessToken == first.AccessToken {
				t.Error("expected a fresh token after invalidation")
			}
		})

		t.Run("Requires Both Credentials", func(t *testing.T) {
			for _, cache := range []*TokenCache{
				NewTokenCache("id", "", ""),
				NewTokenCache("", "secret", ""),
			} {
				if _, err := cache.Token(ctx); !errors.Is(err, shared.ErrMissingCredentials) {
					t.Errorf("expected ErrMissingCredentials, got %v", err)
				}
			}
		})
	})

	t.Run("pickArtwork", func(t *testing.T) {
		images := []spotifyImage{
			{URL: "https://img/640.jpg", Width: 640},
			{URL: "https://img/300.jpg", Width: 300},
			{URL: "https://img/64.jpg", Width: 64},
		}
		if got := pickArtwork(images); got != "https://img/300.jpg" {
			t.Errorf("expected mid-size preferred, got %q", got)
		}
		if got := pickArtwork(images[:1]); got != "https://img/640.jpg" {
			t.Errorf("expected first image fallback, got %q", got)
		}
		if got := pickArtwork(nil); got != "" {
			t.Errorf("expected empty for no images, got %q", got)
		}
	})

	t.Run("parseISODurationMs", func(t *testing.T) {
		cases := map[string]int{
			"PT3M20S":   200000,
			"PT1H":      3600000,
			"PT2M3.5S":  123500,
			"PT45S":     45000,
			"":          0,
			"3:20":      0,
			"PTinvalid": 0,
		}
		for input, want := range cases {
			if got := parseISODurationMs(input); got != want {
				t.Errorf("parseISODurationMs(%q) = %d, want %d", input, got, want)
			}
		}
	})
}
