package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

var (
	initialStatePattern = regexp.MustCompile(`<script[^>]+id="initialState"[^>]*>([^<]+)</script>`)
	ogTitlePattern      = regexp.MustCompile(`<meta[^>]+property="og:title"[^>]+content="([^"]*)"`)
	linkedDataPattern   = regexp.MustCompile(`(?s)<script[^>]+type="application/ld\+json"[^>]*>(.*?)</script>`)
	isoDurationPattern  = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?$`)
)

// resolveViaScrape fetches the playlist landing page and extracts tracks
// from the embedded initial-state blob, falling back to metadata tags and
// any linked-data track listing when the blob is absent or undecodable.
func (s *SpotifyService) resolveViaScrape(ctx context.Context, playlistID string) (string, []models.TrackDescriptor, error) {
	pageURL := fmt.Sprintf("%s/playlist/%s", s.webBase, playlistID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}
	// The origin serves materially different (often empty) markup to
	// non-browser agents.
	req.Header.Set("User-Agent", shared.MobileUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", shared.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", nil, fmt.Errorf("%w: playlist page status %d", shared.ErrSourceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", shared.ErrSourceUnavailable, err)
	}
	page := string(body)

	if name, tracks, err := extractFromInitialState(page); err == nil {
		return name, tracks, nil
	} else {
		s.logger.Debug("initial-state extraction failed", "playlist", playlistID, "err", err)
	}

	// Narrower fallback: metadata tags give the name, linked data may give
	// a limited track listing.
	name := extractOgTitle(page)
	tracks := extractLinkedDataTracks(page)
	if len(tracks) == 0 {
		return "", nil, fmt.Errorf("%w: no tracks found in any extraction tier", shared.ErrSourceUnavailable)
	}
	return name, tracks, nil
}

// extractFromInitialState decodes the base64 JSON blob in the designated
// inline script tag and searches it for a track listing.
func extractFromInitialState(page string) (string, []models.TrackDescriptor, error) {
	matches := initialStatePattern.FindStringSubmatch(page)
	if len(matches) < 2 {
		return "", nil, fmt.Errorf("initial-state script tag not found")
	}

	decoded, err := base64.StdEncoding.DecodeString(matches[1])
	if err != nil {
		return "", nil, fmt.Errorf("initial-state blob is not valid base64: %w", err)
	}

	var root any
	if err := json.Unmarshal(decoded, &root); err != nil {
		return "", nil, fmt.Errorf("initial-state blob is not valid JSON: %w", err)
	}

	items := firstNonEmpty(root, blobExtractors)
	if len(items) == 0 {
		return "", nil, fmt.Errorf("no track items found in initial state")
	}

	var tracks []models.TrackDescriptor
	for _, item := range items {
		// A single unparseable item is skipped, not fatal.
		if track, ok := parseBlobItem(item); ok {
			tracks = append(tracks, track)
		}
	}
	if len(tracks) == 0 {
		return "", nil, fmt.Errorf("no track items parsed from initial state")
	}

	return blobPlaylistName(root), tracks, nil
}

// blobExtractor pulls a candidate item list from the decoded state tree.
// Extractors are tried in order; the first non-empty result wins, results
// are never merged across extractors.
type blobExtractor func(root any) []any

var blobExtractors = []blobExtractor{
	// Playlist entity with an embedded content-items array.
	func(root any) []any { return entityItems(root, "content") },
	// Playlist entity with an embedded tracks-items array.
	func(root any) []any { return entityItems(root, "tracks") },
	// Track listing at the tree root.
	func(root any) []any { return asArray(dig(root, "tracks", "items")) },
}

func firstNonEmpty(root any, extractors []blobExtractor) []any {
	for _, extract := range extractors {
		if items := extract(root); len(items) > 0 {
			return items
		}
	}
	return nil
}

// entityItems searches the entities map for a playlist entity carrying
// <container>.items and returns the first one found.
func entityItems(root any, container string) []any {
	entities := asMap(dig(root, "entities", "items"))
	for _, entity := range entities {
		if items := asArray(dig(entity, container, "items")); len(items) > 0 {
			return items
		}
	}
	return nil
}

func blobPlaylistName(root any) string {
	entities := asMap(dig(root, "entities", "items"))
	for _, entity := range entities {
		if name := asString(dig(entity, "name")); name != "" {
			return name
		}
	}
	return asString(dig(root, "name"))
}

// parseBlobItem extracts a descriptor from one raw item. The track payload
// sits either on the item itself or nested under track/itemV2.data.
func parseBlobItem(item any) (models.TrackDescriptor, bool) {
	for _, node := range []any{item, dig(item, "track"), dig(item, "itemV2", "data")} {
		if node == nil {
			continue
		}
		if track, ok := parseBlobTrack(node); ok {
			return track, true
		}
	}
	return models.TrackDescriptor{}, false
}

func parseBlobTrack(node any) (models.TrackDescriptor, bool) {
	name := asString(dig(node, "name"))
	if name == "" {
		name = asString(dig(node, "title"))
	}
	if name == "" {
		return models.TrackDescriptor{}, false
	}

	return models.TrackDescriptor{
		Name:       name,
		Artist:     blobArtists(node),
		DurationMs: blobDurationMs(node),
		ArtworkURL: blobArtwork(node),
	}, true
}

// blobArtists joins co-listed artists with ", ". Artist lists appear either
// as a plain array of named objects or wrapped in an items array of
// profiles.
func blobArtists(node any) string {
	var names []string

	collect := func(list []any) {
		for _, entry := range list {
			if name := asString(dig(entry, "name")); name != "" {
				names = append(names, name)
			} else if name := asString(dig(entry, "profile", "name")); name != "" {
				names = append(names, name)
			}
		}
	}

	if list := asArray(dig(node, "artists")); len(list) > 0 {
		collect(list)
	} else if list := asArray(dig(node, "artists", "items")); len(list) > 0 {
		collect(list)
	}

	if len(names) == 0 {
		if subtitle := asString(dig(node, "subtitle")); subtitle != "" {
			return subtitle
		}
		return ""
	}

	result := names[0]
	for _, name := range names[1:] {
		result += ", " + name
	}
	return result
}

// blobDurationMs tries the known duration field and unit variants,
// defaulting to 0 when none is present.
func blobDurationMs(node any) int {
	if ms, ok := asNumber(dig(node, "duration_ms")); ok {
		return int(ms)
	}
	if ms, ok := asNumber(dig(node, "durationMs")); ok {
		return int(ms)
	}
	if ms, ok := asNumber(dig(node, "duration", "totalMilliseconds")); ok {
		return int(ms)
	}
	if ms, ok := asNumber(dig(node, "duration")); ok {
		return int(ms)
	}
	return 0
}

func blobArtwork(node any) string {
	for _, path := range [][]string{
		{"coverArt", "sources"},
		{"albumOfTrack", "coverArt", "sources"},
		{"images"},
	} {
		keys := append([]string{}, path...)
		if sources := asArray(dig(node, keys...)); len(sources) > 0 {
			if url := pickBlobArtwork(sources); url != "" {
				return url
			}
		}
	}
	return ""
}

func pickBlobArtwork(sources []any) string {
	images := make([]spotifyImage, 0, len(sources))
	for _, source := range sources {
		url := asString(dig(source, "url"))
		if url == "" {
			continue
		}
		width := 0
		if w, ok := asNumber(dig(source, "width")); ok {
			width = int(w)
		}
		images = append(images, spotifyImage{URL: url, Width: width})
	}
	return pickArtwork(images)
}

// extractOgTitle pulls the playlist name from the page's og:title tag.
func extractOgTitle(page string) string {
	matches := ogTitlePattern.FindStringSubmatch(page)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// extractLinkedDataTracks parses any embedded ld+json track listing.
// Linked data carries ISO-8601 durations and no artwork.
func extractLinkedDataTracks(page string) []models.TrackDescriptor {
	var tracks []models.TrackDescriptor

	for _, matches := range linkedDataPattern.FindAllStringSubmatch(page, -1) {
		var doc any
		if err := json.Unmarshal([]byte(matches[1]), &doc); err != nil {
			continue
		}

		items := asArray(dig(doc, "track", "itemListElement"))
		if len(items) == 0 {
			items = asArray(dig(doc, "track"))
		}

		for _, item := range items {
			node := dig(item, "item")
			if node == nil {
				node = item
			}
			name := asString(dig(node, "name"))
			if name == "" {
				continue
			}
			tracks = append(tracks, models.TrackDescriptor{
				Name:       name,
				Artist:     asString(dig(node, "byArtist", "name")),
				DurationMs: parseISODurationMs(asString(dig(node, "duration"))),
			})
		}

		if len(tracks) > 0 {
			break
		}
	}

	return tracks
}

// parseISODurationMs converts an ISO-8601 PT(H)(M)(S) duration to
// milliseconds, returning 0 on anything unparseable.
func parseISODurationMs(value string) int {
	matches := isoDurationPattern.FindStringSubmatch(value)
	if matches == nil {
		return 0
	}

	var totalMs float64
	if matches[1] != "" {
		hours, _ := strconv.Atoi(matches[1])
		totalMs += float64(hours) * 3600 * 1000
	}
	if matches[2] != "" {
		minutes, _ := strconv.Atoi(matches[2])
		totalMs += float64(minutes) * 60 * 1000
	}
	if matches[3] != "" {
		seconds, _ := strconv.ParseFloat(matches[3], 64)
		totalMs += seconds * 1000
	}
	return int(totalMs)
}

// Generic JSON tree helpers. The blob's track-bearing substructure moves
// between releases, so navigation stays untyped.

func dig(node any, keys ...string) any {
	current := node
	for _, key := range keys {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[key]
	}
	return current
}

func asMap(node any) map[string]any {
	m, _ := node.(map[string]any)
	return m
}

func asArray(node any) []any {
	a, _ := node.([]any)
	return a
}

func asString(node any) string {
	s, _ := node.(string)
	return s
}

func asNumber(node any) (float64, bool) {
	n, ok := node.(float64)
	return n, ok
}
