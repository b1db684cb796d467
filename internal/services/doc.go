// Package services implements the external content integrations: the
// Spotify playlist source and the SoundCloud/Bandcamp download providers.
//
// The playlist source resolves a playlist URL to an ordered track list
// through a three-tier fallback (Web API, embedded initial-state blob,
// page metadata), each tier strictly narrower than the one above it.
// Providers resolve a search query to a streamable URL, either through a
// token-gated API (SoundCloud) or pure page scraping (Bandcamp).
package services
