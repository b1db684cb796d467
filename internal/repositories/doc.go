// Package repositories provides the persistence layer for playlists and
// downloaded songs.
//
// Repositories own the coupling between database rows and the files backing
// them: deleting a song or a playlist removes the audio files alongside the
// rows, so a live row always points at a file that exists. Files without a
// row (e.g. after a crash between write and insert) are acceptable drift and
// are reclaimed by a best-effort sweep.
package repositories
