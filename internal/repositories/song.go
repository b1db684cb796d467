package repositories

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// SongRepository handles downloaded-song CRUD with soft delete support.
//
// Loudness is patched in asynchronously after download; a NULL loudness_db
// column reads back as a nil pointer, meaning "not measured yet".
type SongRepository struct {
	db *sql.DB
}

// NewSongRepository creates a new SongRepository with the given database connection
func NewSongRepository(db *sql.DB) *SongRepository {
	return &SongRepository{db: db}
}

// Create inserts a new song into the database with a generated ID.
// Callers must only invoke this after the backing file is fully written.
func (r *SongRepository) Create(song *models.Song) error {
	song.ID = shared.GenerateID()
	now := time.Now()
	song.CreatedAt = now
	song.UpdatedAt = now

	if err := song.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO songs (id, playlist_id, title, artist, local_path, duration_ms, artwork_url, order_index, loudness_db, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var artworkURL any = song.ArtworkURL
	if song.ArtworkURL == "" {
		artworkURL = nil
	}

	var loudness any
	if song.LoudnessDb != nil {
		loudness = *song.LoudnessDb
	}

	_, err := r.db.Exec(query,
		song.ID,
		song.PlaylistID,
		song.Title,
		song.Artist,
		song.LocalPath,
		song.DurationMs,
		artworkURL,
		song.OrderIndex,
		loudness,
		song.CreatedAt,
		song.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert song: %w", err)
	}

	return nil
}

// Get retrieves a song by ID, excluding soft-deleted songs
func (r *SongRepository) Get(id string) (*models.Song, error) {
	query := `
		SELECT id, playlist_id, title, artist, local_path, duration_ms, artwork_url, order_index, loudness_db, created_at, updated_at
		FROM songs
		WHERE id = ? AND deleted_at IS NULL
	`

	song, err := r.scanOne(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	return song, err
}

// ListByPlaylist retrieves all songs for a playlist ordered by order_index
func (r *SongRepository) ListByPlaylist(playlistID string) ([]*models.Song, error) {
	query := `
		SELECT id, playlist_id, title, artist, local_path, duration_ms, artwork_url, order_index, loudness_db, created_at, updated_at
		FROM songs
		WHERE playlist_id = ? AND deleted_at IS NULL
		ORDER BY order_index ASC
	`

	rows, err := r.db.Query(query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	var songs []*models.Song
	for rows.Next() {
		song, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}

	return songs, rows.Err()
}

// NextOrderIndex returns the order index for the next song appended to the
// playlist. Indexes assigned across sequential download runs are strictly
// increasing and contiguous; soft-deleted rows still occupy their index so
// later appends never reuse one.
func (r *SongRepository) NextOrderIndex(playlistID string) (int, error) {
	var next int
	err := r.db.QueryRow(`
		SELECT COALESCE(MAX(order_index) + 1, 0)
		FROM songs
		WHERE playlist_id = ?
	`, playlistID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to compute next order index: %w", err)
	}
	return next, nil
}

// SetLoudness patches the measured loudness for a song.
func (r *SongRepository) SetLoudness(id string, loudnessDb float64) error {
	result, err := r.db.Exec(`
		UPDATE songs
		SET loudness_db = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, loudnessDb, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set loudness: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}

	return nil
}

// Delete soft-deletes a song and removes its backing file. The file is
// removed first so a live row never points at a missing file.
func (r *SongRepository) Delete(id string) error {
	song, err := r.Get(id)
	if err != nil {
		return err
	}

	if err := os.Remove(song.LocalPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove song file: %w", err)
	}

	result, err := r.db.Exec(`
		UPDATE songs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}

	return nil
}

// SweepOrphans removes files in dir that no live song row references.
// Best effort: unreadable entries are skipped, not fatal.
func (r *SongRepository) SweepOrphans(dir string) (int, error) {
	rows, err := r.db.Query(`SELECT local_path FROM songs WHERE deleted_at IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("failed to query song paths: %w", err)
	}
	defer rows.Close()

	referenced := make(map[string]bool)
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return 0, fmt.Errorf("failed to scan song path: %w", err)
		}
		if abs, err := filepath.Abs(path); err == nil {
			referenced[abs] = true
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read download directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(dir, entry.Name()))
		if err != nil || referenced[abs] {
			continue
		}
		if err := os.Remove(abs); err == nil {
			removed++
		}
	}

	return removed, nil
}

func (r *SongRepository) scanOne(row *sql.Row) (*models.Song, error) {
	var song models.Song
	var artworkURL sql.NullString
	var loudness sql.NullFloat64

	err := row.Scan(
		&song.ID,
		&song.PlaylistID,
		&song.Title,
		&song.Artist,
		&song.LocalPath,
		&song.DurationMs,
		&artworkURL,
		&song.OrderIndex,
		&loudness,
		&song.CreatedAt,
		&song.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	song.ArtworkURL = artworkURL.String
	if loudness.Valid {
		v := loudness.Float64
		song.LoudnessDb = &v
	}

	return &song, nil
}

func (r *SongRepository) scanRow(rows *sql.Rows) (*models.Song, error) {
	var song models.Song
	var artworkURL sql.NullString
	var loudness sql.NullFloat64

	err := rows.Scan(
		&song.ID,
		&song.PlaylistID,
		&song.Title,
		&song.Artist,
		&song.LocalPath,
		&song.DurationMs,
		&artworkURL,
		&song.OrderIndex,
		&loudness,
		&song.CreatedAt,
		&song.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan song: %w", err)
	}

	song.ArtworkURL = artworkURL.String
	if loudness.Valid {
		v := loudness.Float64
		song.LoudnessDb = &v
	}

	return &song, nil
}
