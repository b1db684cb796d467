package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// PlaylistRepository handles playlist CRUD with soft delete support.
type PlaylistRepository struct {
	db    *sql.DB
	songs *SongRepository
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB, songs *SongRepository) *PlaylistRepository {
	return &PlaylistRepository{db: db, songs: songs}
}

// Create inserts a new playlist into the database with a generated ID
func (r *PlaylistRepository) Create(playlist *models.Playlist) error {
	playlist.ID = shared.GenerateID()
	now := time.Now()
	playlist.CreatedAt = now
	playlist.UpdatedAt = now

	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO playlists (id, name, source_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, playlist.ID, playlist.Name, playlist.SourceURL, playlist.CreatedAt, playlist.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return nil
}

// Get retrieves a playlist by ID, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(id string) (*models.Playlist, error) {
	query := `
		SELECT id, name, source_url, created_at, updated_at
		FROM playlists
		WHERE id = ? AND deleted_at IS NULL
	`

	var playlist models.Playlist
	err := r.db.QueryRow(query, id).Scan(
		&playlist.ID,
		&playlist.Name,
		&playlist.SourceURL,
		&playlist.CreatedAt,
		&playlist.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist: %w", err)
	}

	return &playlist, nil
}

// GetBySourceURL retrieves a playlist by its source URL
func (r *PlaylistRepository) GetBySourceURL(sourceURL string) (*models.Playlist, error) {
	query := `
		SELECT id, name, source_url, created_at, updated_at
		FROM playlists
		WHERE source_url = ? AND deleted_at IS NULL
		LIMIT 1
	`

	var playlist models.Playlist
	err := r.db.QueryRow(query, sourceURL).Scan(
		&playlist.ID,
		&playlist.Name,
		&playlist.SourceURL,
		&playlist.CreatedAt,
		&playlist.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, sourceURL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist: %w", err)
	}

	return &playlist, nil
}

// List retrieves all playlists, excluding soft-deleted ones
func (r *PlaylistRepository) List() ([]*models.Playlist, error) {
	query := `
		SELECT id, name, source_url, created_at, updated_at
		FROM playlists
		WHERE deleted_at IS NULL
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		var playlist models.Playlist
		if err := rows.Scan(
			&playlist.ID,
			&playlist.Name,
			&playlist.SourceURL,
			&playlist.CreatedAt,
			&playlist.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, &playlist)
	}

	return playlists, rows.Err()
}

// Delete soft-deletes a playlist and cascades to its songs, removing each
// song's backing file before the rows are marked deleted.
func (r *PlaylistRepository) Delete(id string) error {
	songs, err := r.songs.ListByPlaylist(id)
	if err != nil {
		return fmt.Errorf("failed to list songs for cascade: %w", err)
	}

	for _, song := range songs {
		if err := r.songs.Delete(song.ID); err != nil {
			return fmt.Errorf("failed to cascade delete song %s: %w", song.ID, err)
		}
	}

	now := time.Now()
	result, err := r.db.Exec(`
		UPDATE playlists
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	return nil
}
