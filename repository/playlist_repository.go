package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/iyedlimem/Flenci-server-side/db"
	"github.com/iyedlimem/Flenci-server-side/model"
)

// PlaylistRepository defines the interface for playlist data operations.
type PlaylistRepository interface {
	CreatePlaylist(playlist *model.Playlist) (int64, error)
	GetPlaylistByID(id int64) (*model.Playlist, error)
	GetAllPlaylists() ([]*model.Playlist, error)
	GetPlaylistsByUserID(userID int64) ([]*model.Playlist, error)
	UpdatePlaylist(playlist *model.Playlist) error
	DeletePlaylist(id int64) error
	AddTrackToPlaylist(playlistID, trackID int64) error
	RemoveTrackFromPlaylist(playlistID, trackID int64) error
	GetPlaylistTracks(playlistID int64) ([]*model.Track, error)
}

// mysqlPlaylistRepository implements PlaylistRepository for MySQL.
type mysqlPlaylistRepository struct {
	DB *sql.DB
}

// NewMySQLPlaylistRepository creates a new instance of mysqlPlaylistRepository.
func NewMySQLPlaylistRepository() PlaylistRepository {
	return &mysqlPlaylistRepository{DB: db.DB}
}

const playlistColumns = `id, name, description, created_by, created_at, updated_at`

// CreatePlaylist adds a new playlist to the database.
func (r *mysqlPlaylistRepository) CreatePlaylist(playlist *model.Playlist) (int64, error) {
	query := `INSERT INTO playlists (name, description, created_by, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?)`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement for CreatePlaylist: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	res, err := stmt.Exec(playlist.Name, playlist.Description, playlist.CreatedBy, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to execute CreatePlaylist: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreatePlaylist: %w", err)
	}
	return id, nil
}

// GetPlaylistByID retrieves a playlist with its ordered tracks.
func (r *mysqlPlaylistRepository) GetPlaylistByID(id int64) (*model.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = ?`
	row := r.DB.QueryRow(query, id)

	playlist := &model.Playlist{}
	err := row.Scan(&playlist.ID, &playlist.Name, &playlist.Description, &playlist.CreatedBy, &playlist.CreatedAt, &playlist.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Playlist not found
		}
		return nil, fmt.Errorf("failed to scan playlist by ID %d: %w", id, err)
	}

	tracks, err := r.GetPlaylistTracks(id)
	if err != nil {
		return nil, err
	}
	playlist.Tracks = tracks
	return playlist, nil
}

// GetAllPlaylists retrieves every playlist without its track lists.
func (r *mysqlPlaylistRepository) GetAllPlaylists() ([]*model.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists ORDER BY created_at DESC`
	return r.queryPlaylists(query)
}

// GetPlaylistsByUserID retrieves the playlists created by a user.
func (r *mysqlPlaylistRepository) GetPlaylistsByUserID(userID int64) ([]*model.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE created_by = ? ORDER BY created_at DESC`
	return r.queryPlaylists(query, userID)
}

// UpdatePlaylist updates a playlist's name and description.
func (r *mysqlPlaylistRepository) UpdatePlaylist(playlist *model.Playlist) error {
	query := `UPDATE playlists SET name = ?, description = ?, updated_at = ? WHERE id = ?`
	if _, err := r.DB.Exec(query, playlist.Name, playlist.Description, time.Now(), playlist.ID); err != nil {
		return fmt.Errorf("failed to update playlist %d: %w", playlist.ID, err)
	}
	return nil
}

// DeletePlaylist removes a playlist and its membership rows.
func (r *mysqlPlaylistRepository) DeletePlaylist(id int64) error {
	if _, err := r.DB.Exec(`DELETE FROM playlist_tracks WHERE playlist_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete playlist tracks for %d: %w", id, err)
	}
	if _, err := r.DB.Exec(`DELETE FROM playlists WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete playlist %d: %w", id, err)
	}
	return nil
}

// AddTrackToPlaylist appends a track to the playlist. Adding a track that is
// already present is a no-op.
func (r *mysqlPlaylistRepository) AddTrackToPlaylist(playlistID, trackID int64) error {
	var next int
	err := r.DB.QueryRow(`SELECT COALESCE(MAX(position), 0) + 1 FROM playlist_tracks WHERE playlist_id = ?`, playlistID).Scan(&next)
	if err != nil {
		return fmt.Errorf("failed to compute position for playlist %d: %w", playlistID, err)
	}
	query := `INSERT IGNORE INTO playlist_tracks (playlist_id, track_id, position, added_at) VALUES (?, ?, ?, ?)`
	if _, err := r.DB.Exec(query, playlistID, trackID, next, time.Now()); err != nil {
		return fmt.Errorf("failed to add track %d to playlist %d: %w", trackID, playlistID, err)
	}
	return nil
}

// RemoveTrackFromPlaylist removes a track from the playlist.
func (r *mysqlPlaylistRepository) RemoveTrackFromPlaylist(playlistID, trackID int64) error {
	query := `DELETE FROM playlist_tracks WHERE playlist_id = ? AND track_id = ?`
	if _, err := r.DB.Exec(query, playlistID, trackID); err != nil {
		return fmt.Errorf("failed to remove track %d from playlist %d: %w", trackID, playlistID, err)
	}
	return nil
}

// GetPlaylistTracks retrieves the playlist's tracks in playlist order.
func (r *mysqlPlaylistRepository) GetPlaylistTracks(playlistID int64) ([]*model.Track, error) {
	query := `SELECT t.id, t.user_id, t.artist, t.name, t.length, t.image, t.album, t.genre, t.mp3, t.file, t.posted_at
	           FROM tracks t
	           JOIN playlist_tracks pt ON pt.track_id = t.id
	           WHERE pt.playlist_id = ?
	           ORDER BY pt.position`
	rows, err := r.DB.Query(query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*model.Track
	for rows.Next() {
		track := &model.Track{}
		if err := scanTrack(rows, track); err != nil {
			return nil, fmt.Errorf("failed to scan playlist track row: %w", err)
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

func (r *mysqlPlaylistRepository) queryPlaylists(query string, args ...interface{}) ([]*model.Playlist, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*model.Playlist
	for rows.Next() {
		playlist := &model.Playlist{}
		if err := rows.Scan(&playlist.ID, &playlist.Name, &playlist.Description, &playlist.CreatedBy, &playlist.CreatedAt, &playlist.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan playlist row: %w", err)
		}
		playlists = append(playlists, playlist)
	}
	return playlists, rows.Err()
}
