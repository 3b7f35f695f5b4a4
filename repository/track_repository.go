package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/iyedlimem/Flenci-server-side/db"
	"github.com/iyedlimem/Flenci-server-side/model"
)

// TrackRepository defines the interface for track data operations.
type TrackRepository interface {
	CreateTrack(track *model.Track) (int64, error)
	GetTrackByID(id int64) (*model.Track, error)
	GetAllTracks() ([]*model.Track, error)
	GetTracksByUserID(userID int64) ([]*model.Track, error)
	DeleteTrack(id int64) error
	LikeTrack(userID, trackID int64) error
	UnlikeTrack(userID, trackID int64) error
	IsTrackLiked(userID, trackID int64) (bool, error)
	GetLikedTracks(userID int64) ([]*model.Track, error)
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	DB *sql.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository() TrackRepository {
	return &mysqlTrackRepository{DB: db.DB}
}

const trackColumns = `id, user_id, artist, name, length, image, album, genre, mp3, file, posted_at`

// CreateTrack adds a new track to the database.
func (r *mysqlTrackRepository) CreateTrack(track *model.Track) (int64, error) {
	query := `INSERT INTO tracks (user_id, artist, name, length, image, album, genre, mp3, file, posted_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement for CreateTrack: %w", err)
	}
	defer stmt.Close()

	if track.PostedAt.IsZero() {
		track.PostedAt = time.Now()
	}
	res, err := stmt.Exec(track.UserID, track.Artist, track.Name, track.Length, track.Image, track.Album, track.Genre, track.MP3, track.File, track.PostedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to execute CreateTrack: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateTrack: %w", err)
	}
	return id, nil
}

// GetTrackByID retrieves a track by its ID.
func (r *mysqlTrackRepository) GetTrackByID(id int64) (*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ?`
	row := r.DB.QueryRow(query, id)

	track := &model.Track{}
	err := scanTrack(row, track)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Track not found
		}
		return nil, fmt.Errorf("failed to scan track by ID %d: %w", id, err)
	}
	return track, nil
}

// GetAllTracks retrieves every published track, newest first.
func (r *mysqlTrackRepository) GetAllTracks() ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks ORDER BY posted_at DESC`
	return r.queryTracks(query)
}

// GetTracksByUserID retrieves the tracks published by a user, newest first.
func (r *mysqlTrackRepository) GetTracksByUserID(userID int64) ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE user_id = ? ORDER BY posted_at DESC`
	return r.queryTracks(query, userID)
}

// DeleteTrack removes a track and its like rows.
func (r *mysqlTrackRepository) DeleteTrack(id int64) error {
	if _, err := r.DB.Exec(`DELETE FROM track_likes WHERE track_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete likes for track %d: %w", id, err)
	}
	if _, err := r.DB.Exec(`DELETE FROM tracks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete track %d: %w", id, err)
	}
	return nil
}

// LikeTrack records a like. Liking an already-liked track is a no-op.
func (r *mysqlTrackRepository) LikeTrack(userID, trackID int64) error {
	query := `INSERT IGNORE INTO track_likes (user_id, track_id, created_at) VALUES (?, ?, ?)`
	if _, err := r.DB.Exec(query, userID, trackID, time.Now()); err != nil {
		return fmt.Errorf("failed to like track %d for user %d: %w", trackID, userID, err)
	}
	return nil
}

// UnlikeTrack removes a like.
func (r *mysqlTrackRepository) UnlikeTrack(userID, trackID int64) error {
	query := `DELETE FROM track_likes WHERE user_id = ? AND track_id = ?`
	if _, err := r.DB.Exec(query, userID, trackID); err != nil {
		return fmt.Errorf("failed to unlike track %d for user %d: %w", trackID, userID, err)
	}
	return nil
}

// IsTrackLiked reports whether the user has liked the track.
func (r *mysqlTrackRepository) IsTrackLiked(userID, trackID int64) (bool, error) {
	query := `SELECT 1 FROM track_likes WHERE user_id = ? AND track_id = ?`
	var one int
	err := r.DB.QueryRow(query, userID, trackID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check like for track %d: %w", trackID, err)
	}
	return true, nil
}

// GetLikedTracks retrieves the tracks a user has liked, most recent like first.
func (r *mysqlTrackRepository) GetLikedTracks(userID int64) ([]*model.Track, error) {
	query := `SELECT t.id, t.user_id, t.artist, t.name, t.length, t.image, t.album, t.genre, t.mp3, t.file, t.posted_at
	           FROM tracks t
	           JOIN track_likes l ON l.track_id = t.id
	           WHERE l.user_id = ?
	           ORDER BY l.created_at DESC`
	return r.queryTracks(query, userID)
}

func (r *mysqlTrackRepository) queryTracks(query string, args ...interface{}) ([]*model.Track, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*model.Track
	for rows.Next() {
		track := &model.Track{}
		if err := scanTrack(rows, track); err != nil {
			return nil, fmt.Errorf("failed to scan track row: %w", err)
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan code.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrack(s scanner, track *model.Track) error {
	return s.Scan(&track.ID, &track.UserID, &track.Artist, &track.Name, &track.Length,
		&track.Image, &track.Album, &track.Genre, &track.MP3, &track.File, &track.PostedAt)
}
