package model

import "time"

// Comment is a user comment attached to a playlist.
// Persisted through GORM; column tags match the generated schema.
type Comment struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	PlaylistID int64     `json:"playlistId" gorm:"index;not null"`
	UserID     int64     `json:"userId" gorm:"not null"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	CreatedAt  time.Time `json:"createdAt"`
}
