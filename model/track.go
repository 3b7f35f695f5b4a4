package model

import "time"

// Track represents a published track document.
//
// The JSON keys mirror the shape the web client already consumes; "Image" is
// capitalized for that reason.
type Track struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"userId"`
	Artist   string    `json:"artist"`
	Name     string    `json:"name"`
	Length   float64   `json:"length,omitempty"` // Duration in seconds, 0 when unknown
	Image    string    `json:"Image"`            // Cover art URL
	Album    string    `json:"album,omitempty"`
	Genre    string    `json:"genre"`
	MP3      string    `json:"mp3"`  // Public URL of the canonical-format audio
	File     string    `json:"file"` // Object reference of the stored asset, never a filesystem path
	PostedAt time.Time `json:"postedAt"`
}
