package model

import "time"

// Playlist groups tracks created by a user.
type Playlist struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	CreatedBy   int64      `json:"createdBy"`
	Tracks      []*Track   `json:"tracks"`
	Comments    []*Comment `json:"comments,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
