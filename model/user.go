package model

import "time"

// User represents an account on the platform.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Not exposed in API responses
	Role         string    `json:"role,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserProfile is a user together with the relations the frontend renders on
// an artist page.
type UserProfile struct {
	User
	Releases    []*Track `json:"releases"`
	LikedTracks []*Track `json:"likedTracks"`
}
