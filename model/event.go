package model

import "time"

// Event is a published live event.
// Persisted through GORM; column tags match the generated schema.
type Event struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Title     string    `json:"title"`
	Address   string    `json:"address" gorm:"not null"`
	About     string    `json:"about" gorm:"type:text;not null"`
	Image     string    `json:"image,omitempty"`
	Date      time.Time `json:"date" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
