package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/iyedlimem/Flenci-server-side/db"
	"github.com/iyedlimem/Flenci-server-side/model"

	"gorm.io/gorm"
)

// EventRepository defines the interface for event data operations.
type EventRepository interface {
	CreateEvent(event *model.Event) error
	GetEventByID(id int64) (*model.Event, error)
	GetAllEvents() ([]*model.Event, error)
	UpdateEvent(event *model.Event) error
	DeleteEvent(id int64) error
	SaveEvent(userID, eventID int64) error
	UnsaveEvent(userID, eventID int64) error
	IsEventSaved(userID, eventID int64) (bool, error)
	GetSavedEvents(userID int64) ([]*model.Event, error)
}

// gormEventRepository implements EventRepository on GORM.
type gormEventRepository struct {
	DB *gorm.DB
}

// NewGormEventRepository creates a new instance of gormEventRepository.
func NewGormEventRepository() EventRepository {
	return &gormEventRepository{DB: db.GormDB}
}

// CreateEvent adds a new event.
func (r *gormEventRepository) CreateEvent(event *model.Event) error {
	if err := r.DB.Create(event).Error; err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetEventByID retrieves an event by ID.
func (r *gormEventRepository) GetEventByID(id int64) (*model.Event, error) {
	var event model.Event
	err := r.DB.First(&event, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Event not found
		}
		return nil, fmt.Errorf("failed to get event %d: %w", id, err)
	}
	return &event, nil
}

// GetAllEvents retrieves every event, soonest first.
func (r *gormEventRepository) GetAllEvents() ([]*model.Event, error) {
	var events []*model.Event
	if err := r.DB.Order("date ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// UpdateEvent updates an event's mutable fields.
func (r *gormEventRepository) UpdateEvent(event *model.Event) error {
	result := r.DB.Model(&model.Event{}).Where("id = ?", event.ID).Updates(map[string]interface{}{
		"title":   event.Title,
		"address": event.Address,
		"about":   event.About,
		"image":   event.Image,
		"date":    event.Date,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update event %d: %w", event.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteEvent removes an event and its save rows.
func (r *gormEventRepository) DeleteEvent(id int64) error {
	if err := r.DB.Exec(`DELETE FROM saved_events WHERE event_id = ?`, id).Error; err != nil {
		return fmt.Errorf("failed to delete saves for event %d: %w", id, err)
	}
	if err := r.DB.Delete(&model.Event{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete event %d: %w", id, err)
	}
	return nil
}

// SaveEvent records that a user saved the event. Saving twice is a no-op.
func (r *gormEventRepository) SaveEvent(userID, eventID int64) error {
	query := `INSERT IGNORE INTO saved_events (user_id, event_id, created_at) VALUES (?, ?, ?)`
	if err := r.DB.Exec(query, userID, eventID, time.Now()).Error; err != nil {
		return fmt.Errorf("failed to save event %d for user %d: %w", eventID, userID, err)
	}
	return nil
}

// UnsaveEvent removes a user's save of the event.
func (r *gormEventRepository) UnsaveEvent(userID, eventID int64) error {
	query := `DELETE FROM saved_events WHERE user_id = ? AND event_id = ?`
	if err := r.DB.Exec(query, userID, eventID).Error; err != nil {
		return fmt.Errorf("failed to unsave event %d for user %d: %w", eventID, userID, err)
	}
	return nil
}

// IsEventSaved reports whether the user has saved the event.
func (r *gormEventRepository) IsEventSaved(userID, eventID int64) (bool, error) {
	var count int64
	err := r.DB.Raw(`SELECT COUNT(*) FROM saved_events WHERE user_id = ? AND event_id = ?`, userID, eventID).Scan(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check save for event %d: %w", eventID, err)
	}
	return count > 0, nil
}

// GetSavedEvents retrieves the events a user has saved, most recent save first.
func (r *gormEventRepository) GetSavedEvents(userID int64) ([]*model.Event, error) {
	var events []*model.Event
	err := r.DB.Raw(`SELECT e.* FROM events e
		JOIN saved_events s ON s.event_id = e.id
		WHERE s.user_id = ?
		ORDER BY s.created_at DESC`, userID).Scan(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list saved events for user %d: %w", userID, err)
	}
	return events, nil
}
