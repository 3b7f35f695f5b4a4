package repository

import (
	"errors"
	"fmt"

	"github.com/iyedlimem/Flenci-server-side/db"
	"github.com/iyedlimem/Flenci-server-side/model"

	"gorm.io/gorm"
)

// CommentRepository defines the interface for playlist comment operations.
type CommentRepository interface {
	CreateComment(comment *model.Comment) error
	GetCommentsByPlaylistID(playlistID int64) ([]*model.Comment, error)
	DeleteComment(id int64) error
	GetCommentByID(id int64) (*model.Comment, error)
	DeleteCommentsByPlaylistID(playlistID int64) error
}

// gormCommentRepository implements CommentRepository on GORM.
type gormCommentRepository struct {
	DB *gorm.DB
}

// NewGormCommentRepository creates a new instance of gormCommentRepository.
func NewGormCommentRepository() CommentRepository {
	return &gormCommentRepository{DB: db.GormDB}
}

// CreateComment adds a comment to a playlist.
func (r *gormCommentRepository) CreateComment(comment *model.Comment) error {
	if err := r.DB.Create(comment).Error; err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// GetCommentsByPlaylistID retrieves a playlist's comments, oldest first.
func (r *gormCommentRepository) GetCommentsByPlaylistID(playlistID int64) ([]*model.Comment, error) {
	var comments []*model.Comment
	err := r.DB.Where("playlist_id = ?", playlistID).Order("created_at ASC").Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list comments for playlist %d: %w", playlistID, err)
	}
	return comments, nil
}

// GetCommentByID retrieves a single comment.
func (r *gormCommentRepository) GetCommentByID(id int64) (*model.Comment, error) {
	var comment model.Comment
	err := r.DB.First(&comment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // Comment not found
		}
		return nil, fmt.Errorf("failed to get comment %d: %w", id, err)
	}
	return &comment, nil
}

// DeleteComment removes a comment.
func (r *gormCommentRepository) DeleteComment(id int64) error {
	if err := r.DB.Delete(&model.Comment{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete comment %d: %w", id, err)
	}
	return nil
}

// DeleteCommentsByPlaylistID removes every comment attached to a playlist.
func (r *gormCommentRepository) DeleteCommentsByPlaylistID(playlistID int64) error {
	if err := r.DB.Where("playlist_id = ?", playlistID).Delete(&model.Comment{}).Error; err != nil {
		return fmt.Errorf("failed to delete comments for playlist %d: %w", playlistID, err)
	}
	return nil
}
