package social

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// SaveCommentIfNew persists a comment unless its (user, provider, external id)
// identity has already been ingested. Returns true when a new row was created,
// making comment ingestion idempotent across overlapping fetch windows.
func (s *Store) SaveCommentIfNew(comment *Comment) (bool, error) {
	if comment.UserID == 0 || comment.Provider == "" || comment.ExternalID == "" {
		return false, fmt.Errorf("user_id, provider and external_id are required")
	}

	var existing Comment
	result := s.db.
		Where("user_id = ? AND provider = ? AND external_id = ?",
			comment.UserID, comment.Provider, comment.ExternalID).
		First(&existing)
	if result.Error == nil {
		return false, nil
	}
	if result.Error != gorm.ErrRecordNotFound {
		return false, fmt.Errorf("failed to check existing comment: %w", result.Error)
	}

	if err := s.db.Create(comment).Error; err != nil {
		return false, fmt.Errorf("failed to create comment: %w", err)
	}

	return true, nil
}

// UnrepliedCommentsSince returns a user's unreplied comments observed on the
// platform after the cutoff, oldest first
func (s *Store) UnrepliedCommentsSince(userID uint, since time.Time) ([]Comment, error) {
	var comments []Comment
	result := s.db.
		Where("user_id = ? AND replied = ? AND external_created_at >= ?", userID, false, since).
		Order("external_created_at ASC").
		Find(&comments)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list unreplied comments: %w", result.Error)
	}

	return comments, nil
}

// ReplyCountSince counts automated replies sent for one source post after the
// cutoff. The automation engine compares this to the policy quota.
func (s *Store) ReplyCountSince(userID uint, postExternalID string, since time.Time) (int64, error) {
	var count int64
	result := s.db.Model(&Comment{}).
		Where("user_id = ? AND post_external_id = ? AND replied = ? AND replied_at >= ?",
			userID, postExternalID, true, since).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count replies: %w", result.Error)
	}

	return count, nil
}

// MarkCommentReplied records a successful automated reply
func (s *Store) MarkCommentReplied(id uint, replyText string, repliedAt time.Time) error {
	result := s.db.Model(&Comment{}).Where("id = ?", id).Updates(map[string]any{
		"replied":    true,
		"reply_text": replyText,
		"replied_at": repliedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to mark comment replied: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("comment %d not found", id)
	}

	return nil
}
