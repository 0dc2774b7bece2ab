package social

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// CreatePost persists a new content item
func (s *Store) CreatePost(post *Post) error {
	if post.UserID == 0 {
		return fmt.Errorf("user_id cannot be empty")
	}
	if post.Status == "" {
		post.Status = PostStatusDraft
	}

	if err := s.db.Create(post).Error; err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}

	return nil
}

// GetPost retrieves a post with its per-platform results
func (s *Store) GetPost(id uint) (*Post, error) {
	var post Post
	result := s.db.Preload("Results").First(&post, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("post %d not found", id)
		}
		return nil, fmt.Errorf("failed to get post: %w", result.Error)
	}

	return &post, nil
}

// DueScheduledPosts returns scheduled posts whose due time has passed,
// oldest first, bounded by limit
func (s *Store) DueScheduledPosts(now time.Time, limit int) ([]Post, error) {
	var posts []Post
	result := s.db.
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", PostStatusScheduled, now).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&posts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list due scheduled posts: %w", result.Error)
	}

	return posts, nil
}

// SavePostResult records the platform-scoped outcome of a publish attempt.
// A platform's successful outcome is immutable: a later failure for the same
// (post, provider) pair never overwrites it.
func (s *Store) SavePostResult(r *PostResult) error {
	if r.PostID == 0 || r.Provider == "" {
		return fmt.Errorf("post_id and provider are required")
	}

	var existing PostResult
	result := s.db.Where("post_id = ? AND provider = ?", r.PostID, r.Provider).First(&existing)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			if err := s.db.Create(r).Error; err != nil {
				return fmt.Errorf("failed to create post result: %w", err)
			}
			return nil
		}
		return fmt.Errorf("failed to check existing post result: %w", result.Error)
	}

	if existing.Success {
		// Published outcomes never regress
		r.ID = existing.ID
		return nil
	}

	r.ID = existing.ID
	if err := s.db.Model(&existing).Updates(map[string]any{
		"success":       r.Success,
		"external_id":   r.ExternalID,
		"account_id":    r.AccountID,
		"error_message": r.ErrorMessage,
		"published_at":  r.PublishedAt,
	}).Error; err != nil {
		return fmt.Errorf("failed to update post result: %w", err)
	}

	return nil
}

// MarkPostStatus transitions a post's aggregate status and optional error text
func (s *Store) MarkPostStatus(id uint, status, errorMessage string) error {
	result := s.db.Model(&Post{}).Where("id = ?", id).Updates(map[string]any{
		"status":        status,
		"error_message": errorMessage,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update post status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("post %d not found", id)
	}

	return nil
}

// PublishedSources returns the successful publish results of one user on one
// provider, newest first. The comment automation engine treats these as the
// source posts whose comments are fetched.
func (s *Store) PublishedSources(userID uint, provider string, limit int) ([]PostResult, error) {
	var results []PostResult
	query := s.db.
		Where("user_id = ? AND provider = ? AND success = ?", userID, provider, true).
		Order("published_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to list published sources: %w", err)
	}

	return results, nil
}
