package social

import (
	"fmt"

	"gorm.io/gorm"
)

// SaveReplyPolicy creates or updates a user's comment automation configuration
func (s *Store) SaveReplyPolicy(policy *ReplyPolicy) error {
	if policy.UserID == 0 {
		return fmt.Errorf("user_id cannot be empty")
	}

	var existing ReplyPolicy
	result := s.db.Where("user_id = ?", policy.UserID).First(&existing)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			if err := s.db.Create(policy).Error; err != nil {
				return fmt.Errorf("failed to create reply policy: %w", err)
			}
			return nil
		}
		return fmt.Errorf("failed to check existing reply policy: %w", result.Error)
	}

	policy.ID = existing.ID
	if err := s.db.Model(&existing).Updates(map[string]any{
		"enabled":              policy.Enabled,
		"lookback_minutes":     policy.LookbackMinutes,
		"tone":                 policy.Tone,
		"excluded_keywords":    policy.ExcludedKeywords,
		"max_replies_per_post": policy.MaxRepliesPerPost,
	}).Error; err != nil {
		return fmt.Errorf("failed to update reply policy: %w", err)
	}

	return nil
}

// GetReplyPolicy retrieves one user's automation configuration
func (s *Store) GetReplyPolicy(userID uint) (*ReplyPolicy, error) {
	var policy ReplyPolicy
	result := s.db.Where("user_id = ?", userID).First(&policy)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("no reply policy for user %d", userID)
		}
		return nil, fmt.Errorf("failed to get reply policy: %w", result.Error)
	}

	return &policy, nil
}

// EnabledReplyPolicies returns every policy with automation switched on
func (s *Store) EnabledReplyPolicies() ([]ReplyPolicy, error) {
	var policies []ReplyPolicy
	result := s.db.Where("enabled = ?", true).Find(&policies)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list enabled reply policies: %w", result.Error)
	}

	return policies, nil
}
