package social

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// SaveIntegration creates or updates a (user, provider) credential bundle
func (s *Store) SaveIntegration(integration *Integration) error {
	if integration.UserID == 0 {
		return fmt.Errorf("user_id cannot be empty")
	}
	if integration.Provider == "" {
		return fmt.Errorf("provider cannot be empty")
	}

	var existing Integration
	result := s.db.Where("user_id = ? AND provider = ?", integration.UserID, integration.Provider).First(&existing)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			if err := s.db.Create(integration).Error; err != nil {
				return fmt.Errorf("failed to create integration: %w", err)
			}
			return nil
		}
		return fmt.Errorf("failed to check existing integration: %w", result.Error)
	}

	integration.ID = existing.ID
	if err := s.db.Model(&existing).Updates(map[string]any{
		"provider_user_id":    integration.ProviderUserID,
		"access_token":        integration.AccessToken,
		"refresh_token":       integration.RefreshToken,
		"token_expires_at":    integration.TokenExpiresAt,
		"expired":             integration.Expired,
		"auto_refresh_failed": integration.AutoRefreshFailed,
		"metadata":            integration.Metadata,
	}).Error; err != nil {
		return fmt.Errorf("failed to update integration: %w", err)
	}

	return nil
}

// GetIntegration retrieves the credential bundle for a (user, provider) pair
func (s *Store) GetIntegration(userID uint, provider string) (*Integration, error) {
	var integration Integration
	result := s.db.Where("user_id = ? AND provider = ?", userID, provider).First(&integration)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("no %s integration found for user %d", provider, userID)
		}
		return nil, fmt.Errorf("failed to get integration: %w", result.Error)
	}

	return &integration, nil
}

// GetIntegrationByID retrieves an integration by primary key
func (s *Store) GetIntegrationByID(id uint) (*Integration, error) {
	var integration Integration
	result := s.db.First(&integration, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("integration %d not found", id)
		}
		return nil, fmt.Errorf("failed to get integration: %w", result.Error)
	}

	return &integration, nil
}

// IntegrationsForUsers bulk-fetches the integrations for a set of users and
// providers in one query. The scheduled processor uses this to avoid per-item
// credential lookups.
func (s *Store) IntegrationsForUsers(userIDs []uint, providers []string) ([]Integration, error) {
	if len(userIDs) == 0 || len(providers) == 0 {
		return nil, nil
	}

	var integrations []Integration
	result := s.db.Where("user_id IN ? AND provider IN ?", userIDs, providers).Find(&integrations)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to bulk-fetch integrations: %w", result.Error)
	}

	return integrations, nil
}

// IntegrationsForUser returns all non-expired integrations of one user
func (s *Store) IntegrationsForUser(userID uint) ([]Integration, error) {
	var integrations []Integration
	result := s.db.Where("user_id = ? AND expired = ?", userID, false).Find(&integrations)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list integrations for user %d: %w", userID, result.Error)
	}

	return integrations, nil
}

// ExpiringIntegrations returns non-expired integrations of one provider whose
// token expiry falls within the horizon. Integrations without an expiry never
// need a sweep.
func (s *Store) ExpiringIntegrations(provider string, horizon time.Time) ([]Integration, error) {
	var integrations []Integration
	result := s.db.
		Where("provider = ? AND expired = ?", provider, false).
		Where("token_expires_at IS NOT NULL AND token_expires_at <= ?", horizon).
		Find(&integrations)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list expiring integrations: %w", result.Error)
	}

	return integrations, nil
}

// UpdateIntegrationTokens records a successful credential refresh: new token,
// optional new refresh token, new expiry, cleared failure flags, and the
// refresh timestamp
func (s *Store) UpdateIntegrationTokens(id uint, accessToken, refreshToken string, expiresAt *time.Time, refreshedAt time.Time) error {
	updates := map[string]any{
		"access_token":        accessToken,
		"token_expires_at":    expiresAt,
		"expired":             false,
		"auto_refresh_failed": false,
		"last_refreshed_at":   refreshedAt,
	}
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}

	result := s.db.Model(&Integration{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update integration tokens: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("integration %d not found", id)
	}

	return nil
}

// MarkIntegrationExpired flags an integration as needing re-authentication.
// Only the health columns are touched so a concurrent token write is never
// clobbered by a stale row read.
func (s *Store) MarkIntegrationExpired(id uint) error {
	result := s.db.Model(&Integration{}).Where("id = ?", id).Updates(map[string]any{
		"expired":             true,
		"auto_refresh_failed": false,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to mark integration expired: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("integration %d not found", id)
	}

	return nil
}

// MarkAutoRefreshFailed flags an integration whose refresh failed for a
// non-auth reason. It stays eligible for the next sweep.
func (s *Store) MarkAutoRefreshFailed(id uint) error {
	result := s.db.Model(&Integration{}).Where("id = ? AND expired = ?", id, false).
		Update("auto_refresh_failed", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark auto refresh failed: %w", result.Error)
	}

	return nil
}

// IntegrationBySubject finds the integration a provider webhook refers to by
// the provider-side user id
func (s *Store) IntegrationBySubject(provider, providerUserID string) (*Integration, error) {
	var integration Integration
	result := s.db.Where("provider = ? AND provider_user_id = ?", provider, providerUserID).First(&integration)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("no %s integration for subject %s", provider, providerUserID)
		}
		return nil, fmt.Errorf("failed to find integration by subject: %w", result.Error)
	}

	return &integration, nil
}

// DeleteUserData cascades a provider data-deletion request: the subject's
// integration plus that user's posts, results, and ingested comments for the
// provider are removed in one transaction
func (s *Store) DeleteUserData(provider, providerUserID string) error {
	integration, err := s.IntegrationBySubject(provider, providerUserID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&Integration{}, integration.ID).Error; err != nil {
			return fmt.Errorf("failed to delete integration: %w", err)
		}
		if err := tx.Where("user_id = ? AND provider = ?", integration.UserID, provider).
			Delete(&PostResult{}).Error; err != nil {
			return fmt.Errorf("failed to delete post results: %w", err)
		}
		if err := tx.Where("user_id = ? AND provider = ?", integration.UserID, provider).
			Delete(&Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}

		// Scheduled posts that only targeted this provider have nothing left
		// to publish; drop them as well
		var posts []Post
		if err := tx.Where("user_id = ? AND status = ?", integration.UserID, PostStatusScheduled).
			Find(&posts).Error; err != nil {
			return fmt.Errorf("failed to list scheduled posts: %w", err)
		}
		for _, post := range posts {
			platforms := post.PlatformList()
			if len(platforms) == 1 && platforms[0] == provider {
				if err := tx.Delete(&Post{}, post.ID).Error; err != nil {
					return fmt.Errorf("failed to delete scheduled post %d: %w", post.ID, err)
				}
			}
		}

		return nil
	})
}
