package social

import "fmt"

// RecordAPICall appends one audit entry for an external API call.
// Rows are never mutated after creation.
func (s *Store) RecordAPICall(call *APICall) error {
	if err := s.db.Create(call).Error; err != nil {
		return fmt.Errorf("failed to record api call: %w", err)
	}
	return nil
}

// RecentAPICalls returns the newest audit entries, bounded by limit
func (s *Store) RecentAPICalls(limit int) ([]APICall, error) {
	var calls []APICall
	result := s.db.Order("id DESC").Limit(limit).Find(&calls)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list api calls: %w", result.Error)
	}

	return calls, nil
}
