package sdk

import "time"

/** Requests */

// PublishRequest represents the request body for publishing a content item
type PublishRequest struct {
	UserID    uint     `json:"user_id" binding:"required"`
	Caption   string   `json:"caption"`
	MediaURLs []string `json:"media_urls"`
	Platforms []string `json:"platforms" binding:"required,min=1"`

	// AccountID selects among linked pages/accounts; empty picks the first
	AccountID string `json:"account_id"`

	// ScheduledAt in the future defers publishing to the scheduler
	ScheduledAt *time.Time `json:"scheduled_at"`
}

/** Responses */

// PlatformResult is the outcome of publishing on one platform
type PlatformResult struct {
	Platform   string `json:"platform"`
	Success    bool   `json:"success"`
	ExternalID string `json:"external_id,omitempty"`
	AccountID  string `json:"account_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// PublishResponse represents the response body after a publish call
type PublishResponse struct {
	PostID    uint             `json:"post_id"`
	Success   bool             `json:"success"`
	Partial   bool             `json:"partial,omitempty"`
	Scheduled bool             `json:"scheduled,omitempty"`
	Results   []PlatformResult `json:"results,omitempty"`
}

// ScheduledRunResponse reports one scheduled-post processing run
type ScheduledRunResponse struct {
	Total     int         `json:"total"`
	Processed int         `json:"processed"`
	Failed    int         `json:"failed"`
	Errors    []ItemError `json:"errors,omitempty"`
}

// ItemError records one failed scheduled item
type ItemError struct {
	ItemID uint   `json:"item_id"`
	Error  string `json:"error"`
}

// AutomationRunResponse reports one comment automation run
type AutomationRunResponse struct {
	Processed int         `json:"processed"`
	Replied   int         `json:"replied"`
	Skipped   int         `json:"skipped"`
	Errors    []UserError `json:"errors,omitempty"`
}

// UserError records one user whose automation run failed
type UserError struct {
	UserID uint   `json:"user_id"`
	Error  string `json:"error"`
}

// RefreshRunResponse reports one token refresh sweep
type RefreshRunResponse struct {
	Total     int            `json:"total"`
	Refreshed int            `json:"refreshed"`
	Failed    int            `json:"failed"`
	Errors    []RefreshError `json:"errors,omitempty"`
}

// RefreshError records one integration whose refresh failed
type RefreshError struct {
	IntegrationID uint   `json:"integration_id"`
	Error         string `json:"error"`
}

// DataDeletionResponse is the body Facebook expects back from a data
// deletion callback
type DataDeletionResponse struct {
	URL              string `json:"url"`
	ConfirmationCode string `json:"confirmation_code"`
}
