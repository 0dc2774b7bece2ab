package social

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Post status values
const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)

// Integration represents one (user, provider) credential bundle
type Integration struct {
	ID        uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time      `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"column:updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"column:deleted_at;index"`

	UserID         uint   `json:"user_id" gorm:"column:user_id;not null;uniqueIndex:idx_integration_user_provider"`
	Provider       string `json:"provider" gorm:"column:provider;not null;size:32;uniqueIndex:idx_integration_user_provider"`
	ProviderUserID string `json:"provider_user_id" gorm:"column:provider_user_id;size:255;index"`

	AccessToken    string     `json:"-" gorm:"column:access_token;not null;size:2048"`
	RefreshToken   string     `json:"-" gorm:"column:refresh_token;size:2048"`
	TokenExpiresAt *time.Time `json:"token_expires_at" gorm:"column:token_expires_at"`

	Expired           bool       `json:"expired" gorm:"column:expired;default:false"`
	AutoRefreshFailed bool       `json:"auto_refresh_failed" gorm:"column:auto_refresh_failed;default:false"`
	LastRefreshedAt   *time.Time `json:"last_refreshed_at" gorm:"column:last_refreshed_at"`

	// Provider-specific capability metadata (linked pages, business accounts,
	// organization URNs) as JSON; decoded through metadata.go, never read raw
	Metadata string `json:"-" gorm:"column:metadata;type:text"`
}

// TableName sets the table name for GORM
func (Integration) TableName() string {
	return "social_integrations"
}

// Post represents a single piece of content targeted at one or more platforms
type Post struct {
	ID        uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time      `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"column:updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"column:deleted_at;index"`

	UserID    uint   `json:"user_id" gorm:"column:user_id;not null;index"`
	Caption   string `json:"caption" gorm:"column:caption;type:text"`
	MediaRefs string `json:"-" gorm:"column:media_refs;type:text"`
	Platforms string `json:"-" gorm:"column:platforms;type:text"`
	AccountID string `json:"account_id" gorm:"column:account_id;size:255"`

	Status       string     `json:"status" gorm:"column:status;size:16;index;default:draft"`
	ScheduledAt  *time.Time `json:"scheduled_at" gorm:"column:scheduled_at;index"`
	ErrorMessage string     `json:"error_message" gorm:"column:error_message;type:text"`

	Results []PostResult `json:"results" gorm:"foreignKey:PostID"`
}

// TableName sets the table name for GORM
func (Post) TableName() string {
	return "social_posts"
}

// PostResult is the platform-scoped outcome of publishing one post. A
// successful result is immutable except by explicit user action.
type PostResult struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`

	PostID   uint   `json:"post_id" gorm:"column:post_id;not null;uniqueIndex:idx_result_post_provider"`
	UserID   uint   `json:"user_id" gorm:"column:user_id;not null;index"`
	Provider string `json:"provider" gorm:"column:provider;not null;size:32;uniqueIndex:idx_result_post_provider"`

	Success      bool       `json:"success" gorm:"column:success"`
	ExternalID   string     `json:"external_id" gorm:"column:external_id;size:512;index"`
	AccountID    string     `json:"account_id" gorm:"column:account_id;size:255"`
	ErrorMessage string     `json:"error_message" gorm:"column:error_message;type:text"`
	PublishedAt  *time.Time `json:"published_at" gorm:"column:published_at"`
}

// TableName sets the table name for GORM
func (PostResult) TableName() string {
	return "social_post_results"
}

// Comment is one ingested external comment, keyed by (user, provider,
// platform-native id) for idempotent ingestion
type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`

	UserID     uint   `json:"user_id" gorm:"column:user_id;not null;uniqueIndex:idx_comment_identity"`
	Provider   string `json:"provider" gorm:"column:provider;not null;size:32;uniqueIndex:idx_comment_identity"`
	ExternalID string `json:"external_id" gorm:"column:external_id;not null;size:512;uniqueIndex:idx_comment_identity"`

	PostExternalID string `json:"post_external_id" gorm:"column:post_external_id;size:512;index"`
	AuthorID       string `json:"author_id" gorm:"column:author_id;size:255"`
	AuthorName     string `json:"author_name" gorm:"column:author_name;size:255"`
	Text           string `json:"text" gorm:"column:text;type:text"`

	Replied   bool       `json:"replied" gorm:"column:replied;index;default:false"`
	ReplyText string     `json:"reply_text" gorm:"column:reply_text;type:text"`
	RepliedAt *time.Time `json:"replied_at" gorm:"column:replied_at"`

	ExternalCreatedAt time.Time `json:"external_created_at" gorm:"column:external_created_at;index"`
}

// TableName sets the table name for GORM
func (Comment) TableName() string {
	return "social_comments"
}

// ReplyPolicy is the per-user comment automation configuration
type ReplyPolicy struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`

	UserID            uint   `json:"user_id" gorm:"column:user_id;not null;uniqueIndex"`
	Enabled           bool   `json:"enabled" gorm:"column:enabled;default:false"`
	LookbackMinutes   int    `json:"lookback_minutes" gorm:"column:lookback_minutes;default:60"`
	Tone              string `json:"tone" gorm:"column:tone;size:32;default:friendly"`
	ExcludedKeywords  string `json:"-" gorm:"column:excluded_keywords;type:text"`
	MaxRepliesPerPost int    `json:"max_replies_per_post" gorm:"column:max_replies_per_post;default:10"`
}

// TableName sets the table name for GORM
func (ReplyPolicy) TableName() string {
	return "social_reply_policies"
}

// APICall is an append-only audit record of one external API call
type APICall struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;index"`

	Provider     string `json:"provider" gorm:"column:provider;size:32;index"`
	Endpoint     string `json:"endpoint" gorm:"column:endpoint;size:512"`
	Method       string `json:"method" gorm:"column:method;size:8"`
	StatusCode   int    `json:"status_code" gorm:"column:status_code"`
	Success      bool   `json:"success" gorm:"column:success"`
	DurationMs   int64  `json:"duration_ms" gorm:"column:duration_ms"`
	ErrorMessage string `json:"error_message" gorm:"column:error_message;type:text"`
}

// TableName sets the table name for GORM
func (APICall) TableName() string {
	return "social_api_calls"
}

// encodeList serializes a string slice for storage in a text column
func encodeList(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// decodeList deserializes a text column back into a string slice
func decodeList(raw string) []string {
	if raw == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}

// PlatformList returns the post's target platforms
func (p *Post) PlatformList() []string {
	return decodeList(p.Platforms)
}

// SetPlatformList sets the post's target platforms
func (p *Post) SetPlatformList(platforms []string) {
	p.Platforms = encodeList(platforms)
}

// MediaList returns the post's attached media references
func (p *Post) MediaList() []string {
	return decodeList(p.MediaRefs)
}

// SetMediaList sets the post's attached media references
func (p *Post) SetMediaList(refs []string) {
	p.MediaRefs = encodeList(refs)
}

// KeywordList returns the policy's excluded keywords
func (r *ReplyPolicy) KeywordList() []string {
	return decodeList(r.ExcludedKeywords)
}

// SetKeywordList sets the policy's excluded keywords
func (r *ReplyPolicy) SetKeywordList(keywords []string) {
	r.ExcludedKeywords = encodeList(keywords)
}
