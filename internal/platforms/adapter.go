// Package platforms defines the uniform capability surface over the external
// social-publishing providers. Each provider implements Adapter once; callers
// select implementations through the Registry and never branch on provider
// names themselves.
package platforms

import (
	"context"
	"time"

	"github.com/faizanprofitpilot/zapsocial/internal/stores/social"
	"github.com/faizanprofitpilot/zapsocial/pkg/mediaprep"
)

// Provider identifiers
const (
	ProviderFacebook  = "facebook"
	ProviderInstagram = "instagram"
	ProviderLinkedIn  = "linkedin"
)

// Account is a resolved publish target: the credential and the selected
// page/business-account/organization a call operates on
type Account struct {
	IntegrationID uint
	UserID        uint

	// AccountID identifies the publish surface: a Facebook page id, an
	// Instagram business account id, or a LinkedIn owner URN
	AccountID string

	// AccessToken is the token calls on this account must use. For
	// Instagram this is the linked Facebook page's token, not the
	// integration's own user token.
	AccessToken string

	// LinkedID carries secondary linkage where a provider requires it
	// (Instagram: the linked Facebook page id)
	LinkedID string
}

// Media is one media item attached to a publish call
type Media struct {
	URL string
}

// PublishResult is the provider-side identity of published content
type PublishResult struct {
	ExternalID string
}

// CommentRef identifies one provider-side comment
type CommentRef struct {
	ID             string
	PostExternalID string
}

// InboundComment is one comment fetched from a provider
type InboundComment struct {
	ExternalID     string
	PostExternalID string
	AuthorID       string
	AuthorName     string
	Text           string
	CreatedAt      time.Time
}

// Credential is the refreshable part of an integration
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// Adapter is the uniform per-provider capability surface. Implementations
// hide provider-specific request shapes, map provider error codes onto the
// Kind taxonomy, and record every call they make.
type Adapter interface {
	// Provider returns the provider identifier this adapter serves
	Provider() string

	// ResolveAccount validates the integration's capability metadata and
	// selects the publish target. accountID selects among linked accounts;
	// empty picks the first. Missing required linkage is a validation error.
	ResolveAccount(integration *social.Integration, accountID string) (*Account, error)

	// Constraints returns the provider's media rules for pre-call validation
	Constraints() mediaprep.Constraints

	// PublishText publishes a text-only post
	PublishText(ctx context.Context, acct *Account, caption string) (*PublishResult, error)

	// PublishMedia publishes a post with one or more media items
	PublishMedia(ctx context.Context, acct *Account, caption string, media []Media) (*PublishResult, error)

	// ReplyToComment posts a reply under an existing comment
	ReplyToComment(ctx context.Context, acct *Account, ref CommentRef, text string) (string, error)

	// FetchRecentComments lists comments on one published post since the cutoff
	FetchRecentComments(ctx context.Context, acct *Account, postExternalID string, since time.Time) ([]InboundComment, error)

	// RefreshCredential exchanges the current credential for a fresh one
	RefreshCredential(ctx context.Context, cred Credential) (*Credential, error)
}
