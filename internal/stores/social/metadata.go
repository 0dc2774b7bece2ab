package social

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// FacebookPage is one page the connected user can publish to
type FacebookPage struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token" validate:"required"`
}

// FacebookMetadata holds the pages linked to a Facebook integration
type FacebookMetadata struct {
	Pages []FacebookPage `json:"pages" validate:"required,min=1,dive"`
}

// InstagramMetadata holds the business account linkage. Instagram publishing
// rides on the access token of the linked Facebook page, so both ids are
// required before any call can be made.
type InstagramMetadata struct {
	BusinessAccountID string `json:"business_account_id" validate:"required"`
	LinkedPageID      string `json:"linked_page_id" validate:"required"`
	PageAccessToken   string `json:"page_access_token" validate:"required"`
}

// LinkedInMetadata holds the posting identity for a LinkedIn integration.
// Exactly one of the URNs is used as the post owner; the member URN is the
// fallback when no organization is linked.
type LinkedInMetadata struct {
	MemberURN       string `json:"member_urn" validate:"required"`
	OrganizationURN string `json:"organization_urn"`
}

// decodeMetadata unmarshals and validates a metadata payload. Malformed or
// incomplete metadata is rejected here rather than propagated as optional
// fields through the pipeline.
func decodeMetadata(raw string, out any) error {
	if raw == "" {
		return fmt.Errorf("integration has no capability metadata")
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("malformed integration metadata: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("incomplete integration metadata: %w", err)
	}
	return nil
}

// FacebookMetadata decodes the integration's metadata as Facebook page linkage
func (i *Integration) FacebookMetadata() (*FacebookMetadata, error) {
	var meta FacebookMetadata
	if err := decodeMetadata(i.Metadata, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// InstagramMetadata decodes the integration's metadata as business account linkage
func (i *Integration) InstagramMetadata() (*InstagramMetadata, error) {
	var meta InstagramMetadata
	if err := decodeMetadata(i.Metadata, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LinkedInMetadata decodes the integration's metadata as posting identity
func (i *Integration) LinkedInMetadata() (*LinkedInMetadata, error) {
	var meta LinkedInMetadata
	if err := decodeMetadata(i.Metadata, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// SetMetadata serializes capability metadata onto the integration
func (i *Integration) SetMetadata(meta any) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode integration metadata: %w", err)
	}
	i.Metadata = string(b)
	return nil
}
