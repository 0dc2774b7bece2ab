// Package instagram implements the platform adapter for Instagram business
// accounts via the Graph API. Publishing is container-based: media is staged
// into server-side containers before a separate publish call, and carousels
// stage one child container per image plus a parent referencing them all.
package instagram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/faizanprofitpilot/zapsocial/internal/calllog"
	"github.com/faizanprofitpilot/zapsocial/internal/platforms"
	"github.com/faizanprofitpilot/zapsocial/internal/stores/social"
	"github.com/faizanprofitpilot/zapsocial/pkg/mediaprep"
	"github.com/faizanprofitpilot/zapsocial/pkg/retry"
)

const DefaultBaseURL = "https://graph.facebook.com/v19.0"

// Retry budgets for the staged publish flow. Children are cheap to recreate,
// so they get the larger budget; the parent assembly references work that
// already succeeded and is attempted fewer times.
var (
	childRetry   = retry.Config{MaxAttempts: 3, Delay: 500 * time.Millisecond}
	parentRetry  = retry.Config{MaxAttempts: 2, Delay: 600 * time.Millisecond}
	publishRetry = retry.Config{MaxAttempts: 2, Delay: 600 * time.Millisecond}
)

// Client is the Graph API adapter for Instagram business accounts
type Client struct {
	Graph     platforms.GraphCaller
	AppID     string
	AppSecret string
}

// NewClient creates an Instagram adapter
func NewClient(appID, appSecret string, recorder calllog.Recorder) *Client {
	if recorder == nil {
		recorder = calllog.NopRecorder{}
	}
	return &Client{
		Graph: platforms.GraphCaller{
			ProviderID: platforms.ProviderInstagram,
			BaseURL:    DefaultBaseURL,
			HTTPClient: &http.Client{Timeout: 60 * time.Second},
			Recorder:   recorder,
		},
		AppID:     appID,
		AppSecret: appSecret,
	}
}

// Ensure Client implements the Adapter interface
var _ platforms.Adapter = (*Client)(nil)

func (c *Client) Provider() string {
	return platforms.ProviderInstagram
}

// ResolveAccount validates the business account linkage. Instagram calls ride
// on the linked Facebook page's access token, so an integration without a
// complete page linkage cannot be used at all.
func (c *Client) ResolveAccount(integration *social.Integration, accountID string) (*platforms.Account, error) {
	meta, err := integration.InstagramMetadata()
	if err != nil {
		return nil, platforms.NewValidation(c.Provider(), "resolve_account", err.Error())
	}
	if accountID != "" && accountID != meta.BusinessAccountID {
		return nil, platforms.NewValidation(c.Provider(), "resolve_account",
			fmt.Sprintf("business account %s is not linked to this integration", accountID))
	}

	return &platforms.Account{
		IntegrationID: integration.ID,
		UserID:        integration.UserID,
		AccountID:     meta.BusinessAccountID,
		AccessToken:   meta.PageAccessToken,
		LinkedID:      meta.LinkedPageID,
	}, nil
}

func (c *Client) Constraints() mediaprep.Constraints {
	return mediaprep.Constraints{
		MinCount:     1,
		MaxCount:     10,
		MinAspect:    0.8,
		MaxAspect:    1.91,
		MaxBytes:     8 * 1024 * 1024,
		MaxDimension: 1440,
	}
}

// PublishText is unsupported: Instagram posts always carry media
func (c *Client) PublishText(_ context.Context, _ *platforms.Account, _ string) (*platforms.PublishResult, error) {
	return nil, platforms.NewValidation(c.Provider(), "publish_text", "instagram requires at least one media item")
}

// PublishMedia stages and publishes one image or a carousel. The staged flow
// has three distinct failure points (child containers, parent assembly,
// publish), each retried on its own budget.
func (c *Client) PublishMedia(ctx context.Context, acct *platforms.Account, caption string, media []platforms.Media) (*platforms.PublishResult, error) {
	if err := mediaprep.ValidateCount(len(media), c.Constraints()); err != nil {
		return nil, platforms.NewValidation(c.Provider(), "publish_media", err.Error())
	}

	if len(media) == 1 {
		containerID, err := c.createContainer(ctx, acct, url.Values{
			"image_url": {media[0].URL},
			"caption":   {caption},
		})
		if err != nil {
			return nil, err
		}
		return c.publishContainer(ctx, acct, containerID)
	}

	// Stage one child container per image; each child is independently
	// retryable so one flaky upload does not restart the others
	childIDs := make([]string, 0, len(media))
	for _, m := range media {
		var childID string
		err := retry.Do(ctx, childRetry, platforms.IsRetryable, func() error {
			var err error
			childID, err = c.createContainer(ctx, acct, url.Values{
				"image_url":        {m.URL},
				"is_carousel_item": {"true"},
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("carousel child container failed: %w", err)
		}
		childIDs = append(childIDs, childID)
	}

	// Assemble the parent carousel container referencing all children
	var parentID string
	err := retry.Do(ctx, parentRetry, platforms.IsRetryable, func() error {
		var err error
		parentID, err = c.createContainer(ctx, acct, url.Values{
			"media_type": {"CAROUSEL"},
			"children":   {strings.Join(childIDs, ",")},
			"caption":    {caption},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("carousel assembly failed: %w", err)
	}

	return c.publishContainer(ctx, acct, parentID)
}

// createContainer stages media into a server-side container
func (c *Client) createContainer(ctx context.Context, acct *platforms.Account, params url.Values) (string, error) {
	params.Set("access_token", acct.AccessToken)

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.Graph.Do(ctx, "create_container", http.MethodPost, "/"+acct.AccountID+"/media", params, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", platforms.NewPermanent(c.Provider(), "create_container", "no container id returned", nil)
	}
	return resp.ID, nil
}

// publishContainer finalizes a staged container into a published media object
func (c *Client) publishContainer(ctx context.Context, acct *platforms.Account, containerID string) (*platforms.PublishResult, error) {
	params := url.Values{}
	params.Set("creation_id", containerID)
	params.Set("access_token", acct.AccessToken)

	var resp struct {
		ID string `json:"id"`
	}
	err := retry.Do(ctx, publishRetry, platforms.IsRetryable, func() error {
		return c.Graph.Do(ctx, "media_publish", http.MethodPost, "/"+acct.AccountID+"/media_publish", params, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("container publish failed: %w", err)
	}

	return &platforms.PublishResult{ExternalID: resp.ID}, nil
}

// ReplyToComment posts a threaded reply under an existing comment
func (c *Client) ReplyToComment(ctx context.Context, acct *platforms.Account, ref platforms.CommentRef, text string) (string, error) {
	params := url.Values{}
	params.Set("message", text)
	params.Set("access_token", acct.AccessToken)

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.Graph.Do(ctx, "reply_comment", http.MethodPost, "/"+ref.ID+"/replies", params, &resp); err != nil {
		return "", err
	}

	return resp.ID, nil
}

// FetchRecentComments lists comments on one published media object
func (c *Client) FetchRecentComments(ctx context.Context, acct *platforms.Account, postExternalID string, since time.Time) ([]platforms.InboundComment, error) {
	params := url.Values{}
	params.Set("fields", "id,text,username,from,timestamp")
	params.Set("since", strconv.FormatInt(since.Unix(), 10))
	params.Set("access_token", acct.AccessToken)

	var resp struct {
		Data []struct {
			ID       string `json:"id"`
			Text     string `json:"text"`
			Username string `json:"username"`
			From     struct {
				ID string `json:"id"`
			} `json:"from"`
			Timestamp string `json:"timestamp"`
		} `json:"data"`
	}
	if err := c.Graph.Do(ctx, "fetch_comments", http.MethodGet, "/"+postExternalID+"/comments", params, &resp); err != nil {
		return nil, err
	}

	comments := make([]platforms.InboundComment, 0, len(resp.Data))
	for _, raw := range resp.Data {
		createdAt, err := time.Parse("2006-01-02T15:04:05-0700", raw.Timestamp)
		if err != nil {
			createdAt = time.Now()
		}
		comments = append(comments, platforms.InboundComment{
			ExternalID:     raw.ID,
			PostExternalID: postExternalID,
			AuthorID:       raw.From.ID,
			AuthorName:     raw.Username,
			Text:           raw.Text,
			CreatedAt:      createdAt,
		})
	}

	return comments, nil
}

// RefreshCredential exchanges the stored token for a fresh long-lived one
// through the same Graph exchange Facebook uses
func (c *Client) RefreshCredential(ctx context.Context, cred platforms.Credential) (*platforms.Credential, error) {
	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", c.AppID)
	params.Set("client_secret", c.AppSecret)
	params.Set("fb_exchange_token", cred.AccessToken)

	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := c.Graph.Do(ctx, "refresh_credential", http.MethodGet, "/oauth/access_token", params, &resp); err != nil {
		return nil, err
	}

	refreshed := &platforms.Credential{AccessToken: resp.AccessToken}
	if resp.ExpiresIn > 0 {
		expiresAt := time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		refreshed.ExpiresAt = &expiresAt
	}

	return refreshed, nil
}
