// Package facebook implements the platform adapter for Facebook pages via
// the Graph API: feed/photo publishing, comment fetch and reply, and
// long-lived token exchange.
package facebook

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/faizanprofitpilot/zapsocial/internal/calllog"
	"github.com/faizanprofitpilot/zapsocial/internal/platforms"
	"github.com/faizanprofitpilot/zapsocial/internal/stores/social"
	"github.com/faizanprofitpilot/zapsocial/pkg/mediaprep"
	"github.com/faizanprofitpilot/zapsocial/pkg/retry"
)

const DefaultBaseURL = "https://graph.facebook.com/v19.0"

// graphTime is the timestamp layout the Graph API returns
const graphTime = "2006-01-02T15:04:05-0700"

// Retry budgets for the multi-photo flow. Unpublished uploads are cheap to
// repeat; the final feed post references uploads that already succeeded and
// is attempted fewer times.
var (
	uploadRetry = retry.Config{MaxAttempts: 3, Delay: 500 * time.Millisecond}
	feedRetry   = retry.Config{MaxAttempts: 2, Delay: 600 * time.Millisecond}
)

// Client is the Graph API adapter for Facebook pages
type Client struct {
	Graph     platforms.GraphCaller
	AppID     string
	AppSecret string
}

// NewClient creates a Facebook adapter. appID and appSecret are used for the
// long-lived token exchange.
func NewClient(appID, appSecret string, recorder calllog.Recorder) *Client {
	if recorder == nil {
		recorder = calllog.NopRecorder{}
	}
	return &Client{
		Graph: platforms.GraphCaller{
			ProviderID: platforms.ProviderFacebook,
			BaseURL:    DefaultBaseURL,
			HTTPClient: &http.Client{Timeout: 30 * time.Second},
			Recorder:   recorder,
		},
		AppID:     appID,
		AppSecret: appSecret,
	}
}

// Ensure Client implements the Adapter interface
var _ platforms.Adapter = (*Client)(nil)

func (c *Client) Provider() string {
	return platforms.ProviderFacebook
}

// ResolveAccount selects the page to publish to. Pages carry their own access
// tokens; the integration's user token is never used for page calls.
func (c *Client) ResolveAccount(integration *social.Integration, accountID string) (*platforms.Account, error) {
	meta, err := integration.FacebookMetadata()
	if err != nil {
		return nil, platforms.NewValidation(c.Provider(), "resolve_account", err.Error())
	}

	page := &meta.Pages[0]
	if accountID != "" {
		page = nil
		for i := range meta.Pages {
			if meta.Pages[i].ID == accountID {
				page = &meta.Pages[i]
				break
			}
		}
		if page == nil {
			return nil, platforms.NewValidation(c.Provider(), "resolve_account",
				fmt.Sprintf("page %s is not linked to this integration", accountID))
		}
	}

	return &platforms.Account{
		IntegrationID: integration.ID,
		UserID:        integration.UserID,
		AccountID:     page.ID,
		AccessToken:   page.AccessToken,
	}, nil
}

func (c *Client) Constraints() mediaprep.Constraints {
	return mediaprep.Constraints{
		MaxCount:     10,
		MaxBytes:     8 * 1024 * 1024,
		MaxDimension: 2048,
	}
}

// PublishText posts a text-only message to the page feed
func (c *Client) PublishText(ctx context.Context, acct *platforms.Account, caption string) (*platforms.PublishResult, error) {
	params := url.Values{}
	params.Set("message", caption)
	params.Set("access_token", acct.AccessToken)

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.Graph.Do(ctx, "publish_text", http.MethodPost, "/"+acct.AccountID+"/feed", params, &resp); err != nil {
		return nil, err
	}

	return &platforms.PublishResult{ExternalID: resp.ID}, nil
}

// PublishMedia posts one or more photos. A single photo goes straight to the
// photos edge; multiple photos are uploaded unpublished and attached to one
// feed post.
func (c *Client) PublishMedia(ctx context.Context, acct *platforms.Account, caption string, media []platforms.Media) (*platforms.PublishResult, error) {
	if err := mediaprep.ValidateCount(len(media), c.Constraints()); err != nil {
		return nil, platforms.NewValidation(c.Provider(), "publish_media", err.Error())
	}

	if len(media) == 1 {
		params := url.Values{}
		params.Set("url", media[0].URL)
		params.Set("message", caption)
		params.Set("access_token", acct.AccessToken)

		var resp struct {
			ID     string `json:"id"`
			PostID string `json:"post_id"`
		}
		if err := c.Graph.Do(ctx, "publish_photo", http.MethodPost, "/"+acct.AccountID+"/photos", params, &resp); err != nil {
			return nil, err
		}

		externalID := resp.PostID
		if externalID == "" {
			externalID = resp.ID
		}
		return &platforms.PublishResult{ExternalID: externalID}, nil
	}

	// Upload each photo unpublished, then attach all of them to one feed
	// post. Each upload is retried independently so a transient failure does
	// not restart uploads that already completed.
	mediaIDs := make([]string, 0, len(media))
	for _, m := range media {
		params := url.Values{}
		params.Set("url", m.URL)
		params.Set("published", "false")
		params.Set("access_token", acct.AccessToken)

		var resp struct {
			ID string `json:"id"`
		}
		err := retry.Do(ctx, uploadRetry, platforms.IsRetryable, func() error {
			return c.Graph.Do(ctx, "upload_photo", http.MethodPost, "/"+acct.AccountID+"/photos", params, &resp)
		})
		if err != nil {
			return nil, err
		}
		mediaIDs = append(mediaIDs, resp.ID)
	}

	params := url.Values{}
	params.Set("message", caption)
	params.Set("access_token", acct.AccessToken)
	for i, id := range mediaIDs {
		params.Set(fmt.Sprintf("attached_media[%d]", i), fmt.Sprintf(`{"media_fbid":"%s"}`, id))
	}

	var resp struct {
		ID string `json:"id"`
	}
	err := retry.Do(ctx, feedRetry, platforms.IsRetryable, func() error {
		return c.Graph.Do(ctx, "publish_multi_photo", http.MethodPost, "/"+acct.AccountID+"/feed", params, &resp)
	})
	if err != nil {
		return nil, err
	}

	return &platforms.PublishResult{ExternalID: resp.ID}, nil
}

// ReplyToComment posts a reply under an existing comment
func (c *Client) ReplyToComment(ctx context.Context, acct *platforms.Account, ref platforms.CommentRef, text string) (string, error) {
	params := url.Values{}
	params.Set("message", text)
	params.Set("access_token", acct.AccessToken)

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.Graph.Do(ctx, "reply_comment", http.MethodPost, "/"+ref.ID+"/comments", params, &resp); err != nil {
		return "", err
	}

	return resp.ID, nil
}

// FetchRecentComments lists comments on one page post since the cutoff
func (c *Client) FetchRecentComments(ctx context.Context, acct *platforms.Account, postExternalID string, since time.Time) ([]platforms.InboundComment, error) {
	params := url.Values{}
	params.Set("fields", "id,message,from,created_time")
	params.Set("filter", "stream")
	params.Set("since", strconv.FormatInt(since.Unix(), 10))
	params.Set("access_token", acct.AccessToken)

	var resp struct {
		Data []struct {
			ID      string `json:"id"`
			Message string `json:"message"`
			From    struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"from"`
			CreatedTime string `json:"created_time"`
		} `json:"data"`
	}
	if err := c.Graph.Do(ctx, "fetch_comments", http.MethodGet, "/"+postExternalID+"/comments", params, &resp); err != nil {
		return nil, err
	}

	comments := make([]platforms.InboundComment, 0, len(resp.Data))
	for _, raw := range resp.Data {
		createdAt, err := time.Parse(graphTime, raw.CreatedTime)
		if err != nil {
			createdAt = time.Now()
		}
		comments = append(comments, platforms.InboundComment{
			ExternalID:     raw.ID,
			PostExternalID: postExternalID,
			AuthorID:       raw.From.ID,
			AuthorName:     raw.From.Name,
			Text:           raw.Message,
			CreatedAt:      createdAt,
		})
	}

	return comments, nil
}

// RefreshCredential exchanges the current user token for a fresh long-lived
// one. Facebook has no refresh tokens; the exchange uses the token itself.
func (c *Client) RefreshCredential(ctx context.Context, cred platforms.Credential) (*platforms.Credential, error) {
	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", c.AppID)
	params.Set("client_secret", c.AppSecret)
	params.Set("fb_exchange_token", cred.AccessToken)

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
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
