// Package linkedin implements the platform adapter for LinkedIn members and
// organizations: ugcPosts publishing (with asset upload for media),
// socialActions comment fetch and reply, and OAuth2 refresh-token renewal.
package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	oauth2linkedin "golang.org/x/oauth2/linkedin"

	"github.com/faizanprofitpilot/zapsocial/internal/calllog"
	"github.com/faizanprofitpilot/zapsocial/internal/platforms"
	"github.com/faizanprofitpilot/zapsocial/internal/stores/social"
	"github.com/faizanprofitpilot/zapsocial/pkg/mediaprep"
)

const DefaultBaseURL = "https://api.linkedin.com/v2"

// Client is the REST adapter for LinkedIn
type Client struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
	Recorder     calllog.Recorder
}

// NewClient creates a LinkedIn adapter. clientID and clientSecret drive the
// OAuth2 refresh-token grant.
func NewClient(clientID, clientSecret string, recorder calllog.Recorder) *Client {
	if recorder == nil {
		recorder = calllog.NopRecorder{}
	}
	return &Client{
		BaseURL:      DefaultBaseURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		HTTPClient:   &http.Client{Timeout: 60 * time.Second},
		Recorder:     recorder,
	}
}

// Ensure Client implements the Adapter interface
var _ platforms.Adapter = (*Client)(nil)

func (c *Client) Provider() string {
	return platforms.ProviderLinkedIn
}

// ResolveAccount selects the post owner URN: the linked organization when one
// exists and no explicit selection overrides it, otherwise the member URN
func (c *Client) ResolveAccount(integration *social.Integration, accountID string) (*platforms.Account, error) {
	meta, err := integration.LinkedInMetadata()
	if err != nil {
		return nil, platforms.NewValidation(c.Provider(), "resolve_account", err.Error())
	}

	owner := meta.MemberURN
	if meta.OrganizationURN != "" {
		owner = meta.OrganizationURN
	}
	if accountID != "" {
		if accountID != meta.MemberURN && accountID != meta.OrganizationURN {
			return nil, platforms.NewValidation(c.Provider(), "resolve_account",
				fmt.Sprintf("account %s is not linked to this integration", accountID))
		}
		owner = accountID
	}

	return &platforms.Account{
		IntegrationID: integration.ID,
		UserID:        integration.UserID,
		AccountID:     owner,
		AccessToken:   integration.AccessToken,
	}, nil
}

func (c *Client) Constraints() mediaprep.Constraints {
	return mediaprep.Constraints{
		MaxCount:     9,
		MaxBytes:     10 * 1024 * 1024,
		MaxDimension: 4096,
	}
}

// PublishText creates a text-only ugcPost
func (c *Client) PublishText(ctx context.Context, acct *platforms.Account, caption string) (*platforms.PublishResult, error) {
	body := map[string]any{
		"author":         acct.AccountID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]any{"text": caption},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, "publish_text", http.MethodPost, "/ugcPosts", acct.AccessToken, body, &resp); err != nil {
		return nil, err
	}

	return &platforms.PublishResult{ExternalID: resp.ID}, nil
}

// PublishMedia registers and uploads each image as an asset, then creates one
// ugcPost referencing all of them
func (c *Client) PublishMedia(ctx context.Context, acct *platforms.Account, caption string, media []platforms.Media) (*platforms.PublishResult, error) {
	if err := mediaprep.ValidateCount(len(media), c.Constraints()); err != nil {
		return nil, platforms.NewValidation(c.Provider(), "publish_media", err.Error())
	}

	assets := make([]map[string]any, 0, len(media))
	for _, m := range media {
		assetURN, err := c.uploadAsset(ctx, acct, m.URL)
		if err != nil {
			return nil, err
		}
		assets = append(assets, map[string]any{
			"status": "READY",
			"media":  assetURN,
		})
	}

	body := map[string]any{
		"author":         acct.AccountID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]any{"text": caption},
				"shareMediaCategory": "IMAGE",
				"media":              assets,
			},
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, "publish_media", http.MethodPost, "/ugcPosts", acct.AccessToken, body, &resp); err != nil {
		return nil, err
	}

	return &platforms.PublishResult{ExternalID: resp.ID}, nil
}

// uploadAsset registers an upload slot, downloads the source image, prepares
// it against the provider constraints, and uploads the bytes
func (c *Client) uploadAsset(ctx context.Context, acct *platforms.Account, mediaURL string) (string, error) {
	registerBody := map[string]any{
		"registerUploadRequest": map[string]any{
			"recipes": []string{"urn:li:digitalmediaRecipe:feedshare-image"},
			"owner":   acct.AccountID,
			"serviceRelationships": []map[string]any{{
				"relationshipType": "OWNER",
				"identifier":       "urn:li:userGeneratedContent",
			}},
		},
	}

	var registerResp struct {
		Value struct {
			Asset           string `json:"asset"`
			UploadMechanism map[string]struct {
				UploadURL string `json:"uploadUrl"`
			} `json:"uploadMechanism"`
		} `json:"value"`
	}
	if err := c.doJSON(ctx, "register_upload", http.MethodPost, "/assets?action=registerUpload", acct.AccessToken, registerBody, &registerResp); err != nil {
		return "", err
	}

	var uploadURL string
	for _, mech := range registerResp.Value.UploadMechanism {
		if mech.UploadURL != "" {
			uploadURL = mech.UploadURL
			break
		}
	}
	if uploadURL == "" {
		return "", platforms.NewPermanent(c.Provider(), "register_upload", "no upload url returned", nil)
	}

	data, err := c.fetchMedia(ctx, mediaURL)
	if err != nil {
		return "", err
	}

	prepared, err := mediaprep.Prepare(data, c.Constraints())
	if err != nil {
		if mediaprep.IsValidationError(err) {
			return "", platforms.NewValidation(c.Provider(), "upload_asset", err.Error())
		}
		return "", err
	}

	if err := c.uploadBytes(ctx, uploadURL, acct.AccessToken, prepared); err != nil {
		return "", err
	}

	return registerResp.Value.Asset, nil
}

// fetchMedia downloads the source image bytes
func (c *Client) fetchMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build media fetch request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, platforms.NewTransient(c.Provider(), "fetch_media", "media download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, platforms.NewValidation(c.Provider(), "fetch_media",
			fmt.Sprintf("media url returned status %d", resp.StatusCode))
	}

	return io.ReadAll(resp.Body)
}

// uploadBytes PUTs the prepared image to the registered upload slot
func (c *Client) uploadBytes(ctx context.Context, uploadURL, token string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.Recorder.Record(calllog.Call{
			Provider: c.Provider(), Endpoint: "upload", Method: http.MethodPut,
			Success: false, Duration: duration, Err: err,
		})
		return platforms.NewTransient(c.Provider(), "upload_asset", "asset upload failed", err)
	}
	defer resp.Body.Close()

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	c.Recorder.Record(calllog.Call{
		Provider: c.Provider(), Endpoint: "upload", Method: http.MethodPut,
		StatusCode: resp.StatusCode, Success: success, Duration: duration,
	})

	if !success {
		return c.mapStatus("upload_asset", resp.StatusCode, nil)
	}
	return nil
}

// ReplyToComment posts a comment under a post or an existing comment through
// the socialActions endpoint. The target URN is the stored post id.
func (c *Client) ReplyToComment(ctx context.Context, acct *platforms.Account, ref platforms.CommentRef, text string) (string, error) {
	body := map[string]any{
		"actor":         acct.AccountID,
		"message":       map[string]any{"text": text},
		"parentComment": ref.ID,
	}

	path := "/socialActions/" + url.PathEscape(ref.PostExternalID) + "/comments"

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, "reply_comment", http.MethodPost, path, acct.AccessToken, body, &resp); err != nil {
		return "", err
	}

	return resp.ID, nil
}

// FetchRecentComments lists comments on one ugcPost. The post URN is the
// external id persisted at publish time, which makes comment fetch a complete
// capability for this provider.
func (c *Client) FetchRecentComments(ctx context.Context, acct *platforms.Account, postExternalID string, since time.Time) ([]platforms.InboundComment, error) {
	path := "/socialActions/" + url.PathEscape(postExternalID) + "/comments"

	var resp struct {
		Elements []struct {
			URN     string `json:"$URN"`
			ID      string `json:"id"`
			Actor   string `json:"actor"`
			Message struct {
				Text string `json:"text"`
			} `json:"message"`
			Created struct {
				Time int64 `json:"time"`
			} `json:"created"`
		} `json:"elements"`
	}
	if err := c.doJSON(ctx, "fetch_comments", http.MethodGet, path, acct.AccessToken, nil, &resp); err != nil {
		return nil, err
	}

	comments := make([]platforms.InboundComment, 0, len(resp.Elements))
	for _, raw := range resp.Elements {
		createdAt := time.UnixMilli(raw.Created.Time)
		if createdAt.Before(since) {
			continue
		}

		externalID := raw.URN
		if externalID == "" {
			externalID = raw.ID
		}
		comments = append(comments, platforms.InboundComment{
			ExternalID:     externalID,
			PostExternalID: postExternalID,
			AuthorID:       raw.Actor,
			Text:           raw.Message.Text,
			CreatedAt:      createdAt,
		})
	}

	return comments, nil
}

// RefreshCredential renews the access token through the OAuth2 refresh-token
// grant. Integrations without a refresh token cannot be renewed and must be
// reconnected by the user.
func (c *Client) RefreshCredential(ctx context.Context, cred platforms.Credential) (*platforms.Credential, error) {
	if cred.RefreshToken == "" {
		return nil, platforms.NewAuthExpired(c.Provider(), "refresh_credential",
			"no refresh token available, please reconnect your account")
	}

	conf := &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     oauth2linkedin.Endpoint,
	}

	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			if retrieveErr.Response != nil && retrieveErr.Response.StatusCode < 500 {
				return nil, platforms.NewAuthExpired(c.Provider(), "refresh_credential",
					"refresh token rejected, please reconnect your account")
			}
		}
		return nil, platforms.NewTransient(c.Provider(), "refresh_credential", "token refresh failed", err)
	}

	refreshed := &platforms.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		refreshed.ExpiresAt = &expiry
	}

	return refreshed, nil
}

// doJSON performs one LinkedIn REST request, records it, and maps response
// statuses onto the platform error taxonomy
func (c *Client) doJSON(ctx context.Context, op, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.Recorder.Record(calllog.Call{
			Provider: c.Provider(), Endpoint: path, Method: method,
			Success: false, Duration: duration, Err: err,
		})
		return platforms.NewTransient(c.Provider(), op, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	var callErr error
	if !success {
		callErr = fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	c.Recorder.Record(calllog.Call{
		Provider: c.Provider(), Endpoint: path, Method: method,
		StatusCode: resp.StatusCode, Success: success, Duration: duration, Err: callErr,
	})

	if !success {
		return c.mapStatus(op, resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}

	// Creation endpoints return the new id in a header with an empty body
	if len(respBody) == 0 {
		if restliID := resp.Header.Get("X-RestLi-Id"); restliID != "" {
			return json.Unmarshal([]byte(fmt.Sprintf(`{"id":%q}`, restliID)), out)
		}
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// mapStatus converts a LinkedIn HTTP status into a typed error
func (c *Client) mapStatus(op string, status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized:
		return platforms.NewAuthExpired(c.Provider(), op, "Token expired, please reconnect your account")
	case status == http.StatusTooManyRequests || status >= 500:
		return platforms.NewTransient(c.Provider(), op, fmt.Sprintf("status %d", status), nil)
	default:
		return platforms.NewPermanent(c.Provider(), op, fmt.Sprintf("status %d: %s", status, string(body)), nil)
	}
}
