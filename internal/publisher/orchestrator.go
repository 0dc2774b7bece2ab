// Package publisher fans one content item out to its selected platforms,
// aggregating per-platform outcomes. Failures are platform-scoped: one
// provider failing never aborts the rest of the fan-out.
package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/faizanprofitpilot/zapsocial/internal/platforms"
	"github.com/faizanprofitpilot/zapsocial/internal/stores/social"
	"github.com/faizanprofitpilot/zapsocial/internal/tokens"
	"github.com/faizanprofitpilot/zapsocial/pkg/mediaprep"
	"github.com/faizanprofitpilot/zapsocial/pkg/pacer"
	"github.com/faizanprofitpilot/zapsocial/pkg/retry"
)

// publishRetry is the budget for single-shot publish calls. Staged carousel
// publishing retries per stage inside the adapter and is called once here.
var publishRetry = retry.Config{MaxAttempts: 3, Delay: 400 * time.Millisecond}

// Orchestrator drives the synchronous, caller-facing publish fan-out
type Orchestrator struct {
	store    *social.Store
	registry *platforms.Registry
	tokens   *tokens.Manager
	pacer    *pacer.Pacer
	log      *logrus.Logger

	now func() time.Time
}

// Request describes one publish call
type Request struct {
	UserID      uint
	Caption     string
	Platforms   []string
	MediaURLs   []string
	AccountID   string
	ScheduledAt *time.Time
}

// PlatformResult is the outcome on one platform
type PlatformResult struct {
	Platform   string `json:"platform"`
	Success    bool   `json:"success"`
	ExternalID string `json:"external_id,omitempty"`
	AccountID  string `json:"account_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Outcome aggregates a publish call. Partial means at least one platform
// succeeded and at least one failed; callers must not treat it as an error.
type Outcome struct {
	PostID    uint             `json:"post_id"`
	Success   bool             `json:"success"`
	Partial   bool             `json:"partial,omitempty"`
	Scheduled bool             `json:"scheduled,omitempty"`
	Results   []PlatformResult `json:"results,omitempty"`
}

// FirstError returns the error message of the first failed platform, empty
// when every platform succeeded
func (o *Outcome) FirstError() string {
	for _, r := range o.Results {
		if !r.Success && r.Error != "" {
			return r.Error
		}
	}
	return ""
}

// NewOrchestrator creates a publish orchestrator
func NewOrchestrator(store *social.Store, registry *platforms.Registry, tokenManager *tokens.Manager, pace *pacer.Pacer, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		registry: registry,
		tokens:   tokenManager,
		pacer:    pace,
		log:      log,
		now:      time.Now,
	}
}

// Publish persists the content item and either schedules it for later or
// fans it out to every requested platform now
func (o *Orchestrator) Publish(ctx context.Context, req *Request) (*Outcome, error) {
	if req.UserID == 0 {
		return nil, fmt.Errorf("user_id is required")
	}
	if len(req.Platforms) == 0 {
		return nil, fmt.Errorf("no platforms specified")
	}

	post := &social.Post{
		UserID:    req.UserID,
		Caption:   req.Caption,
		AccountID: req.AccountID,
	}
	post.SetPlatformList(req.Platforms)
	post.SetMediaList(req.MediaURLs)

	// A future schedule time defers everything to the scheduled processor
	if req.ScheduledAt != nil && req.ScheduledAt.After(o.now()) {
		post.Status = social.PostStatusScheduled
		post.ScheduledAt = req.ScheduledAt
		if err := o.store.CreatePost(post); err != nil {
			return nil, err
		}
		return &Outcome{PostID: post.ID, Success: true, Scheduled: true}, nil
	}

	post.Status = social.PostStatusDraft
	if err := o.store.CreatePost(post); err != nil {
		return nil, err
	}

	integrations, err := o.integrationsFor(req.UserID, req.Platforms)
	if err != nil {
		return nil, err
	}

	return o.PublishItem(ctx, post, integrations), nil
}

// PublishItem runs the per-platform publish sequence for one persisted post
// and records its terminal status. The scheduled processor reuses this with
// bulk-prefetched integrations.
func (o *Orchestrator) PublishItem(ctx context.Context, post *social.Post, integrations map[string]*social.Integration) *Outcome {
	targets := post.PlatformList()
	media := post.MediaList()

	results := make([]PlatformResult, 0, len(targets))
	for _, platform := range targets {
		result := o.publishToPlatform(ctx, post, platform, media, integrations[platform])
		results = append(results, result)

		// Persist the platform-scoped outcome regardless of success
		record := &social.PostResult{
			PostID:       post.ID,
			UserID:       post.UserID,
			Provider:     platform,
			Success:      result.Success,
			ExternalID:   result.ExternalID,
			AccountID:    result.AccountID,
			ErrorMessage: result.Error,
		}
		if result.Success {
			publishedAt := o.now()
			record.PublishedAt = &publishedAt
		}
		if err := o.store.SavePostResult(record); err != nil {
			o.log.WithError(err).WithField("post_id", post.ID).Error("failed to persist post result")
		}
	}

	return o.finishPost(post, results)
}

// publishToPlatform runs the full sequence for one platform: expired check,
// account resolution, pacing, and the retry-wrapped adapter call
func (o *Orchestrator) publishToPlatform(ctx context.Context, post *social.Post, platform string, media []string, integration *social.Integration) PlatformResult {
	result := PlatformResult{Platform: platform}

	adapter, err := o.registry.Get(platform)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	if integration == nil {
		result.Error = fmt.Sprintf("no %s account connected", platform)
		return result
	}
	if integration.Expired {
		result.Error = fmt.Sprintf("%s token expired, please reconnect your account", platform)
		return result
	}

	acct, err := adapter.ResolveAccount(integration, post.AccountID)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.AccountID = acct.AccountID

	if err := mediaprep.ValidateCount(len(media), adapter.Constraints()); err != nil {
		result.Error = err.Error()
		return result
	}

	if err := o.pacer.Wait(ctx, pacer.Key(post.UserID, platform)); err != nil {
		result.Error = err.Error()
		return result
	}

	publishResult, err := o.callAdapter(ctx, adapter, acct, post.Caption, media)
	if err != nil {
		if platforms.IsAuthExpired(err) {
			o.tokens.ReportAuthFailure(integration.ID)
		}
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.ExternalID = publishResult.ExternalID
	return result
}

// callAdapter picks the adapter operation for the item's media shape. Multi
// media publishes are attempted once because staged adapters retry their own
// failure points internally.
func (o *Orchestrator) callAdapter(ctx context.Context, adapter platforms.Adapter, acct *platforms.Account, caption string, media []string) (*platforms.PublishResult, error) {
	if len(media) == 0 {
		var result *platforms.PublishResult
		err := retry.Do(ctx, publishRetry, platforms.IsRetryable, func() error {
			var err error
			result, err = adapter.PublishText(ctx, acct, caption)
			return err
		})
		return result, err
	}

	items := make([]platforms.Media, 0, len(media))
	for _, url := range media {
		items = append(items, platforms.Media{URL: url})
	}

	if len(items) == 1 {
		var result *platforms.PublishResult
		err := retry.Do(ctx, publishRetry, platforms.IsRetryable, func() error {
			var err error
			result, err = adapter.PublishMedia(ctx, acct, caption, items)
			return err
		})
		return result, err
	}

	return adapter.PublishMedia(ctx, acct, caption, items)
}

// integrationsFor fetches the caller's integrations for the requested platforms
func (o *Orchestrator) integrationsFor(userID uint, targets []string) (map[string]*social.Integration, error) {
	integrations, err := o.store.IntegrationsForUsers([]uint{userID}, targets)
	if err != nil {
		return nil, err
	}

	byProvider := make(map[string]*social.Integration, len(integrations))
	for i := range integrations {
		byProvider[integrations[i].Provider] = &integrations[i]
	}
	return byProvider, nil
}

// finishPost aggregates the per-platform results into the final outcome and
// records the post's terminal status
func (o *Orchestrator) finishPost(post *social.Post, results []PlatformResult) *Outcome {
	outcome := &Outcome{PostID: post.ID, Results: results}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	outcome.Success = succeeded > 0
	outcome.Partial = succeeded > 0 && succeeded < len(results)

	status := social.PostStatusPublished
	errorMessage := ""
	if succeeded == 0 {
		status = social.PostStatusFailed
		errorMessage = outcome.FirstError()
	}
	if err := o.store.MarkPostStatus(post.ID, status, errorMessage); err != nil {
		o.log.WithError(err).WithField("post_id", post.ID).Error("failed to update post status")
	}

	return outcome
}
