// Package scheduler drains due scheduled posts in batches. It is invoked by
// the cron runner and by the manual processing endpoint; both paths share the
// same batch semantics.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/faizanprofitpilot/zapsocial/internal/publisher"
	"github.com/faizanprofitpilot/zapsocial/internal/stores/social"
)

// DefaultBatchLimit caps how many due posts one run drains
const DefaultBatchLimit = 50

// Processor publishes scheduled posts whose time has come
type Processor struct {
	store *social.Store
	orch  *publisher.Orchestrator
	log   *logrus.Logger

	BatchLimit int
	now        func() time.Time
}

// ItemError records one failed batch item
type ItemError struct {
	ItemID uint   `json:"item_id"`
	Error  string `json:"error"`
}

// Summary reports one processing run
type Summary struct {
	Total     int         `json:"total"`
	Processed int         `json:"processed"`
	Failed    int         `json:"failed"`
	Errors    []ItemError `json:"errors,omitempty"`
}

// NewProcessor creates a scheduled post processor
func NewProcessor(store *social.Store, orch *publisher.Orchestrator, log *logrus.Logger) *Processor {
	return &Processor{
		store:      store,
		orch:       orch,
		log:        log,
		BatchLimit: DefaultBatchLimit,
		now:        time.Now,
	}
}

// ProcessDue publishes every post whose scheduled time has passed, up to the
// batch limit. One item failing never stops the batch; the next run picks up
// anything left behind.
func (p *Processor) ProcessDue(ctx context.Context) (*Summary, error) {
	due, err := p.store.DueScheduledPosts(p.now(), p.BatchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due posts: %w", err)
	}

	summary := &Summary{Total: len(due)}
	if len(due) == 0 {
		return summary, nil
	}

	integrations := p.prefetchIntegrations(due)

	for i := range due {
		post := &due[i]
		if err := p.processItem(ctx, post, integrations[post.UserID]); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, ItemError{ItemID: post.ID, Error: err.Error()})
			p.log.WithError(err).WithFields(logrus.Fields{
				"post_id": post.ID,
				"user_id": post.UserID,
			}).Warn("scheduled post failed")
			continue
		}
		summary.Processed++
	}

	p.log.WithFields(logrus.Fields{
		"total":     summary.Total,
		"processed": summary.Processed,
		"failed":    summary.Failed,
	}).Info("scheduled batch complete")
	return summary, nil
}

// processItem publishes one due post. A post with no target platforms is a
// data error and is marked failed so it never becomes due again.
func (p *Processor) processItem(ctx context.Context, post *social.Post, integrations map[string]*social.Integration) error {
	if len(post.PlatformList()) == 0 {
		message := "no platforms specified"
		if err := p.store.MarkPostStatus(post.ID, social.PostStatusFailed, message); err != nil {
			return err
		}
		return fmt.Errorf("%s", message)
	}

	outcome := p.orch.PublishItem(ctx, post, integrations)
	if !outcome.Success {
		if reason := outcome.FirstError(); reason != "" {
			return fmt.Errorf("all platforms failed: %s", reason)
		}
		return fmt.Errorf("all platforms failed")
	}
	return nil
}

// prefetchIntegrations bulk-loads every integration the batch could touch in
// one query, grouped by user then provider
func (p *Processor) prefetchIntegrations(due []social.Post) map[uint]map[string]*social.Integration {
	userSet := make(map[uint]struct{}, len(due))
	providerSet := make(map[string]struct{})
	for i := range due {
		userSet[due[i].UserID] = struct{}{}
		for _, platform := range due[i].PlatformList() {
			providerSet[platform] = struct{}{}
		}
	}

	userIDs := make([]uint, 0, len(userSet))
	for id := range userSet {
		userIDs = append(userIDs, id)
	}
	providers := make([]string, 0, len(providerSet))
	for provider := range providerSet {
		providers = append(providers, provider)
	}

	byUser := make(map[uint]map[string]*social.Integration, len(userIDs))
	if len(providers) == 0 {
		return byUser
	}

	integrations, err := p.store.IntegrationsForUsers(userIDs, providers)
	if err != nil {
		p.log.WithError(err).Error("failed to prefetch integrations")
		return byUser
	}

	for i := range integrations {
		integration := &integrations[i]
		if byUser[integration.UserID] == nil {
			byUser[integration.UserID] = make(map[string]*social.Integration)
		}
		byUser[integration.UserID][integration.Provider] = integration
	}
	return byUser
}
