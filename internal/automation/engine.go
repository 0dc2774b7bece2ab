// Package automation runs the comment auto-reply loop: ingest recent comments
// on published posts, then draft and send replies under each user's policy.
package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/faizanprofitpilot/zapsocial/internal/platforms"
	"github.com/faizanprofitpilot/zapsocial/internal/stores/social"
	"github.com/faizanprofitpilot/zapsocial/internal/tokens"
	"github.com/faizanprofitpilot/zapsocial/pkg/pacer"
)

// DefaultSourceLimit caps how many recent published posts per provider one
// run scans for new comments
const DefaultSourceLimit = 10

// quotaWindow is the rolling window for the per-post reply cap
const quotaWindow = 24 * time.Hour

// Engine drives the comment auto-reply loop across all enabled policies
type Engine struct {
	store     *social.Store
	registry  *platforms.Registry
	tokens    *tokens.Manager
	generator ReplyGenerator
	tones     *ToneSet
	pacer     *pacer.Pacer
	log       *logrus.Logger

	SourceLimit int
	now         func() time.Time
}

// UserError records one user whose run failed
type UserError struct {
	UserID uint   `json:"user_id"`
	Error  string `json:"error"`
}

// Summary reports one automation run. Skipped counts comments passed over for
// quota or policy reasons, which is normal operation, not failure.
type Summary struct {
	Processed int         `json:"processed"`
	Replied   int         `json:"replied"`
	Skipped   int         `json:"skipped"`
	Errors    []UserError `json:"errors,omitempty"`
}

// NewEngine creates a comment automation engine
func NewEngine(store *social.Store, registry *platforms.Registry, tokenManager *tokens.Manager, generator ReplyGenerator, tones *ToneSet, pace *pacer.Pacer, log *logrus.Logger) *Engine {
	return &Engine{
		store:       store,
		registry:    registry,
		tokens:      tokenManager,
		generator:   generator,
		tones:       tones,
		pacer:       pace,
		log:         log,
		SourceLimit: DefaultSourceLimit,
		now:         time.Now,
	}
}

// Run executes one automation pass over every enabled policy. Per-user
// failures are recorded and never stop the run.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	policies, err := e.store.EnabledReplyPolicies()
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled policies: %w", err)
	}

	summary := &Summary{}
	for i := range policies {
		policy := &policies[i]
		if err := e.runUser(ctx, policy, summary); err != nil {
			summary.Errors = append(summary.Errors, UserError{UserID: policy.UserID, Error: err.Error()})
			e.log.WithError(err).WithField("user_id", policy.UserID).Warn("comment automation failed for user")
		}
	}

	e.log.WithFields(logrus.Fields{
		"users":     len(policies),
		"processed": summary.Processed,
		"replied":   summary.Replied,
		"skipped":   summary.Skipped,
	}).Info("comment automation run complete")
	return summary, nil
}

// target is one resolved reply surface for a user
type target struct {
	adapter platforms.Adapter
	account *platforms.Account
}

// runUser ingests and replies for one user under their policy
func (e *Engine) runUser(ctx context.Context, policy *social.ReplyPolicy, summary *Summary) error {
	lookback := time.Duration(policy.LookbackMinutes) * time.Minute
	if lookback <= 0 {
		lookback = time.Hour
	}
	since := e.now().Add(-lookback)

	integrations, err := e.store.IntegrationsForUser(policy.UserID)
	if err != nil {
		return fmt.Errorf("failed to load integrations: %w", err)
	}

	targets := make(map[string]target, len(integrations))
	for i := range integrations {
		integration := &integrations[i]
		adapter, err := e.registry.Get(integration.Provider)
		if err != nil {
			continue
		}
		acct, err := adapter.ResolveAccount(integration, "")
		if err != nil {
			e.log.WithError(err).WithFields(logrus.Fields{
				"user_id":  policy.UserID,
				"provider": integration.Provider,
			}).Warn("skipping unresolvable integration")
			continue
		}
		targets[integration.Provider] = target{adapter: adapter, account: acct}

		if err := e.ingestComments(ctx, policy, adapter, acct, since); err != nil {
			if platforms.IsAuthExpired(err) {
				e.tokens.ReportAuthFailure(integration.ID)
				return err
			}
			e.log.WithError(err).WithFields(logrus.Fields{
				"user_id":  policy.UserID,
				"provider": integration.Provider,
			}).Warn("comment ingestion failed")
		}
	}

	return e.replyPending(ctx, policy, targets, since, summary)
}

// ingestComments pulls recent comments on the user's published posts for one
// provider and persists the ones the policy allows replying to
func (e *Engine) ingestComments(ctx context.Context, policy *social.ReplyPolicy, adapter platforms.Adapter, acct *platforms.Account, since time.Time) error {
	sources, err := e.store.PublishedSources(policy.UserID, adapter.Provider(), e.SourceLimit)
	if err != nil {
		return fmt.Errorf("failed to list published posts: %w", err)
	}

	excluded := policy.KeywordList()
	for _, source := range sources {
		comments, err := adapter.FetchRecentComments(ctx, acct, source.ExternalID, since)
		if err != nil {
			return err
		}

		for _, c := range comments {
			// Never reply to the account's own comments
			if c.AuthorID != "" && c.AuthorID == acct.AccountID {
				continue
			}
			// Excluded keywords are dropped before persisting so they can
			// never resurface as pending work
			if matchesKeyword(c.Text, excluded) {
				continue
			}

			_, err := e.store.SaveCommentIfNew(&social.Comment{
				UserID:            policy.UserID,
				Provider:          adapter.Provider(),
				ExternalID:        c.ExternalID,
				PostExternalID:    c.PostExternalID,
				AuthorID:          c.AuthorID,
				AuthorName:        c.AuthorName,
				Text:              c.Text,
				ExternalCreatedAt: c.CreatedAt,
			})
			if err != nil {
				return fmt.Errorf("failed to persist comment: %w", err)
			}
		}
	}
	return nil
}

// replyPending drafts and sends replies for the user's unreplied comments,
// oldest first, under the per-post rolling quota. A failure on one comment is
// recorded and never stops the remaining comments; only an expired credential
// aborts the user, since every sibling call would fail the same way.
func (e *Engine) replyPending(ctx context.Context, policy *social.ReplyPolicy, targets map[string]target, since time.Time, summary *Summary) error {
	pending, err := e.store.UnrepliedCommentsSince(policy.UserID, since)
	if err != nil {
		return fmt.Errorf("failed to list pending comments: %w", err)
	}

	tone := e.tones.Get(policy.Tone)
	for i := range pending {
		comment := &pending[i]
		summary.Processed++

		tgt, ok := targets[comment.Provider]
		if !ok {
			summary.Skipped++
			continue
		}

		count, err := e.store.ReplyCountSince(policy.UserID, comment.PostExternalID, e.now().Add(-quotaWindow))
		if err != nil {
			return fmt.Errorf("failed to count recent replies: %w", err)
		}
		if count >= int64(policy.MaxRepliesPerPost) {
			summary.Skipped++
			continue
		}

		reply, err := e.generator.GenerateReply(ctx, GenerateRequest{
			Tone:        tone,
			CommentText: comment.Text,
			AuthorName:  comment.AuthorName,
			Provider:    comment.Provider,
		})
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			e.recordCommentFailure(policy, comment, summary, fmt.Errorf("reply generation failed: %w", err))
			continue
		}

		// The pacer only fails when the run's context is cancelled
		if err := e.pacer.Wait(ctx, pacer.Key(policy.UserID, comment.Provider)); err != nil {
			return err
		}

		ref := platforms.CommentRef{ID: comment.ExternalID, PostExternalID: comment.PostExternalID}
		if _, err := tgt.adapter.ReplyToComment(ctx, tgt.account, ref, reply); err != nil {
			// A dead credential fails every sibling the same way, so the
			// user's run stops here; anything else is isolated to this
			// comment and the loop moves on
			if platforms.IsAuthExpired(err) {
				e.tokens.ReportAuthFailure(tgt.account.IntegrationID)
				return err
			}
			e.recordCommentFailure(policy, comment, summary, err)
			continue
		}

		if err := e.store.MarkCommentReplied(comment.ID, reply, e.now()); err != nil {
			return fmt.Errorf("failed to mark comment replied: %w", err)
		}
		summary.Replied++
	}
	return nil
}

// recordCommentFailure notes one comment whose reply failed. The comment
// stays unreplied and is retried on the next run while it remains inside the
// lookback window.
func (e *Engine) recordCommentFailure(policy *social.ReplyPolicy, comment *social.Comment, summary *Summary, err error) {
	summary.Errors = append(summary.Errors, UserError{
		UserID: policy.UserID,
		Error:  fmt.Sprintf("comment %s: %v", comment.ExternalID, err),
	})
	e.log.WithError(err).WithFields(logrus.Fields{
		"user_id":    policy.UserID,
		"provider":   comment.Provider,
		"comment_id": comment.ExternalID,
	}).Warn("comment reply failed")
}

// matchesKeyword reports whether the text contains any excluded keyword,
// case-insensitive
func matchesKeyword(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
