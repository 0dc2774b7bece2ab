// Package tokens owns every Integration health transition. The periodic
// sweep refreshes soon-to-expire credentials; other components report auth
// failures here instead of mutating health flags themselves.
package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/faizanprofitpilot/zapsocial/internal/platforms"
	"github.com/faizanprofitpilot/zapsocial/internal/stores/social"
	"github.com/faizanprofitpilot/zapsocial/pkg/retry"
)

const (
	// DefaultHorizon is how far ahead of expiry the sweep starts refreshing
	DefaultHorizon = 7 * 24 * time.Hour

	// DefaultSkipWindow makes the sweep idempotent per day: integrations
	// refreshed within this window are treated as already current
	DefaultSkipWindow = 24 * time.Hour
)

var refreshRetry = retry.Config{MaxAttempts: 2, Delay: 500 * time.Millisecond}

// Manager runs the credential lifecycle state machine
type Manager struct {
	store    *social.Store
	registry *platforms.Registry
	log      *logrus.Logger

	Horizon    time.Duration
	SkipWindow time.Duration

	now func() time.Time
}

// SweepError reports one integration that failed to refresh
type SweepError struct {
	IntegrationID uint   `json:"integration_id"`
	Error         string `json:"error"`
}

// SweepSummary aggregates one provider sweep
type SweepSummary struct {
	Total     int          `json:"total"`
	Refreshed int          `json:"refreshed"`
	Failed    int          `json:"failed"`
	Errors    []SweepError `json:"errors"`
}

// NewManager creates a token lifecycle manager
func NewManager(store *social.Store, registry *platforms.Registry, log *logrus.Logger) *Manager {
	return &Manager{
		store:      store,
		registry:   registry,
		log:        log,
		Horizon:    DefaultHorizon,
		SkipWindow: DefaultSkipWindow,
		now:        time.Now,
	}
}

// SweepProvider refreshes every soon-to-expire integration of one provider.
// Integrations refreshed within the skip window are left alone so concurrent
// or rapid re-invocations do not hammer the provider.
func (m *Manager) SweepProvider(ctx context.Context, provider string) (*SweepSummary, error) {
	adapter, err := m.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	now := m.now()
	integrations, err := m.store.ExpiringIntegrations(provider, now.Add(m.Horizon))
	if err != nil {
		return nil, err
	}

	summary := &SweepSummary{Total: len(integrations)}
	for i := range integrations {
		integration := &integrations[i]

		// Already refreshed recently, treat as current
		if integration.LastRefreshedAt != nil && now.Sub(*integration.LastRefreshedAt) < m.SkipWindow {
			continue
		}

		if err := m.refresh(ctx, adapter, integration); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, SweepError{
				IntegrationID: integration.ID,
				Error:         err.Error(),
			})
			continue
		}
		summary.Refreshed++
	}

	m.log.WithFields(logrus.Fields{
		"provider":  provider,
		"total":     summary.Total,
		"refreshed": summary.Refreshed,
		"failed":    summary.Failed,
	}).Info("token sweep finished")

	return summary, nil
}

// RefreshOne performs a user-triggered refresh of a single integration,
// bypassing the skip window
func (m *Manager) RefreshOne(ctx context.Context, integrationID uint) error {
	integration, err := m.store.GetIntegrationByID(integrationID)
	if err != nil {
		return err
	}
	if integration.Expired {
		return fmt.Errorf("integration %d is expired and must be reconnected", integrationID)
	}

	adapter, err := m.registry.Get(integration.Provider)
	if err != nil {
		return err
	}

	return m.refresh(ctx, adapter, integration)
}

// refresh drives one integration through the refresh transition: success
// returns it to Active with a new expiry; an auth-invalid signal demotes it
// to Expired; any other failure marks AutoRefreshFailed and leaves it
// eligible for the next sweep.
func (m *Manager) refresh(ctx context.Context, adapter platforms.Adapter, integration *social.Integration) error {
	cred := platforms.Credential{
		AccessToken:  integration.AccessToken,
		RefreshToken: integration.RefreshToken,
		ExpiresAt:    integration.TokenExpiresAt,
	}

	var refreshed *platforms.Credential
	err := retry.Do(ctx, refreshRetry, platforms.IsRetryable, func() error {
		var err error
		refreshed, err = adapter.RefreshCredential(ctx, cred)
		return err
	})
	if err != nil {
		if platforms.IsAuthExpired(err) {
			if markErr := m.store.MarkIntegrationExpired(integration.ID); markErr != nil {
				m.log.WithError(markErr).Warn("failed to mark integration expired")
			}
			return err
		}

		if markErr := m.store.MarkAutoRefreshFailed(integration.ID); markErr != nil {
			m.log.WithError(markErr).Warn("failed to mark auto refresh failure")
		}
		return err
	}

	return m.store.UpdateIntegrationTokens(
		integration.ID,
		refreshed.AccessToken,
		refreshed.RefreshToken,
		refreshed.ExpiresAt,
		m.now(),
	)
}

// ReportAuthFailure demotes an integration whose credential was rejected
// during a publish or reply call. The row is re-fetched first so a stale
// in-memory copy from earlier in a batch never drives the update.
func (m *Manager) ReportAuthFailure(integrationID uint) {
	integration, err := m.store.GetIntegrationByID(integrationID)
	if err != nil {
		m.log.WithError(err).Warn("auth failure reported for unknown integration")
		return
	}
	if integration.Expired {
		return
	}

	if err := m.store.MarkIntegrationExpired(integration.ID); err != nil {
		m.log.WithError(err).Warn("failed to mark integration expired")
		return
	}

	m.log.WithFields(logrus.Fields{
		"integration_id": integrationID,
		"provider":       integration.Provider,
	}).Warn("integration demoted to expired after auth failure")
}
