package jobs_module

import (
	"context"
	"fmt"

	"github.com/faizanprofitpilot/zapsocial/internal/automation"
	"github.com/faizanprofitpilot/zapsocial/internal/platforms"
	"github.com/faizanprofitpilot/zapsocial/internal/scheduler"
	"github.com/faizanprofitpilot/zapsocial/internal/tokens"
	"github.com/faizanprofitpilot/zapsocial/pkg/sdk"
)

// JobsService exposes the batch pipelines to the cron-facing endpoints
type JobsService struct {
	scheduler  *scheduler.Processor
	automation *automation.Engine
	tokens     *tokens.Manager
}

var jobsService *JobsService

/** ---- INIT ---- */

// Init creates the jobs service
func Init(sched *scheduler.Processor, engine *automation.Engine, tokenManager *tokens.Manager) {
	jobsService = &JobsService{
		scheduler:  sched,
		automation: engine,
		tokens:     tokenManager,
	}
}

/** ---- SERVICE ---- */

// ProcessScheduled drains due scheduled posts
func (s *JobsService) ProcessScheduled(ctx context.Context) (*sdk.ScheduledRunResponse, error) {
	if s == nil || s.scheduler == nil {
		return nil, fmt.Errorf("jobs service is not initialized")
	}

	summary, err := s.scheduler.ProcessDue(ctx)
	if err != nil {
		return nil, err
	}

	resp := &sdk.ScheduledRunResponse{
		Total:     summary.Total,
		Processed: summary.Processed,
		Failed:    summary.Failed,
	}
	for _, e := range summary.Errors {
		resp.Errors = append(resp.Errors, sdk.ItemError{ItemID: e.ItemID, Error: e.Error})
	}
	return resp, nil
}

// ProcessComments runs one comment automation pass
func (s *JobsService) ProcessComments(ctx context.Context) (*sdk.AutomationRunResponse, error) {
	if s == nil || s.automation == nil {
		return nil, fmt.Errorf("jobs service is not initialized")
	}

	summary, err := s.automation.Run(ctx)
	if err != nil {
		return nil, err
	}

	resp := &sdk.AutomationRunResponse{
		Processed: summary.Processed,
		Replied:   summary.Replied,
		Skipped:   summary.Skipped,
	}
	for _, e := range summary.Errors {
		resp.Errors = append(resp.Errors, sdk.UserError{UserID: e.UserID, Error: e.Error})
	}
	return resp, nil
}

// RefreshProvider sweeps one provider's expiring integrations
func (s *JobsService) RefreshProvider(ctx context.Context, provider string) (*sdk.RefreshRunResponse, error) {
	if s == nil || s.tokens == nil {
		return nil, fmt.Errorf("jobs service is not initialized")
	}

	summary, err := s.tokens.SweepProvider(ctx, provider)
	if err != nil {
		return nil, err
	}

	resp := &sdk.RefreshRunResponse{
		Total:     summary.Total,
		Refreshed: summary.Refreshed,
		Failed:    summary.Failed,
	}
	for _, e := range summary.Errors {
		resp.Errors = append(resp.Errors, sdk.RefreshError{IntegrationID: e.IntegrationID, Error: e.Error})
	}
	return resp, nil
}

// IsUnknownProvider reports whether an error names an unsupported provider
func (s *JobsService) IsUnknownProvider(err error) bool {
	return platforms.IsUnknownProvider(err)
}
