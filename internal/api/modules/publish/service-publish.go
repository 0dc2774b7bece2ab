package publish_module

import (
	"context"
	"fmt"

	"github.com/faizanprofitpilot/zapsocial/internal/publisher"
	"github.com/faizanprofitpilot/zapsocial/pkg/sdk"
)

// PublishService bridges the HTTP surface and the publish orchestrator
type PublishService struct {
	orchestrator *publisher.Orchestrator
}

var publishService *PublishService

/** ---- INIT ---- */

// Init creates the publish service
func Init(orchestrator *publisher.Orchestrator) {
	publishService = &PublishService{orchestrator: orchestrator}
}

/** ---- SERVICE ---- */

// Publish runs one publish call and converts the outcome to wire types
func (s *PublishService) Publish(ctx context.Context, req *sdk.PublishRequest) (*sdk.PublishResponse, error) {
	if s == nil || s.orchestrator == nil {
		return nil, fmt.Errorf("publish service is not initialized")
	}

	outcome, err := s.orchestrator.Publish(ctx, &publisher.Request{
		UserID:      req.UserID,
		Caption:     req.Caption,
		MediaURLs:   req.MediaURLs,
		Platforms:   req.Platforms,
		AccountID:   req.AccountID,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		return nil, err
	}

	resp := &sdk.PublishResponse{
		PostID:    outcome.PostID,
		Success:   outcome.Success,
		Partial:   outcome.Partial,
		Scheduled: outcome.Scheduled,
	}
	for _, r := range outcome.Results {
		resp.Results = append(resp.Results, sdk.PlatformResult{
			Platform:   r.Platform,
			Success:    r.Success,
			ExternalID: r.ExternalID,
			AccountID:  r.AccountID,
			Error:      r.Error,
		})
	}
	return resp, nil
}
