package publish_module

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/faizanprofitpilot/zapsocial/pkg/sdk"
)

// PublishContent handles POST requests to publish or schedule a content item
func PublishContent(c *gin.Context) {
	// Parse request body
	var req sdk.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err.Error()).AsGinResponse())
		return
	}

	// Get service and publish
	resp, err := publishService.Publish(c.Request.Context(), &req)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to publish content", err.Error()).AsGinResponse())
		return
	}

	// Return success response
	message := "Content published"
	if resp.Scheduled {
		message = "Content scheduled"
	} else if !resp.Success {
		message = "Publishing failed on all platforms"
	} else if resp.Partial {
		message = "Content published with platform failures"
	}
	c.JSON(sdk.NewSuccessResponse(message, resp).AsGinResponse())
}
