package jobs_module

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/faizanprofitpilot/zapsocial/pkg/sdk"
	"github.com/faizanprofitpilot/zapsocial/pkg/utils"
)

// CronAuthHandler middleware validates the shared cron secret on protected
// endpoints. Callers pass it as "Bearer <secret>" in the Authorization header.
func CronAuthHandler(cfg *utils.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := cfg.Get("CRON_SECRET")
		if secret == "" {
			c.JSON(sdk.NewErrorResponse(http.StatusUnauthorized, "Cron secret is not configured", nil).AsGinResponse())
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(sdk.NewErrorResponse(http.StatusUnauthorized, "Authorization header required", nil).AsGinResponse())
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(sdk.NewErrorResponse(http.StatusUnauthorized, "Invalid authorization format. Use Bearer <secret>", nil).AsGinResponse())
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.JSON(sdk.NewErrorResponse(http.StatusUnauthorized, "Invalid cron secret", nil).AsGinResponse())
			c.Abort()
			return
		}

		c.Next()
	}
}

// ProcessScheduled handles POST requests to drain due scheduled posts
func ProcessScheduled(c *gin.Context) {
	resp, err := jobsService.ProcessScheduled(c.Request.Context())
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to process scheduled posts", err.Error()).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Scheduled posts processed", resp).AsGinResponse())
}

// ProcessComments handles POST requests to run one comment automation pass
func ProcessComments(c *gin.Context) {
	resp, err := jobsService.ProcessComments(c.Request.Context())
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to run comment automation", err.Error()).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Comment automation run complete", resp).AsGinResponse())
}

// RefreshProvider handles POST requests to sweep a provider's expiring tokens
func RefreshProvider(c *gin.Context) {
	provider := c.Param("provider")

	resp, err := jobsService.RefreshProvider(c.Request.Context(), provider)
	if err != nil {
		code := http.StatusInternalServerError
		if jobsService.IsUnknownProvider(err) {
			code = http.StatusBadRequest
		}
		c.JSON(sdk.NewErrorResponse(code, "Failed to refresh provider tokens", err.Error()).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Token refresh sweep complete", resp).AsGinResponse())
}
