package jobs_module

import (
	"github.com/gin-gonic/gin"

	"github.com/faizanprofitpilot/zapsocial/pkg/utils"
)

// Register routes for the jobs module. Every route is cron-facing and
// protected by the shared secret.
func RegisterRoutes(g *gin.RouterGroup, cfg *utils.Config) {
	protected := g.Group("/")
	protected.Use(CronAuthHandler(cfg))

	protected.POST("/scheduled/process", ProcessScheduled)
	protected.POST("/automation/comments/process", ProcessComments)
	protected.POST("/integrations/:provider/refresh-all", RefreshProvider)
}
