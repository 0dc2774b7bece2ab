package health

import (
	"github.com/gin-gonic/gin"

	"github.com/faizanprofitpilot/zapsocial/pkg/sdk"
)

// RegisterRoutes registers the routes for the health module
func RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/health", getStatus)
}

// getStatus handles GET requests for the service health check
func getStatus(c *gin.Context) {
	c.JSON(sdk.NewSuccess("OK").AsGinResponse())
}
