package publish_module

import (
	"github.com/gin-gonic/gin"
)

// Register routes for the publish module
func RegisterRoutes(g *gin.RouterGroup) {
	g.POST("/publish", PublishContent)
}
