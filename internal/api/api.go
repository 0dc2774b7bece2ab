package api

import (
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	health_module "github.com/faizanprofitpilot/zapsocial/internal/api/modules/health"
	jobs_module "github.com/faizanprofitpilot/zapsocial/internal/api/modules/jobs"
	publish_module "github.com/faizanprofitpilot/zapsocial/internal/api/modules/publish"
	webhooks_module "github.com/faizanprofitpilot/zapsocial/internal/api/modules/webhooks"
	"github.com/faizanprofitpilot/zapsocial/internal/automation"
	"github.com/faizanprofitpilot/zapsocial/internal/publisher"
	"github.com/faizanprofitpilot/zapsocial/internal/scheduler"
	"github.com/faizanprofitpilot/zapsocial/internal/stores/social"
	"github.com/faizanprofitpilot/zapsocial/internal/tokens"
	"github.com/faizanprofitpilot/zapsocial/pkg/utils"
)

// Dependencies carries the constructed services the API modules operate on
type Dependencies struct {
	Store        *social.Store
	Orchestrator *publisher.Orchestrator
	Scheduler    *scheduler.Processor
	Automation   *automation.Engine
	Tokens       *tokens.Manager
}

// Start configures the gin engine, registers all modules, and serves. Blocks
// until the server exits.
func Start(cfg *utils.Config, deps *Dependencies) {
	// Initialized configuration settings
	port := cfg.GetWithDefault("API_PORT", "8080")

	// Add app level settings/routes
	engine := gin.Default()

	// Add trusted proxies
	engine.SetTrustedProxies(nil)

	// Add CORS using gin-contrib/cors (https://github.com/gin-contrib/cors for documentation)
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.GetWithDefault("CORS_ALLOWED_ORIGINS", "*"), ","),
		AllowMethods:     []string{"OPTIONS", "GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Base group '/api' for all API routes
	baseGroup := engine.Group("/api")

	// Adding custom modules
	health_module.RegisterRoutes(baseGroup)

	publish_module.RegisterRoutes(baseGroup)
	publish_module.Init(deps.Orchestrator)

	jobs_module.RegisterRoutes(baseGroup, cfg)
	jobs_module.Init(deps.Scheduler, deps.Automation, deps.Tokens)

	webhooks_module.RegisterRoutes(baseGroup)
	webhooks_module.Init(cfg, deps.Store)

	// Then after performing initial setup, start the server
	if err := engine.Run(":" + port); err != nil {
		log.Fatal("[API-MAIN]: Failed to start server: ", err)
	}
}
