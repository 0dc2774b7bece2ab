package main

import (
	"log"
	"os"

	"github.com/faizanprofitpilot/zapsocial/internal/api"
	"github.com/faizanprofitpilot/zapsocial/internal/app"
	"github.com/faizanprofitpilot/zapsocial/pkg/utils"
)

// Start the API server with the background job schedule
func main() {
	// Find env file
	envFile := ".env"
	if os.Getenv("ENV_FILE") != "" {
		envFile = os.Getenv("ENV_FILE")
	}

	// Load global config
	cfg := utils.NewConfigFromEnv(envFile)

	// Compose the service graph
	application, err := app.New(cfg)
	if err != nil {
		log.Fatal("[API-MAIN]: Failed to initialize: ", err)
	}

	// Schedule background jobs unless this instance is API-only
	if cfg.GetWithDefault("ENABLE_CRON", "true") == "true" {
		for _, job := range application.Jobs(cfg) {
			if err := application.Runner.Register(job); err != nil {
				log.Fatal("[API-MAIN]: Failed to register job: ", err)
			}
		}
		application.Runner.Start()
		defer application.Runner.Stop()
	}

	// Start
	api.Start(cfg, application.Dependencies())
}
