package main

import (
	"flag"
	"log"
	"os"

	"github.com/faizanprofitpilot/zapsocial/internal/app"
	"github.com/faizanprofitpilot/zapsocial/pkg/utils"
)

// Run the batch jobs once and exit. Useful for external cron setups and for
// operating the pipelines by hand.
func main() {
	jobName := flag.String("job", "all", "job to run: scheduled-posts, comment-automation, token-sweep, or all")
	flag.Parse()

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
		log.Fatal("[JOBS-MAIN]: Failed to initialize: ", err)
	}

	ran := false
	for _, job := range application.Jobs(cfg) {
		if *jobName != "all" && job.Name != *jobName {
			continue
		}
		ran = true
		application.Runner.RunNow(job)
	}

	if !ran {
		log.Fatalf("[JOBS-MAIN]: Unknown job %q", *jobName)
	}
}
