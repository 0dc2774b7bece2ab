// Package app composes the full service graph from configuration. Both the
// API server and the one-shot jobs binary boot through it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"

	"github.com/faizanprofitpilot/zapsocial/internal/api"
	"github.com/faizanprofitpilot/zapsocial/internal/automation"
	"github.com/faizanprofitpilot/zapsocial/internal/calllog"
	"github.com/faizanprofitpilot/zapsocial/internal/platforms"
	"github.com/faizanprofitpilot/zapsocial/internal/platforms/facebook"
	"github.com/faizanprofitpilot/zapsocial/internal/platforms/instagram"
	"github.com/faizanprofitpilot/zapsocial/internal/platforms/linkedin"
	"github.com/faizanprofitpilot/zapsocial/internal/publisher"
	"github.com/faizanprofitpilot/zapsocial/internal/runner"
	"github.com/faizanprofitpilot/zapsocial/internal/scheduler"
	"github.com/faizanprofitpilot/zapsocial/internal/stores/social"
	"github.com/faizanprofitpilot/zapsocial/internal/tokens"
	"github.com/faizanprofitpilot/zapsocial/pkg/pacer"
	"github.com/faizanprofitpilot/zapsocial/pkg/utils"
)

// App holds the composed service graph
type App struct {
	Log      *logrus.Logger
	Store    *social.Store
	Registry *platforms.Registry

	Orchestrator *publisher.Orchestrator
	Scheduler    *scheduler.Processor
	Automation   *automation.Engine
	Tokens       *tokens.Manager
	Runner       *runner.Runner
}

// New builds the service graph from configuration
func New(cfg *utils.Config) (*App, error) {
	log := newLogger(cfg)

	store, err := social.NewStore(databaseDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	recorder := calllog.NewStoreRecorder(log, store)

	fbAppID := cfg.Get("FACEBOOK_APP_ID")
	fbAppSecret := cfg.Get("FACEBOOK_APP_SECRET")
	registry := platforms.NewRegistry(
		facebook.NewClient(fbAppID, fbAppSecret, recorder),
		instagram.NewClient(fbAppID, fbAppSecret, recorder),
		linkedin.NewClient(cfg.Get("LINKEDIN_CLIENT_ID"), cfg.Get("LINKEDIN_CLIENT_SECRET"), recorder),
	)

	tokenManager := tokens.NewManager(store, registry, log)
	pace := pacer.New(cfg.GetDuration("PACER_INTERVAL", pacer.DefaultInterval))
	orchestrator := publisher.NewOrchestrator(store, registry, tokenManager, pace, log)
	sched := scheduler.NewProcessor(store, orchestrator, log)

	tones, err := automation.LoadTones()
	if err != nil {
		return nil, err
	}
	generator, err := automation.NewOpenAIGenerator(cfg.Get("OPENAI_API_KEY"), cfg.Get("OPENAI_MODEL"))
	if err != nil {
		return nil, fmt.Errorf("failed to create reply generator: %w", err)
	}
	engine := automation.NewEngine(store, registry, tokenManager, generator, tones, pace, log)

	return &App{
		Log:          log,
		Store:        store,
		Registry:     registry,
		Orchestrator: orchestrator,
		Scheduler:    sched,
		Automation:   engine,
		Tokens:       tokenManager,
		Runner:       runner.New(cfg.Get("REDIS_ADDRESS"), cfg.Get("REDIS_PASSWORD"), log),
	}, nil
}

// Dependencies adapts the graph for the API modules
func (a *App) Dependencies() *api.Dependencies {
	return &api.Dependencies{
		Store:        a.Store,
		Orchestrator: a.Orchestrator,
		Scheduler:    a.Scheduler,
		Automation:   a.Automation,
		Tokens:       a.Tokens,
	}
}

// Jobs returns the batch jobs with their configured cron schedules
func (a *App) Jobs(cfg *utils.Config) []runner.Job {
	jobs := []runner.Job{
		{
			Name: "scheduled-posts",
			Spec: cfg.GetWithDefault("SCHEDULE_CRON", "* * * * *"),
			Run:  a.runScheduled,
		},
		{
			Name: "comment-automation",
			Spec: cfg.GetWithDefault("AUTOMATION_CRON", "*/5 * * * *"),
			Run:  a.runAutomation,
		},
		{
			Name: "token-sweep",
			Spec: cfg.GetWithDefault("TOKEN_SWEEP_CRON", "0 3 * * *"),
			Run:  a.runTokenSweep,
		},
	}
	return jobs
}

func (a *App) runScheduled(ctx context.Context) error {
	_, err := a.Scheduler.ProcessDue(ctx)
	return err
}

func (a *App) runAutomation(ctx context.Context) error {
	_, err := a.Automation.Run(ctx)
	return err
}

// runTokenSweep sweeps every registered provider; one provider failing does
// not block the others
func (a *App) runTokenSweep(ctx context.Context) error {
	var firstErr error
	for _, provider := range a.Registry.Providers() {
		if _, err := a.Tokens.SweepProvider(ctx, provider); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// newLogger builds the process logger from configuration
func newLogger(cfg *utils.Config) *logrus.Logger {
	log := logrus.New()
	if cfg.GetWithDefault("LOG_FORMAT", "text") == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.GetWithDefault("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(level)
	}
	return log
}

// databaseDSN builds the MySQL DSN from configuration
func databaseDSN(cfg *utils.Config) string {
	dbConfig := mysql.Config{
		User:      cfg.Get("MYSQL_USER"),
		Passwd:    cfg.Get("MYSQL_PASSWORD"),
		Net:       "tcp",
		Addr:      fmt.Sprintf("%s:%s", cfg.GetWithDefault("MYSQL_HOST", "localhost"), cfg.GetWithDefault("MYSQL_PORT", "3306")),
		DBName:    cfg.Get("MYSQL_DATABASE"),
		ParseTime: true,
		Loc:       time.UTC,
	}
	return dbConfig.FormatDSN()
}
