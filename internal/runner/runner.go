// Package runner schedules the background batch jobs with cron and guards
// each job with a lease so that only one process runs a given job at a time.
// With Redis configured the lease is a redislock held across replicas;
// without it, an in-process mutex still prevents overlapping runs.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultLeaseTTL bounds how long a crashed holder can block a job
const DefaultLeaseTTL = 5 * time.Minute

// Job is one scheduled batch job
type Job struct {
	// Name keys the lease; two processes registering the same name
	// exclude each other
	Name string

	// Spec is a cron expression
	Spec string

	Run func(ctx context.Context) error
}

// Runner owns the cron schedule and the per-job leases
type Runner struct {
	cron     *cron.Cron
	locker   *redislock.Client
	log      *logrus.Logger
	leaseTTL time.Duration

	mu    sync.Mutex
	local map[string]*sync.Mutex
}

// New creates a runner. A non-empty redisAddr enables cross-process leases;
// otherwise jobs are serialized within this process only.
func New(redisAddr, redisPassword string, log *logrus.Logger) *Runner {
	r := &Runner{
		cron:     cron.New(),
		log:      log,
		leaseTTL: DefaultLeaseTTL,
		local:    make(map[string]*sync.Mutex),
	}

	if redisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: redisPassword,
		})
		r.locker = redislock.New(client)
		log.WithField("addr", redisAddr).Info("job leases backed by redis")
	} else {
		log.Info("no redis configured, job leases are process local")
	}

	return r
}

// Register adds a job to the schedule
func (r *Runner) Register(job Job) error {
	if job.Name == "" || job.Spec == "" || job.Run == nil {
		return fmt.Errorf("job requires a name, a cron spec, and a run function")
	}

	_, err := r.cron.AddFunc(job.Spec, func() {
		r.runOnce(job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %q: %w", job.Name, err)
	}

	r.log.WithFields(logrus.Fields{
		"job":  job.Name,
		"spec": job.Spec,
	}).Info("job registered")
	return nil
}

// Start begins executing the schedule
func (r *Runner) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for running jobs to finish
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
}

// RunNow executes one job immediately under its lease, outside the schedule
func (r *Runner) RunNow(job Job) {
	r.runOnce(job)
}

func (r *Runner) runOnce(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), r.leaseTTL)
	defer cancel()

	release, ok := r.acquire(ctx, job.Name)
	if !ok {
		r.log.WithField("job", job.Name).Info("skipping run, lease held elsewhere")
		return
	}
	defer release()

	started := time.Now()
	if err := job.Run(ctx); err != nil {
		r.log.WithError(err).WithField("job", job.Name).Error("job run failed")
		return
	}
	r.log.WithFields(logrus.Fields{
		"job":      job.Name,
		"duration": time.Since(started).Round(time.Millisecond).String(),
	}).Info("job run complete")
}

// acquire takes the job's lease. The boolean is false when another holder
// already has it, which is a normal skip, not an error.
func (r *Runner) acquire(ctx context.Context, name string) (func(), bool) {
	if r.locker == nil {
		mu := r.localMutex(name)
		if !mu.TryLock() {
			return nil, false
		}
		return mu.Unlock, true
	}

	lock, err := r.locker.Obtain(ctx, "zapsocial:jobs:"+name, r.leaseTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false
	}
	if err != nil {
		r.log.WithError(err).WithField("job", name).Warn("lease acquisition failed, skipping run")
		return nil, false
	}
	return func() { _ = lock.Release(context.Background()) }, true
}

func (r *Runner) localMutex(name string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	mu, ok := r.local[name]
	if !ok {
		mu = &sync.Mutex{}
		r.local[name] = mu
	}
	return mu
}
