// Package scheduler runs the gamification wall-clock jobs (window resets and
// challenge assignment) on cron schedules in the platform timezone.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"skaila.com/gamification/pkg/apperror"
)

// Job is a unit of scheduled work. An empty schedule registers the job for
// on-demand runs only.
type Job interface {
	GetName() string
	GetSchedule() string
	Execute(ctx context.Context) error
}

type Scheduler struct {
	cron   *cron.Cron
	jobs   []Job
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(loc *time.Location) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		jobs:   make([]Job, 0),
		ctx:    ctx,
		cancel: cancel,
	}
}

// RegisterJob adds a job and schedules it when it has a cron spec.
func (s *Scheduler) RegisterJob(job Job) error {
	schedule := job.GetSchedule()
	if schedule != "" {
		_, err := s.cron.AddFunc(schedule, func() { s.run(s.ctx, job) })
		if err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.GetName(), schedule, err)
		}
		log.Printf("📅 [%s] Scheduled with cron: %s", job.GetName(), schedule)
	} else {
		log.Printf("📝 [%s] Registered as on-demand job (no schedule)", job.GetName())
	}

	s.jobs = append(s.jobs, job)
	return nil
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	log.Printf("⏰ [%s] Starting job...", job.GetName())
	started := time.Now()
	if err := job.Execute(ctx); err != nil {
		log.Printf("❌ [%s] Job failed: %v", job.GetName(), err)
		return err
	}
	log.Printf("✅ [%s] Job completed in %s", job.GetName(), time.Since(started).Round(time.Millisecond))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("🚀 Scheduler started with %d registered jobs", len(s.jobs))
}

// Stop cancels running jobs and waits for them to return or for ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		log.Println("🛑 Scheduler stopped")
	case <-ctx.Done():
		log.Println("⚠️ Scheduler stop timed out with jobs still running")
	}
}

// RunJobByName runs a registered job immediately.
func (s *Scheduler) RunJobByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.GetName() == name {
			log.Printf("🎯 [%s] Running on-demand execution...", name)
			return s.run(ctx, job)
		}
	}
	return fmt.Errorf("%w: job %q is not registered", apperror.ErrNotFound, name)
}

func (s *Scheduler) GetRegisteredJobs() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.GetName()
	}
	return names
}
