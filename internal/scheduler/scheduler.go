package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// NotifyJob runs one fetch-and-notify cycle.
type NotifyJob func(ctx context.Context) (int, error)

// Scheduler periodically triggers the notifier so new incidents reach the
// webhook without anyone hitting the trigger endpoint.
type Scheduler struct {
	scheduler *gocron.Scheduler
	job       NotifyJob
	interval  time.Duration
}

// New creates a Scheduler.
func New(interval time.Duration, job NotifyJob) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		job:       job,
		interval:  interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.job == nil {
		log.Println("scheduler: no notify job configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		sent, err := s.job(ctx)
		if err != nil {
			log.Printf("scheduler: notify run failed: %v", err)
			return
		}
		if sent > 0 {
			log.Printf("scheduler: reported %d new incident(s)", sent)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
