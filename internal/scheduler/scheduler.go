package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// CronScheduler runs recurring jobs on a robfig/cron instance.
type CronScheduler struct {
	Cron *cron.Cron
}

// NewScheduler creates a new CronScheduler. Job panics are recovered and logged.
func NewScheduler() *CronScheduler {
	return &CronScheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.PrintfLogger(log.Default()))),
		),
	}
}

// Start starts the cron scheduler.
func (s *CronScheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits up to timeout for running jobs.
func (s *CronScheduler) Stop(timeout time.Duration) {
	ctx := s.Cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(timeout):
		log.Printf("[WARN] scheduler stop: jobs still running after %v", timeout)
	}
	log.Println("[INFO] scheduler stopped")
}

// Every registers job on a constant-delay schedule. cron rounds intervals to
// whole seconds with a one second minimum. The returned func removes the entry.
func (s *CronScheduler) Every(interval time.Duration, job func()) (func(), error) {
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %v", interval)
	}
	id := s.Cron.Schedule(cron.Every(interval), cron.FuncJob(job))
	return func() { s.Cron.Remove(id) }, nil
}

// Entries returns the number of registered entries.
func (s *CronScheduler) Entries() int {
	return len(s.Cron.Entries())
}
