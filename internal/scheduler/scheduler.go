package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"toolshare-backend/internal/jobs"
	"toolshare-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner. With no
// names every job is registered, otherwise only the named ones.
func NewScheduler(jobRunner *jobs.JobRunner, names ...string) (*Scheduler, error) {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(names); err != nil {
		return nil, err
	}
	return s, nil
}

// registerJobs registers the selected jobs with the cron scheduler
func (s *Scheduler) registerJobs(names []string) error {
	cfg := s.jobs.Config().Scheduler
	specs := map[string]string{
		jobs.JobSendReturnReminders:     cfg.SendReturnReminders,
		jobs.JobReportAvailabilityDrift: cfg.ReportAvailabilityDrift,
		jobs.JobExportSnapshot:          cfg.ExportSnapshot,
		jobs.JobCheckStoreHealth:        cfg.CheckStoreHealth,
	}
	if len(names) == 0 {
		names = s.jobs.Names()
	}

	for _, name := range names {
		spec, ok := specs[name]
		if !ok {
			return fmt.Errorf("no schedule for job %q", name)
		}
		name := name
		if _, err := s.cron.AddFunc(spec, func() { _ = s.jobs.Run(name) }); err != nil {
			logger.Error("Failed to register job", "job", name, "spec", spec, "error", err)
			return fmt.Errorf("register %s: %w", name, err)
		}
		logger.Debug("Registered job", "job", name, "spec", spec)
	}

	logger.Info("Cron jobs registered successfully", "count", len(names))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler is running
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}

// Entries exposes the registered schedule, next run first.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}
