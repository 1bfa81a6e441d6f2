package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"toolshare-backend/internal/config"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/repository"
	"toolshare-backend/internal/service"
	"toolshare-backend/internal/storage"
)

// Job names accepted by Run and by the cronjob -run-once flag.
const (
	JobSendReturnReminders     = "send-return-reminders"
	JobReportAvailabilityDrift = "report-availability-drift"
	JobExportSnapshot          = "export-snapshot"
	JobCheckStoreHealth        = "check-store-health"
	JobAll                     = "all"
)

// HealthPublisher is implemented by the gRPC server, which pings the store
// itself and publishes the result.
type HealthPublisher interface {
	CheckStore(ctx context.Context) error
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store    repository.Store
	services *Services
	blobs    storage.StorageInterface
	health   HealthPublisher
	config   *config.Config
	now      func() time.Time
	timeout  time.Duration
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Email service.EmailService
}

// NewJobRunner creates a new job runner with all dependencies. blobs may be
// nil when snapshot exports are not wanted.
func NewJobRunner(store repository.Store, services *Services, blobs storage.StorageInterface, cfg *config.Config) *JobRunner {
	return &JobRunner{
		store:    store,
		services: services,
		blobs:    blobs,
		config:   cfg,
		now:      time.Now,
		timeout:  5 * time.Minute,
	}
}

// WithHealth makes CheckStoreHealth publish through h.
func (jr *JobRunner) WithHealth(h HealthPublisher) *JobRunner {
	jr.health = h
	return jr
}

// WithClock replaces the wall clock, for tests.
func (jr *JobRunner) WithClock(now func() time.Time) *JobRunner {
	jr.now = now
	return jr
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

func (jr *JobRunner) jobs() map[string]func() error {
	return map[string]func() error{
		JobSendReturnReminders:     jr.SendReturnReminders,
		JobReportAvailabilityDrift: jr.ReportAvailabilityDrift,
		JobExportSnapshot:          jr.ExportSnapshot,
		JobCheckStoreHealth:        jr.CheckStoreHealth,
	}
}

// Names lists the runnable job names, sorted.
func (jr *JobRunner) Names() []string {
	var names []string
	for name := range jr.jobs() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes one job by name, or every job for JobAll.
func (jr *JobRunner) Run(name string) error {
	if name == JobAll {
		var firstErr error
		for _, n := range jr.Names() {
			if err := jr.jobs()[n](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	job, ok := jr.jobs()[name]
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return job()
}

// runWithRecovery wraps job execution with panic recovery and a deadline
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()
	ctx = logger.NewContext(ctx, "job", jobName)

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "Job panicked", "panic", r)
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
	}()

	logger.InfoContext(ctx, "Starting job")
	start := time.Now()
	if err = jr.refresh(ctx); err != nil {
		logger.ErrorContext(ctx, "Job failed", "error", err)
		return err
	}
	if err = jobFunc(ctx); err != nil {
		logger.ErrorContext(ctx, "Job failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return err
	}
	logger.InfoContext(ctx, "Job completed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// refresh pulls commits other processes made to a file backed store.
func (jr *JobRunner) refresh(ctx context.Context) error {
	if r, ok := jr.store.(interface{ Reload(context.Context) error }); ok {
		return r.Reload(ctx)
	}
	return nil
}
