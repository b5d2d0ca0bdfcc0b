package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/caveo/internal/common"
	"github.com/ternarybob/caveo/internal/interfaces"
)

// Well-known job names registered by the app.
const (
	JobEvaluate        = "evaluate"
	JobExportDashboard = "export-dashboard"
)

// jobEntry represents a registered job with metadata
type jobEntry struct {
	name        string
	schedule    string
	description string
	handler     func() error
	enabled     bool
	cronID      cron.EntryID
	lastRun     *time.Time
	isRunning   bool
	lastError   string
}

// Service implements SchedulerService interface
type Service struct {
	cron     *cron.Cron
	logger   arbor.ILogger
	jobMu    sync.Mutex // Protects jobs map and running flag
	globalMu sync.Mutex // Prevents concurrent job execution
	jobs     map[string]*jobEntry
	running  bool
}

// NewService creates a new scheduler service
func NewService(logger arbor.ILogger) interfaces.SchedulerService {
	return &Service{
		cron:   cron.New(),
		logger: logger,
		jobs:   make(map[string]*jobEntry),
	}
}

// Start begins the scheduler. Jobs carry their own cron schedules and
// may be registered before or after Start; registration while running
// takes effect immediately.
func (s *Service) Start() error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Int("job_count", len(s.jobs)).
		Msg("Scheduler started")

	return nil
}

// Stop halts the scheduler and waits for in-flight jobs to finish, up
// to a shutdown timeout.
func (s *Service) Stop() error {
	s.jobMu.Lock()
	if !s.running {
		s.jobMu.Unlock()
		return nil
	}
	s.running = false
	s.jobMu.Unlock()

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Jobs did not finish within shutdown timeout")
	}

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// TriggerEvaluationNow manually triggers the evaluation job out of
// schedule. The run happens in the background; overlap with an
// in-flight evaluation is skipped, not queued.
func (s *Service) TriggerEvaluationNow() error {
	s.jobMu.Lock()
	_, exists := s.jobs[JobEvaluate]
	s.jobMu.Unlock()

	if !exists {
		return fmt.Errorf("job %s not registered", JobEvaluate)
	}

	s.logger.Info().Msg("Manual evaluation trigger requested")
	go s.executeJob(JobEvaluate)

	return nil
}

// IsRunning returns true if scheduler is active
func (s *Service) IsRunning() bool {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	return s.running
}

// RegisterJob registers a new job with the scheduler
func (s *Service) RegisterJob(name string, schedule string, description string, handler func() error) error {
	if err := common.ValidateSchedule(schedule); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}

	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	entry := &jobEntry{
		name:        name,
		schedule:    schedule,
		description: description,
		handler:     handler,
		enabled:     true,
	}

	cronID, err := s.cron.AddFunc(schedule, func() {
		s.executeJob(name)
	})
	if err != nil {
		return fmt.Errorf("failed to add job to cron: %w", err)
	}

	entry.cronID = cronID
	s.jobs[name] = entry

	s.logger.Info().
		Str("job_name", name).
		Str("schedule", schedule).
		Msg("Job registered")

	return nil
}

// EnableJob enables a disabled job
func (s *Service) EnableJob(name string) error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	entry, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	if entry.enabled {
		return nil // Already enabled
	}

	cronID, err := s.cron.AddFunc(entry.schedule, func() {
		s.executeJob(name)
	})
	if err != nil {
		return fmt.Errorf("failed to add job to cron: %w", err)
	}

	entry.cronID = cronID
	entry.enabled = true

	s.logger.Info().
		Str("job_name", name).
		Msg("Job enabled")

	return nil
}

// DisableJob disables an enabled job
func (s *Service) DisableJob(name string) error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	entry, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	if !entry.enabled {
		return nil // Already disabled
	}

	s.cron.Remove(entry.cronID)
	entry.enabled = false

	s.logger.Info().
		Str("job_name", name).
		Msg("Job disabled")

	return nil
}

// GetJobStatus returns the status of a specific job
func (s *Service) GetJobStatus(name string) (*interfaces.JobStatus, error) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	entry, exists := s.jobs[name]
	if !exists {
		return nil, fmt.Errorf("job %s not found", name)
	}

	// Get next run time from cron
	var nextRun *time.Time
	if entry.enabled {
		for _, cronEntry := range s.cron.Entries() {
			if cronEntry.ID == entry.cronID {
				next := cronEntry.Next
				nextRun = &next
				break
			}
		}
	}

	return &interfaces.JobStatus{
		Name:        entry.name,
		Enabled:     entry.enabled,
		Schedule:    entry.schedule,
		Description: entry.description,
		LastRun:     entry.lastRun,
		NextRun:     nextRun,
		IsRunning:   entry.isRunning,
		LastError:   entry.lastError,
	}, nil
}

// GetAllJobStatuses returns all job statuses
func (s *Service) GetAllJobStatuses() map[string]*interfaces.JobStatus {
	// Copy job names while holding lock to avoid concurrent map iteration
	s.jobMu.Lock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	s.jobMu.Unlock()

	statuses := make(map[string]*interfaces.JobStatus)
	for _, name := range names {
		status, err := s.GetJobStatus(name)
		if err == nil {
			statuses[name] = status
		}
	}

	return statuses
}

// executeJob wraps job execution with panic recovery, same-job overlap
// skip, and cross-job serialization so evaluate and export never
// interleave.
func (s *Service) executeJob(name string) {
	defer func() {
		if r := recover(); r != nil {
			stackTrace := common.GetStackTrace()

			s.logger.Error().
				Str("job_name", name).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", stackTrace).
				Msg("PANIC RECOVERED in job execution - writing crash file")

			// Persist the report; the scheduler itself keeps running
			common.WriteCrashFile(r, stackTrace)

			s.jobMu.Lock()
			if entry, exists := s.jobs[name]; exists {
				entry.isRunning = false
				entry.lastError = fmt.Sprintf("panic: %v", r)
			}
			s.jobMu.Unlock()
		}
	}()

	// Same-job overlap skip
	s.jobMu.Lock()
	entry, exists := s.jobs[name]
	if !exists {
		s.jobMu.Unlock()
		s.logger.Warn().
			Str("job_name", name).
			Msg("Job not found")
		return
	}
	if entry.isRunning {
		s.jobMu.Unlock()
		s.logger.Info().
			Str("job_name", name).
			Msg("Job already running, skipping this cycle")
		return
	}
	s.jobMu.Unlock()

	// Serialize with other jobs
	s.globalMu.Lock()
	defer s.globalMu.Unlock()

	s.logger.Info().
		Str("job_name", name).
		Msg("🚀 Job execution started")

	s.jobMu.Lock()
	entry.isRunning = true
	handler := entry.handler
	s.jobMu.Unlock()

	started := time.Now()
	err := handler()

	completionTime := time.Now()
	s.jobMu.Lock()
	entry.isRunning = false
	entry.lastRun = &completionTime
	if err != nil {
		entry.lastError = err.Error()
	} else {
		entry.lastError = ""
	}
	s.jobMu.Unlock()

	if err != nil {
		s.logger.Error().
			Str("job_name", name).
			Err(err).
			Dur("duration", time.Since(started)).
			Msg("❌ Job execution failed")
	} else {
		s.logger.Info().
			Str("job_name", name).
			Dur("duration", time.Since(started)).
			Msg("✅ Job execution completed successfully")
	}
}
