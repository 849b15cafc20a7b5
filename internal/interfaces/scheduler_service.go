package interfaces

import "time"

// JobStatus represents the current status of a scheduled job
type JobStatus struct {
	Name      string
	Schedule  string
	LastRun   *time.Time
	NextRun   *time.Time
	IsRunning bool
	Runs      int
	Skipped   int // triggers dropped because the previous run was still active
	LastError string
}

// SchedulerService manages cron-based scheduling
type SchedulerService interface {
	// RegisterJob registers a handler under a cron expression
	RegisterJob(name string, schedule string, handler func() error) error

	// Start the scheduler
	Start() error

	// Stop the scheduler and wait for running handlers
	Stop() error

	// IsRunning returns true if scheduler is active
	IsRunning() bool

	// GetJobStatus returns the status of a specific job
	GetJobStatus(name string) (*JobStatus, error)
}
