package models

import "time"

// ScheduledJob describes a recurring background job run by the scheduler.
type ScheduledJob struct {
	Name           string         `json:"name"`
	Slug           string         `json:"slug"`
	Handler        string         `json:"handler"`
	Schedule       string         `json:"schedule"`
	TimeoutSeconds int            `json:"timeout_seconds"`
	Config         map[string]any `json:"config,omitempty"`
	LastRunAt      *time.Time     `json:"last_run_at,omitempty"`
	LastError      string         `json:"last_error,omitempty"`
}

// Timeout returns the per-run timeout, defaulting to one minute.
func (j *ScheduledJob) Timeout() time.Duration {
	if j == nil || j.TimeoutSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(j.TimeoutSeconds) * time.Second
}
