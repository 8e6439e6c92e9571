package models

import "time"

// CheckpointStatus is the lifecycle of a job checkpoint
type CheckpointStatus string

const (
	CheckpointStatusRunning   CheckpointStatus = "RUNNING"
	CheckpointStatusCompleted CheckpointStatus = "COMPLETED"
)

// Checkpoint is the durable progress of one batch job.
// LastIndex is -1 until the first record completes.
type Checkpoint struct {
	JobName        string           `json:"job_name" db:"job_name"`
	LastKey        string           `json:"last_key" db:"last_key"`
	LastIndex      int              `json:"last_index" db:"last_index"`
	ProcessedCount int              `json:"processed_count" db:"processed_count"`
	Status         CheckpointStatus `json:"status" db:"status"`
	StartedAt      time.Time        `json:"started_at" db:"started_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
}

// NewCheckpoint returns a fresh RUNNING checkpoint for jobName
func NewCheckpoint(jobName string, now time.Time) *Checkpoint {
	return &Checkpoint{
		JobName:   jobName,
		LastIndex: -1,
		Status:    CheckpointStatusRunning,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// IsResumable reports whether a run can continue from this checkpoint
func (c *Checkpoint) IsResumable() bool {
	return c != nil && c.Status == CheckpointStatusRunning && c.LastIndex >= 0
}
