package model

import "time"

// JobKind names a background job.
type JobKind string

const (
	// JobReconcileMilestone re-subscribes milestone subscribers to its current goals,
	// or unsubscribes them if the milestone was deleted.
	JobReconcileMilestone JobKind = "reconcile-milestone"
)

// Job is a unit of background work carried by the queue.
type Job struct {
	JobID       string    `json:"jobID"`
	Kind        JobKind   `json:"kind"`
	MilestoneID string    `json:"milestoneID,omitempty"`
	EnqueuedAt  time.Time `json:"enqueuedAt"`
}
