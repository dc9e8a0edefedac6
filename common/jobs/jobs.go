// Package jobs provides the async job runner used to push comparison and
// diff generation work off the request path. Dispatch failures surface
// synchronously from Submit; job-logic failures are recorded as job status
// and logged by the worker.
package jobs

import (
	"context"

	"github.com/google/uuid"
)

// Kind identifies the type of work a job carries
type Kind string

const (
	// KindCompare generates the difference set for a version comparison
	KindCompare Kind = "compare"
	// KindFileDiff generates the unified diff artifact for one difference
	KindFileDiff Kind = "filediff"
)

// Status is the observable state of a submitted job
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusError   Status = "error"
	// StatusUnknown means the runner has no record of the job, e.g. the
	// status key expired
	StatusUnknown Status = "unknown"
)

// Job is one unit of dispatched work
type Job struct {
	ID       string `json:"job_id"`
	Kind     Kind   `json:"kind"`
	TargetID int64  `json:"target_id"`
}

// New creates a job with a fresh ID
func New(kind Kind, targetID int64) Job {
	return Job{
		ID:       uuid.NewString(),
		Kind:     kind,
		TargetID: targetID,
	}
}

// Handler executes one job. A returned error marks the job status as error;
// the handler itself is responsible for any record-level status writes.
type Handler func(ctx context.Context, job Job) error

// Runner dispatches jobs and exposes their status for polling.
// At-least-once dispatch; no ordering guarantee between unrelated jobs.
type Runner interface {
	// Submit enqueues a job. An error means the job was NOT dispatched and
	// the caller must revert any record it flipped to in-progress.
	Submit(ctx context.Context, job Job) error
	// Status reports pending/done/error for a previously submitted job
	Status(ctx context.Context, jobID string) (Status, error)
}
