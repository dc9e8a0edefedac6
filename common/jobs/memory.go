package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/distrodissect/dissector/common/logger"
	"github.com/distrodissect/dissector/common/queue"
)

// Queue is the subset of the message queue the memory runner needs
type Queue interface {
	Publish(ctx context.Context, topic string, key string, message []byte) error
	Subscribe(ctx context.Context, topic string, handler queue.MessageHandler) error
}

const memoryTopic = "jobs"

// MemoryRunner executes jobs in-process over a memory queue. Used by tests
// and single-process deployments where redis is not available.
type MemoryRunner struct {
	queue    Queue
	handlers map[Kind]Handler
	log      *logger.Logger

	mu       sync.Mutex
	statuses map[string]Status
}

// NewMemoryRunner creates an in-process runner. Register handlers before
// calling Start.
func NewMemoryRunner(q Queue, log *logger.Logger) *MemoryRunner {
	return &MemoryRunner{
		queue:    q,
		handlers: make(map[Kind]Handler),
		log:      log,
		statuses: make(map[string]Status),
	}
}

// Register installs the handler for a job kind
func (r *MemoryRunner) Register(kind Kind, handler Handler) {
	r.handlers[kind] = handler
}

// Start begins consuming submitted jobs
func (r *MemoryRunner) Start(ctx context.Context) error {
	return r.queue.Subscribe(ctx, memoryTopic, func(ctx context.Context, key string, value []byte) error {
		var job Job
		if err := json.Unmarshal(value, &job); err != nil {
			r.log.Error("failed to parse job", "error", err)
			return err
		}
		r.execute(ctx, job)
		return nil
	})
}

// Submit enqueues a job for in-process execution
func (r *MemoryRunner) Submit(ctx context.Context, job Job) error {
	if _, ok := r.handlers[job.Kind]; !ok {
		return fmt.Errorf("no handler for job kind %q", job.Kind)
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	r.setStatus(job.ID, StatusPending)
	if err := r.queue.Publish(ctx, memoryTopic, job.ID, payload); err != nil {
		r.mu.Lock()
		delete(r.statuses, job.ID)
		r.mu.Unlock()
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// Status reports the current status of a job
func (r *MemoryRunner) Status(_ context.Context, jobID string) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status, ok := r.statuses[jobID]
	if !ok {
		return StatusUnknown, nil
	}
	return status, nil
}

func (r *MemoryRunner) setStatus(jobID string, status Status) {
	r.mu.Lock()
	r.statuses[jobID] = status
	r.mu.Unlock()
}

func (r *MemoryRunner) execute(ctx context.Context, job Job) {
	handler := r.handlers[job.Kind]
	if handler == nil {
		r.setStatus(job.ID, StatusError)
		return
	}
	if err := handler(ctx, job); err != nil {
		r.log.Error("job failed", "job_id", job.ID, "kind", job.Kind, "error", err)
		r.setStatus(job.ID, StatusError)
		return
	}
	r.setStatus(job.ID, StatusDone)
}
