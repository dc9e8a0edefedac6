package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/distrodissect/dissector/common/logger"
)

// RedisRunner dispatches jobs through a redis list and keeps job status in
// string keys so any process can poll it.
type RedisRunner struct {
	redis     *redis.Client
	queueName string
	statusTTL time.Duration
	log       *logger.Logger
}

// NewRedisRunner creates a runner backed by the given redis client
func NewRedisRunner(client *redis.Client, queueName string, statusTTL time.Duration, log *logger.Logger) *RedisRunner {
	return &RedisRunner{
		redis:     client,
		queueName: queueName,
		statusTTL: statusTTL,
		log:       log,
	}
}

func statusKey(jobID string) string {
	return "job:" + jobID + ":status"
}

// Submit pushes the job onto the queue. The status key is written first so
// a worker picking the job up immediately never races a missing key.
func (r *RedisRunner) Submit(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	if err := r.redis.Set(ctx, statusKey(job.ID), string(StatusPending), r.statusTTL).Err(); err != nil {
		return fmt.Errorf("set job status: %w", err)
	}

	if err := r.redis.RPush(ctx, r.queueName, payload).Err(); err != nil {
		// Best effort: don't leave a pending status behind for a job that
		// was never queued
		r.redis.Del(ctx, statusKey(job.ID))
		return fmt.Errorf("enqueue job: %w", err)
	}

	r.log.Info("job submitted", "job_id", job.ID, "kind", job.Kind, "target_id", job.TargetID)
	return nil
}

// Status reports the current status of a job
func (r *RedisRunner) Status(ctx context.Context, jobID string) (Status, error) {
	val, err := r.redis.Get(ctx, statusKey(jobID)).Result()
	if err == redis.Nil {
		return StatusUnknown, nil
	}
	if err != nil {
		return StatusUnknown, fmt.Errorf("get job status: %w", err)
	}
	return Status(val), nil
}

func (r *RedisRunner) setStatus(ctx context.Context, jobID string, status Status) {
	if err := r.redis.Set(ctx, statusKey(jobID), string(status), r.statusTTL).Err(); err != nil {
		r.log.Error("failed to record job status", "job_id", jobID, "status", status, "error", err)
	}
}

// Worker consumes jobs from the queue and runs registered handlers
type Worker struct {
	runner      *RedisRunner
	pollTimeout time.Duration
	handlers    map[Kind]Handler
	log         *logger.Logger
}

// NewWorker creates a worker over the runner's queue
func NewWorker(runner *RedisRunner, pollTimeout time.Duration, log *logger.Logger) *Worker {
	return &Worker{
		runner:      runner,
		pollTimeout: pollTimeout,
		handlers:    make(map[Kind]Handler),
		log:         log,
	}
}

// Register installs the handler for a job kind
func (w *Worker) Register(kind Kind, handler Handler) {
	w.handlers[kind] = handler
}

// Run blocks consuming jobs until the context is cancelled
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker starting", "queue", w.runner.queueName)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker shutting down")
			return ctx.Err()
		default:
			result := w.runner.redis.BLPop(ctx, w.pollTimeout, w.runner.queueName)
			if result.Err() == redis.Nil {
				// Timeout, continue loop
				continue
			}
			if result.Err() != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.log.Error("failed to read job", "error", result.Err())
				continue
			}

			// result.Val()[1] contains the JSON payload
			if len(result.Val()) < 2 {
				w.log.Error("invalid job payload format")
				continue
			}

			var job Job
			if err := json.Unmarshal([]byte(result.Val()[1]), &job); err != nil {
				w.log.Error("failed to parse job", "error", err)
				continue
			}

			w.execute(ctx, job)
		}
	}
}

func (w *Worker) execute(ctx context.Context, job Job) {
	log := w.log.WithJobID(job.ID)

	handler, ok := w.handlers[job.Kind]
	if !ok {
		log.Error("no handler for job kind", "kind", job.Kind)
		w.runner.setStatus(ctx, job.ID, StatusError)
		return
	}

	log.Info("job started", "kind", job.Kind, "target_id", job.TargetID)
	if err := handler(ctx, job); err != nil {
		log.Error("job failed", "kind", job.Kind, "target_id", job.TargetID, "error", err)
		w.runner.setStatus(ctx, job.ID, StatusError)
		return
	}

	log.Info("job completed", "kind", job.Kind, "target_id", job.TargetID)
	w.runner.setStatus(ctx, job.ID, StatusDone)
}
