package container

import (
	"context"
	"fmt"

	"github.com/distrodissect/dissector/cmd/dissector/service"
	"github.com/distrodissect/dissector/common/bootstrap"
	"github.com/distrodissect/dissector/common/compare"
	"github.com/distrodissect/dissector/common/diffgen"
	"github.com/distrodissect/dissector/common/jobs"
	"github.com/distrodissect/dissector/common/queue"
	"github.com/distrodissect/dissector/common/ratelimit"
	"github.com/distrodissect/dissector/common/repository"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	Components *bootstrap.Components
	Store      *repository.Store
	Runner     jobs.Runner
	DiffGen    *diffgen.Generator
	// Limiter is nil when running without redis; routes then skip the
	// rate limit middleware
	Limiter *ratelimit.RateLimiter

	ComparisonService *service.ComparisonService
	FileDiffService   *service.FileDiffService
}

// NewContainer initializes all services and repositories once
func NewContainer(ctx context.Context, components *bootstrap.Components) (*Container, error) {
	cfg := components.Config
	log := components.Logger

	store := repository.NewStore(components.DB)
	diffGen := diffgen.NewGenerator(store, cfg.Paths.SourceDir, cfg.Paths.PatchDir, log)

	runner, err := buildRunner(ctx, components, store, diffGen)
	if err != nil {
		return nil, err
	}

	var limiter *ratelimit.RateLimiter
	if components.RedisRaw != nil {
		limiter = ratelimit.NewRateLimiter(components.RedisRaw, log)
	}

	return &Container{
		Components:        components,
		Store:             store,
		Runner:            runner,
		DiffGen:           diffGen,
		Limiter:           limiter,
		ComparisonService: service.NewComparisonService(store.Branches, store.Comparisons, runner, diffGen, log),
		FileDiffService:   service.NewFileDiffService(store.Comparisons, store.FileDiffs, runner, diffGen, log),
	}, nil
}

// buildRunner selects the job runner backend. The redis runner only
// dispatches; execution happens in the worker service. The memory runner
// executes in-process and exists for single-process setups and tests.
func buildRunner(ctx context.Context, components *bootstrap.Components, store *repository.Store, diffGen *diffgen.Generator) (jobs.Runner, error) {
	cfg := components.Config
	log := components.Logger

	switch cfg.Jobs.Type {
	case "redis":
		if components.RedisRaw == nil {
			return nil, fmt.Errorf("redis job runner requires a redis connection")
		}
		return jobs.NewRedisRunner(components.RedisRaw, cfg.Jobs.QueueName, cfg.Jobs.StatusTTL, log), nil

	case "memory":
		compareGen := compare.NewGenerator(store, store, log)
		mem := jobs.NewMemoryRunner(queue.NewMemoryQueue(log), log)
		mem.Register(jobs.KindCompare, func(ctx context.Context, job jobs.Job) error {
			return compareGen.Run(ctx, job.TargetID)
		})
		mem.Register(jobs.KindFileDiff, func(ctx context.Context, job jobs.Job) error {
			return diffGen.Run(ctx, job.TargetID)
		})
		if err := mem.Start(ctx); err != nil {
			return nil, fmt.Errorf("start memory job runner: %w", err)
		}
		return mem, nil

	default:
		return nil, fmt.Errorf("unknown job runner type: %s", cfg.Jobs.Type)
	}
}
