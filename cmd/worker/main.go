package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/distrodissect/dissector/common/bootstrap"
	"github.com/distrodissect/dissector/common/compare"
	"github.com/distrodissect/dissector/common/db"
	"github.com/distrodissect/dissector/common/diffgen"
	"github.com/distrodissect/dissector/common/jobs"
	"github.com/distrodissect/dissector/common/repository"
	"github.com/distrodissect/dissector/common/server"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bootstrap service components
	components, err := bootstrap.Setup(ctx, "worker",
		bootstrap.WithDBInitHook(func(database *db.DB) error {
			return database.InitSchema(ctx)
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup service: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	cfg := components.Config
	log := components.Logger

	if components.RedisRaw == nil {
		log.Error("worker requires a redis connection")
		os.Exit(1)
	}

	// Build the generators over one shared store
	store := repository.NewStore(components.DB)
	compareGen := compare.NewGenerator(store, store, log)
	diffGen := diffgen.NewGenerator(store, cfg.Paths.SourceDir, cfg.Paths.PatchDir, log)

	// Wire job handlers onto the queue consumer
	runner := jobs.NewRedisRunner(components.RedisRaw, cfg.Jobs.QueueName, cfg.Jobs.StatusTTL, log)
	worker := jobs.NewWorker(runner, cfg.Jobs.PollTimeout, log)
	worker.Register(jobs.KindCompare, func(ctx context.Context, job jobs.Job) error {
		return compareGen.Run(ctx, job.TargetID)
	})
	worker.Register(jobs.KindFileDiff, func(ctx context.Context, job jobs.Job) error {
		return diffGen.Run(ctx, job.TargetID)
	})

	// Start worker loop in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := worker.Run(ctx); err != nil && err != context.Canceled {
			errChan <- fmt.Errorf("worker error: %w", err)
		}
	}()

	// Health endpoint
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", server.HealthHandler(components.Health))
		srv := server.New("worker health", cfg.Service.Port, mux, log)
		if err := srv.Start(); err != nil {
			log.Error("health server error", "error", err)
		}
	}()

	log.Info("worker started", "queue", cfg.Jobs.QueueName)

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Error("worker failed", "error", err)
		os.Exit(1)
	case sig := <-sigChan:
		log.Info("received shutdown signal", "signal", sig)
		cancel()
	}

	log.Info("worker shutting down gracefully")
}
