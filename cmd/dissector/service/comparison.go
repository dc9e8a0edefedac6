package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/distrodissect/dissector/common/jobs"
	"github.com/distrodissect/dissector/common/logger"
	"github.com/distrodissect/dissector/common/models"
)

// ErrDispatch marks a job that could not be handed to the runner. The
// record it targeted has been reverted to failed so a later request can
// retry.
var ErrDispatch = errors.New("job dispatch failed")

// ComparisonService drives the comparison lifecycle: lookup-or-create,
// dispatch to the worker, status reads and regeneration
type ComparisonService struct {
	branches    BranchStore
	comparisons ComparisonStore
	runner      jobs.Runner
	diffs       DiffArtifacts
	log         *logger.Logger
}

// NewComparisonService creates a new comparison service
func NewComparisonService(branches BranchStore, comparisons ComparisonStore, runner jobs.Runner, diffs DiffArtifacts, log *logger.Logger) *ComparisonService {
	return &ComparisonService{
		branches:    branches,
		comparisons: comparisons,
		runner:      runner,
		diffs:       diffs,
		log:         log,
	}
}

// Resolve maps two branch names to their records
func (s *ComparisonService) Resolve(ctx context.Context, fromName, toName string) (*models.Branch, *models.Branch, error) {
	from, err := s.branches.GetByName(ctx, fromName)
	if err != nil {
		return nil, nil, err
	}
	to, err := s.branches.GetByName(ctx, toName)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

// Request looks up or creates the comparison for a branch pair and
// dispatches a compare job when the row is new or a previous run failed.
// A row already in progress or succeeded is returned untouched, so
// concurrent requests collapse onto one run.
func (s *ComparisonService) Request(ctx context.Context, fromName, toName string) (*models.Comparison, error) {
	from, to, err := s.Resolve(ctx, fromName, toName)
	if err != nil {
		return nil, err
	}

	cmp, created, err := s.comparisons.GetOrCreate(ctx, from.ID, to.ID)
	if err != nil {
		return nil, err
	}

	dispatch := created
	if !created && cmp.Status == models.StatusFailed {
		claimed, err := s.comparisons.ClaimForRun(ctx, cmp.ID)
		if err != nil {
			return nil, err
		}
		dispatch = claimed
	}

	if !dispatch {
		return cmp, nil
	}
	cmp.Status = models.StatusInProgress

	job := jobs.New(jobs.KindCompare, cmp.ID)
	if err := s.runner.Submit(ctx, job); err != nil {
		// Revert so the next request can try again
		if serr := s.comparisons.SetStatus(ctx, cmp.ID, models.StatusFailed); serr != nil {
			s.log.Error("failed to revert comparison after dispatch failure",
				"comparison_id", cmp.ID, "error", serr)
		}
		cmp.Status = models.StatusFailed
		return nil, fmt.Errorf("%w: %v", ErrDispatch, err)
	}

	s.log.Info("comparison requested",
		"comparison_id", cmp.ID,
		"from", fromName,
		"to", toName,
		"job_id", job.ID,
	)
	return cmp, nil
}

// Get returns the comparison for a branch pair along with its difference
// rows once the run has succeeded
func (s *ComparisonService) Get(ctx context.Context, fromName, toName string) (*models.Comparison, []*models.Difference, error) {
	from, to, err := s.Resolve(ctx, fromName, toName)
	if err != nil {
		return nil, nil, err
	}

	cmp, err := s.comparisons.GetByBranches(ctx, from.ID, to.ID)
	if err != nil {
		return nil, nil, err
	}

	if cmp.Status != models.StatusSucceeded {
		return cmp, nil, nil
	}

	diffs, err := s.comparisons.ListDifferences(ctx, cmp.ID)
	if err != nil {
		return nil, nil, err
	}
	return cmp, diffs, nil
}

// Regenerate removes the comparison row so the next request starts a fresh
// run. Difference and file diff rows cascade in the database; cached diff
// artifacts are unlinked here.
func (s *ComparisonService) Regenerate(ctx context.Context, fromName, toName string) error {
	from, to, err := s.Resolve(ctx, fromName, toName)
	if err != nil {
		return err
	}

	cmp, err := s.comparisons.GetByBranches(ctx, from.ID, to.ID)
	if err != nil {
		return err
	}

	if err := s.comparisons.Delete(ctx, cmp.ID); err != nil {
		return err
	}

	if err := s.diffs.RemoveComparisonArtifacts(cmp.ID); err != nil {
		s.log.Error("failed to remove diff artifacts",
			"comparison_id", cmp.ID, "error", err)
	}

	s.log.Info("comparison regenerated", "comparison_id", cmp.ID, "from", fromName, "to", toName)
	return nil
}
