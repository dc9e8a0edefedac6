package service

import (
	"context"
	"fmt"

	"github.com/distrodissect/dissector/common/diffgen"
	"github.com/distrodissect/dissector/common/jobs"
	"github.com/distrodissect/dissector/common/logger"
	"github.com/distrodissect/dissector/common/models"
	"github.com/distrodissect/dissector/common/repository"
)

// DifferenceDetail is one difference row with its file diff context
type DifferenceDetail struct {
	Difference       *models.Difference `json:"difference"`
	Description      string             `json:"description"`
	SourcesAvailable bool               `json:"sources_available"`
	FileDiff         *models.FileDiff   `json:"file_diff,omitempty"`
}

// FileDiffService drives file diff generation and serving
type FileDiffService struct {
	comparisons ComparisonStore
	fileDiffs   FileDiffStore
	runner      jobs.Runner
	diffs       DiffArtifacts
	log         *logger.Logger
}

// NewFileDiffService creates a new file diff service
func NewFileDiffService(comparisons ComparisonStore, fileDiffs FileDiffStore, runner jobs.Runner, diffs DiffArtifacts, log *logger.Logger) *FileDiffService {
	return &FileDiffService{
		comparisons: comparisons,
		fileDiffs:   fileDiffs,
		runner:      runner,
		diffs:       diffs,
		log:         log,
	}
}

// Request looks up or creates the file diff record for a difference and
// dispatches a generation job when the record is new or a previous run
// failed. Differences without source trees on both sides are rejected with
// diffgen.ErrNoSource before any record is written.
func (s *FileDiffService) Request(ctx context.Context, differenceID int64) (*models.FileDiff, error) {
	diff, err := s.comparisons.GetDifference(ctx, differenceID)
	if err != nil {
		return nil, err
	}

	available, err := s.diffs.SourcesAvailable(ctx, diff)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, fmt.Errorf("difference %d: %w", differenceID, diffgen.ErrNoSource)
	}

	fd, created, err := s.fileDiffs.GetOrCreate(ctx, differenceID)
	if err != nil {
		return nil, err
	}

	dispatch := created
	if !created && fd.Status == models.StatusFailed {
		claimed, err := s.fileDiffs.ClaimForRun(ctx, fd.ID)
		if err != nil {
			return nil, err
		}
		dispatch = claimed
	}

	if !dispatch {
		return fd, nil
	}
	fd.Status = models.StatusInProgress

	job := jobs.New(jobs.KindFileDiff, fd.ID)
	if err := s.runner.Submit(ctx, job); err != nil {
		if serr := s.fileDiffs.SetStatus(ctx, fd.ID, models.StatusFailed); serr != nil {
			s.log.Error("failed to revert file diff after dispatch failure",
				"file_diff_id", fd.ID, "error", serr)
		}
		fd.Status = models.StatusFailed
		return nil, fmt.Errorf("%w: %v", ErrDispatch, err)
	}

	s.log.Info("file diff requested",
		"file_diff_id", fd.ID,
		"difference_id", differenceID,
		"job_id", job.ID,
	)
	return fd, nil
}

// Read returns the state of a file diff and, once generation succeeded,
// the path of the cached artifact to stream
func (s *FileDiffService) Read(ctx context.Context, fileDiffID int64) (*models.FileDiff, string, error) {
	fd, err := s.fileDiffs.GetByID(ctx, fileDiffID)
	if err != nil {
		return nil, "", err
	}

	if fd.Status != models.StatusSucceeded {
		return fd, "", nil
	}

	diff, err := s.comparisons.GetDifference(ctx, fd.DifferenceID)
	if err != nil {
		return nil, "", err
	}

	return fd, s.diffs.ArtifactPath(diff.ComparisonID, fd.ID), nil
}

// Detail returns a difference with its availability flag and any existing
// file diff record
func (s *FileDiffService) Detail(ctx context.Context, differenceID int64) (*DifferenceDetail, error) {
	diff, err := s.comparisons.GetDifference(ctx, differenceID)
	if err != nil {
		return nil, err
	}

	available, err := s.diffs.SourcesAvailable(ctx, diff)
	if err != nil {
		return nil, err
	}

	detail := &DifferenceDetail{
		Difference:       diff,
		Description:      diff.Describe(),
		SourcesAvailable: available,
	}

	fd, err := s.fileDiffs.GetByDifference(ctx, differenceID)
	if err == nil {
		detail.FileDiff = fd
	} else if !repository.IsNotFound(err) {
		return nil, err
	}

	return detail, nil
}
