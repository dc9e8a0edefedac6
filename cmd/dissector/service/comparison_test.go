package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distrodissect/dissector/common/jobs"
	"github.com/distrodissect/dissector/common/logger"
	"github.com/distrodissect/dissector/common/models"
	"github.com/distrodissect/dissector/common/repository"
)

type fakeBranches struct {
	byName map[string]*models.Branch
}

func (f *fakeBranches) GetByName(_ context.Context, name string) (*models.Branch, error) {
	b, ok := f.byName[name]
	if !ok {
		return nil, fmt.Errorf("branch %q: %w", name, repository.ErrNotFound)
	}
	return b, nil
}

type fakeComparisons struct {
	cmp     *models.Comparison
	created bool
	claim   bool

	claimCalls   int
	statusWrites []models.Status
	deleted      []int64
	differences  map[int64]*models.Difference
	listed       []*models.Difference
}

func (f *fakeComparisons) GetOrCreate(_ context.Context, fromBranchID, toBranchID int64) (*models.Comparison, bool, error) {
	c := *f.cmp
	return &c, f.created, nil
}

func (f *fakeComparisons) GetByBranches(_ context.Context, fromBranchID, toBranchID int64) (*models.Comparison, error) {
	c := *f.cmp
	return &c, nil
}

func (f *fakeComparisons) ClaimForRun(_ context.Context, id int64) (bool, error) {
	f.claimCalls++
	return f.claim, nil
}

func (f *fakeComparisons) SetStatus(_ context.Context, id int64, status models.Status) error {
	f.statusWrites = append(f.statusWrites, status)
	return nil
}

func (f *fakeComparisons) ListDifferences(_ context.Context, comparisonID int64) ([]*models.Difference, error) {
	return f.listed, nil
}

func (f *fakeComparisons) GetDifference(_ context.Context, id int64) (*models.Difference, error) {
	d, ok := f.differences[id]
	if !ok {
		return nil, fmt.Errorf("difference %d: %w", id, repository.ErrNotFound)
	}
	return d, nil
}

func (f *fakeComparisons) Delete(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeRunner struct {
	submitted []jobs.Job
	err       error
}

func (f *fakeRunner) Submit(_ context.Context, job jobs.Job) error {
	if f.err != nil {
		return f.err
	}
	f.submitted = append(f.submitted, job)
	return nil
}

func (f *fakeRunner) Status(_ context.Context, jobID string) (jobs.Status, error) {
	return jobs.StatusUnknown, nil
}

type fakeArtifacts struct {
	available bool
	removed   []int64
}

func (f *fakeArtifacts) SourcesAvailable(_ context.Context, diff *models.Difference) (bool, error) {
	return f.available, nil
}

func (f *fakeArtifacts) ArtifactPath(comparisonID, fileDiffID int64) string {
	return fmt.Sprintf("/artifacts/%d/%d.diff", comparisonID, fileDiffID)
}

func (f *fakeArtifacts) RemoveComparisonArtifacts(comparisonID int64) error {
	f.removed = append(f.removed, comparisonID)
	return nil
}

func testBranches() *fakeBranches {
	return &fakeBranches{byName: map[string]*models.Branch{
		"scarthgap": {ID: 1, Name: "scarthgap", Comparison: true},
		"styhead":   {ID: 2, Name: "styhead", Comparison: true},
	}}
}

func newComparisonFixture(cmp *models.Comparison, created, claim bool, runner *fakeRunner) (*ComparisonService, *fakeComparisons, *fakeArtifacts) {
	comparisons := &fakeComparisons{cmp: cmp, created: created, claim: claim}
	artifacts := &fakeArtifacts{available: true}
	svc := NewComparisonService(testBranches(), comparisons, runner, artifacts, logger.Discard())
	return svc, comparisons, artifacts
}

func TestComparisonService_RequestNew(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{}
	cmp := &models.Comparison{ID: 10, FromBranchID: 1, ToBranchID: 2, Status: models.StatusInProgress}
	svc, comparisons, _ := newComparisonFixture(cmp, true, false, runner)

	got, err := svc.Request(ctx, "scarthgap", "styhead")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)

	require.Len(t, runner.submitted, 1)
	assert.Equal(t, jobs.KindCompare, runner.submitted[0].Kind)
	assert.Equal(t, int64(10), runner.submitted[0].TargetID)
	assert.Empty(t, comparisons.statusWrites)
}

func TestComparisonService_RequestExistingRun(t *testing.T) {
	for _, status := range []models.Status{models.StatusInProgress, models.StatusSucceeded} {
		t.Run(status.Label(), func(t *testing.T) {
			ctx := context.Background()
			runner := &fakeRunner{}
			cmp := &models.Comparison{ID: 10, FromBranchID: 1, ToBranchID: 2, Status: status}
			svc, comparisons, _ := newComparisonFixture(cmp, false, false, runner)

			got, err := svc.Request(ctx, "scarthgap", "styhead")
			require.NoError(t, err)
			assert.Equal(t, status, got.Status)

			// The existing run wins; nothing is claimed or dispatched
			assert.Empty(t, runner.submitted)
			assert.Zero(t, comparisons.claimCalls)
		})
	}
}

func TestComparisonService_RequestFailedRetry(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{}
	cmp := &models.Comparison{ID: 10, FromBranchID: 1, ToBranchID: 2, Status: models.StatusFailed}
	svc, comparisons, _ := newComparisonFixture(cmp, false, true, runner)

	got, err := svc.Request(ctx, "scarthgap", "styhead")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)
	assert.Equal(t, 1, comparisons.claimCalls)
	require.Len(t, runner.submitted, 1)
}

func TestComparisonService_RequestClaimLost(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{}
	cmp := &models.Comparison{ID: 10, FromBranchID: 1, ToBranchID: 2, Status: models.StatusFailed}
	svc, comparisons, _ := newComparisonFixture(cmp, false, false, runner)

	_, err := svc.Request(ctx, "scarthgap", "styhead")
	require.NoError(t, err)

	// A concurrent request claimed the retry first
	assert.Equal(t, 1, comparisons.claimCalls)
	assert.Empty(t, runner.submitted)
}

func TestComparisonService_RequestDispatchFailure(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{err: errors.New("queue full")}
	cmp := &models.Comparison{ID: 10, FromBranchID: 1, ToBranchID: 2, Status: models.StatusInProgress}
	svc, comparisons, _ := newComparisonFixture(cmp, true, false, runner)

	_, err := svc.Request(ctx, "scarthgap", "styhead")
	require.ErrorIs(t, err, ErrDispatch)

	// The row must not stay in progress with no job behind it
	assert.Equal(t, []models.Status{models.StatusFailed}, comparisons.statusWrites)
}

func TestComparisonService_RequestUnknownBranch(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{}
	cmp := &models.Comparison{ID: 10, FromBranchID: 1, ToBranchID: 2}
	svc, _, _ := newComparisonFixture(cmp, false, false, runner)

	_, err := svc.Request(ctx, "scarthgap", "nope")
	require.Error(t, err)
	assert.True(t, repository.IsNotFound(err))
	assert.Empty(t, runner.submitted)
}

func TestComparisonService_Get(t *testing.T) {
	ctx := context.Background()
	cmp := &models.Comparison{ID: 10, FromBranchID: 1, ToBranchID: 2, Status: models.StatusSucceeded}
	svc, comparisons, _ := newComparisonFixture(cmp, false, false, &fakeRunner{})
	comparisons.listed = []*models.Difference{
		{ID: 1, ComparisonID: 10, PN: "busybox", ChangeType: models.ChangeUpgraded},
	}

	got, diffs, err := svc.Get(ctx, "scarthgap", "styhead")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSucceeded, got.Status)
	require.Len(t, diffs, 1)
	assert.Equal(t, "busybox", diffs[0].PN)
}

func TestComparisonService_GetInProgressHidesDifferences(t *testing.T) {
	ctx := context.Background()
	cmp := &models.Comparison{ID: 10, FromBranchID: 1, ToBranchID: 2, Status: models.StatusInProgress}
	svc, comparisons, _ := newComparisonFixture(cmp, false, false, &fakeRunner{})
	comparisons.listed = []*models.Difference{{ID: 1}}

	_, diffs, err := svc.Get(ctx, "scarthgap", "styhead")
	require.NoError(t, err)
	assert.Nil(t, diffs)
}

func TestComparisonService_Regenerate(t *testing.T) {
	ctx := context.Background()
	cmp := &models.Comparison{ID: 10, FromBranchID: 1, ToBranchID: 2, Status: models.StatusSucceeded}
	svc, comparisons, artifacts := newComparisonFixture(cmp, false, false, &fakeRunner{})

	require.NoError(t, svc.Regenerate(ctx, "scarthgap", "styhead"))
	assert.Equal(t, []int64{10}, comparisons.deleted)
	assert.Equal(t, []int64{10}, artifacts.removed)
}
