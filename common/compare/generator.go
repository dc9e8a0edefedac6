package compare

import (
	"context"
	"fmt"

	"github.com/distrodissect/dissector/common/logger"
	"github.com/distrodissect/dissector/common/models"
)

// SnapshotStore loads the package set of a branch
type SnapshotStore interface {
	Snapshot(ctx context.Context, branchID int64) (*Snapshot, error)
}

// ResultStore persists comparison results. WriteDifferences must replace
// any existing rows for the comparison and flip its status to succeeded in
// the same transaction, so a failed run never leaves partial rows behind.
type ResultStore interface {
	Comparison(ctx context.Context, id int64) (*models.Comparison, error)
	WriteDifferences(ctx context.Context, comparisonID int64, diffs []models.Difference) error
	SetComparisonStatus(ctx context.Context, id int64, status models.Status) error
}

// Generator runs one comparison job end to end
type Generator struct {
	snapshots SnapshotStore
	results   ResultStore
	log       *logger.Logger
}

// NewGenerator creates a comparison generator
func NewGenerator(snapshots SnapshotStore, results ResultStore, log *logger.Logger) *Generator {
	return &Generator{
		snapshots: snapshots,
		results:   results,
		log:       log,
	}
}

// Run loads both snapshots, classifies their differences and persists the
// result. Any failure marks the comparison failed and is returned for the
// job runner to log; no partial difference rows survive a failed run.
func (g *Generator) Run(ctx context.Context, comparisonID int64) error {
	log := g.log.WithComparisonID(comparisonID)

	cmp, err := g.results.Comparison(ctx, comparisonID)
	if err != nil {
		return g.fail(ctx, comparisonID, fmt.Errorf("load comparison: %w", err))
	}

	from, err := g.snapshots.Snapshot(ctx, cmp.FromBranchID)
	if err != nil {
		return g.fail(ctx, comparisonID, fmt.Errorf("load from snapshot: %w", err))
	}
	to, err := g.snapshots.Snapshot(ctx, cmp.ToBranchID)
	if err != nil {
		return g.fail(ctx, comparisonID, fmt.Errorf("load to snapshot: %w", err))
	}

	diffs := Classify(from, to)

	if err := g.results.WriteDifferences(ctx, cmp.ID, diffs); err != nil {
		return g.fail(ctx, comparisonID, fmt.Errorf("write differences: %w", err))
	}

	log.Info("comparison generated",
		"from_branch", cmp.FromBranchID,
		"to_branch", cmp.ToBranchID,
		"differences", len(diffs),
	)
	return nil
}

// fail records the failed status before propagating the original error
func (g *Generator) fail(ctx context.Context, comparisonID int64, err error) error {
	if serr := g.results.SetComparisonStatus(ctx, comparisonID, models.StatusFailed); serr != nil {
		g.log.Error("failed to mark comparison failed", "comparison_id", comparisonID, "error", serr)
	}
	return err
}
