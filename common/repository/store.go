package repository

import (
	"context"

	"github.com/distrodissect/dissector/common/compare"
	"github.com/distrodissect/dissector/common/db"
	"github.com/distrodissect/dissector/common/diffgen"
	"github.com/distrodissect/dissector/common/models"
)

// Store bundles the repositories behind the narrow interfaces the
// comparison and file diff generators consume. The worker and the API
// service share one instance.
type Store struct {
	Branches    *BranchRepository
	Layers      *LayerBranchRepository
	Recipes     *RecipeRepository
	Comparisons *ComparisonRepository
	FileDiffs   *FileDiffRepository
}

// NewStore creates a store over one database pool
func NewStore(database *db.DB) *Store {
	return &Store{
		Branches:    NewBranchRepository(database),
		Layers:      NewLayerBranchRepository(database),
		Recipes:     NewRecipeRepository(database),
		Comparisons: NewComparisonRepository(database),
		FileDiffs:   NewFileDiffRepository(database),
	}
}

// Snapshot implements compare.SnapshotStore
func (s *Store) Snapshot(ctx context.Context, branchID int64) (*compare.Snapshot, error) {
	return s.Recipes.Snapshot(ctx, branchID)
}

// Comparison implements compare.ResultStore and diffgen.Store
func (s *Store) Comparison(ctx context.Context, id int64) (*models.Comparison, error) {
	return s.Comparisons.GetByID(ctx, id)
}

// WriteDifferences implements compare.ResultStore
func (s *Store) WriteDifferences(ctx context.Context, comparisonID int64, diffs []models.Difference) error {
	return s.Comparisons.WriteDifferences(ctx, comparisonID, diffs)
}

// SetComparisonStatus implements compare.ResultStore
func (s *Store) SetComparisonStatus(ctx context.Context, id int64, status models.Status) error {
	return s.Comparisons.SetStatus(ctx, id, status)
}

// FileDiff implements diffgen.Store
func (s *Store) FileDiff(ctx context.Context, id int64) (*models.FileDiff, error) {
	return s.FileDiffs.GetByID(ctx, id)
}

// SetFileDiffStatus implements diffgen.Store
func (s *Store) SetFileDiffStatus(ctx context.Context, id int64, status models.Status) error {
	return s.FileDiffs.SetStatus(ctx, id, status)
}

// Difference implements diffgen.Store
func (s *Store) Difference(ctx context.Context, id int64) (*models.Difference, error) {
	return s.Comparisons.GetDifference(ctx, id)
}

// LayerBranchPath implements diffgen.Store
func (s *Store) LayerBranchPath(ctx context.Context, id int64) (string, error) {
	return s.Layers.LocalPath(ctx, id)
}

// RecipeLocation implements diffgen.Store
func (s *Store) RecipeLocation(ctx context.Context, layerBranchID int64, name string, byCover bool) (*diffgen.Location, error) {
	return s.Recipes.RecipeLocation(ctx, layerBranchID, name, byCover)
}

var (
	_ compare.SnapshotStore = (*Store)(nil)
	_ compare.ResultStore   = (*Store)(nil)
	_ diffgen.Store         = (*Store)(nil)
)
