package service

import (
	"context"

	"github.com/distrodissect/dissector/common/diffgen"
	"github.com/distrodissect/dissector/common/models"
	"github.com/distrodissect/dissector/common/repository"
)

// BranchStore resolves branch names to records
type BranchStore interface {
	GetByName(ctx context.Context, name string) (*models.Branch, error)
}

// ComparisonStore is the slice of comparison persistence the services use
type ComparisonStore interface {
	GetOrCreate(ctx context.Context, fromBranchID, toBranchID int64) (*models.Comparison, bool, error)
	GetByBranches(ctx context.Context, fromBranchID, toBranchID int64) (*models.Comparison, error)
	ClaimForRun(ctx context.Context, id int64) (bool, error)
	SetStatus(ctx context.Context, id int64, status models.Status) error
	ListDifferences(ctx context.Context, comparisonID int64) ([]*models.Difference, error)
	GetDifference(ctx context.Context, id int64) (*models.Difference, error)
	Delete(ctx context.Context, id int64) error
}

// FileDiffStore is the slice of file diff persistence the services use
type FileDiffStore interface {
	GetOrCreate(ctx context.Context, differenceID int64) (*models.FileDiff, bool, error)
	GetByID(ctx context.Context, id int64) (*models.FileDiff, error)
	GetByDifference(ctx context.Context, differenceID int64) (*models.FileDiff, error)
	ClaimForRun(ctx context.Context, id int64) (bool, error)
	SetStatus(ctx context.Context, id int64, status models.Status) error
}

// DiffArtifacts is the diff generation surface the services consult for
// availability checks and cached artifact paths
type DiffArtifacts interface {
	SourcesAvailable(ctx context.Context, diff *models.Difference) (bool, error)
	ArtifactPath(comparisonID, fileDiffID int64) string
	RemoveComparisonArtifacts(comparisonID int64) error
}

var (
	_ BranchStore     = (*repository.BranchRepository)(nil)
	_ ComparisonStore = (*repository.ComparisonRepository)(nil)
	_ FileDiffStore   = (*repository.FileDiffRepository)(nil)
	_ DiffArtifacts   = (*diffgen.Generator)(nil)
)
