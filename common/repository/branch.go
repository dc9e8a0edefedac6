package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/distrodissect/dissector/common/db"
	"github.com/distrodissect/dissector/common/models"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err wraps ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// BranchRepository handles database operations for branches
type BranchRepository struct {
	db *db.DB
}

// NewBranchRepository creates a new branch repository
func NewBranchRepository(database *db.DB) *BranchRepository {
	return &BranchRepository{db: database}
}

// GetByID retrieves a branch by its ID
func (r *BranchRepository) GetByID(ctx context.Context, id int64) (*models.Branch, error) {
	query := `
		SELECT id, name, short_description, comparison, image_comparison, hidden
		FROM branch
		WHERE id = $1
	`

	branch := &models.Branch{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&branch.ID,
		&branch.Name,
		&branch.ShortDescription,
		&branch.Comparison,
		&branch.ImageComparison,
		&branch.Hidden,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("branch %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}

	return branch, nil
}

// GetByName retrieves a branch by its unique name
func (r *BranchRepository) GetByName(ctx context.Context, name string) (*models.Branch, error) {
	query := `
		SELECT id, name, short_description, comparison, image_comparison, hidden
		FROM branch
		WHERE name = $1
	`

	branch := &models.Branch{}
	err := r.db.QueryRow(ctx, query, name).Scan(
		&branch.ID,
		&branch.Name,
		&branch.ShortDescription,
		&branch.Comparison,
		&branch.ImageComparison,
		&branch.Hidden,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("branch %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}

	return branch, nil
}

// ListComparison retrieves the non-hidden branches that may appear on
// either side of a comparison
func (r *BranchRepository) ListComparison(ctx context.Context) ([]*models.Branch, error) {
	query := `
		SELECT id, name, short_description, comparison, image_comparison, hidden
		FROM branch
		WHERE comparison = TRUE AND hidden = FALSE
		ORDER BY name
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	defer rows.Close()

	var branches []*models.Branch
	for rows.Next() {
		branch := &models.Branch{}
		err := rows.Scan(
			&branch.ID,
			&branch.Name,
			&branch.ShortDescription,
			&branch.Comparison,
			&branch.ImageComparison,
			&branch.Hidden,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan branch: %w", err)
		}
		branches = append(branches, branch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating branches: %w", err)
	}

	return branches, nil
}

// LayerBranchRepository handles database operations for layer branches
type LayerBranchRepository struct {
	db *db.DB
}

// NewLayerBranchRepository creates a new layer branch repository
func NewLayerBranchRepository(database *db.DB) *LayerBranchRepository {
	return &LayerBranchRepository{db: database}
}

// GetByID retrieves a layer branch by its ID
func (r *LayerBranchRepository) GetByID(ctx context.Context, id int64) (*models.LayerBranch, error) {
	query := `
		SELECT id, layer_id, branch_id, local_path
		FROM layer_branch
		WHERE id = $1
	`

	lb := &models.LayerBranch{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&lb.ID,
		&lb.LayerID,
		&lb.BranchID,
		&lb.LocalPath,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("layer branch %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get layer branch: %w", err)
	}

	return lb, nil
}

// LocalPath retrieves just the checkout path of a layer branch
func (r *LayerBranchRepository) LocalPath(ctx context.Context, id int64) (string, error) {
	query := `
		SELECT local_path
		FROM layer_branch
		WHERE id = $1
	`

	var path string
	err := r.db.QueryRow(ctx, query, id).Scan(&path)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("layer branch %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get layer branch path: %w", err)
	}

	return path, nil
}
