package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/distrodissect/dissector/common/db"
	"github.com/distrodissect/dissector/common/models"
)

// ComparisonRepository handles database operations for comparisons and
// their difference rows
type ComparisonRepository struct {
	db *db.DB
}

// NewComparisonRepository creates a new comparison repository
func NewComparisonRepository(database *db.DB) *ComparisonRepository {
	return &ComparisonRepository{db: database}
}

// GetOrCreate returns the comparison for an ordered branch pair, inserting
// it if absent. The unique constraint on (from, to) makes concurrent
// requests converge on a single row; created reports whether this call
// inserted it.
func (r *ComparisonRepository) GetOrCreate(ctx context.Context, fromBranchID, toBranchID int64) (*models.Comparison, bool, error) {
	insert := `
		INSERT INTO version_comparison (from_branch_id, to_branch_id)
		VALUES ($1, $2)
		ON CONFLICT (from_branch_id, to_branch_id) DO NOTHING
		RETURNING id, status
	`

	cmp := &models.Comparison{FromBranchID: fromBranchID, ToBranchID: toBranchID}
	err := r.db.QueryRow(ctx, insert, fromBranchID, toBranchID).Scan(&cmp.ID, &cmp.Status)
	if err == nil {
		if err := r.resolveBranchFlags(ctx, cmp); err != nil {
			return nil, false, err
		}
		return cmp, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create comparison: %w", err)
	}

	existing, err := r.GetByBranches(ctx, fromBranchID, toBranchID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByID retrieves a comparison by its ID
func (r *ComparisonRepository) GetByID(ctx context.Context, id int64) (*models.Comparison, error) {
	query := `
		SELECT vc.id, vc.from_branch_id, vc.to_branch_id, vc.status,
		       bf.image_comparison, bt.image_comparison
		FROM version_comparison vc
		JOIN branch bf ON bf.id = vc.from_branch_id
		JOIN branch bt ON bt.id = vc.to_branch_id
		WHERE vc.id = $1
	`

	cmp := &models.Comparison{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&cmp.ID,
		&cmp.FromBranchID,
		&cmp.ToBranchID,
		&cmp.Status,
		&cmp.FromImageComparison,
		&cmp.ToImageComparison,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("comparison %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comparison: %w", err)
	}

	return cmp, nil
}

// GetByBranches retrieves the comparison for an ordered branch pair
func (r *ComparisonRepository) GetByBranches(ctx context.Context, fromBranchID, toBranchID int64) (*models.Comparison, error) {
	query := `
		SELECT vc.id, vc.from_branch_id, vc.to_branch_id, vc.status,
		       bf.image_comparison, bt.image_comparison
		FROM version_comparison vc
		JOIN branch bf ON bf.id = vc.from_branch_id
		JOIN branch bt ON bt.id = vc.to_branch_id
		WHERE vc.from_branch_id = $1 AND vc.to_branch_id = $2
	`

	cmp := &models.Comparison{}
	err := r.db.QueryRow(ctx, query, fromBranchID, toBranchID).Scan(
		&cmp.ID,
		&cmp.FromBranchID,
		&cmp.ToBranchID,
		&cmp.Status,
		&cmp.FromImageComparison,
		&cmp.ToImageComparison,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("comparison %d -> %d: %w", fromBranchID, toBranchID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comparison: %w", err)
	}

	return cmp, nil
}

func (r *ComparisonRepository) resolveBranchFlags(ctx context.Context, cmp *models.Comparison) error {
	query := `
		SELECT bf.image_comparison, bt.image_comparison
		FROM branch bf, branch bt
		WHERE bf.id = $1 AND bt.id = $2
	`

	err := r.db.QueryRow(ctx, query, cmp.FromBranchID, cmp.ToBranchID).
		Scan(&cmp.FromImageComparison, &cmp.ToImageComparison)
	if err != nil {
		return fmt.Errorf("failed to resolve branch flags: %w", err)
	}
	return nil
}

// ClaimForRun flips a failed comparison back to in-progress so it can be
// re-dispatched. Returns false when the row is not in the failed state,
// which means another request already claimed it or it has succeeded.
func (r *ComparisonRepository) ClaimForRun(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE version_comparison
		SET status = $2
		WHERE id = $1 AND status = $3
	`

	tag, err := r.db.Exec(ctx, query, id, models.StatusInProgress, models.StatusFailed)
	if err != nil {
		return false, fmt.Errorf("failed to claim comparison: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetStatus updates the status of a comparison
func (r *ComparisonRepository) SetStatus(ctx context.Context, id int64, status models.Status) error {
	query := `
		UPDATE version_comparison
		SET status = $2
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update comparison status: %w", err)
	}

	return nil
}

// WriteDifferences replaces the difference rows of a comparison and marks
// it succeeded, all in one transaction
func (r *ComparisonRepository) WriteDifferences(ctx context.Context, comparisonID int64, diffs []models.Difference) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `DELETE FROM version_comparison_difference WHERE comparison_id = $1`, comparisonID)
	if err != nil {
		return fmt.Errorf("failed to clear differences: %w", err)
	}

	insert := `
		INSERT INTO version_comparison_difference
			(comparison_id, from_layer_branch_id, to_layer_branch_id, pn, change_type, old_value, new_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, d := range diffs {
		_, err = tx.Exec(ctx, insert,
			comparisonID,
			d.FromLayerBranchID,
			d.ToLayerBranchID,
			d.PN,
			d.ChangeType,
			d.OldValue,
			d.NewValue,
		)
		if err != nil {
			return fmt.Errorf("failed to insert difference for %s: %w", d.PN, err)
		}
	}

	_, err = tx.Exec(ctx, `UPDATE version_comparison SET status = $2 WHERE id = $1`,
		comparisonID, models.StatusSucceeded)
	if err != nil {
		return fmt.Errorf("failed to mark comparison succeeded: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit differences: %w", err)
	}

	return nil
}

// Delete removes a comparison. Difference and file diff rows go with it
// through the foreign key cascade; artifact files on disk are the caller's
// problem.
func (r *ComparisonRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM version_comparison WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comparison: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("comparison %d: %w", id, ErrNotFound)
	}

	return nil
}

// ListDifferences retrieves the difference rows of a comparison in
// insertion order, which is the order the comparator emitted them
func (r *ComparisonRepository) ListDifferences(ctx context.Context, comparisonID int64) ([]*models.Difference, error) {
	query := `
		SELECT id, comparison_id, from_layer_branch_id, to_layer_branch_id, pn, change_type, old_value, new_value
		FROM version_comparison_difference
		WHERE comparison_id = $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, comparisonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list differences: %w", err)
	}
	defer rows.Close()

	var diffs []*models.Difference
	for rows.Next() {
		d := &models.Difference{}
		err := rows.Scan(
			&d.ID,
			&d.ComparisonID,
			&d.FromLayerBranchID,
			&d.ToLayerBranchID,
			&d.PN,
			&d.ChangeType,
			&d.OldValue,
			&d.NewValue,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan difference: %w", err)
		}
		diffs = append(diffs, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating differences: %w", err)
	}

	return diffs, nil
}

// GetDifference retrieves a single difference row
func (r *ComparisonRepository) GetDifference(ctx context.Context, id int64) (*models.Difference, error) {
	query := `
		SELECT id, comparison_id, from_layer_branch_id, to_layer_branch_id, pn, change_type, old_value, new_value
		FROM version_comparison_difference
		WHERE id = $1
	`

	d := &models.Difference{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&d.ID,
		&d.ComparisonID,
		&d.FromLayerBranchID,
		&d.ToLayerBranchID,
		&d.PN,
		&d.ChangeType,
		&d.OldValue,
		&d.NewValue,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("difference %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get difference: %w", err)
	}

	return d, nil
}
