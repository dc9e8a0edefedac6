package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/distrodissect/dissector/common/db"
	"github.com/distrodissect/dissector/common/models"
)

// FileDiffRepository handles database operations for file diff records
type FileDiffRepository struct {
	db *db.DB
}

// NewFileDiffRepository creates a new file diff repository
func NewFileDiffRepository(database *db.DB) *FileDiffRepository {
	return &FileDiffRepository{db: database}
}

// GetOrCreate returns the file diff record for a difference, inserting it
// in the in-progress state if absent. The unique constraint on
// difference_id keeps concurrent requests on one row.
func (r *FileDiffRepository) GetOrCreate(ctx context.Context, differenceID int64) (*models.FileDiff, bool, error) {
	insert := `
		INSERT INTO version_comparison_file_diff (difference_id)
		VALUES ($1)
		ON CONFLICT (difference_id) DO NOTHING
		RETURNING id, status
	`

	fd := &models.FileDiff{DifferenceID: differenceID}
	err := r.db.QueryRow(ctx, insert, differenceID).Scan(&fd.ID, &fd.Status)
	if err == nil {
		return fd, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create file diff: %w", err)
	}

	existing, err := r.GetByDifference(ctx, differenceID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByID retrieves a file diff record by its ID
func (r *FileDiffRepository) GetByID(ctx context.Context, id int64) (*models.FileDiff, error) {
	query := `
		SELECT id, difference_id, status
		FROM version_comparison_file_diff
		WHERE id = $1
	`

	fd := &models.FileDiff{}
	err := r.db.QueryRow(ctx, query, id).Scan(&fd.ID, &fd.DifferenceID, &fd.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("file diff %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file diff: %w", err)
	}

	return fd, nil
}

// GetByDifference retrieves the file diff record attached to a difference
func (r *FileDiffRepository) GetByDifference(ctx context.Context, differenceID int64) (*models.FileDiff, error) {
	query := `
		SELECT id, difference_id, status
		FROM version_comparison_file_diff
		WHERE difference_id = $1
	`

	fd := &models.FileDiff{}
	err := r.db.QueryRow(ctx, query, differenceID).Scan(&fd.ID, &fd.DifferenceID, &fd.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("file diff for difference %d: %w", differenceID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file diff: %w", err)
	}

	return fd, nil
}

// ClaimForRun flips a failed file diff back to in-progress for
// re-dispatch. Returns false when the record is not in the failed state.
func (r *FileDiffRepository) ClaimForRun(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE version_comparison_file_diff
		SET status = $2
		WHERE id = $1 AND status = $3
	`

	tag, err := r.db.Exec(ctx, query, id, models.StatusInProgress, models.StatusFailed)
	if err != nil {
		return false, fmt.Errorf("failed to claim file diff: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetStatus updates the status of a file diff record
func (r *FileDiffRepository) SetStatus(ctx context.Context, id int64, status models.Status) error {
	query := `
		UPDATE version_comparison_file_diff
		SET status = $2
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update file diff status: %w", err)
	}

	return nil
}
