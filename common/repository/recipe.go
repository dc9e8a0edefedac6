package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/distrodissect/dissector/common/compare"
	"github.com/distrodissect/dissector/common/db"
	"github.com/distrodissect/dissector/common/diffgen"
	"github.com/distrodissect/dissector/common/models"
)

// RecipeRepository handles database operations for recipes and their
// attached patches and sources
type RecipeRepository struct {
	db *db.DB
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(database *db.DB) *RecipeRepository {
	return &RecipeRepository{db: database}
}

// Snapshot loads the full package set of a branch for the comparator.
// Deleted recipes are excluded; patches contribute only when applied.
func (r *RecipeRepository) Snapshot(ctx context.Context, branchID int64) (*compare.Snapshot, error) {
	var imageComparison bool
	err := r.db.QueryRow(ctx, `SELECT image_comparison FROM branch WHERE id = $1`, branchID).
		Scan(&imageComparison)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("branch %d: %w", branchID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}

	query := `
		SELECT r.id, r.layer_branch_id, r.pn, r.pv, r.sha256sum, r.cover_pn
		FROM recipe r
		JOIN layer_branch lb ON lb.id = r.layer_branch_id
		WHERE lb.branch_id = $1 AND r.deleted = FALSE
		ORDER BY r.id
	`

	rows, err := r.db.Query(ctx, query, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	snapshot := &compare.Snapshot{
		BranchID:        branchID,
		ImageComparison: imageComparison,
	}
	index := make(map[int64]int)
	for rows.Next() {
		var id int64
		pkg := compare.Package{
			AppliedPatches: make(map[string]string),
			Sources:        make(map[string]string),
		}
		err := rows.Scan(
			&id,
			&pkg.LayerBranchID,
			&pkg.Name,
			&pkg.Version,
			&pkg.ContentHash,
			&pkg.CoverName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		index[id] = len(snapshot.Packages)
		snapshot.Packages = append(snapshot.Packages, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipes: %w", err)
	}

	if err := r.loadPatches(ctx, branchID, snapshot, index); err != nil {
		return nil, err
	}
	if err := r.loadSources(ctx, branchID, snapshot, index); err != nil {
		return nil, err
	}

	return snapshot, nil
}

func (r *RecipeRepository) loadPatches(ctx context.Context, branchID int64, snapshot *compare.Snapshot, index map[int64]int) error {
	query := `
		SELECT p.recipe_id, p.src_path, p.sha256sum
		FROM patch p
		JOIN recipe r ON r.id = p.recipe_id
		JOIN layer_branch lb ON lb.id = r.layer_branch_id
		WHERE lb.branch_id = $1 AND r.deleted = FALSE AND p.applied = TRUE
	`

	rows, err := r.db.Query(ctx, query, branchID)
	if err != nil {
		return fmt.Errorf("failed to list patches: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var recipeID int64
		var srcPath, sum string
		if err := rows.Scan(&recipeID, &srcPath, &sum); err != nil {
			return fmt.Errorf("failed to scan patch: %w", err)
		}
		if i, ok := index[recipeID]; ok {
			snapshot.Packages[i].AppliedPatches[srcPath] = sum
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating patches: %w", err)
	}

	return nil
}

func (r *RecipeRepository) loadSources(ctx context.Context, branchID int64, snapshot *compare.Snapshot, index map[int64]int) error {
	query := `
		SELECT s.recipe_id, s.url, s.sha256sum
		FROM source s
		JOIN recipe r ON r.id = s.recipe_id
		JOIN layer_branch lb ON lb.id = r.layer_branch_id
		WHERE lb.branch_id = $1 AND r.deleted = FALSE
	`

	rows, err := r.db.Query(ctx, query, branchID)
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var recipeID int64
		var url, sum string
		if err := rows.Scan(&recipeID, &url, &sum); err != nil {
			return fmt.Errorf("failed to scan source: %w", err)
		}
		if i, ok := index[recipeID]; ok {
			snapshot.Packages[i].Sources[url] = sum
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating sources: %w", err)
	}

	return nil
}

// RecipeLocation resolves a package name to its recipe location within one
// layer branch. byCover matches through cover_pn instead of pn, for the
// image-comparison side of a mixed comparison.
func (r *RecipeRepository) RecipeLocation(ctx context.Context, layerBranchID int64, name string, byCover bool) (*diffgen.Location, error) {
	column := "pn"
	if byCover {
		column = "cover_pn"
	}
	query := fmt.Sprintf(`
		SELECT pn, filepath
		FROM recipe
		WHERE layer_branch_id = $1 AND %s = $2 AND deleted = FALSE
		ORDER BY id
		LIMIT 1
	`, column)

	loc := &diffgen.Location{}
	err := r.db.QueryRow(ctx, query, layerBranchID, name).Scan(&loc.PN, &loc.Filepath)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("recipe %q in layer branch %d: %w", name, layerBranchID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe location: %w", err)
	}

	return loc, nil
}

// GetByID retrieves a recipe with its patches and sources attached
func (r *RecipeRepository) GetByID(ctx context.Context, id int64) (*models.Recipe, error) {
	query := `
		SELECT id, layer_branch_id, pn, pv, filepath, filename, sha256sum, cover_pn
		FROM recipe
		WHERE id = $1 AND deleted = FALSE
	`

	recipe := &models.Recipe{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&recipe.ID,
		&recipe.LayerBranchID,
		&recipe.PN,
		&recipe.PV,
		&recipe.Filepath,
		&recipe.Filename,
		&recipe.Sha256Sum,
		&recipe.CoverPN,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("recipe %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}

	if err := r.attachPatches(ctx, recipe); err != nil {
		return nil, err
	}
	if err := r.attachSources(ctx, recipe); err != nil {
		return nil, err
	}

	return recipe, nil
}

func (r *RecipeRepository) attachPatches(ctx context.Context, recipe *models.Recipe) error {
	query := `
		SELECT id, recipe_id, path, src_path, status, applied, sha256sum
		FROM patch
		WHERE recipe_id = $1
		ORDER BY src_path
	`

	rows, err := r.db.Query(ctx, query, recipe.ID)
	if err != nil {
		return fmt.Errorf("failed to list patches: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Patch
		err := rows.Scan(&p.ID, &p.RecipeID, &p.Path, &p.SrcPath, &p.Status, &p.Applied, &p.Sha256Sum)
		if err != nil {
			return fmt.Errorf("failed to scan patch: %w", err)
		}
		recipe.Patches = append(recipe.Patches, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating patches: %w", err)
	}

	return nil
}

func (r *RecipeRepository) attachSources(ctx context.Context, recipe *models.Recipe) error {
	query := `
		SELECT id, recipe_id, url, sha256sum
		FROM source
		WHERE recipe_id = $1
		ORDER BY url
	`

	rows, err := r.db.Query(ctx, query, recipe.ID)
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.Source
		if err := rows.Scan(&s.ID, &s.RecipeID, &s.URL, &s.Sha256Sum); err != nil {
			return fmt.Errorf("failed to scan source: %w", err)
		}
		recipe.Sources = append(recipe.Sources, s)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating sources: %w", err)
	}

	return nil
}
