// Package diffgen generates the cached unified diff artifact for a single
// difference: it resolves the two on-disk source trees, runs the recursive
// diff and tracks the file diff's status through the run.
package diffgen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/distrodissect/dissector/common/hashutil"
	"github.com/distrodissect/dissector/common/logger"
	"github.com/distrodissect/dissector/common/models"
	"github.com/distrodissect/dissector/common/textdiff"
)

// ErrNoSource means one or both sides of a difference have no resolvable
// source tree. It is a non-fatal outcome, not a generation failure.
var ErrNoSource = errors.New("no source available")

// Location is where a recipe's files live relative to its layer checkout
type Location struct {
	// PN is the canonical package name, used as the directory name under
	// the patch root for image-comparison recipes
	PN string
	// Filepath is the recipe directory relative to the layer checkout,
	// used under the source root for classic recipes
	Filepath string
}

// Store is the persistence surface the generator needs
type Store interface {
	FileDiff(ctx context.Context, id int64) (*models.FileDiff, error)
	SetFileDiffStatus(ctx context.Context, id int64, status models.Status) error
	Difference(ctx context.Context, id int64) (*models.Difference, error)
	Comparison(ctx context.Context, id int64) (*models.Comparison, error)
	LayerBranchPath(ctx context.Context, id int64) (string, error)
	// RecipeLocation resolves a difference's package name to a recipe in
	// the given layer branch; byCover selects lookup through cover_pn,
	// used when an image-comparison side is compared against a classic one
	RecipeLocation(ctx context.Context, layerBranchID int64, name string, byCover bool) (*Location, error)
}

// Generator produces diff artifacts for differences
type Generator struct {
	store     Store
	sourceDir string
	patchDir  string
	log       *logger.Logger
}

// NewGenerator creates a file diff generator over the given roots
func NewGenerator(store Store, sourceDir, patchDir string, log *logger.Logger) *Generator {
	return &Generator{
		store:     store,
		sourceDir: sourceDir,
		patchDir:  patchDir,
		log:       log,
	}
}

// ArtifactPath is where the cached diff for a file diff lives, keyed by the
// owning comparison and the file diff's own id
func ArtifactPath(patchDir string, comparisonID, fileDiffID int64) string {
	return filepath.Join(patchDir, "version-compare",
		strconv.FormatInt(comparisonID, 10),
		strconv.FormatInt(fileDiffID, 10)+".diff")
}

// ArtifactPath resolves the cache path for a file diff of a comparison
func (g *Generator) ArtifactPath(comparisonID, fileDiffID int64) string {
	return ArtifactPath(g.patchDir, comparisonID, fileDiffID)
}

// RemoveComparisonArtifacts deletes every cached diff of a comparison.
// Called from the explicit comparison delete; missing files are fine.
func (g *Generator) RemoveComparisonArtifacts(comparisonID int64) error {
	dir := filepath.Join(g.patchDir, "version-compare", strconv.FormatInt(comparisonID, 10))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove diff artifacts for comparison %d: %w", comparisonID, err)
	}
	return nil
}

// RemoveArtifact deletes the cached diff of one file diff
func (g *Generator) RemoveArtifact(comparisonID, fileDiffID int64) error {
	err := os.Remove(g.ArtifactPath(comparisonID, fileDiffID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove diff artifact %d: %w", fileDiffID, err)
	}
	return nil
}

// SourcesAvailable reports whether both sides of a difference have their
// layer checkout present on disk. Only the layer roots are checked; this
// drives whether a diff is offered at all, independent of generation state.
func (g *Generator) SourcesAvailable(ctx context.Context, diff *models.Difference) (bool, error) {
	if !diff.ChangeType.TwoSided() {
		return false, nil
	}
	if diff.FromLayerBranchID == nil || diff.ToLayerBranchID == nil {
		return false, nil
	}

	cmp, err := g.store.Comparison(ctx, diff.ComparisonID)
	if err != nil {
		return false, fmt.Errorf("load comparison: %w", err)
	}

	fromRoot, err := g.layerRoot(ctx, *diff.FromLayerBranchID, cmp.FromImageComparison)
	if err != nil {
		return false, err
	}
	toRoot, err := g.layerRoot(ctx, *diff.ToLayerBranchID, cmp.ToImageComparison)
	if err != nil {
		return false, err
	}

	return dirExists(fromRoot) && dirExists(toRoot), nil
}

// Run generates the diff artifact for a file diff. Any failure flips the
// file diff to failed and is returned so the job runner can log it.
func (g *Generator) Run(ctx context.Context, fileDiffID int64) error {
	fdiff, err := g.store.FileDiff(ctx, fileDiffID)
	if err != nil {
		return fmt.Errorf("load file diff: %w", err)
	}

	if err := g.generate(ctx, fdiff); err != nil {
		if serr := g.store.SetFileDiffStatus(ctx, fdiff.ID, models.StatusFailed); serr != nil {
			g.log.Error("failed to mark file diff failed", "file_diff_id", fdiff.ID, "error", serr)
		}
		return err
	}

	if err := g.store.SetFileDiffStatus(ctx, fdiff.ID, models.StatusSucceeded); err != nil {
		return fmt.Errorf("mark file diff succeeded: %w", err)
	}
	return nil
}

func (g *Generator) generate(ctx context.Context, fdiff *models.FileDiff) error {
	diff, err := g.store.Difference(ctx, fdiff.DifferenceID)
	if err != nil {
		return fmt.Errorf("load difference: %w", err)
	}
	if !diff.ChangeType.TwoSided() {
		return fmt.Errorf("difference %d (%s): %w", diff.ID, diff.ChangeType.Label(), ErrNoSource)
	}
	if diff.FromLayerBranchID == nil || diff.ToLayerBranchID == nil {
		return fmt.Errorf("difference %d has no layer refs: %w", diff.ID, ErrNoSource)
	}

	cmp, err := g.store.Comparison(ctx, diff.ComparisonID)
	if err != nil {
		return fmt.Errorf("load comparison: %w", err)
	}

	bothImage := cmp.FromImageComparison && cmp.ToImageComparison
	fromPath, err := g.resolveSide(ctx, diff, *diff.FromLayerBranchID, cmp.FromImageComparison, bothImage)
	if err != nil {
		return fmt.Errorf("resolve from path: %w", err)
	}
	toPath, err := g.resolveSide(ctx, diff, *diff.ToLayerBranchID, cmp.ToImageComparison, bothImage)
	if err != nil {
		return fmt.Errorf("resolve to path: %w", err)
	}

	artifact := g.ArtifactPath(diff.ComparisonID, fdiff.ID)
	if err := os.MkdirAll(filepath.Dir(artifact), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	out, err := os.Create(artifact)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer out.Close()

	// Paths are labelled relative to the source root the way the engine
	// always ran diff from there
	changed, err := textdiff.DirDiff(out, fromPath, toPath, relLabel(g.sourceDir, fromPath), relLabel(g.sourceDir, toPath))
	if err != nil {
		// Do not leave a truncated artifact behind for a later Read
		if rerr := g.RemoveArtifact(diff.ComparisonID, fdiff.ID); rerr != nil {
			g.log.Error("failed to remove partial diff artifact",
				"file_diff_id", fdiff.ID, "error", rerr)
		}
		return fmt.Errorf("diff %s against %s: %w", fromPath, toPath, err)
	}

	g.log.Info("file diff generated",
		"file_diff_id", fdiff.ID,
		"difference_id", diff.ID,
		"pn", diff.PN,
		"changed", changed,
	)
	return nil
}

// resolveSide computes the absolute source tree path for one side of a
// difference. Every user-influenced path component is traversal-checked.
func (g *Generator) resolveSide(ctx context.Context, diff *models.Difference, layerBranchID int64, imageSide, bothImage bool) (string, error) {
	localPath, err := g.store.LayerBranchPath(ctx, layerBranchID)
	if err != nil {
		return "", fmt.Errorf("resolve layer branch %d: %w", layerBranchID, err)
	}
	if err := hashutil.CheckRelPath(localPath); err != nil {
		return "", err
	}

	if imageSide {
		loc, err := g.store.RecipeLocation(ctx, layerBranchID, diff.PN, !bothImage)
		if err != nil {
			return "", err
		}
		if err := hashutil.CheckRelPath(loc.PN); err != nil {
			return "", err
		}
		return filepath.Join(g.patchDir, localPath, loc.PN), nil
	}

	loc, err := g.store.RecipeLocation(ctx, layerBranchID, diff.PN, false)
	if err != nil {
		return "", err
	}
	if err := hashutil.CheckRelPath(loc.Filepath); err != nil {
		return "", err
	}
	return filepath.Join(g.sourceDir, localPath, loc.Filepath), nil
}

func (g *Generator) layerRoot(ctx context.Context, layerBranchID int64, imageSide bool) (string, error) {
	localPath, err := g.store.LayerBranchPath(ctx, layerBranchID)
	if err != nil {
		return "", fmt.Errorf("resolve layer branch %d: %w", layerBranchID, err)
	}
	if err := hashutil.CheckRelPath(localPath); err != nil {
		return "", err
	}
	if imageSide {
		return filepath.Join(g.patchDir, localPath), nil
	}
	return filepath.Join(g.sourceDir, localPath), nil
}

func relLabel(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
