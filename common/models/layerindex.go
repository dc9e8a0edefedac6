package models

// Branch is an opaque named snapshot of package metadata. Image-comparison
// branches are created by the tarball import flow and name their packages
// by internal id rather than the canonical pn.
type Branch struct {
	ID               int64  `db:"id" json:"id"`
	Name             string `db:"name" json:"name"`
	ShortDescription string `db:"short_description" json:"short_description"`
	Comparison       bool   `db:"comparison" json:"comparison"`
	ImageComparison  bool   `db:"image_comparison" json:"image_comparison"`
	Hidden           bool   `db:"hidden" json:"hidden"`
}

// LayerBranch pairs a layer with a branch and records where its checkout
// lives under the source/patch roots.
type LayerBranch struct {
	ID        int64  `db:"id" json:"id"`
	LayerID   int64  `db:"layer_id" json:"layer_id"`
	BranchID  int64  `db:"branch_id" json:"branch_id"`
	LocalPath string `db:"local_path" json:"local_path"`
}

// PatchStatus is the parsed Upstream-Status of a patch file
type PatchStatus string

const (
	PatchStatusUnknown       PatchStatus = "U"
	PatchStatusAccepted      PatchStatus = "A"
	PatchStatusPending       PatchStatus = "P"
	PatchStatusInappropriate PatchStatus = "I"
	PatchStatusBackport      PatchStatus = "B"
	PatchStatusSubmitted     PatchStatus = "S"
	PatchStatusDenied        PatchStatus = "D"
)

// Patch is one patch attached to a recipe. SrcPath is its identity within
// the recipe; Sha256Sum is computed over the patch body (see hashutil).
type Patch struct {
	ID        int64       `db:"id" json:"id"`
	RecipeID  int64       `db:"recipe_id" json:"recipe_id"`
	Path      string      `db:"path" json:"path"`
	SrcPath   string      `db:"src_path" json:"src_path"`
	Status    PatchStatus `db:"status" json:"status"`
	Applied   bool        `db:"applied" json:"applied"`
	Sha256Sum string      `db:"sha256sum" json:"sha256sum"`
}

// Source is one fetched source artifact of a recipe, keyed by URL
type Source struct {
	ID        int64  `db:"id" json:"id"`
	RecipeID  int64  `db:"recipe_id" json:"recipe_id"`
	URL       string `db:"url" json:"url"`
	Sha256Sum string `db:"sha256sum" json:"sha256sum"`
}

// Recipe is one package record within a layer branch. CoverPN is only set
// for image-comparison recipes and names the equivalent package in the
// branch being compared against.
type Recipe struct {
	ID            int64  `db:"id" json:"id"`
	LayerBranchID int64  `db:"layer_branch_id" json:"layer_branch_id"`
	PN            string `db:"pn" json:"pn"`
	PV            string `db:"pv" json:"pv"`
	Filepath      string `db:"filepath" json:"filepath"`
	Filename      string `db:"filename" json:"filename"`
	Sha256Sum     string `db:"sha256sum" json:"sha256sum"`
	CoverPN       string `db:"cover_pn" json:"cover_pn"`

	Patches []Patch  `db:"-" json:"patches,omitempty"`
	Sources []Source `db:"-" json:"sources,omitempty"`
}

// AppliedPatchPaths returns the src_path set of patches that are actually
// applied to the build
func (r *Recipe) AppliedPatchPaths() map[string]string {
	paths := make(map[string]string)
	for _, p := range r.Patches {
		if p.Applied {
			paths[p.SrcPath] = p.Sha256Sum
		}
	}
	return paths
}

// SourcesByURL returns the source set keyed by URL
func (r *Recipe) SourcesByURL() map[string]string {
	urls := make(map[string]string)
	for _, s := range r.Sources {
		urls[s.URL] = s.Sha256Sum
	}
	return urls
}
