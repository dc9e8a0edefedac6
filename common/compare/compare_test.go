package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distrodissect/dissector/common/models"
)

func pkg(name, version string) Package {
	return Package{
		Name:          name,
		Version:       version,
		ContentHash:   "cafe" + name,
		LayerBranchID: 1,
	}
}

func snapshot(pkgs ...Package) *Snapshot {
	return &Snapshot{BranchID: 1, Packages: pkgs}
}

func byName(diffs []models.Difference) map[string]models.Difference {
	m := make(map[string]models.Difference)
	for _, d := range diffs {
		m[d.PN] = d
	}
	return m
}

func TestClassify_Scenario(t *testing.T) {
	// A stays, B upgrades, C is removed, D is added
	from := snapshot(pkg("A", "1.0"), pkg("B", "2.0"), pkg("C", "1.0"))
	to := snapshot(pkg("A", "1.0"), pkg("B", "3.0"), pkg("D", "1.0"))

	diffs := Classify(from, to)
	require.Len(t, diffs, 3)

	m := byName(diffs)
	assert.Equal(t, models.ChangeAdded, m["D"].ChangeType)
	assert.Equal(t, models.ChangeUpgraded, m["B"].ChangeType)
	assert.Equal(t, "2.0", m["B"].OldValue)
	assert.Equal(t, "3.0", m["B"].NewValue)
	assert.Equal(t, models.ChangeRemoved, m["C"].ChangeType)
	assert.NotContains(t, m, "A", "unchanged package produces no row")
}

func TestClassify_NumericSegmentOrdering(t *testing.T) {
	diffs := Classify(snapshot(pkg("zlib", "1.2")), snapshot(pkg("zlib", "1.10")))
	require.Len(t, diffs, 1)
	assert.Equal(t, models.ChangeUpgraded, diffs[0].ChangeType, "1.10 is newer than 1.2")

	diffs = Classify(snapshot(pkg("zlib", "1.10")), snapshot(pkg("zlib", "1.2")))
	require.Len(t, diffs, 1)
	assert.Equal(t, models.ChangeDowngraded, diffs[0].ChangeType)
}

func TestClassify_Downgrade(t *testing.T) {
	diffs := Classify(snapshot(pkg("bash", "5.1")), snapshot(pkg("bash", "5.0")))
	require.Len(t, diffs, 1)
	assert.Equal(t, models.ChangeDowngraded, diffs[0].ChangeType)
	assert.Equal(t, "5.1", diffs[0].OldValue)
	assert.Equal(t, "5.0", diffs[0].NewValue)
}

func TestClassify_IdenticalPackagesProduceNoRow(t *testing.T) {
	p := Package{
		Name:           "curl",
		Version:        "7.88",
		ContentHash:    "aa",
		LayerBranchID:  1,
		AppliedPatches: map[string]string{"fix.patch": "h1"},
		Sources:        map[string]string{"https://curl.se/curl-7.88.tar.xz": "s1"},
	}
	diffs := Classify(snapshot(p), snapshot(p))
	assert.Empty(t, diffs)
}

func TestClassify_Ambiguity(t *testing.T) {
	from := snapshot(pkg("gcc", "9.3"), pkg("gcc", "10.2"))
	to := snapshot(pkg("gcc", "10.2"))

	diffs := Classify(from, to)
	require.Len(t, diffs, 1)
	assert.Equal(t, models.ChangeVersionAmbiguous, diffs[0].ChangeType)
	assert.Equal(t, "10.2, 9.3", diffs[0].OldValue, "sorted comma-joined from-side versions")
	assert.Equal(t, "10.2", diffs[0].NewValue)
}

func TestClassify_EqualVersionsMultiRecordStillAmbiguous(t *testing.T) {
	// Two records with the same version on one side keep routing to
	// version_ambiguous; version content is not inspected
	from := snapshot(pkg("make", "4.3"), pkg("make", "4.3"))
	to := snapshot(pkg("make", "4.3"))

	diffs := Classify(from, to)
	require.Len(t, diffs, 1)
	assert.Equal(t, models.ChangeVersionAmbiguous, diffs[0].ChangeType)
	assert.Equal(t, "4.3, 4.3", diffs[0].OldValue)
}

func TestClassify_EmptyVersionFallsThroughToContent(t *testing.T) {
	f := pkg("tar", "")
	f.ContentHash = "aa"
	tt := pkg("tar", "1.34")
	tt.ContentHash = "bb"

	diffs := Classify(snapshot(f), snapshot(tt))
	require.Len(t, diffs, 1)
	assert.Equal(t, models.ChangeModified, diffs[0].ChangeType)
	assert.Empty(t, diffs[0].OldValue, "modified rows record no detail")
	assert.Empty(t, diffs[0].NewValue)
}

func TestClassify_EqualVersionsContentHashMismatch(t *testing.T) {
	f := pkg("nano", "6.0")
	f.ContentHash = "aa"
	tt := pkg("nano", "6.0")
	tt.ContentHash = "bb"

	diffs := Classify(snapshot(f), snapshot(tt))
	require.Len(t, diffs, 1)
	assert.Equal(t, models.ChangeModified, diffs[0].ChangeType)
}

func TestClassify_AppliedPatchSetDifference(t *testing.T) {
	f := pkg("vim", "9.0")
	f.AppliedPatches = map[string]string{"cve.patch": "h1"}
	tt := pkg("vim", "9.0")
	tt.ContentHash = f.ContentHash
	tt.AppliedPatches = map[string]string{"cve.patch": "h1", "musl.patch": "h2"}

	diffs := Classify(snapshot(f), snapshot(tt))
	require.Len(t, diffs, 1)
	assert.Equal(t, models.ChangeModified, diffs[0].ChangeType)
}

func TestClassify_UnappliedPatchesIgnored(t *testing.T) {
	// AppliedPatches only carries applied patches; an identical applied set
	// means no modification regardless of what else ships in the recipe dir
	f := pkg("sed", "4.8")
	f.AppliedPatches = map[string]string{"fix.patch": "h1"}
	tt := pkg("sed", "4.8")
	tt.ContentHash = f.ContentHash
	tt.AppliedPatches = map[string]string{"fix.patch": "h1"}

	assert.Empty(t, Classify(snapshot(f), snapshot(tt)))
}

func TestClassify_PatchHashMismatch(t *testing.T) {
	f := pkg("grep", "3.7")
	f.AppliedPatches = map[string]string{"fix.patch": "h1"}
	tt := pkg("grep", "3.7")
	tt.ContentHash = f.ContentHash
	tt.AppliedPatches = map[string]string{"fix.patch": "h2"}

	diffs := Classify(snapshot(f), snapshot(tt))
	require.Len(t, diffs, 1)
	assert.Equal(t, models.ChangeModified, diffs[0].ChangeType)
}

func TestClassify_SourceSetAndHashDifferences(t *testing.T) {
	f := pkg("wget", "1.21")
	f.Sources = map[string]string{"https://a/wget.tar.gz": "s1"}

	urlChanged := pkg("wget", "1.21")
	urlChanged.ContentHash = f.ContentHash
	urlChanged.Sources = map[string]string{"https://b/wget.tar.gz": "s1"}

	diffs := Classify(snapshot(f), snapshot(urlChanged))
	require.Len(t, diffs, 1)
	assert.Equal(t, models.ChangeModified, diffs[0].ChangeType)

	hashChanged := pkg("wget", "1.21")
	hashChanged.ContentHash = f.ContentHash
	hashChanged.Sources = map[string]string{"https://a/wget.tar.gz": "s2"}

	diffs = Classify(snapshot(f), snapshot(hashChanged))
	require.Len(t, diffs, 1)
	assert.Equal(t, models.ChangeModified, diffs[0].ChangeType)
}

func TestClassify_CoverNameMapping(t *testing.T) {
	imageSide := &Snapshot{
		BranchID:        7,
		ImageComparison: true,
		Packages: []Package{
			{Name: "pkg-internal-001", CoverName: "busybox", Version: "1.35", ContentHash: "x", LayerBranchID: 2},
			{Name: "pkg-internal-002", CoverName: "", Version: "9.9", ContentHash: "y", LayerBranchID: 2},
		},
	}
	classicSide := snapshot(pkg("busybox", "1.36"))

	diffs := Classify(imageSide, classicSide)
	require.Len(t, diffs, 1)
	assert.Equal(t, "busybox", diffs[0].PN, "image packages compare by covering name")
	assert.Equal(t, models.ChangeUpgraded, diffs[0].ChangeType)
	// pkg-internal-002 has no covering name and silently drops out
}

func TestClassify_ImageToImageUsesOwnNames(t *testing.T) {
	a := &Snapshot{BranchID: 1, ImageComparison: true, Packages: []Package{
		{Name: "alpha", CoverName: "other", Version: "1.0", LayerBranchID: 1},
	}}
	b := &Snapshot{BranchID: 2, ImageComparison: true, Packages: []Package{
		{Name: "alpha", CoverName: "different", Version: "2.0", LayerBranchID: 1},
	}}

	diffs := Classify(a, b)
	require.Len(t, diffs, 1)
	assert.Equal(t, "alpha", diffs[0].PN)
	assert.Equal(t, models.ChangeUpgraded, diffs[0].ChangeType)
}

func TestClassify_BlankNamesSkipped(t *testing.T) {
	from := snapshot(pkg("", "1.0"), pkg("  ", "2.0"))
	to := snapshot(pkg("real", "1.0"))

	diffs := Classify(from, to)
	require.Len(t, diffs, 1)
	assert.Equal(t, "real", diffs[0].PN)
	assert.Equal(t, models.ChangeAdded, diffs[0].ChangeType)
}

func TestClassify_PersistenceOrder(t *testing.T) {
	modFrom := pkg("mmod", "1.0")
	modFrom.ContentHash = "aa"
	modTo := pkg("mmod", "1.0")
	modTo.ContentHash = "bb"

	from := snapshot(pkg("aup", "1.0"), modFrom, pkg("zgone", "1.0"))
	to := snapshot(pkg("aup", "2.0"), modTo, pkg("bnew", "1.0"))

	diffs := Classify(from, to)
	require.Len(t, diffs, 4)

	// added first, then upgrades, then deferred modified, removed last
	assert.Equal(t, models.ChangeAdded, diffs[0].ChangeType)
	assert.Equal(t, "bnew", diffs[0].PN)
	assert.Equal(t, models.ChangeUpgraded, diffs[1].ChangeType)
	assert.Equal(t, "aup", diffs[1].PN)
	assert.Equal(t, models.ChangeModified, diffs[2].ChangeType)
	assert.Equal(t, "mmod", diffs[2].PN)
	assert.Equal(t, models.ChangeRemoved, diffs[3].ChangeType)
	assert.Equal(t, "zgone", diffs[3].PN)
}

func TestClassify_Deterministic(t *testing.T) {
	from := snapshot(pkg("b", "1.0"), pkg("a", "2.0"), pkg("C", "1.1"), pkg("d", "0.9"))
	to := snapshot(pkg("a", "3.0"), pkg("C", "1.0"), pkg("e", "1.0"))

	first := Classify(from, to)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(from, to))
	}
}

func TestClassify_PartitionCompleteness(t *testing.T) {
	from := snapshot(pkg("a", "1.0"), pkg("b", "1.0"), pkg("c", "1.0"))
	to := snapshot(pkg("b", "2.0"), pkg("c", "1.0"), pkg("d", "1.0"))

	diffs := Classify(from, to)
	seen := make(map[string]int)
	for _, d := range diffs {
		seen[d.PN]++
	}
	for name, count := range seen {
		assert.Equal(t, 1, count, "package %s must appear in at most one row", name)
	}
	assert.NotContains(t, seen, "c", "unchanged intersection package has no row")
}
