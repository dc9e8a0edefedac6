// Package compare implements the version comparator: given two package-set
// snapshots it computes the classified set of differences (added, removed,
// upgraded, downgraded, version-ambiguous, modified) between them.
package compare

import (
	"sort"
	"strings"

	"github.com/distrodissect/dissector/common/models"
	"github.com/distrodissect/dissector/common/vercmp"
)

// Package is one package record inside a snapshot. AppliedPatches maps the
// src_path of each applied patch to its content hash; Sources maps each
// source URL to its content hash.
type Package struct {
	Name           string
	CoverName      string
	Version        string
	ContentHash    string
	LayerBranchID  int64
	AppliedPatches map[string]string
	Sources        map[string]string
}

// Snapshot is the queryable package set of one branch
type Snapshot struct {
	BranchID        int64
	ImageComparison bool
	Packages        []Package
}

// Classify computes the ordered difference set between two snapshots. The
// returned slice is in persistence order: added rows first, then the
// intersection pass (upgrades/downgrades/ambiguities as discovered, with
// modified rows deferred to the end of the pass), then removed rows.
func Classify(from, to *Snapshot) []models.Difference {
	fromNames := canonicalNames(from, to)
	toNames := canonicalNames(to, from)

	var diffs []models.Difference

	// Added: names only present on the to side
	for _, name := range sortedNames(toNames) {
		if _, ok := fromNames[name]; ok {
			continue
		}
		pkg := toNames[name][0]
		diffs = append(diffs, models.Difference{
			PN:              name,
			ChangeType:      models.ChangeAdded,
			ToLayerBranchID: ref(pkg.LayerBranchID),
		})
	}

	// Intersection: classify each shared name, deferring modified rows
	// until all upgrade/downgrade rows of the pass are in place
	var modified []models.Difference
	for _, name := range sortedNames(fromNames) {
		toPkgs, ok := toNames[name]
		if !ok {
			continue
		}
		fromPkgs := fromNames[name]

		if len(fromPkgs) != 1 || len(toPkgs) != 1 {
			diffs = append(diffs, ambiguous(name, fromPkgs, toPkgs))
			continue
		}

		f, t := fromPkgs[0], toPkgs[0]
		row := models.Difference{
			PN:                name,
			FromLayerBranchID: ref(f.LayerBranchID),
			ToLayerBranchID:   ref(t.LayerBranchID),
		}

		if f.Version != "" && t.Version != "" {
			switch c := vercmp.Compare(f.Version, t.Version); {
			case c < 0:
				row.ChangeType = models.ChangeUpgraded
				row.OldValue = f.Version
				row.NewValue = t.Version
				diffs = append(diffs, row)
				continue
			case c > 0:
				row.ChangeType = models.ChangeDowngraded
				row.OldValue = f.Version
				row.NewValue = t.Version
				diffs = append(diffs, row)
				continue
			}
			// Versions order equally: fall through to content comparison
		}

		if contentDiffers(&f, &t) {
			// Detail of what changed is deliberately not recorded
			row.ChangeType = models.ChangeModified
			modified = append(modified, row)
		}
	}
	diffs = append(diffs, modified...)

	// Removed: names only present on the from side
	for _, name := range sortedNames(fromNames) {
		if _, ok := toNames[name]; ok {
			continue
		}
		pkg := fromNames[name][0]
		diffs = append(diffs, models.Difference{
			PN:                name,
			ChangeType:        models.ChangeRemoved,
			FromLayerBranchID: ref(pkg.LayerBranchID),
		})
	}

	return diffs
}

// canonicalNames groups a snapshot's packages by comparison name. Packages
// of an image-comparison branch compared against a classic branch are keyed
// by their covering package name; packages without one are not comparable
// and drop out entirely.
func canonicalNames(s, other *Snapshot) map[string][]Package {
	useCover := s.ImageComparison && !other.ImageComparison

	names := make(map[string][]Package)
	for _, pkg := range s.Packages {
		name := pkg.Name
		if useCover {
			name = pkg.CoverName
		}
		if strings.TrimSpace(name) == "" {
			continue
		}
		names[name] = append(names[name], pkg)
	}
	return names
}

// ambiguous builds the version_ambiguous row for a name whose record
// cardinality is not exactly one on both sides. Version content is not
// inspected: even identical versions on a many-record side stay ambiguous.
func ambiguous(name string, fromPkgs, toPkgs []Package) models.Difference {
	row := models.Difference{
		PN:         name,
		ChangeType: models.ChangeVersionAmbiguous,
		OldValue:   joinVersions(fromPkgs),
		NewValue:   joinVersions(toPkgs),
	}
	if len(fromPkgs) > 0 {
		row.FromLayerBranchID = ref(fromPkgs[0].LayerBranchID)
	}
	if len(toPkgs) > 0 {
		row.ToLayerBranchID = ref(toPkgs[0].LayerBranchID)
	}
	return row
}

// contentDiffers applies the content comparison chain: recipe content hash,
// then the applied patch set, then per-patch hashes, then the source URL
// set, then per-source hashes.
func contentDiffers(f, t *Package) bool {
	if f.ContentHash != t.ContentHash {
		return true
	}
	if !sameKeys(f.AppliedPatches, t.AppliedPatches) {
		return true
	}
	for path, hash := range f.AppliedPatches {
		if t.AppliedPatches[path] != hash {
			return true
		}
	}
	if !sameKeys(f.Sources, t.Sources) {
		return true
	}
	for url, hash := range f.Sources {
		if t.Sources[url] != hash {
			return true
		}
	}
	return false
}

func sameKeys(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func joinVersions(pkgs []Package) string {
	versions := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		versions = append(versions, p.Version)
	}
	sort.Strings(versions)
	return strings.Join(versions, ", ")
}

// sortedNames orders names case-insensitively for deterministic output
func sortedNames(m map[string][]Package) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		li, lj := strings.ToLower(names[i]), strings.ToLower(names[j])
		if li != lj {
			return li < lj
		}
		return names[i] < names[j]
	})
	return names
}

func ref(id int64) *int64 {
	return &id
}
