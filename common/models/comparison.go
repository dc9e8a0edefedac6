package models

import "fmt"

// Status is the lifecycle state shared by comparisons and file diffs
type Status string

const (
	StatusInProgress Status = "I"
	StatusFailed     Status = "F"
	StatusSucceeded  Status = "S"
)

// Label returns the human-readable form of a status
func (s Status) Label() string {
	switch s {
	case StatusInProgress:
		return "In progress"
	case StatusFailed:
		return "Failed"
	case StatusSucceeded:
		return "Succeeded"
	}
	return "Unknown"
}

// ChangeType classifies one difference between two package sets
type ChangeType string

const (
	ChangeAdded            ChangeType = "A"
	ChangeUpgraded         ChangeType = "U"
	ChangeDowngraded       ChangeType = "D"
	ChangeVersionAmbiguous ChangeType = "V"
	ChangeRemoved          ChangeType = "R"
	ChangeModified         ChangeType = "M"
)

// Label returns the human-readable form of a change type
func (c ChangeType) Label() string {
	switch c {
	case ChangeAdded:
		return "Add"
	case ChangeUpgraded:
		return "Upgrade"
	case ChangeDowngraded:
		return "Downgrade"
	case ChangeVersionAmbiguous:
		return "Version changes"
	case ChangeRemoved:
		return "Remove"
	case ChangeModified:
		return "Modification"
	}
	return "Unknown"
}

// TwoSided reports whether both sides of the difference have resolvable
// source trees. Added/removed/ambiguous packages only exist on one side (or
// cannot be pinned to a single record), so no file diff can be produced.
func (c ChangeType) TwoSided() bool {
	switch c {
	case ChangeUpgraded, ChangeDowngraded, ChangeModified:
		return true
	}
	return false
}

// Comparison represents one comparison run between two branches.
// At most one row exists per ordered (from, to) branch pair.
type Comparison struct {
	ID           int64  `db:"id" json:"id"`
	FromBranchID int64  `db:"from_branch_id" json:"from_branch_id"`
	ToBranchID   int64  `db:"to_branch_id" json:"to_branch_id"`
	Status       Status `db:"status" json:"status"`

	// Branch flags resolved by the repository on load
	FromImageComparison bool `db:"-" json:"from_image_comparison"`
	ToImageComparison   bool `db:"-" json:"to_image_comparison"`
}

// Difference is one classified delta between the two snapshots of a
// comparison. Rows are written only by the comparator and are immutable
// afterwards.
type Difference struct {
	ID                int64      `db:"id" json:"id"`
	ComparisonID      int64      `db:"comparison_id" json:"comparison_id"`
	FromLayerBranchID *int64     `db:"from_layer_branch_id" json:"from_layer_branch_id,omitempty"`
	ToLayerBranchID   *int64     `db:"to_layer_branch_id" json:"to_layer_branch_id,omitempty"`
	PN                string     `db:"pn" json:"pn"`
	ChangeType        ChangeType `db:"change_type" json:"change_type"`
	OldValue          string     `db:"old_value" json:"old_value"`
	NewValue          string     `db:"new_value" json:"new_value"`
}

// Describe renders the difference the way it is shown in change lists
func (d *Difference) Describe() string {
	switch d.ChangeType {
	case ChangeAdded:
		return fmt.Sprintf("Added %s", d.PN)
	case ChangeUpgraded:
		return fmt.Sprintf("Upgraded %s from %s to %s", d.PN, d.OldValue, d.NewValue)
	case ChangeDowngraded:
		return fmt.Sprintf("Downgraded %s from %s to %s", d.PN, d.OldValue, d.NewValue)
	case ChangeVersionAmbiguous:
		return fmt.Sprintf("%s: versions changed from %s to %s", d.PN, d.OldValue, d.NewValue)
	case ChangeRemoved:
		return fmt.Sprintf("Removed %s", d.PN)
	case ChangeModified:
		return fmt.Sprintf("Modified %s", d.PN)
	}
	return d.PN
}

// FileDiff tracks the generated diff artifact for one difference.
// Lookup-or-create: at most one live row per difference.
type FileDiff struct {
	ID           int64  `db:"id" json:"id"`
	DifferenceID int64  `db:"difference_id" json:"difference_id"`
	Status       Status `db:"status" json:"status"`
}
